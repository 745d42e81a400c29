package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/tendant/simple-workshop/pkg/workshop"
)

func newDownloadCommand(c *cli) *cobra.Command {
	var appFlag string
	var item uint64
	var installDir string

	cmd := &cobra.Command{
		Use:   "download",
		Short: "Download a workshop item",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := c.requireApp(appFlag)
			if err != nil {
				return err
			}
			if item == 0 {
				return errors.New("item id is required (--item)")
			}
			if installDir != "" {
				c.cfg.InstallDir = installDir
			}

			c.logger.Info("downloading item", "item", item, "app", app)
			return c.withSession(cmd.Context(), app, func(s *workshop.Session) error {
				path, err := s.Download(cmd.Context(), workshop.ItemID(item))
				if err != nil {
					return err
				}
				printField(cmd.OutOrStdout(), "Saved to", path)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&appFlag, "app", "a", "", "application id or name")
	cmd.Flags().Uint64VarP(&item, "item", "i", 0, "id of the item to download")
	cmd.Flags().StringVarP(&installDir, "install-dir", "o", "", "directory to install into")

	return cmd
}
