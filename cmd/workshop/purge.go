package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/tendant/simple-workshop/pkg/workshop"
)

func newPurgeCommand(c *cli) *cobra.Command {
	var appFlag string

	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete files left in temporary cloud storage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := c.requireApp(appFlag)
			if err != nil {
				return err
			}
			return c.withSession(cmd.Context(), app, func(s *workshop.Session) error {
				out := cmd.OutOrStdout()
				for _, f := range s.Stager().List() {
					fmt.Fprintf(out, "  %s (%s)\n", f.Name, humanize.Bytes(uint64(max(f.Size, 0))))
				}
				n, err := s.PurgeStale()
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Removed %d stale files\n", n)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&appFlag, "app", "a", "", "application id or name")

	return cmd
}
