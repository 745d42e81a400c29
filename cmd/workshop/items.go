package main

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/tendant/simple-workshop/pkg/workshop"
)

func newItemsCommand(c *cli) *cobra.Command {
	var appFlag string

	cmd := &cobra.Command{
		Use:   "items",
		Short: "Inspect and delete published items",
	}
	cmd.PersistentFlags().StringVarP(&appFlag, "app", "a", "", "application id or name")

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List the items published by the current user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := c.requireApp(appFlag)
			if err != nil {
				return err
			}
			return c.withSession(cmd.Context(), app, func(s *workshop.Session) error {
				ids, err := s.ListUserItems(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(ids) == 0 {
					fmt.Fprintf(out, "No items published by %s\n", c.cfg.User)
					return nil
				}
				fmt.Fprintf(out, "Total items: %d\n\n", len(ids))
				for i, id := range ids {
					d, err := s.ItemDetails(cmd.Context(), id)
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "%d. %s  %s  r%d  %s\n", i+1, id, d.Title, d.Revision, humanize.Bytes(uint64(max(d.FileSize, 0))))
					if d.Tags != "" {
						fmt.Fprintf(out, "   Tags: %s\n", strings.Join(d.TagList(), ", "))
					}
				}
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show <item-id>",
		Short: "Show an item's details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := c.requireApp(appFlag)
			if err != nil {
				return err
			}
			id, err := workshop.ParseItemID(args[0])
			if err != nil {
				return err
			}
			return c.withSession(cmd.Context(), app, func(s *workshop.Session) error {
				d, err := s.ItemDetails(cmd.Context(), id)
				if err != nil {
					return err
				}
				printDetails(cmd, d)
				return nil
			})
		},
	})

	var confirm bool
	deleteCmd := &cobra.Command{
		Use:   "delete <item-id>",
		Short: "Delete a published item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := c.requireApp(appFlag)
			if err != nil {
				return err
			}
			id, err := workshop.ParseItemID(args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if !confirm && !newPrompter(cmd.InOrStdin(), out).confirm(fmt.Sprintf("Are you sure you want to delete item %s?", id)) {
				fmt.Fprintln(out, "Delete cancelled.")
				return nil
			}

			return c.withSession(cmd.Context(), app, func(s *workshop.Session) error {
				if err := s.DeleteItem(cmd.Context(), id); err != nil {
					return err
				}
				fmt.Fprintf(out, "Item %s deleted\n", id)
				return nil
			})
		},
	}
	deleteCmd.Flags().BoolVarP(&confirm, "yes", "y", false, "skip confirmation prompt")
	cmd.AddCommand(deleteCmd)

	return cmd
}

func printDetails(cmd *cobra.Command, d workshop.ItemDetails) {
	out := cmd.OutOrStdout()
	printField(out, "ID", d.ItemID)
	printField(out, "App", d.AppID)
	printField(out, "Title", d.Title)
	printField(out, "Description", d.Description)
	printField(out, "Owner", d.Owner)
	printField(out, "Tags", strings.Join(d.TagList(), ", "))
	printField(out, "File", d.FileName)
	printField(out, "Size", humanize.Bytes(uint64(max(d.FileSize, 0))))
	printField(out, "Revision", d.Revision)
	if d.Digest != "" {
		printField(out, "Digest", d.Digest)
	}
	if d.ChangeNotes != "" {
		printField(out, "Change notes", d.ChangeNotes)
	}
	printField(out, "Updated", humanize.Time(d.UpdatedAt))
}
