package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"wordcraft/internal/domain"
	"wordcraft/internal/pipeline"
)

func docsCmd(get func() *client) *cobra.Command {
	cmd := &cobra.Command{Use: "docs", Short: "List and manage saved documents"}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List documents, newest first",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				c := get()
				if _, err := requireProfile(c); err != nil {
					return err
				}
				docs := c.app.Documents.Documents()
				if len(docs) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No documents yet.")
					return nil
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tTITLE\tTOOL\tMODIFIED")
				for _, d := range docs {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", d.ID, d.Title, pipeline.ToolName(d.Tool), pipeline.FormatDate(d.LastModified.In(time.Local), c.locale))
				}
				return tw.Flush()
			},
		},
		&cobra.Command{
			Use:   "show <id>",
			Short: "Print a document's input and result",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				c := get()
				if _, err := requireProfile(c); err != nil {
					return err
				}
				d, ok := c.app.Documents.Get(args[0])
				if !ok {
					return fmt.Errorf("document %s: %w", args[0], domain.ErrNotFound)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "%s (%s)\n\n%s\n", d.Title, pipeline.ToolName(d.Tool), d.Content)
				if d.HasResult() {
					fmt.Fprintf(out, "\n--- result ---\n%s\n", d.ProcessedContent)
				}
				return nil
			},
		},
		&cobra.Command{
			Use:   "rename <id> <title>",
			Short: "Rename a document",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				c := get()
				if _, err := requireProfile(c); err != nil {
					return err
				}
				title := args[1]
				d, err := c.app.Documents.Update(cmd.Context(), args[0], domain.DocumentPatch{Title: &title})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Renamed %s to %q.\n", d.ID, d.Title)
				return nil
			},
		},
		&cobra.Command{
			Use:   "delete <id>",
			Short: "Delete a document",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				c := get()
				if _, err := requireProfile(c); err != nil {
					return err
				}
				if err := c.app.Documents.Delete(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s.\n", args[0])
				return nil
			},
		},
	)
	return cmd
}
