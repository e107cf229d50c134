package main

import (
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"lexora.io/legal-assistant/internal/app"
)

var docsCmd = &cobra.Command{
	Use:   "docs",
	Short: "Manage indexed PDF documents",
}

var docsIngestCmd = &cobra.Command{
	Use:   "ingest <file.pdf>",
	Short: "Parse, chunk, embed and index a PDF",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		name, _ := cmd.Flags().GetString("name")
		if name == "" {
			name = filepath.Base(args[0])
		}
		return withApp(cmd.Context(), func(a *app.App) error {
			doc, err := a.Documents.Ingest(cmd.Context(), data, name)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "indexed %s: %d chunks\n", doc.FileName, len(doc.ChunkIDs))
			return nil
		})
	},
}

var docsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List indexed documents",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(a *app.App) error {
			docs, err := a.Documents.List(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "FILE\tUPLOADED")
			for _, d := range docs {
				fmt.Fprintf(tw, "%s\t%s\n", d.FileName, d.UploadDate.Format("2006-01-02 15:04"))
			}
			return tw.Flush()
		})
	},
}

var docsDeleteCmd = &cobra.Command{
	Use:   "delete <fileName>",
	Short: "Delete a document's chunks and its index record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(a *app.App) error {
			if err := a.Documents.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
			return nil
		})
	},
}

var docsReconcileCmd = &cobra.Command{
	Use:   "reconcile <fileName>",
	Short: "Remove chunks left behind by an interrupted ingestion",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(a *app.App) error {
			n, err := a.Documents.Reconcile(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d orphaned chunks for %s\n", n, args[0])
			return nil
		})
	},
}

func init() {
	docsCmd.AddCommand(docsIngestCmd)
	docsCmd.AddCommand(docsListCmd)
	docsCmd.AddCommand(docsDeleteCmd)
	docsCmd.AddCommand(docsReconcileCmd)

	docsIngestCmd.Flags().String("name", "", "File name to index under (default: base name of the path)")
}
