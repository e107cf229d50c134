package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"lexora.io/legal-assistant/internal/app"
)

var retrieveCmd = &cobra.Command{
	Use:   "retrieve <query>",
	Short: "Show the chunks a question would be grounded on",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(a *app.App) error {
			results, err := a.Retrieval.RetrieveChunks(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(results) == 0 {
				fmt.Fprintln(out, "no chunks above the similarity threshold")
				return nil
			}
			for i, r := range results {
				fmt.Fprintf(out, "#%d %.4f %s p.%d\n%s\n\n", i+1, r.Similarity, r.Metadata.FileName, r.Metadata.Page, r.Text)
			}
			return nil
		})
	},
}

var compareCmd = &cobra.Command{
	Use:   "compare <text1> <text2>",
	Short: "Print the cosine similarity of two texts' embeddings",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(a *app.App) error {
			sim, err := a.Retrieval.Compare(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%.6f\n", sim)
			return nil
		})
	},
}
