package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/BVG-Design/brokercompare-sub001/internal/scoring"
)

func newCategoriesCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "categories",
		Short: "Print the scoring categories and their weights",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			categories := scoring.Categories()
			if format == "table" {
				return writeCategoryTable(cmd.OutOrStdout(), categories)
			}
			return writeOutput(cmd.OutOrStdout(), format, categories)
		},
	}

	cmd.Flags().StringVar(&format, "format", "table", "Output format: table, json or yaml")
	return cmd
}

func writeCategoryTable(w io.Writer, categories []scoring.CategoryInfo) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "KEY\tLABEL\tWEIGHT")
	for _, c := range categories {
		fmt.Fprintf(tw, "%s\t%s\t%.3f\n", c.Key, c.Label, c.Weight)
	}
	fmt.Fprintf(tw, "\t\t%.3f\n", scoring.WeightSum())
	return tw.Flush()
}
