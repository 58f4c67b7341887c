package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"unicode/utf8"

	"github.com/JonMunkholm/evalreview/internal/core"
	"github.com/spf13/cobra"
)

const previewWidth = 40

func newInspectCmd(maxSize *int64) *cobra.Command {
	var (
		asJSON bool
		limit  int
	)

	cmd := &cobra.Command{
		Use:   "inspect [file]",
		Short: "Import a CSV and print its rows",
		Long:  `Import a CSV exactly as the server would and print the resulting rows. Exits non-zero with the user-facing error if the import fails.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, err := importFile(args[0], *maxSize)
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(ds)
			}
			return printDataset(cmd, ds, limit)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output rows as JSON")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Rows to print (0 prints all)")
	return cmd
}

func printDataset(cmd *cobra.Command, ds core.Dataset, limit int) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%d rows\n\n", ds.Len())

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprint(tw, "ID")
	for _, col := range core.Columns {
		fmt.Fprintf(tw, "\t%s", col.Label)
	}
	fmt.Fprintln(tw)

	for i, row := range ds {
		if limit > 0 && i >= limit {
			break
		}
		fmt.Fprintf(tw, "%d", row.ID)
		for _, col := range core.Columns {
			fmt.Fprintf(tw, "\t%s", preview(row.Value(col.Field)))
		}
		fmt.Fprintln(tw)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if limit > 0 && ds.Len() > limit {
		fmt.Fprintf(out, "... %d more\n", ds.Len()-limit)
	}
	return nil
}

// preview flattens a cell to one line and truncates it for the terminal.
func preview(s string) string {
	flat := make([]rune, 0, len(s))
	for _, r := range s {
		switch r {
		case '\n', '\r', '\t':
			r = ' '
		}
		flat = append(flat, r)
	}
	if utf8.RuneCountInString(string(flat)) <= previewWidth {
		return string(flat)
	}
	return string(flat[:previewWidth-1]) + "…"
}
