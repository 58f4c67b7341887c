package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/JonMunkholm/evalreview/internal/core"
	"github.com/spf13/cobra"
)

func newExportCmd(maxSize *int64) *cobra.Command {
	var (
		format     string
		output     string
		botOutputs string
	)

	cmd := &cobra.Command{
		Use:   "export [file]",
		Short: "Convert a review CSV to CSV or XLSX",
		Long: `Import a CSV and write it back out with every review column, optionally
filling Bot Output from a JSON object of row id to text.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			write, err := writerFor(format)
			if err != nil {
				return err
			}

			ds, err := importFile(args[0], *maxSize)
			if err != nil {
				return err
			}
			if botOutputs != "" {
				outputs, err := readBotOutputs(botOutputs)
				if err != nil {
					return err
				}
				ds = ds.WithBotOutputs(outputs)
			}

			if output == "" {
				output = defaultOutput(args[0], format)
			}
			if output == "-" {
				return write(cmd.OutOrStdout(), ds)
			}

			f, err := os.Create(output)
			if err != nil {
				return err
			}
			if err := write(f, ds); err != nil {
				f.Close()
				return fmt.Errorf("write %s: %w", output, err)
			}
			if err := f.Close(); err != nil {
				return err
			}
			slog.Info("exported", "file", output, "rows", ds.Len(), "format", format)
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "xlsx", "Output format: csv or xlsx")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output path, or - for stdout (default: <name>-reviewed.<format>)")
	cmd.Flags().StringVar(&botOutputs, "bot-outputs", "", "JSON file mapping row id to Bot Output")
	return cmd
}

func writerFor(format string) (func(io.Writer, core.Dataset) error, error) {
	switch format {
	case "csv":
		return core.WriteCSV, nil
	case "xlsx":
		return core.WriteXLSX, nil
	default:
		return nil, fmt.Errorf("unknown format %q: want csv or xlsx", format)
	}
}

func defaultOutput(input, format string) string {
	base := strings.TrimSuffix(input, filepath.Ext(input))
	return base + "-reviewed." + format
}

func readBotOutputs(path string) (map[int]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var outputs map[int]string
	if err := json.Unmarshal(data, &outputs); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return outputs, nil
}
