package main

import (
	"log/slog"
	"os"

	"github.com/JonMunkholm/evalreview/internal/logging"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	var (
		verbose   bool
		maxSize   int64
		logFormat string
	)

	root := &cobra.Command{
		Use:   "reviewctl",
		Short: "Inspect and convert evaluation review CSVs",
		Long: `reviewctl runs the same importer as the review server against files on
disk. Use it to check that a CSV will import, or to convert it to XLSX.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := "info"
			if verbose {
				level = "debug"
			}
			slog.SetDefault(logging.New(os.Stderr, level, logFormat))
		},
	}

	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	root.PersistentFlags().StringVar(&logFormat, "log-format", "text", "Log format: text or json")
	root.PersistentFlags().Int64Var(&maxSize, "max-size", 10<<20, "Reject files larger than this many bytes (0 disables)")

	root.AddCommand(newInspectCmd(&maxSize), newExportCmd(&maxSize))
	return root
}
