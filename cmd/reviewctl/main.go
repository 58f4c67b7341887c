// Command reviewctl inspects and converts review CSVs without running the
// server.
package main

import (
	"fmt"
	"os"

	"github.com/JonMunkholm/evalreview/internal/core"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		if core.IsUserFacing(err) {
			fmt.Fprintln(os.Stderr, core.FormatUserError(err))
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}
