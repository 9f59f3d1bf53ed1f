// SPDX-License-Identifier: MIT
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version   = "v0.3.0"
	commit    = "none"
	buildDate = "unknown"
)

var flagConfig string

func main() {
	root := &cobra.Command{
		Use:           "leavetray",
		Short:         "Workday leave-time countdown with a tray indicator",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flagConfig, "config", "", "path to config file (YAML)")

	root.AddCommand(newServeCmd())
	root.AddCommand(newFetchCmd())
	root.AddCommand(newTestConnCmd())
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version and exit",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Printf("%s (commit: %s, built: %s)\n", version, commit, buildDate)
		},
	})

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
