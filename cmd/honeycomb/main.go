package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Set at build time with -ldflags "-X main.version=...".
var version = "0.1.0-dev"

var configPath string

func main() {
	rootCmd := &cobra.Command{
		Use:   "honeycomb",
		Short: "Honeycomb - adaptive HTTP deception honeypot",
		Long: `Honeycomb answers every probe with a fabricated IoT device response.
Each request is classified by signature, path frequency and a tabular
policy; the most severe verdict picks the status code, body and stall.`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (yaml or json)")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the honeypot listener",
		RunE:  runServe,
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Show version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("honeycomb %s\n", version)
		},
	}

	tableCmd := &cobra.Command{
		Use:   "table",
		Short: "Inspect action-value tables",
	}
	tableCmd.AddCommand(
		&cobra.Command{Use: "default", Short: "Print the built-in table as YAML", RunE: printDefaultTable},
		&cobra.Command{Use: "check [path]", Short: "Validate a table file", Args: cobra.ExactArgs(1), RunE: checkTable},
	)

	rootCmd.AddCommand(serveCmd, versionCmd, tableCmd, newClassifyCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
