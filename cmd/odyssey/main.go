package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "odyssey",
	Short: "Odyssey back-office billing service",
	Long:  `Serves the billing API and offers operational helpers for quotes and background jobs.`,
	// Running without a subcommand starts the HTTP server.
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd, quoteCmd, jobsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
