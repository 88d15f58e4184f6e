// Package cmd contains the nodectl commands.
package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	url     string
	timeout string
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&url, "url", "u", "http://localhost:8080", "Url of the node.")
	rootCmd.PersistentFlags().StringVarP(&timeout, "timeout", "t", "2m", "Time to wait for the node to respond.")
}

var rootCmd = &cobra.Command{
	Use:   "nodectl",
	Short: "Drive a proof of work blockchain node",
}

// Execute runs the command selected on the command line.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
