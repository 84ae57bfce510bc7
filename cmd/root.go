// Package cmd wires the rfkeeper command line interface.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "rfkeeper",
	Short: "Telegram bot saving messages into RedForester mind maps",
	Long: "rfkeeper bridges a Telegram chat to the RedForester node-graph service: " +
		"incoming messages become nodes on the user's maps, placed through an inline keyboard flow.",
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
