// Package cmd implements the storyloom CLI using cobra.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const version = "0.1.0"
const logo = "🧵"

// rootCmd is the base command.
var rootCmd = &cobra.Command{
	Use:   "storyloom",
	Short: logo + " storyloom — Story-Building Agent",
	Long:  logo + " storyloom — a conversational agent that writes stories and illustrates them scene by scene",
}

// Execute runs the root command and exits on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.Version = version

	rootCmd.AddCommand(onboardCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(gatewayCmd)
	rootCmd.AddCommand(statusCmd)
}
