package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

var serverAddr string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "roundtable-cli",
	Short: "Client for the roundtable discussion server",
	Long: `roundtable-cli opens discussions, inspects transcripts and follows
discussions live over WebSocket.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	defaultAddr := os.Getenv("ROUNDTABLE_ADDR")
	if defaultAddr == "" {
		defaultAddr = "http://localhost:8080"
	}
	rootCmd.PersistentFlags().StringVarP(&serverAddr, "addr", "a", defaultAddr, "server base URL")

	rootCmd.AddCommand(createCmd, listCmd, showCmd, watchCmd)
}
