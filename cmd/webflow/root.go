package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "webflow",
	Short: "Webflow runs conversational web flows",
	Long: `Webflow executes flow definitions written in YAML: multi-step conversations
made of view, action, decision, subflow and end states, resumable by execution key.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("dir", "flows", "Directory containing the flow definitions")
	rootCmd.PersistentFlags().StringP("config", "c", "", "Path to the webflow config file")
}
