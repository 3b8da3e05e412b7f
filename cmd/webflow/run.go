package main

import (
	"github.com/aretw0/webflow/internal/cli"
	"github.com/spf13/cobra"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run [flow-id]",
	Short: "Run a flow on the console",
	Long: `Launches a flow and drives it interactively. Type an event followed by
key=value parameters, e.g. "submit guest=Ada nights=3". "quit" leaves the
execution paused; continue it later with --execution when --store is set.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := cli.RunOptions{}
		opts.FlowsDir, _ = cmd.Flags().GetString("dir")
		if len(args) > 0 {
			opts.FlowID = args[0]
		}
		opts.Execution, _ = cmd.Flags().GetString("execution")
		opts.Input, _ = cmd.Flags().GetString("input")
		opts.StorePath, _ = cmd.Flags().GetString("store")
		opts.JSON, _ = cmd.Flags().GetBool("json")
		opts.Headless, _ = cmd.Flags().GetBool("headless")
		opts.Debug, _ = cmd.Flags().GetBool("debug")
		opts.Stdin = cmd.InOrStdin()
		opts.Stdout = cmd.OutOrStdout()

		_, err := cli.RunSession(cmd.Context(), opts)
		return err
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringP("execution", "e", "", "Continue the paused execution with this key")
	runCmd.Flags().StringP("input", "i", "", "Flow input as a JSON object")
	runCmd.Flags().String("store", "", "Directory keeping paused executions between runs")
	runCmd.Flags().Bool("headless", false, "Run in headless mode (no banner, plain output)")
	runCmd.Flags().Bool("json", false, "Run in JSON mode (NDJSON input/output)")
	runCmd.Flags().Bool("debug", false, "Log engine events to stderr")
}
