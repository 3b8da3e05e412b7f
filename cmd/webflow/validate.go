package main

import (
	"fmt"

	"github.com/aretw0/webflow/internal/cli"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate [dir]",
	Short: "Check flow definitions for consistency",
	Long:  `Crawls every flow from its start state and reports dangling targets, unreachable states and unknown subflows.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, _ := cmd.Flags().GetString("dir")
		if len(args) > 0 {
			dir = args[0]
		}

		reports, err := cli.ValidateDir(dir)
		if err != nil {
			return err
		}
		if len(reports) == 0 {
			return fmt.Errorf("no flow definitions found in %s", dir)
		}

		out := cmd.OutOrStdout()
		failed := 0
		for _, r := range reports {
			if r.Err != nil {
				failed++
				fmt.Fprintf(out, "✗ %s: %v\n", r.Path, r.Err)
				continue
			}
			mark := "✓"
			if !r.OK() {
				failed++
				mark = "✗"
			}
			fmt.Fprintf(out, "%s %s (%s)\n", mark, r.FlowID, r.Path)
			for _, e := range r.Report.Errors {
				fmt.Fprintf(out, "    error: %s\n", e)
			}
			for _, w := range r.Report.Warnings {
				fmt.Fprintf(out, "    warning: %s\n", w)
			}
		}
		if failed > 0 {
			return fmt.Errorf("validation failed: %d of %d flows have errors", failed, len(reports))
		}
		fmt.Fprintln(out, "All flows are valid! ✅")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
