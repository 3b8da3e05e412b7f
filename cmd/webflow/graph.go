package main

import (
	"fmt"

	"github.com/aretw0/webflow/internal/compiler"
	"github.com/aretw0/webflow/internal/presentation/graph"
	"github.com/spf13/cobra"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph <file>",
	Short: "Export a flow as a Mermaid diagram",
	Long:  `Reads a flow definition and outputs a Mermaid diagram (graph TD) of its states and transitions.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		def, err := compiler.ParseFile(args[0])
		if err != nil {
			return err
		}

		var overlay *graph.GraphOverlay
		visited, _ := cmd.Flags().GetStringSlice("visited")
		current, _ := cmd.Flags().GetString("current")
		if len(visited) > 0 || current != "" {
			overlay = &graph.GraphOverlay{VisitedStates: visited, CurrentState: current}
		}

		fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(def, overlay))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().StringSlice("visited", nil, "States to highlight as visited")
	graphCmd.Flags().String("current", "", "State to highlight as current")
}
