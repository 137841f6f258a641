package main

import (
	"github.com/spf13/cobra"
)

func newGraphCmd() *cobra.Command {
	graphCommand := &cobra.Command{
		Use:   "graph [flags] [path to testsuite]",
		Short: "Generate a Graphviz graph of the layers of a test suite",
		Args:  cobra.ExactArgs(1),
		Long: `Produces a representation of the graph of layers of a test suite,
with an edge from each layer to each of its bases.

The graph is presented in the DOT language. The typical program that can
read this format is GraphViz.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			suite, release, err := loadSuite(args[0])
			if err != nil {
				return err
			}
			defer release()

			if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
				return suite.Registry.WriteJSON(cmd.OutOrStdout())
			}

			return suite.Registry.WriteDOT(cmd.OutOrStdout())
		},
	}

	graphCommand.Flags().Bool("json", false, "write the graph as JSON instead of DOT")

	return graphCommand
}
