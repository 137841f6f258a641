package main

import (
	"encoding/json"
	"fmt"

	"github.com/pako-23/layered/internal/output"
	"github.com/pako-23/layered/internal/runner"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

type layerListing struct {
	Layer string   `json:"layer" yaml:"layer"`
	Tests []string `json:"tests" yaml:"tests"`
}

func newListCmd() *cobra.Command {
	listCommand := &cobra.Command{
		Use:   "list [flags] [path to testsuite]",
		Short: "List the tests of a test suite in the order they run",
		Args:  cobra.ExactArgs(1),
		PreRun: func(cmd *cobra.Command, args []string) {
			viper.BindPFlag("layer", cmd.Flags().Lookup("layer"))
			viper.BindPFlag("test", cmd.Flags().Lookup("test"))
			viper.BindPFlag("output", cmd.Flags().Lookup("output"))
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			suite, release, err := loadSuite(args[0])
			if err != nil {
				return err
			}
			defer release()

			if err := suite.Filter(viper.GetString("layer"), viper.GetString("test")); err != nil {
				return err
			}

			r, err := runner.New(suite.Registry)
			if err != nil {
				return err
			}
			suite.Register(r)

			groups, err := r.OrderedLayers()
			if err != nil {
				return err
			}

			listing := make([]layerListing, len(groups))
			for i, group := range groups {
				listing[i] = layerListing{Layer: group.Layer.Name(), Tests: make([]string, len(group.Tests))}
				for j, test := range group.Tests {
					listing[i].Tests[j] = test.ID()
				}
			}

			out := cmd.OutOrStdout()
			switch viper.GetString("output") {
			case "json":
				encoder := json.NewEncoder(out)
				encoder.SetIndent("", "  ")
				return encoder.Encode(listing)
			case "yaml":
				encoder := yaml.NewEncoder(out)
				encoder.SetIndent(2)
				if err := encoder.Encode(listing); err != nil {
					return err
				}
				return encoder.Close()
			case "text":
				formatter := output.NewPlain(out)
				for _, l := range listing {
					formatter.ListOfTests(l.Layer, l.Tests)
				}
				return nil
			default:
				return fmt.Errorf("%w: %q", errInvalidFormat, viper.GetString("output"))
			}
		},
	}

	listCommand.Flags().StringP("layer", "l", "", "a regular expression selecting the layers to list")
	listCommand.Flags().StringP("test", "t", "", "a regular expression selecting the tests to list")
	listCommand.Flags().StringP("output", "o", "text", "the output format: text, json or yaml")

	return listCommand
}
