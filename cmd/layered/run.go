package main

import (
	"fmt"
	"math/rand/v2"
	"os"

	"github.com/pako-23/layered/internal/runner"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// maxSeed bounds the seeds picked for shuffled runs.
const maxSeed = 10_000_000_000

func newRunCmd() *cobra.Command {
	runCommand := &cobra.Command{
		Use:   "run [flags] [path to testsuite]",
		Short: "Run the tests of a test suite layer by layer",
		Args:  cobra.ExactArgs(1),
		Long: `Runs the tests of a test suite grouped by layer. Layers are set up
once for all the tests that need them and torn down as soon as no
remaining test needs them.

Layers that can not be torn down make the remaining layers run in
worker processes. With more than one process, every layer runs in
its own worker.`,
		PreRun: func(cmd *cobra.Command, args []string) {
			viper.BindPFlags(cmd.Flags())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			resumeLayer := viper.GetString("resume-layer")
			resumed := resumeLayer != ""

			suite, release, err := loadSuite(path)
			if err != nil {
				return err
			}
			defer release()

			if err := suite.Filter(viper.GetString("layer"), viper.GetString("test")); err != nil {
				return err
			}

			formatter, err := newFormatter(cmd.OutOrStdout(), viper.GetString("format"),
				viper.GetInt("verbose"), viper.GetString("color"), resumed)
			if err != nil {
				return err
			}

			shuffled := viper.GetBool("shuffle") || viper.IsSet("shuffle-seed")
			seed := viper.GetInt64("shuffle-seed")
			if shuffled {
				if !viper.IsSet("shuffle-seed") {
					seed = rand.Int64N(maxSeed)
				}
				suite.Shuffle(seed)
				if !resumed {
					formatter.Info(fmt.Sprintf("Tests were shuffled using seed number %d.", seed))
				}
			}

			scriptParts, err := executable()
			if err != nil {
				return err
			}
			forwarded, err := forwardedArgs(path, seed, shuffled)
			if err != nil {
				return err
			}
			cwd, err := os.Getwd()
			if err != nil {
				return err
			}

			options := []runner.Option{
				runner.WithOutput(formatter),
				runner.WithStdout(cmd.OutOrStdout()),
				runner.WithProcesses(viper.GetInt("processes")),
				runner.WithRepeat(viper.GetInt("repeat")),
				runner.WithVerbosity(viper.GetInt("verbose")),
				runner.WithDefaults(workerDefaults()...),
				runner.WithWorkerCommand(scriptParts, forwarded, cwd),
			}
			if resumed {
				options = append(options, runner.WithResume(resumeLayer, viper.GetInt("resume-number")))
			}
			if viper.GetBool("stop-on-error") {
				options = append(options, runner.WithStopOnError())
			}
			if viper.GetBool("post-mortem") {
				options = append(options, runner.WithPostMortem(postMortem(cmd.InOrStdin(), cmd.OutOrStdout())))
			}

			r, err := runner.New(suite.Registry, options...)
			if err != nil {
				return err
			}
			suite.Register(r)
			log.Debugf("running %d tests from %s", suite.Count(), path)

			report, err := r.Run(cmd.Context())
			if err != nil {
				return err
			}

			if resumed {
				return report.WriteControl(cmd.ErrOrStderr())
			}
			if report.Failed() {
				return errTestsFailed
			}

			return nil
		},
	}

	runCommand.Flags().IntP("processes", "j", runner.DefaultSetSize, "the number of worker processes running layers in parallel")
	runCommand.Flags().Bool("stop-on-error", false, "stop running tests after the first failure or error")
	runCommand.Flags().IntP("repeat", "N", 1, "the number of times each layer's tests are run")
	runCommand.Flags().Bool("shuffle", false, "run the tests of each layer in random order")
	runCommand.Flags().Int64("shuffle-seed", 0, "the seed used to shuffle the tests, implies --shuffle")
	runCommand.Flags().StringP("layer", "l", "", "a regular expression selecting the layers to run")
	runCommand.Flags().StringP("test", "t", "", "a regular expression selecting the tests to run")
	runCommand.Flags().String("format", "plain", "the output format: plain or log")
	runCommand.Flags().String("color", "auto", "when to color the output: auto, always or never")
	runCommand.Flags().Bool("post-mortem", false, "stop on layer set up failures and show them with their stack")
	runCommand.Flags().IntP("verbose", "v", 1, "the output verbosity")

	runCommand.Flags().String("resume-layer", "", "the layer a worker process runs")
	runCommand.Flags().Int("resume-number", 0, "the position of the layer among the worker processes")
	_ = runCommand.Flags().MarkHidden("resume-layer")
	_ = runCommand.Flags().MarkHidden("resume-number")

	return runCommand
}
