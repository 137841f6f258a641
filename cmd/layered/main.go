// Copyright 2023 The GTDD Authors. All rights reserved.
// Use of this source code is governed by a GPL-style
// license that can be found in the LICENSE file.

// Run test suites whose tests share layered fixtures.

package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newRootCmd() *cobra.Command {
	var cfgFile string

	rootCommand := &cobra.Command{
		Use:   "layered",
		Short: "A test runner for suites with layered fixtures",
		Long: `A test runner for suites whose tests share fixtures organised in
layers. Each layer is set up once for all the tests needing it, and
layers that can not be torn down make the rest of the run continue in
worker processes.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			viper.BindPFlag("log", cmd.Flags().Lookup("log"))
			viper.BindPFlag("log-format", cmd.Flags().Lookup("log-format"))
			viper.BindPFlag("log-file", cmd.Flags().Lookup("log-file"))

			parseConfiguration(cfgFile)

			defaults, _ := cmd.Flags().GetStringArray("default")
			cobra.CheckErr(applyDefaults(defaults))

			log.SetLevel(toLogLevel(viper.GetString("log")))
			switch viper.GetString("log-format") {
			case "json":
				log.SetFormatter(&log.JSONFormatter{})
			}

			if viper.GetString("log-file") == "" {
				return
			}

			file, err := os.OpenFile(viper.GetString("log-file"), os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o666)
			if err == nil {
				log.SetOutput(file)
			}
		},
	}

	rootCommand.PersistentFlags().StringVar(&cfgFile, "config", "", "Configuration file (default .layered.yaml)")
	rootCommand.PersistentFlags().String("log", "info", "Log level")
	rootCommand.PersistentFlags().String("log-format", "plain", "The log format")
	rootCommand.PersistentFlags().String("log-file", "", "The log file")
	rootCommand.PersistentFlags().StringArray("default", nil, "A key=value configuration default")
	_ = rootCommand.PersistentFlags().MarkHidden("default")

	rootCommand.AddCommand(
		newGraphCmd(),
		newListCmd(),
		newRunCmd(),
	)

	return rootCommand
}

func parseConfiguration(cfgFile string) {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		cwd, err := os.Getwd()
		cobra.CheckErr(err)

		viper.AddConfigPath(cwd)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".layered")
	}

	viper.SetEnvPrefix("layered")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
	if err := viper.ReadInConfig(); err == nil {
		log.Debugf("using configuration file %s", viper.ConfigFileUsed())
	}
}

// toLogLevel translates a string to the corresponding log level. If the
// provided string representing the log level is not supported, the program
// will exit with an error.
func toLogLevel(level string) log.Level {
	switch strings.ToLower(level) {
	case log.InfoLevel.String():
		return log.InfoLevel
	case log.DebugLevel.String():
		return log.DebugLevel
	case log.WarnLevel.String(), "warn":
		return log.WarnLevel
	case log.ErrorLevel.String():
		return log.ErrorLevel
	default:
		log.Fatalf("%s is not a supported logging level", level)
	}
	return log.InfoLevel
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		if !errors.Is(err, errTestsFailed) {
			log.Error(err)
		}
		stop()
		os.Exit(1)
	}
}
