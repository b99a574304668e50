// Copyright (c) 2025 Sqlpilot
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package cmd provides the command-line interface for sqlpilot.
// It implements subcommands for asking questions in natural language, running
// SQL directly, inspecting the schema and managing credentials, using the
// Cobra CLI framework with a pterm terminal UI.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"sqlpilot/cli/internal/config"
	"sqlpilot/cli/internal/logging"
)

var (
	showVersion bool
	cfgFile     string

	// appCfg and logger are populated by PersistentPreRunE before any RunE.
	appCfg *config.Config
	logger = zap.NewNop()
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "sqlpilot",
	Short: "Ask your database questions in plain language",
	Long: `sqlpilot turns natural-language questions into SQL, runs them against your
database and corrects failing queries automatically with an LLM.

Connect a database with 'sqlpilot connect', store an API key with
'sqlpilot key set', then ask away:

  sqlpilot ask "total sales by region"`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile, cmd.Flags())
		if err != nil {
			return err
		}
		l, err := logging.NewLogger(cfg.LogLevel, cfg.LogFormat)
		if err != nil {
			return err
		}
		appCfg = cfg
		logger = l
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if showVersion {
			fmt.Printf("sqlpilot %s\n", Version)
			return nil
		}
		return cmd.Help()
	},
}

// Execute runs the CLI application. Ctrl-C cancels the running command.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		var exit exitCodeError
		if errors.As(err, &exit) {
			os.Exit(exit.code)
		}
		fmt.Fprintln(os.Stderr, logging.PresentError("Error", err))
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().BoolVar(&showVersion, "version", false, "Show CLI version information")
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default $XDG_CONFIG_HOME/sqlpilot/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-format", "", "log format: console or json")
}
