// Package cli implements the pefinder command line.
package cli

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pe-finder/internal/config"
	"github.com/pe-finder/internal/logging"
)

// app holds state shared by the commands of one invocation.
type app struct {
	v       *viper.Viper
	cfgFile string
	manager *config.Manager
	logger  *logrus.Logger
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	rootCmd := &cobra.Command{
		Use:   "pefinder",
		Short: "Classify CT angiogram impressions for pulmonary embolism",
		Long: `pefinder reads radiology report impressions from a database, annotates
each one for pulmonary embolism, exam quality and imaging artifacts, and
writes four labels per report to a fresh results table:

  disease      Pos | Neg
  uncertainty  Yes | No
  historical   Old | New | NA
  quality      Diagnostic | Not Diagnostic

Configuration hierarchy (highest to lowest priority):
  1. CLI flags
  2. Environment variables (PEFINDER_*)
  3. Config file (./pefinder.yaml or ~/.pefinder/pefinder.yaml)
  4. Defaults`,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
	}

	rootCmd.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default: ./pefinder.yaml or $HOME/.pefinder/pefinder.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-format", "text", "log format: text, json")

	_ = a.v.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = a.v.BindPFlag("logging.format", rootCmd.PersistentFlags().Lookup("log-format"))

	rootCmd.AddCommand(
		newRunCmd(a),
		newConfigCmd(a),
		newLexiconCmd(a),
		newVersionCmd(),
	)
	return rootCmd
}

// init loads configuration and builds the logger.
func (a *app) init() error {
	manager, err := config.NewManager(a.v, a.cfgFile)
	if err != nil {
		return err
	}
	a.manager = manager
	a.logger = logging.New(manager.GetConfig().Logging)

	if used := manager.ConfigFileUsed(); used != "" {
		a.logger.WithField("config_file", used).Debug("Using config file")
	}
	return nil
}

// Execute runs the root command. Cancelling ctx aborts a run between reports.
func Execute(ctx context.Context) error {
	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		return fmt.Errorf("pefinder: %w", err)
	}
	return nil
}
