package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/jstittsworth/bet-analytics/internal/strategy"
	"github.com/jstittsworth/bet-analytics/pkg/config"
	"github.com/jstittsworth/bet-analytics/pkg/logger"
)

// cli carries the state shared by every subcommand
type cli struct {
	profilesFile string
	logLevel     string
	logger       *logrus.Logger
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	app := &cli{}

	rootCmd := &cobra.Command{
		Use:           "analytics",
		Short:         "Betting analytics toolkit",
		Long:          "One-shot access to the integration, sizing, feature and model registry pipeline without running the server.",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Logs go to stderr so command output stays parseable JSON
			app.logger = logger.InitLogger(app.logLevel, false)
			app.logger.SetOutput(cmd.ErrOrStderr())
		},
	}
	rootCmd.PersistentFlags().StringVar(&app.profilesFile, "profiles-file", "", "YAML file with custom risk profiles")
	rootCmd.PersistentFlags().StringVar(&app.logLevel, "log-level", "warn", "Log level")

	rootCmd.AddCommand(app.newSyncCmd())
	rootCmd.AddCommand(app.newKellyCmd())
	rootCmd.AddCommand(app.newFeaturesCmd())
	rootCmd.AddCommand(app.newRegistryCmd())
	rootCmd.AddCommand(app.newProfilesCmd())
	return rootCmd
}

func (a *cli) profiles() (*strategy.ProfileManager, error) {
	m := strategy.NewProfileManager()
	if a.profilesFile != "" {
		if err := m.LoadFile(a.profilesFile); err != nil {
			return nil, fmt.Errorf("load profiles: %w", err)
		}
	}
	return m, nil
}

func (a *cli) config() (*config.Config, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
