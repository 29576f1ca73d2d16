// Package cli implements the think CLI commands.
package cli

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/rcliao/think/internal/config"
	"github.com/rcliao/think/internal/logger"
)

var (
	cfgPath    string
	formatFlag string

	v   *viper.Viper
	cfg *config.Config
	log *slog.Logger
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "think",
	Short: "Declarative memory for cognitive simulations",
	Long: "Stores chunks, decays their activation over simulated time, and recalls them " +
		"by partial match with human-like latency.",
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "Config file (default: ./think.toml or ~/.think/think.toml)")
	RootCmd.PersistentFlags().StringVarP(&formatFlag, "format", "f", "json", "Output format: json or text")
	RootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
	RootCmd.PersistentFlags().String("log-format", "", "Log format: pretty, json or text")
	RootCmd.PersistentFlags().Bool("log-source", false, "Include source file:line in log records")
}

func loadConfig(cmd *cobra.Command, args []string) error {
	var err error
	v, err = config.InitViper(cfgPath)
	if err != nil {
		return err
	}
	if err := v.BindPFlag("log.debug", cmd.Flags().Lookup("debug")); err != nil {
		return err
	}
	if err := v.BindPFlag("log.source", cmd.Flags().Lookup("log-source")); err != nil {
		return err
	}
	if f := cmd.Flags().Lookup("log-format"); f != nil && f.Changed {
		v.Set("log.format", f.Value.String())
	}
	cfg, err = config.Load(v)
	if err != nil {
		return err
	}
	log = newLogger(cfg.Log)
	log.Debug("config loaded", "file", v.ConfigFileUsed())
	return nil
}

func newLogger(lc config.LogConfig) *slog.Logger {
	return logger.New(
		logger.WithDebug(lc.Debug),
		logger.WithPretty(lc.Format == "pretty"),
		logger.WithJSON(lc.Format == "json"),
		logger.WithSource(lc.Source),
	)
}

func defaultTracePath() string {
	if cfg != nil && cfg.Trace.SQLitePath != "" {
		return cfg.Trace.SQLitePath
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".think", "trace.db")
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}
