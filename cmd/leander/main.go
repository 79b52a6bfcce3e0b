// Command leander serves a per-user caching GraphQL gateway over GitHub
// issues and browses its dashboards in the terminal.
package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/robby/leander/internal/config"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "leander",
	Short: "Caching GraphQL gateway and terminal dashboards for GitHub issues",
	Long: `leander keeps a per-user cache of GitHub organizations, repositories and
issues, serves it over GraphQL, and keeps it fresh from GitHub webhooks.

Commands:
  serve   run the HTTP gateway (OAuth login, /graphql, /webhook)
  board   browse a dashboard page in the terminal
  probe   fetch one repository through the cache and print a summary

Configuration is read from .leander.yaml in the working directory (or --config)
and LEANDER_* environment variables, e.g. LEANDER_SERVER_PORT=8080.

Authentication for board and probe:
  1. GitHub CLI: Run 'gh auth login' (preferred)
  2. Environment variable: Set GITHUB_TOKEN`,
	SilenceUsage: true,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .leander.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error")
	_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))

	rootCmd.AddCommand(serveCmd, boardCmd, probeCmd)
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		cwd, err := os.Getwd()
		if err != nil {
			fmt.Fprintln(os.Stderr, "Error getting working directory:", err)
			os.Exit(1)
		}

		viper.AddConfigPath(cwd)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".leander")
	}

	config.Bind(viper.GetViper())

	if err := viper.ReadInConfig(); err != nil {
		// A missing default file is fine; defaults and env still apply.
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			fmt.Fprintln(os.Stderr, "Error reading config:", err)
			os.Exit(1)
		}
	}
}

// loadConfig loads and validates the configuration shared by every command.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(nil)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// newLogger builds the process logger from the log section.
func newLogger(cfg config.LogConfig, w io.Writer) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
