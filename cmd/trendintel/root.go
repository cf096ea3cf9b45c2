package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/pathwise/trendintel/internal/config"
)

type rootOptions struct {
	configPath string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:          "trendintel",
		Short:        "Trend intelligence pipeline",
		Long:         "trendintel resolves niches, fetches trend data from configured sources, scores keywords and publishes market signals.",
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to config file (default: "+config.DefaultPath()+")")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override log.level (debug, info, warn, error)")

	cmd.AddCommand(
		newServeCmd(opts),
		newRunCmd(opts),
		newHealthCmd(opts),
		newSeedCmd(opts),
		newPruneCmd(opts),
		newVersionCmd(),
	)
	return cmd
}

// load reads the config file, or the defaults when no file exists at the
// default location, and installs the configured logger.
func (o *rootOptions) load() (*config.Config, *slog.Logger, error) {
	path := o.configPath
	explicit := path != ""
	if !explicit {
		path = config.DefaultPath()
	}

	var cfg *config.Config
	if _, err := os.Stat(path); err != nil && !explicit {
		cfg = config.Default()
	} else {
		loaded, err := config.LoadAndValidate(path)
		if err != nil {
			return nil, nil, fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}

	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	logger := newLogger(cfg.Log)
	slog.SetDefault(logger)
	return cfg, logger, nil
}

func newLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
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
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
