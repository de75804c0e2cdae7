package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/panbanda/resprune/internal/logging"
	"github.com/panbanda/resprune/internal/output"
	"github.com/panbanda/resprune/internal/progress"
	"github.com/panbanda/resprune/pkg/config"
	"github.com/panbanda/resprune/pkg/prune"
	"github.com/urfave/cli/v2"
)

// outputFlags are shared by every command that prints a report.
func outputFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "format",
			Aliases: []string{"f"},
			Usage:   "Output format: text, json, markdown, toon",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Write output to file",
		},
	}
}

// scanFlags configure index and scan rounds.
func scanFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:  "workers",
			Usage: "Files scanned in parallel (default from config)",
		},
		&cli.StringSliceFlag{
			Name:  "keep",
			Usage: "Glob of resources never removed, optionally category-prefixed (string:app_*)",
		},
		&cli.StringSliceFlag{
			Name:  "only",
			Usage: "Only remove resources declared under these paths (doublestar globs relative to the base)",
		},
	}
}

// getRoot returns the project root from the first argument, defaulting to ".".
func getRoot(c *cli.Context) string {
	if c.Args().Len() > 0 {
		return c.Args().First()
	}
	return "."
}

// getExtraRoots returns the arguments after the project root.
func getExtraRoots(c *cli.Context) []string {
	if c.Args().Len() < 2 {
		return nil
	}
	return c.Args().Slice()[1:]
}

// env is what every command needs once flags and config are resolved.
type env struct {
	cfg    *config.Config
	logger *slog.Logger
	closer io.Closer
}

func (e *env) Close() error {
	return e.closer.Close()
}

// loadEnv loads the config named by --config, or the first one found in
// dirs, and applies command-line overrides.
func loadEnv(c *cli.Context, dirs ...string) (*env, error) {
	var cfg *config.Config
	if path := c.String("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, fmt.Errorf("load config %s: %w", path, err)
		}
		cfg = loaded
	} else {
		loaded, err := config.LoadOrDefault(append(dirs, ".")...)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	applyOverrides(c, cfg)

	logger, closer := logging.New(logging.Options{
		Level: cfg.Log.Level,
		File:  cfg.Log.File,
		W:     os.Stderr,
	})
	return &env{cfg: cfg, logger: logger, closer: closer}, nil
}

// applyOverrides copies set flags over config values.
func applyOverrides(c *cli.Context, cfg *config.Config) {
	if c.IsSet("format") {
		cfg.Output.Format = c.String("format")
	}
	if c.Bool("no-color") {
		cfg.Output.Color = false
	}
	if c.Bool("verbose") {
		cfg.Output.Verbose = true
		cfg.Log.Level = "debug"
	}
	if c.IsSet("log-level") {
		cfg.Log.Level = c.String("log-level")
	}
	if c.IsSet("log-file") {
		cfg.Log.File = c.String("log-file")
	}
	if c.IsSet("workers") {
		cfg.Scan.Workers = c.Int("workers")
	}
	if c.IsSet("max-rounds") {
		cfg.Scan.MaxRounds = c.Int("max-rounds")
	}
	if c.IsSet("backup-dir") {
		cfg.Backup.Dir = c.String("backup-dir")
	}
}

// newFormatter opens the report destination.
func newFormatter(c *cli.Context, cfg *config.Config) (*output.Formatter, error) {
	return output.NewFormatter(output.ParseFormat(cfg.Output.Format), c.String("output"), cfg.Output.Color)
}

// progressFactory draws progress bars for text output on a terminal run;
// verbose runs log instead.
func progressFactory(cfg *config.Config) prune.ProgressFactory {
	if cfg.Output.Verbose || output.ParseFormat(cfg.Output.Format) != output.FormatText {
		return nil
	}
	return func(label string, total int) prune.Progress {
		return progress.NewTracker(label, total)
	}
}

// configDir returns the directory searched for a config file next to root.
func configDir(root string) string {
	if abs, err := filepath.Abs(root); err == nil {
		return abs
	}
	return root
}

// relPath returns path relative to base when it lies below it.
func relPath(base, path string) string {
	rel, err := filepath.Rel(base, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return path
	}
	return rel
}
