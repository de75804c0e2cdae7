package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/panbanda/resprune/internal/output"
	"github.com/panbanda/resprune/pkg/prune"
	"github.com/panbanda/resprune/pkg/watch"
	"github.com/urfave/cli/v2"
)

func watchCmd() *cli.Command {
	return &cli.Command{
		Name:      "watch",
		Usage:     "Re-scan for unused resources whenever markup or code changes",
		ArgsUsage: "<project-root> [extra-root...]",
		Flags: append(append(outputFlags(), scanFlags()...),
			&cli.DurationFlag{
				Name:  "debounce",
				Value: watch.DefaultDebounce,
				Usage: "Quiet period before a change triggers a scan",
			},
		),
		Action: runWatchCmd,
	}
}

func runWatchCmd(c *cli.Context) error {
	root := getRoot(c)
	e, err := loadEnv(c, configDir(root))
	if err != nil {
		return err
	}
	defer e.Close()

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("invalid path: %w", err)
	}

	scan := func(ctx context.Context) error {
		result, err := prune.New(absRoot, e.cfg,
			prune.WithDryRun(true),
			prune.WithExtraRoots(getExtraRoots(c)...),
			prune.WithKeep(c.StringSlice("keep")...),
			prune.WithOnly(c.StringSlice("only")...),
			prune.WithLogger(e.logger),
		).Run(ctx)
		if err != nil {
			return err
		}
		formatter, err := newFormatter(c, e.cfg)
		if err != nil {
			return err
		}
		defer formatter.Close()
		return renderResult(formatter, result, e.cfg.Output.Verbose)
	}

	if err := scan(c.Context); err != nil {
		return err
	}

	watcher, err := watch.NewWatcher(filepath.Dir(absRoot), e.cfg, c.Duration("debounce"))
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Stop()
	watcher.SetLogger(e.logger)

	status := output.NewWriterFormatter(output.ParseFormat(e.cfg.Output.Format), os.Stdout, e.cfg.Output.Color)
	watcher.SetCallback(func(ctx context.Context, paths []string) {
		status.Info("\n%d files changed at %s", len(paths), time.Now().Format(time.TimeOnly))
		if err := scan(ctx); err != nil && !errors.Is(err, context.Canceled) {
			status.Error("Scan failed: %v", err)
		}
	})

	status.Info("Watching for changes in %s...", filepath.Dir(absRoot))
	status.Info("Press Ctrl+C to stop")

	if err := watcher.Start(c.Context); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
