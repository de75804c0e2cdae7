package main

import (
	"fmt"

	"github.com/panbanda/resprune/pkg/prune"
	"github.com/urfave/cli/v2"
)

func pruneCmd() *cli.Command {
	flags := append(outputFlags(), scanFlags()...)
	flags = append(flags,
		&cli.BoolFlag{
			Name:    "dry-run",
			Aliases: []string{"n"},
			Usage:   "Report one round of unused resources without deleting",
		},
		&cli.IntFlag{
			Name:  "max-rounds",
			Usage: "Stop after this many rounds (0 = until nothing is removed)",
		},
		&cli.StringFlag{
			Name:  "backup-dir",
			Usage: "Directory that receives copies of deleted files",
		},
	)
	return &cli.Command{
		Name:      "prune",
		Usage:     "Remove unused resources until none are left",
		ArgsUsage: "<project-root> [extra-root...]",
		Flags:     flags,
		Action:    runPruneCmd,
	}
}

func scanCmd() *cli.Command {
	return &cli.Command{
		Name:      "scan",
		Aliases:   []string{"ls"},
		Usage:     "List unused resources without deleting anything",
		ArgsUsage: "<project-root> [extra-root...]",
		Flags: append(append(outputFlags(), scanFlags()...),
			&cli.BoolFlag{
				Name:    "all",
				Aliases: []string{"a"},
				Usage:   "List every indexed resource with its reference count",
			},
		),
		Action: func(c *cli.Context) error {
			return runPipeline(c, true)
		},
	}
}

func runPruneCmd(c *cli.Context) error {
	return runPipeline(c, c.Bool("dry-run"))
}

func runPipeline(c *cli.Context, dryRun bool) error {
	root := getRoot(c)
	e, err := loadEnv(c, configDir(root))
	if err != nil {
		return err
	}
	defer e.Close()

	p := prune.New(root, e.cfg,
		prune.WithDryRun(dryRun),
		prune.WithExtraRoots(getExtraRoots(c)...),
		prune.WithKeep(c.StringSlice("keep")...),
		prune.WithOnly(c.StringSlice("only")...),
		prune.WithAll(dryRun && c.Bool("all")),
		prune.WithLogger(e.logger),
		prune.WithProgress(progressFactory(e.cfg)),
	)
	result, runErr := p.Run(c.Context)
	if result == nil {
		return runErr
	}

	formatter, err := newFormatter(c, e.cfg)
	if err != nil {
		return err
	}
	defer formatter.Close()

	if err := renderResult(formatter, result, e.cfg.Output.Verbose); err != nil {
		return err
	}
	if runErr != nil {
		return fmt.Errorf("stopped after round %d: %w", len(result.Rounds), runErr)
	}
	if failed := len(result.Failures()); failed > 0 {
		formatter.Warning("%d resources could not be removed; see the failures above", failed)
	}
	return nil
}
