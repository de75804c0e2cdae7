package main

import (
	"errors"
	"fmt"

	"github.com/panbanda/resprune/internal/backup"
	"github.com/panbanda/resprune/internal/output"
	"github.com/panbanda/resprune/internal/progress"
	"github.com/urfave/cli/v2"
)

func restoreCmd() *cli.Command {
	return &cli.Command{
		Name:  "restore",
		Usage: "Restore the files deleted by the last prune",
		Flags: append(outputFlags(),
			&cli.StringFlag{
				Name:  "backup-dir",
				Usage: "Backup directory of the session to restore (default from config)",
			},
			&cli.BoolFlag{
				Name:  "overwrite",
				Usage: "Replace files that exist again at their original location",
			},
		),
		Action: runRestoreCmd,
	}
}

func runRestoreCmd(c *cli.Context) error {
	e, err := loadEnv(c)
	if err != nil {
		return err
	}
	defer e.Close()

	spinner := progress.Disabled()
	if output.ParseFormat(e.cfg.Output.Format) == output.FormatText && !e.cfg.Output.Verbose {
		spinner = progress.NewSpinner("Restoring...")
	}
	result, restoreErr := backup.Restore(e.cfg.Backup.Dir, c.Bool("overwrite"))
	switch {
	case result == nil:
		spinner.FinishError(restoreErr)
		return fmt.Errorf("restore from %s: %w", e.cfg.Backup.Dir, restoreErr)
	case len(result.Restored) == 0:
		spinner.FinishSkipped("nothing to restore")
	default:
		spinner.FinishSuccess()
	}

	e.logger.Info("restore finished", "dir", e.cfg.Backup.Dir,
		"restored", len(result.Restored), "skipped", len(result.Skipped))

	formatter, err := newFormatter(c, e.cfg)
	if err != nil {
		return err
	}
	defer formatter.Close()

	rows := make([][]string, 0, len(result.Restored)+len(result.Skipped))
	for _, entry := range result.Restored {
		rows = append(rows, []string{entry.Category, entry.Name, entry.Original, "restored"})
	}
	for _, entry := range result.Skipped {
		rows = append(rows, []string{entry.Category, entry.Name, entry.Original, "exists, skipped"})
	}
	table := output.NewTable("Restored Files", []string{"Category", "Name", "File", "Status"}, rows, nil, result)
	if err := formatter.Output(table); err != nil {
		return err
	}
	if len(result.Restored) > 0 {
		formatter.Success("Restored %d files from %s", len(result.Restored), e.cfg.Backup.Dir)
	}
	if restoreErr != nil {
		return errors.Join(errors.New("some files were not restored"), restoreErr)
	}
	return nil
}
