package main

import (
	"fmt"
	"strings"

	"github.com/panbanda/resprune/internal/output"
	"github.com/panbanda/resprune/pkg/prune"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// printer groups digits in summary counts.
var printer = message.NewPrinter(language.English)

// renderResult prints a run. JSON and TOON get the raw result.
func renderResult(f *output.Formatter, r *prune.Result, verbose bool) error {
	if f.Format().Structured() {
		return f.Output(r)
	}

	title := "Resource Pruning"
	if r.DryRun {
		title = "Unused Resources"
	}
	report := &output.Report{
		Title:    title,
		Sections: []output.Renderable{summarySection(r)},
		Data:     r,
	}
	for _, round := range r.Rounds {
		report.Sections = append(report.Sections, roundTable(round, r.DryRun, f.Colored()))
	}
	if len(r.Resources) > 0 {
		report.Sections = append(report.Sections, resourcesTable(r))
	}
	if r.DryRun && len(r.Unused) > 0 {
		report.Sections = append(report.Sections, unusedTable(r))
	}
	if failures := r.Failures(); len(failures) > 0 {
		rows := make([][]string, 0, len(failures))
		for _, fl := range failures {
			rows = append(rows, []string{fl.Category, fl.Name, fl.Path, fl.Reason})
		}
		report.Sections = append(report.Sections, output.NewTable("Failures",
			[]string{"Category", "Name", "File", "Reason"}, rows, nil, nil))
	}
	if verbose && len(r.FilesRemoved) > 0 {
		rows := make([][]string, 0, len(r.FilesRemoved))
		for _, path := range r.FilesRemoved {
			rows = append(rows, []string{relPath(r.Base, path)})
		}
		report.Sections = append(report.Sections, output.NewTable("Removed Files",
			[]string{"File"}, rows, nil, nil))
	}
	return f.Output(report)
}

func summarySection(r *prune.Result) *output.Section {
	var lines []string
	lines = append(lines, fmt.Sprintf("Project: %s", r.Root))
	if r.DryRun {
		lines = append(lines, printer.Sprintf("Unused resources: %d", len(r.Unused)))
	} else {
		lines = append(lines,
			printer.Sprintf("Removed: %d resources in %d rounds (%d files deleted)",
				r.TotalRemoved, len(r.Rounds), len(r.FilesRemoved)))
		if !r.Converged {
			lines = append(lines, "Stopped at the round limit; unused resources may remain")
		}
		if r.BackupDir != "" && len(r.FilesRemoved) > 0 {
			lines = append(lines, fmt.Sprintf("Backup: %s", r.BackupDir))
		}
	}
	return &output.Section{Title: "Summary", Content: strings.Join(lines, "\n")}
}

func roundTable(round prune.Round, dryRun, colored bool) *output.Table {
	headers := []string{"Category", "Found", "Unused", "Removed"}
	if dryRun {
		headers = headers[:3]
	}
	var rows [][]string
	var found, unused, removed int
	for _, cc := range round.Categories {
		found += cc.Found
		unused += cc.Unused
		removed += cc.Removed
		row := []string{cc.Category, fmt.Sprint(cc.Found), count(colored, "unused", cc.Unused)}
		if !dryRun {
			row = append(row, count(colored, "removed", cc.Removed))
		}
		rows = append(rows, row)
	}
	footer := []string{"Total", printer.Sprint(found), printer.Sprint(unused)}
	if !dryRun {
		footer = append(footer, printer.Sprint(removed))
	}
	return output.NewTable(fmt.Sprintf("Round %d", round.Number), headers, rows, footer, round)
}

func unusedTable(r *prune.Result) *output.Table {
	rows := make([][]string, 0, len(r.Unused))
	for _, u := range r.Unused {
		var files []string
		for _, loc := range u.Locations {
			where := relPath(r.Base, loc.Path)
			if loc.StartLine > 0 {
				where = fmt.Sprintf("%s:%d", where, loc.StartLine)
			}
			files = append(files, where)
		}
		rows = append(rows, []string{u.Category, u.Name, strings.Join(files, ", ")})
	}
	return output.NewTable("Unused", []string{"Category", "Name", "Location"}, rows, nil, r.Unused)
}

// resourcesTable lists every indexed resource with its reference count.
func resourcesTable(r *prune.Result) *output.Table {
	rows := make([][]string, 0, len(r.Resources))
	for _, res := range r.Resources {
		where := ""
		if len(res.Locations) > 0 {
			where = relPath(r.Base, res.Locations[0].Path)
			if more := len(res.Locations) - 1; more > 0 {
				where = fmt.Sprintf("%s (+%d)", where, more)
			}
		}
		rows = append(rows, []string{res.Category, res.Name, fmt.Sprint(res.Uses), where})
	}
	footer := []string{"Total", printer.Sprint(len(r.Resources)), "", ""}
	return output.NewTable("All Resources", []string{"Category", "Name", "Uses", "Location"}, rows, footer, r.Resources)
}

func count(colored bool, kind string, n int) string {
	if colored {
		return output.CountColor(kind, n)
	}
	return fmt.Sprint(n)
}
