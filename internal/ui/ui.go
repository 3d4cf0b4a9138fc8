// Package ui provides stderr-based terminal output for taskmaster.
package ui

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"

	"github.com/papapumpkin/taskmaster/internal/depgraph"
	"github.com/papapumpkin/taskmaster/internal/store"
)

var (
	colorPrimary = lipgloss.Color("#00BFFF")
	colorSuccess = lipgloss.Color("#00E676")
	colorWarn    = lipgloss.Color("#FFD700")
	colorDanger  = lipgloss.Color("#FF5252")
	colorMuted   = lipgloss.Color("#8C8C8C")
)

var (
	styleTitle   = lipgloss.NewStyle().Foreground(colorPrimary).Bold(true)
	styleSuccess = lipgloss.NewStyle().Foreground(colorSuccess).Bold(true)
	styleWarn    = lipgloss.NewStyle().Foreground(colorWarn).Bold(true)
	styleDanger  = lipgloss.NewStyle().Foreground(colorDanger).Bold(true)
	styleMuted   = lipgloss.NewStyle().Foreground(colorMuted)
	styleID      = lipgloss.NewStyle().Foreground(colorPrimary)
)

// Printer writes status lines for humans. It satisfies depgraph.Logger.
type Printer struct {
	out     io.Writer
	verbose bool
}

var _ depgraph.Logger = (*Printer)(nil)

// New returns a Printer writing to stderr.
func New() *Printer {
	return &Printer{out: os.Stderr}
}

// NewWriter returns a Printer writing to w.
func NewWriter(w io.Writer) *Printer {
	return &Printer{out: w}
}

// SetVerbose enables debug lines.
func (p *Printer) SetVerbose(v bool) { p.verbose = v }

func (p *Printer) Debugf(format string, args ...any) {
	if !p.verbose {
		return
	}
	fmt.Fprintln(p.out, styleMuted.Render("debug: "+fmt.Sprintf(format, args...)))
}

func (p *Printer) Infof(format string, args ...any) {
	fmt.Fprintln(p.out, styleMuted.Render(fmt.Sprintf(format, args...)))
}

func (p *Printer) Warnf(format string, args ...any) {
	fmt.Fprintln(p.out, styleWarn.Render("⚠ ")+fmt.Sprintf(format, args...))
}

// Error prints a failure line.
func (p *Printer) Error(msg string) {
	fmt.Fprintln(p.out, styleDanger.Render("error: ")+msg)
}

// Success prints a completion line.
func (p *Printer) Success(msg string) {
	fmt.Fprintln(p.out, styleSuccess.Render("✓ ")+msg)
}

// ValidationReport prints the outcome of a validation pass.
func (p *Printer) ValidationReport(r depgraph.Report) {
	if r.Valid {
		p.Success("all dependencies are valid")
		return
	}
	fmt.Fprintln(p.out, styleDanger.Render(fmt.Sprintf("✗ %d dependency issue(s):", len(r.Issues))))
	for _, is := range r.Issues {
		fmt.Fprintf(p.out, "  %s %-9s %s %s\n",
			styleDanger.Render("•"), is.Kind, styleID.Render(string(is.ID)), is.Message)
	}
}

// FixStats prints what a repair pass changed.
func (p *Printer) FixStats(s depgraph.Stats) {
	if !s.Changed() {
		p.Success("no dependency issues found")
		return
	}
	fmt.Fprintln(p.out, styleTitle.Render("dependency repair"))
	rows := []struct {
		label string
		n     int
	}{
		{"duplicates removed", s.DuplicateDependenciesRemoved},
		{"missing references removed", s.NonExistentDependenciesRemoved},
		{"self-dependencies removed", s.SelfDependenciesRemoved},
		{"circular dependencies broken", s.CircularDependenciesFixed},
		{"independent subtasks restored", s.IndependentSubtasksRestored},
	}
	for _, r := range rows {
		if r.n == 0 {
			continue
		}
		fmt.Fprintf(p.out, "  %-30s %d\n", r.label, r.n)
	}
	fmt.Fprintf(p.out, "  %s\n", styleMuted.Render(fmt.Sprintf("%d task(s), %d subtask(s) updated", s.TasksFixed, s.SubtasksFixed)))
}

// NextItem is one row of the next-task listing.
type NextItem struct {
	ID       string
	Title    string
	Priority string
	Status   string
}

// NextTasks prints the ready set.
func (p *Printer) NextTasks(items []NextItem) {
	if len(items) == 0 {
		p.Infof("no task is ready: everything is done or blocked")
		return
	}
	fmt.Fprintln(p.out, styleTitle.Render("ready to work on"))
	for _, it := range items {
		prio := it.Priority
		if prio == "" {
			prio = "medium"
		}
		fmt.Fprintf(p.out, "  %s %s %s\n",
			styleID.Render(fmt.Sprintf("%-6s", it.ID)), it.Title, styleMuted.Render("("+prio+")"))
	}
}

// Revisions prints the save history of a SQLite store.
func (p *Printer) Revisions(tag string, revs []store.Revision) {
	if len(revs) == 0 {
		p.Infof("no revisions recorded for tag %q", tag)
		return
	}
	fmt.Fprintln(p.out, styleTitle.Render("history: "+tag))
	for _, r := range revs {
		fmt.Fprintf(p.out, "  #%-4d %s  %d task(s), %d edge(s)\n",
			r.Revision, styleMuted.Render(r.SavedAt.Format("2006-01-02 15:04:05")), r.TaskCount, r.EdgeCount)
	}
}
