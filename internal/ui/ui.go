// Package ui prints operator status lines to stderr. Structured logs go
// through zerolog; this package is for the short human summaries a command
// ends with.
package ui

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/papapumpkin/constellation/internal/history"
	"github.com/papapumpkin/constellation/internal/report"
	"github.com/papapumpkin/constellation/internal/validate"
)

// Semantic color palette.
var (
	colorPrimary = lipgloss.Color("#00BFFF") // headings
	colorSuccess = lipgloss.Color("#00E676") // passed
	colorWarn    = lipgloss.Color("#FFD700") // attention
	colorDanger  = lipgloss.Color("#FF5252") // errors
	colorMuted   = lipgloss.Color("#8C8C8C") // detail
)

// Status icons.
const (
	iconOK   = "✓"
	iconFail = "✗"
	iconWarn = "⚠"
	iconStar = "✦"
	iconItem = "•"
)

// Printer writes styled status lines.
type Printer struct {
	w   io.Writer
	num *message.Printer

	heading lipgloss.Style
	ok      lipgloss.Style
	warn    lipgloss.Style
	danger  lipgloss.Style
	muted   lipgloss.Style
}

// New returns a Printer writing to stderr.
func New() *Printer {
	return NewWriter(os.Stderr)
}

// NewWriter returns a Printer writing to w. Color is enabled only when w is
// a terminal.
func NewWriter(w io.Writer) *Printer {
	r := lipgloss.NewRenderer(w)
	return &Printer{
		w:       w,
		num:     message.NewPrinter(language.English),
		heading: r.NewStyle().Foreground(colorPrimary).Bold(true),
		ok:      r.NewStyle().Foreground(colorSuccess).Bold(true),
		warn:    r.NewStyle().Foreground(colorWarn).Bold(true),
		danger:  r.NewStyle().Foreground(colorDanger).Bold(true),
		muted:   r.NewStyle().Foreground(colorMuted),
	}
}

// Info prints a muted detail line.
func (p *Printer) Info(msg string) {
	fmt.Fprintln(p.w, p.muted.Render(msg))
}

// Error prints an error line.
func (p *Printer) Error(msg string) {
	fmt.Fprintln(p.w, p.danger.Render("error:")+" "+msg)
}

// Warn prints a warning line.
func (p *Printer) Warn(msg string) {
	fmt.Fprintln(p.w, p.warn.Render(iconWarn)+" "+msg)
}

// RunStart announces a run.
func (p *Printer) RunStart(runID string, modules int, dryRun bool) {
	mode := ""
	if dryRun {
		mode = p.muted.Render(" (dry run)")
	}
	fmt.Fprintf(p.w, "%s %s modules%s %s\n",
		p.heading.Render(iconStar+" constellation"),
		p.num.Sprintf("%d", modules),
		mode,
		p.muted.Render(runID))
}

// RunSummary prints the totals of a finished run.
func (p *Printer) RunSummary(d *report.Dashboard) {
	t := d.Totals
	status := p.ok.Render(iconOK)
	if t.Failures > 0 || t.Violations > 0 {
		status = p.warn.Render(iconWarn)
	}
	fmt.Fprintf(p.w, "%s %s manifests from %s modules (%s success), %s failed, %s context files, %s violations\n",
		status,
		p.num.Sprintf("%d", t.Manifests),
		p.num.Sprintf("%d", t.Modules),
		p.num.Sprintf("%.1f%%", t.SuccessRate*100),
		p.num.Sprintf("%d", t.Failures),
		p.num.Sprintf("%d", t.ContextFiles),
		p.num.Sprintf("%d", t.Violations))
	for _, s := range d.Stars {
		if s.Count == 0 {
			continue
		}
		fmt.Fprintf(p.w, "  %-11s %6s  %5.1f%%  %s\n",
			s.Star, p.num.Sprintf("%d", s.Count), s.Percent,
			p.muted.Render(p.num.Sprintf("avg %.2f", s.AvgConfidence)))
	}
}

// FailureList prints per-module generation failures.
func (p *Printer) FailureList(rows []report.FailureRow) {
	for _, f := range rows {
		fmt.Fprintf(p.w, "  %s %s:%s %s\n", p.danger.Render(iconItem), f.Lane, f.Path, p.muted.Render(f.Error))
	}
}

// ValidationResult prints validation violations or a pass line.
func (p *Printer) ValidationResult(res *validate.Result) {
	if res.OK() {
		fmt.Fprintf(p.w, "%s %s manifests, no violations\n",
			p.ok.Render(iconOK+" valid"), p.num.Sprintf("%d", res.Checked))
		return
	}
	fmt.Fprintf(p.w, "%s %s violation(s) in %s manifests:\n",
		p.danger.Render(iconFail+" invalid"),
		p.num.Sprintf("%d", len(res.Violations)),
		p.num.Sprintf("%d", res.Checked))
	for i := range res.Violations {
		v := &res.Violations[i]
		fmt.Fprintf(p.w, "  %s %s %s\n", p.danger.Render(iconItem), p.muted.Render("["+string(v.Category)+"]"), v.Error())
	}
}

// RulesResult prints the outcome of checking a rules file.
func (p *Printer) RulesResult(path string, rules int, fingerprint string, err error) {
	if err != nil {
		fmt.Fprintf(p.w, "%s %s\n%v\n", p.danger.Render(iconFail+" rules"), path, err)
		return
	}
	fmt.Fprintf(p.w, "%s %s %s rules %s\n", p.ok.Render(iconOK+" rules"), path,
		p.num.Sprintf("%d", rules), p.muted.Render(fingerprint))
}

// Runs lists recorded runs, newest first.
func (p *Printer) Runs(runs []history.Run) {
	if len(runs) == 0 {
		p.Info("no recorded runs")
		return
	}
	for _, r := range runs {
		fmt.Fprintf(p.w, "%s  %s  %s manifests  %s  %s violations  %s\n",
			r.ID,
			r.FinishedAt.Local().Format("2006-01-02 15:04:05"),
			p.num.Sprintf("%d", r.Manifests),
			p.num.Sprintf("%.1f%%", r.SuccessRate*100),
			p.num.Sprintf("%d", r.Violations),
			p.muted.Render(r.RulesFingerprint))
	}
}

// Drift prints the classification changes between two runs.
func (p *Printer) Drift(rep *history.DriftReport) {
	if len(rep.Changes) == 0 {
		fmt.Fprintf(p.w, "%s no drift between %s and %s (%s unchanged)\n",
			p.ok.Render(iconOK), rep.From, rep.To, p.num.Sprintf("%d", rep.Unchanged))
		return
	}
	fmt.Fprintf(p.w, "%s %s change(s) between %s and %s\n",
		p.warn.Render(iconWarn), p.num.Sprintf("%d", len(rep.Changes)), rep.From, rep.To)
	for _, c := range rep.Changes {
		switch {
		case c.Added():
			fmt.Fprintf(p.w, "  %s %s:%s → %s\n", p.ok.Render("+"), c.Lane, c.Path, c.To)
		case c.Removed():
			fmt.Fprintf(p.w, "  %s %s:%s (was %s)\n", p.danger.Render("-"), c.Lane, c.Path, c.From)
		default:
			fmt.Fprintf(p.w, "  %s %s:%s %s → %s\n", p.warn.Render("~"), c.Lane, c.Path, c.From, c.To)
		}
	}
}
