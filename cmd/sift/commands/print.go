package commands

import (
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/charmbracelet/lipgloss"
	"go.trai.ch/sift/internal/app"
	"go.trai.ch/sift/internal/core/domain"
	"go.trai.ch/sift/internal/engine/orchestrator"
	"go.trai.ch/sift/internal/ui/style"
)

var timeNow = time.Now

type printer struct {
	w     io.Writer
	ok    lipgloss.Style
	bad   lipgloss.Style
	warn  lipgloss.Style
	muted lipgloss.Style
	bold  lipgloss.Style
}

func newPrinter(w io.Writer) *printer {
	r := lipgloss.NewRenderer(w)
	return &printer{
		w:     w,
		ok:    r.NewStyle().Foreground(style.Green),
		bad:   r.NewStyle().Foreground(style.Red),
		warn:  r.NewStyle().Foreground(style.Yellow),
		muted: r.NewStyle().Foreground(style.Muted),
		bold:  r.NewStyle().Bold(true),
	}
}

func (p *printer) line(format string, args ...any) {
	_, _ = fmt.Fprintf(p.w, format+"\n", args...)
}

func (p *printer) toolIcon(status domain.ToolStatus, cached bool) string {
	switch {
	case status == domain.ToolCrashed:
		return p.bad.Render(style.Cross)
	case status == domain.ToolFailed:
		return p.warn.Render(style.Warning)
	case status == domain.ToolSkipped:
		return p.muted.Render(style.Skipped)
	case cached:
		return p.ok.Render(style.Cached)
	default:
		return p.ok.Render(style.Check)
	}
}

func printResult(w io.Writer, result *orchestrator.Result) {
	p := newPrinter(w)
	report := result.Report

	p.line("")
	for _, info := range result.Info.Tools {
		p.line("%s %s %s", p.toolIcon(info.Status, info.Cached), info.Tool, p.muted.Render(string(info.Status)))
	}
	for _, f := range report.Failures {
		scope := f.Tool
		if f.Domain != "" {
			scope += "/" + f.Domain
		}
		p.line("  %s %s [%s] %s", p.bad.Render(style.Bullet), scope, f.Kind, f.Message)
	}
	if report.Coverage != nil {
		p.line("Coverage: %.2f%% (%d/%d lines)", report.Coverage.Percent, report.Coverage.CoveredLines, report.Coverage.TotalLines)
	}

	status := string(report.Status)
	switch report.Status {
	case domain.AuditClean:
		status = p.ok.Render(status)
	case domain.AuditCompletedWithFailures:
		status = p.warn.Render(status)
	default:
		status = p.bad.Render(status)
	}
	p.line("%s tier %d: %s", p.bold.Render("Audit"), report.Tier, status)

	switch {
	case result.Standalone:
		p.line("%s", p.muted.Render("Another audit held the lock; results were not written."))
	case !result.Finalized:
		p.line("%s", p.muted.Render("Results were not written."))
	}
}

func printCoverage(w io.Writer, summary *domain.CoverageSummary) {
	p := newPrinter(w)
	p.line("")
	for _, d := range summary.Domains {
		var icon string
		switch d.State {
		case domain.CoverageFresh:
			icon = p.ok.Render(style.Check)
		case domain.CoverageCached:
			icon = p.ok.Render(style.Cached)
		case domain.CoverageSkipped:
			icon = p.muted.Render(style.Skipped)
		default:
			icon = p.bad.Render(style.Cross)
		}
		p.line("%s %-16s %6.2f%% %s", icon, d.Domain, d.Percent, p.muted.Render(string(d.State)))
	}
	p.line("%s %.2f%% (%d/%d lines, %d files)",
		p.bold.Render("Coverage"), summary.Percent, summary.CoveredLines, summary.TotalLines, summary.Files)
}

func printStatus(w io.Writer, report *app.StatusReport, now time.Time) {
	p := newPrinter(w)
	p.line("%s %s", p.bold.Render("Root"), report.Root)

	p.line("%s", p.bold.Render("Locks"))
	for _, l := range report.Locks {
		switch {
		case l.Held:
			p.line("  %s %s held by pid %d (run %s, %s)", p.warn.Render(style.Bullet), l.Kind, l.Info.PID, l.Info.RunID,
				l.Info.Age(now).Round(time.Second))
		case l.Stale:
			p.line("  %s %s stale (pid %d)", p.bad.Render(style.Bullet), l.Kind, l.Info.PID)
		default:
			p.line("  %s %s free", p.muted.Render(style.Bullet), l.Kind)
		}
	}

	p.line("%s", p.bold.Render("Cache"))
	if len(report.Cache) == 0 {
		p.line("  %s", p.muted.Render("empty"))
	}
	for _, c := range report.Cache {
		domains := make([]string, 0, len(c.Entries))
		for _, e := range c.Entries {
			name := fmt.Sprintf("%s@%s %s", e.Key.Domain, e.Fingerprint.Digest(), now.Sub(e.CreatedAt).Round(time.Second))
			if e.Status != domain.RunSuccess {
				name += " " + string(e.Status)
			}
			domains = append(domains, name)
		}
		slices.Sort(domains)
		p.line("  %s %s: %d %v", p.muted.Render(style.Bullet), c.Tool, len(c.Entries), domains)
	}

	if report.LastRun == nil {
		p.line("%s %s", p.bold.Render("Last run"), p.muted.Render("none"))
		return
	}
	run := report.LastRun
	p.line("%s %s tier %d %s, %s ago", p.bold.Render("Last run"), run.RunID, run.Tier, run.Status,
		now.Sub(run.FinishedAt).Round(time.Second))
	if report.Results != nil {
		p.line("  %d tool(s), %d failure(s)", len(report.Results.Tools), len(report.Results.Failures))
	}
}
