package output

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize/english"
	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/dshills/danger/internal/ledger"
	"github.com/dshills/danger/internal/review"
)

// TextWriter outputs a human-readable text report.
type TextWriter struct {
	// NoColor disables terminal colors.
	NoColor bool
}

func (t *TextWriter) Write(w io.Writer, report *review.Report) error {
	ew := &errWriter{w: w}

	if rc := report.Source; rc != nil {
		ew.printf("Danger on %s for %s#%s (%s)\n", rc.CI, rc.RepoSlug, rc.PullRequestID, rc.Host)
	}
	if req := report.Request; req != nil && req.Title != "" {
		ew.printf("Request: %s\n", req.Title)
	}
	d := report.Diff
	ew.printf("Diff: %s...%s  %s, %s, %s  +%d -%d  %s\n",
		short(d.Base), short(d.Head),
		english.Plural(len(d.Added), "file", "files")+" added",
		english.Plural(len(d.Deleted), "file", "files")+" deleted",
		english.Plural(len(d.Modified), "file", "files")+" modified",
		d.Insertions, d.Deletions,
		english.Plural(d.Commits, "commit", ""))
	ew.println(strings.Repeat("─", 60))

	if report.Status.Empty() {
		ew.println("\nNothing to report. Looks good!")
	}
	for _, kind := range ledger.Kinds {
		vs := report.Status.Of(kind)
		if len(vs) == 0 {
			continue
		}
		ew.println("")
		if ew.err == nil {
			_, ew.err = t.paint(kind).Fprintf(w, "%s %s\n", kindIcon(kind), english.Plural(len(vs), kind.Title(), ""))
		}
		if ew.err == nil {
			ew.err = writeTable(w, vs)
		}
	}
	for _, md := range report.Status.Markdown {
		ew.printf("\n%s\n", strings.TrimSpace(md.Content))
	}

	ew.printf("\n%s\n", strings.Repeat("─", 60))
	if c := report.Comment; c != nil {
		state := "planned"
		if c.Applied {
			state = "applied"
		}
		ew.printf("Comment: %s (%s)", c.Action, state)
		if c.CommentID != "" {
			ew.printf(", id %s", c.CommentID)
		}
		if c.Resolved > 0 {
			ew.printf(", %s resolved", english.Plural(c.Resolved, "violation", ""))
		}
		ew.println("")
	}
	for _, e := range report.HostErrors {
		ew.printf("Host error: %s\n", e)
	}

	if ew.err == nil {
		if report.Failed {
			_, ew.err = t.paint(ledger.KindError).Fprintf(w, "Danger failed: %s\n",
				english.Plural(report.Counts.Errors, "error", ""))
		} else {
			_, ew.err = t.color(color.FgGreen).Fprintln(w, "Danger passed")
		}
	}
	ew.printf("Completed in %dms (git: %dms, host: %dms)\n",
		report.Timing.TotalMs, report.Timing.GitMs, report.Timing.HostMs)

	return ew.err
}

func writeTable(w io.Writer, vs []ledger.Violation) error {
	table := tablewriter.NewTable(w,
		tablewriter.WithHeader([]string{"Message", "Location"}),
		tablewriter.WithRenderer(renderer.NewBlueprint()),
		tablewriter.WithRendition(tw.Rendition{Symbols: tw.NewSymbols(tw.StyleMarkdown)}),
		tablewriter.WithRowAutoWrap(tw.WrapNormal),
	)
	for _, v := range vs {
		msg := v.Message
		if v.Sticky {
			msg += " (sticky)"
		}
		if err := table.Append([]string{msg, location(v)}); err != nil {
			return err
		}
	}
	return table.Render()
}

func location(v ledger.Violation) string {
	switch {
	case v.File == "":
		return ""
	case v.Line > 0:
		return v.File + ":" + strconv.Itoa(v.Line)
	default:
		return v.File
	}
}

func (t *TextWriter) paint(kind ledger.Kind) *color.Color {
	switch kind {
	case ledger.KindError:
		return t.color(color.FgRed, color.Bold)
	case ledger.KindWarning:
		return t.color(color.FgYellow)
	default:
		return t.color(color.FgCyan)
	}
}

func (t *TextWriter) color(attrs ...color.Attribute) *color.Color {
	c := color.New(attrs...)
	if t.NoColor {
		c.DisableColor()
	}
	return c
}

func kindIcon(kind ledger.Kind) string {
	switch kind {
	case ledger.KindError:
		return "[x]"
	case ledger.KindWarning:
		return "[!]"
	default:
		return "[i]"
	}
}

func short(ref string) string {
	if len(ref) == 40 && strings.Trim(ref, "0123456789abcdef") == "" {
		return ref[:8]
	}
	return ref
}

// errWriter wraps an io.Writer and captures the first error.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...interface{}) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}

func (ew *errWriter) println(s string) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintln(ew.w, s)
}
