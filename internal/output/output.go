// Package output provides formatted output utilities for the CLI.
package output

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Writer handles CLI output formatting.
type Writer struct {
	out   io.Writer
	err   io.Writer
	color bool
	quiet bool
	st    styles
}

// styles holds the semantic color roles. Without color every style is a
// no-op so that output stays plain.
type styles struct {
	title   lipgloss.Style
	section lipgloss.Style
	dim     lipgloss.Style
	ok      lipgloss.Style
	bad     lipgloss.Style
	warn    lipgloss.Style
	accent  lipgloss.Style
}

func newStyles(out io.Writer, color bool) styles {
	r := lipgloss.NewRenderer(out)
	if color {
		// Color was already decided by the caller; do not let the renderer
		// second-guess it from the writer.
		r.SetColorProfile(termenv.ANSI)
	} else {
		r.SetColorProfile(termenv.Ascii)
	}
	return styles{
		title:   r.NewStyle().Bold(true).Foreground(lipgloss.Color("6")),
		section: r.NewStyle().Bold(true).Foreground(lipgloss.Color("4")),
		dim:     r.NewStyle().Faint(true),
		ok:      r.NewStyle().Foreground(lipgloss.Color("2")),
		bad:     r.NewStyle().Foreground(lipgloss.Color("1")),
		warn:    r.NewStyle().Foreground(lipgloss.Color("3")),
		accent:  r.NewStyle().Foreground(lipgloss.Color("6")),
	}
}

// New creates a new Writer with default settings.
func New() *Writer {
	return NewWithWriters(os.Stdout, os.Stderr, IsTerminal())
}

// NewWithWriters creates a Writer with custom io.Writers (for testing).
func NewWithWriters(out, err io.Writer, color bool) *Writer {
	return &Writer{
		out:   out,
		err:   err,
		color: color,
		st:    newStyles(out, color),
	}
}

// SetQuiet enables or disables quiet mode.
func (w *Writer) SetQuiet(quiet bool) {
	w.quiet = quiet
}

// Quiet reports whether quiet mode is on.
func (w *Writer) Quiet() bool {
	return w.quiet
}

// Print writes to stdout.
func (w *Writer) Print(format string, args ...interface{}) {
	fmt.Fprintf(w.out, format, args...)
}

// Println writes a line to stdout.
func (w *Writer) Println(format string, args ...interface{}) {
	fmt.Fprintf(w.out, format+"\n", args...)
}

// Error writes to stderr.
func (w *Writer) Error(format string, args ...interface{}) {
	fmt.Fprintf(w.err, format, args...)
}

// Errorln writes a line to stderr.
func (w *Writer) Errorln(format string, args ...interface{}) {
	fmt.Fprintf(w.err, format+"\n", args...)
}

// Info prints an info message (skipped in quiet mode).
func (w *Writer) Info(format string, args ...interface{}) {
	if w.quiet {
		return
	}
	w.Println(format, args...)
}

// Success prints a success message.
func (w *Writer) Success(format string, args ...interface{}) {
	w.Println("%s", w.st.ok.Render(fmt.Sprintf(format, args...)))
}

// Warning prints a warning message to stderr.
func (w *Writer) Warning(format string, args ...interface{}) {
	w.Errorln("%s %s", w.st.warn.Render("warning:"), fmt.Sprintf(format, args...))
}

// ErrorPrefix prints an error message with the testshard prefix to stderr.
func (w *Writer) ErrorPrefix(format string, args ...interface{}) {
	w.Errorln("%s %s", w.st.bad.Render("testshard:"), fmt.Sprintf(format, args...))
}

// ShardStart prints the dispatch of a shard attempt.
func (w *Writer) ShardStart(index, attempt, tests int) {
	if w.quiet {
		return
	}
	label := fmt.Sprintf("[shard %03d]", index)
	if attempt > 1 {
		w.Println("%s %s", w.st.accent.Render(label), fmt.Sprintf("retrying, attempt %d (%d tests)", attempt, tests))
		return
	}
	w.Println("%s %s", w.st.accent.Render(label), fmt.Sprintf("started (%d tests)", tests))
}

// ShardSuccess prints a succeeded shard.
func (w *Writer) ShardSuccess(index int, duration string) {
	if w.quiet {
		return
	}
	label := fmt.Sprintf("[shard %03d]", index)
	if w.color {
		w.Println("%s passed %s %s", w.st.ok.Render(label), w.st.ok.Render("✓"), w.st.dim.Render(duration))
	} else {
		w.Println("%s passed %s", label, duration)
	}
}

// ShardFailed prints a failed shard attempt. Failures are shown even in
// quiet mode.
func (w *Writer) ShardFailed(index int, reason string) {
	w.Errorln("%s %s", w.st.bad.Render(fmt.Sprintf("[shard %03d] failed:", index)), reason)
}

// ShardCancelled prints a shard stopped by fail-fast or interrupt.
func (w *Writer) ShardCancelled(index int) {
	if w.quiet {
		return
	}
	w.Println("%s cancelled", w.st.warn.Render(fmt.Sprintf("[shard %03d]", index)))
}

// Section prints a section header.
func (w *Writer) Section(title string) {
	if w.quiet {
		return
	}
	w.Println("")
	w.Println("%s", w.st.title.Render(fmt.Sprintf("=== %s ===", title)))
}

// List prints a list of items.
func (w *Writer) List(items []string) {
	for _, item := range items {
		w.Println("  - %s", item)
	}
}

// Table prints a simple table.
func (w *Writer) Table(headers []string, rows [][]string) {
	// Calculate column widths
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	// Print header
	var headerParts []string
	for i, h := range headers {
		headerParts = append(headerParts, fmt.Sprintf("%-*s", widths[i], h))
	}
	w.Println(strings.Join(headerParts, "  "))

	// Print separator
	var sepParts []string
	for _, width := range widths {
		sepParts = append(sepParts, strings.Repeat("-", width))
	}
	w.Println(strings.Join(sepParts, "  "))

	// Print rows
	for _, row := range rows {
		var rowParts []string
		for i, cell := range row {
			if i < len(widths) {
				rowParts = append(rowParts, fmt.Sprintf("%-*s", widths[i], cell))
			}
		}
		w.Println(strings.Join(rowParts, "  "))
	}
}

// IsTerminal returns true if stdout is a terminal and NO_COLOR is unset.
func IsTerminal() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if fi, _ := os.Stdout.Stat(); fi != nil {
		return (fi.Mode() & os.ModeCharDevice) != 0
	}
	return false
}

// SummaryHeader prints a summary section header.
func (w *Writer) SummaryHeader(title string) {
	w.Println("")
	w.Println("%s", w.st.title.Render(fmt.Sprintf("=== %s ===", title)))
	w.Println("")
}

// SummaryItem prints a labeled summary item with value.
func (w *Writer) SummaryItem(label, value string) {
	w.Println("  %s %s", w.st.dim.Render(label+":"), value)
}

// SummaryPassed prints a passed/success items summary.
func (w *Writer) SummaryPassed(label, value string) {
	w.Println("  %s %s", w.st.dim.Render(label+":"), w.st.ok.Render(value))
}

// SummaryFailed prints a failed items summary.
func (w *Writer) SummaryFailed(label, value string) {
	w.Println("  %s %s", w.st.dim.Render(label+":"), w.st.bad.Render(value))
}

// FinalSuccess prints a final success message.
func (w *Writer) FinalSuccess(format string, args ...interface{}) {
	w.Println("")
	w.Println("%s", w.st.ok.Render(fmt.Sprintf(format, args...)))
}

// FinalFailure prints a final failure message.
func (w *Writer) FinalFailure(format string, args ...interface{}) {
	w.Println("")
	w.Println("%s", w.st.bad.Render(fmt.Sprintf(format, args...)))
}

// PlanShard prints one shard of a partition plan.
func (w *Writer) PlanShard(index, tests int, cost float64) {
	w.Println("%s %d tests, cost %.1f", w.st.accent.Render(fmt.Sprintf("shard %03d:", index)), tests, cost)
}

// PlanDetail prints an indented line under a plan shard.
func (w *Writer) PlanDetail(format string, args ...interface{}) {
	w.Println("  %s", w.st.dim.Render(fmt.Sprintf(format, args...)))
}

// Hint prints a hint message for the user.
func (w *Writer) Hint(format string, args ...interface{}) {
	w.Println("%s", w.st.dim.Render(fmt.Sprintf(format, args...)))
}

// SummaryAction prints an item with status indicator, name, duration, and
// an optional note.
func (w *Writer) SummaryAction(name string, success bool, duration string, note string) {
	if w.color {
		mark := w.st.ok.Render("✓")
		if !success {
			mark = w.st.bad.Render("✗")
		}
		w.Print("    %s %-12s %s", mark, name, w.st.dim.Render(duration))
		if note != "" {
			w.Print("  %s", w.st.dim.Render("("+note+")"))
		}
	} else {
		mark := "+"
		if !success {
			mark = "x"
		}
		w.Print("    %s %-12s %s", mark, name, duration)
		if note != "" {
			w.Print("  (%s)", note)
		}
	}
	w.Print("\n")
}

// SummarySectionLabel prints a label for a summary section (e.g., "Shards:").
func (w *Writer) SummarySectionLabel(label string) {
	w.Println("  %s", w.st.dim.Render(label))
}
