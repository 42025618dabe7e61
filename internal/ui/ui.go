// Package ui renders the harness's console output: a per-example progress
// counter and aligned tables for diagnostics. Pass/fail labels are colored
// only when the output is a terminal.
package ui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

var (
	okStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	failStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
)

// Progress prints one line per completed check with a running counter.
type Progress struct {
	out    io.Writer
	total  int
	done   int
	styled bool
}

// NewProgress creates a progress printer for n sequential checks.
func NewProgress(out io.Writer, total int) *Progress {
	return &Progress{out: out, total: total, styled: isTerminal(out)}
}

// Done marks the next check as passed.
func (p *Progress) Done(label string) {
	p.done++
	_, _ = fmt.Fprintf(p.out, "[%d/%d] %s %s\n", p.done, p.total, p.render(okStyle, "ok"), label)
}

// Fail marks the next check as failed. The run stops after the first
// failure, so at most one Fail line is ever printed.
func (p *Progress) Fail(label string) {
	p.done++
	_, _ = fmt.Fprintf(p.out, "[%d/%d] %s %s\n", p.done, p.total, p.render(failStyle, "FAIL"), label)
}

// Log prints an informational message within the progress context.
func (p *Progress) Log(format string, args ...any) {
	_, _ = fmt.Fprintf(p.out, format+"\n", args...)
}

func (p *Progress) render(style lipgloss.Style, s string) string {
	if !p.styled {
		return s
	}
	return style.Render(s)
}

// Table renders rows of data in aligned columns.
type Table struct {
	w *tabwriter.Writer
}

// NewTable creates a table writer with the given column headers.
func NewTable(out io.Writer, headers ...string) *Table {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, strings.Join(headers, "\t"))
	return &Table{w: tw}
}

// Row appends a row of values. The number of values should match the number
// of headers.
func (t *Table) Row(values ...any) {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprintf("%v", v)
	}
	_, _ = fmt.Fprintln(t.w, strings.Join(parts, "\t"))
}

// Flush writes the buffered output.
func (t *Table) Flush() error {
	return t.w.Flush()
}

func isTerminal(out io.Writer) bool {
	f, ok := out.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
