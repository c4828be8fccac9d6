package main

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"

	"github.com/wippyai/rewrite-abi/sema/ast"
)

var (
	posStyle = lipgloss.NewStyle().Bold(true)

	errorLabelStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF6B6B"))

	summaryStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

// reporter prints diagnostics in "file:line:col: error: message" form,
// styled when writing to a terminal.
type reporter struct {
	w     io.Writer
	color bool
}

func newReporter(w io.Writer, color bool) *reporter {
	return &reporter{w: w, color: color}
}

func (r *reporter) style(s lipgloss.Style, text string) string {
	if !r.color {
		return text
	}
	return s.Render(text)
}

func (r *reporter) report(pos ast.Pos, msg string) {
	fmt.Fprintf(r.w, "%s: %s %s\n", r.style(posStyle, pos.String()), r.style(errorLabelStyle, "error:"), msg)
}

func (r *reporter) summary(n int) {
	noun := "errors"
	if n == 1 {
		noun = "error"
	}
	fmt.Fprintln(r.w, r.style(summaryStyle, fmt.Sprintf("%d %s", n, noun)))
}
