package cmd

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/ginjaninja78/file-mapper/internal/types"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))  // gray
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10")) // green
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))  // red
)

// renderRows writes rows as a bordered table with the given columns.
func renderRows(w io.Writer, columns []string, rows []*types.Row) {
	if len(columns) == 0 {
		fmt.Fprintln(w, mutedStyle.Render("(no columns)"))
		return
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(mutedStyle).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers(columns...)

	for _, r := range rows {
		t.Row(r.Project(columns)...)
	}

	fmt.Fprintln(w, t.String())
}

// renderTargets writes the declared targets of a mapping, one per line.
func renderTargets(w io.Writer, targets []types.Target) {
	if len(targets) == 0 {
		fmt.Fprintln(w, mutedStyle.Render("  (no targets)"))
		return
	}
	for i, t := range targets {
		source := t.Source
		if source == "" {
			source = errStyle.Render("<unbound>")
		}
		name := t.Name
		if name == "" {
			name = mutedStyle.Render("<unnamed>")
		}
		fmt.Fprintf(w, "  [%d] %s <- %s\n", i, name, source)
	}
}
