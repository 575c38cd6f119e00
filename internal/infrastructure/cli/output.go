package cli

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"github.com/felixgeelhaar/eemetrics/pkg/domain/health"
)

var statusStyles = map[health.Status]lipgloss.Style{
	health.Green: lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true),
	health.Amber: lipgloss.NewStyle().Foreground(lipgloss.Color("208")).Bold(true),
	health.Red:   lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
	health.Grey:  lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
}

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// statusText renders s, coloured only when w is a terminal.
func statusText(w io.Writer, s health.Status) string {
	if !isTerminal(w) {
		return string(s)
	}
	style, ok := statusStyles[s]
	if !ok {
		return string(s)
	}
	return style.Render(string(s))
}

// renderTable builds a static table view.
func renderTable(columns []table.Column, rows []table.Row) string {
	t := table.New(
		table.WithColumns(columns),
		table.WithRows(rows),
		table.WithHeight(len(rows)+1),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		Bold(true)
	s.Selected = lipgloss.NewStyle()
	t.SetStyles(s)

	return t.View()
}

func printTable(w io.Writer, title string, columns []table.Column, rows []table.Row) {
	if title != "" {
		fmt.Fprintln(w, title)
	}
	if len(rows) == 0 {
		fmt.Fprintln(w, "No results.")
		return
	}
	fmt.Fprintln(w, renderTable(columns, rows))
}

func boolStr(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func intOrNA(v *int) string {
	if v == nil {
		return "NA"
	}
	return strconv.Itoa(*v)
}

func floatOrNA(v *float64) string {
	if v == nil {
		return "NA"
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func ratingOrNA(r *health.Rating) string {
	if r == nil {
		return "NA"
	}
	return string(*r)
}
