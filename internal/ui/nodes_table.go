package ui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// NodeRow is one query result line.
type NodeRow struct {
	Path string
	Type string
}

// NodeTable renders query results as numbered rows of path and type, sized to
// the terminal width.
type NodeTable struct {
	display *DisplayContext
	rows    []NodeRow
}

// NewNodeTable creates an empty table for display.
func NewNodeTable(display *DisplayContext) *NodeTable {
	return &NodeTable{display: display}
}

// Add appends a row.
func (t *NodeTable) Add(row NodeRow) {
	t.rows = append(t.rows, row)
}

// Len returns the number of rows.
func (t *NodeTable) Len() int { return len(t.rows) }

// widths splits the available width 75/25 between path and type after the
// fixed number column.
func (t *NodeTable) widths() (num, path, typ int) {
	num = len(fmt.Sprintf("%d", len(t.rows)))
	if num < 2 {
		num = 2
	}
	const padding = 4
	available := t.display.AvailableWidth(2) - num - padding
	if available < 20 {
		available = 20
	}
	path = available * 3 / 4
	typ = available - path
	return num, path, typ
}

// Render generates the table output.
func (t *NodeTable) Render() string {
	if len(t.rows) == 0 {
		return ""
	}
	numWidth, pathWidth, typeWidth := t.widths()

	rows := make([][]string, len(t.rows))
	for i, r := range t.rows {
		rows[i] = []string{
			fmt.Sprintf("%*d", numWidth, i+1),
			TruncateWithEllipsis(r.Path, pathWidth),
			TruncateWithEllipsis(r.Type, typeWidth),
		}
	}

	tbl := table.New().
		BorderTop(false).
		BorderBottom(false).
		BorderLeft(false).
		BorderRight(false).
		BorderRow(false).
		BorderColumn(false).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch col {
			case 0:
				return Muted.Width(numWidth + 2).Align(lipgloss.Right).PaddingRight(2)
			case 1:
				return Accent.Width(pathWidth + 2).PaddingRight(2)
			default:
				return Muted.Width(typeWidth)
			}
		}).
		Rows(rows...)

	return tbl.Render()
}

// TruncateWithEllipsis truncates s to maxLen, adding an ellipsis when cut.
// Node paths are cut from the left so the leaf name stays visible.
func TruncateWithEllipsis(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[len(s)-maxLen:]
	}
	return "..." + s[len(s)-(maxLen-3):]
}
