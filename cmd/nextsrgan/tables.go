// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package main

import (
	"github.com/charmbracelet/lipgloss"
	lgtable "github.com/charmbracelet/lipgloss/table"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Padding(1, 4, 1, 4)

	headerRowStyle = lipgloss.NewStyle().Reverse(true).
			Padding(0, 2, 0, 2).Align(lipgloss.Center)
	oddRowStyle = lipgloss.NewStyle().Faint(false).
			PaddingLeft(1).PaddingRight(1)
	evenRowStyle = lipgloss.NewStyle().Faint(true).
			PaddingLeft(1).PaddingRight(1)
	frozenRowStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "12", Dark: "12"}).
			PaddingLeft(1).PaddingRight(1)
)

// table wraps a lipgloss table, and keeps track of the rows to highlight.
type table struct {
	*lgtable.Table
	count       int
	highlighted map[int]bool
}

// newTable creates a table with the given column alignments. If there are more columns than alignments,
// the last alignment is used for the remaining ones.
func newTable(alignments ...lipgloss.Position) *table {
	t := &table{highlighted: make(map[int]bool)}
	t.Table = lgtable.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("99"))).
		StyleFunc(func(row, col int) (s lipgloss.Style) {
			if row < 0 {
				return headerRowStyle
			}
			switch {
			case t.highlighted[row]:
				s = frozenRowStyle
			case row%2 == 0:
				s = oddRowStyle
			default:
				s = evenRowStyle
			}
			alignment := lipgloss.Left
			if col < len(alignments) {
				alignment = alignments[col]
			} else if len(alignments) > 0 {
				alignment = alignments[len(alignments)-1]
			}
			return s.Align(alignment)
		})
	return t
}

// Row appends a row, highlighted if requested.
func (t *table) Row(highlight bool, row ...string) {
	if highlight {
		t.highlighted[t.count] = true
	}
	t.Table.Row(row...)
	t.count++
}
