// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package tui

import (
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/bureau-foundation/sourcetree/lib/explorer"
)

// Row is one visible line of the viewer: either a node or, when Node
// is nil, a workspace status line (loading or error).
type Row struct {
	Workspace string
	Node      *explorer.Node
	Depth     int
	Status    explorer.Status
}

// VisibleRows flattens tree into display rows, workspaces in order.
// Children of a node are included when it is expanded, or for every
// node when expandAll is set.
func VisibleRows(tree *explorer.Tree, expandAll bool) []Row {
	var rows []Row
	for _, workspace := range tree.Workspaces() {
		status, _ := tree.Status(workspace)
		if status.Loading || status.Error != "" {
			rows = append(rows, Row{Workspace: workspace, Status: status})
		}
		root := tree.Root(workspace)
		if root == nil {
			continue
		}
		root.Walk(func(node *explorer.Node, depth int) bool {
			if node.Snapshot() == nil {
				return false
			}
			rows = append(rows, Row{Workspace: workspace, Node: node, Depth: depth})
			return expandAll || node.Metadata().Collapsible == explorer.CollapsibleExpanded
		})
	}
	return rows
}

// rowStyle carries per-row rendering state.
type rowStyle struct {
	selected  bool
	heat      float64
	expandAll bool
}

// renderRow renders row to at most width cells. A width of zero or
// less disables truncation.
func renderRow(theme Theme, row Row, width int, style rowStyle) string {
	var line string
	if row.Node == nil {
		line = renderStatus(theme, row)
	} else {
		line = renderNode(theme, row, style.expandAll)
	}
	if width > 0 {
		line = ansi.Truncate(line, width, "…")
	}

	switch {
	case style.selected:
		return lipgloss.NewStyle().
			Background(theme.SelectedBackground).
			Foreground(theme.SelectedForeground).
			Width(max(width, 0)).
			Render(line)
	case style.heat > 0:
		return lipgloss.NewStyle().Background(theme.HotAccent).Render(line)
	}
	return line
}

func renderStatus(theme Theme, row Row) string {
	name := filepath.Base(row.Workspace)
	if row.Status.Error != "" {
		message := strings.TrimSpace(strings.SplitN(row.Status.Error, "\n", 2)[0])
		return lipgloss.NewStyle().Foreground(theme.ErrorForeground).Render("✗ " + name + ": " + message)
	}
	text := "⟳ " + name + ": " + explorer.LoadingLabel
	if row.Status.LoadingPath != "" {
		text += " " + row.Status.LoadingPath
	}
	return lipgloss.NewStyle().Foreground(theme.LoadingForeground).Render(text)
}

func renderNode(theme Theme, row Row, expandAll bool) string {
	metadata := row.Node.Metadata()

	marker := "  "
	switch metadata.Collapsible {
	case explorer.CollapsibleExpanded:
		marker = "▾ "
	case explorer.CollapsibleCollapsed:
		marker = "▸ "
		if expandAll {
			marker = "▾ "
		}
	}

	var builder strings.Builder
	builder.WriteString(strings.Repeat("  ", row.Depth))
	builder.WriteString(lipgloss.NewStyle().Foreground(theme.FaintText).Render(marker))
	builder.WriteString(lipgloss.NewStyle().Foreground(theme.IconColor(metadata.Icon.Value)).Render("●"))
	builder.WriteString(" ")
	builder.WriteString(lipgloss.NewStyle().Foreground(theme.NormalText).Render(metadata.Label.Value))
	if metadata.Description.Value != "" {
		builder.WriteString(" ")
		builder.WriteString(lipgloss.NewStyle().Foreground(theme.FaintText).Render(metadata.Description.Value))
	}
	return builder.String()
}

// RenderTree renders every node of tree, fully expanded, one per line.
func RenderTree(theme Theme, tree *explorer.Tree, width int) string {
	rows := VisibleRows(tree, true)
	lines := make([]string, len(rows))
	for index, row := range rows {
		lines[index] = renderRow(theme, row, width, rowStyle{expandAll: true})
	}
	return strings.Join(lines, "\n")
}

// HighlightMatch renders text with the runes at positions emphasized.
func HighlightMatch(theme Theme, text string, positions []int) string {
	if len(positions) == 0 {
		return text
	}
	matched := make(map[int]bool, len(positions))
	for _, position := range positions {
		matched[position] = true
	}
	highlight := lipgloss.NewStyle().Foreground(theme.MatchHighlight).Bold(true)

	var builder strings.Builder
	for index, character := range []rune(text) {
		if matched[index] {
			builder.WriteString(highlight.Render(string(character)))
		} else {
			builder.WriteRune(character)
		}
	}
	return builder.String()
}
