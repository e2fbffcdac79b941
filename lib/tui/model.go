// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package tui

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/bureau-foundation/sourcetree/lib/explorer"
)

// Controller is the session surface driven by the viewer's keys.
type Controller interface {
	Refresh() bool
	Reload()
}

// findLimit bounds the matches considered by the find prompt.
const findLimit = 50

type notificationMsg struct {
	notification explorer.Notification
}

type heatTickMsg struct{}

type statusMsg string

// Status returns a message that replaces the viewer's status line.
// Hosts send it to surface warnings raised outside the tree.
func Status(text string) tea.Msg { return statusMsg(text) }

// Model is the interactive tree viewer.
type Model struct {
	tree          *explorer.Tree
	controllers   []Controller
	notifications <-chan explorer.Notification
	keys          KeyMap
	theme         Theme
	now           func() time.Time

	heat        *HeatTracker
	tickRunning bool

	// expandedRoots records roots opened automatically, so a root the
	// user collapsed stays collapsed.
	expandedRoots map[*explorer.Node]bool

	rows   []Row
	cursor int
	offset int
	width  int
	height int

	finding bool
	query   string
	matches []explorer.Match

	status string
}

// NewModel returns a viewer for tree. notifications is the tree's
// subscription channel; controllers receive refresh and reload keys.
func NewModel(tree *explorer.Tree, notifications <-chan explorer.Notification, controllers ...Controller) Model {
	model := Model{
		tree:          tree,
		controllers:   controllers,
		notifications: notifications,
		keys:          DefaultKeyMap,
		theme:         DefaultTheme,
		now:           time.Now,
		heat:          NewHeatTracker(),
		expandedRoots: make(map[*explorer.Node]bool),
		width:         80,
		height:        24,
	}
	model.expandNewRoots()
	model.rebuildRows()
	return model
}

// Init implements tea.Model.
func (model Model) Init() tea.Cmd {
	return listenForNotification(model.notifications)
}

func listenForNotification(channel <-chan explorer.Notification) tea.Cmd {
	if channel == nil {
		return nil
	}
	return func() tea.Msg {
		notification, ok := <-channel
		if !ok {
			return nil
		}
		return notificationMsg{notification: notification}
	}
}

func scheduleHeatTick() tea.Cmd {
	return tea.Tick(HeatTickInterval, func(time.Time) tea.Msg {
		return heatTickMsg{}
	})
}

// Update implements tea.Model.
func (model Model) Update(message tea.Msg) (tea.Model, tea.Cmd) {
	switch message := message.(type) {
	case tea.WindowSizeMsg:
		model.width = message.Width
		model.height = message.Height
		model.ensureCursorVisible()
		return model, nil

	case notificationMsg:
		return model.handleNotification(message.notification)

	case heatTickMsg:
		if model.heat.HasHot(model.now()) {
			return model, scheduleHeatTick()
		}
		model.tickRunning = false
		return model, nil

	case statusMsg:
		model.status = string(message)
		return model, nil

	case tea.KeyMsg:
		if model.finding {
			return model.handleFindKeys(message)
		}
		return model.handleKeys(message)
	}
	return model, nil
}

func (model Model) handleNotification(notification explorer.Notification) (tea.Model, tea.Cmd) {
	if notification.Node != nil {
		model.heat.Ignite(notification.Node.ID(), model.now())
	}
	model.expandNewRoots()
	model.rebuildRows()

	commands := []tea.Cmd{listenForNotification(model.notifications)}
	if !model.tickRunning && model.heat.HasHot(model.now()) {
		model.tickRunning = true
		commands = append(commands, scheduleHeatTick())
	}
	return model, tea.Batch(commands...)
}

// expandNewRoots opens each workspace root the first time it has
// children.
func (model *Model) expandNewRoots() {
	for _, workspace := range model.tree.Workspaces() {
		root := model.tree.Root(workspace)
		if root == nil || model.expandedRoots[root] {
			continue
		}
		if root.Metadata().Collapsible == explorer.CollapsibleCollapsed {
			root.SetExpanded(true)
			model.expandedRoots[root] = true
		}
	}
}

// rebuildRows recomputes the visible rows, keeping the cursor on the
// same node when it is still visible.
func (model *Model) rebuildRows() {
	var selected *explorer.Node
	if model.cursor < len(model.rows) {
		selected = model.rows[model.cursor].Node
	}

	model.rows = VisibleRows(model.tree, false)
	if selected != nil {
		if index := model.indexOf(selected); index >= 0 {
			model.cursor = index
		}
	}
	model.cursor = model.clamp(model.cursor)
	model.ensureCursorVisible()
}

func (model *Model) indexOf(node *explorer.Node) int {
	return slices.IndexFunc(model.rows, func(row Row) bool { return row.Node == node })
}

func (model *Model) clamp(position int) int {
	if len(model.rows) == 0 {
		return 0
	}
	return max(0, min(position, len(model.rows)-1))
}

func (model *Model) visibleHeight() int {
	// One line each for the header and the help bar.
	return max(model.height-2, 1)
}

func (model *Model) ensureCursorVisible() {
	visible := model.visibleHeight()
	if model.cursor < model.offset {
		model.offset = model.cursor
	}
	if model.cursor >= model.offset+visible {
		model.offset = model.cursor - visible + 1
	}
	model.offset = max(0, min(model.offset, len(model.rows)-visible))
}

func (model *Model) selectedNode() *explorer.Node {
	if model.cursor < len(model.rows) {
		return model.rows[model.cursor].Node
	}
	return nil
}

func (model Model) handleKeys(message tea.KeyMsg) (tea.Model, tea.Cmd) {
	keys := model.keys
	switch {
	case key.Matches(message, keys.Quit):
		return model, tea.Quit
	case key.Matches(message, keys.Up):
		model.moveCursor(-1)
	case key.Matches(message, keys.Down):
		model.moveCursor(1)
	case key.Matches(message, keys.PageUp):
		model.moveCursor(-model.visibleHeight())
	case key.Matches(message, keys.PageDown):
		model.moveCursor(model.visibleHeight())
	case key.Matches(message, keys.Home):
		model.moveCursor(-len(model.rows))
	case key.Matches(message, keys.End):
		model.moveCursor(len(model.rows))
	case key.Matches(message, keys.Left):
		model.collapseOrGoToParent()
	case key.Matches(message, keys.Right):
		model.expandOrEnterFirstChild()
	case key.Matches(message, keys.Toggle):
		if node := model.selectedNode(); node != nil {
			node.SetExpanded(node.Metadata().Collapsible != explorer.CollapsibleExpanded)
			model.rebuildRows()
		}
	case key.Matches(message, keys.Refresh):
		return model, model.refresh()
	case key.Matches(message, keys.Reload):
		model.status = "reloading"
		return model, model.reload()
	case key.Matches(message, keys.Find):
		model.finding = true
		model.query = ""
		model.matches = nil
	}
	return model, nil
}

func (model *Model) moveCursor(delta int) {
	model.cursor = model.clamp(model.cursor + delta)
	model.ensureCursorVisible()
}

func (model *Model) collapseOrGoToParent() {
	node := model.selectedNode()
	if node == nil {
		return
	}
	if node.Metadata().Collapsible == explorer.CollapsibleExpanded {
		node.SetExpanded(false)
		model.rebuildRows()
		return
	}
	if parent := node.Parent(); parent != nil {
		if index := model.indexOf(parent); index >= 0 {
			model.cursor = index
			model.ensureCursorVisible()
		}
	}
}

func (model *Model) expandOrEnterFirstChild() {
	node := model.selectedNode()
	if node == nil {
		return
	}
	switch node.Metadata().Collapsible {
	case explorer.CollapsibleCollapsed:
		node.SetExpanded(true)
		model.rebuildRows()
	case explorer.CollapsibleExpanded:
		model.moveCursor(1)
	}
}

func (model Model) refresh() tea.Cmd {
	controllers := model.controllers
	return func() tea.Msg {
		refreshed := 0
		for _, controller := range controllers {
			if controller.Refresh() {
				refreshed++
			}
		}
		if refreshed == 0 {
			return statusMsg("no snapshot to refresh yet")
		}
		return statusMsg("refreshed")
	}
}

func (model Model) reload() tea.Cmd {
	controllers := model.controllers
	return func() tea.Msg {
		for _, controller := range controllers {
			controller.Reload()
		}
		return statusMsg("")
	}
}

func (model Model) handleFindKeys(message tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(message, model.keys.Cancel):
		model.finding = false
		return model, nil
	case message.Type == tea.KeyEnter:
		model.finding = false
		if len(model.matches) > 0 {
			model.reveal(model.matches[0].Node)
		}
		return model, nil
	case message.Type == tea.KeyCtrlC:
		return model, tea.Quit
	case message.Type == tea.KeyBackspace:
		if runes := []rune(model.query); len(runes) > 0 {
			model.query = string(runes[:len(runes)-1])
		}
	case message.Type == tea.KeyRunes || message.Type == tea.KeySpace:
		model.query += string(message.Runes)
	default:
		return model, nil
	}
	model.matches = model.find(model.query)
	return model, nil
}

// find matches query against every workspace, best first.
func (model *Model) find(query string) []explorer.Match {
	var matches []explorer.Match
	for _, workspace := range model.tree.Workspaces() {
		matches = append(matches, explorer.Find(model.tree.Root(workspace), query, findLimit)...)
	}
	slices.SortStableFunc(matches, func(left, right explorer.Match) int {
		return right.Score - left.Score
	})
	if len(matches) > findLimit {
		matches = matches[:findLimit]
	}
	return matches
}

// reveal expands every ancestor of node and moves the cursor to it.
func (model *Model) reveal(node *explorer.Node) {
	for ancestor := node.Parent(); ancestor != nil; ancestor = ancestor.Parent() {
		ancestor.SetExpanded(true)
	}
	model.rebuildRows()
	if index := model.indexOf(node); index >= 0 {
		model.cursor = index
		model.ensureCursorVisible()
	}
}

// View implements tea.Model.
func (model Model) View() string {
	var builder strings.Builder
	builder.WriteString(model.renderHeader())
	builder.WriteString("\n")

	visible := model.visibleHeight()
	contentWidth := max(model.width-1, 1)
	now := model.now()
	lines := make([]string, visible)
	for index := range lines {
		rowIndex := model.offset + index
		if rowIndex >= len(model.rows) {
			lines[index] = strings.Repeat(" ", contentWidth)
			continue
		}
		row := model.rows[rowIndex]
		style := rowStyle{selected: rowIndex == model.cursor}
		if row.Node != nil {
			style.heat = model.heat.Heat(row.Node.ID(), now)
		}
		lines[index] = lipgloss.NewStyle().Width(contentWidth).Render(renderRow(model.theme, row, contentWidth, style))
	}
	if len(model.rows) == 0 {
		lines[0] = lipgloss.NewStyle().Foreground(model.theme.FaintText).Width(contentWidth).Render("No workspaces")
	}
	scrollbar := RenderScrollbar(model.theme, visible, len(model.rows), visible, model.offset)
	builder.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, strings.Join(lines, "\n"), scrollbar))
	builder.WriteString("\n")
	builder.WriteString(model.renderFooter())
	return builder.String()
}

func (model Model) renderHeader() string {
	header := lipgloss.NewStyle().Foreground(model.theme.HeaderForeground).Bold(true).Render("sourcetree")
	count := len(model.tree.Workspaces())
	noun := "workspaces"
	if count == 1 {
		noun = "workspace"
	}
	header += lipgloss.NewStyle().Foreground(model.theme.FaintText).Render(fmt.Sprintf("  %d %s", count, noun))
	if node := model.selectedNode(); node != nil {
		if path, ok := node.FilePath(); ok {
			header += lipgloss.NewStyle().Foreground(model.theme.FaintText).Render("  " + path)
		}
	}
	if model.status != "" {
		header += lipgloss.NewStyle().Foreground(model.theme.LoadingForeground).Render("  " + model.status)
	}
	return header
}

func (model Model) renderFooter() string {
	if model.finding {
		prompt := "/" + model.query
		if len(model.matches) > 0 {
			best := model.matches[0]
			prompt += lipgloss.NewStyle().Foreground(model.theme.FaintText).Render(
				fmt.Sprintf("  %d matches, best: ", len(model.matches))) +
				HighlightMatch(model.theme, best.InstancePath, best.Positions)
		} else if model.query != "" {
			prompt += lipgloss.NewStyle().Foreground(model.theme.FaintText).Render("  no matches")
		}
		return prompt
	}

	bindings := []key.Binding{
		model.keys.Up, model.keys.Down, model.keys.Toggle, model.keys.Find,
		model.keys.Refresh, model.keys.Reload, model.keys.Quit,
	}
	parts := make([]string, 0, len(bindings))
	for _, binding := range bindings {
		help := binding.Help()
		parts = append(parts, help.Key+" "+help.Desc)
	}
	return lipgloss.NewStyle().Foreground(model.theme.HelpText).Render(strings.Join(parts, "  "))
}
