// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package tui

import (
	"github.com/charmbracelet/lipgloss"
)

// Theme defines the color palette of the tree viewer. All colors use
// lipgloss ANSI 256-color codes for broad terminal compatibility.
type Theme struct {
	// Text colors.
	NormalText lipgloss.Color
	FaintText  lipgloss.Color

	// Selected row.
	SelectedBackground lipgloss.Color
	SelectedForeground lipgloss.Color

	// Icon colors by kind of instance.
	ScriptIcon  lipgloss.Color
	ModuleIcon  lipgloss.Color
	FolderIcon  lipgloss.Color
	ServiceIcon lipgloss.Color
	OtherIcon   lipgloss.Color

	// Workspace status.
	LoadingForeground lipgloss.Color
	ErrorForeground   lipgloss.Color

	// UI chrome.
	HeaderForeground lipgloss.Color
	BorderColor      lipgloss.Color
	HelpText         lipgloss.Color

	// HotAccent tints rows that changed recently.
	HotAccent lipgloss.Color

	// MatchHighlight colors the characters matched by a find query.
	MatchHighlight lipgloss.Color
}

// IconColor returns the color used for an instance icon. Icons are
// class names; anything not recognized gets OtherIcon.
func (theme Theme) IconColor(icon string) lipgloss.Color {
	switch icon {
	case "Script", "LocalScript":
		return theme.ScriptIcon
	case "ModuleScript":
		return theme.ModuleIcon
	case "Folder":
		return theme.FolderIcon
	case "DataModel", "Workspace", "ReplicatedStorage", "ReplicatedFirst",
		"ServerScriptService", "ServerStorage", "StarterPlayer",
		"StarterGui", "StarterPack", "Lighting", "SoundService":
		return theme.ServiceIcon
	default:
		return theme.OtherIcon
	}
}

// DefaultTheme is the built-in dark-terminal color scheme.
var DefaultTheme = Theme{
	NormalText: lipgloss.Color("252"),
	FaintText:  lipgloss.Color("245"),

	SelectedBackground: lipgloss.Color("236"),
	SelectedForeground: lipgloss.Color("255"),

	ScriptIcon:  lipgloss.Color("114"), // green
	ModuleIcon:  lipgloss.Color("141"), // light purple
	FolderIcon:  lipgloss.Color("220"), // amber
	ServiceIcon: lipgloss.Color("75"),  // blue
	OtherIcon:   lipgloss.Color("245"), // gray

	LoadingForeground: lipgloss.Color("220"),
	ErrorForeground:   lipgloss.Color("196"),

	HeaderForeground: lipgloss.Color("255"),
	BorderColor:      lipgloss.Color("240"),
	HelpText:         lipgloss.Color("241"),

	HotAccent: lipgloss.Color("58"), // dark amber background tint

	MatchHighlight: lipgloss.Color("208"),
}
