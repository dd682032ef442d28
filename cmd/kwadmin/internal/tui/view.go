// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Keywarden Authors

package tui

// Core view rendering and styles.
// View-specific renderers are in view_*.go files.

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205")).
			MarginBottom(1)

	subtitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	statusConnectedStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("42"))

	statusDisconnectedStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("196"))

	inputActiveStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("42")). // Green border when active
				Padding(0, 1)

	inputInactiveStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("241")). // Gray border when inactive
				Padding(0, 1)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			Bold(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	selectedStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("62")).
			Foreground(lipgloss.Color("255")).
			Bold(true)

	normalStyle = lipgloss.NewStyle()

	buttonStyle = lipgloss.NewStyle().
			Padding(0, 2).
			Border(lipgloss.RoundedBorder())

	buttonActiveStyle = buttonStyle.
				BorderForeground(lipgloss.Color("42")).
				Foreground(lipgloss.Color("42"))

	buttonInactiveStyle = buttonStyle.
				BorderForeground(lipgloss.Color("241")).
				Foreground(lipgloss.Color("241"))

	buttonDangerStyle = buttonStyle.
				BorderForeground(lipgloss.Color("196")).
				Foreground(lipgloss.Color("196"))

	popupStyle = lipgloss.NewStyle().
			Border(lipgloss.DoubleBorder()).
			BorderForeground(lipgloss.Color("214")).
			Padding(1, 2).
			Width(80)

	kindStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39"))

	savedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)
)

// View renders the TUI
func (m Model) View() string {
	if m.quitting {
		return "Goodbye!\n"
	}

	var content string

	switch m.viewState {
	case ViewKeyList:
		content = m.renderKeyListView()
	case ViewKeyDetails:
		content = m.renderKeyDetails()
	case ViewDeactivateConfirm:
		content = m.renderDeactivateConfirm()
	case ViewDeleteConfirm:
		content = m.renderDeleteConfirm()
	case ViewRestoreConfirm:
		content = m.renderRestoreConfirm()
	case ViewEditLabel:
		content = m.renderEditLabel()
	case ViewExportDisplay:
		content = m.renderExportDisplay()
	default:
		content = m.renderKeyListView()
	}

	// Add status bar at bottom
	statusBar := m.renderStatusBar()

	return content + "\n" + statusBar
}

// renderStatusBar renders the bottom status bar
func (m Model) renderStatusBar() string {
	var parts []string

	// Connection status
	switch m.connectionState {
	case ConnectionConnected:
		parts = append(parts, statusConnectedStyle.Render("Connected"))
	case ConnectionConnecting:
		parts = append(parts, subtitleStyle.Render("Connecting..."))
	case ConnectionDisconnected:
		parts = append(parts, statusDisconnectedStyle.Render("Disconnected (press 'c' to reconnect)"))
	}

	// Registry state
	if m.registryState != "" {
		parts = append(parts, subtitleStyle.Render(fmt.Sprintf("Registry %s (%d keys)", m.registryState, m.keyCount)))
	} else {
		parts = append(parts, subtitleStyle.Render(fmt.Sprintf("%d keys", m.keyCount)))
	}

	// Error if any
	if m.lastError != "" {
		parts = append(parts, errorStyle.Render("Error: "+m.lastError))
	}

	return helpStyle.Render(strings.Join(parts, " | "))
}
