/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package tui

import (
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
)

// Dracula theme colors.
const (
	draculaForeground = "#F8F8F2"
	draculaCyan       = "#8BE9FD"
	draculaGreen      = "#50FA7B"
	draculaOrange     = "#FFB86C"
	draculaPink       = "#FF79C6"
	draculaPurple     = "#BD93F9"
	draculaRed        = "#FF5555"
	draculaYellow     = "#F1FA8C"
	draculaComment    = "#6272A4"
)

type styleSet struct {
	title, online, offline, unknown, drift, help, status, app lipgloss.Style
}

func newStyles() styleSet {
	return styleSet{
		title: lipgloss.NewStyle().
			Foreground(lipgloss.Color(draculaPink)).
			Bold(true),
		online: lipgloss.NewStyle().
			Foreground(lipgloss.Color(draculaGreen)),
		offline: lipgloss.NewStyle().
			Foreground(lipgloss.Color(draculaRed)).
			Bold(true),
		unknown: lipgloss.NewStyle().
			Foreground(lipgloss.Color(draculaComment)),
		drift: lipgloss.NewStyle().
			Foreground(lipgloss.Color(draculaOrange)),
		help: lipgloss.NewStyle().
			Foreground(lipgloss.Color(draculaComment)),
		status: lipgloss.NewStyle().
			Foreground(lipgloss.Color(draculaYellow)),
		app: lipgloss.NewStyle().
			Padding(0, 1).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(draculaCyan)).
			Foreground(lipgloss.Color(draculaForeground)),
	}
}

func newTableStyles() table.Styles {
	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color(draculaPurple)).
		BorderBottom(true).
		Bold(true).
		Foreground(lipgloss.Color(draculaCyan))
	s.Selected = s.Selected.
		Foreground(lipgloss.Color(draculaForeground)).
		Background(lipgloss.Color(draculaComment)).
		Bold(false)

	return s
}
