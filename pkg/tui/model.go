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

// Package tui renders the live fleet view: a table of recorders and
// cameras fed by the monitor's update stream.
package tui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/carverauto/camwatch/pkg/models"
	"github.com/carverauto/camwatch/pkg/monitor"
	"github.com/carverauto/camwatch/pkg/registry"
)

const (
	nameColumnWidth   = 24
	ipColumnWidth     = 16
	statusColumnWidth = 18
	methodColumnWidth = 14
	parentColumnWidth = 16

	chromeHeight = 6
)

type deviceUpdateMsg monitor.Update

type fleetCheckDoneMsg models.CheckRun

type statusMsg string

// Model is the bubbletea model for the fleet view. It never mutates the
// roster itself; keys translate to monitor calls and the resulting updates
// flow back through the update channel.
type Model struct {
	ctx      context.Context
	svc      *monitor.Service
	roster   *registry.Roster
	table    table.Model
	styles   styleSet
	statusln string
	drifted  map[string]bool
	checking bool
	width    int
	height   int
}

func New(ctx context.Context, svc *monitor.Service, roster *registry.Roster) *Model {
	columns := []table.Column{
		{Title: "Name", Width: nameColumnWidth},
		{Title: "IP", Width: ipColumnWidth},
		{Title: "Status", Width: statusColumnWidth},
		{Title: "Method", Width: methodColumnWidth},
		{Title: "NVR", Width: parentColumnWidth},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithStyles(newTableStyles()),
	)

	m := &Model{
		ctx:     ctx,
		svc:     svc,
		roster:  roster,
		table:   t,
		styles:  newStyles(),
		drifted: make(map[string]bool),
	}
	m.reloadRows()

	return m
}

func (m *Model) Init() tea.Cmd {
	return m.waitForUpdate()
}

// waitForUpdate blocks on the monitor's update channel and turns each
// applied reconciliation into a bubbletea message.
func (m *Model) waitForUpdate() tea.Cmd {
	return func() tea.Msg {
		select {
		case <-m.ctx.Done():
			return tea.Quit()
		case upd, ok := <-m.svc.Updates():
			if !ok {
				return tea.Quit()
			}

			return deviceUpdateMsg(upd)
		}
	}
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.table.SetHeight(maxInt(msg.Height-chromeHeight, 3))

		return m, nil
	case deviceUpdateMsg:
		if msg.Drifted {
			m.drifted[msg.Record.Name] = true
			m.statusln = fmt.Sprintf("%s moved to %s (was %s)", msg.Record.Name, msg.Record.IP, msg.Record.PreviousIP)
		}

		m.reloadRows()

		return m, m.waitForUpdate()
	case fleetCheckDoneMsg:
		m.checking = false
		m.statusln = fmt.Sprintf("checked %d devices: %d online, %d offline", msg.Targets, msg.Online, msg.Offline)
		m.reloadRows()

		return m, nil
	case statusMsg:
		m.statusln = string(msg)
		m.reloadRows()

		return m, nil
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)
	}

	var cmd tea.Cmd

	m.table, cmd = m.table.Update(msg)

	return m, cmd
}

func (m *Model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit
	case "r":
		return m.startFleetCheck()
	case "enter":
		return m.refreshSelected()
	case "esc":
		m.svc.CancelChecks()
		m.checking = false
		m.statusln = "checks cancelled"

		return m, nil
	}

	var cmd tea.Cmd

	m.table, cmd = m.table.Update(msg)

	return m, cmd
}

func (m *Model) startFleetCheck() (tea.Model, tea.Cmd) {
	if m.checking {
		return m, nil
	}

	m.checking = true
	m.statusln = "checking fleet..."

	return m, func() tea.Msg {
		return fleetCheckDoneMsg(m.svc.CheckFleet(m.ctx))
	}
}

func (m *Model) refreshSelected() (tea.Model, tea.Cmd) {
	row := m.table.SelectedRow()
	if row == nil {
		return m, nil
	}

	name := row[0]

	rec, ok := m.roster.FindByName(name)
	if !ok || rec.Kind != models.KindNVR {
		return m, nil
	}

	m.statusln = fmt.Sprintf("refreshing %s...", name)

	return m, func() tea.Msg {
		if err := m.svc.RefreshNVR(m.ctx, name); err != nil {
			return statusMsg(fmt.Sprintf("refresh %s failed: %v", name, err))
		}

		return statusMsg(fmt.Sprintf("%s refreshed", name))
	}
}

func (m *Model) reloadRows() {
	records := m.roster.Snapshot()
	nvrNames := m.roster.NVRNames()
	rows := make([]table.Row, 0, len(records))

	for i := range records {
		rec := &records[i]

		rows = append(rows, table.Row{
			displayName(rec),
			rec.IP,
			m.statusCell(rec),
			rec.Method,
			m.parentCell(rec, nvrNames),
		})
	}

	m.table.SetRows(rows)
}

// parentCell flags cameras whose recorder is no longer in the roster.
func (m *Model) parentCell(rec *models.DeviceRecord, nvrNames map[string]struct{}) string {
	if rec.Orphaned(nvrNames) {
		return m.styles.offline.Render(rec.ParentNVR + " (gone)")
	}

	return rec.ParentNVR
}

func (m *Model) statusCell(rec *models.DeviceRecord) string {
	label := rec.StatusLabel()

	switch rec.Status {
	case models.StatusOnline:
		label = m.styles.online.Render(label)
	case models.StatusOffline:
		label = m.styles.offline.Render(label)
	default:
		label = m.styles.unknown.Render(label)
	}

	if m.drifted[rec.Name] {
		label += m.styles.drift.Render(" *")
	}

	return label
}

func displayName(rec *models.DeviceRecord) string {
	if rec.Kind == models.KindCamera {
		return "  " + rec.Name
	}

	return rec.Name
}

func (m *Model) View() string {
	header := m.styles.title.Render("camwatch fleet")
	help := m.styles.help.Render("r check fleet • enter refresh NVR • esc cancel • q quit")
	status := m.styles.status.Render(m.statusln)

	return m.styles.app.Render(header + "\n" + m.table.View() + "\n" + status + "\n" + help)
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}

	return b
}
