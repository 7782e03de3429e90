// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Thermoquad/stationlink/pkg/dsproto"
)

//////////////////////////////////////////////////////////////
// Types
//////////////////////////////////////////////////////////////

const consoleRefresh = 250 * time.Millisecond

// consoleEntry is one line of the console history
type consoleEntry struct {
	timestamp time.Time
	message   string
	isError   bool
}

// consoleModel is the Bubble Tea model for the operator console
type consoleModel struct {
	proto *dsproto.Protocol
	stats *dsproto.Statistics

	input       textinput.Model
	history     []consoleEntry
	maxEntries  int
	width       int
	quitting    bool
	stationDone bool
}

//////////////////////////////////////////////////////////////
// Messages
//////////////////////////////////////////////////////////////

type consoleTickMsg time.Time

// consoleLogMsg carries one formatted log line from the station
type consoleLogMsg string

// stationStoppedMsg tells the console the station has returned
type stationStoppedMsg struct {
	err error
}

//////////////////////////////////////////////////////////////
// Model Initialization
//////////////////////////////////////////////////////////////

func newConsoleModel(proto *dsproto.Protocol, stats *dsproto.Statistics) consoleModel {
	ti := textinput.New()
	ti.Placeholder = `type "help"`
	ti.Prompt = "> "
	ti.CharLimit = 64
	ti.Width = 40
	ti.Focus()

	return consoleModel{
		proto:      proto,
		stats:      stats,
		input:      ti,
		maxEntries: 12,
	}
}

//////////////////////////////////////////////////////////////
// Bubble Tea Interface
//////////////////////////////////////////////////////////////

func (m consoleModel) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, consoleTickCmd())
}

func consoleTickCmd() tea.Cmd {
	return tea.Tick(consoleRefresh, func(t time.Time) tea.Msg {
		return consoleTickMsg(t)
	})
}

func (m consoleModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case consoleTickMsg:
		// The view reads the protocol state on every render
		return m, consoleTickCmd()

	case consoleLogMsg:
		m.addEntry(string(msg), false)
		return m, nil

	case stationStoppedMsg:
		m.stationDone = true
		if msg.err != nil {
			m.addEntry(msg.err.Error(), true)
		}
		m.quitting = true
		return m, tea.Quit
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m consoleModel) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "esc":
		m.quitting = true
		return m, tea.Quit

	case "enter":
		line := strings.TrimSpace(m.input.Value())
		m.input.Reset()
		if line == "" {
			return m, nil
		}
		if line == "quit" || line == "exit" {
			m.quitting = true
			return m, tea.Quit
		}

		m.addEntry("> "+line, false)
		out, err := applyCommand(m.proto, line)
		if err != nil {
			m.addEntry(err.Error(), true)
			return m, nil
		}
		// The state panel already shows the result of most commands
		if out != "" && out != formatState(m.proto) {
			for _, l := range strings.Split(out, "\n") {
				m.addEntry(l, false)
			}
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m consoleModel) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

	var s strings.Builder

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("12")).
		Background(lipgloss.Color("235")).
		Padding(0, 1)

	headerStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241"))

	statsLabelStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("12")).
		Bold(true)

	errorStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("9")).
		Bold(true)

	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Padding(0, 1)

	s.WriteString(titleStyle.Render("STATIONLINK"))
	s.WriteString(" ")
	s.WriteString(headerStyle.Render(fmt.Sprintf("| %s | Enter=run Esc=quit", m.proto.Name())))
	s.WriteString("\n\n")

	s.WriteString(boxStyle.Render(formatState(m.proto)))
	s.WriteString("\n")

	if m.stats != nil {
		robot := m.stats.Channel(dsproto.ChannelRobot)
		fms := m.stats.Channel(dsproto.ChannelFMS)
		s.WriteString(fmt.Sprintf(" %s sent=%d recv=%d rejected=%d resets=%d\n",
			statsLabelStyle.Render("Robot:"), robot.Sent, robot.Received, robot.Rejected, robot.Resets))
		s.WriteString(fmt.Sprintf(" %s sent=%d recv=%d rejected=%d resets=%d\n",
			statsLabelStyle.Render("FMS:  "), fms.Sent, fms.Received, fms.Rejected, fms.Resets))
	}
	s.WriteString("\n")

	for _, entry := range m.history {
		line := fmt.Sprintf("%s %s", entry.timestamp.Format("15:04:05"), entry.message)
		if entry.isError {
			line = errorStyle.Render(line)
		}
		s.WriteString(line)
		s.WriteString("\n")
	}

	s.WriteString("\n")
	s.WriteString(m.input.View())
	s.WriteString("\n")
	return s.String()
}

//////////////////////////////////////////////////////////////
// Helpers
//////////////////////////////////////////////////////////////

func (m *consoleModel) addEntry(message string, isError bool) {
	m.history = append(m.history, consoleEntry{
		timestamp: time.Now(),
		message:   message,
		isError:   isError,
	})
	if len(m.history) > m.maxEntries {
		m.history = m.history[len(m.history)-m.maxEntries:]
	}
}

// consoleLogWriter feeds zerolog console output into a running program
type consoleLogWriter struct {
	p *tea.Program
}

func (w *consoleLogWriter) Write(b []byte) (int, error) {
	if w.p != nil {
		w.p.Send(consoleLogMsg(strings.TrimRight(string(b), "\n")))
	}
	return len(b), nil
}
