// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Thermoquad/rfswitch/pkg/rcswitch"
)

// Event log entry
type eventLogEntry struct {
	timestamp time.Time
	message   string
	isError   bool
}

// TUI model
type monitorModel struct {
	source    string
	txInfo    string
	protocols []int
	tolerance int

	stats      rcswitch.Statistics
	statsFn    func() rcswitch.Statistics
	lastResult *rcswitch.Result
	lastSent   string

	eventLog      []eventLogEntry
	maxLogEntries int

	// send transmits a code argument; nil without a transmitter
	send      func(arg string) error
	codeInput textinput.Model
	sending   bool

	width    int
	height   int
	quitting bool
}

// Messages
type monitorTickMsg time.Time

type resultMsg struct {
	result rcswitch.Result
}

type burstMsg struct {
	summary string
}

type sentMsg struct {
	arg string
	err error
}

type sourceDoneMsg struct {
	err error
}

func initialMonitorModel(source, txInfo string, cfg rcswitch.ReceiverConfig, statsFn func() rcswitch.Statistics, send func(string) error) monitorModel {
	ti := textinput.New()
	ti.Placeholder = "0x145551/24"
	ti.Prompt = "Send: "
	ti.CharLimit = 32
	ti.Width = 24
	if send != nil {
		ti.Focus()
	}

	return monitorModel{
		source:        source,
		txInfo:        txInfo,
		protocols:     cfg.Protocols,
		tolerance:     cfg.Tolerance,
		stats:         statsFn(),
		statsFn:       statsFn,
		eventLog:      make([]eventLogEntry, 0),
		maxLogEntries: 100,
		send:          send,
		codeInput:     ti,
		width:         80,
		height:        24,
	}
}

func (m monitorModel) Init() tea.Cmd {
	return tea.Batch(
		monitorTickCmd(),
		textinput.Blink,
	)
}

func monitorTickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return monitorTickMsg(t)
	})
}

func (m monitorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.quitting = true
			return m, tea.Quit
		case tea.KeyEnter:
			return m.submit()
		}
		if m.send == nil && msg.String() == "q" {
			m.quitting = true
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case monitorTickMsg:
		m.stats = m.statsFn()
		m.stats.CalculateRates()
		return m, monitorTickCmd()

	case resultMsg:
		res := msg.result
		m.lastResult = &res
		m.addLogEntry(rcswitch.FormatResult(res), false)

	case burstMsg:
		m.addLogEntry(msg.summary, false)

	case sentMsg:
		m.sending = false
		if msg.err != nil {
			m.addLogEntry(fmt.Sprintf("SEND %s FAILED: %v", msg.arg, msg.err), true)
		} else {
			m.lastSent = msg.arg
			m.addLogEntry(fmt.Sprintf("Sent %s", msg.arg), false)
		}

	case sourceDoneMsg:
		if msg.err != nil {
			m.addLogEntry(fmt.Sprintf("SOURCE STOPPED: %v", msg.err), true)
		} else {
			m.addLogEntry("Source closed", true)
		}
	}

	if m.send == nil {
		return m, nil
	}
	var cmd tea.Cmd
	m.codeInput, cmd = m.codeInput.Update(msg)
	return m, cmd
}

// submit transmits the code typed in the input
func (m monitorModel) submit() (tea.Model, tea.Cmd) {
	arg := strings.TrimSpace(m.codeInput.Value())
	if m.send == nil || arg == "" {
		return m, nil
	}
	if m.sending {
		m.addLogEntry("Transmission in progress", true)
		return m, nil
	}

	m.sending = true
	m.codeInput.Reset()
	send := m.send
	return m, func() tea.Msg {
		return sentMsg{arg: arg, err: send(arg)}
	}
}

func (m *monitorModel) addLogEntry(message string, isError bool) {
	entry := eventLogEntry{
		timestamp: time.Now(),
		message:   message,
		isError:   isError,
	}
	m.eventLog = append(m.eventLog, entry)

	// Keep only last N entries
	if len(m.eventLog) > m.maxLogEntries {
		m.eventLog = m.eventLog[len(m.eventLog)-m.maxLogEntries:]
	}
}

func (m monitorModel) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

	// Styles
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

	statsValueStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("10"))

	errorStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("9")).
		Bold(true)

	warningStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("11"))

	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Padding(0, 1)

	// Header
	var s strings.Builder
	s.WriteString(titleStyle.Render("RFSWITCH - MONITOR"))
	s.WriteString("\n")
	quitKeys := "esc"
	if m.send == nil {
		quitKeys = "'q'"
	}
	s.WriteString(headerStyle.Render(fmt.Sprintf("Source: %s | Protocols: %v | Tolerance: %d%% | Press %s to quit",
		m.source, m.protocols, m.tolerance, quitKeys)))
	s.WriteString("\n\n")

	// Statistics
	var decodedPercent float64
	if m.stats.Bursts > 0 {
		decodedPercent = float64(m.stats.Decoded) * 100.0 / float64(m.stats.Bursts)
	}

	statsContent := strings.Builder{}
	statsContent.WriteString(fmt.Sprintf("%s %s   %s %s   %s %s\n",
		statsLabelStyle.Render("Edges:"), statsValueStyle.Render(fmt.Sprintf("%d", m.stats.Edges)),
		statsLabelStyle.Render("Bursts:"), statsValueStyle.Render(fmt.Sprintf("%d", m.stats.Bursts)),
		statsLabelStyle.Render("Decoded:"), statsValueStyle.Render(fmt.Sprintf("%d (%.1f%%)", m.stats.Decoded, decodedPercent)),
	))

	if m.stats.Mismatches > 0 || m.stats.ShortBursts > 0 || m.stats.Overflows > 0 {
		statsContent.WriteString(fmt.Sprintf("%s %s   %s %s   %s %s\n",
			statsLabelStyle.Render("Mismatches:"), warningStyle.Render(fmt.Sprintf("%d", m.stats.Mismatches)),
			statsLabelStyle.Render("Short:"), warningStyle.Render(fmt.Sprintf("%d", m.stats.ShortBursts)),
			statsLabelStyle.Render("Overflows:"), errorStyle.Render(fmt.Sprintf("%d", m.stats.Overflows)),
		))
	}

	var perProtocol []string
	for i, n := range m.stats.PerProtocol {
		if n > 0 {
			perProtocol = append(perProtocol, fmt.Sprintf("%d: %d", i+1, n))
		}
	}
	if len(perProtocol) > 0 {
		statsContent.WriteString(fmt.Sprintf("%s %s\n",
			statsLabelStyle.Render("By protocol:"), statsValueStyle.Render(strings.Join(perProtocol, ", ")),
		))
	}

	statsContent.WriteString(fmt.Sprintf("%s %s   %s %s",
		statsLabelStyle.Render("Burst Rate:"), statsValueStyle.Render(fmt.Sprintf("%.1f bursts/s", m.stats.BurstRate)),
		statsLabelStyle.Render("Decode Rate:"), statsValueStyle.Render(fmt.Sprintf("%.1f codes/s", m.stats.DecodeRate)),
	))

	s.WriteString(boxStyle.Render(statsContent.String()))
	s.WriteString("\n\n")

	// Last code (only shown once something decoded)
	if m.lastResult != nil {
		s.WriteString(statsLabelStyle.Render("Last Code:"))
		s.WriteString("\n")
		s.WriteString(boxStyle.Render(statsValueStyle.Render(rcswitch.FormatResult(*m.lastResult))))
		s.WriteString("\n\n")
	}

	// Event log
	s.WriteString(statsLabelStyle.Render("Recent Events:"))
	s.WriteString("\n")

	logHeight := m.height - 17
	if logHeight < 5 {
		logHeight = 5
	}

	logContent := strings.Builder{}
	startIdx := len(m.eventLog) - logHeight
	if startIdx < 0 {
		startIdx = 0
	}

	if len(m.eventLog) == 0 {
		logContent.WriteString(headerStyle.Render("  (no events yet)"))
	} else {
		for i := startIdx; i < len(m.eventLog); i++ {
			entry := m.eventLog[i]
			timestamp := entry.timestamp.Format("15:04:05.000")
			if entry.isError {
				logContent.WriteString(fmt.Sprintf("%s %s\n",
					headerStyle.Render(timestamp),
					errorStyle.Render("✗ "+entry.message),
				))
			} else {
				logContent.WriteString(fmt.Sprintf("%s %s\n",
					headerStyle.Render(timestamp),
					statsValueStyle.Render("• "+entry.message),
				))
			}
		}
	}

	s.WriteString(boxStyle.Width(m.width - 4).Render(logContent.String()))

	// Transmit input
	if m.send != nil {
		s.WriteString("\n")
		s.WriteString(m.codeInput.View())
		if m.sending {
			s.WriteString(warningStyle.Render("  sending..."))
		}
		s.WriteString("\n")
		s.WriteString(headerStyle.Render(fmt.Sprintf("Transmitter: %s | value/bits or a profile name, enter to send", m.txInfo)))
	}

	return s.String()
}
