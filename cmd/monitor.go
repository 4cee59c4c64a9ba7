// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/Thermoquad/arducomm/pkg/arducomm"
)

var monitorShowAll bool

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Interactive link monitor",
	Long: `Open the link and show live statistics, received messages and link
anomalies in a terminal UI.

Type "<command> [hex payload]" and press Enter to send a message, for
example "0x20 DE AD BE EF". Press Esc or Ctrl+C to quit.`,
	RunE: runMonitor,
}

func init() {
	rootCmd.AddCommand(monitorCmd)
	monitorCmd.Flags().BoolVar(&monitorShowAll, "show-all", true, "Log every received message, not only anomalies")
}

//////////////////////////////////////////////////////////////
// Messages
//////////////////////////////////////////////////////////////

type logEntry struct {
	timestamp time.Time
	message   string
	isError   bool
}

type tickMsg time.Time

type receivedMsg struct {
	msg arducomm.Message
}

type sendResultMsg struct {
	command int
	length  int
	rtt     time.Duration
	err     error
}

//////////////////////////////////////////////////////////////
// Model
//////////////////////////////////////////////////////////////

type monitorModel struct {
	link      *arducomm.Link
	ctx       context.Context
	connInfo  string
	showAll   bool
	stats     arducomm.Statistics
	last      arducomm.Statistics
	validator *arducomm.Validator
	input     textinput.Model
	sending   bool

	eventLog      []logEntry
	maxLogEntries int
	width         int
	height        int
	quitting      bool
}

func initialMonitorModel(ctx context.Context, link *arducomm.Link, connInfo string) monitorModel {
	ti := textinput.New()
	ti.Placeholder = "0x20 DE AD BE EF"
	ti.CharLimit = 3 * arducomm.MaxPayloadSize
	ti.Width = 60
	ti.Prompt = "send> "
	ti.Focus()

	return monitorModel{
		link:          link,
		ctx:           ctx,
		connInfo:      connInfo,
		showAll:       monitorShowAll,
		validator:     arducomm.NewValidator(),
		input:         ti,
		eventLog:      make([]logEntry, 0),
		maxLogEntries: 100,
		width:         80,
		height:        24,
	}
}

// parseMonitorInput splits "<command> [hex payload]"
func parseMonitorInput(line string) (int, []byte, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return 0, nil, errors.New("empty input")
	}
	command, err := parseCommand(fields[0])
	if err != nil {
		return 0, nil, err
	}
	if len(fields) == 1 {
		return command, nil, nil
	}
	payload, err := parseHex(strings.Join(fields[1:], ""))
	if err != nil {
		return 0, nil, err
	}
	return command, payload, nil
}

func (m monitorModel) Init() tea.Cmd {
	return tea.Batch(
		monitorTickCmd(),
		textinput.Blink,
	)
}

func monitorTickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m monitorModel) sendCmd(command int, payload []byte) tea.Cmd {
	return func() tea.Msg {
		start := time.Now()
		err := m.link.Send(m.ctx, command, payload)
		return sendResultMsg{command: command, length: len(payload), rtt: time.Since(start), err: err}
	}
}

func (m monitorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		case "enter":
			line := strings.TrimSpace(m.input.Value())
			if line == "" {
				return m, nil
			}
			if m.sending {
				m.addLogEntry("Previous send still waiting for its ACK", true)
				return m, nil
			}
			command, payload, err := parseMonitorInput(line)
			if err != nil {
				m.addLogEntry(err.Error(), true)
				return m, nil
			}
			m.input.SetValue("")
			m.sending = true
			return m, m.sendCmd(command, payload)
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.input.Width = msg.Width - 12
		return m, nil

	case tickMsg:
		m.refreshStats()
		return m, monitorTickCmd()

	case receivedMsg:
		m.handleReceived(msg.msg)
		return m, nil

	case sendResultMsg:
		m.sending = false
		if msg.err != nil {
			m.addLogEntry(fmt.Sprintf("Send %s failed: %v", arducomm.FormatCommand(uint8(msg.command)), msg.err), true)
		} else {
			m.addLogEntry(fmt.Sprintf("Sent %s len=%d (acked in %s)",
				arducomm.FormatCommand(uint8(msg.command)), msg.length, msg.rtt.Round(time.Millisecond)), false)
		}
		m.refreshStats()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// handleReceived checks an inbound message for sequence anomalies. Every
// delivered message has already been acknowledged, so the matching ACK is
// replayed into the validator.
func (m *monitorModel) handleReceived(msg arducomm.Message) {
	frame := &arducomm.DataFrame{Sequence: msg.Sequence, Command: msg.Command, Payload: msg.Payload}
	errs := m.validator.Observe(frame)
	m.validator.Observe(&arducomm.AckFrame{Sequence: msg.Sequence + 1})

	name := arducomm.FormatCommand(msg.Command)
	for _, err := range errs {
		m.addLogEntry(fmt.Sprintf("%s: %s", name, err.Message), true)
	}
	if len(errs) == 0 && m.showAll {
		m.addLogEntry(fmt.Sprintf("%s seq=%d len=%d % X", name, msg.Sequence, len(msg.Payload), msg.Payload), false)
	}
}

// refreshStats snapshots link statistics and logs counters that moved
func (m *monitorModel) refreshStats() {
	m.last = m.stats
	m.stats = m.link.Statistics()
	m.stats.CalculateRates()

	if d := m.stats.ChecksumErrors - m.last.ChecksumErrors; d > 0 && !m.last.StartTime.IsZero() {
		m.addLogEntry(fmt.Sprintf("%d checksum error(s), retry requested", d), true)
	}
	if d := m.stats.LengthMismatches - m.last.LengthMismatches; d > 0 && !m.last.StartTime.IsZero() {
		m.addLogEntry(fmt.Sprintf("%d length mismatch(es)", d), true)
	}
	if d := m.stats.MalformedFrames - m.last.MalformedFrames; d > 0 && !m.last.StartTime.IsZero() {
		m.addLogEntry(fmt.Sprintf("%d malformed frame(s)", d), true)
	}
	if d := m.stats.Retransmissions - m.last.Retransmissions; d > 0 && !m.last.StartTime.IsZero() {
		m.addLogEntry(fmt.Sprintf("%d retransmission(s)", d), false)
	}
}

func (m *monitorModel) addLogEntry(message string, isError bool) {
	m.eventLog = append(m.eventLog, logEntry{
		timestamp: time.Now(),
		message:   message,
		isError:   isError,
	})

	if len(m.eventLog) > m.maxLogEntries {
		m.eventLog = m.eventLog[len(m.eventLog)-m.maxLogEntries:]
	}
}

func (m monitorModel) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

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

	var s strings.Builder
	s.WriteString(titleStyle.Render("ARDUCOMM - MONITOR"))
	s.WriteString("\n")
	s.WriteString(headerStyle.Render(fmt.Sprintf("%s | next seq=%d | Esc to quit", m.connInfo, m.link.Sequence())))
	s.WriteString("\n\n")

	// Statistics
	st := m.stats
	var validPercent float64
	if st.FramesReceived > 0 {
		validPercent = float64(st.FramesReceived-st.IntegrityErrors()) * 100.0 / float64(st.FramesReceived)
	}

	var stats strings.Builder
	stats.WriteString(fmt.Sprintf("%s %s  %s %s  %s %s\n",
		statsLabelStyle.Render("Frames In:"), statsValueStyle.Render(fmt.Sprintf("%d (%.1f%% valid)", st.FramesReceived, validPercent)),
		statsLabelStyle.Render("Data/ACK:"), statsValueStyle.Render(fmt.Sprintf("%d/%d", st.DataFrames, st.AckFrames)),
		statsLabelStyle.Render("Ghosts:"), statsValueStyle.Render(fmt.Sprintf("%d", st.GhostFrames)),
	))
	stats.WriteString(fmt.Sprintf("%s %s  %s %s  %s %s\n",
		statsLabelStyle.Render("Messages In:"), statsValueStyle.Render(fmt.Sprintf("%d", st.MessagesDelivered)),
		statsLabelStyle.Render("Messages Out:"), statsValueStyle.Render(fmt.Sprintf("%d", st.MessagesSent)),
		statsLabelStyle.Render("Retransmits:"), warningStyle.Render(fmt.Sprintf("%d", st.Retransmissions)),
	))
	stats.WriteString(fmt.Sprintf("%s %s  %s %s  %s %s\n",
		statsLabelStyle.Render("Checksum:"), errorStyle.Render(fmt.Sprintf("%d", st.ChecksumErrors)),
		statsLabelStyle.Render("Timeouts:"), errorStyle.Render(fmt.Sprintf("%d", st.Timeouts)),
		statsLabelStyle.Render("Exhausted:"), errorStyle.Render(fmt.Sprintf("%d", st.RetriesExhausted)),
	))
	stats.WriteString(fmt.Sprintf("%s %s  %s %s",
		statsLabelStyle.Render("Frame Rate:"), statsValueStyle.Render(fmt.Sprintf("%.1f frames/s", st.FrameRate)),
		statsLabelStyle.Render("Error Rate:"), func() string {
			if st.ErrorRate > 0 {
				return errorStyle.Render(fmt.Sprintf("%.1f err/s", st.ErrorRate))
			}
			return statsValueStyle.Render(fmt.Sprintf("%.1f err/s", st.ErrorRate))
		}(),
	))
	s.WriteString(boxStyle.Render(stats.String()))
	s.WriteString("\n\n")

	// Event log
	s.WriteString(statsLabelStyle.Render("Recent Events:"))
	s.WriteString("\n")

	logHeight := m.height - 16
	if logHeight < 5 {
		logHeight = 5
	}
	startIdx := len(m.eventLog) - logHeight
	if startIdx < 0 {
		startIdx = 0
	}

	var logContent strings.Builder
	if len(m.eventLog) == 0 {
		logContent.WriteString(headerStyle.Render("  (no events yet)"))
	} else {
		for _, entry := range m.eventLog[startIdx:] {
			timestamp := entry.timestamp.Format("15:04:05.000")
			if entry.isError {
				logContent.WriteString(fmt.Sprintf("%s %s\n", headerStyle.Render(timestamp), errorStyle.Render("✗ "+entry.message)))
			} else {
				logContent.WriteString(fmt.Sprintf("%s %s\n", headerStyle.Render(timestamp), warningStyle.Render("ℹ "+entry.message)))
			}
		}
	}
	s.WriteString(boxStyle.Width(m.width - 4).Render(logContent.String()))
	s.WriteString("\n")

	s.WriteString(m.input.View())
	if m.sending {
		s.WriteString(warningStyle.Render("  waiting for ACK..."))
	}
	s.WriteString("\n")

	return s.String()
}

//////////////////////////////////////////////////////////////
// Command
//////////////////////////////////////////////////////////////

func runMonitor(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	link, connInfo, err := OpenLink(ctx)
	if err != nil {
		return err
	}
	defer link.Stop()

	m := initialMonitorModel(ctx, link, connInfo)
	p := tea.NewProgram(m, tea.WithAltScreen())

	link.RegisterHandler(arducomm.HandlerFunc(func(msg arducomm.Message) {
		p.Send(receivedMsg{msg: msg})
	}))

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("monitor: %w", err)
	}
	return nil
}
