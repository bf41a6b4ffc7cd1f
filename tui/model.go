// Package tui is the live capture monitor.
package tui

import (
	"fmt"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"keyscope/constants"
	"keyscope/packet"
	"keyscope/theme"
)

// Source delivers captured units until it is stopped, then closes the
// channel
type Source interface {
	Updates() <-chan packet.Envelope
}

const recentLines = 8

type Model struct {
	Source Source
	Table  *constants.Table
	Theme  *theme.Theme
	Title  string

	vendor byte
	maxADC byte

	started  time.Time
	total    int
	byLabel  map[string]int
	latest   map[uint8]uint16
	recent   []string
	done     bool
	quitting bool
}

// EnvelopeMsg carries one captured unit
type EnvelopeMsg packet.Envelope

// ClosedMsg is sent once the source has stopped
type ClosedMsg struct{}

func NewModel(src Source, table *constants.Table, th *theme.Theme, title string) Model {
	if th == nil {
		th = theme.New(nil)
	}
	vendor, _ := table.Byte(constants.Vendor)
	maxADC, _ := table.Byte(constants.MaxADCValue)
	return Model{
		Source:  src,
		Table:   table,
		Theme:   th,
		Title:   title,
		vendor:  vendor,
		maxADC:  maxADC,
		started: time.Now(),
		byLabel: make(map[string]int),
		latest:  make(map[uint8]uint16),
	}
}

func ListenForUpdates(src Source) tea.Cmd {
	return func() tea.Msg {
		env, ok := <-src.Updates()
		if !ok {
			return ClosedMsg{}
		}
		return EnvelopeMsg(env)
	}
}

func (m Model) Init() tea.Cmd {
	return ListenForUpdates(m.Source)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		}

	case EnvelopeMsg:
		m.observe(packet.Envelope(msg))
		return m, ListenForUpdates(m.Source)

	case ClosedMsg:
		m.done = true
		return m, tea.Quit
	}

	return m, nil
}

// Total is the number of units seen
func (m Model) Total() int {
	return m.total
}

// Count returns how many units carried label (a kind or a tag name)
func (m Model) Count(label string) int {
	return m.byLabel[label]
}

// Latest returns the most recent ADC value of note
func (m Model) Latest(note uint8) (uint16, bool) {
	v, ok := m.latest[note]
	return v, ok
}

// observe mutates the maps shared by every copy of the model; only the
// bubbletea loop calls it
func (m *Model) observe(env packet.Envelope) {
	m.total++
	m.byLabel[m.label(env)]++

	if env.Kind == packet.KindSysEx {
		vendor, _ := env.Vendor()
		tag, ok := env.Tag()
		if data := env.Data(); ok && vendor == m.vendor && tag <= m.maxADC && len(data) >= 2 {
			m.latest[data[1]] = uint16(tag)<<7 | uint16(data[0])
		}
	}

	m.recent = append(m.recent, env.String())
	if len(m.recent) > recentLines {
		m.recent = m.recent[len(m.recent)-recentLines:]
	}
}

func (m Model) label(env packet.Envelope) string {
	if env.Kind != packet.KindSysEx {
		return env.Kind.String()
	}
	tag, ok := env.Tag()
	if !ok {
		return "corrupted"
	}
	if tag <= m.maxADC {
		return "adc"
	}
	return m.Table.Format(int(tag))
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	headerStyle := lipgloss.NewStyle().Foreground(m.Theme.Accent()).Bold(true)
	dimStyle := m.Theme.Dim()

	elapsed := time.Since(m.started).Truncate(time.Second)
	state := "REC"
	if m.done {
		state = "STOPPED"
	}

	var out strings.Builder
	out.WriteString("\n")
	out.WriteString(headerStyle.Render(fmt.Sprintf("keyscope  %s  %s  %s  %d units", m.Title, state, elapsed, m.total)))
	out.WriteString("\n\n")

	labels := make([]string, 0, len(m.byLabel))
	for l := range m.byLabel {
		labels = append(labels, l)
	}
	sort.Strings(labels)
	for _, l := range labels {
		fmt.Fprintf(&out, "  %-28s %8d\n", l, m.byLabel[l])
	}

	if len(m.latest) > 0 {
		out.WriteString("\n")
		notes := make([]int, 0, len(m.latest))
		for n := range m.latest {
			notes = append(notes, int(n))
		}
		sort.Ints(notes)
		for _, n := range notes {
			v := m.latest[uint8(n)]
			style := lipgloss.NewStyle().Foreground(m.Theme.Velocity(int(v) >> 5))
			fmt.Fprintf(&out, "  note %3d %s\n", n, style.Render(fmt.Sprintf("%4d", v)))
		}
	}

	out.WriteString("\n")
	for _, line := range m.recent {
		out.WriteString(dimStyle.Render("  " + line))
		out.WriteString("\n")
	}

	out.WriteString("\n")
	out.WriteString(dimStyle.Render("q:stop and save"))
	return out.String()
}
