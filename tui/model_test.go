package tui_test

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"keyscope/constants"
	"keyscope/packet"
	. "keyscope/tui"
)

type source chan packet.Envelope

func (s source) Updates() <-chan packet.Envelope { return s }

func feed(t *testing.T, m tea.Model, msgs ...tea.Msg) Model {
	t.Helper()
	for _, msg := range msgs {
		m, _ = m.Update(msg)
	}
	out, ok := m.(Model)
	require.True(t, ok)
	return out
}

func TestModelCountsUnits(t *testing.T) {
	m := NewModel(make(source), constants.Default(), nil, "test")
	m = feed(t, m,
		EnvelopeMsg(packet.SysEx(0x7D, 0x20, 0, 1)),
		EnvelopeMsg(packet.SysEx(0x7D, 0x1F, 0x10, 66)),
		EnvelopeMsg(packet.SysEx(0x7D, 0x1F, 0x11, 66)),
		EnvelopeMsg(packet.Envelope{Kind: packet.KindNoteOn, Note: 66, Velocity: 70}),
	)

	assert.Equal(t, 4, m.Total())
	assert.Equal(t, 1, m.Count("MIDI_RTC"))
	assert.Equal(t, 2, m.Count("adc"))
	assert.Equal(t, 1, m.Count("note_on"))

	v, ok := m.Latest(66)
	require.True(t, ok)
	assert.Equal(t, uint16(0x1F<<7|0x11), v)
	assert.Contains(t, m.View(), "MIDI_RTC")
}

func TestModelNextReadAfterUnit(t *testing.T) {
	src := make(source, 1)
	m := NewModel(src, constants.Default(), nil, "test")

	_, cmd := m.Update(EnvelopeMsg(packet.SysEx(0x7D, 0x20, 0, 1)))
	require.NotNil(t, cmd)
	close(src)
	assert.Equal(t, ClosedMsg{}, cmd())
}

func TestModelQuits(t *testing.T) {
	m := NewModel(make(source), constants.Default(), nil, "test")
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.QuitMsg{}, cmd())
	assert.Empty(t, next.View())
}
