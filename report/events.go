package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"

	"keyscope/velocity"
)

// ChannelEvents are the note events extracted from one channel
type ChannelEvents struct {
	Channel uint8
	Events  []velocity.NoteEvent
	Err     error
}

// Events writes one table of note events per channel. Velocities are
// shown clamped to 0-127 with the raw estimate when it was out of range.
func (r *Renderer) Events(w io.Writer, all []ChannelEvents) error {
	for _, ce := range all {
		t := r.table("time (s)", "event", "velocity")
		for _, ev := range ce.Events {
			vel := ""
			if ev.Type == velocity.NoteOn {
				clamped := int(velocity.Clamp(ev.Velocity))
				vel = lipgloss.NewStyle().Foreground(r.th.Velocity(clamped)).Render(strconv.Itoa(clamped))
				if clamped != ev.Velocity {
					vel += r.th.Dim().Render(fmt.Sprintf(" (%d)", ev.Velocity))
				}
			}
			t.Row(strconv.FormatFloat(ev.Time, 'f', 6, 64), ev.Type.String(), vel)
		}
		title := fmt.Sprintf("Channel %d: %d events", ce.Channel, len(ce.Events))
		if err := r.section(w, title, t); err != nil {
			return err
		}
		if ce.Err != nil {
			msg := fmt.Sprintf("channel %d: %v", ce.Channel, ce.Err)
			if _, err := fmt.Fprintln(w, lipgloss.NewStyle().Foreground(r.th.Warning()).Render(msg)); err != nil {
				return err
			}
		}
	}
	return nil
}
