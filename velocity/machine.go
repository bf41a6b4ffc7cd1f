package velocity

import (
	"errors"
	"math"

	"keyscope/series"
)

// State of one key
type State int

const (
	Idle State = iota
	Fly
	Sound
)

func (s State) String() string {
	switch s {
	case Fly:
		return "FLY"
	case Sound:
		return "SOUND"
	}
	return "IDLE"
}

// EventType distinguishes note-on from note-off
type EventType int

const (
	NoteOn EventType = iota
	NoteOff
)

func (t EventType) String() string {
	if t == NoteOn {
		return "note_on"
	}
	return "note_off"
}

// NoteEvent is emitted by the machine. Velocity is only set for NoteOn and
// is not clamped; see Clamp.
type NoteEvent struct {
	Type     EventType
	Time     float64
	Velocity int
}

// keep enough streamed samples for any derivative window
const maxHistory = 64

// Machine is the IDLE -> FLY -> SOUND -> IDLE cycle of one key
type Machine struct {
	profile Profile
	est     Estimator

	state State
	start float64

	history []series.Sample
}

// NewMachine returns a machine in IDLE. The profile is scaled to its bit
// depth here; the machine itself does not care about sample width.
func NewMachine(p Profile, est Estimator) *Machine {
	return &Machine{profile: p.Scaled(), est: est}
}

// State returns the current state
func (m *Machine) State() State {
	return m.state
}

// Feed advances the machine by one streamed sample. Derivative estimators
// only see past samples here, so a centered window becomes a right-edge
// one.
func (m *Machine) Feed(s series.Sample) (*NoteEvent, error) {
	if len(m.history) >= 2*maxHistory {
		m.history = append(m.history[:0], m.history[len(m.history)-maxHistory:]...)
	}
	m.history = append(m.history, s)
	return m.Step(m.history, len(m.history)-1)
}

// Step advances the machine by samples[i]; the whole slice is visible to
// the estimator. Missing samples are skipped. When the estimator fails the
// machine still enters SOUND but no note-on is emitted and the error is
// returned.
func (m *Machine) Step(samples []series.Sample, i int) (*NoteEvent, error) {
	s := samples[i]
	if s.Missing {
		return nil, nil
	}
	v := int(s.Value)
	p := m.profile

	switch m.state {
	case Idle:
		if v < p.LetOff {
			m.state = Fly
			m.start = s.Time
		}
	case Fly:
		if v < p.Strike {
			m.state = Sound
			vel, err := m.est.Estimate(samples, i, m.start, s.Time)
			if err != nil {
				return nil, err
			}
			return &NoteEvent{Type: NoteOn, Time: s.Time, Velocity: int(math.Round(vel))}, nil
		} else if v > p.Drop {
			m.state = Idle
		}
	case Sound:
		if v > p.Drop {
			m.state = Idle
			return &NoteEvent{Type: NoteOff, Time: s.Time}, nil
		}
	}
	return nil, nil
}

// Extract runs a fresh machine over a whole series. All events are
// returned; estimator failures are joined into the error.
func Extract(samples []series.Sample, p Profile, est Estimator) ([]NoteEvent, error) {
	m := NewMachine(p, est)
	var events []NoteEvent
	var errs []error
	for i := range samples {
		ev, err := m.Step(samples, i)
		if err != nil {
			errs = append(errs, err)
		}
		if ev != nil {
			events = append(events, *ev)
		}
	}
	return events, errors.Join(errs...)
}

// Clamp limits a velocity to the MIDI range 0-127
func Clamp(v int) uint8 {
	return uint8(min(max(v, 0), 127))
}
