// Package packet classifies captured units: MIDI messages carrying sensor
// telemetry in sysex payloads, and fixed-size raw binary records.
package packet

import (
	"fmt"

	gomidi "gitlab.com/gomidi/midi/v2"
)

// Kind discriminates captured units
type Kind int

const (
	KindOther Kind = iota
	KindNoteOn
	KindNoteOff
	KindSysEx
	KindRecord
)

func (k Kind) String() string {
	switch k {
	case KindNoteOn:
		return "note_on"
	case KindNoteOff:
		return "note_off"
	case KindSysEx:
		return "sysex"
	case KindRecord:
		return "record"
	}
	return "other"
}

// Envelope is one captured unit. For sysex, Payload holds the bytes between
// F0 and F7: vendor, tag, then up to four data bytes. For records it holds
// the raw record bytes, which may be short when the input was truncated.
type Envelope struct {
	Kind     Kind
	Payload  []byte
	Channel  uint8
	Note     uint8
	Velocity uint8
}

// FromMessage classifies a MIDI message. A note-on with velocity 0 is a
// note-off.
func FromMessage(msg gomidi.Message) Envelope {
	var ch, key, vel uint8
	var data []byte

	switch {
	case msg.GetSysEx(&data):
		return Envelope{Kind: KindSysEx, Payload: data}
	case msg.GetNoteStart(&ch, &key, &vel):
		return Envelope{Kind: KindNoteOn, Channel: ch, Note: key, Velocity: vel}
	case msg.GetNoteOff(&ch, &key, &vel):
		return Envelope{Kind: KindNoteOff, Channel: ch, Note: key, Velocity: vel}
	case msg.GetNoteEnd(&ch, &key):
		return Envelope{Kind: KindNoteOff, Channel: ch, Note: key}
	}
	return Envelope{Kind: KindOther, Payload: msg.Bytes()}
}

// SysEx builds a sysex envelope from vendor, tag and data bytes
func SysEx(vendor, tag byte, data ...byte) Envelope {
	payload := make([]byte, 0, 2+len(data))
	payload = append(payload, vendor, tag)
	payload = append(payload, data...)
	return Envelope{Kind: KindSysEx, Payload: payload}
}

// FromRecord wraps a raw record
func FromRecord(r Record) Envelope {
	return Envelope{Kind: KindRecord, Payload: append([]byte(nil), r[:]...)}
}

// Record returns the raw record carried by the envelope, or false if the
// envelope is not a record or is too short to be one
func (e Envelope) Record() (Record, bool) {
	var r Record
	if e.Kind != KindRecord || len(e.Payload) < RecordSize {
		return r, false
	}
	copy(r[:], e.Payload)
	return r, true
}

// Vendor returns the vendor byte of a sysex payload
func (e Envelope) Vendor() (byte, bool) {
	if len(e.Payload) < 1 {
		return 0, false
	}
	return e.Payload[0], true
}

// Tag returns the type tag byte of a sysex payload
func (e Envelope) Tag() (byte, bool) {
	if len(e.Payload) < 2 {
		return 0, false
	}
	return e.Payload[1], true
}

// Data returns the bytes after the tag
func (e Envelope) Data() []byte {
	if len(e.Payload) < 2 {
		return nil
	}
	return e.Payload[2:]
}

// Message converts the envelope back into a MIDI message
func (e Envelope) Message() gomidi.Message {
	switch e.Kind {
	case KindSysEx:
		return gomidi.SysEx(e.Payload)
	case KindNoteOn:
		return gomidi.NoteOn(e.Channel, e.Note, e.Velocity)
	case KindNoteOff:
		return gomidi.NoteOffVelocity(e.Channel, e.Note, e.Velocity)
	case KindOther:
		return gomidi.Message(e.Payload)
	}
	return nil
}

func (e Envelope) String() string {
	switch e.Kind {
	case KindSysEx:
		return fmt.Sprintf("sysex % X", e.Payload)
	case KindNoteOn, KindNoteOff:
		return fmt.Sprintf("%s ch=%d note=%d vel=%d", e.Kind, e.Channel, e.Note, e.Velocity)
	case KindRecord:
		return fmt.Sprintf("record % X", e.Payload)
	}
	return fmt.Sprintf("other % X", e.Payload)
}
