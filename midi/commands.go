package midi

import (
	"fmt"
	"math"
	"time"

	"github.com/pkg/errors"
	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"

	"keyscope/constants"
	"keyscope/packet"
	"keyscope/velocity"
)

// Commands builds the host-to-controller sysex messages. Every message is
// vendor, tag and two data bytes, the packet size the firmware reads.
type Commands struct {
	vendor             byte
	dumpNoteADC        byte
	stopDumpADC        byte
	regulate           byte
	continueRegulation byte
	dumpRegulation     byte
}

// NewCommands looks the command tags up in table
func NewCommands(table *constants.Table) (*Commands, error) {
	c := &Commands{}
	for _, tag := range []struct {
		name string
		dst  *byte
	}{
		{constants.Vendor, &c.vendor},
		{constants.DumpNoteADC, &c.dumpNoteADC},
		{constants.StopDumpADC, &c.stopDumpADC},
		{constants.Regulate, &c.regulate},
		{constants.ContinueRegulation, &c.continueRegulation},
		{constants.DumpRegulation, &c.dumpRegulation},
	} {
		v, ok := table.Byte(tag.name)
		if !ok {
			return nil, fmt.Errorf("constant %s not defined", tag.name)
		}
		*tag.dst = v
	}
	return c, nil
}

func (c *Commands) msg(tag, a, b byte) gomidi.Message {
	return gomidi.SysEx([]byte{c.vendor, tag, a & 0x7F, b & 0x7F})
}

// DumpADC asks the controller to stream raw readings of note
func (c *Commands) DumpADC(note uint8) gomidi.Message {
	return c.msg(c.dumpNoteADC, note, 0)
}

// StopDumpADC ends an ADC stream
func (c *Commands) StopDumpADC() gomidi.Message {
	return c.msg(c.stopDumpADC, 0, 0)
}

// DumpRegulation asks for the regulation parameters of note
func (c *Commands) DumpRegulation(note uint8) gomidi.Message {
	return c.msg(c.dumpRegulation, note, 0)
}

// regulationClosers is how many parameterless continue messages end a
// regulation session on the controller
const regulationClosers = 2

// Regulate returns the messages that store p on the controller for note:
// the regulate request, five parameters, then closing messages
func (c *Commands) Regulate(note uint8, p velocity.Profile) ([]gomidi.Message, error) {
	if err := p.Validate(); err != nil {
		return nil, errors.Wrap(err, "regulation")
	}

	msgs := []gomidi.Message{c.msg(c.regulate, note, 0)}
	for _, v := range []int{p.LetOff, p.Strike, p.Drop} {
		hi, lo := EncodeInt(v)
		msgs = append(msgs, c.msg(c.continueRegulation, hi, lo))
	}
	for _, v := range []float64{p.VelocityConst, p.VelocitySlope} {
		whole, hundredths, err := EncodeFloat(v)
		if err != nil {
			return nil, errors.Wrap(err, "regulation")
		}
		msgs = append(msgs, c.msg(c.continueRegulation, whole, hundredths))
	}
	for i := 0; i < regulationClosers; i++ {
		msgs = append(msgs, c.msg(c.continueRegulation, 0, 0))
	}
	return msgs, nil
}

// EncodeInt splits a 14 bit value into 7 bit halves
func EncodeInt(v int) (hi, lo byte) {
	return byte(v>>7) & 0x7F, byte(v) & 0x7F
}

// DecodeInt joins 7 bit halves
func DecodeInt(hi, lo byte) int {
	return int(hi&0x7F)<<7 | int(lo&0x7F)
}

// EncodeFloat splits v into its integer part and hundredths
func EncodeFloat(v float64) (whole, hundredths byte, err error) {
	if v < 0 || v >= 128 {
		return 0, 0, fmt.Errorf("%g does not fit in 7 bits", v)
	}
	cents := int(math.Round(v * 100))
	if cents/100 > 127 {
		return 0, 0, fmt.Errorf("%g does not fit in 7 bits", v)
	}
	return byte(cents / 100), byte(cents % 100), nil
}

// DecodeFloat is the inverse of EncodeFloat
func DecodeFloat(whole, hundredths byte) float64 {
	return float64(whole&0x7F) + float64(hundredths&0x7F)/100
}

// DecodeRegulationDump reads the five regulation replies, in the order the
// controller sends them, from envs. Other units are skipped.
func (c *Commands) DecodeRegulationDump(envs []packet.Envelope) (velocity.Profile, error) {
	var params [][]byte
	for _, env := range envs {
		if env.Kind != packet.KindSysEx {
			continue
		}
		vendor, _ := env.Vendor()
		tag, ok := env.Tag()
		if !ok || vendor != c.vendor || tag != c.dumpRegulation {
			continue
		}
		if data := env.Data(); len(data) >= 2 {
			params = append(params, data)
		}
	}
	if len(params) < 5 {
		return velocity.Profile{}, fmt.Errorf("regulation dump: got %d of 5 parameters", len(params))
	}

	return velocity.Profile{
		LetOff:        DecodeInt(params[0][0], params[0][1]),
		Strike:        DecodeInt(params[1][0], params[1][1]),
		Drop:          DecodeInt(params[2][0], params[2][1]),
		VelocityConst: DecodeFloat(params[3][0], params[3][1]),
		VelocitySlope: DecodeFloat(params[4][0], params[4][1]),
		BitDepth:      12,
	}, nil
}

// commandGap paces messages so the controller queue does not overflow
const commandGap = 10 * time.Millisecond

// Send opens out and writes msgs in order
func Send(out drivers.Out, msgs ...gomidi.Message) error {
	send, err := gomidi.SendTo(out)
	if err != nil {
		return errors.Wrap(err, "open output")
	}
	for _, m := range msgs {
		if err := send(m); err != nil {
			return errors.Wrapf(err, "send % X", m.Bytes())
		}
		time.Sleep(commandGap)
	}
	return nil
}
