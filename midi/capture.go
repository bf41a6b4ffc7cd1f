package midi

import (
	"sync"
	"time"

	"github.com/pkg/errors"
	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"

	"keyscope/container"
	"keyscope/packet"
)

// Capture records everything arriving on an input port. The driver calls
// back on its own thread; the buffer is only handed out by Stop.
type Capture struct {
	mu       sync.Mutex
	msgs     []container.Timed
	counts   map[packet.Kind]int
	stopFunc func()
	stopped  bool

	updates chan packet.Envelope
}

// Counts is a snapshot of what has been captured so far
type Counts struct {
	Total  int
	ByKind map[packet.Kind]int
}

// Listen starts recording in, sysex included
func Listen(in drivers.In) (*Capture, error) {
	c := newCapture()
	stop, err := gomidi.ListenTo(in, func(msg gomidi.Message, timestampms int32) {
		c.Record(msg, time.Duration(timestampms)*time.Millisecond)
	}, gomidi.UseSysEx())
	if err != nil {
		return nil, errors.Wrap(err, "open input")
	}
	c.stopFunc = stop
	return c, nil
}

func newCapture() *Capture {
	return &Capture{
		counts:  make(map[packet.Kind]int),
		updates: make(chan packet.Envelope, 64),
	}
}

// NewManual returns a capture that is fed through Record only
func NewManual() *Capture {
	return newCapture()
}

// Record appends one message. Messages arriving after Stop are dropped.
func (c *Capture) Record(msg gomidi.Message, offset time.Duration) {
	env := packet.FromMessage(msg)

	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return
	}
	// the driver may reuse its buffer
	cp := append(gomidi.Message(nil), msg...)
	c.msgs = append(c.msgs, container.Timed{Msg: cp, Offset: offset})
	c.counts[env.Kind]++

	select {
	case c.updates <- env:
	default:
	}
	c.mu.Unlock()
}

// Updates delivers captured units as they arrive; slow readers miss some
func (c *Capture) Updates() <-chan packet.Envelope {
	return c.updates
}

// Snapshot returns the current counts
func (c *Capture) Snapshot() Counts {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := Counts{Total: len(c.msgs), ByKind: make(map[packet.Kind]int, len(c.counts))}
	for k, v := range c.counts {
		s.ByKind[k] = v
	}
	return s
}

// Stop ends the capture and returns what was recorded. Only after Stop
// may the messages be analysed.
func (c *Capture) Stop() []container.Timed {
	c.mu.Lock()
	if c.stopped {
		msgs := c.msgs
		c.mu.Unlock()
		return msgs
	}
	c.stopped = true
	stop := c.stopFunc
	msgs := c.msgs
	close(c.updates)
	c.mu.Unlock()

	if stop != nil {
		stop()
	}
	return msgs
}

// Envelopes classifies captured messages for the demultiplexer
func Envelopes(msgs []container.Timed) []packet.Envelope {
	out := make([]packet.Envelope, len(msgs))
	for i, m := range msgs {
		out[i] = packet.FromMessage(m.Msg)
	}
	return out
}
