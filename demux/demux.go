// Package demux routes captured units to per-channel series and to the
// capture statistics.
package demux

import (
	"fmt"
	"iter"

	"github.com/charmbracelet/log"
	"github.com/pkg/errors"

	"keyscope/constants"
	"keyscope/debug"
	"keyscope/packet"
	"keyscope/series"
	"keyscope/stats"
	"keyscope/timebase"
)

// ErrMissingConstant is returned by New when the table lacks a tag the
// demultiplexer needs
var ErrMissingConstant = errors.New("missing constant")

// junk is the data byte the firmware sends in startup and overflow markers
const junk = 0x7F

// Demuxer classifies units one at a time. It is sequential: units must be
// fed in capture order.
type Demuxer struct {
	table *constants.Table
	store *series.Store
	stats *stats.Collector
	log   *log.Logger

	vendor    byte
	maxADC    byte
	rtc       byte
	iterRate  byte
	roundTrip byte

	format     packet.RecordFormat
	recordTick float64
	logEvery   int
	throttle   *debug.Throttle

	rtcClock *timebase.Unwrapper
	recClock *timebase.RecordClock

	now        float64 // time of the latest RTC packet
	lastRTC    bool    // no data sample since the latest RTC packet
	prevRTC    float64
	hasPrevRTC bool
}

// Option configures a Demuxer
type Option func(*Demuxer)

// WithLogger sets the diagnostics logger
func WithLogger(l *log.Logger) Option {
	return func(d *Demuxer) { d.log = l }
}

// WithRecordFormat selects the layout of raw records (default Format12)
func WithRecordFormat(f packet.RecordFormat) Option {
	return func(d *Demuxer) { d.format = f }
}

// DefaultRecordTick is the period of the raw record timestamp in seconds
const DefaultRecordTick = 1e-3

// WithRecordTick sets the period of the raw record timestamp in seconds so
// record samples share the time base of sysex samples
func WithRecordTick(seconds float64) Option {
	return func(d *Demuxer) {
		if seconds > 0 {
			d.recordTick = seconds
		}
	}
}

// WithLogEvery throttles corrupted-packet diagnostics to every n-th one
func WithLogEvery(n int) Option {
	return func(d *Demuxer) { d.logEvery = n }
}

// New builds a demultiplexer writing into store and collector
func New(table *constants.Table, store *series.Store, collector *stats.Collector, opts ...Option) (*Demuxer, error) {
	d := &Demuxer{
		table:    table,
		store:    store,
		stats:    collector,
		format:     packet.Format12,
		recordTick: DefaultRecordTick,
		logEvery:   1,
		throttle:   debug.NewThrottle(),
		rtcClock:   timebase.NewRTC(),
		recClock:   timebase.NewRecordClock(),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.log = debug.Or(d.log)

	tags := []struct {
		name string
		dst  *byte
	}{
		{constants.Vendor, &d.vendor},
		{constants.MaxADCValue, &d.maxADC},
		{constants.RTC, &d.rtc},
		{constants.IterPerMs, &d.iterRate},
		{constants.RoundTrip, &d.roundTrip},
	}
	for _, tag := range tags {
		v, ok := table.Byte(tag.name)
		if !ok {
			return nil, errors.Wrap(ErrMissingConstant, tag.name)
		}
		*tag.dst = v
	}

	return d, nil
}

// Run processes every unit of seq
func (d *Demuxer) Run(seq iter.Seq[packet.Envelope]) {
	for env := range seq {
		d.Process(env)
	}
}

// Process routes one unit. Problems with the unit are logged and counted,
// never returned: the stream always continues.
func (d *Demuxer) Process(env packet.Envelope) {
	d.stats.CountPacket(env.Kind)

	switch env.Kind {
	case packet.KindNoteOn:
		d.stats.Note(true, env.Note, env.Velocity)
	case packet.KindNoteOff:
		d.stats.Note(false, env.Note, env.Velocity)
	case packet.KindSysEx:
		d.processSysEx(env.Payload)
	case packet.KindRecord:
		r, ok := env.Record()
		if !ok {
			d.corrupted("truncated record", env.Payload)
			return
		}
		d.processRecord(r)
	default:
		d.log.Debug("ignoring message", "msg", env)
	}
}

func (d *Demuxer) corrupted(reason string, payload []byte) {
	d.stats.Corrupted()
	d.throttle.Log(d.log, d.logEvery, "corrupted", "corrupted packet",
		"reason", reason, "payload", fmt.Sprintf("% X", payload))
}

func (d *Demuxer) processSysEx(p []byte) {
	if len(p) < 2 {
		d.corrupted("no tag", p)
		return
	}
	if p[0] != d.vendor {
		d.stats.VendorMismatch()
		d.log.Warn("vendor mismatch, possible stream corruption",
			"got", fmt.Sprintf("0x%02X", p[0]),
			"want", fmt.Sprintf("0x%02X", d.vendor))
		return
	}

	tag, data := p[1], p[2:]
	switch {
	case tag <= d.maxADC:
		if len(data) < 2 {
			d.corrupted("short ADC packet", p)
			return
		}
		value := uint16(tag)*128 + uint16(data[0])
		ch := data[1]
		d.store.Append(ch, d.now, value)
		d.stats.Sample(ch)
		d.lastRTC = false

	case tag == d.rtc:
		if len(data) < 2 {
			d.corrupted("short RTC packet", p)
			return
		}
		if d.lastRTC {
			// an RTC interval without data: keep all series aligned
			for _, ch := range d.store.Discovered() {
				d.store.AppendMissing(ch, d.now)
				d.stats.Missing(ch)
			}
		}
		ticks := int(data[0])<<7 | int(data[1])
		t := d.rtcClock.Unwrap(ticks)
		d.stats.RTC(t-d.prevRTC, d.hasPrevRTC)
		d.prevRTC, d.hasPrevRTC = t, true
		d.now = t
		d.lastRTC = true

	case tag == d.iterRate:
		if len(data) < 2 {
			d.corrupted("short iteration packet", p)
			return
		}
		device, rate := data[0], data[1]
		switch {
		case device == junk && rate == junk:
			d.stats.Junk()
		case rate == junk:
			d.stats.Overflow(device)
			d.log.Debug("iteration counter overflow", "device", device)
		default:
			d.stats.IterRate(device, float64(rate))
		}

	case tag == d.roundTrip:
		if len(data) < 2 {
			d.corrupted("short round trip packet", p)
			return
		}
		d.stats.RoundTrip(float64(int(data[0])*128 + int(data[1])))

	default:
		if name, ok := d.table.Name(int(tag)); ok {
			d.stats.OtherTag(name)
			d.log.Info("unhandled packet", "tag", name, "data", fmt.Sprintf("% X", data))
			return
		}
		d.stats.UnknownTag(tag)
		d.log.Warn("unknown tag", "tag", fmt.Sprintf("0x%02X", tag), "data", fmt.Sprintf("% X", data))
	}
}

func (d *Demuxer) processRecord(r packet.Record) {
	t := float64(d.recClock.Unwrap(r.Timestamp())) * d.recordTick
	for _, cv := range r.Samples(d.format) {
		d.store.Append(cv.Channel, t, cv.Value)
		d.stats.Sample(cv.Channel)
	}
}

// Now returns the time of the latest RTC packet
func (d *Demuxer) Now() float64 {
	return d.now
}

// RecordWraps reports how often the record timestamp wrapped
func (d *Demuxer) RecordWraps() int {
	return d.recClock.Wraps()
}
