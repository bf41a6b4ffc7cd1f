// Package stats aggregates capture-quality counters for one analysis run
// and renders them into a report on request.
package stats

import (
	"sort"

	"keyscope/packet"
)

// NoteTally counts note events of one key with their cumulative velocity
type NoteTally struct {
	Count       int
	VelocitySum int
}

// Collector is mutated while a stream is demultiplexed. It is owned by a
// single run and is not safe for concurrent use.
type Collector struct {
	packets        map[packet.Kind]int
	vendorMismatch int
	corrupted      int
	junk           int
	unknownTags    map[byte]int
	otherTags      map[string]int

	present map[uint8]int
	missing map[uint8]int

	rtcCount    int
	rtcInterval Accumulator

	iterRate map[uint8]*Accumulator
	overflow map[uint8]int

	roundTrip Accumulator

	noteOn  map[uint8]*NoteTally
	noteOff map[uint8]*NoteTally
}

// NewCollector returns an empty collector
func NewCollector() *Collector {
	return &Collector{
		packets:     make(map[packet.Kind]int),
		unknownTags: make(map[byte]int),
		otherTags:   make(map[string]int),
		present:     make(map[uint8]int),
		missing:     make(map[uint8]int),
		iterRate:    make(map[uint8]*Accumulator),
		overflow:    make(map[uint8]int),
		noteOn:      make(map[uint8]*NoteTally),
		noteOff:     make(map[uint8]*NoteTally),
	}
}

func (c *Collector) CountPacket(k packet.Kind) { c.packets[k]++ }
func (c *Collector) VendorMismatch()           { c.vendorMismatch++ }
func (c *Collector) Corrupted()                { c.corrupted++ }
func (c *Collector) Junk()                     { c.junk++ }
func (c *Collector) UnknownTag(tag byte)       { c.unknownTags[tag]++ }
func (c *Collector) OtherTag(name string)      { c.otherTags[name]++ }
func (c *Collector) Sample(ch uint8)           { c.present[ch]++ }
func (c *Collector) Missing(ch uint8)          { c.missing[ch]++ }
func (c *Collector) Overflow(device uint8)     { c.overflow[device]++ }
func (c *Collector) RoundTrip(us float64)      { c.roundTrip.Add(us) }

// RTC counts a clock packet. interval is the time since the previous one
// and is only recorded when there was a previous one.
func (c *Collector) RTC(interval float64, hasPrev bool) {
	c.rtcCount++
	if hasPrev {
		c.rtcInterval.Add(interval)
	}
}

// IterRate records a loop iterations per ms report of device
func (c *Collector) IterRate(device uint8, rate float64) {
	acc, ok := c.iterRate[device]
	if !ok {
		acc = &Accumulator{}
		c.iterRate[device] = acc
	}
	acc.Add(rate)
}

// Note records a note-on (on == true) or note-off of key
func (c *Collector) Note(on bool, key, velocity uint8) {
	m := c.noteOff
	if on {
		m = c.noteOn
	}
	t, ok := m[key]
	if !ok {
		t = &NoteTally{}
		m[key] = t
	}
	t.Count++
	t.VelocitySum += int(velocity)
}

// ChannelReport is the sample accounting of one channel
type ChannelReport struct {
	Channel uint8
	Present int
	Missing int
}

// DeviceReport is the iteration rate of one device
type DeviceReport struct {
	Device   uint8
	Rate     Summary
	Overflow int
}

// NoteReport is the note event accounting of one key
type NoteReport struct {
	Note           uint8
	On             int
	Off            int
	AvgOnVelocity  Value
	AvgOffVelocity Value
}

// Report is the finalized view of a run
type Report struct {
	Packets          map[string]int
	VendorMismatches int
	Corrupted        int
	Junk             int
	UnknownTags      map[byte]int
	OtherTags        map[string]int

	Channels []ChannelReport

	RTCCount    int
	RTCInterval Summary

	Devices   []DeviceReport
	RoundTrip Summary

	Notes []NoteReport
}

// TotalPackets sums Packets over all kinds
func (r Report) TotalPackets() int {
	n := 0
	for _, v := range r.Packets {
		n += v
	}
	return n
}

// Finalize renders the accumulators. It never fails; missing data shows
// up as zero counts and not-available values.
func (c *Collector) Finalize() Report {
	r := Report{
		Packets:          make(map[string]int, len(c.packets)),
		VendorMismatches: c.vendorMismatch,
		Corrupted:        c.corrupted,
		Junk:             c.junk,
		UnknownTags:      make(map[byte]int, len(c.unknownTags)),
		OtherTags:        make(map[string]int, len(c.otherTags)),
		RTCCount:         c.rtcCount,
		RTCInterval:      c.rtcInterval.Summary(),
		RoundTrip:        c.roundTrip.Summary(),
	}
	for k, v := range c.packets {
		r.Packets[k.String()] = v
	}
	for k, v := range c.unknownTags {
		r.UnknownTags[k] = v
	}
	for k, v := range c.otherTags {
		r.OtherTags[k] = v
	}

	for _, ch := range unionKeys(c.present, c.missing) {
		r.Channels = append(r.Channels, ChannelReport{
			Channel: ch,
			Present: c.present[ch],
			Missing: c.missing[ch],
		})
	}

	devices := make(map[uint8]int)
	for d := range c.iterRate {
		devices[d] = 0
	}
	for _, d := range unionKeys(devices, c.overflow) {
		dr := DeviceReport{Device: d, Overflow: c.overflow[d]}
		if acc, ok := c.iterRate[d]; ok {
			dr.Rate = acc.Summary()
		}
		r.Devices = append(r.Devices, dr)
	}

	keys := make(map[uint8]int)
	for k := range c.noteOn {
		keys[k] = 0
	}
	for k := range c.noteOff {
		keys[k] = 0
	}
	for _, k := range sortedKeys(keys) {
		nr := NoteReport{Note: k}
		if t, ok := c.noteOn[k]; ok {
			nr.On = t.Count
			nr.AvgOnVelocity = average(t)
		}
		if t, ok := c.noteOff[k]; ok {
			nr.Off = t.Count
			nr.AvgOffVelocity = average(t)
		}
		r.Notes = append(r.Notes, nr)
	}

	return r
}

func average(t *NoteTally) Value {
	if t.Count == 0 {
		return NA
	}
	return Of(float64(t.VelocitySum) / float64(t.Count))
}

func unionKeys(a, b map[uint8]int) []uint8 {
	all := make(map[uint8]int, len(a)+len(b))
	for k := range a {
		all[k] = 0
	}
	for k := range b {
		all[k] = 0
	}
	return sortedKeys(all)
}

func sortedKeys(m map[uint8]int) []uint8 {
	out := make([]uint8, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
