// Package series stores per-channel (time, value) samples in arrival order.
package series

import "sort"

// Sample is one reading of one channel. A Missing sample keeps series of
// different channels aligned when an expected reading never arrived; its
// Value is meaningless.
type Sample struct {
	Time    float64
	Value   uint16
	Missing bool
}

// Store maps channel ids to append-only sample sequences. Channels are
// discovered as they first appear.
type Store struct {
	channels map[uint8][]Sample
	order    []uint8
}

// NewStore returns an empty store
func NewStore() *Store {
	return &Store{channels: make(map[uint8][]Sample)}
}

func (s *Store) track(ch uint8) {
	if _, ok := s.channels[ch]; !ok {
		s.channels[ch] = nil
		s.order = append(s.order, ch)
	}
}

// Append records a reading of ch at time t
func (s *Store) Append(ch uint8, t float64, v uint16) {
	s.track(ch)
	s.channels[ch] = append(s.channels[ch], Sample{Time: t, Value: v})
}

// AppendMissing records that ch had no reading at time t
func (s *Store) AppendMissing(ch uint8, t float64) {
	s.track(ch)
	s.channels[ch] = append(s.channels[ch], Sample{Time: t, Missing: true})
}

// MarkAllMissing appends a missing sample to every tracked channel and
// returns how many were added
func (s *Store) MarkAllMissing(t float64) int {
	for _, ch := range s.order {
		s.AppendMissing(ch, t)
	}
	return len(s.order)
}

// Samples returns the series of ch. The slice must not be modified.
func (s *Store) Samples(ch uint8) []Sample {
	return s.channels[ch]
}

// Channels returns the tracked channel ids in ascending order
func (s *Store) Channels() []uint8 {
	out := make([]uint8, len(s.order))
	copy(out, s.order)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Discovered returns channel ids in the order they first appeared
func (s *Store) Discovered() []uint8 {
	out := make([]uint8, len(s.order))
	copy(out, s.order)
	return out
}

// Has reports whether ch has been seen
func (s *Store) Has(ch uint8) bool {
	_, ok := s.channels[ch]
	return ok
}

// Len returns the number of samples of ch, missing ones included
func (s *Store) Len(ch uint8) int {
	return len(s.channels[ch])
}

// Present counts the real readings of ch
func (s *Store) Present(ch uint8) int {
	n := 0
	for _, smp := range s.channels[ch] {
		if !smp.Missing {
			n++
		}
	}
	return n
}

// MissingCount counts the missing sentinels of ch
func (s *Store) MissingCount(ch uint8) int {
	return s.Len(ch) - s.Present(ch)
}

// MaxLen is the length of the longest series
func (s *Store) MaxLen() int {
	n := 0
	for _, smp := range s.channels {
		n = max(n, len(smp))
	}
	return n
}
