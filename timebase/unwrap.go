// Package timebase turns wrapping hardware tick counters into monotonic time.
package timebase

const (
	// RTCModulus is the period of the 14 bit firmware clock carried in RTC packets
	RTCModulus = 1 << 14
	// RTCScale converts RTC ticks to seconds
	RTCScale = 1e-6

	// RecordModulus is the period of the timestamp byte of raw records
	RecordModulus = 1 << 8
)

// Unwrap converts raw ticks to time (raw*scale) and adds whole periods of
// modulus*scale until the result is no earlier than prev. Any number of
// missed wraps is absorbed.
func Unwrap(raw, modulus int, scale, prev float64) float64 {
	t, _ := unwrap(raw, modulus, scale, prev)
	return t
}

func unwrap(raw, modulus int, scale, prev float64) (float64, int) {
	period := float64(modulus) * scale
	t := float64(raw) * scale
	if period <= 0 {
		return t, 0
	}
	// jump close to prev first so a long gap does not cost one iteration per period
	k := 0
	if t < prev {
		k = int((prev - t) / period)
		t += float64(k) * period
	}
	for t < prev {
		t += period
		k++
	}
	return t, k
}

// Unwrapper remembers the last unwrapped time of one counter
type Unwrapper struct {
	Modulus int
	Scale   float64

	prev    float64
	started bool
}

// NewRTC returns an unwrapper for the 14 bit microsecond RTC clock
func NewRTC() *Unwrapper {
	return &Unwrapper{Modulus: RTCModulus, Scale: RTCScale}
}

// Unwrap returns the monotonic time of raw and makes it the new reference
func (u *Unwrapper) Unwrap(raw int) float64 {
	raw = raw % u.Modulus
	t, _ := unwrap(raw, u.Modulus, u.Scale, u.prev)
	u.prev = t
	u.started = true
	return t
}

// Last returns the most recent unwrapped time and whether there was one
func (u *Unwrapper) Last() (float64, bool) {
	return u.prev, u.started
}

// Reset forgets the reference time
func (u *Unwrapper) Reset() {
	u.prev = 0
	u.started = false
}

// RecordClock unwraps the 8 bit timestamp byte of raw records, in raw
// units. The wrap count only grows: every period added to reach the
// previous time is kept for all following records, so several wraps
// between two consecutive records accumulate.
type RecordClock struct {
	wraps int
	prev  int
	seen  bool
}

// NewRecordClock returns a clock at zero
func NewRecordClock() *RecordClock {
	return &RecordClock{}
}

// Unwrap returns the monotonic record time for timestamp byte raw
func (c *RecordClock) Unwrap(raw byte) int {
	t := int(raw) + c.wraps*RecordModulus
	for c.seen && t < c.prev {
		c.wraps++
		t += RecordModulus
	}
	c.prev = t
	c.seen = true
	return t
}

// Wraps returns how many times the counter has wrapped so far
func (c *RecordClock) Wraps() int {
	return c.wraps
}
