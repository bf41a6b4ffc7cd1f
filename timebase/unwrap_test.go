package timebase_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	. "keyscope/timebase"
)

func TestUnwrapNoWrap(t *testing.T) {
	assert.InDelta(t, 0.000100, Unwrap(100, RTCModulus, RTCScale, 0), 1e-12)
	assert.InDelta(t, 0.000200, Unwrap(200, RTCModulus, RTCScale, 0.000100), 1e-12)
}

func TestUnwrapSmallestPeriod(t *testing.T) {
	period := float64(RTCModulus) * RTCScale
	cases := []struct {
		name string
		raw  int
		prev float64
		k    int
	}{
		{"equal", 50, 50 * RTCScale, 0},
		{"one wrap", 10, 16000 * RTCScale, 1},
		{"three wraps", 10, 2*period + 16000*RTCScale, 3},
		{"exact boundary", 0, period, 1},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := Unwrap(c.raw, RTCModulus, RTCScale, c.prev)
			want := float64(c.raw)*RTCScale + float64(c.k)*period
			assert.InDelta(t, want, got, 1e-9)
			assert.GreaterOrEqual(t, got+1e-12, c.prev)
			// one period less would be earlier than prev
			assert.Less(t, got-period, c.prev)
		})
	}
}

func TestUnwrapperMonotonicAcrossManyWraps(t *testing.T) {
	u := NewRTC()
	prev := math.Inf(-1)
	// decreasing raw ticks: every step crosses the modulus boundary
	for raw := RTCModulus - 1; raw >= 0; raw -= 997 {
		got := u.Unwrap(raw)
		assert.Greater(t, got, prev)
		prev = got
	}
	last, ok := u.Last()
	assert.True(t, ok)
	assert.Equal(t, prev, last)

	u.Reset()
	_, ok = u.Last()
	assert.False(t, ok)
}

func TestRecordClock(t *testing.T) {
	c := NewRecordClock()
	assert.Equal(t, 250, c.Unwrap(250))
	assert.Equal(t, 255, c.Unwrap(255))
	assert.Equal(t, 256+3, c.Unwrap(3))
	assert.Equal(t, 1, c.Wraps())
	assert.Equal(t, 256+200, c.Unwrap(200))
	assert.Equal(t, 512+1, c.Unwrap(1))
	assert.Equal(t, 2, c.Wraps())
	// same byte twice does not wrap
	assert.Equal(t, 512+1, c.Unwrap(1))
	assert.Equal(t, 2, c.Wraps())
}
