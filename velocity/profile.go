// Package velocity turns one channel's raw key position series into
// note-on/note-off events.
//
// A key rests above LetOff. Moving below LetOff starts the flight (FLY);
// crossing Strike sounds the note (SOUND) with a velocity derived from the
// flight; rising above Drop releases it. Lower raw values mean a deeper key.
package velocity

import (
	"fmt"
	"math"
)

// Profile is the regulation of one key. Thresholds are in 12 bit raw
// units; Scaled converts them for 8 bit captures. The velocity law takes
// the flight time in units of TimeUnit seconds.
type Profile struct {
	LetOff        int     `json:"letOff"`
	Strike        int     `json:"strike"`
	Drop          int     `json:"drop"`
	VelocityConst float64 `json:"velocityConst"`
	VelocitySlope float64 `json:"velocitySlope"`
	BitDepth      int     `json:"bitDepth,omitempty"`
	TimeUnit      float64 `json:"timeUnit,omitempty"`
}

// DefaultTimeUnit is the firmware's law unit, one millisecond
const DefaultTimeUnit = 1e-3

// Unit returns TimeUnit, or DefaultTimeUnit when unset
func (p Profile) Unit() float64 {
	if p.TimeUnit > 0 {
		return p.TimeUnit
	}
	return DefaultTimeUnit
}

// DefaultProfile matches the firmware power-on regulation, t in ms:
// vel = 57.96 + 71.3*log10(2/t) = (57.96 + 71.3*log10(2)) - 71.3*log10(t)
func DefaultProfile() Profile {
	return Profile{
		LetOff:        2500,
		Strike:        2100,
		Drop:          3000,
		VelocityConst: 57.96 + 71.3*math.Log10(2.0),
		VelocitySlope: 71.3,
		BitDepth:      12,
		TimeUnit:      DefaultTimeUnit,
	}
}

// Scaled returns the profile with thresholds in the units of its BitDepth
func (p Profile) Scaled() Profile {
	if p.BitDepth == 8 {
		p.LetOff /= 16
		p.Strike /= 16
		p.Drop /= 16
	}
	return p
}

// Validate checks ranges and warns (via the returned error) about an
// ordering other than strike < let-off < drop
func (p Profile) Validate() error {
	for _, v := range []int{p.LetOff, p.Strike, p.Drop} {
		if v < 0 || v > 4095 {
			return fmt.Errorf("threshold %d out of range 0-4095", v)
		}
	}
	if p.VelocityConst < 0 || p.VelocityConst > 255 || p.VelocitySlope < 0 || p.VelocitySlope > 255 {
		return fmt.Errorf("velocity coefficients must be 0-255")
	}
	if p.TimeUnit < 0 {
		return fmt.Errorf("time unit %g must be positive", p.TimeUnit)
	}
	if p.BitDepth != 0 && p.BitDepth != 8 && p.BitDepth != 12 {
		return fmt.Errorf("bit depth %d not supported", p.BitDepth)
	}
	if !(p.Strike < p.LetOff && p.LetOff < p.Drop) {
		return fmt.Errorf("expected strike < let-off < drop, got %d, %d, %d", p.Strike, p.LetOff, p.Drop)
	}
	return nil
}
