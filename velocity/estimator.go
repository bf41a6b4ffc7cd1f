package velocity

import (
	"fmt"
	"math"

	"github.com/pkg/errors"

	"keyscope/series"
)

// Estimator computes the velocity of a strike. history holds the channel
// series, idx is the sample that crossed Strike, start is the time the key
// crossed LetOff and now the time of history[idx].
type Estimator interface {
	Estimate(history []series.Sample, idx int, start, now float64) (float64, error)
}

// DomainError reports a non-positive argument to the logarithmic velocity
// law. It means thresholds and timestamps disagree.
type DomainError struct {
	Time     float64
	Argument float64
	Reason   string
}

func (e *DomainError) Error() string {
	return fmt.Sprintf("velocity at t=%g: %s (log10 argument %g)", e.Time, e.Reason, e.Argument)
}

// LogTime is the comparator law: Const - Slope*log10((now - start) / Unit).
// Unit is the length of one law time unit in series time; zero means the
// series is already in law units.
type LogTime struct {
	Const float64
	Slope float64
	Unit  float64
}

func (l LogTime) Estimate(_ []series.Sample, _ int, start, now float64) (float64, error) {
	elapsed := inUnits(now-start, l.Unit)
	if elapsed <= 0 {
		return 0, &DomainError{Time: now, Argument: elapsed, Reason: "non-positive flight time"}
	}
	return l.Const - l.Slope*math.Log10(elapsed), nil
}

func inUnits(t, unit float64) float64 {
	if unit > 0 {
		return t / unit
	}
	return t
}

// Derivative estimates the key speed at the strike with a Savitzky-Golay
// first derivative and converts it to the flight time a key moving at that
// speed needs to travel Span (let-off minus strike), then applies the same
// law as LogTime.
type Derivative struct {
	Const float64
	Slope float64
	Span  float64
	// Unit is as in LogTime
	Unit float64
	// Window is the odd filter width, 5 when zero
	Window int
	// RightEdge ends the window at the crossing sample instead of
	// centering it there
	RightEdge bool
}

// ErrShortWindow is returned when the series does not hold a full window
// of real samples around the crossing
var ErrShortWindow = errors.New("not enough samples for derivative window")

func (d Derivative) width() int {
	w := d.Window
	if w < 3 {
		w = 5
	}
	if w%2 == 0 {
		w++
	}
	return w
}

// Weights returns the filter coefficients, oldest sample first
func (d Derivative) Weights() []float64 {
	w := d.width()
	m := w / 2
	norm := 0.0
	for k := -m; k <= m; k++ {
		norm += float64(k * k)
	}
	out := make([]float64, w)
	for i := range out {
		out[i] = float64(i-m) / norm
	}
	return out
}

func (d Derivative) Estimate(history []series.Sample, idx int, start, now float64) (float64, error) {
	w := d.width()
	m := w / 2

	first := idx - m
	if d.RightEdge || idx+m >= len(history) {
		first = idx - 2*m
	}
	last := first + w - 1
	if first < 0 || last >= len(history) {
		return 0, ErrShortWindow
	}

	weights := d.Weights()
	slope := 0.0
	for i, wt := range weights {
		s := history[first+i]
		if s.Missing {
			return 0, ErrShortWindow
		}
		slope += wt * float64(s.Value)
	}

	step := (history[last].Time - history[first].Time) / float64(w-1)
	if step <= 0 {
		return 0, &DomainError{Time: now, Argument: step, Reason: "non-increasing sample times"}
	}

	// the key moves down, so the raw value falls
	speed := -slope / step
	if speed <= 0 || d.Span <= 0 {
		return 0, &DomainError{Time: now, Argument: speed, Reason: "key not moving towards strike"}
	}
	flight := inUnits(d.Span/speed, d.Unit)
	return d.Const - d.Slope*math.Log10(flight), nil
}

// ByName selects an estimator for profile p: "log", "sg" (centered
// derivative) or "sg-right" (derivative ending at the crossing)
func ByName(name string, p Profile) (Estimator, error) {
	p = p.Scaled()
	switch name {
	case "", "log":
		return LogTime{Const: p.VelocityConst, Slope: p.VelocitySlope, Unit: p.Unit()}, nil
	case "sg", "sg-right":
		return Derivative{
			Const:     p.VelocityConst,
			Slope:     p.VelocitySlope,
			Span:      float64(p.LetOff - p.Strike),
			Unit:      p.Unit(),
			Window:    5,
			RightEdge: name == "sg-right",
		}, nil
	}
	return nil, fmt.Errorf("unknown estimator %q (want log, sg or sg-right)", name)
}
