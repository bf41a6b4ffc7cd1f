package velocity_test

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"keyscope/series"
	. "keyscope/velocity"
)

func samples(pairs ...float64) []series.Sample {
	var out []series.Sample
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, series.Sample{Time: pairs[i], Value: uint16(pairs[i+1])})
	}
	return out
}

var regulation = Profile{LetOff: 3950, Strike: 2600, Drop: 4080, VelocityConst: 100, VelocitySlope: 30, BitDepth: 12}

func TestComparatorStrike(t *testing.T) {
	est := LogTime{Const: regulation.VelocityConst, Slope: regulation.VelocitySlope}
	events, err := Extract(samples(-5, 4095, 0, 3900, 10, 2500, 20, 4100), regulation, est)
	require.NoError(t, err)

	want := int(math.Round(100 - 30*math.Log10(10)))
	assert.Equal(t, []NoteEvent{
		{Type: NoteOn, Time: 10, Velocity: want},
		{Type: NoteOff, Time: 20},
	}, events)
	assert.Equal(t, 70, want)
}

func TestAbortedStrike(t *testing.T) {
	est := LogTime{Const: 100, Slope: 30}
	m := NewMachine(regulation, est)

	for _, s := range samples(0, 3900, 1, 3000, 2, 4090) {
		ev, err := m.Feed(s)
		assert.NoError(t, err)
		assert.Nil(t, ev)
	}
	assert.Equal(t, Idle, m.State())
}

func TestStateSequence(t *testing.T) {
	m := NewMachine(regulation, LogTime{Const: 100, Slope: 30})
	steps := []struct {
		value uint16
		state State
	}{
		{4095, Idle},
		{3949, Fly},
		{3000, Fly},
		{2599, Sound},
		{4000, Sound},
		{4081, Idle},
	}
	for i, step := range steps {
		_, err := m.Feed(series.Sample{Time: float64(i), Value: step.value})
		require.NoError(t, err)
		assert.Equal(t, step.state, m.State(), "step %d", i)
	}
}

func TestMissingSamplesAreSkipped(t *testing.T) {
	s := samples(0, 3900, 5, 2500, 6, 4100)
	s = append(s[:1], append([]series.Sample{{Time: 2, Missing: true}}, s[1:]...)...)

	events, err := Extract(s, regulation, LogTime{Const: 100, Slope: 30})
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, 5.0, events[0].Time)
}

func TestZeroFlightTimeIsDomainError(t *testing.T) {
	// let-off and strike crossed at the same timestamp
	s := samples(0, 4095, 1, 3900, 1, 2500, 2, 4100)
	events, err := Extract(s, regulation, LogTime{Const: 100, Slope: 30})

	require.Error(t, err)
	var de *DomainError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, 1.0, de.Time)
	assert.Equal(t, 0.0, de.Argument)

	// the key still sounded, so the release is reported
	assert.Equal(t, []NoteEvent{{Type: NoteOff, Time: 2}}, events)
}

func TestEightBitProfileIsScaled(t *testing.T) {
	p := regulation
	p.Drop = 4000
	p.BitDepth = 8
	scaled := p.Scaled()
	assert.Equal(t, 246, scaled.LetOff)
	assert.Equal(t, 162, scaled.Strike)
	assert.Equal(t, 250, scaled.Drop)

	events, err := Extract(samples(0, 255, 1, 240, 3, 150, 4, 255), p, LogTime{Const: 100, Slope: 30})
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, int(math.Round(100-30*math.Log10(2))), events[0].Velocity)
}

func TestDerivativeWeights(t *testing.T) {
	assert.Equal(t, []float64{-0.2, -0.1, 0, 0.1, 0.2}, Derivative{Window: 5}.Weights())
	assert.Len(t, Derivative{Window: 7}.Weights(), 7)
	assert.Len(t, Derivative{}.Weights(), 5)
}

func TestDerivativeEstimator(t *testing.T) {
	// key falling 100 raw units per time unit
	var s []series.Sample
	for i := 0; i < 12; i++ {
		s = append(s, series.Sample{Time: float64(i), Value: uint16(4000 - 100*i)})
	}
	est := Derivative{Const: 100, Slope: 30, Span: 1000, Window: 5}

	// equivalent flight time 1000/100 = 10
	v, err := est.Estimate(s, 6, 0, 6)
	require.NoError(t, err)
	assert.InDelta(t, 70, v, 1e-9)

	right := est
	right.RightEdge = true
	v, err = right.Estimate(s, 6, 0, 6)
	require.NoError(t, err)
	assert.InDelta(t, 70, v, 1e-9)

	// near the end a centered window falls back to the right edge
	v, err = est.Estimate(s, 11, 0, 11)
	require.NoError(t, err)
	assert.InDelta(t, 70, v, 1e-9)

	_, err = right.Estimate(s, 2, 0, 2)
	assert.ErrorIs(t, err, ErrShortWindow)
}

func TestDerivativeRejectsRisingKey(t *testing.T) {
	var s []series.Sample
	for i := 0; i < 5; i++ {
		s = append(s, series.Sample{Time: float64(i), Value: uint16(1000 + 10*i)})
	}
	_, err := Derivative{Const: 100, Slope: 30, Span: 1000}.Estimate(s, 4, 0, 4)
	var de *DomainError
	assert.True(t, errors.As(err, &de))
}

func TestEstimatorsShareTheMachine(t *testing.T) {
	var s []series.Sample
	values := []uint16{4095, 4095, 4095, 3900, 3500, 3100, 2700, 2300, 1900, 1900, 4095, 4095}
	for i, v := range values {
		s = append(s, series.Sample{Time: float64(i), Value: v})
	}
	for _, name := range []string{"log", "sg", "sg-right"} {
		t.Run(name, func(t *testing.T) {
			est, err := ByName(name, regulation)
			require.NoError(t, err)
			events, err := Extract(s, regulation, est)
			require.NoError(t, err)
			require.Len(t, events, 2)
			assert.Equal(t, NoteOn, events[0].Type)
			assert.Equal(t, 7.0, events[0].Time)
			assert.Equal(t, NoteOff, events[1].Type)
			assert.Equal(t, 10.0, events[1].Time)
		})
	}

	_, err := ByName("fft", regulation)
	assert.Error(t, err)
}

func TestClamp(t *testing.T) {
	assert.Equal(t, uint8(0), Clamp(-4))
	assert.Equal(t, uint8(64), Clamp(64))
	assert.Equal(t, uint8(127), Clamp(300))
}

func TestProfileValidate(t *testing.T) {
	assert.NoError(t, DefaultProfile().Validate())
	assert.NoError(t, regulation.Validate())

	bad := regulation
	bad.Strike = 4000
	assert.Error(t, bad.Validate())

	bad = regulation
	bad.Drop = 5000
	assert.Error(t, bad.Validate())
}

func TestLawTimeUnit(t *testing.T) {
	p := DefaultProfile()
	assert.Equal(t, DefaultTimeUnit, p.Unit())
	assert.Equal(t, DefaultTimeUnit, Profile{}.Unit())

	est, err := ByName("log", p)
	require.NoError(t, err)

	// series time in seconds, law in milliseconds
	v, err := est.Estimate(nil, 0, 0.010, 0.015)
	require.NoError(t, err)
	assert.InDelta(t, 57.96+71.3*math.Log10(2.0/5), v, 1e-9)

	p.TimeUnit = 1
	est, err = ByName("log", p)
	require.NoError(t, err)
	v, err = est.Estimate(nil, 0, 0, 2)
	require.NoError(t, err)
	assert.InDelta(t, 57.96, v, 1e-9)

	p.TimeUnit = -1
	assert.Error(t, p.Validate())
}

func TestDerivativeTimeUnit(t *testing.T) {
	// 100 raw units per millisecond, samples one millisecond apart
	var s []series.Sample
	for i := 0; i < 12; i++ {
		s = append(s, series.Sample{Time: float64(i) * 1e-3, Value: uint16(4000 - 100*i)})
	}
	est := Derivative{Const: 100, Slope: 30, Span: 1000, Window: 5, Unit: 1e-3}

	// travelling the 1000 unit span takes 10 ms
	v, err := est.Estimate(s, 6, 0, 6e-3)
	require.NoError(t, err)
	assert.InDelta(t, 70, v, 1e-6)
}
