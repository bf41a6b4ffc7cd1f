package stats

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Value is a statistic that may not be available (too few samples)
type Value struct {
	V  float64
	OK bool
}

// NA is the not-available value
var NA = Value{}

// Of wraps a computed number; NaN and Inf are not available
func Of(v float64) Value {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return NA
	}
	return Value{V: v, OK: true}
}

func (v Value) String() string {
	if !v.OK {
		return "N/A"
	}
	return fmt.Sprintf("%.3f", v.V)
}

// Sprintf renders the value with a printf verb, or N/A
func (v Value) Sprintf(verb string) string {
	if !v.OK {
		return "N/A"
	}
	return fmt.Sprintf(verb, v.V)
}

// Accumulator keeps every sample of one metric
type Accumulator struct {
	samples []float64
}

// Add appends a sample
func (a *Accumulator) Add(v float64) {
	a.samples = append(a.samples, v)
}

// N is the number of samples
func (a *Accumulator) N() int {
	return len(a.samples)
}

// Summary describes an accumulator. Mean, Min, Max and quantiles need one
// sample, StdDev (n-1 denominator) needs two.
type Summary struct {
	N      int
	Mean   Value
	StdDev Value
	Min    Value
	Max    Value
	Median Value
	P95    Value
}

// Summary computes the finalized statistics
func (a *Accumulator) Summary() Summary {
	s := Summary{N: len(a.samples)}
	if s.N == 0 {
		return s
	}

	mean, std := stat.MeanStdDev(a.samples, nil)
	s.Mean = Of(mean)
	if s.N >= 2 {
		s.StdDev = Of(std)
	}
	s.Min = Of(floats.Min(a.samples))
	s.Max = Of(floats.Max(a.samples))

	if s.N == 1 {
		s.Median, s.P95 = s.Mean, s.Mean
		return s
	}

	sorted := make([]float64, len(a.samples))
	copy(sorted, a.samples)
	sort.Float64s(sorted)
	s.Median = Of(stat.Quantile(0.5, stat.Empirical, sorted, nil))
	s.P95 = Of(stat.Quantile(0.95, stat.Empirical, sorted, nil))
	return s
}
