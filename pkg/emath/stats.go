package emath

import (
	"fmt"
	"math"

	"github.com/codahale/hdrhistogram"
	"gonum.org/v1/gonum/stat"
)

// histScale is how many histogram buckets we get per ADU; values are
// recorded as int64((v-min) * histScale).
const histScale = 100.0

// A Summary holds the numbers you'd want to eyeball about a frame.
type Summary struct {
	N      int
	Min    float64
	Max    float64
	Mean   float64
	StdDev float64
	Median float64
	P01    float64 // 1st percentile
	P99    float64 // 99th percentile
}

func (s Summary) String() string {
	return fmt.Sprintf("n=%d min=%.3f max=%.3f mean=%.3f std=%.3f median=%.3f p01=%.3f p99=%.3f",
		s.N, s.Min, s.Max, s.Mean, s.StdDev, s.Median, s.P01, s.P99)
}

// Summarize computes the moments with gonum, and the percentiles from
// an HDR histogram of the values (good to ~3 significant figures).
func Summarize(g FloatGrid) (Summary, error) {
	if g.Len() == 0 {
		return Summary{}, fmt.Errorf("summarize: empty grid")
	}
	if g.HasNonFinite() {
		return Summary{}, fmt.Errorf("summarize: grid has NaN/Inf values")
	}

	s := Summary{N: g.Len()}
	s.Min, s.Max = g.MinMax()
	s.Mean, s.StdDev = stat.MeanStdDev(g.Values(), nil)
	if g.Len() < 2 {
		s.StdDev = 0
	}
	s.Median = g.Median()

	maxVal := int64(math.Ceil((s.Max-s.Min)*histScale)) + 1
	if maxVal < 2 {
		maxVal = 2
	}
	h := hdrhistogram.New(0, maxVal, 3)
	for _, v := range g.Values() {
		if err := h.RecordValue(int64((v - s.Min) * histScale)); err != nil {
			return s, fmt.Errorf("summarize: histogram: %w", err)
		}
	}

	s.P01 = s.Min + float64(h.ValueAtQuantile(1.0))/histScale
	s.P99 = s.Min + float64(h.ValueAtQuantile(99.0))/histScale

	return s, nil
}
