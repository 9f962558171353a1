package emath

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// A FloatGrid is a grid of floats, with some operations. Values are
// stored row-major, so (x,y) lives at values[y*stride + x]; this is
// also the order FITS wants for NAXIS1=width, NAXIS2=height.
type FloatGrid struct {
	stride int
	values []float64
}

func NewFloatGrid(w, h int) FloatGrid {
	return FloatGrid{
		stride: w,
		values: make([]float64, w*h),
	}
}

// NewFloatGridFromValues wraps a row-major slice. It fails if the
// slice doesn't hold exactly w*h values.
func NewFloatGridFromValues(w, h int, vals []float64) (FloatGrid, error) {
	if w <= 0 || h <= 0 {
		return FloatGrid{}, fmt.Errorf("bad grid dimensions %dx%d", w, h)
	}
	if len(vals) != w*h {
		return FloatGrid{}, fmt.Errorf("grid %dx%d wants %d values, got %d", w, h, w*h, len(vals))
	}
	return FloatGrid{stride: w, values: vals}, nil
}

func (g *FloatGrid) NewFromThis() FloatGrid  { return NewFloatGrid(g.Dx(), g.Dy()) }
func (g *FloatGrid) Set(x, y int, v float64) { g.values[g.stride*y+x] = v }
func (g *FloatGrid) Get(x, y int) float64    { return g.values[g.stride*y+x] }
func (g *FloatGrid) Dx() int                 { return g.stride }
func (g *FloatGrid) Len() int                { return len(g.values) }

func (g *FloatGrid) Dy() int {
	if g.stride == 0 {
		return 0
	}
	return len(g.values) / g.stride
}

// Values returns the backing slice; callers must not hang onto it if
// they intend to keep the grid immutable.
func (g *FloatGrid) Values() []float64 { return g.values }

func (g *FloatGrid) Copy() FloatGrid {
	g2 := FloatGrid{stride: g.stride, values: make([]float64, len(g.values))}
	copy(g2.values, g.values)
	return g2
}

func (g *FloatGrid) SameSize(g2 FloatGrid) bool {
	return g.Dx() == g2.Dx() && g.Dy() == g2.Dy()
}

// Add adds g2 into g, pixel by pixel.
func (g *FloatGrid) Add(g2 FloatGrid) error {
	if !g.SameSize(g2) {
		return fmt.Errorf("add: grid %dx%d vs %dx%d", g.Dx(), g.Dy(), g2.Dx(), g2.Dy())
	}
	floats.Add(g.values, g2.values)
	return nil
}

func (g *FloatGrid) AddScalar(v float64) { floats.AddConst(v, g.values) }
func (g *FloatGrid) Scale(v float64)     { floats.Scale(v, g.values) }

// Fill sets every value in the grid by calling f on its coords.
func (g *FloatGrid) Fill(f func(x, y int) float64) {
	for y := 0; y < g.Dy(); y++ {
		for x := 0; x < g.Dx(); x++ {
			g.Set(x, y, f(x, y))
		}
	}
}

// Equal is a bitwise comparison; NaNs never match.
func (g *FloatGrid) Equal(g2 FloatGrid) bool {
	return g.SameSize(g2) && floats.Equal(g.values, g2.values)
}

func (g *FloatGrid) MinMax() (float64, float64) {
	if len(g.values) == 0 {
		return math.NaN(), math.NaN()
	}
	return floats.Min(g.values), floats.Max(g.values)
}

func (g *FloatGrid) Mean() float64 { return stat.Mean(g.values, nil) }

// Variance is the unbiased sample variance.
func (g *FloatGrid) Variance() float64 { return stat.Variance(g.values, nil) }

// Median matches the usual definition; for an even count it averages
// the two middle values.
func (g *FloatGrid) Median() float64 {
	n := len(g.values)
	if n == 0 {
		return math.NaN()
	}

	vals := make([]float64, n)
	copy(vals, g.values)
	sort.Float64s(vals)

	if n%2 == 1 {
		return vals[n/2]
	}
	return (vals[n/2-1] + vals[n/2]) / 2.0
}

// HasNonFinite reports whether any value is NaN or Inf.
func (g *FloatGrid) HasNonFinite() bool {
	for _, v := range g.values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return true
		}
	}
	return false
}

// FindMinMaxAtPercentile returns the values at the two percentiles
// (each in the range [0,1]), e.g. for stretching a display.
func (g *FloatGrid) FindMinMaxAtPercentile(minPrct, maxPrct float64) (float64, float64) {
	if len(g.values) == 0 {
		return math.NaN(), math.NaN()
	}

	vals := make([]float64, len(g.values))
	copy(vals, g.values)
	sort.Float64s(vals)

	iMin := int(minPrct * float64(len(vals)))
	iMax := int(maxPrct * float64(len(vals)))
	if iMin < 0 {
		iMin = 0
	}
	if iMax >= len(vals) {
		iMax = len(vals) - 1
	}
	if iMin > iMax {
		iMin = iMax
	}

	return vals[iMin], vals[iMax]
}

func (g *FloatGrid) Stats() string {
	min, max := g.MinMax()
	return fmt.Sprintf("fg[%dx%d, vals{%f,%f}, mean %f]", g.Dx(), g.Dy(), min, max, g.Mean())
}
