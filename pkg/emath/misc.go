package emath

import "math"

// Some functions that only operate on basic types, that are useful

// https://www.sjbrown.co.uk/posts/gamma-correct-rendering/ - "linear RGB to sRGB"
// `f` is assumed to be in the range [0,1]
func GammaExpand_F64(f float64) float64 {
	if f <= 0.0031308 {
		return 12.92 * f
	}
	return 1.055*math.Pow(f, 1.0/2.4) - 0.055
}

// Clamp01 pins f into [0,1].
func Clamp01(f float64) float64 {
	if f < 0 {
		return 0
	} else if f > 1 {
		return 1
	}
	return f
}

// AsinhStretch maps f (already normalized to [0,1]) through the
// asinh curve used for faint astronomical detail. Larger `soften`
// values look more linear.
func AsinhStretch(f, soften float64) float64 {
	if soften <= 0 {
		return Clamp01(f)
	}
	return Clamp01(math.Asinh(f/soften) / math.Asinh(1.0/soften))
}
