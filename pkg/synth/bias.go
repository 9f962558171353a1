package synth

import (
	"errors"
	"fmt"

	"github.com/abworrall/ccdsim/pkg/emath"
)

// How a BiasReference gets added into a frame.
const (
	BiasModeMedian = "median" // a constant offset, the median of the bias frame
	BiasModeFrame  = "frame"  // the whole bias frame, pixel by pixel
)

var ErrBadBias = errors.New("bad bias reference")

// A BiasReference is the zero-exposure offset of the detector, in ADU.
type BiasReference struct {
	Level  float64          // median of Frame, or a configured constant
	Frame  *emath.FloatGrid // nil if we only have a level
	Mode   string           // BiasModeMedian or BiasModeFrame
	Source string           // where it came from, for the record
}

// NewBiasLevel is a flat bias with no spread.
func NewBiasLevel(level float64) BiasReference {
	return BiasReference{
		Level:  level,
		Mode:   BiasModeMedian,
		Source: fmt.Sprintf("level %g", level),
	}
}

// NewBiasFromFrame takes the median of a calibration frame. The frame
// is kept too, so it can be used with BiasModeFrame.
func NewBiasFromFrame(g emath.FloatGrid, source string) (BiasReference, error) {
	if g.Len() == 0 {
		return BiasReference{}, fmt.Errorf("%w: '%s' is empty", ErrBadBias, source)
	}
	if g.HasNonFinite() {
		return BiasReference{}, fmt.Errorf("%w: '%s' has NaN/Inf pixels", ErrBadBias, source)
	}

	frame := g.Copy()
	return BiasReference{
		Level:  frame.Median(),
		Frame:  &frame,
		Mode:   BiasModeMedian,
		Source: source,
	}, nil
}

func (b BiasReference) String() string {
	return fmt.Sprintf("bias %.3f ADU (%s, %s)", b.Level, b.mode(), b.Source)
}

func (b BiasReference) mode() string {
	if b.Mode == "" {
		return BiasModeMedian
	}
	return b.Mode
}

func (b BiasReference) Validate() error {
	switch b.mode() {
	case BiasModeMedian:
		return nil
	case BiasModeFrame:
		if b.Frame == nil {
			return fmt.Errorf("%w: mode %q needs a bias frame, only have %s", ErrBadBias, BiasModeFrame, b.Source)
		}
		if b.Frame.Dx() != FrameWidth || b.Frame.Dy() != FrameHeight {
			return fmt.Errorf("%w: bias frame is %dx%d, want %dx%d", ErrBadBias,
				b.Frame.Dx(), b.Frame.Dy(), FrameWidth, FrameHeight)
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown mode %q", ErrBadBias, b.Mode)
	}
}

// offsetLayer returns the per-pixel offset for the frame: the
// background signal level on top of either the bias median or the full
// bias frame.
func (b BiasReference) offsetLayer(signalLevel float64) emath.FloatGrid {
	if b.mode() == BiasModeFrame {
		g := b.Frame.Copy()
		g.AddScalar(signalLevel)
		return g
	}

	g := emath.NewFloatGrid(FrameWidth, FrameHeight)
	g.AddScalar(b.Level + signalLevel)
	return g
}
