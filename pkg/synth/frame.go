package synth

import (
	"time"

	"github.com/abworrall/ccdsim/pkg/detector"
	"github.com/abworrall/ccdsim/pkg/emath"
)

const (
	FrameWidth  = 200
	FrameHeight = 200

	// Where the star sits, in binned pixel coords.
	StarX = 100.0
	StarY = 100.0

	// The bias frame is a science frame with almost no exposure.
	BiasExposureTime = detector.MinExposureTime
)

const (
	KindScience = "science"
	KindBias    = "bias"
)

// A Frame is one synthetic exposure, with everything needed to say
// how it was made. Frames are not modified once rendered.
type Frame struct {
	Kind     string
	Pixels   emath.FloatGrid
	Detector detector.Config // normalized; ExposureTime is what was used
	Profile  detector.NoiseProfile
	Scene    Scene
	Budget   Budget
	Bias     BiasReference
	Seed     uint64
	RunID    string // groups the frames of one simulation run
	Created  time.Time
}

func (f Frame) IsBias() bool { return f.Kind == KindBias }

// WithRunID returns a copy of the frame tagged with a run ID. The
// pixels are shared, which is fine since nothing modifies them.
func (f Frame) WithRunID(id string) Frame {
	f.RunID = id
	return f
}
