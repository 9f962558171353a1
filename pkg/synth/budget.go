package synth

import (
	"fmt"
	"math"

	"github.com/abworrall/ccdsim/pkg/detector"
)

// A Budget is the set of numbers that decide what a frame looks like,
// before any random noise gets drawn. All levels are in ADU.
//
// In BiasModeFrame the pixels carry the whole bias frame, so BiasLevel
// and Background are only the frame's median and a per-pixel offset
// around it.
type Budget struct {
	Scale         float64 // ADU per e-/pix/s: t_exp * G_em * bin^2 / gain
	StarAmplitude float64 // peak of the point source
	SignalLevel   float64 // sky plus dark current
	BiasLevel     float64 // the bias median in BiasModeFrame
	BiasMode      string  // how the bias was applied, median or frame
	Background    float64 // BiasLevel + SignalLevel
	Sigma         float64 // stddev of the per-pixel noise
	PSFWidth      float64 // profile width in binned pixels
}

func (b Budget) String() string {
	return fmt.Sprintf("amp %.3f, background %.3f (%s bias %.3f + signal %.3f), sigma %.3f ADU",
		b.StarAmplitude, b.Background, b.BiasMode, b.BiasLevel, b.SignalLevel, b.Sigma)
}

// NoiseBudget works out the levels for a frame. It expects cfg to be
// already normalized, so conventional mode has an EMGain of 1.
//
// The noise is divided by the preamp gain only; the bias is already in
// ADU and is added on afterwards.
func NoiseBudget(np detector.NoiseProfile, scene Scene, cfg detector.Config, biasLevel float64) Budget {
	t := cfg.ExposureTime
	gem := cfg.EMGain
	binSq := float64(cfg.Binning * cfg.Binning)

	b := Budget{BiasLevel: biasLevel}
	b.Scale = t * gem * binSq / np.Gain
	b.StarAmplitude = scene.StarFlux * b.Scale
	b.SignalLevel = (np.DarkCurrent + scene.SkyFlux) * b.Scale
	b.Background = biasLevel + b.SignalLevel

	shot := (scene.SkyFlux + np.DarkCurrent) * t * np.NoiseFactor * np.NoiseFactor * gem * gem * binSq
	b.Sigma = math.Sqrt(np.ReadNoise*np.ReadNoise+shot) / np.Gain

	if cfg.Binning > 0 {
		b.PSFWidth = scene.PSFStdDev / float64(cfg.Binning)
	}

	return b
}
