package synth

import (
	"fmt"
	"time"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/abworrall/ccdsim/pkg/detector"
	"github.com/abworrall/ccdsim/pkg/emath"
)

// The science and bias frames draw from separate streams, so a bias
// frame rendered on its own matches the one from Render with the same
// seed.
const (
	scienceStream uint64 = 0x5c1e0ce5c1e0ce00
	biasStream    uint64 = 0xb1a5b1a5b1a5b1a5
)

func newSource(seed, stream uint64) rand.Source {
	return rand.NewSource(seed ^ stream)
}

// Render produces a science frame and its matching bias frame. The
// noise is entirely determined by seed.
func Render(np detector.NoiseProfile, scene Scene, cfg detector.Config, bias BiasReference, seed uint64) (Frame, Frame, error) {
	science, err := RenderScience(np, scene, cfg, bias, seed)
	if err != nil {
		return Frame{}, Frame{}, err
	}

	biasFrame, err := RenderBias(np, cfg, bias, seed)
	if err != nil {
		return Frame{}, Frame{}, err
	}

	return science, biasFrame, nil
}

// RenderScience renders just the exposure of the scene.
func RenderScience(np detector.NoiseProfile, scene Scene, cfg detector.Config, bias BiasReference, seed uint64) (Frame, error) {
	return render(KindScience, np, scene, cfg.Normalize(), bias, seed, newSource(seed, scienceStream))
}

// RenderBias renders what the detector gives with the shutter closed
// for the shortest possible exposure: no star, no sky, and only
// BiasExposureTime worth of dark current.
func RenderBias(np detector.NoiseProfile, cfg detector.Config, bias BiasReference, seed uint64) (Frame, error) {
	cfg = cfg.Normalize()
	cfg.ExposureTime = BiasExposureTime

	dark := Scene{PSFStdDev: 1}
	return render(KindBias, np, dark, cfg, bias, seed, newSource(seed, biasStream))
}

// SourceLayer is the noiseless point source on its own, in ADU.
func SourceLayer(np detector.NoiseProfile, scene Scene, cfg detector.Config) (emath.FloatGrid, error) {
	cfg = cfg.Normalize()
	if err := checkInputs(np, scene, cfg); err != nil {
		return emath.FloatGrid{}, err
	}
	b := NoiseBudget(np, scene, cfg, 0)
	return sourceLayer(scene, cfg, b)
}

func checkInputs(np detector.NoiseProfile, scene Scene, cfg detector.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := scene.Validate(); err != nil {
		return err
	}
	if !(np.Gain > 0) {
		return fmt.Errorf("%w: noise profile gain %v", detector.ErrInvalidConfig, np.Gain)
	}
	if np.DarkCurrent < 0 || np.ReadNoise < 0 || np.NoiseFactor < 1 {
		return fmt.Errorf("%w: noise profile %s", detector.ErrInvalidConfig, np)
	}
	return nil
}

func sourceLayer(scene Scene, cfg detector.Config, b Budget) (emath.FloatGrid, error) {
	psf, err := scene.GetPSF(cfg.Binning)
	if err != nil {
		return emath.FloatGrid{}, err
	}

	g := emath.NewFloatGrid(FrameWidth, FrameHeight)
	if b.StarAmplitude == 0 {
		return g, nil
	}
	g.Fill(func(x, y int) float64 {
		return b.StarAmplitude * psf(float64(x)-StarX, float64(y)-StarY)
	})
	return g, nil
}

func noiseLayer(sigma float64, src rand.Source) emath.FloatGrid {
	g := emath.NewFloatGrid(FrameWidth, FrameHeight)
	if sigma == 0 {
		return g
	}

	dist := distuv.Normal{Mu: 0, Sigma: sigma, Src: src}
	g.Fill(func(x, y int) float64 { return dist.Rand() })
	return g
}

// render sums the three layers: point source, gaussian noise, and the
// offset (bias plus sky and dark current).
func render(kind string, np detector.NoiseProfile, scene Scene, cfg detector.Config, bias BiasReference, seed uint64, src rand.Source) (Frame, error) {
	if err := checkInputs(np, scene, cfg); err != nil {
		return Frame{}, fmt.Errorf("render %s: %w", kind, err)
	}
	if err := bias.Validate(); err != nil {
		return Frame{}, fmt.Errorf("render %s: %w", kind, err)
	}

	b := NoiseBudget(np, scene, cfg, bias.Level)
	b.BiasMode = bias.mode()

	pixels, err := sourceLayer(scene, cfg, b)
	if err != nil {
		return Frame{}, fmt.Errorf("render %s: %w", kind, err)
	}
	if err := pixels.Add(noiseLayer(b.Sigma, src)); err != nil {
		return Frame{}, fmt.Errorf("render %s: %w", kind, err)
	}
	if err := pixels.Add(bias.offsetLayer(b.SignalLevel)); err != nil {
		return Frame{}, fmt.Errorf("render %s: %w", kind, err)
	}

	return Frame{
		Kind:     kind,
		Pixels:   pixels,
		Detector: cfg,
		Profile:  np,
		Scene:    scene,
		Budget:   b,
		Bias:     bias,
		Seed:     seed,
		Created:  time.Now().UTC(),
	}, nil
}
