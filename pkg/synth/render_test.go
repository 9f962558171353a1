package synth

import (
	"errors"
	"math"
	"testing"

	"github.com/abworrall/ccdsim/pkg/detector"
	"github.com/abworrall/ccdsim/pkg/emath"
)

func testConfig() detector.Config {
	return detector.Config{
		SerialNumber: 9917,
		Temperature:  -60,
		Mode:         detector.Conventional,
		EMGain:       1,
		Preamp:       1,
		HSS:          1,
		Binning:      1,
		ExposureTime: 10,
	}
}

func testScene() Scene {
	return Scene{StarFlux: 1000, SkyFlux: 5, PSFStdDev: 3}
}

// A profile with no noise at all, so frames are deterministic.
func silentProfile() detector.NoiseProfile {
	return detector.NoiseProfile{Gain: 2, DarkCurrent: 0, ReadNoise: 0, NoiseFactor: 1}
}

func TestZeroNoiseCollapsesToSource(t *testing.T) {
	cfg := testConfig()
	scene := testScene()
	scene.SkyFlux = 0

	f, err := RenderScience(silentProfile(), scene, cfg, NewBiasLevel(0), 1)
	if err != nil {
		t.Fatalf("RenderScience: %v", err)
	}
	src, err := SourceLayer(silentProfile(), scene, cfg)
	if err != nil {
		t.Fatalf("SourceLayer: %v", err)
	}

	if !f.Pixels.Equal(src) {
		t.Error("noiseless frame with zero bias differs from the source layer")
	}

	wantPeak := 1000.0 * 10 * 1 * 1 / 2
	if got := f.Pixels.Get(100, 100); got != wantPeak {
		t.Errorf("peak = %v, want %v", got, wantPeak)
	}
	if got := f.Pixels.Get(0, 0); got > 1e-100 {
		t.Errorf("corner = %v, want ~0", got)
	}
	if f.Budget.Sigma != 0 {
		t.Errorf("sigma = %v, want 0", f.Budget.Sigma)
	}
}

func TestBackgroundMeanAndVariance(t *testing.T) {
	np := detector.NoiseProfile{Gain: 3.37, DarkCurrent: 0.02, ReadNoise: 6.67, NoiseFactor: 1}
	cfg := testConfig()
	scene := Scene{StarFlux: 0, SkyFlux: 12, PSFStdDev: 3}

	f, err := RenderScience(np, scene, cfg, NewBiasLevel(500), 42)
	if err != nil {
		t.Fatalf("RenderScience: %v", err)
	}

	wantMean := 500 + (0.02+12)*10/3.37
	wantSigma := math.Sqrt(6.67*6.67+(12+0.02)*10) / 3.37
	if math.Abs(f.Budget.Background-wantMean) > 1e-9 {
		t.Errorf("budget background = %v, want %v", f.Budget.Background, wantMean)
	}
	if math.Abs(f.Budget.Sigma-wantSigma) > 1e-9 {
		t.Errorf("budget sigma = %v, want %v", f.Budget.Sigma, wantSigma)
	}

	n := float64(f.Pixels.Len())
	if got := f.Pixels.Mean(); math.Abs(got-wantMean) > 5*wantSigma/math.Sqrt(n) {
		t.Errorf("mean = %v, want %v", got, wantMean)
	}
	if got := f.Pixels.Variance(); math.Abs(got-wantSigma*wantSigma)/(wantSigma*wantSigma) > 0.05 {
		t.Errorf("variance = %v, want %v", got, wantSigma*wantSigma)
	}
}

func TestEMGainScalesSignalAndNoise(t *testing.T) {
	np := detector.NoiseProfile{Gain: 4.7, DarkCurrent: 0.01, ReadNoise: 24.6, NoiseFactor: detector.EMNoiseFactor}
	cfg := testConfig()
	cfg.Mode = detector.ElectronMultiplying
	cfg.EMGain = 300
	scene := testScene()

	b := NoiseBudget(np, scene, cfg, 0)

	scale := 10 * 300.0 / 4.7
	if math.Abs(b.StarAmplitude-1000*scale) > 1e-6 {
		t.Errorf("amplitude = %v, want %v", b.StarAmplitude, 1000*scale)
	}
	shot := (5 + 0.01) * 10 * 1.41 * 1.41 * 300 * 300
	wantSigma := math.Sqrt(24.6*24.6+shot) / 4.7
	if math.Abs(b.Sigma-wantSigma) > 1e-9 {
		t.Errorf("sigma = %v, want %v", b.Sigma, wantSigma)
	}
}

func TestConventionalIgnoresEMGain(t *testing.T) {
	cfg := testConfig()
	cfg.EMGain = 300

	f, err := RenderScience(silentProfile(), testScene(), cfg, NewBiasLevel(0), 1)
	if err != nil {
		t.Fatalf("RenderScience: %v", err)
	}
	if f.Detector.EMGain != 1 {
		t.Errorf("EMGain recorded as %v, want 1", f.Detector.EMGain)
	}
	if want := 1000.0 * 10 / 2; f.Budget.StarAmplitude != want {
		t.Errorf("amplitude = %v, want %v", f.Budget.StarAmplitude, want)
	}
}

func TestBinning(t *testing.T) {
	np := detector.NoiseProfile{Gain: 2, DarkCurrent: 0.1, ReadNoise: 5, NoiseFactor: 1}
	scene := testScene()

	cfg1 := testConfig()
	cfg2 := testConfig()
	cfg2.Binning = 2

	b1 := NoiseBudget(np, scene, cfg1, 0)
	b2 := NoiseBudget(np, scene, cfg2, 0)

	if b2.StarAmplitude != 4*b1.StarAmplitude {
		t.Errorf("binned amplitude = %v, want 4x %v", b2.StarAmplitude, b1.StarAmplitude)
	}
	if math.Abs(b2.SignalLevel-4*b1.SignalLevel) > 1e-9 {
		t.Errorf("binned signal = %v, want 4x %v", b2.SignalLevel, b1.SignalLevel)
	}
	if b2.PSFWidth != b1.PSFWidth/2 {
		t.Errorf("binned psf width = %v, want %v", b2.PSFWidth, b1.PSFWidth/2)
	}

	src1, err := SourceLayer(np, scene, cfg1)
	if err != nil {
		t.Fatal(err)
	}
	src2, err := SourceLayer(np, scene, cfg2)
	if err != nil {
		t.Fatal(err)
	}
	// one binned pixel out is the same point on the profile as two unbinned
	got, want := src2.Get(101, 100), 4*src1.Get(102, 100)
	if math.Abs(got-want) > 1e-9*want {
		t.Errorf("binned profile at dx=1 is %v, want %v", got, want)
	}
}

func TestSeedReproducibility(t *testing.T) {
	np := detector.NoiseProfile{Gain: 2, DarkCurrent: 0.1, ReadNoise: 5, NoiseFactor: 1}

	a1, b1, err := Render(np, testScene(), testConfig(), NewBiasLevel(500), 7)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	a2, b2, err := Render(np, testScene(), testConfig(), NewBiasLevel(500), 7)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	a3, _, err := Render(np, testScene(), testConfig(), NewBiasLevel(500), 8)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}

	if !a1.Pixels.Equal(a2.Pixels) || !b1.Pixels.Equal(b2.Pixels) {
		t.Error("same seed gave different frames")
	}
	if a1.Pixels.Equal(a3.Pixels) {
		t.Error("different seeds gave the same frame")
	}
	if a1.Pixels.Equal(b1.Pixels) {
		t.Error("science and bias frames share noise")
	}
}

func TestBiasFrameMatchesGeneralPath(t *testing.T) {
	np := detector.NoiseProfile{Gain: 3.37, DarkCurrent: 0.5, ReadNoise: 6.67, NoiseFactor: 1}
	bias := NewBiasLevel(500)

	_, fromRender, err := Render(np, testScene(), testConfig(), bias, 11)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	alone, err := RenderBias(np, testConfig(), bias, 11)
	if err != nil {
		t.Fatalf("RenderBias: %v", err)
	}
	if !fromRender.Pixels.Equal(alone.Pixels) {
		t.Error("RenderBias differs from the bias frame from Render")
	}
	if !fromRender.IsBias() || fromRender.Detector.ExposureTime != BiasExposureTime {
		t.Errorf("bias frame kind=%s t=%v", fromRender.Kind, fromRender.Detector.ExposureTime)
	}

	cfg := testConfig()
	cfg.ExposureTime = BiasExposureTime
	general, err := RenderScience(np, Scene{PSFStdDev: 3}, cfg, bias, 12)
	if err != nil {
		t.Fatalf("RenderScience: %v", err)
	}

	if general.Budget.Background != alone.Budget.Background || general.Budget.Sigma != alone.Budget.Sigma {
		t.Errorf("budgets differ: %s vs %s", general.Budget, alone.Budget)
	}
	sigma := alone.Budget.Sigma
	n := float64(alone.Pixels.Len())
	if d := math.Abs(general.Pixels.Mean() - alone.Pixels.Mean()); d > 6*sigma/math.Sqrt(n) {
		t.Errorf("means differ by %v", d)
	}
	if r := general.Pixels.Variance() / alone.Pixels.Variance(); r < 0.95 || r > 1.05 {
		t.Errorf("variance ratio %v", r)
	}
}

func TestBiasModeFrame(t *testing.T) {
	g := emath.NewFloatGrid(FrameWidth, FrameHeight)
	g.Fill(func(x, y int) float64 { return 490 + float64(x)/10 })
	bias, err := NewBiasFromFrame(g, "gradient")
	if err != nil {
		t.Fatalf("NewBiasFromFrame: %v", err)
	}
	if math.Abs(bias.Level-499.95) > 1e-9 {
		t.Errorf("bias level = %v, want 499.95", bias.Level)
	}

	scene := Scene{StarFlux: 0, SkyFlux: 0, PSFStdDev: 3}

	f, err := RenderScience(silentProfile(), scene, testConfig(), bias, 1)
	if err != nil {
		t.Fatalf("RenderScience(median): %v", err)
	}
	if f.Pixels.Get(0, 0) != bias.Level || f.Pixels.Get(199, 0) != bias.Level {
		t.Errorf("median mode not flat: %v %v", f.Pixels.Get(0, 0), f.Pixels.Get(199, 0))
	}
	if f.Budget.BiasMode != BiasModeMedian {
		t.Errorf("budget bias mode = %q, want %q", f.Budget.BiasMode, BiasModeMedian)
	}

	bias.Mode = BiasModeFrame
	f, err = RenderScience(silentProfile(), scene, testConfig(), bias, 1)
	if err != nil {
		t.Fatalf("RenderScience(frame): %v", err)
	}
	if !f.Pixels.Equal(g) {
		t.Error("frame mode should reproduce the bias frame when there is no signal")
	}
	if f.Budget.BiasMode != BiasModeFrame || f.Budget.BiasLevel != bias.Level {
		t.Errorf("budget bias = %s %v, want frame %v", f.Budget.BiasMode, f.Budget.BiasLevel, bias.Level)
	}
}

func TestBadBias(t *testing.T) {
	small := emath.NewFloatGrid(10, 10)
	withSmall, _ := NewBiasFromFrame(small, "small")
	withSmall.Mode = BiasModeFrame

	levelOnly := NewBiasLevel(500)
	levelOnly.Mode = BiasModeFrame

	unknown := NewBiasLevel(500)
	unknown.Mode = "mean"

	tests := []struct {
		name string
		bias BiasReference
	}{
		{"wrong size", withSmall},
		{"frame mode without frame", levelOnly},
		{"unknown mode", unknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := RenderScience(silentProfile(), testScene(), testConfig(), tt.bias, 1)
			if !errors.Is(err, ErrBadBias) {
				t.Errorf("err = %v, want ErrBadBias", err)
			}
		})
	}

	if _, err := NewBiasFromFrame(emath.FloatGrid{}, "empty"); !errors.Is(err, ErrBadBias) {
		t.Errorf("empty frame: err = %v", err)
	}
	nan := emath.NewFloatGrid(2, 2)
	nan.Set(1, 0, math.NaN())
	if _, err := NewBiasFromFrame(nan, "nan"); !errors.Is(err, ErrBadBias) {
		t.Errorf("NaN frame: err = %v", err)
	}
}

func TestRenderRejectsBadInputs(t *testing.T) {
	badCfg := testConfig()
	badCfg.Temperature = 20

	badProfile := silentProfile()
	badProfile.Gain = 0

	tests := []struct {
		name  string
		np    detector.NoiseProfile
		scene Scene
		cfg   detector.Config
	}{
		{"bad config", silentProfile(), testScene(), badCfg},
		{"zero gain", badProfile, testScene(), testConfig()},
		{"negative star", silentProfile(), Scene{StarFlux: -1, PSFStdDev: 3}, testConfig()},
		{"zero width", silentProfile(), Scene{StarFlux: 1}, testConfig()},
		{"unknown profile", silentProfile(), Scene{StarFlux: 1, PSFStdDev: 3, Profile: "airy"}, testConfig()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Render(tt.np, tt.scene, tt.cfg, NewBiasLevel(0), 1)
			if !errors.Is(err, detector.ErrInvalidConfig) {
				t.Errorf("err = %v, want ErrInvalidConfig", err)
			}
		})
	}
}
