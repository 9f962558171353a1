package ccdsim

import (
	"errors"
	"fmt"
	"io/ioutil"
	"runtime"

	"gopkg.in/yaml.v2"

	"github.com/abworrall/ccdsim/pkg/detector"
	"github.com/abworrall/ccdsim/pkg/frameio"
	"github.com/abworrall/ccdsim/pkg/synth"
)

var ErrNoBias = errors.New("no bias: set biasfile or biaslevel")

// Config is everything needed for a simulation run. It is loaded from
// YAML; keys are the lowercased field names.
type Config struct {
	Verbosity int

	Detector detector.Config // the base operating mode
	Scene    synth.Scene

	BiasFile  string   // calibration frame (FITS or TIFF); its median is the bias
	BiasLevel *float64 // a flat bias in ADU, if there is no BiasFile
	BiasMode  string   // "median" or "frame"

	ReadNoiseFile string // YAML read noise table, replacing the built-in one

	OutputDir  string
	Quicklook  bool
	Stretch    string
	Palette    string
	ExportHDR  bool
	ExportTIFF bool

	Seed    uint64
	Workers int // how many frames to render at once; 0 means one per CPU

	AllModes bool    // render every operating mode the camera supports
	Setups   []Setup // or just these variations on Detector
}

// A Setup varies the base detector config. Zero fields are inherited.
type Setup struct {
	Mode         string
	EMGain       float64
	HSS          float64
	Preamp       int
	Binning      int
	ExposureTime float64
}

func NewConfig() Config {
	return Config{
		Detector: detector.Config{
			SerialNumber: 9916,
			Temperature:  -70,
			Mode:         detector.Conventional,
			EMGain:       1,
			Preamp:       1,
			HSS:          1,
			Binning:      1,
			ExposureTime: 20,
		},
		Scene: synth.Scene{
			StarFlux:  2000,
			SkyFlux:   12.29,
			PSFStdDev: 3,
			Profile:   synth.ProfileGaussian,
		},
		BiasMode: synth.BiasModeMedian,
		Stretch:  frameio.StretchAsinh,
		Palette:  frameio.PaletteGray,
	}
}

func newConfigFromYaml(b []byte) (Config, error) {
	c := NewConfig()
	err := yaml.UnmarshalStrict(b, &c)
	return c, err
}

// LoadConfig reads a YAML file over the defaults from NewConfig.
func LoadConfig(filename string) (Config, error) {
	contents, err := ioutil.ReadFile(filename)
	if err != nil {
		return Config{}, fmt.Errorf("config read '%s': %w", filename, err)
	}

	c, err := newConfigFromYaml(contents)
	if err != nil {
		return c, fmt.Errorf("config parse '%s': %w", filename, err)
	}
	return c, nil
}

func (c Config) AsYaml() string {
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Sprintf("# can't marshal config yaml: %v\n", err)
	}
	return string(b)
}

// DefaultOutputDir sets the output dir, unless the config already has
// one. Finalize falls back to "." if neither does.
func (c *Config) DefaultOutputDir(dir string) {
	if c.OutputDir == "" {
		c.OutputDir = dir
	}
}

// Finalize fills in derived defaults and checks the whole config,
// reporting every problem it finds.
func (c *Config) Finalize() error {
	c.Detector = c.Detector.Normalize()
	if c.Workers <= 0 {
		c.Workers = runtime.GOMAXPROCS(0)
	}
	if c.OutputDir == "" {
		c.OutputDir = "."
	}

	errs := []error{}

	if _, err := c.Jobs(); err != nil {
		errs = append(errs, err)
	}
	if err := c.Scene.Validate(); err != nil {
		errs = append(errs, err)
	}

	switch {
	case c.BiasFile == "" && c.BiasLevel == nil:
		errs = append(errs, ErrNoBias)
	case c.BiasMode == synth.BiasModeFrame && c.BiasFile == "":
		errs = append(errs, fmt.Errorf("%w: biasmode %q needs a biasfile", detector.ErrInvalidConfig, c.BiasMode))
	case c.BiasMode != "" && c.BiasMode != synth.BiasModeMedian && c.BiasMode != synth.BiasModeFrame:
		errs = append(errs, fmt.Errorf("%w: biasmode %q unknown", detector.ErrInvalidConfig, c.BiasMode))
	}

	if _, err := frameio.GetPalette(c.Palette); err != nil {
		errs = append(errs, fmt.Errorf("%w: %v", detector.ErrInvalidConfig, err))
	}
	if err := frameio.CheckStretch(c.Stretch); err != nil {
		errs = append(errs, fmt.Errorf("%w: %v", detector.ErrInvalidConfig, err))
	}

	return errors.Join(errs...)
}

func (s Setup) apply(base detector.Config) (detector.Config, error) {
	cfg := base
	if s.Mode != "" {
		mode, err := detector.ParseMode(s.Mode)
		if err != nil {
			return cfg, err
		}
		cfg.Mode = mode
	}
	if s.EMGain != 0 {
		cfg.EMGain = s.EMGain
	}
	if s.HSS != 0 {
		cfg.HSS = s.HSS
	}
	if s.Preamp != 0 {
		cfg.Preamp = s.Preamp
	}
	if s.Binning != 0 {
		cfg.Binning = s.Binning
	}
	if s.ExposureTime != 0 {
		cfg.ExposureTime = s.ExposureTime
	}
	if base.Mode == detector.Conventional && cfg.Mode == detector.ElectronMultiplying && s.EMGain == 0 {
		cfg.EMGain = DefaultEMGain
	}
	return cfg.Normalize(), nil
}

// Jobs lists the detector configs to render, in a fixed order: the
// base config alone, each of the Setups, or every supported operating
// mode. Every one of them is validated.
func (c Config) Jobs() ([]detector.Config, error) {
	jobs := []detector.Config{}

	switch {
	case c.AllModes:
		for _, om := range detector.OperatingModes() {
			cfg := c.Detector
			cfg.Mode, cfg.HSS, cfg.Preamp = om.Mode, om.HSS, om.Preamp
			if c.Detector.Mode == detector.Conventional && cfg.Mode == detector.ElectronMultiplying {
				cfg.EMGain = DefaultEMGain
			}
			jobs = append(jobs, cfg.Normalize())
		}

	case len(c.Setups) > 0:
		for i, s := range c.Setups {
			cfg, err := s.apply(c.Detector)
			if err != nil {
				return nil, fmt.Errorf("setup %d: %w", i, err)
			}
			jobs = append(jobs, cfg)
		}

	default:
		jobs = append(jobs, c.Detector.Normalize())
	}

	errs := []error{}
	for i, cfg := range jobs {
		if err := cfg.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("job %d (%s): %w", i, frameio.BaseName(cfg), err))
		}
	}
	return jobs, errors.Join(errs...)
}

// DefaultEMGain is used when a job switches from a conventional base
// config into EM mode without saying what gain to use.
const DefaultEMGain = 300.0
