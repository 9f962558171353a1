// Package detector models the noise properties of the SPARC4 EMCCD
// cameras: the preamp gain for an operating mode, the dark current
// for a given unit and temperature, and the read noise.
package detector

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// A Mode selects which output amplifier reads the CCD out.
type Mode int

const (
	Conventional Mode = iota
	ElectronMultiplying
)

func (m Mode) String() string {
	switch m {
	case Conventional:
		return "Conventional"
	case ElectronMultiplying:
		return "Electron Multiplying"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Prefix is how the mode starts an output filename.
func (m Mode) Prefix() string {
	if m == ElectronMultiplying {
		return "EM_"
	}
	return "CONV_"
}

func (m Mode) Valid() bool { return m == Conventional || m == ElectronMultiplying }

// ParseMode accepts the names people tend to type, plus the 0/1 flag
// from the old em_mode setting.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "conventional", "conv", "0":
		return Conventional, nil
	case "em", "electron multiplying", "electron-multiplying", "electronmultiplying", "1":
		return ElectronMultiplying, nil
	}
	return Conventional, invalid("mode", s, "want conventional or em")
}

func (m Mode) MarshalYAML() (interface{}, error) {
	if m == ElectronMultiplying {
		return "em", nil
	}
	return "conventional", nil
}

func (m *Mode) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	mode, err := ParseMode(s)
	if err != nil {
		return err
	}
	*m = mode
	return nil
}

const (
	MinTemperature  = -70.0 // Celsius
	MaxTemperature  = 0.0
	MinExposureTime = 1e-5 // seconds
)

var (
	HorizontalShiftSpeeds = []float64{0.1, 1, 10, 20, 30} // MHz
	PreampSettings        = []int{1, 2}
)

// Config is how the camera is set up for an exposure.
type Config struct {
	SerialNumber int
	Temperature  float64 // Celsius
	Mode         Mode
	EMGain       float64 // only meaningful in EM mode
	Preamp       int
	HSS          float64 // horizontal shift speed, MHz
	Binning      int
	ExposureTime float64 // seconds
}

func (c Config) String() string {
	return fmt.Sprintf("SN%d @%.1fC, %s %sMHz PA%d B%d, t=%ss, G=%s",
		c.SerialNumber, c.Temperature, c.Mode, FormatNumber(c.HSS), c.Preamp, c.Binning,
		FormatNumber(c.ExposureTime), FormatNumber(c.EMGain))
}

// Normalize returns a copy with the EM gain pinned to 1 in
// conventional mode, where there is no multiplication register.
func (c Config) Normalize() Config {
	if c.Mode == Conventional {
		c.EMGain = 1
	}
	return c
}

// ReadoutTime is the per-pixel readout time in microseconds.
func (c Config) ReadoutTime() float64 { return 1.0 / c.HSS }

// Validate checks every field, and that the operating mode is one we
// have a gain for. All the problems are reported, joined together.
func (c Config) Validate() error {
	errs := []error{}

	if _, ok := darkCurrentLaws[c.SerialNumber]; !ok {
		errs = append(errs, &ConfigError{Field: "serialnumber", Value: c.SerialNumber,
			Reason: fmt.Sprintf("want one of %v", KnownSerialNumbers()), Err: ErrUnknownSerial})
	}
	if math.IsNaN(c.Temperature) || c.Temperature < MinTemperature || c.Temperature > MaxTemperature {
		errs = append(errs, invalid("temperature", c.Temperature,
			fmt.Sprintf("want [%.0f, %.0f] C", MinTemperature, MaxTemperature)))
	}
	if !c.Mode.Valid() {
		errs = append(errs, invalid("mode", c.Mode, "unknown amplifier"))
	}
	if c.Mode == ElectronMultiplying && !(c.EMGain > 0) {
		errs = append(errs, invalid("emgain", c.EMGain, "must be positive in EM mode"))
	}
	if !containsInt(PreampSettings, c.Preamp) {
		errs = append(errs, invalid("preamp", c.Preamp, fmt.Sprintf("want one of %v", PreampSettings)))
	}
	if !containsFloat(HorizontalShiftSpeeds, c.HSS) {
		errs = append(errs, invalid("hss", c.HSS, fmt.Sprintf("want one of %v MHz", HorizontalShiftSpeeds)))
	}
	if c.Binning <= 0 {
		errs = append(errs, invalid("binning", c.Binning, "must be a positive integer"))
	}
	if math.IsNaN(c.ExposureTime) || math.IsInf(c.ExposureTime, 0) || c.ExposureTime < MinExposureTime {
		errs = append(errs, invalid("exposuretime", c.ExposureTime,
			fmt.Sprintf("must be at least %g s", MinExposureTime)))
	}

	// Only worth checking the triple if its parts made sense
	if len(errs) == 0 {
		if _, err := Gain(c.Mode, c.HSS, c.Preamp); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// FormatNumber writes a number in its shortest form: 1, 0.1, 1e-05.
// This is the form used in filenames.
func FormatNumber(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func containsInt(vals []int, v int) bool {
	for _, x := range vals {
		if x == v {
			return true
		}
	}
	return false
}

func containsFloat(vals []float64, v float64) bool {
	for _, x := range vals {
		if x == v {
			return true
		}
	}
	return false
}
