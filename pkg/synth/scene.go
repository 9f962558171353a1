package synth

import (
	"fmt"
	"math"

	"github.com/abworrall/ccdsim/pkg/detector"
)

// A Scene is what the telescope is pointed at: one star on a flat sky.
type Scene struct {
	StarFlux    float64 // e-/s, total over the star
	SkyFlux     float64 // e-/pix/s
	PSFStdDev   float64 // pixels, before binning
	Profile     string  // "gaussian" (default) or "moffat"
	MoffatAlpha float64 // moffat power index; 0 means 1
}

func (s Scene) String() string {
	return fmt.Sprintf("star %g e-/s, sky %g e-/pix/s, %s psf width %g px",
		s.StarFlux, s.SkyFlux, s.ProfileName(), s.PSFStdDev)
}

func (s Scene) ProfileName() string {
	if s.Profile == "" {
		return ProfileGaussian
	}
	return s.Profile
}

func (s Scene) Validate() error {
	bad := func(field string, val interface{}, reason string) error {
		return &detector.ConfigError{Field: field, Value: val, Reason: reason, Err: detector.ErrInvalidConfig}
	}

	if !(s.StarFlux >= 0) || math.IsInf(s.StarFlux, 0) {
		return bad("starflux", s.StarFlux, "must be finite and non-negative")
	}
	if !(s.SkyFlux >= 0) || math.IsInf(s.SkyFlux, 0) {
		return bad("skyflux", s.SkyFlux, "must be finite and non-negative")
	}
	if !(s.PSFStdDev > 0) || math.IsInf(s.PSFStdDev, 0) {
		return bad("psfstddev", s.PSFStdDev, "must be positive")
	}
	if s.MoffatAlpha < 0 {
		return bad("moffatalpha", s.MoffatAlpha, "must be positive")
	}
	if _, err := s.GetPSF(1); err != nil {
		return err
	}
	return nil
}
