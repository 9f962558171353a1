package synth

import (
	"fmt"
	"math"

	"github.com/abworrall/ccdsim/pkg/detector"
)

const (
	ProfileGaussian = "gaussian"
	ProfileMoffat   = "moffat"
)

// A PSF is a point spread function with a peak of 1.0, evaluated at
// an offset (in pixels) from the centre of the star.
type PSF func(dx, dy float64) float64

// GaussianPSF is a symmetric 2D Gaussian, rotation angle zero.
func GaussianPSF(sigma float64) PSF {
	twoSigmaSq := 2.0 * sigma * sigma
	return func(dx, dy float64) float64 {
		return math.Exp(-(dx*dx + dy*dy) / twoSigmaSq)
	}
}

// MoffatPSF is (1 + r^2/gamma^2)^-alpha; it has broader wings than a
// Gaussian, closer to what seeing does to real stars.
func MoffatPSF(gamma, alpha float64) PSF {
	gammaSq := gamma * gamma
	return func(dx, dy float64) float64 {
		return math.Pow(1.0+(dx*dx+dy*dy)/gammaSq, -alpha)
	}
}

// GetPSF returns the scene's profile, with its width scaled down for
// the binning (a binned pixel is bigger, so the star covers fewer).
func (s Scene) GetPSF(binning int) (PSF, error) {
	if binning <= 0 {
		return nil, fmt.Errorf("psf: bad binning %d", binning)
	}
	width := s.PSFStdDev / float64(binning)

	switch s.ProfileName() {
	case ProfileGaussian:
		return GaussianPSF(width), nil
	case ProfileMoffat:
		alpha := s.MoffatAlpha
		if alpha == 0 {
			alpha = 1
		}
		return MoffatPSF(width, alpha), nil
	default:
		return nil, &detector.ConfigError{Field: "profile", Value: s.Profile,
			Reason: fmt.Sprintf("want %q or %q", ProfileGaussian, ProfileMoffat), Err: detector.ErrInvalidConfig}
	}
}
