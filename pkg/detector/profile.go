package detector

import "fmt"

// Multiplicative noise excess of the EM register.
const EMNoiseFactor = 1.41

// A NoiseProfile holds the noise numbers derived from a Config. It is
// computed once per Config and never changed.
type NoiseProfile struct {
	Gain        float64 // e-/ADU
	DarkCurrent float64 // e-/pix/s
	ReadNoise   float64 // e- rms
	NoiseFactor float64 // 1.0, or EMNoiseFactor in EM mode
}

func (np NoiseProfile) String() string {
	return fmt.Sprintf("gain %.3f e-/ADU, dark %.6g e-/pix/s, read noise %.3f e-, nf %.2f",
		np.Gain, np.DarkCurrent, np.ReadNoise, np.NoiseFactor)
}

func NoiseFactor(mode Mode) float64 {
	if mode == ElectronMultiplying {
		return EMNoiseFactor
	}
	return 1.0
}

// NewNoiseProfile validates the config, then works out the gain, dark
// current and read noise for it.
func NewNoiseProfile(cfg Config, rn ReadNoiser) (NoiseProfile, error) {
	cfg = cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return NoiseProfile{}, err
	}

	gain, err := Gain(cfg.Mode, cfg.HSS, cfg.Preamp)
	if err != nil {
		return NoiseProfile{}, err
	}

	dc, err := DarkCurrent(cfg.SerialNumber, cfg.Temperature)
	if err != nil {
		return NoiseProfile{}, err
	}

	if rn == nil {
		rn = DefaultReadNoiseTable()
	}
	noise, err := rn.ReadNoise(cfg.Mode, cfg.EMGain, cfg.HSS, cfg.Preamp, cfg.Binning)
	if err != nil {
		return NoiseProfile{}, fmt.Errorf("read noise: %w", err)
	}
	if noise < 0 {
		return NoiseProfile{}, fmt.Errorf("read noise: negative value %f", noise)
	}

	return NoiseProfile{
		Gain:        gain,
		DarkCurrent: dc,
		ReadNoise:   noise,
		NoiseFactor: NoiseFactor(cfg.Mode),
	}, nil
}
