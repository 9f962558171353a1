package detector

import (
	"errors"
	"math"
	"testing"
)

func validConfig() Config {
	return Config{
		SerialNumber: 9917,
		Temperature:  -60,
		Mode:         Conventional,
		EMGain:       1,
		Preamp:       1,
		HSS:          1,
		Binning:      1,
		ExposureTime: 20,
	}
}

func TestNewNoiseProfile(t *testing.T) {
	cfg := validConfig()
	np, err := NewNoiseProfile(cfg, ConstantReadNoise(6.5))
	if err != nil {
		t.Fatalf("NewNoiseProfile: %v", err)
	}

	wantDC := 5.92 * math.Exp(0.0005*3600+0.18*(-60))
	if np.Gain != 3.37 {
		t.Errorf("Gain = %v, want 3.37", np.Gain)
	}
	if math.Abs(np.DarkCurrent-wantDC) > 1e-12*wantDC {
		t.Errorf("DarkCurrent = %v, want %v", np.DarkCurrent, wantDC)
	}
	if np.ReadNoise != 6.5 {
		t.Errorf("ReadNoise = %v, want 6.5", np.ReadNoise)
	}
	if np.NoiseFactor != 1.0 {
		t.Errorf("NoiseFactor = %v, want 1.0", np.NoiseFactor)
	}
}

func TestNewNoiseProfileEM(t *testing.T) {
	cfg := validConfig()
	cfg.Mode = ElectronMultiplying
	cfg.HSS = 30
	cfg.Preamp = 2
	cfg.EMGain = 300

	var gotGain float64
	rn := ReadNoiseFunc(func(mode Mode, emGain, hss float64, preamp, binning int) (float64, error) {
		gotGain = emGain
		return 44.1, nil
	})

	np, err := NewNoiseProfile(cfg, rn)
	if err != nil {
		t.Fatalf("NewNoiseProfile: %v", err)
	}
	if np.Gain != 5.27 || np.NoiseFactor != EMNoiseFactor || np.ReadNoise != 44.1 {
		t.Errorf("profile = %s", np)
	}
	if gotGain != 300 {
		t.Errorf("read noise saw EM gain %v, want 300", gotGain)
	}
}

func TestNewNoiseProfileDefaultTable(t *testing.T) {
	np, err := NewNoiseProfile(validConfig(), nil)
	if err != nil {
		t.Fatalf("NewNoiseProfile: %v", err)
	}
	if np.ReadNoise != 8.53 {
		t.Errorf("ReadNoise = %v, want 8.53 from the default table", np.ReadNoise)
	}
}

func TestConventionalModeForcesUnitGain(t *testing.T) {
	cfg := validConfig()
	cfg.EMGain = 250

	var gotGain float64
	rn := ReadNoiseFunc(func(mode Mode, emGain, hss float64, preamp, binning int) (float64, error) {
		gotGain = emGain
		return 1, nil
	})
	if _, err := NewNoiseProfile(cfg, rn); err != nil {
		t.Fatal(err)
	}
	if gotGain != 1 {
		t.Errorf("conventional mode passed EM gain %v, want 1", gotGain)
	}
	if n := cfg.Normalize(); n.EMGain != 1 {
		t.Errorf("Normalize().EMGain = %v, want 1", n.EMGain)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{"valid", func(c *Config) {}, nil},
		{"unknown serial", func(c *Config) { c.SerialNumber = 1 }, ErrUnknownSerial},
		{"too warm", func(c *Config) { c.Temperature = 5 }, ErrInvalidConfig},
		{"too cold", func(c *Config) { c.Temperature = -80 }, ErrInvalidConfig},
		{"zero exposure", func(c *Config) { c.ExposureTime = 0 }, ErrInvalidConfig},
		{"tiny exposure", func(c *Config) { c.ExposureTime = 1e-6 }, ErrInvalidConfig},
		{"min exposure ok", func(c *Config) { c.ExposureTime = 1e-5 }, nil},
		{"zero binning", func(c *Config) { c.Binning = 0 }, ErrInvalidConfig},
		{"bad preamp", func(c *Config) { c.Preamp = 4 }, ErrInvalidConfig},
		{"bad hss", func(c *Config) { c.HSS = 2 }, ErrInvalidConfig},
		{"em gain zero in EM", func(c *Config) { c.Mode = ElectronMultiplying; c.EMGain = 0 }, ErrInvalidConfig},
		{"unsupported triple", func(c *Config) { c.HSS = 30 }, ErrUnsupportedMode},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateReportsEverything(t *testing.T) {
	cfg := validConfig()
	cfg.Binning = 0
	cfg.ExposureTime = -1
	cfg.SerialNumber = 42

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() = nil")
	}
	for _, want := range []error{ErrUnknownSerial, ErrInvalidConfig} {
		if !errors.Is(err, want) {
			t.Errorf("Validate() = %v, missing %v", err, want)
		}
	}
}

func TestNewNoiseProfileRejectsBadConfigBeforeLookup(t *testing.T) {
	called := false
	rn := ReadNoiseFunc(func(Mode, float64, float64, int, int) (float64, error) {
		called = true
		return 1, nil
	})

	cfg := validConfig()
	cfg.HSS = 20 // not a conventional mode speed
	if _, err := NewNoiseProfile(cfg, rn); !errors.Is(err, ErrUnsupportedMode) {
		t.Errorf("err = %v, want ErrUnsupportedMode", err)
	}
	if called {
		t.Error("read noise consulted for an invalid config")
	}
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{"conventional", Conventional, false},
		{"CONV", Conventional, false},
		{"0", Conventional, false},
		{"em", ElectronMultiplying, false},
		{"Electron Multiplying", ElectronMultiplying, false},
		{"1", ElectronMultiplying, false},
		{"ccd", Conventional, true},
	}

	for _, tt := range tests {
		got, err := ParseMode(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseMode(%q) err = %v", tt.in, err)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("ParseMode(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestFormatNumber(t *testing.T) {
	tests := map[float64]string{
		1:    "1",
		0.1:  "0.1",
		20:   "20",
		1e-5: "1e-05",
		2.5:  "2.5",
	}
	for in, want := range tests {
		if got := FormatNumber(in); got != want {
			t.Errorf("FormatNumber(%v) = %q, want %q", in, got, want)
		}
	}
}
