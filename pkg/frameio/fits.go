package frameio

import (
	"fmt"
	"io"
	"os"

	"github.com/astrogo/fitsio"

	"github.com/abworrall/ccdsim/pkg/emath"
	"github.com/abworrall/ccdsim/pkg/synth"
)

const (
	dateFormat  = "2006-01-02T15:04:05"
	frameFormat = "2006-01-02T15:04:05.000"

	// The camera's fixed vertical shift speed, seconds per row.
	vShiftSpeed = 4.33e-06
)

// HeaderCards is the FITS header for a frame, in the layout the
// camera's acquisition software uses, plus a few cards recording how
// the frame was synthesized. NAXIS cards come from the image itself.
func HeaderCards(f synth.Frame) []fitsio.Card {
	cfg := f.Detector
	imageType := "OBJECT"
	if f.IsBias() {
		imageType = "BIAS"
	}

	return []fitsio.Card{
		{Name: "ACQMODE", Value: "Single", Comment: "Acquisition Mode"},
		{Name: "READMODE", Value: "Image", Comment: "Readout Mode"},
		{Name: "IMGRECT", Value: fmt.Sprintf("1, %d,%d, 1", f.Pixels.Dx(), f.Pixels.Dy()), Comment: "Image Format"},
		{Name: "HBIN", Value: cfg.Binning, Comment: "Horizontal Binning"},
		{Name: "VBIN", Value: cfg.Binning, Comment: "Vertical Binning"},
		{Name: "TRIGGER", Value: "Internal", Comment: "Trigger Mode"},
		{Name: "EXPOSURE", Value: cfg.ExposureTime, Comment: "Total Exposure Time (s)"},
		{Name: "TEMP", Value: cfg.Temperature, Comment: "Temperature (C)"},
		{Name: "READTIME", Value: cfg.ReadoutTime() * 1e-6, Comment: "Pixel readout time (s)"},
		{Name: "VSHIFT", Value: vShiftSpeed, Comment: "Vertical Shift Speed (s)"},
		{Name: "GAIN", Value: f.Profile.Gain, Comment: "Preamp Gain (e-/ADU)"},
		{Name: "OUTPTAMP", Value: cfg.Mode.String(), Comment: "Output Amplifier"},
		{Name: "EMGAIN", Value: cfg.EMGain, Comment: "Electron Multiplying Gain"},
		{Name: "PREAMP", Value: fmt.Sprintf("%dx", cfg.Preamp), Comment: "Pre Amplifier Gain"},
		{Name: "SERNO", Value: cfg.SerialNumber, Comment: "Serial Number"},
		{Name: "DATE", Value: f.Created.Format(dateFormat), Comment: "File Creation Date (YYYY-MM-DDThh:mm:ss)"},
		{Name: "FRAME", Value: f.Created.Format(frameFormat), Comment: "Start of Frame Exposure"},
		{Name: "IMAGETYP", Value: imageType, Comment: "Image type"},
		{Name: "STARFLUX", Value: f.Scene.StarFlux, Comment: "Synthetic star flux (e-/s)"},
		{Name: "SKYFLUX", Value: f.Scene.SkyFlux, Comment: "Synthetic sky flux (e-/pix/s)"},
		{Name: "PSFTYPE", Value: f.Scene.ProfileName(), Comment: "Synthetic PSF profile"},
		{Name: "PSFSTD", Value: f.Scene.PSFStdDev, Comment: "Synthetic PSF width (unbinned pix)"},
		{Name: "BIASLVL", Value: f.Budget.BiasLevel, Comment: "Bias level, median if BIASMODE=frame (ADU)"},
		{Name: "BIASMODE", Value: f.Budget.BiasMode, Comment: "Bias applied as median or full frame"},
		{Name: "RDNOISE", Value: f.Profile.ReadNoise, Comment: "Read noise (e-)"},
		{Name: "DARKCUR", Value: f.Profile.DarkCurrent, Comment: "Dark current (e-/pix/s)"},
		{Name: "SEED", Value: fmt.Sprintf("%d", f.Seed), Comment: "Noise seed"},
		{Name: "RUNID", Value: f.RunID, Comment: "Simulation run"},
	}
}

// WriteFITS writes the frame as a single 64-bit float image HDU.
func WriteFITS(filename string, f synth.Frame) error {
	if f.Pixels.Len() == 0 {
		return fmt.Errorf("fits '%s': %w", filename, ErrEmptyFrame)
	}

	return writeAtomic(filename, func(w io.Writer) error {
		return encodeFITS(w, f.Pixels, HeaderCards(f))
	})
}

func encodeFITS(w io.Writer, g emath.FloatGrid, cards []fitsio.Card) error {
	fits, err := fitsio.Create(w)
	if err != nil {
		return err
	}

	im := fitsio.NewImage(-64, []int{g.Dx(), g.Dy()})
	defer im.Close()

	if err := im.Header().Append(cards...); err != nil {
		return fmt.Errorf("header: %w", err)
	}
	if err := im.Write(g.Values()); err != nil {
		return fmt.Errorf("pixels: %w", err)
	}
	if err := fits.Write(im); err != nil {
		return err
	}

	return fits.Close()
}

// ReadFITSHeader returns the cards of the primary HDU, keyed by name.
func ReadFITSHeader(filename string) (map[string]interface{}, error) {
	r, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("open+r '%s': %w", filename, err)
	}
	defer r.Close()

	fits, err := fitsio.Open(r)
	if err != nil {
		return nil, fmt.Errorf("fits '%s': %w", filename, err)
	}
	defer fits.Close()

	hdr := fits.HDU(0).Header()
	cards := map[string]interface{}{}
	for _, k := range hdr.Keys() {
		if c := hdr.Get(k); c != nil {
			cards[k] = c.Value
		}
	}
	return cards, nil
}

func readFITS(r io.Reader) (emath.FloatGrid, error) {
	fits, err := fitsio.Open(r)
	if err != nil {
		return emath.FloatGrid{}, err
	}
	defer fits.Close()

	img, ok := fits.HDU(0).(fitsio.Image)
	if !ok {
		return emath.FloatGrid{}, fmt.Errorf("primary HDU is not an image")
	}

	axes := img.Header().Axes()
	if len(axes) != 2 || axes[0] <= 0 || axes[1] <= 0 {
		return emath.FloatGrid{}, fmt.Errorf("%w: axes %v", ErrEmptyFrame, axes)
	}

	vals, err := readPixels(img, axes[0]*axes[1])
	if err != nil {
		return emath.FloatGrid{}, fmt.Errorf("pixels: %w", err)
	}

	// Integer images are usually stored offset, e.g. uint16 as int16
	// with BZERO=32768.
	bscale := cardFloat(img.Header(), "BSCALE", 1.0)
	bzero := cardFloat(img.Header(), "BZERO", 0.0)
	if bscale != 1.0 || bzero != 0.0 {
		for i, v := range vals {
			vals[i] = v*bscale + bzero
		}
	}

	return emath.NewFloatGridFromValues(axes[0], axes[1], vals)
}

// readPixels reads the image into a slice matching its BITPIX, since
// fitsio won't convert between element sizes, then widens to float64.
func readPixels(img fitsio.Image, n int) ([]float64, error) {
	vals := make([]float64, n)

	switch bitpix := img.Header().Bitpix(); bitpix {
	case 8:
		raw := make([]uint8, n)
		if err := img.Read(&raw); err != nil {
			return nil, err
		}
		for i, v := range raw {
			vals[i] = float64(v)
		}
	case 16:
		raw := make([]int16, n)
		if err := img.Read(&raw); err != nil {
			return nil, err
		}
		for i, v := range raw {
			vals[i] = float64(v)
		}
	case 32:
		raw := make([]int32, n)
		if err := img.Read(&raw); err != nil {
			return nil, err
		}
		for i, v := range raw {
			vals[i] = float64(v)
		}
	case 64:
		raw := make([]int64, n)
		if err := img.Read(&raw); err != nil {
			return nil, err
		}
		for i, v := range raw {
			vals[i] = float64(v)
		}
	case -32:
		raw := make([]float32, n)
		if err := img.Read(&raw); err != nil {
			return nil, err
		}
		for i, v := range raw {
			vals[i] = float64(v)
		}
	case -64:
		if err := img.Read(&vals); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported BITPIX %d", bitpix)
	}

	return vals, nil
}

func cardFloat(hdr *fitsio.Header, name string, def float64) float64 {
	c := hdr.Get(name)
	if c == nil {
		return def
	}

	switch v := c.Value.(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case int32:
		return float64(v)
	default:
		return def
	}
}
