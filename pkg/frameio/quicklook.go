package frameio

import (
	"fmt"
	"image"
	"image/color"

	"github.com/fogleman/gg"
	"github.com/lucasb-eyer/go-colorful"

	"github.com/abworrall/ccdsim/pkg/emath"
	"github.com/abworrall/ccdsim/pkg/synth"
)

const (
	StretchLinear     = "linear"
	StretchAsinh      = "asinh"
	StretchDrago03    = "drago03"
	StretchReinhard05 = "reinhard05"

	PaletteGray = "gray"
	PaletteHeat = "heat"
)

// QuicklookOptions control how a frame gets turned into a PNG for
// people to look at.
type QuicklookOptions struct {
	Stretch string  // StretchAsinh (default), StretchLinear, or a tonemapper
	Palette string  // PaletteGray (default) or PaletteHeat
	Soften  float64 // asinh softening; 0 means 0.1
	Caption string  // drawn in the top left, if set
}

// A Palette maps a stretched value in [0,1] to a display color.
type Palette func(f float64) color.Color

func grayPalette(f float64) color.Color {
	// gamma scale the gray, to look normal for human vision
	gray := uint16(emath.GammaExpand_F64(emath.Clamp01(f)) * 65535.0)
	return color.RGBA64{R: gray, G: gray, B: gray, A: 0xFFFF}
}

var heatStops = mustHexes("#000000", "#3b0f70", "#b73779", "#fc8961", "#fcfdbf")

func mustHexes(hexes ...string) []colorful.Color {
	cols := []colorful.Color{}
	for _, h := range hexes {
		c, err := colorful.Hex(h)
		if err != nil {
			panic(fmt.Sprintf("palette color %q: %v", h, err))
		}
		cols = append(cols, c)
	}
	return cols
}

// heatPalette blends between the stops in Lab space, which keeps the
// steps looking even.
func heatPalette(f float64) color.Color {
	f = emath.Clamp01(f)
	n := len(heatStops) - 1
	i := int(f * float64(n))
	if i >= n {
		i = n - 1
	}
	t := f*float64(n) - float64(i)
	return heatStops[i].BlendLab(heatStops[i+1], t).Clamped()
}

// GetPalette returns the palette with the given name.
func GetPalette(name string) (Palette, error) {
	switch name {
	case "", PaletteGray:
		return grayPalette, nil
	case PaletteHeat:
		return heatPalette, nil
	default:
		return nil, fmt.Errorf("palette '%s' unknown", name)
	}
}

// CheckStretch says whether Stretch knows the name.
func CheckStretch(name string) error {
	switch name {
	case "", StretchLinear, StretchAsinh, StretchDrago03, StretchReinhard05:
		return nil
	}
	return fmt.Errorf("stretch '%s' unknown", name)
}

// Stretch maps frame values into [0,1], using the 0.5% and 99.5%
// percentiles as black and white so a few hot pixels don't wash it out.
// The tonemapper stretches hand the whole range to an HDR operator
// instead.
func Stretch(g emath.FloatGrid, opts QuicklookOptions) (emath.FloatGrid, error) {
	if opts.Stretch == StretchDrago03 || opts.Stretch == StretchReinhard05 {
		return tonemap(g, opts.Stretch)
	}

	lo, hi := g.FindMinMaxAtPercentile(0.005, 0.995)
	if hi <= lo {
		hi = lo + 1
	}

	soften := opts.Soften
	if soften == 0 {
		soften = 0.1
	}

	var curve func(float64) float64
	switch opts.Stretch {
	case "", StretchAsinh:
		curve = func(f float64) float64 { return emath.AsinhStretch(f, soften) }
	case StretchLinear:
		curve = emath.Clamp01
	default:
		return emath.FloatGrid{}, fmt.Errorf("stretch '%s' unknown", opts.Stretch)
	}

	out := g.NewFromThis()
	out.Fill(func(x, y int) float64 { return curve((g.Get(x, y) - lo) / (hi - lo)) })
	return out, nil
}

// Quicklook renders the frame as an image, with the caption drawn on.
func Quicklook(g emath.FloatGrid, opts QuicklookOptions) (image.Image, error) {
	dc, err := quicklookContext(g, opts)
	if err != nil {
		return nil, err
	}
	return dc.Image(), nil
}

func quicklookContext(g emath.FloatGrid, opts QuicklookOptions) (*gg.Context, error) {
	if g.Len() == 0 {
		return nil, ErrEmptyFrame
	}

	pal, err := GetPalette(opts.Palette)
	if err != nil {
		return nil, err
	}
	stretched, err := Stretch(g, opts)
	if err != nil {
		return nil, err
	}

	img := image.NewRGBA64(image.Rect(0, 0, g.Dx(), g.Dy()))
	for x := 0; x < g.Dx(); x++ {
		for y := 0; y < g.Dy(); y++ {
			img.Set(x, y, pal(stretched.Get(x, y)))
		}
	}

	dc := gg.NewContextForImage(img)
	if opts.Caption != "" {
		dc.SetRGB(1, 1, 1)
		dc.DrawString(opts.Caption, 4, 14)
	}
	return dc, nil
}

// WritePNG writes a quicklook of any grid.
func WritePNG(filename string, g emath.FloatGrid, opts QuicklookOptions) error {
	dc, err := quicklookContext(g, opts)
	if err != nil {
		return fmt.Errorf("quicklook '%s': %w", filename, err)
	}
	return writeAtomic(filename, dc.EncodePNG)
}

// WriteQuicklook writes a PNG preview of the frame, captioned with its
// kind and operating mode unless opts has a caption already.
func WriteQuicklook(filename string, f synth.Frame, opts QuicklookOptions) error {
	if opts.Caption == "" {
		opts.Caption = fmt.Sprintf("%s %s", f.Kind, BaseName(f.Detector))
	}
	return WritePNG(filename, f.Pixels, opts)
}
