package frameio

import (
	"fmt"
	"image"
	"image/color"
	"io"

	"github.com/mdouchement/hdr/codec/rgbe"
	"github.com/mdouchement/hdr/hdrcolor"
	"github.com/mdouchement/hdr/tmo"

	"github.com/abworrall/ccdsim/pkg/emath"
	"github.com/abworrall/ccdsim/pkg/synth"
)

// hdrFrame presents a frame as a gray HDR image. RGBE can't hold
// negative values, so everything is measured up from the frame minimum.
type hdrFrame struct {
	g    emath.FloatGrid
	base float64
}

// Implement image.Image
func (h hdrFrame) ColorModel() color.Model { return hdrcolor.RGBModel }
func (h hdrFrame) Bounds() image.Rectangle { return image.Rect(0, 0, h.g.Dx(), h.g.Dy()) }
func (h hdrFrame) At(x, y int) color.Color { return h.HDRAt(x, y) }

// Implement hdr.Image
func (h hdrFrame) HDRAt(x, y int) hdrcolor.Color {
	v := h.g.Get(x, y) - h.base
	return hdrcolor.RGB{R: v, G: v, B: v}
}
func (h hdrFrame) Size() int { return h.g.Len() }

// WriteHDR outputs the frame as a Radiance HDR file, keeping the full
// dynamic range of the ADU values.
func WriteHDR(filename string, f synth.Frame) error {
	if f.Pixels.Len() == 0 {
		return fmt.Errorf("hdr '%s': %w", filename, ErrEmptyFrame)
	}

	min, _ := f.Pixels.MinMax()
	img := hdrFrame{g: f.Pixels, base: min}

	return writeAtomic(filename, func(w io.Writer) error {
		return rgbe.Encode(w, img)
	})
}

// tonemap squeezes the frame into [0,1] with one of the HDR tone
// mapping operators, which keeps the faint sky and the star core both
// visible without picking a stretch by hand.
func tonemap(g emath.FloatGrid, name string) (emath.FloatGrid, error) {
	min, _ := g.MinMax()
	img := hdrFrame{g: g, base: min}

	var op tmo.ToneMappingOperator
	switch name {
	case StretchDrago03:
		drago := tmo.NewDefaultDrago03(img)
		drago.Bias = 1.0 // otherwise the star core blows out
		op = drago
	case StretchReinhard05:
		reinhard := tmo.NewDefaultReinhard05(img)
		reinhard.Light = 0.005
		op = reinhard
	default:
		return emath.FloatGrid{}, fmt.Errorf("tonemapper '%s' unknown", name)
	}

	out := op.Perform()
	b := out.Bounds()
	mapped := g.NewFromThis()
	mapped.Fill(func(x, y int) float64 {
		c := color.Gray16Model.Convert(out.At(b.Min.X+x, b.Min.Y+y)).(color.Gray16)
		return float64(c.Y) / 65535.0
	})
	return mapped, nil
}
