package frameio

import (
	"fmt"
	"image"
	"image/color"
	"io"
	"math"

	"golang.org/x/image/tiff"

	"github.com/abworrall/ccdsim/pkg/emath"
	"github.com/abworrall/ccdsim/pkg/synth"
)

func readTIFF(r io.Reader) (emath.FloatGrid, error) {
	img, err := tiff.Decode(r)
	if err != nil {
		return emath.FloatGrid{}, fmt.Errorf("tiff: %w", err)
	}

	b := img.Bounds()
	if b.Empty() {
		return emath.FloatGrid{}, fmt.Errorf("%w: bounds %s", ErrEmptyFrame, b)
	}

	g := emath.NewFloatGrid(b.Dx(), b.Dy())
	if gray, ok := img.(*image.Gray16); ok {
		g.Fill(func(x, y int) float64 { return float64(gray.Gray16At(b.Min.X+x, b.Min.Y+y).Y) })
		return g, nil
	}

	g.Fill(func(x, y int) float64 {
		c := color.Gray16Model.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.Gray16)
		return float64(c.Y)
	})
	return g, nil
}

// Gray16 turns a frame into 16-bit gray, with each pixel holding its
// ADU count rounded and clamped into [0, 65535], the way the camera's
// own digitizer would.
func Gray16(g emath.FloatGrid) *image.Gray16 {
	img := image.NewGray16(image.Rect(0, 0, g.Dx(), g.Dy()))
	for y := 0; y < g.Dy(); y++ {
		for x := 0; x < g.Dx(); x++ {
			v := math.Round(g.Get(x, y))
			v = math.Max(0, math.Min(65535, v))
			img.SetGray16(x, y, color.Gray16{Y: uint16(v)})
		}
	}
	return img
}

// WriteTIFF16 exports the frame as a deflated 16-bit gray TIFF.
func WriteTIFF16(filename string, f synth.Frame) error {
	if f.Pixels.Len() == 0 {
		return fmt.Errorf("tiff '%s': %w", filename, ErrEmptyFrame)
	}

	img := Gray16(f.Pixels)
	return writeAtomic(filename, func(w io.Writer) error {
		return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
	})
}
