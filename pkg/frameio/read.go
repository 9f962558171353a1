package frameio

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/abworrall/ccdsim/pkg/emath"
)

// ReadFrame loads a calibration frame, picking the decoder from the
// file extension. FITS images have BSCALE/BZERO applied; TIFFs are read
// as 16-bit gray.
func ReadFrame(filename string) (emath.FloatGrid, error) {
	var decode func(*os.File) (emath.FloatGrid, error)

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".fits", ".fit", ".fts":
		decode = func(r *os.File) (emath.FloatGrid, error) { return readFITS(r) }
	case ".tif", ".tiff":
		decode = func(r *os.File) (emath.FloatGrid, error) { return readTIFF(r) }
	default:
		return emath.FloatGrid{}, fmt.Errorf("load '%s': %w", filename, ErrUnknownFormat)
	}

	r, err := os.Open(filename)
	if err != nil {
		return emath.FloatGrid{}, fmt.Errorf("open+r '%s': %w", filename, err)
	}
	defer r.Close()

	g, err := decode(r)
	if err != nil {
		return emath.FloatGrid{}, fmt.Errorf("load '%s': %w", filename, err)
	}

	if g.Len() == 0 {
		return emath.FloatGrid{}, fmt.Errorf("load '%s': %w", filename, ErrEmptyFrame)
	}
	if g.HasNonFinite() {
		return emath.FloatGrid{}, fmt.Errorf("load '%s': %w: NaN/Inf pixels", filename, ErrEmptyFrame)
	}

	return g, nil
}
