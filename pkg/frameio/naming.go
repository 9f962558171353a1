package frameio

import (
	"fmt"

	"github.com/abworrall/ccdsim/pkg/detector"
)

const (
	FITSExt    = ".fits"
	BiasSuffix = "_BIAS"
)

// BaseName is the stem shared by a science frame and its bias, e.g.
// EM_30MHz_PA2_B1_TEXP0.1_G300.
func BaseName(cfg detector.Config) string {
	cfg = cfg.Normalize()
	return fmt.Sprintf("%s%sMHz_PA%d_B%d_TEXP%s_G%s",
		cfg.Mode.Prefix(),
		detector.FormatNumber(cfg.HSS),
		cfg.Preamp,
		cfg.Binning,
		detector.FormatNumber(cfg.ExposureTime),
		detector.FormatNumber(cfg.EMGain))
}

// FileName is the FITS filename for a frame. The bias frame is named
// after the science exposure it goes with, not its own exposure time.
func FileName(cfg detector.Config, bias bool) string {
	if bias {
		return BaseName(cfg) + BiasSuffix + FITSExt
	}
	return BaseName(cfg) + FITSExt
}
