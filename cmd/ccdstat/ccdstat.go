package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pterm/pterm"
	"go.uber.org/zap"

	"github.com/abworrall/ccdsim/pkg/emath"
	"github.com/abworrall/ccdsim/pkg/frameio"
	"github.com/abworrall/ccdsim/pkg/logging"
)

var (
	fLogLevel  string
	fQuicklook string
	fPalette   string
)

func init() {
	flag.StringVar(&fLogLevel, "loglevel", "warn", "debug, info, warn or error")
	flag.StringVar(&fQuicklook, "quicklook", "", "dir to write a PNG preview of each frame into")
	flag.StringVar(&fPalette, "palette", frameio.PaletteGray, "quicklook palette: gray or heat")
	flag.Parse()
}

func main() {
	log, err := logging.NewLogger(fLogLevel, "")
	if err != nil {
		fmt.Fprintf(os.Stderr, "ccdstat: %v\n", err)
		os.Exit(2)
	}
	defer log.Sync()

	if flag.NArg() == 0 {
		fmt.Fprintf(os.Stderr, "usage: ccdstat [flags] frame.fits ...\n")
		os.Exit(2)
	}

	data := [][]string{
		{"File", "Type", "Exposure", "Size", "Min", "Max", "Mean", "Std", "Median", "P01", "P99"},
	}
	failed := 0

	for _, filename := range flag.Args() {
		g, err := frameio.ReadFrame(filename)
		if err != nil {
			log.Error("read failed", zap.String("file", filename), zap.Error(err))
			failed++
			continue
		}
		s, err := emath.Summarize(g)
		if err != nil {
			log.Error("stats failed", zap.String("file", filename), zap.Error(err))
			failed++
			continue
		}

		imageType, exposure := "-", "-"
		if ext := strings.ToLower(filepath.Ext(filename)); ext != ".tif" && ext != ".tiff" {
			if hdr, err := frameio.ReadFITSHeader(filename); err == nil {
				if v, ok := hdr["IMAGETYP"]; ok {
					imageType = fmt.Sprint(v)
				}
				if v, ok := hdr["EXPOSURE"]; ok {
					exposure = fmt.Sprint(v)
				}
			}
		}

		data = append(data, []string{
			filepath.Base(filename), imageType, exposure,
			fmt.Sprintf("%dx%d", g.Dx(), g.Dy()),
			fmt.Sprintf("%.2f", s.Min), fmt.Sprintf("%.2f", s.Max),
			fmt.Sprintf("%.2f", s.Mean), fmt.Sprintf("%.2f", s.StdDev),
			fmt.Sprintf("%.2f", s.Median), fmt.Sprintf("%.2f", s.P01), fmt.Sprintf("%.2f", s.P99),
		})

		if fQuicklook != "" {
			if err := writePreview(g, filename); err != nil {
				log.Error("quicklook failed", zap.String("file", filename), zap.Error(err))
			}
		}
	}

	pterm.DefaultTable.WithHasHeader().WithData(data).Render()
	if failed > 0 {
		pterm.Error.Printf("%d of %d frames could not be read\n", failed, flag.NArg())
		os.Exit(1)
	}
}

func writePreview(g emath.FloatGrid, filename string) error {
	stem := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	out := filepath.Join(fQuicklook, stem+".png")

	return frameio.WritePNG(out, g, frameio.QuicklookOptions{Palette: fPalette, Caption: stem})
}
