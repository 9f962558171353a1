// Package ccdsim runs simulations: it takes a Config, renders the
// science and bias frames for each operating mode asked for, and
// writes them out.
package ccdsim

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/abworrall/ccdsim/pkg/detector"
	"github.com/abworrall/ccdsim/pkg/emath"
	"github.com/abworrall/ccdsim/pkg/frameio"
	"github.com/abworrall/ccdsim/pkg/logging"
	"github.com/abworrall/ccdsim/pkg/synth"
)

// A Simulation is a finalized config with its collaborators loaded.
type Simulation struct {
	Config
	RunID     string
	Bias      synth.BiasReference
	ReadNoise detector.ReadNoiser
	Log       *zap.Logger
}

// A Result is what one job produced.
type Result struct {
	Index    int
	Detector detector.Config
	Profile  detector.NoiseProfile
	Budget   synth.Budget
	Summary  emath.Summary // of the science frame
	Files    []string      // science FITS first, then bias, then exports
}

func (r Result) Name() string { return frameio.BaseName(r.Detector) }

// NewSimulation finalizes the config, then loads the read noise table
// and the bias reference. Nothing is rendered yet.
func NewSimulation(c Config, log *zap.Logger) (*Simulation, error) {
	if err := c.Finalize(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	s := &Simulation{
		Config:    c,
		RunID:     uuid.New().String(),
		ReadNoise: detector.DefaultReadNoiseTable(),
		Log:       logging.OrNop(log),
	}

	if c.ReadNoiseFile != "" {
		t, err := detector.LoadReadNoiseTable(c.ReadNoiseFile)
		if err != nil {
			return nil, err
		}
		s.ReadNoise = t
		s.Log.Debug("loaded read noise table", zap.String("file", c.ReadNoiseFile), zap.Int("entries", len(t.Entries)))
	}

	bias, err := loadBias(c)
	if err != nil {
		return nil, err
	}
	s.Bias = bias
	s.Log.Info("bias reference", zap.String("source", bias.Source), zap.Float64("level", bias.Level),
		zap.String("mode", c.BiasMode))

	return s, nil
}

func loadBias(c Config) (synth.BiasReference, error) {
	var bias synth.BiasReference

	if c.BiasFile != "" {
		g, err := frameio.ReadFrame(c.BiasFile)
		if err != nil {
			return bias, fmt.Errorf("bias: %w", err)
		}
		if bias, err = synth.NewBiasFromFrame(g, c.BiasFile); err != nil {
			return bias, fmt.Errorf("bias: %w", err)
		}
	} else if c.BiasLevel != nil {
		bias = synth.NewBiasLevel(*c.BiasLevel)
	} else {
		return bias, ErrNoBias
	}

	if c.BiasMode != "" {
		bias.Mode = c.BiasMode
	}
	return bias, bias.Validate()
}

// RenderJob renders the frame pair for one detector config, without
// writing anything.
func (s *Simulation) RenderJob(cfg detector.Config, seed uint64) (synth.Frame, synth.Frame, error) {
	np, err := detector.NewNoiseProfile(cfg, s.ReadNoise)
	if err != nil {
		return synth.Frame{}, synth.Frame{}, err
	}

	science, bias, err := synth.Render(np, s.Scene, cfg, s.Bias, seed)
	if err != nil {
		return synth.Frame{}, synth.Frame{}, err
	}
	return science.WithRunID(s.RunID), bias.WithRunID(s.RunID), nil
}

// RunJob renders one job and writes its files into the output dir.
func (s *Simulation) RunJob(index int, cfg detector.Config) (Result, error) {
	seed := s.Seed + uint64(index)
	log := s.Log.With(zap.String("job", frameio.BaseName(cfg)), zap.Uint64("seed", seed))

	science, bias, err := s.RenderJob(cfg, seed)
	if err != nil {
		return Result{}, fmt.Errorf("job '%s': %w", frameio.BaseName(cfg), err)
	}
	log.Debug("rendered", zap.Stringer("profile", science.Profile), zap.Stringer("budget", science.Budget))

	r := Result{
		Index:    index,
		Detector: science.Detector,
		Profile:  science.Profile,
		Budget:   science.Budget,
	}
	if r.Summary, err = emath.Summarize(science.Pixels); err != nil {
		return r, fmt.Errorf("job '%s': %w", frameio.BaseName(cfg), err)
	}

	if r.Files, err = s.writeFrames(science, bias); err != nil {
		return r, fmt.Errorf("job '%s': %w", frameio.BaseName(cfg), err)
	}

	log.Info("wrote frames", zap.Strings("files", r.Files), zap.Float64("mean", r.Summary.Mean),
		zap.Float64("sigma", r.Budget.Sigma))
	return r, nil
}

func (s *Simulation) writeFrames(science, bias synth.Frame) ([]string, error) {
	files := []string{}
	for _, f := range []synth.Frame{science, bias} {
		filename := filepath.Join(s.OutputDir, frameio.FileName(science.Detector, f.IsBias()))
		if err := frameio.WriteFITS(filename, f); err != nil {
			return files, err
		}
		files = append(files, filename)
	}

	stem := strings.TrimSuffix(files[0], frameio.FITSExt)
	if s.Quicklook {
		opts := frameio.QuicklookOptions{Stretch: s.Stretch, Palette: s.Palette}
		if err := frameio.WriteQuicklook(stem+".png", science, opts); err != nil {
			return files, err
		}
		files = append(files, stem+".png")
	}
	if s.ExportHDR {
		if err := frameio.WriteHDR(stem+".hdr", science); err != nil {
			return files, err
		}
		files = append(files, stem+".hdr")
	}
	if s.ExportTIFF {
		if err := frameio.WriteTIFF16(stem+".tif", science); err != nil {
			return files, err
		}
		files = append(files, stem+".tif")
	}

	return files, nil
}

// RunBatch renders every job, Workers at a time. Job i gets seed Seed+i,
// so the output doesn't depend on scheduling. The first failure stops
// any jobs that haven't started yet.
func (s *Simulation) RunBatch(ctx context.Context) ([]Result, error) {
	jobs, err := s.Jobs()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(s.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("output dir '%s': %w", s.OutputDir, err)
	}

	s.Log.Info("starting run", zap.String("runid", s.RunID), zap.Int("jobs", len(jobs)),
		zap.Int("workers", s.Workers), zap.Stringer("scene", s.Scene))

	results := make([]Result, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.Workers)

	for i, cfg := range jobs {
		i, cfg := i, cfg
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			r, err := s.RunJob(i, cfg)
			if err != nil {
				return err
			}
			results[i] = r
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}
