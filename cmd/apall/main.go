// Command apall traces and extracts echelle orders from a detector image.
//
// Usage:
//
//	apall [flags] input.fits output.fits
//
// The apertures come from an IRAF aperture database (-db). Optional
// calibration steps run before tracing in this order: bias subtraction
// (-zero), trimming (-trim), bad pixel interpolation (-badpix), flat
// division (-flat) and cosmic ray removal (-cosmic). The output holds one row
// per aperture and carries the input header.
//
// Examples:
//
//	apall -db database/apflat obj.fits obj_ec.fits
//	apall -db database/apflat -zero b1.fits,b2.fits -flat f1.fits,f2.fits obj.fits obj_ec.fits
//	apall -db database/apflat -cache .traces -retrace -log-level debug obj.fits obj_ec.fits
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/cwbudde/algo-echelle/apall"
	"github.com/cwbudde/algo-echelle/ccd"
	"github.com/cwbudde/algo-echelle/fitsframe"
	"github.com/cwbudde/algo-echelle/frame"
	"github.com/cwbudde/algo-echelle/internal/config"
	"github.com/cwbudde/algo-echelle/internal/logging"
)

var errUsage = errors.New("usage")

type options struct {
	db       string
	config   string
	retrace  bool
	cache    string
	zero     string
	flat     string
	trim     string
	badpix   string
	cosmic   bool
	skip     int
	workers  int
	logLevel string

	input, output string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stderr); err != nil {
		if !errors.Is(err, errUsage) {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(1)
	}
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var o options
	fs := flag.NewFlagSet("apall", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.db, "db", "", "IRAF aperture database file (required)")
	fs.StringVar(&o.config, "config", "", "YAML configuration file")
	fs.BoolVar(&o.retrace, "retrace", false, "trace again even when cached traces exist")
	fs.StringVar(&o.cache, "cache", "", "directory for cached traces (overrides the configuration)")
	fs.StringVar(&o.zero, "zero", "", "comma-separated bias frames to combine and subtract")
	fs.StringVar(&o.flat, "flat", "", "comma-separated flat frames to combine and divide by")
	fs.StringVar(&o.trim, "trim", "", "image section to keep, e.g. [1:2048,3:60]")
	fs.StringVar(&o.badpix, "badpix", "", "bad pixel region file (x1 x2 y1 y2 per line)")
	fs.BoolVar(&o.cosmic, "cosmic", false, "remove cosmic rays with a median filter")
	fs.IntVar(&o.skip, "skip", -1, "number of leading apertures left unextracted (default from configuration)")
	fs.IntVar(&o.workers, "workers", 0, "apertures processed concurrently (default from configuration)")
	fs.StringVar(&o.logLevel, "log-level", "", "debug, info, warn or error (default from configuration)")
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: apall [flags] input.fits output.fits\n\n")
		fmt.Fprintf(stderr, "Traces the apertures of an IRAF database on input.fits and writes\n")
		fmt.Fprintf(stderr, "one extracted spectrum per aperture to output.fits.\n\n")
		fmt.Fprintf(stderr, "Flags:\n")
		fs.PrintDefaults()
		fmt.Fprintf(stderr, "\nExamples:\n")
		fmt.Fprintf(stderr, "  apall -db database/apflat obj.fits obj_ec.fits\n")
		fmt.Fprintf(stderr, "  apall -db database/apflat -zero b1.fits,b2.fits -flat f1.fits obj.fits obj_ec.fits\n")
	}

	if err := fs.Parse(args); err != nil {
		return o, errUsage
	}
	if fs.NArg() != 2 || o.db == "" {
		fs.Usage()
		return o, errUsage
	}
	o.input, o.output = fs.Arg(0), fs.Arg(1)
	return o, nil
}

func run(ctx context.Context, args []string, stderr io.Writer) error {
	o, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}

	cfg, err := config.Load(o.config)
	if err != nil {
		return err
	}
	applyFlags(cfg, o)
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := logging.New(stderr, cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return err
	}

	db, err := apall.ReadDatabase(o.db)
	if err != nil {
		return err
	}

	img, err := fitsframe.ReadFile(o.input)
	if err != nil {
		return err
	}
	img, err = calibrate(img, o, logger)
	if err != nil {
		return err
	}

	p, err := cfg.Pipeline(logger, apall.WithRetrace(o.retrace))
	if err != nil {
		return err
	}
	// Traces are keyed by path and calibrated pixels, so a rewritten input
	// or different calibration traces again.
	path, err := filepath.Abs(o.input)
	if err != nil {
		path = o.input
	}
	spec, err := p.Run(ctx, img, db, path+"#"+img.Digest())
	if err != nil {
		return err
	}

	spec.Header = img.Header.Clone()
	spec.Header.Set("HISTORY", fmt.Sprintf("apall: %d apertures from %s", len(db.Apertures), filepath.Base(o.db)), "")
	return fitsframe.WriteFile(o.output, spec)
}

// applyFlags lets explicit flags override the loaded configuration.
func applyFlags(cfg *config.Config, o options) {
	if o.cache != "" {
		cfg.Cache.Enabled = true
		cfg.Cache.Dir = o.cache
	}
	if o.skip >= 0 {
		cfg.Extract.SkipFirst = o.skip
	}
	if o.workers > 0 {
		cfg.Trace.Workers = o.workers
		cfg.Extract.Workers = o.workers
	}
	if o.logLevel != "" {
		cfg.Logging.Level = o.logLevel
	}
}

func readFrames(list string) ([]*frame.Frame, error) {
	var frames []*frame.Frame
	for _, path := range strings.Split(list, ",") {
		path = strings.TrimSpace(path)
		if path == "" {
			continue
		}
		f, err := fitsframe.ReadFile(path)
		if err != nil {
			return nil, err
		}
		frames = append(frames, f)
	}
	return frames, nil
}

// calibrate applies the requested ccd steps to img.
func calibrate(img *frame.Frame, o options, logger *slog.Logger) (*frame.Frame, error) {
	var (
		zero    *frame.Frame
		sec     *ccd.Section
		regions []ccd.Region
	)

	if o.zero != "" {
		frames, err := readFrames(o.zero)
		if err != nil {
			return nil, err
		}
		if zero, err = ccd.ZeroCombine(frames); err != nil {
			return nil, fmt.Errorf("zero: %w", err)
		}
		logger.Info("bias combined", "frames", len(frames))
	}
	if o.trim != "" {
		s, err := ccd.ParseSection(o.trim)
		if err != nil {
			return nil, err
		}
		sec = &s
	}
	if o.badpix != "" {
		fh, err := os.Open(o.badpix)
		if err != nil {
			return nil, err
		}
		regions, err = ccd.ParseBadPixels(fh)
		fh.Close()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", o.badpix, err)
		}
	}

	// basic runs the steps shared by object and flat frames.
	basic := func(f *frame.Frame) (*frame.Frame, error) {
		var err error
		if zero != nil {
			if f, err = ccd.SubtractBias(f, zero); err != nil {
				return nil, err
			}
		}
		// Bad pixel files use raw detector coordinates.
		if len(regions) > 0 {
			if f, err = ccd.RemoveBadRegions(f, regions); err != nil {
				return nil, err
			}
		}
		if sec != nil {
			if f, err = ccd.Trim(f, *sec); err != nil {
				return nil, err
			}
		}
		return f, nil
	}

	out, err := basic(img)
	if err != nil {
		return nil, err
	}

	if o.flat != "" {
		frames, err := readFrames(o.flat)
		if err != nil {
			return nil, err
		}
		flat, err := ccd.FlatCombine(frames)
		if err != nil {
			return nil, fmt.Errorf("flat: %w", err)
		}
		if flat, err = basic(flat); err != nil {
			return nil, fmt.Errorf("flat: %w", err)
		}
		if out, err = ccd.FlatCorrect(out, flat, 0); err != nil {
			return nil, err
		}
		logger.Info("flat applied", "frames", len(frames))
	}

	if o.cosmic {
		var n int
		if out, n, err = ccd.CosmicRayMedian(out); err != nil {
			return nil, err
		}
		logger.Info("cosmic rays removed", "pixels", n)
	}
	return out, nil
}
