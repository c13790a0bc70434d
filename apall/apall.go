package apall

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/cwbudde/algo-echelle/frame"
)

// Pipeline runs trace, smooth and extract over one detector image.
type Pipeline struct {
	Tracer    *Tracer
	Extractor *Extractor

	SmoothDegree int
	Cache        TraceCache
	Retrace      bool
	Logger       *slog.Logger
}

// New returns a pipeline configured from opts.
func New(opts ...Option) (*Pipeline, error) {
	o := ApplyOptions(opts...)
	ex, err := NewExtractor(opts...)
	if err != nil {
		return nil, err
	}
	return &Pipeline{
		Tracer:       NewTracer(opts...),
		Extractor:    ex,
		SmoothDegree: o.SmoothDegree,
		Cache:        o.Cache,
		Retrace:      o.Retrace,
		Logger:       o.Logger,
	}, nil
}

// Run reduces f with the apertures of db and returns one extracted spectrum
// per aperture. image identifies f for the trace cache. The apertures of db
// are updated in place.
func (p *Pipeline) Run(ctx context.Context, f *frame.Frame, db *Database, image string) (*frame.Frame, error) {
	if db == nil || len(db.Apertures) == 0 {
		return nil, ErrNoApertures
	}
	log := p.logger().With("run_id", uuid.NewString(), "image", image)
	start := time.Now()
	aps := db.Apertures

	if err := p.trace(ctx, log, f, aps, CacheKey(image, db.Digest)); err != nil {
		return nil, err
	}

	traced := make([]bool, len(aps))
	for i, ap := range aps {
		traced[i] = ap.Stage != StageLost
	}
	if err := SmoothAll(aps, p.SmoothDegree, f.Cols); err != nil {
		return nil, err
	}
	for i, ap := range aps {
		if traced[i] && ap.Stage == StageLost {
			log.Warn("aperture lost while smoothing", "aperture", ap.ID, "err", ap.Lost)
		}
	}

	out, err := p.Extractor.Extract(ctx, f, aps)
	if err != nil {
		return nil, err
	}

	lost := 0
	for _, ap := range aps {
		if ap.Stage == StageLost {
			lost++
		}
	}
	log.Info("extraction complete",
		"apertures", len(aps),
		"lost", lost,
		"columns", f.Cols,
		"elapsed", time.Since(start),
	)
	return out, nil
}

func (p *Pipeline) trace(ctx context.Context, log *slog.Logger, f *frame.Frame, aps []*Aperture, key string) error {
	if p.Cache != nil && !p.Retrace {
		traces, ok, err := p.Cache.Load(key)
		if err != nil {
			return err
		}
		if ok {
			if err := ApplyTraces(aps, traces); err != nil {
				return err
			}
			log.Info("traces loaded from cache", "key", key)
			return nil
		}
	}

	for _, ap := range aps {
		ap.Reset()
	}
	tr := *p.Tracer
	tr.Logger = log
	if err := tr.Trace(ctx, f, aps); err != nil {
		return fmt.Errorf("apall: trace: %w", err)
	}

	if p.Cache != nil {
		if err := p.Cache.Store(key, CollectTraces(aps)); err != nil {
			return err
		}
		log.Debug("traces stored", "key", key)
	}
	return nil
}

func (p *Pipeline) logger() *slog.Logger {
	if p.Logger == nil {
		return slog.Default()
	}
	return p.Logger
}
