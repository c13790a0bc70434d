package apall

import "log/slog"

// Options collects the tunables of every stage. The zero value is not
// useful; start from DefaultOptions.
type Options struct {
	// Tracing.
	Step          int        // columns between traced points
	NSum          int        // columns summed into each spatial profile
	NLost         int        // accepted for database compatibility; not used
	InitialGuess  [3]float64 // Gaussian amplitude, center, sigma
	MaxIterations int        // Levenberg-Marquardt iteration limit

	// Smoothing.
	SmoothDegree int

	// Extraction.
	Sample          string
	ApertureSamples bool
	BackgroundOrder int
	Skip            SkipPolicy

	Workers int
	Cache   TraceCache
	Retrace bool
	Logger  *slog.Logger
}

// Option mutates Options.
type Option func(*Options)

// DefaultOptions returns the settings of the reference reduction.
func DefaultOptions() Options {
	return Options{
		Step:            10,
		NSum:            10,
		NLost:           3,
		InitialGuess:    [3]float64{4000, 0, 2},
		MaxIterations:   1000,
		SmoothDegree:    10,
		Sample:          DefaultSample,
		BackgroundOrder: DefaultBackgroundOrder,
		Skip:            SkipFirst(4),
		Workers:         1,
	}
}

// ApplyOptions applies opts on top of DefaultOptions.
func ApplyOptions(opts ...Option) Options {
	o := DefaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// WithStep sets the column step between traced points.
func WithStep(step int) Option {
	return func(o *Options) {
		if step > 0 {
			o.Step = step
		}
	}
}

// WithNSum sets how many columns are summed into each profile.
func WithNSum(nsum int) Option {
	return func(o *Options) {
		if nsum > 0 {
			o.NSum = nsum
		}
	}
}

// WithNLost records the database nlost parameter.
func WithNLost(nlost int) Option {
	return func(o *Options) { o.NLost = nlost }
}

// WithInitialGuess sets the Gaussian starting point (amplitude, center, sigma).
func WithInitialGuess(amplitude, center, sigma float64) Option {
	return func(o *Options) {
		o.InitialGuess = [3]float64{amplitude, center, sigma}
	}
}

// WithMaxIterations caps the Levenberg-Marquardt iterations per fit.
func WithMaxIterations(n int) Option {
	return func(o *Options) {
		if n > 0 {
			o.MaxIterations = n
		}
	}
}

// WithSmoothDegree sets the Legendre degree of the trace model.
func WithSmoothDegree(degree int) Option {
	return func(o *Options) {
		if degree >= 0 {
			o.SmoothDegree = degree
		}
	}
}

// WithSample sets the default background sample specification.
func WithSample(spec string) Option {
	return func(o *Options) { o.Sample = spec }
}

// WithApertureSamples makes extraction use each aperture's own background
// sample instead of the fixed default window.
func WithApertureSamples(use bool) Option {
	return func(o *Options) { o.ApertureSamples = use }
}

// WithBackgroundOrder sets the Chebyshev degree of the background fit.
func WithBackgroundOrder(order int) Option {
	return func(o *Options) {
		if order >= 0 {
			o.BackgroundOrder = order
		}
	}
}

// WithSkip sets the extraction skip policy. A nil policy extracts every
// aperture.
func WithSkip(p SkipPolicy) Option {
	return func(o *Options) { o.Skip = p }
}

// WithWorkers bounds the number of apertures processed concurrently.
func WithWorkers(n int) Option {
	return func(o *Options) {
		if n > 0 {
			o.Workers = n
		}
	}
}

// WithCache injects a trace cache.
func WithCache(c TraceCache) Option {
	return func(o *Options) { o.Cache = c }
}

// WithRetrace forces tracing even when the cache holds a result.
func WithRetrace(retrace bool) Option {
	return func(o *Options) { o.Retrace = retrace }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Options) { o.Logger = l }
}
