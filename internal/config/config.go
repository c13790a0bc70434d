package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	"github.com/cwbudde/algo-echelle/apall"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "ECHELLE"

var ErrInvalid = errors.New("config: invalid configuration")

// Config is the complete reduction configuration.
type Config struct {
	Trace   TraceConfig   `yaml:"trace" envconfig:"TRACE"`
	Smooth  SmoothConfig  `yaml:"smooth" envconfig:"SMOOTH"`
	Extract ExtractConfig `yaml:"extract" envconfig:"EXTRACT"`
	Cache   CacheConfig   `yaml:"cache" envconfig:"CACHE"`
	Logging LoggingConfig `yaml:"logging" envconfig:"LOGGING"`
}

// TraceConfig holds the tracer settings.
type TraceConfig struct {
	Step          int       `yaml:"step" envconfig:"STEP" validate:"min=1"`
	NSum          int       `yaml:"nsum" envconfig:"NSUM" validate:"min=1"`
	NLost         int       `yaml:"nlost" envconfig:"NLOST" validate:"min=0"`
	Workers       int       `yaml:"workers" envconfig:"WORKERS" validate:"min=1,max=256"`
	InitialGuess  []float64 `yaml:"initial_guess" envconfig:"INITIAL_GUESS" validate:"len=3"`
	MaxIterations int       `yaml:"max_iterations" envconfig:"MAX_ITERATIONS" validate:"min=1"`
}

// SmoothConfig holds the trace model settings.
type SmoothConfig struct {
	Degree int `yaml:"degree" envconfig:"DEGREE" validate:"min=0,max=30"`
}

// ExtractConfig holds the extraction settings.
type ExtractConfig struct {
	Sample          string `yaml:"sample" envconfig:"SAMPLE" validate:"required"`
	ApertureSamples bool   `yaml:"aperture_samples" envconfig:"APERTURE_SAMPLES"`
	SkipFirst       int    `yaml:"skip_first" envconfig:"SKIP_FIRST" validate:"min=0"`
	BackgroundOrder int    `yaml:"background_order" envconfig:"BACKGROUND_ORDER" validate:"min=0,max=20"`
	Workers         int    `yaml:"workers" envconfig:"WORKERS" validate:"min=1,max=256"`
}

// CacheConfig selects the trace cache.
type CacheConfig struct {
	Enabled bool   `yaml:"enabled" envconfig:"ENABLED"`
	Dir     string `yaml:"dir" envconfig:"DIR" validate:"required_if=Enabled true"`
}

// LoggingConfig selects the log level and handler.
type LoggingConfig struct {
	Level  string `yaml:"level" envconfig:"LEVEL" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" envconfig:"FORMAT" validate:"oneof=json text"`
}

// Default returns the settings of the reference reduction.
func Default() Config {
	o := apall.DefaultOptions()
	return Config{
		Trace: TraceConfig{
			Step:          o.Step,
			NSum:          o.NSum,
			NLost:         o.NLost,
			Workers:       o.Workers,
			InitialGuess:  o.InitialGuess[:],
			MaxIterations: o.MaxIterations,
		},
		Smooth: SmoothConfig{Degree: o.SmoothDegree},
		Extract: ExtractConfig{
			Sample:          o.Sample,
			SkipFirst:       4,
			BackgroundOrder: o.BackgroundOrder,
			Workers:         o.Workers,
		},
		Cache:   CacheConfig{Dir: ".apall-cache"},
		Logging: LoggingConfig{Level: "info", Format: "text"},
	}
}

// Load reads path over Default, applies environment overrides and validates
// the result. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
		if err := yaml.UnmarshalStrict(data, &cfg); err != nil {
			return nil, fmt.Errorf("config: %s: %w", path, err)
		}
	}

	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("config: environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks field ranges and that the background sample parses.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if _, err := apall.ParseSample(c.Extract.Sample); err != nil {
		return fmt.Errorf("%w: extract.sample: %w", ErrInvalid, err)
	}
	return nil
}

// Options maps the configuration onto pipeline options. The cache is
// attached separately because it depends on the run.
func (c *Config) Options(logger *slog.Logger) []apall.Option {
	g := c.Trace.InitialGuess
	return []apall.Option{
		apall.WithStep(c.Trace.Step),
		apall.WithNSum(c.Trace.NSum),
		apall.WithNLost(c.Trace.NLost),
		apall.WithWorkers(c.Trace.Workers),
		apall.WithInitialGuess(g[0], g[1], g[2]),
		apall.WithMaxIterations(c.Trace.MaxIterations),
		apall.WithSmoothDegree(c.Smooth.Degree),
		apall.WithSample(c.Extract.Sample),
		apall.WithApertureSamples(c.Extract.ApertureSamples),
		apall.WithSkip(apall.SkipFirst(c.Extract.SkipFirst)),
		apall.WithBackgroundOrder(c.Extract.BackgroundOrder),
		apall.WithLogger(logger),
	}
}

// TraceCache returns the configured cache, or nil when caching is off.
func (c *Config) TraceCache() apall.TraceCache {
	if !c.Cache.Enabled {
		return nil
	}
	return apall.FileCache{Dir: c.Cache.Dir}
}

// Pipeline builds a pipeline from the configuration. Extraction gets its
// own worker bound.
func (c *Config) Pipeline(logger *slog.Logger, opts ...apall.Option) (*apall.Pipeline, error) {
	all := c.Options(logger)
	if cache := c.TraceCache(); cache != nil {
		all = append(all, apall.WithCache(cache))
	}
	p, err := apall.New(append(all, opts...)...)
	if err != nil {
		return nil, err
	}
	p.Extractor.Workers = c.Extract.Workers
	return p, nil
}
