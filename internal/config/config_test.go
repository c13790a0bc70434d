package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwbudde/algo-echelle/apall"
)

func writeConfig(t *testing.T, text string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "apall.yaml")
	require.NoError(t, os.WriteFile(path, []byte(text), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), *cfg)
	assert.Equal(t, 10, cfg.Trace.Step)
	assert.Equal(t, []float64{4000, 0, 2}, cfg.Trace.InitialGuess)
	assert.Equal(t, 4, cfg.Extract.SkipFirst)
	assert.False(t, cfg.Cache.Enabled)
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := writeConfig(t, `
trace:
  step: 5
  initial_guess: [1000, 0, 1.5]
extract:
  sample: "-10:-6,6:10"
  aperture_samples: true
  workers: 4
cache:
  enabled: true
  dir: /tmp/traces
logging:
  level: debug
`)
	t.Setenv("ECHELLE_TRACE_STEP", "7")
	t.Setenv("ECHELLE_SMOOTH_DEGREE", "6")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Trace.Step, "environment wins")
	assert.Equal(t, 10, cfg.Trace.NSum, "default kept")
	assert.Equal(t, []float64{1000, 0, 1.5}, cfg.Trace.InitialGuess)
	assert.Equal(t, 6, cfg.Smooth.Degree)
	assert.Equal(t, "-10:-6,6:10", cfg.Extract.Sample)
	assert.True(t, cfg.Extract.ApertureSamples)
	assert.Equal(t, 4, cfg.Extract.Workers)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, apall.FileCache{Dir: "/tmp/traces"}, cfg.TraceCache())
}

func TestLoad_Invalid(t *testing.T) {
	for name, text := range map[string]string{
		"zero step":     "trace:\n  step: 0\n",
		"short guess":   "trace:\n  initial_guess: [1, 2]\n",
		"bad sample":    "extract:\n  sample: \"-5:-1\"\n",
		"bad level":     "logging:\n  level: loud\n",
		"cache no dir":  "cache:\n  enabled: true\n  dir: \"\"\n",
		"unknown field": "trace:\n  stride: 3\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, text))
			assert.Error(t, err)
		})
	}

	_, err := Load(writeConfig(t, "trace:\n  step: 0\n"))
	assert.ErrorIs(t, err, ErrInvalid)
	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoad_BadEnv(t *testing.T) {
	t.Setenv("ECHELLE_TRACE_NSUM", "ten")
	_, err := Load("")
	assert.Error(t, err)
}

func TestPipeline(t *testing.T) {
	cfg := Default()
	cfg.Trace.Step = 3
	cfg.Trace.Workers = 2
	cfg.Extract.Workers = 5

	p, err := cfg.Pipeline(nil)
	require.NoError(t, err)
	assert.Equal(t, 3, p.Tracer.Step)
	assert.Equal(t, 2, p.Tracer.Workers)
	assert.Equal(t, 5, p.Extractor.Workers)
	assert.False(t, p.Extractor.ApertureSamples)
	assert.Equal(t, 10, p.SmoothDegree)
	assert.Nil(t, p.Cache)
}
