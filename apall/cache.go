package apall

import (
	"bytes"
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// TraceResult is the cached outcome of tracing one aperture.
type TraceResult struct {
	ID     int
	Beam   int
	Points []Point
	// Lost is the seed failure message of a lost aperture, empty otherwise.
	Lost string
}

// Traces holds one TraceResult per aperture, in database order.
type Traces []TraceResult

// TraceCache stores raw traces between runs. Load reports ok=false on a
// miss.
type TraceCache interface {
	Load(key string) (traces Traces, ok bool, err error)
	Store(key string, traces Traces) error
}

// CacheKey derives a cache key from the image identity and the database
// digest, so a changed database invalidates earlier traces.
func CacheKey(image, digest string) string {
	sum := sha256.Sum256([]byte(image + "\x00" + digest))
	return hex.EncodeToString(sum[:])
}

// CollectTraces snapshots the traced state of aps.
func CollectTraces(aps []*Aperture) Traces {
	out := make(Traces, len(aps))
	for i, ap := range aps {
		r := TraceResult{ID: ap.ID, Beam: ap.Beam}
		switch ap.Stage {
		case StageLost:
			r.Lost = "lost"
			if ap.Lost != nil {
				r.Lost = ap.Lost.Error()
			}
		default:
			r.Points = append([]Point(nil), ap.Points...)
		}
		out[i] = r
	}
	return out
}

// lostError restores a seed failure read back from a cache.
type lostError string

func (e lostError) Error() string { return string(e) }

func (e lostError) Unwrap() error { return ErrFitNotConverged }

// ApplyTraces restores cached traces onto aps. The cache must describe the
// same apertures in the same order.
func ApplyTraces(aps []*Aperture, traces Traces) error {
	if len(aps) != len(traces) {
		return fmt.Errorf("%w: %d cached traces for %d apertures", ErrCacheMismatch, len(traces), len(aps))
	}
	for i, r := range traces {
		if aps[i].ID != r.ID || aps[i].Beam != r.Beam {
			return fmt.Errorf("%w: entry %d is aperture %d beam %d, database has %d beam %d",
				ErrCacheMismatch, i, r.ID, r.Beam, aps[i].ID, aps[i].Beam)
		}
	}
	for i, r := range traces {
		if r.Lost != "" {
			aps[i].MarkLost(lostError(r.Lost))
			continue
		}
		aps[i].SetTrace(append([]Point(nil), r.Points...))
	}
	return nil
}

// MemoryCache is a TraceCache held in process memory.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]Traces
}

// NewMemoryCache returns an empty MemoryCache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]Traces)}
}

func (c *MemoryCache) Load(key string) (Traces, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.entries[key]
	if !ok {
		return nil, false, nil
	}
	return cloneTraces(t), true, nil
}

func (c *MemoryCache) Store(key string, traces Traces) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.entries == nil {
		c.entries = make(map[string]Traces)
	}
	c.entries[key] = cloneTraces(traces)
	return nil
}

// Len returns the number of stored keys.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func cloneTraces(t Traces) Traces {
	out := make(Traces, len(t))
	for i, r := range t {
		r.Points = append([]Point(nil), r.Points...)
		out[i] = r
	}
	return out
}

// FileCache stores one gob file per key in Dir.
type FileCache struct {
	Dir string
}

func (c FileCache) path(key string) string {
	return filepath.Join(c.Dir, key+".traces")
}

func (c FileCache) Load(key string) (Traces, bool, error) {
	data, err := os.ReadFile(c.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("apall: read trace cache: %w", err)
	}
	var t Traces
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&t); err != nil {
		return nil, false, fmt.Errorf("apall: decode trace cache %s: %w", c.path(key), err)
	}
	return t, true, nil
}

// Store writes traces atomically through a temporary file in Dir.
func (c FileCache) Store(key string, traces Traces) error {
	if err := os.MkdirAll(c.Dir, 0o755); err != nil {
		return fmt.Errorf("apall: trace cache dir: %w", err)
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(traces); err != nil {
		return fmt.Errorf("apall: encode trace cache: %w", err)
	}

	tmp, err := os.CreateTemp(c.Dir, key+".*.tmp")
	if err != nil {
		return fmt.Errorf("apall: write trace cache: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("apall: write trace cache: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("apall: write trace cache: %w", err)
	}
	if err := os.Rename(tmp.Name(), c.path(key)); err != nil {
		return fmt.Errorf("apall: write trace cache: %w", err)
	}
	return nil
}
