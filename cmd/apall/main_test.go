package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwbudde/algo-echelle/apall"
	"github.com/cwbudde/algo-echelle/fitsframe"
	"github.com/cwbudde/algo-echelle/frame"
	"github.com/cwbudde/algo-echelle/internal/testutil"
)

func constFrame(rows, cols int, v float64) *frame.Frame {
	f := frame.New(rows, cols)
	for i := range f.Pix {
		f.Pix[i] = v
	}
	return f
}

// scene writes an object frame with two orders and a matching database.
func scene(t *testing.T, dir string) (input, db string) {
	t.Helper()

	img := testutil.RidgeFrame(100, 120, 100,
		testutil.Straight(30.3, 300, 1.5),
		testutil.Straight(60.3, 300, 1.5),
	)
	img.Header.Set("OBJECT", "arcturus", "")
	input = filepath.Join(dir, "obj.fits")
	require.NoError(t, fitsframe.WriteFile(input, img))

	var aps []*apall.Aperture
	for i, y := range []float64{30, 60} {
		aps = append(aps, &apall.Aperture{
			Image:      "obj",
			ID:         i + 1,
			Beam:       i + 1,
			Center:     apall.Coord{X: 60, Y: y},
			Low:        apall.Coord{X: -60, Y: -5},
			High:       apall.Coord{X: 60, Y: 5},
			Background: apall.Background{Function: "chebyshev", Order: 2, Sample: apall.DefaultSample},
			Axis:       2,
		})
	}
	var buf bytes.Buffer
	require.NoError(t, apall.WriteDatabase(&buf, aps))
	db = filepath.Join(dir, "apobj")
	require.NoError(t, os.WriteFile(db, buf.Bytes(), 0o644))
	return input, db
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	input, db := scene(t, dir)
	output := filepath.Join(dir, "obj_ec.fits")
	cache := filepath.Join(dir, "traces")

	var stderr bytes.Buffer
	err := run(context.Background(), []string{
		"-db", db, "-skip", "0", "-workers", "2", "-cache", cache, input, output,
	}, &stderr)
	require.NoError(t, err, stderr.String())

	spec, err := fitsframe.ReadFile(output)
	require.NoError(t, err)
	require.Equal(t, 2, spec.Rows)
	require.Equal(t, 120, spec.Cols)
	for _, v := range spec.Pix {
		assert.InEpsilon(t, 300*1.5*2.5066282746310002, v, 1e-3)
	}

	card, ok := spec.Header.Get("OBJECT")
	require.True(t, ok)
	assert.Equal(t, "arcturus", card.Value)

	entries, err := os.ReadDir(cache)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
	assert.Contains(t, stderr.String(), "extraction complete")
}

func TestRun_CacheFollowsPixels(t *testing.T) {
	dir := t.TempDir()
	input, db := scene(t, dir)
	output := filepath.Join(dir, "obj_ec.fits")
	cache := filepath.Join(dir, "traces")
	args := []string{"-db", db, "-skip", "0", "-cache", cache, input, output}

	entries := func() int {
		t.Helper()
		e, err := os.ReadDir(cache)
		require.NoError(t, err)
		return len(e)
	}

	require.NoError(t, run(context.Background(), args, &bytes.Buffer{}))
	require.NoError(t, run(context.Background(), args, &bytes.Buffer{}))
	assert.Equal(t, 1, entries(), "unchanged input reuses the traces")

	// Same path, orders moved down by two rows.
	img := testutil.RidgeFrame(100, 120, 100,
		testutil.Straight(32.3, 300, 1.5),
		testutil.Straight(62.3, 300, 1.5),
	)
	require.NoError(t, fitsframe.WriteFile(input, img))

	var stderr bytes.Buffer
	require.NoError(t, run(context.Background(), args, &stderr))
	assert.Equal(t, 2, entries())
	assert.NotContains(t, stderr.String(), "traces loaded from cache")

	spec, err := fitsframe.ReadFile(output)
	require.NoError(t, err)
	for _, v := range spec.Pix {
		assert.InEpsilon(t, 300*1.5*2.5066282746310002, v, 1e-3)
	}
}

func TestRun_Calibration(t *testing.T) {
	dir := t.TempDir()
	input, db := scene(t, dir)

	// Biased copy of the object plus flat fields of unit response.
	img, err := fitsframe.ReadFile(input)
	require.NoError(t, err)
	for i := range img.Pix {
		img.Pix[i] += 10
	}
	require.NoError(t, fitsframe.WriteFile(input, img))

	var zeros, flats []string
	for i := 0; i < 3; i++ {
		z := filepath.Join(dir, "zero"+string(rune('a'+i))+".fits")
		require.NoError(t, fitsframe.WriteFile(z, constFrame(100, 120, 10)))
		zeros = append(zeros, z)
		f := filepath.Join(dir, "flat"+string(rune('a'+i))+".fits")
		require.NoError(t, fitsframe.WriteFile(f, constFrame(100, 120, 5010)))
		flats = append(flats, f)
	}

	output := filepath.Join(dir, "obj_ec.fits")
	var stderr bytes.Buffer
	err = run(context.Background(), []string{
		"-db", db, "-skip", "1",
		"-zero", zeros[0] + "," + zeros[1] + "," + zeros[2],
		"-flat", flats[0] + "," + flats[1] + "," + flats[2],
		input, output,
	}, &stderr)
	require.NoError(t, err, stderr.String())

	spec, err := fitsframe.ReadFile(output)
	require.NoError(t, err)
	assert.Equal(t, make([]float64, 120), spec.Row(0))
	for _, v := range spec.Row(1) {
		assert.InEpsilon(t, 300*1.5*2.5066282746310002, v, 1e-3)
	}
}

func TestRun_TrimAndBadPixels(t *testing.T) {
	dir := t.TempDir()
	input, db := scene(t, dir)

	// Raw frame: ten overscan columns ahead of the scene and a hot column
	// at raw x=61, which is x=51 after trimming.
	raw := testutil.RidgeFrame(100, 130, 100,
		testutil.Straight(30.3, 300, 1.5),
		testutil.Straight(60.3, 300, 1.5),
	)
	for r := 0; r < raw.Rows; r++ {
		for c := 0; c < 10; c++ {
			raw.Set(r, c, 0)
		}
		raw.Set(r, 60, 1e6)
	}
	require.NoError(t, fitsframe.WriteFile(input, raw))

	badpix := filepath.Join(dir, "badpix.dat")
	require.NoError(t, os.WriteFile(badpix, []byte("# hot column\n61 61 1 100\n"), 0o644))

	output := filepath.Join(dir, "obj_ec.fits")
	var stderr bytes.Buffer
	err := run(context.Background(), []string{
		"-db", db, "-skip", "0", "-trim", "[11:130,1:100]", "-badpix", badpix,
		input, output,
	}, &stderr)
	require.NoError(t, err, stderr.String())

	spec, err := fitsframe.ReadFile(output)
	require.NoError(t, err)
	require.Equal(t, 120, spec.Cols)
	for _, v := range spec.Pix {
		assert.InEpsilon(t, 300*1.5*2.5066282746310002, v, 1e-3)
	}
}

func TestRun_Usage(t *testing.T) {
	var stderr bytes.Buffer
	err := run(context.Background(), []string{"only-one.fits"}, &stderr)
	assert.ErrorIs(t, err, errUsage)
	assert.Contains(t, stderr.String(), "Usage: apall")

	err = run(context.Background(), []string{"-db", "x", "-bogus", "a", "b"}, &stderr)
	assert.ErrorIs(t, err, errUsage)
}

func TestRun_MissingDatabase(t *testing.T) {
	dir := t.TempDir()
	input, _ := scene(t, dir)
	err := run(context.Background(), []string{
		"-db", filepath.Join(dir, "nope"), input, filepath.Join(dir, "out.fits"),
	}, &bytes.Buffer{})
	assert.ErrorIs(t, err, os.ErrNotExist)
}
