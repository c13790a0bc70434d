package fitsframe

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math/big"
	"os"
	"path/filepath"
	"strings"

	"github.com/astrogo/fitsio"

	"github.com/cwbudde/algo-echelle/frame"
)

var (
	ErrNoImage = errors.New("fitsframe: primary HDU holds no 2D image")
	ErrBitpix  = errors.New("fitsframe: unsupported BITPIX")
)

// reserved cards describe the pixel array and are rewritten by fitsio.
func reserved(key string) bool {
	switch key {
	case "SIMPLE", "BITPIX", "EXTEND", "BZERO", "BSCALE", "END":
		return true
	}
	return strings.HasPrefix(key, "NAXIS")
}

// commentary cards carry free text, which fitsio keeps in Card.Comment.
func commentary(key string) bool {
	return key == "COMMENT" || key == "HISTORY" || key == ""
}

// cards returns every card of hdr in order, COMMENT and HISTORY included.
// fitsio exposes no card count and Card panics past the last index.
func cards(hdr *fitsio.Header) (out []*fitsio.Card) {
	defer func() { _ = recover() }()
	for i := 0; ; i++ {
		out = append(out, hdr.Card(i))
	}
}

func toFloat(v fitsio.Value) (float64, bool) {
	switch x := v.(type) {
	case int:
		return float64(x), true
	case float64:
		return x, true
	case big.Int:
		f, _ := new(big.Float).SetInt(&x).Float64()
		return f, true
	}
	return 0, false
}

// Read decodes the primary image of a FITS stream.
func Read(r io.Reader) (*frame.Frame, error) {
	f, err := fitsio.Open(r)
	if err != nil {
		return nil, fmt.Errorf("fitsframe: open: %w", err)
	}
	defer f.Close()

	hdus := f.HDUs()
	if len(hdus) == 0 {
		return nil, ErrNoImage
	}
	img, ok := hdus[0].(fitsio.Image)
	if !ok {
		return nil, ErrNoImage
	}
	hdr := img.Header()
	axes := hdr.Axes()
	if len(axes) != 2 || axes[0] < 1 || axes[1] < 1 {
		return nil, fmt.Errorf("%w: axes %v", ErrNoImage, axes)
	}

	pix, err := readPixels(img, axes[0]*axes[1])
	if err != nil {
		return nil, err
	}
	scale(pix, hdr)

	out := &frame.Frame{Rows: axes[1], Cols: axes[0], Pix: pix}
	for _, c := range cards(hdr) {
		switch {
		case reserved(c.Name):
		case commentary(c.Name):
			out.Header.Set(c.Name, c.Comment, "")
		default:
			out.Header.Set(c.Name, c.Value, c.Comment)
		}
	}
	return out, nil
}

func readPixels(img fitsio.Image, n int) ([]float64, error) {
	pix := make([]float64, n)
	switch bitpix := img.Header().Bitpix(); bitpix {
	case 8:
		raw := make([]uint8, n)
		if err := img.Read(&raw); err != nil {
			return nil, err
		}
		for i, v := range raw {
			pix[i] = float64(v)
		}
	case 16:
		raw := make([]int16, n)
		if err := img.Read(&raw); err != nil {
			return nil, err
		}
		for i, v := range raw {
			pix[i] = float64(v)
		}
	case 32:
		raw := make([]int32, n)
		if err := img.Read(&raw); err != nil {
			return nil, err
		}
		for i, v := range raw {
			pix[i] = float64(v)
		}
	case 64:
		raw := make([]int64, n)
		if err := img.Read(&raw); err != nil {
			return nil, err
		}
		for i, v := range raw {
			pix[i] = float64(v)
		}
	case -32:
		raw := make([]float32, n)
		if err := img.Read(&raw); err != nil {
			return nil, err
		}
		for i, v := range raw {
			pix[i] = float64(v)
		}
	case -64:
		if err := img.Read(&pix); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: %d", ErrBitpix, bitpix)
	}
	return pix, nil
}

// scale applies physical = BZERO + BSCALE * stored.
func scale(pix []float64, hdr *fitsio.Header) {
	bscale, bzero := 1.0, 0.0
	if c := hdr.Get("BSCALE"); c != nil {
		if v, ok := toFloat(c.Value); ok {
			bscale = v
		}
	}
	if c := hdr.Get("BZERO"); c != nil {
		if v, ok := toFloat(c.Value); ok {
			bzero = v
		}
	}
	if bscale == 1 && bzero == 0 {
		return
	}
	for i, v := range pix {
		pix[i] = bzero + bscale*v
	}
}

// toCard builds a fitsio card. Commentary text moves into Comment, the only
// field fitsio encodes for those keys.
func toCard(key string, value any, comment string) fitsio.Card {
	if !commentary(key) {
		return fitsio.Card{Name: key, Value: value, Comment: comment}
	}
	text := comment
	if value != nil {
		text = fmt.Sprint(value)
	}
	return fitsio.Card{Name: key, Comment: text}
}

// ReadFile reads the primary image of the named file.
func ReadFile(path string) (*frame.Frame, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()

	f, err := Read(fh)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Write encodes f as a BITPIX -64 primary image followed by its header cards.
func Write(w io.Writer, f *frame.Frame) error {
	if f.Rows < 1 || f.Cols < 1 {
		return fmt.Errorf("%w: %dx%d", frame.ErrEmpty, f.Rows, f.Cols)
	}

	out, err := fitsio.Create(w)
	if err != nil {
		return fmt.Errorf("fitsframe: create: %w", err)
	}
	defer out.Close()

	im := fitsio.NewImage(-64, []int{f.Cols, f.Rows})
	defer im.Close()

	var extra []fitsio.Card
	for _, c := range f.Header.Cards() {
		if reserved(c.Key) {
			continue
		}
		extra = append(extra, toCard(c.Key, c.Value, c.Comment))
	}
	if err := im.Header().Append(extra...); err != nil {
		return fmt.Errorf("fitsframe: header: %w", err)
	}
	if err := im.Write(f.Pix); err != nil {
		return fmt.Errorf("fitsframe: pixels: %w", err)
	}
	return out.Write(im)
}

// WriteFile writes f to path, replacing any existing file.
func WriteFile(path string, f *frame.Frame) error {
	var buf bytes.Buffer
	if err := Write(&buf, f); err != nil {
		return err
	}
	return replaceFile(path, buf.Bytes())
}

// UpdateHeader sets one primary header card of an existing file in place.
// COMMENT and HISTORY cards are appended.
// Pixel data and every other HDU are rewritten unchanged.
func UpdateHeader(path, key string, value any, comment string) error {
	key = strings.ToUpper(strings.TrimSpace(key))
	if key == "" || reserved(key) {
		return fmt.Errorf("fitsframe: cannot edit %q", key)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	in, err := fitsio.Open(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	defer in.Close()

	hdus := in.HDUs()
	if len(hdus) == 0 {
		return fmt.Errorf("%s: %w", path, ErrNoImage)
	}
	if hdr := hdus[0].Header(); commentary(key) {
		if err := hdr.Append(toCard(key, value, comment)); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
	} else {
		hdr.Set(key, value, comment)
	}

	var buf bytes.Buffer
	out, err := fitsio.Create(&buf)
	if err != nil {
		return err
	}
	for _, hdu := range hdus {
		if err := out.Write(hdu); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
	}
	if err := out.Close(); err != nil {
		return err
	}
	return replaceFile(path, buf.Bytes())
}

func replaceFile(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".fitsframe-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
