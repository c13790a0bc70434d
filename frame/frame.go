package frame

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// Errors returned by frame operations.
var (
	ErrOutOfBounds = errors.New("frame: coordinates outside image")
	ErrShape       = errors.New("frame: shape mismatch")
	ErrEmpty       = errors.New("frame: empty frame")
)

// BoundsError describes a half-open window [Row0,Row1) x [Col0,Col1) that
// does not fit inside a Rows x Cols frame.
type BoundsError struct {
	Row0, Row1 int
	Col0, Col1 int
	Rows, Cols int
}

func (e *BoundsError) Error() string {
	return fmt.Sprintf("frame: window rows [%d,%d) cols [%d,%d) outside %dx%d image",
		e.Row0, e.Row1, e.Col0, e.Col1, e.Rows, e.Cols)
}

func (e *BoundsError) Unwrap() error { return ErrOutOfBounds }

// Frame is a 2D detector image stored row-major.
type Frame struct {
	Rows   int
	Cols   int
	Pix    []float64
	Header Header
}

// New returns a zero-filled frame with the given shape.
func New(rows, cols int) *Frame {
	if rows < 0 || cols < 0 {
		panic("frame: negative dimension")
	}

	return &Frame{
		Rows: rows,
		Cols: cols,
		Pix:  make([]float64, rows*cols),
	}
}

// FromRows builds a frame from a slice of equally long rows.
func FromRows(rows [][]float64) (*Frame, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, ErrEmpty
	}

	f := New(len(rows), len(rows[0]))
	for r, row := range rows {
		if len(row) != f.Cols {
			return nil, fmt.Errorf("%w: row %d has %d columns, want %d", ErrShape, r, len(row), f.Cols)
		}
		copy(f.Row(r), row)
	}

	return f, nil
}

// At returns the pixel at row r, column c. It panics on out-of-range indices
// like a slice access would.
func (f *Frame) At(r, c int) float64 {
	return f.Pix[r*f.Cols+c]
}

// Set stores v at row r, column c.
func (f *Frame) Set(r, c int, v float64) {
	f.Pix[r*f.Cols+c] = v
}

// Row returns row r as a view into the pixel buffer.
func (f *Frame) Row(r int) []float64 {
	return f.Pix[r*f.Cols : (r+1)*f.Cols]
}

// InBounds reports whether (r, c) addresses a pixel of f.
func (f *Frame) InBounds(r, c int) bool {
	return r >= 0 && r < f.Rows && c >= 0 && c < f.Cols
}

// SameShape reports whether f and g have identical dimensions.
func (f *Frame) SameShape(g *Frame) bool {
	return f.Rows == g.Rows && f.Cols == g.Cols
}

// Clone returns a deep copy of f, header included.
func (f *Frame) Clone() *Frame {
	out := &Frame{
		Rows:   f.Rows,
		Cols:   f.Cols,
		Pix:    make([]float64, len(f.Pix)),
		Header: f.Header.Clone(),
	}
	copy(out.Pix, f.Pix)

	return out
}

// Digest returns a hex SHA-256 of the shape and pixel values. The header is
// not hashed.
func (f *Frame) Digest() string {
	h := sha256.New()
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, uint64(f.Rows))
	h.Write(buf)
	binary.LittleEndian.PutUint64(buf, uint64(f.Cols))
	h.Write(buf)
	for _, v := range f.Pix {
		binary.LittleEndian.PutUint64(buf, math.Float64bits(v))
		h.Write(buf)
	}

	return hex.EncodeToString(h.Sum(nil))
}

func (f *Frame) checkWindow(r0, r1, c0, c1 int) error {
	if r0 < 0 || c0 < 0 || r1 > f.Rows || c1 > f.Cols || r0 >= r1 || c0 >= c1 {
		return &BoundsError{Row0: r0, Row1: r1, Col0: c0, Col1: c1, Rows: f.Rows, Cols: f.Cols}
	}

	return nil
}

// Column copies rows [r0,r1) of column c into a new slice.
func (f *Frame) Column(c, r0, r1 int) ([]float64, error) {
	if err := f.checkWindow(r0, r1, c, c+1); err != nil {
		return nil, err
	}

	out := make([]float64, r1-r0)
	for r := r0; r < r1; r++ {
		out[r-r0] = f.Pix[r*f.Cols+c]
	}

	return out, nil
}

// CollapseRows sums the block [r0,r1) x [c0,c1) along the dispersion axis and
// returns one value per row.
func (f *Frame) CollapseRows(r0, r1, c0, c1 int) ([]float64, error) {
	if err := f.checkWindow(r0, r1, c0, c1); err != nil {
		return nil, err
	}

	out := make([]float64, r1-r0)
	for r := r0; r < r1; r++ {
		out[r-r0] = floats.Sum(f.Pix[r*f.Cols+c0 : r*f.Cols+c1])
	}

	return out, nil
}

// Min returns the smallest pixel value.
func (f *Frame) Min() float64 {
	if len(f.Pix) == 0 {
		return 0
	}
	return floats.Min(f.Pix)
}

// Max returns the largest pixel value.
func (f *Frame) Max() float64 {
	if len(f.Pix) == 0 {
		return 0
	}
	return floats.Max(f.Pix)
}
