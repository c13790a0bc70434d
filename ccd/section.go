package ccd

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/cwbudde/algo-echelle/frame"
)

// Section is an IRAF image section "[x1:x2,y1:y2]": 1-based inclusive
// column range X1..X2 and row range Y1..Y2.
type Section struct {
	X1, X2 int
	Y1, Y2 int
}

// ParseSection parses an IRAF image section.
func ParseSection(s string) (Section, error) {
	body := strings.TrimSpace(s)
	if !strings.HasPrefix(body, "[") || !strings.HasSuffix(body, "]") {
		return Section{}, fmt.Errorf("%w: %q is not bracketed", ErrSection, s)
	}
	axes := strings.Split(body[1:len(body)-1], ",")
	if len(axes) != 2 {
		return Section{}, fmt.Errorf("%w: %q needs two axes", ErrSection, s)
	}

	var sec Section
	var err error
	if sec.X1, sec.X2, err = parseRange(axes[0]); err != nil {
		return Section{}, fmt.Errorf("%w: %q: %w", ErrSection, s, err)
	}
	if sec.Y1, sec.Y2, err = parseRange(axes[1]); err != nil {
		return Section{}, fmt.Errorf("%w: %q: %w", ErrSection, s, err)
	}
	if sec.X1 < 1 || sec.Y1 < 1 || sec.X1 > sec.X2 || sec.Y1 > sec.Y2 {
		return Section{}, fmt.Errorf("%w: %q is empty or not 1-based", ErrSection, s)
	}
	return sec, nil
}

func parseRange(s string) (int, int, error) {
	lo, hi, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return 0, 0, fmt.Errorf("range %q is not lo:hi", s)
	}
	a, err := strconv.Atoi(strings.TrimSpace(lo))
	if err != nil {
		return 0, 0, err
	}
	b, err := strconv.Atoi(strings.TrimSpace(hi))
	if err != nil {
		return 0, 0, err
	}
	return a, b, nil
}

func (s Section) String() string {
	return fmt.Sprintf("[%d:%d,%d:%d]", s.X1, s.X2, s.Y1, s.Y2)
}

// Trim returns the part of f covered by sec.
func Trim(f *frame.Frame, sec Section) (*frame.Frame, error) {
	if sec.X1 < 1 || sec.Y1 < 1 || sec.X2 > f.Cols || sec.Y2 > f.Rows || sec.X1 > sec.X2 || sec.Y1 > sec.Y2 {
		return nil, fmt.Errorf("%w: %s outside %dx%d image", ErrSection, sec, f.Cols, f.Rows)
	}

	out := frame.New(sec.Y2-sec.Y1+1, sec.X2-sec.X1+1)
	out.Header = f.Header.Clone()
	for r := 0; r < out.Rows; r++ {
		src := f.Row(sec.Y1 - 1 + r)
		copy(out.Row(r), src[sec.X1-1:sec.X2])
	}
	out.Header.Set("TRIMSEC", sec.String(), "trimmed section")
	return out, nil
}

// Region is a bad pixel block, 1-based inclusive, as written in IRAF bad
// pixel files: "x1 x2 y1 y2".
type Region struct {
	X1, X2 int
	Y1, Y2 int
}

// ParseBadPixels reads one region per line. Blank lines and lines starting
// with '#' are ignored.
func ParseBadPixels(r io.Reader) ([]Region, error) {
	var out []Region
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		f := strings.Fields(text)
		if len(f) != 4 {
			return nil, fmt.Errorf("%w: line %d: want 4 fields, got %d", ErrRegion, line, len(f))
		}
		var v [4]int
		for i, s := range f {
			n, err := strconv.Atoi(s)
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: %w", ErrRegion, line, err)
			}
			v[i] = n
		}
		reg := Region{X1: v[0], X2: v[1], Y1: v[2], Y2: v[3]}
		if reg.X1 < 1 || reg.Y1 < 1 || reg.X1 > reg.X2 || reg.Y1 > reg.Y2 {
			return nil, fmt.Errorf("%w: line %d: %q", ErrRegion, line, text)
		}
		out = append(out, reg)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// RemoveBadRegions replaces every pixel of each region by linear
// interpolation along its row between the good pixels bordering the region.
// The bordering columns must lie inside the image.
func RemoveBadRegions(f *frame.Frame, regions []Region) (*frame.Frame, error) {
	out := f.Clone()
	for _, reg := range regions {
		left, right := reg.X1-2, reg.X2 // 0-based bordering columns
		if left < 0 || right >= f.Cols || reg.Y2 > f.Rows {
			return nil, fmt.Errorf("%w: %d %d %d %d has no border inside %dx%d image",
				ErrRegion, reg.X1, reg.X2, reg.Y1, reg.Y2, f.Cols, f.Rows)
		}
		span := float64(right - left)
		for r := reg.Y1 - 1; r < reg.Y2; r++ {
			row := out.Row(r)
			a, b := row[left], row[right]
			for c := left + 1; c < right; c++ {
				row[c] = a + (b-a)*float64(c-left)/span
			}
		}
	}
	return out, nil
}
