package apall

import (
	"bufio"
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

// Database is a parsed aperture geometry database.
type Database struct {
	Apertures []*Aperture
	// Digest is the hex SHA-256 of the database text.
	Digest string
}

// record line layout, 0-based within a record.
const (
	lineComment    = 0
	lineBegin      = 1
	lineImage      = 2
	lineAperture   = 3
	lineBeam       = 4
	lineCenter     = 5
	lineLow        = 6
	lineHigh       = 7
	lineBackground = 8
	lineXMin       = 9
	lineXMax       = 10
	lineFunction   = 11
	lineOrder      = 12
	lineSample     = 13
	lineNAverage   = 14
	lineNIterate   = 15
	lineLowReject  = 16
	lineHighReject = 17
	lineGrow       = 18
	lineAxis       = 19
	lineCurve      = 20
	lineParams     = 21
)

// ReadDatabase parses the database file at path.
func ReadDatabase(path string) (*Database, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("apall: open database: %w", err)
	}
	defer f.Close()

	return ParseDatabase(f)
}

// ParseDatabase parses records separated by blank lines. Fields are found by
// position; each line must also carry its expected keyword.
func ParseDatabase(r io.Reader) (*Database, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("apall: read database: %w", err)
	}
	sum := sha256.Sum256(data)
	db := &Database{Digest: hex.EncodeToString(sum[:])}

	sc := bufio.NewScanner(bytes.NewReader(data))
	var (
		rec   []string
		first int // file line of rec[0], 1-based
		line  int
	)
	flush := func() error {
		if len(rec) == 0 {
			return nil
		}
		p := recordParser{record: len(db.Apertures) + 1, first: first, lines: rec}
		ap, err := p.parse()
		if err != nil {
			return err
		}
		db.Apertures = append(db.Apertures, ap)
		rec = nil
		return nil
	}

	for sc.Scan() {
		line++
		text := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(text) == "" {
			if err := flush(); err != nil {
				return nil, err
			}
			continue
		}
		if len(rec) == 0 {
			first = line
		}
		rec = append(rec, text)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("apall: read database: %w", err)
	}
	if err := flush(); err != nil {
		return nil, err
	}
	if len(db.Apertures) == 0 {
		return nil, ErrNoApertures
	}
	return db, nil
}

type recordParser struct {
	record int
	first  int
	lines  []string
}

func (p *recordParser) fail(idx int, field string, err error) error {
	return &DatabaseError{Record: p.record, Line: p.first + idx, Field: field, Err: err}
}

// fields returns the whitespace separated values of line idx after checking
// that its first token is key.
func (p *recordParser) fields(idx int, key string, n int) ([]string, error) {
	if idx >= len(p.lines) {
		return nil, p.fail(idx, key, fmt.Errorf("%w: record ends after %d lines", ErrMalformedRecord, len(p.lines)))
	}
	tok := strings.Fields(p.lines[idx])
	if len(tok) == 0 || tok[0] != key {
		return nil, p.fail(idx, key, fmt.Errorf("%w: want keyword %q, got %q", ErrMalformedRecord, key, strings.TrimSpace(p.lines[idx])))
	}
	if len(tok)-1 != n {
		return nil, p.fail(idx, key, fmt.Errorf("%w: want %d values, got %d", ErrMalformedRecord, n, len(tok)-1))
	}
	return tok[1:], nil
}

func (p *recordParser) str(idx int, key string) (string, error) {
	v, err := p.fields(idx, key, 1)
	if err != nil {
		return "", err
	}
	return v[0], nil
}

func (p *recordParser) floatField(idx int, key string) (float64, error) {
	s, err := p.str(idx, key)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, p.fail(idx, key, fmt.Errorf("%w: %w", ErrMalformedRecord, err))
	}
	return v, nil
}

// intField accepts integral values written in float form such as "2.".
func (p *recordParser) intField(idx int, key string) (int, error) {
	v, err := p.floatField(idx, key)
	if err != nil {
		return 0, err
	}
	if v != math.Trunc(v) {
		return 0, p.fail(idx, key, fmt.Errorf("%w: %g is not an integer", ErrMalformedRecord, v))
	}
	return int(v), nil
}

func (p *recordParser) coord(idx int, key string) (Coord, error) {
	v, err := p.fields(idx, key, 2)
	if err != nil {
		return Coord{}, err
	}
	x, err := strconv.ParseFloat(v[0], 64)
	if err != nil {
		return Coord{}, p.fail(idx, key, fmt.Errorf("%w: %w", ErrMalformedRecord, err))
	}
	y, err := strconv.ParseFloat(v[1], 64)
	if err != nil {
		return Coord{}, p.fail(idx, key, fmt.Errorf("%w: %w", ErrMalformedRecord, err))
	}
	return Coord{X: x, Y: y}, nil
}

func (p *recordParser) parse() (*Aperture, error) {
	ap := &Aperture{}
	var err error

	if c := strings.TrimSpace(p.lines[lineComment]); !strings.HasPrefix(c, "#") {
		return nil, p.fail(lineComment, "#", fmt.Errorf("%w: record does not start with a comment", ErrMalformedRecord))
	}
	ap.Comment = strings.TrimSpace(p.lines[lineComment])

	if len(p.lines) <= lineBegin || !strings.HasPrefix(strings.TrimSpace(p.lines[lineBegin]), "begin") {
		return nil, p.fail(lineBegin, "begin", fmt.Errorf("%w: missing begin line", ErrMalformedRecord))
	}
	ap.Begin = strings.TrimSpace(p.lines[lineBegin])

	if ap.Image, err = p.str(lineImage, "image"); err != nil {
		return nil, err
	}
	if ap.ID, err = p.intField(lineAperture, "aperture"); err != nil {
		return nil, err
	}
	if ap.Beam, err = p.intField(lineBeam, "beam"); err != nil {
		return nil, err
	}
	if ap.Center, err = p.coord(lineCenter, "center"); err != nil {
		return nil, err
	}
	if ap.Low, err = p.coord(lineLow, "low"); err != nil {
		return nil, err
	}
	if ap.High, err = p.coord(lineHigh, "high"); err != nil {
		return nil, err
	}
	if _, err = p.fields(lineBackground, "background", 0); err != nil {
		return nil, err
	}

	bg := &ap.Background
	if bg.XMin, err = p.floatField(lineXMin, "xmin"); err != nil {
		return nil, err
	}
	if bg.XMax, err = p.floatField(lineXMax, "xmax"); err != nil {
		return nil, err
	}
	if bg.Function, err = p.str(lineFunction, "function"); err != nil {
		return nil, err
	}
	if bg.Order, err = p.intField(lineOrder, "order"); err != nil {
		return nil, err
	}
	if bg.Sample, err = p.str(lineSample, "sample"); err != nil {
		return nil, err
	}
	if bg.NAverage, err = p.intField(lineNAverage, "naverage"); err != nil {
		return nil, err
	}
	if bg.NIterate, err = p.intField(lineNIterate, "niterate"); err != nil {
		return nil, err
	}
	if bg.LowReject, err = p.floatField(lineLowReject, "low_reject"); err != nil {
		return nil, err
	}
	if bg.HighReject, err = p.floatField(lineHighReject, "high_reject"); err != nil {
		return nil, err
	}
	if bg.Grow, err = p.floatField(lineGrow, "grow"); err != nil {
		return nil, err
	}

	if ap.Axis, err = p.intField(lineAxis, "axis"); err != nil {
		return nil, err
	}
	if ap.Curve.N, err = p.intField(lineCurve, "curve"); err != nil {
		return nil, err
	}
	if ap.Curve.N < 0 {
		return nil, p.fail(lineCurve, "curve", fmt.Errorf("%w: negative count %d", ErrMalformedRecord, ap.Curve.N))
	}

	if got := len(p.lines) - lineParams; got != ap.Curve.N {
		return nil, p.fail(lineCurve, "curve", fmt.Errorf("%w: curve declares %d parameters, record has %d", ErrMalformedRecord, ap.Curve.N, got))
	}
	ap.Curve.Params = make([]float64, ap.Curve.N)
	for i := range ap.Curve.Params {
		s := strings.TrimSpace(p.lines[lineParams+i])
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, p.fail(lineParams+i, "curve", fmt.Errorf("%w: %w", ErrMalformedRecord, err))
		}
		ap.Curve.Params[i] = v
	}

	return ap, nil
}

// WriteDatabase writes aps in the layout ParseDatabase reads, one record per
// aperture separated by blank lines.
func WriteDatabase(w io.Writer, aps []*Aperture) error {
	bw := bufio.NewWriter(w)
	for i, ap := range aps {
		if i > 0 {
			bw.WriteString("\n")
		}
		writeRecord(bw, ap)
	}
	return bw.Flush()
}

func ftoa(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func writeRecord(w *bufio.Writer, ap *Aperture) {
	comment := ap.Comment
	if comment == "" {
		comment = "#"
	}
	begin := ap.Begin
	if begin == "" {
		begin = fmt.Sprintf("begin\taperture %s %d %s %s", ap.Image, ap.ID, ftoa(ap.Center.X), ftoa(ap.Center.Y))
	}

	bg := ap.Background
	sample := bg.Sample
	if strings.TrimSpace(sample) == "" {
		sample = "*"
	}
	fmt.Fprintf(w, "%s\n%s\n", comment, begin)
	fmt.Fprintf(w, "\timage\t%s\n", ap.Image)
	fmt.Fprintf(w, "\taperture\t%d\n", ap.ID)
	fmt.Fprintf(w, "\tbeam\t%d\n", ap.Beam)
	fmt.Fprintf(w, "\tcenter\t%s %s\n", ftoa(ap.Center.X), ftoa(ap.Center.Y))
	fmt.Fprintf(w, "\tlow\t%s %s\n", ftoa(ap.Low.X), ftoa(ap.Low.Y))
	fmt.Fprintf(w, "\thigh\t%s %s\n", ftoa(ap.High.X), ftoa(ap.High.Y))
	fmt.Fprintf(w, "\tbackground\n")
	fmt.Fprintf(w, "\t\txmin %s\n", ftoa(bg.XMin))
	fmt.Fprintf(w, "\t\txmax %s\n", ftoa(bg.XMax))
	fmt.Fprintf(w, "\t\tfunction %s\n", bg.Function)
	fmt.Fprintf(w, "\t\torder %d\n", bg.Order)
	fmt.Fprintf(w, "\t\tsample %s\n", sample)
	fmt.Fprintf(w, "\t\tnaverage %d\n", bg.NAverage)
	fmt.Fprintf(w, "\t\tniterate %d\n", bg.NIterate)
	fmt.Fprintf(w, "\t\tlow_reject %s\n", ftoa(bg.LowReject))
	fmt.Fprintf(w, "\t\thigh_reject %s\n", ftoa(bg.HighReject))
	fmt.Fprintf(w, "\t\tgrow %s\n", ftoa(bg.Grow))
	fmt.Fprintf(w, "\taxis\t%d\n", ap.Axis)
	fmt.Fprintf(w, "\tcurve\t%d\n", len(ap.Curve.Params))
	for _, v := range ap.Curve.Params {
		fmt.Fprintf(w, "\t\t%s\n", ftoa(v))
	}
}
