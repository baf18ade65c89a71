// Package report encodes and decodes the CSV tables a run reads and writes:
// the facility registry, observation dumps, load tables and annotated
// facility tables.
package report

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ErrMalformed is returned for tables with missing or extra columns,
// unparsable values or invalid facility names.
var ErrMalformed = errors.New("malformed table")

// Table headers.
var (
	RegistryHeader    = []string{"name", "latitude", "longitude"}
	AnnotatedHeader   = []string{"name", "latitude", "longitude", "overloaded", "load"}
	ObservationHeader = []string{"airport", "icao", "latitude", "longitude"}
	LoadHeader        = []string{"airport", "load"}
)

// FormatFloat renders a coordinate so that ParseFloat returns the same value.
func FormatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func formatBool(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// reader wraps csv.Reader, skipping the header and tagging every failure
// with ErrMalformed and the offending line.
type reader struct {
	cr   *csv.Reader
	line int
}

func newReader(r io.Reader, fields int) *reader {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = fields
	cr.TrimLeadingSpace = true
	return &reader{cr: cr}
}

// header consumes the header row and returns its width.
func (r *reader) header() (int, error) {
	rec, err := r.cr.Read()
	r.line++
	if errors.Is(err, io.EOF) {
		return 0, fmt.Errorf("%w: missing header", ErrMalformed)
	}
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return len(rec), nil
}

// next returns the next record, or io.EOF.
func (r *reader) next() ([]string, error) {
	rec, err := r.cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, io.EOF
	}
	r.line++
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	for i := range rec {
		rec[i] = strings.TrimSpace(rec[i])
	}
	return rec, nil
}

func (r *reader) errorf(format string, args ...any) error {
	return fmt.Errorf("%w: line %d: %s", ErrMalformed, r.line, fmt.Sprintf(format, args...))
}

func (r *reader) float(field, v string) (float64, error) {
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, r.errorf("invalid %s %q", field, v)
	}
	return f, nil
}

func (r *reader) count(field, v string) (int, error) {
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, r.errorf("invalid %s %q", field, v)
	}
	return n, nil
}

func writeAll(w io.Writer, header []string, rows [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	if err := cw.WriteAll(rows); err != nil {
		return err
	}
	return cw.Error()
}
