package report

import (
	"errors"
	"io"
	"strconv"

	"github.com/DrSkyle/skybalance/pkg/airspace"
)

// ReadRegistry parses a facility registry.
//
// Both the plain three-column form and the five-column annotated form are
// accepted, so a run can start from a previous run's output. Every row must
// have the header's width.
func ReadRegistry(src io.Reader) ([]airspace.Facility, error) {
	r := newReader(src, 0)
	width, err := r.header()
	if err != nil {
		return nil, err
	}
	if width != len(RegistryHeader) && width != len(AnnotatedHeader) {
		return nil, r.errorf("expected %d or %d columns, got %d", len(RegistryHeader), len(AnnotatedHeader), width)
	}

	var out []airspace.Facility
	seen := make(map[string]bool)
	for {
		rec, err := r.next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		f := airspace.Facility{Name: rec[0]}
		if f.Name == "" {
			return nil, r.errorf("empty facility name")
		}
		if seen[f.Name] {
			return nil, r.errorf("duplicate facility %q", f.Name)
		}
		seen[f.Name] = true

		if f.Position.X, err = r.float("latitude", rec[1]); err != nil {
			return nil, err
		}
		if f.Position.Y, err = r.float("longitude", rec[2]); err != nil {
			return nil, err
		}
		if width == len(AnnotatedHeader) {
			if f.Overloaded, err = strconv.ParseBool(rec[3]); err != nil {
				return nil, r.errorf("invalid overloaded flag %q", rec[3])
			}
			if f.Load, err = r.count("load", rec[4]); err != nil {
				return nil, err
			}
		}
		out = append(out, f)
	}

	if len(out) == 0 {
		return nil, r.errorf("registry has no facilities")
	}
	return out, nil
}

// WriteRegistry writes the plain three-column registry.
func WriteRegistry(w io.Writer, facilities []airspace.Facility) error {
	rows := make([][]string, 0, len(facilities))
	for _, f := range facilities {
		rows = append(rows, []string{f.Name, FormatFloat(f.Position.X), FormatFloat(f.Position.Y)})
	}
	return writeAll(w, RegistryHeader, rows)
}

// WriteAnnotated writes facilities with their overloaded flag and load.
func WriteAnnotated(w io.Writer, facilities []airspace.Facility) error {
	rows := make([][]string, 0, len(facilities))
	for _, f := range facilities {
		rows = append(rows, []string{
			f.Name,
			FormatFloat(f.Position.X),
			FormatFloat(f.Position.Y),
			formatBool(f.Overloaded),
			strconv.Itoa(f.Load),
		})
	}
	return writeAll(w, AnnotatedHeader, rows)
}
