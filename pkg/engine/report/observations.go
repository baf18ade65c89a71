package report

import (
	"errors"
	"io"
	"strconv"

	"github.com/DrSkyle/skybalance/pkg/airspace"
	"github.com/DrSkyle/skybalance/pkg/engine/load"
)

// WriteObservations writes an observation dump in the given order.
func WriteObservations(w io.Writer, obs []airspace.Observation) error {
	rows := make([][]string, 0, len(obs))
	for _, o := range obs {
		rows = append(rows, []string{
			o.Facility,
			o.Entity,
			FormatFloat(o.Position.X),
			FormatFloat(o.Position.Y),
		})
	}
	return writeAll(w, ObservationHeader, rows)
}

// ReadObservations parses an observation dump, preserving row order.
func ReadObservations(src io.Reader) ([]airspace.Observation, error) {
	r := newReader(src, len(ObservationHeader))
	if _, err := r.header(); err != nil {
		return nil, err
	}

	var out []airspace.Observation
	for {
		rec, err := r.next()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, err
		}

		o := airspace.Observation{Facility: rec[0], Entity: rec[1]}
		if o.Facility == "" {
			return nil, r.errorf("empty airport")
		}
		if o.Position.X, err = r.float("latitude", rec[2]); err != nil {
			return nil, err
		}
		if o.Position.Y, err = r.float("longitude", rec[3]); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
}

// WriteLoads writes a load table with one row per name, in the order given.
func WriteLoads(w io.Writer, names []string, t load.Table) error {
	rows := make([][]string, 0, len(names))
	for _, n := range names {
		rows = append(rows, []string{n, strconv.Itoa(t[n])})
	}
	return writeAll(w, LoadHeader, rows)
}

// ReadLoads parses a load table.
func ReadLoads(src io.Reader) (load.Table, error) {
	r := newReader(src, len(LoadHeader))
	if _, err := r.header(); err != nil {
		return nil, err
	}

	t := load.Table{}
	for {
		rec, err := r.next()
		if errors.Is(err, io.EOF) {
			return t, nil
		}
		if err != nil {
			return nil, err
		}
		if _, dup := t[rec[0]]; dup {
			return nil, r.errorf("duplicate airport %q", rec[0])
		}
		if t[rec[0]], err = r.count("load", rec[1]); err != nil {
			return nil, err
		}
	}
}
