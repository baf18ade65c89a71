// Package snapshot persists the per-cycle CSV artifacts to a blob store and
// reads them back.
package snapshot

import (
	"bytes"
	"context"
	"fmt"

	"github.com/DrSkyle/skybalance/pkg/airspace"
	"github.com/DrSkyle/skybalance/pkg/engine/load"
	"github.com/DrSkyle/skybalance/pkg/engine/report"
	"github.com/DrSkyle/skybalance/pkg/storage"
)

// Artifact keys, relative to the store root.
const (
	BaselineKey     = "initial_aircraft_data.csv"
	ObservationsKey = "aircraft_data.csv"
	LoadsKey        = "airport_load.csv"
	InitialKey      = "airports.csv"
	FinalKey        = "adjusted_airports.csv"
)

// Writer encodes artifacts with the report codecs and stores them.
type Writer struct {
	Store storage.BlobStore
}

func NewWriter(store storage.BlobStore) *Writer {
	return &Writer{Store: store}
}

// PutObservations writes an observation dump under key.
func (w *Writer) PutObservations(ctx context.Context, key string, obs []airspace.Observation) error {
	var buf bytes.Buffer
	if err := report.WriteObservations(&buf, obs); err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return w.put(ctx, key, buf.Bytes())
}

// Observations decodes the observation dump stored under key.
func (w *Writer) Observations(ctx context.Context, key string) ([]airspace.Observation, error) {
	data, err := w.Store.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	obs, err := report.ReadObservations(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", key, err)
	}
	return obs, nil
}

// PutLoads writes the load table, one row per name in registry order.
func (w *Writer) PutLoads(ctx context.Context, names []string, t load.Table) error {
	var buf bytes.Buffer
	if err := report.WriteLoads(&buf, names, t); err != nil {
		return fmt.Errorf("encode %s: %w", LoadsKey, err)
	}
	return w.put(ctx, LoadsKey, buf.Bytes())
}

// Loads decodes the most recent load table.
func (w *Writer) Loads(ctx context.Context) (load.Table, error) {
	data, err := w.Store.Get(ctx, LoadsKey)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", LoadsKey, err)
	}
	t, err := report.ReadLoads(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", LoadsKey, err)
	}
	return t, nil
}

// PutAnnotated writes the annotated facility table under key.
func (w *Writer) PutAnnotated(ctx context.Context, key string, facilities []airspace.Facility) error {
	var buf bytes.Buffer
	if err := report.WriteAnnotated(&buf, facilities); err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return w.put(ctx, key, buf.Bytes())
}

// Facilities decodes an annotated table written by PutAnnotated.
func (w *Writer) Facilities(ctx context.Context, key string) ([]airspace.Facility, error) {
	data, err := w.Store.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	fs, err := report.ReadRegistry(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", key, err)
	}
	return fs, nil
}

// Keys lists the artifacts currently in the store.
func (w *Writer) Keys(ctx context.Context) ([]string, error) {
	return w.Store.List(ctx, "")
}

func (w *Writer) put(ctx context.Context, key string, data []byte) error {
	if err := w.Store.Put(ctx, key, data); err != nil {
		return fmt.Errorf("store %s: %w", key, err)
	}
	return nil
}
