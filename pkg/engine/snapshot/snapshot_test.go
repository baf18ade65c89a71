package snapshot

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DrSkyle/skybalance/pkg/airspace"
	"github.com/DrSkyle/skybalance/pkg/engine/load"
	"github.com/DrSkyle/skybalance/pkg/geo"
	"github.com/DrSkyle/skybalance/pkg/storage"
)

func TestObservationRoundTrip(t *testing.T) {
	ctx := context.Background()
	w := NewWriter(storage.NewLocalStore(t.TempDir()))

	obs := []airspace.Observation{
		{Facility: "A", Entity: "abc123", Position: geo.Point{X: 1.25, Y: -3}},
		{Facility: "B", Entity: "abc123", Position: geo.Point{X: 1.25, Y: -3}},
	}
	require.NoError(t, w.PutObservations(ctx, ObservationsKey, obs))

	got, err := w.Observations(ctx, ObservationsKey)
	require.NoError(t, err)
	assert.Equal(t, obs, got)
}

func TestLoadsRoundTrip(t *testing.T) {
	ctx := context.Background()
	w := NewWriter(storage.NewLocalStore(t.TempDir()))

	table := load.Table{"A": 3, "B": 0}
	require.NoError(t, w.PutLoads(ctx, []string{"A", "B"}, table))

	got, err := w.Loads(ctx)
	require.NoError(t, err)
	assert.Equal(t, table, got)
}

func TestAnnotatedRoundTrip(t *testing.T) {
	ctx := context.Background()
	w := NewWriter(storage.NewLocalStore(t.TempDir()))

	fs := []airspace.Facility{
		{Name: "A", Position: geo.Point{X: 0.1, Y: 0.2}, Load: 5, Overloaded: true},
		{Name: "B", Position: geo.Point{X: 1, Y: 2}},
	}
	require.NoError(t, w.PutAnnotated(ctx, FinalKey, fs))

	got, err := w.Facilities(ctx, FinalKey)
	require.NoError(t, err)
	assert.Equal(t, fs, got)

	keys, err := w.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{FinalKey}, keys)
}

func TestMissingArtifact(t *testing.T) {
	w := NewWriter(storage.NewLocalStore(t.TempDir()))
	_, err := w.Observations(context.Background(), BaselineKey)
	require.Error(t, err)
	assert.True(t, errors.Is(err, storage.ErrNotFound))
}
