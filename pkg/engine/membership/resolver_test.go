package membership

import (
	"testing"

	"github.com/DrSkyle/skybalance/pkg/airspace"
	"github.com/DrSkyle/skybalance/pkg/geo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func obs(facility, entity string, x, y float64) airspace.Observation {
	return airspace.Observation{Facility: facility, Entity: entity, Position: geo.Point{X: x, Y: y}}
}

func TestResolveAmbiguousPicksNearestFacility(t *testing.T) {
	positions := map[string]geo.Point{
		"A": {X: 0, Y: 0},
		"B": {X: 10, Y: 0},
	}
	idx := BuildIndex([]airspace.Observation{
		obs("B", "abc123", 1, 0),
		obs("A", "abc123", 1, 0),
	})

	res := Resolve(idx, positions)

	assert.Equal(t, "A", res.Owner["abc123"])
	assert.Equal(t, []string{"abc123"}, res.ByFacility["A"])
	assert.Empty(t, res.ByFacility["B"])
	assert.Equal(t, 1, idx.Ambiguous())
}

func TestResolveSingleObservationIsUnconditional(t *testing.T) {
	// The entity is far closer to B, but only A reported it.
	positions := map[string]geo.Point{
		"A": {X: 0, Y: 0},
		"B": {X: 10, Y: 0},
	}
	idx := BuildIndex([]airspace.Observation{obs("A", "e1", 10, 0)})

	res := Resolve(idx, positions)
	assert.Equal(t, "A", res.Owner["e1"])
}

func TestResolveTieKeepsFirstReport(t *testing.T) {
	positions := map[string]geo.Point{
		"A": {X: -1, Y: 0},
		"B": {X: 1, Y: 0},
	}
	idx := BuildIndex([]airspace.Observation{
		obs("B", "e1", 0, 0),
		obs("A", "e1", 0, 0),
	})

	for i := 0; i < 20; i++ {
		assert.Equal(t, "B", Resolve(idx, positions).Owner["e1"])
	}
}

func TestResolveUsesPositionFromEachReport(t *testing.T) {
	// Each facility reports its own fix of the entity; distance is measured
	// per report, not against a single shared position.
	positions := map[string]geo.Point{
		"A": {X: 0, Y: 0},
		"B": {X: 10, Y: 0},
	}
	idx := BuildIndex([]airspace.Observation{
		obs("A", "e1", 4, 0), // 4 from A
		obs("B", "e1", 7, 0), // 3 from B
	})
	assert.Equal(t, "B", Resolve(idx, positions).Owner["e1"])
}

func TestResolveConservesEntities(t *testing.T) {
	positions := map[string]geo.Point{
		"A": {X: 0, Y: 0},
		"B": {X: 5, Y: 5},
		"C": {X: -5, Y: 3},
	}
	idx := BuildIndex([]airspace.Observation{
		obs("A", "e1", 0, 1),
		obs("B", "e1", 0, 1),
		obs("B", "e2", 5, 4),
		obs("C", "e3", -4, 3),
		obs("A", "e3", -4, 3),
		obs("C", "e3", -4, 3),
		obs("A", "e4", 1, 1),
	})

	res := Resolve(idx, positions)
	total := 0
	for _, es := range res.ByFacility {
		total += len(es)
	}
	assert.Equal(t, idx.Len(), total)
	assert.Equal(t, 4, len(res.Owner))
	assert.Empty(t, res.Dropped)
}

func TestResolveDropsUnknownFacilities(t *testing.T) {
	positions := map[string]geo.Point{"A": {X: 0, Y: 0}}
	idx := BuildIndex([]airspace.Observation{
		obs("Z", "ghost", 0, 0),
		obs("Z", "shared", 0, 0),
		obs("A", "shared", 3, 3),
	})

	res := Resolve(idx, positions)
	require.Equal(t, []string{"ghost"}, res.Dropped)
	assert.Equal(t, "A", res.Owner["shared"])
}

func TestIndexIgnoresAnonymousEntities(t *testing.T) {
	idx := BuildIndex([]airspace.Observation{obs("A", "", 0, 0), obs("A", "e1", 0, 0), obs("B", "e1", 0, 0)})
	assert.Equal(t, []string{"e1"}, idx.Entities())
	assert.Len(t, idx.Candidates("e1"), 2)
}
