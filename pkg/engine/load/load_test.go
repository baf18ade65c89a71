package load

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEstimateIncludesEveryFacility(t *testing.T) {
	assigned := map[string][]string{
		"A": {"e1", "e2", "e3"},
		"C": {"e4"},
		"X": {"e5"}, // not a registered facility
	}
	tbl := Estimate(assigned, []string{"A", "B", "C"})

	assert.Equal(t, Table{"A": 3, "B": 0, "C": 1}, tbl)
	assert.Equal(t, 4, tbl.Total())
	assert.Equal(t, []string{"A", "B", "C"}, tbl.Names())
}

func TestThreshold(t *testing.T) {
	tests := []struct {
		name  string
		table Table
		want  float64
	}{
		{
			name:  "baseline excludes light traffic",
			table: Table{"a": 1, "b": 1, "c": 5, "d": 6, "e": 7},
			want:  7.8,
		},
		{
			name:  "all at or below floor",
			table: Table{"a": 1, "b": 2},
			want:  0,
		},
		{
			name:  "empty table",
			table: Table{},
			want:  0,
		},
		{
			name:  "single busy facility",
			table: Table{"a": 10, "b": 0},
			want:  13,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Threshold(tt.table, DefaultMultiplier, DefaultFloor), 1e-9)
		})
	}
}

func TestThresholdCustomParameters(t *testing.T) {
	tbl := Table{"a": 1, "b": 3, "c": 5}
	assert.InDelta(t, 3.0, Threshold(tbl, 1.0, 0), 1e-9)
	assert.InDelta(t, 10.0, Threshold(tbl, 2.0, 3), 1e-9)
}

func TestClassify(t *testing.T) {
	c := Classify(Table{"A": 10, "B": 5, "C": 0}, 7.8)

	assert.Equal(t, []string{"A"}, c.Overloaded)
	assert.Equal(t, []string{"B"}, c.Underutilized)
	assert.Equal(t, []string{"C"}, c.Idle)
	assert.True(t, c.IsOverloaded("A"))
	assert.False(t, c.IsOverloaded("C"))
	assert.True(t, c.IsUnderutilized("B"))
	assert.False(t, c.IsUnderutilized("C"))
}

func TestClassifyBoundaries(t *testing.T) {
	c := Classify(Table{"eq": 4, "above": 5, "one": 1}, 4)
	assert.Equal(t, []string{"above"}, c.Overloaded)
	assert.Equal(t, []string{"eq", "one"}, c.Underutilized)
}

func TestClassifyZeroThreshold(t *testing.T) {
	// With no baseline every active facility is overloaded, even load 1.
	c := Classify(Table{"a": 1, "b": 2, "c": 0}, 0)
	assert.Equal(t, []string{"a", "b"}, c.Overloaded)
	assert.Empty(t, c.Underutilized)
	assert.Equal(t, []string{"c"}, c.Idle)
}

func TestClassifyIsTotalAndDisjoint(t *testing.T) {
	tbl := Table{"a": 0, "b": 1, "c": 2, "d": 3, "e": 8, "f": 13}
	c := Classify(tbl, Threshold(tbl, DefaultMultiplier, DefaultFloor))

	seen := map[string]int{}
	for _, set := range [][]string{c.Overloaded, c.Underutilized, c.Idle} {
		for _, n := range set {
			seen[n]++
		}
	}
	assert.Len(t, seen, len(tbl))
	for n, k := range seen {
		assert.Equal(t, 1, k, n)
	}
}
