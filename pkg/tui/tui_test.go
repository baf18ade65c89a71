package tui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DrSkyle/skybalance/pkg/airspace"
	"github.com/DrSkyle/skybalance/pkg/engine"
	"github.com/DrSkyle/skybalance/pkg/engine/history"
	"github.com/DrSkyle/skybalance/pkg/engine/load"
	"github.com/DrSkyle/skybalance/pkg/engine/solver"
	"github.com/DrSkyle/skybalance/pkg/engine/swarm"
	"github.com/DrSkyle/skybalance/pkg/geo"
)

func sampleCycle(cycle int) CycleMsg {
	fs := []airspace.Facility{
		{Name: "JFK", Position: geo.Point{X: 40.64, Y: -73.78}, Load: 12, Overloaded: true},
		{Name: "LGA", Position: geo.Point{X: 40.77, Y: -73.87}, Load: 3},
		{Name: "EWR", Position: geo.Point{X: 40.69, Y: -74.17}, Load: 0},
		{Name: "TEB", Position: geo.Point{X: 40.77, Y: -73.87}, Load: 2},
	}
	adjusted := make([]airspace.Facility, len(fs))
	copy(adjusted, fs)
	adjusted[1].Position = geo.Point{X: 40.70, Y: -73.82}

	return CycleMsg(engine.CycleReport{
		RunID:      "run-1",
		Cycle:      cycle,
		Iterations: 4,
		Threshold:  7.8,
		Facilities: fs,
		Adjusted:   adjusted,
		Class: load.Classification{
			Threshold:     7.8,
			Overloaded:    []string{"JFK"},
			Underutilized: []string{"LGA", "TEB"},
			Idle:          []string{"EWR"},
		},
		Moves:        []solver.Move{{Overloaded: "JFK", Neighbor: "LGA", Step: 0.075}},
		Skipped:      []solver.Move{{Overloaded: "JFK", Neighbor: "TEB", Coincident: true}},
		Displacement: 0.15,
	})
}

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	out, ok := next.(Model)
	require.True(t, ok)
	return out
}

func TestListRendersCycle(t *testing.T) {
	m := NewModel(swarm.NewEngine(4), true)
	m = update(t, m, sampleCycle(0))

	view := m.View()
	for _, want := range []string{"JFK", "LGA", "EWR", "[OVER]", "[IDLE]", "CYCLE:", "1/4", "7.80", "[MOCK]"} {
		assert.Contains(t, view, want)
	}
	assert.InDelta(t, 0.25, m.Progress(), 1e-12)
}

func TestWaitingForFirstCycle(t *testing.T) {
	m := NewModel(nil, false)
	assert.Contains(t, m.View(), "Waiting for the first cycle")
	assert.Zero(t, m.Progress())
}

func TestDetailsShowNextPosition(t *testing.T) {
	m := NewModel(nil, false)
	m = update(t, m, sampleCycle(0))
	m = update(t, m, tea.KeyMsg{Type: tea.KeyDown})
	m = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	view := m.View()
	assert.Contains(t, view, "AIRPORT : LGA")
	assert.Contains(t, view, "UNDERUTILIZED")
	assert.Contains(t, view, "NEXT POSITION: 40.700000, -73.820000")
	assert.Contains(t, view, "LGA (load 3) step 0.07500")
}

func TestMovesView(t *testing.T) {
	m := NewModel(nil, false)
	m = update(t, m, sampleCycle(1))
	m = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("m")})

	view := m.View()
	assert.Contains(t, view, "JFK (load 12)")
	assert.Contains(t, view, "TEB skipped: coincident coordinates")
	require.Len(t, m.moveLines, 3)
	assert.Equal(t, 0, m.moveLines[0].Level)
	assert.True(t, m.moveLines[2].Skipped)
}

func TestSortByLoad(t *testing.T) {
	m := NewModel(nil, false)
	m = update(t, m, sampleCycle(0))
	m = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("s")})

	require.Equal(t, SortLoad, m.SortMode)
	names := make([]string, len(m.facilities))
	for i, f := range m.facilities {
		names[i] = f.Name
	}
	assert.Equal(t, []string{"JFK", "LGA", "TEB", "EWR"}, names)

	// Back to registry order after NAME.
	m = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("s")})
	m = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("s")})
	assert.Equal(t, "JFK", m.facilities[0].Name)
	assert.Equal(t, "EWR", m.facilities[2].Name)
}

func TestLoadHistoryAccumulates(t *testing.T) {
	m := NewModel(nil, false)
	m = update(t, m, sampleCycle(0))
	m = update(t, m, sampleCycle(1))
	assert.Equal(t, []float64{12, 12}, m.loads["JFK"])
}

func TestDoneShowsTrend(t *testing.T) {
	m := NewModel(nil, false)
	m = update(t, m, sampleCycle(3))
	m = update(t, m, DoneMsg{Result: &engine.Result{
		RunID:  "run-1",
		Cycles: 4,
		Trend: history.Trend{
			FirstOverloaded: 3,
			LastOverloaded:  1,
			NonIncreasing:   true,
			Alerts:          []string{"[INFO] COINCIDENT PAIRS: 1 adjustments skipped in cycle 3"},
		},
	}})

	view := m.View()
	assert.False(t, m.running)
	assert.Contains(t, view, "overloaded 3 -> 1")
	assert.Contains(t, view, "COINCIDENT PAIRS")
	assert.True(t, strings.Contains(view, "DONE"))
}

func TestQuit(t *testing.T) {
	m := NewModel(nil, false)
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	require.NotNil(t, cmd)
	assert.Empty(t, next.View())
}

func TestSparkline(t *testing.T) {
	assert.Equal(t, "[NO DATA]", renderSparkline(nil))
	assert.Equal(t, "[  ]", renderSparkline([]float64{0, 0}))
	assert.Equal(t, "[ █]", renderSparkline([]float64{0, 4}))
}
