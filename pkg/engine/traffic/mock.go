package traffic

import (
	"context"
	"fmt"
	"math"
	"math/rand"

	"github.com/DrSkyle/skybalance/pkg/airspace"
	"github.com/DrSkyle/skybalance/pkg/geo"
)

// nmPerDegree converts nautical miles to planar degrees.
const nmPerDegree = 60.0

// MockSource serves a fixed synthetic fleet. Fetch returns every aircraft
// within radius of the facility's current position, so results change as
// facilities move.
type MockSource struct {
	Fleet []Sighting
	// Fail, if set, can force a facility's fetch to fail.
	Fail func(f airspace.Facility) error
}

// NewMockSource scatters a deterministic fleet around the facilities.
// Facility i gets a cluster of (i%4)*density aircraft within radius, so the
// registry starts with a mix of idle, underutilized and overloaded members.
// Entity ids encode the facility and aircraft index, so they never collide.
func NewMockSource(facilities []airspace.Facility, density, radius int, seed int64) *MockSource {
	rng := rand.New(rand.NewSource(seed))
	reach := float64(radius) / nmPerDegree

	m := &MockSource{}
	for i, f := range facilities {
		n := (i % 4) * density
		for j := 0; j < n; j++ {
			angle := rng.Float64() * 2 * math.Pi
			dist := math.Sqrt(rng.Float64()) * reach
			m.Fleet = append(m.Fleet, Sighting{
				Entity: fmt.Sprintf("%02x%04x", i, j),
				Position: geo.Point{
					X: f.Position.X + dist*math.Cos(angle),
					Y: f.Position.Y + dist*math.Sin(angle),
				},
			})
		}
	}
	return m
}

func (m *MockSource) Name() string { return "mock" }

func (m *MockSource) Fetch(ctx context.Context, f airspace.Facility, radius int) ([]Sighting, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.Fail != nil {
		if err := m.Fail(f); err != nil {
			return nil, err
		}
	}
	reach := float64(radius) / nmPerDegree
	var out []Sighting
	for _, s := range m.Fleet {
		if geo.Distance(f.Position, s.Position) <= reach {
			out = append(out, s)
		}
	}
	return out, nil
}
