package traffic

import (
	"context"
	"fmt"
	"os"

	"github.com/DrSkyle/skybalance/pkg/airspace"
	"github.com/DrSkyle/skybalance/pkg/engine/report"
)

// FileSource replays a recorded observation dump. Every fetch for a facility
// returns the rows recorded for it, whatever the facility's position.
type FileSource struct {
	byFacility map[string][]Sighting
}

// NewFileSource loads an observation dump written by a previous run.
func NewFileSource(path string) (*FileSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	obs, err := report.ReadObservations(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return NewReplay(obs), nil
}

// NewReplay builds a replay source from observations in memory.
func NewReplay(obs []airspace.Observation) *FileSource {
	s := &FileSource{byFacility: make(map[string][]Sighting)}
	for _, o := range obs {
		s.byFacility[o.Facility] = append(s.byFacility[o.Facility], Sighting{Entity: o.Entity, Position: o.Position})
	}
	return s
}

func (s *FileSource) Name() string { return "replay" }

func (s *FileSource) Fetch(ctx context.Context, f airspace.Facility, radius int) ([]Sighting, error) {
	rows := s.byFacility[f.Name]
	out := make([]Sighting, len(rows))
	copy(out, rows)
	return out, nil
}
