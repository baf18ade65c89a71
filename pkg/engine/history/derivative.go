package history

import "fmt"

// Trend summarizes how a run's congestion evolved.
type Trend struct {
	RunID  string
	Cycles int

	FirstOverloaded int
	LastOverloaded  int
	// NonIncreasing is true when the overloaded count never grew between cycles.
	NonIncreasing bool

	MeanDisplacement float64
	// FirstSpread and LastSpread are the load coefficients of variation.
	FirstSpread float64
	LastSpread  float64
	// Similarity compares the last two load distributions (1 = unchanged).
	Similarity float64

	Alerts []string
}

// LatestRun returns the entries belonging to the run of the last entry.
func LatestRun(entries []Entry) []Entry {
	if len(entries) == 0 {
		return nil
	}
	id := entries[len(entries)-1].RunID
	var out []Entry
	for _, e := range entries {
		if e.RunID == id {
			out = append(out, e)
		}
	}
	return out
}

// Analyze derives the trend of a single run's entries, oldest first.
func Analyze(entries []Entry) Trend {
	if len(entries) == 0 {
		return Trend{}
	}

	first, last := entries[0], entries[len(entries)-1]
	t := Trend{
		RunID:           last.RunID,
		Cycles:          len(entries),
		FirstOverloaded: first.Overloaded,
		LastOverloaded:  last.Overloaded,
		NonIncreasing:   true,
		FirstSpread:     Spread(first.Loads),
		LastSpread:      Spread(last.Loads),
	}

	var displacement float64
	for i, e := range entries {
		displacement += e.Displacement
		if i > 0 && e.Overloaded > entries[i-1].Overloaded {
			t.NonIncreasing = false
		}
	}
	t.MeanDisplacement = displacement / float64(len(entries))

	if len(entries) >= 2 {
		t.Similarity = CosineSimilarity(entries[len(entries)-2].Loads, last.Loads)
	}

	if last.Overloaded > first.Overloaded {
		t.Alerts = append(t.Alerts, fmt.Sprintf("[WARNING] OVERLOAD GROWTH: overloaded facilities went from %d to %d", first.Overloaded, last.Overloaded))
	}
	if last.FailedFacilities > 0 {
		t.Alerts = append(t.Alerts, fmt.Sprintf("[WARNING] PARTIAL DATA: %d facilities failed retrieval in cycle %d", last.FailedFacilities, last.Cycle))
	}
	if last.Skipped > 0 {
		t.Alerts = append(t.Alerts, fmt.Sprintf("[INFO] COINCIDENT PAIRS: %d adjustments skipped in cycle %d", last.Skipped, last.Cycle))
	}

	return t
}
