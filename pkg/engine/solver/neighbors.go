package solver

import (
	"sort"

	"github.com/DrSkyle/skybalance/pkg/airspace"
	"github.com/DrSkyle/skybalance/pkg/geo"
)

// Nearest returns up to k facility names closest to target, nearest first.
//
// Candidates are ranked by planar distance with a stable sort over the
// collection order, the target itself holding rank 0. Rank 0 is skipped, so
// other facilities sharing the target's coordinate are still eligible.
func Nearest(facilities []airspace.Facility, target string, k int) []string {
	if k <= 0 {
		return nil
	}

	var origin geo.Point
	found := false
	for _, f := range facilities {
		if f.Name == target {
			origin, found = f.Position, true
			break
		}
	}
	if !found {
		return nil
	}

	type ranked struct {
		name string
		dist float64
	}
	ranks := make([]ranked, 0, len(facilities))
	ranks = append(ranks, ranked{name: target})
	for _, f := range facilities {
		if f.Name == target {
			continue
		}
		ranks = append(ranks, ranked{name: f.Name, dist: geo.Distance(origin, f.Position)})
	}
	sort.SliceStable(ranks, func(i, j int) bool { return ranks[i].dist < ranks[j].dist })

	out := make([]string, 0, k)
	for _, r := range ranks[1:] {
		if len(out) == k {
			break
		}
		out = append(out, r.name)
	}
	return out
}
