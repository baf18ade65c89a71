package membership

import (
	"sort"

	"github.com/DrSkyle/skybalance/pkg/geo"
)

// Assignment is the outcome of resolving one cycle's index.
type Assignment struct {
	// ByFacility lists the entities owned by each facility, sorted by id.
	ByFacility map[string][]string
	// Owner maps entity id to its facility.
	Owner map[string]string
	// Dropped lists entities whose every report came from an unknown facility.
	Dropped []string
}

// Resolve assigns every indexed entity to exactly one facility.
//
// An entity reported once belongs to the reporting facility. An entity
// reported by several facilities belongs to the one whose stored position is
// nearest to the entity position carried by that report; the first minimum
// in report order wins.
func Resolve(idx *Index, positions map[string]geo.Point) Assignment {
	res := Assignment{
		ByFacility: make(map[string][]string),
		Owner:      make(map[string]string, idx.Len()),
	}

	for _, entity := range idx.order {
		owner, ok := Nearest(idx.candidates[entity], positions)
		if !ok {
			res.Dropped = append(res.Dropped, entity)
			continue
		}
		res.Owner[entity] = owner.Facility
		res.ByFacility[owner.Facility] = append(res.ByFacility[owner.Facility], entity)
	}

	for f := range res.ByFacility {
		sort.Strings(res.ByFacility[f])
	}
	return res
}

// Nearest picks the owner among candidates. Candidates from facilities absent
// in positions are not eligible. A single eligible candidate wins outright.
func Nearest(candidates []Candidate, positions map[string]geo.Point) (Candidate, bool) {
	var (
		best     Candidate
		bestD    float64
		found    bool
		eligible int
	)
	for _, c := range candidates {
		if _, ok := positions[c.Facility]; ok {
			eligible++
		}
	}
	for _, c := range candidates {
		fp, ok := positions[c.Facility]
		if !ok {
			continue
		}
		if eligible == 1 {
			return c, true
		}
		d := geo.Distance(fp, c.Position)
		if !found || d < bestD {
			best, bestD, found = c, d, true
		}
	}
	return best, found
}
