// Package load turns resolved memberships into per-facility load figures,
// derives the congestion threshold and classifies facilities against it.
package load

import "sort"

// Table maps facility name to load. It carries an entry for every known facility.
type Table map[string]int

// Estimate counts the entities assigned to each facility. Every name in
// facilities gets an entry, zero when nothing was assigned. Assignments to
// names outside facilities are not counted.
func Estimate(assigned map[string][]string, facilities []string) Table {
	t := make(Table, len(facilities))
	for _, f := range facilities {
		t[f] = len(assigned[f])
	}
	return t
}

// Total returns the sum of all loads.
func (t Table) Total() int {
	n := 0
	for _, l := range t {
		n += l
	}
	return n
}

// Names returns the facility names sorted lexically.
func (t Table) Names() []string {
	out := make([]string, 0, len(t))
	for name := range t {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
