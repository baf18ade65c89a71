package load

import "sort"

// Classification partitions facilities by their load against a threshold.
// Every slice is sorted by facility name.
type Classification struct {
	Threshold     float64
	Overloaded    []string
	Underutilized []string
	Idle          []string
}

// Classify splits t into overloaded (load > threshold), underutilized
// (0 < load <= threshold) and idle (load == 0) facilities.
func Classify(t Table, threshold float64) Classification {
	c := Classification{Threshold: threshold}
	for name, l := range t {
		switch {
		case l == 0:
			c.Idle = append(c.Idle, name)
		case float64(l) > threshold:
			c.Overloaded = append(c.Overloaded, name)
		default:
			c.Underutilized = append(c.Underutilized, name)
		}
	}
	sort.Strings(c.Overloaded)
	sort.Strings(c.Underutilized)
	sort.Strings(c.Idle)
	return c
}

// IsOverloaded reports whether name is in the overloaded set.
func (c Classification) IsOverloaded(name string) bool {
	return contains(c.Overloaded, name)
}

// IsUnderutilized reports whether name is in the underutilized set.
func (c Classification) IsUnderutilized(name string) bool {
	return contains(c.Underutilized, name)
}

func contains(sorted []string, name string) bool {
	i := sort.SearchStrings(sorted, name)
	return i < len(sorted) && sorted[i] == name
}
