package load

// Defaults for Threshold.
const (
	DefaultMultiplier = 1.3
	DefaultFloor      = 2
)

// Threshold derives the congestion threshold from a load table.
//
// Facilities at or below floor are left out of the baseline. The result is
// the mean of the remaining loads times multiplier, or 0 when no facility
// clears the floor.
func Threshold(t Table, multiplier float64, floor int) float64 {
	sum, n := 0, 0
	for _, l := range t {
		if l > floor {
			sum += l
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return float64(sum) / float64(n) * multiplier
}
