package history

import "math"

// Vector is a load distribution over facilities in registry order.
type Vector []float64

// DotProduct calculates the dot product of two vectors.
func DotProduct(a, b Vector) float64 {
	if len(a) != len(b) {
		return 0
	}
	var sum float64
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

// CosineSimilarity calculates the cosine similarity between vectors.
// Vectors of different length or zero magnitude yield 0.
func CosineSimilarity(a, b Vector) float64 {
	if len(a) != len(b) {
		return 0
	}
	magA := math.Sqrt(DotProduct(a, a))
	magB := math.Sqrt(DotProduct(b, b))
	if magA == 0 || magB == 0 {
		return 0
	}
	return DotProduct(a, b) / (magA * magB)
}

// Spread is the coefficient of variation of v: 0 for a perfectly even
// distribution, growing as load concentrates.
func Spread(v Vector) float64 {
	if len(v) == 0 {
		return 0
	}
	var sum float64
	for _, x := range v {
		sum += x
	}
	mean := sum / float64(len(v))
	if mean == 0 {
		return 0
	}
	var sq float64
	for _, x := range v {
		sq += (x - mean) * (x - mean)
	}
	return math.Sqrt(sq/float64(len(v))) / mean
}
