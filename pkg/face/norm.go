package face

import "math"

// normEpsilon keeps the divisor away from zero for degenerate vectors.
const normEpsilon = 1e-12

// Normalize computes the L2 norm of the vector and returns it together
// with the unit-length copy. The input is not modified. A zero vector
// yields a zero result instead of NaNs.
func Normalize(v []float32) (float32, []float32) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	norm := math.Sqrt(math.Max(sum, normEpsilon))

	normed := make([]float32, len(v))
	for i, x := range v {
		normed[i] = float32(float64(x) / norm)
	}
	return float32(norm), normed
}
