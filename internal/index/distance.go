package index

import "math"

func distance(a, b []float32, space SpaceType) float32 {
	switch space {
	case IPSpace:
		// inner product (negated to convert to distance)
		var dot float32
		for i := range a {
			dot += a[i] * b[i]
		}
		return -dot
	case CosSpace:
		var dot, na, nb float32
		for i := range a {
			dot += a[i] * b[i]
			na += a[i] * a[i]
			nb += b[i] * b[i]
		}
		if na == 0 || nb == 0 {
			return 1.0 // maximal distance
		}
		return 1 - dot/float32(math.Sqrt(float64(na*nb)))
	default: // L2 (squared, matches similarity transform below)
		var sum float32
		for i := range a {
			diff := a[i] - b[i]
			sum += diff * diff
		}
		return sum
	}
}

// similarity maps a distance into a score in (0, 1] that decreases
// monotonically with distance. L2 and cosine distances are
// non-negative, so the reciprocal transform applies after clamping
// and identical vectors score 1.0. Inner-product distances run
// negative for aligned vectors, where the reciprocal has a pole at
// -1, so they go through a logistic transform instead.
func similarity(dist float32, space SpaceType) float64 {
	if space == IPSpace {
		return 1.0 / (1.0 + math.Exp(float64(dist)))
	}
	return 1.0 / (1.0 + math.Max(0, float64(dist)))
}
