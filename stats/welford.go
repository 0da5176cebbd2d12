package stats

import "math"

// welford accumulates a running mean and variance using Welford's online
// algorithm, which stays numerically stable over long streams.
type welford struct {
	count uint64
	mean  float64
	m2    float64
}

func (w *welford) add(x float64) {
	w.count++
	delta := x - w.mean
	w.mean += delta / float64(w.count)
	w.m2 += delta * (x - w.mean)
}

func (w *welford) variance() float64 {
	if w.count < 2 {
		return 0
	}
	return w.m2 / float64(w.count)
}

func (w *welford) stddev() float64 {
	return math.Sqrt(w.variance())
}
