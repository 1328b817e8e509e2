package appeal

import (
	"math"
	"sort"
)

// Distribution statistics shared by the case builders.  All helpers treat
// the input as immutable and return 0 for empty slices so degraded evidence
// never panics.

func mean(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	s := 0.0
	for _, v := range vals {
		s += v
	}
	return s / float64(len(vals))
}

func median(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	sorted := make([]float64, len(vals))
	copy(sorted, vals)
	sort.Float64s(sorted)

	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2.0
}

// percentileRank returns v's percentile within vals using the midpoint
// convention: (countBelow + 0.5 × countEqual) / n × 100.  Ties therefore
// place the value at the middle of its tied group instead of either edge.
func percentileRank(vals []float64, v float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	below, equal := 0, 0
	for _, x := range vals {
		switch {
		case x < v:
			below++
		case x == v:
			equal++
		}
	}
	return (float64(below) + 0.5*float64(equal)) / float64(len(vals)) * 100
}

// valueAtPercentile returns the value at percentile pct by linear
// interpolation over the sorted distribution.  Interpolation is used at all
// sample sizes (rather than nearest-rank) so small comparable sets do not
// jump between neighbouring values as the pool changes by one record.
func valueAtPercentile(vals []float64, pct float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	sorted := make([]float64, len(vals))
	copy(sorted, vals)
	sort.Float64s(sorted)

	if pct <= 0 {
		return sorted[0]
	}
	if pct >= 100 {
		return sorted[len(sorted)-1]
	}

	rank := pct / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo] + frac*(sorted[hi]-sorted[lo])
}

// coefficientOfDispersion returns the mean absolute deviation from the
// median, divided by the median, as a percent.  A zero median yields 0.
func coefficientOfDispersion(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	med := median(vals)
	if med == 0 {
		return 0
	}
	dev := 0.0
	for _, v := range vals {
		dev += math.Abs(v - med)
	}
	return dev / float64(len(vals)) / med * 100
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
