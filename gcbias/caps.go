package gcbias

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// ReadCountCaps holds, per fragment length, the read-count bounds
// derived from a Poisson model of the expected sequencing depth.
// Positions whose read count reaches Max are discarded from tabulation
// (peak suppression).  Min is near zero for typical depths and is
// reported for completeness.
type ReadCountCaps struct {
	Min map[int]float64
	Max map[int]float64
}

// NewReadCountCaps computes caps for the given fragment lengths.  The
// Poisson mean for length L is factor*readsPerBp*L; Max uses
// maxFactor (empirically at least 4, since depth varies with GC content
// and the global readsPerBp underestimates local rates) and Min uses
// minFactor.  pValue is the tail probability, conventionally
// 1/sampleSize.
func NewReadCountCaps(lengths []int, readsPerBp, pValue, minFactor, maxFactor float64) ReadCountCaps {
	caps := ReadCountCaps{
		Min: make(map[int]float64, len(lengths)),
		Max: make(map[int]float64, len(lengths)),
	}
	for _, fragLen := range lengths {
		caps.Max[fragLen] = poissonISF(maxFactor*readsPerBp*float64(fragLen), pValue)
		caps.Min[fragLen] = poissonPPF(minFactor*readsPerBp*float64(fragLen), pValue)
	}
	return caps
}

// poissonISF returns the inverse survival function of Poisson(lambda):
// the smallest integer k with P(X > k) <= p.  The search walks outward
// from the mean, so the cost is proportional to the tail width rather
// than to lambda.
func poissonISF(lambda, p float64) float64 {
	if lambda <= 0 {
		return 0
	}
	dist := distuv.Poisson{Lambda: lambda}
	k := math.Floor(lambda)
	for dist.Survival(k) > p {
		k++
	}
	for k > 0 && dist.Survival(k-1) <= p {
		k--
	}
	return k
}

// poissonPPF returns the quantile of Poisson(lambda): the smallest
// integer k with P(X <= k) >= p.
func poissonPPF(lambda, p float64) float64 {
	if lambda <= 0 || p <= 0 {
		return 0
	}
	dist := distuv.Poisson{Lambda: lambda}
	k := math.Floor(lambda)
	for dist.CDF(k) < p {
		k++
	}
	for k > 0 && dist.CDF(k-1) >= p {
		k--
	}
	return k
}
