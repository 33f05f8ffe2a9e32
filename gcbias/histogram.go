package gcbias

import (
	"sort"
)

// NumGCBins is the number of GC-percentage bins (0..100 inclusive).
const NumGCBins = 101

// Histogram counts items per GC-percentage bin.
type Histogram [NumGCBins]int64

// Sum returns the total count across all bins.
func (h *Histogram) Sum() int64 {
	var n int64
	for _, v := range h {
		n += v
	}
	return n
}

func (h *Histogram) add(other *Histogram) {
	for i, v := range other {
		h[i] += v
	}
}

// HistogramPair holds the two histograms tabulated per fragment length:
// Expected counts sampled genome positions per GC bin, Observed counts
// the reads of that fragment length starting at those positions.
type HistogramPair struct {
	Expected Histogram
	Observed Histogram
}

// HistogramTable maps a fragment length to its histogram pair.
type HistogramTable map[int]*HistogramPair

// pair returns the pair for the given fragment length, creating it if
// needed.
func (t HistogramTable) pair(fragLen int) *HistogramPair {
	p := t[fragLen]
	if p == nil {
		p = &HistogramPair{}
		t[fragLen] = p
	}
	return p
}

// Merge adds other's counts into t, elementwise.  Merging is commutative
// and associative, so a set of tables reduces to the same result in any
// order.
func (t HistogramTable) Merge(other HistogramTable) {
	for fragLen, op := range other {
		p := t.pair(fragLen)
		p.Expected.add(&op.Expected)
		p.Observed.add(&op.Observed)
	}
}

// Lengths returns the fragment lengths present in t, ascending.
func (t HistogramTable) Lengths() []int {
	lengths := make([]int, 0, len(t))
	for fragLen := range t {
		lengths = append(lengths, fragLen)
	}
	sort.Ints(lengths)
	return lengths
}
