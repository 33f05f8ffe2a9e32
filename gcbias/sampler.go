package gcbias

import (
	"fmt"
	"sort"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/gcbias/interval"
)

// ErrInvalidRange reports a malformed sampling range (start beyond end).
var ErrInvalidRange = errors.E("gcbias: sampling range start exceeds end")

// IntervalFilter supplies the region sets consulted during position
// sampling.  A chromosome absent from a set yields no intervals.
// interval.FilterSet is the usual implementation.
type IntervalFilter interface {
	ExcludeOverlaps(chrom string, start, end int) []interval.Interval
	ExtraOverlaps(chrom string, start, end int) []interval.Interval
}

// samplePositions returns the ascending genome positions to sample in
// [start, end): the stride-spaced arithmetic sequence from start,
// augmented by stride-spaced positions within any overlapping
// extra-sampling interval, minus any position inside an exclude
// interval.  Extra-sampling regions compensate for genome content that
// uniform stride sampling underrepresents.
func samplePositions(filter IntervalFilter, chrom string, start, end, stride int) ([]int, error) {
	if start > end {
		return nil, ErrInvalidRange
	}
	if stride <= 0 {
		return nil, errors.E(fmt.Sprintf("gcbias: nonpositive sampling stride %d", stride))
	}
	var positions []int
	for pos := start; pos < end; pos += stride {
		positions = append(positions, pos)
	}
	if filter == nil {
		return positions, nil
	}

	if extras := filter.ExtraOverlaps(chrom, start, end); len(extras) > 0 {
		for _, iv := range extras {
			for pos := iv.Start; pos < iv.End; pos += stride {
				positions = append(positions, pos)
			}
		}
		sort.Ints(positions)
		positions = dedupeSorted(positions)
	}

	for _, iv := range filter.ExcludeOverlaps(chrom, start, end) {
		kept := positions[:0]
		for _, pos := range positions {
			if pos < iv.Start || pos >= iv.End {
				kept = append(kept, pos)
			}
		}
		positions = kept
	}
	return positions, nil
}

func dedupeSorted(a []int) []int {
	out := a[:0]
	for i, v := range a {
		if i == 0 || v != a[i-1] {
			out = append(out, v)
		}
	}
	return out
}
