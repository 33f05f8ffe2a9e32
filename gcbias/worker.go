package gcbias

import (
	"math"
	"math/rand"

	"github.com/grailbio/base/log"
)

// chunk is one unit of scheduled work: a genomic interval to tabulate
// for every candidate fragment length.
type chunk struct {
	chrom string
	start int
	end   int
}

// worker tabulates chunks.  Each worker owns its providers and is used
// by a single goroutine.
type worker struct {
	seq     SequenceProvider
	aln     AlignmentProvider
	filter  IntervalFilter
	caps    ReadCountCaps
	lengths []int
	stride  int
}

// processChunk tabulates the expected and observed GC histograms for
// one chunk, covering all candidate fragment lengths.  The returned
// table is private to the chunk; the caller merges it.
func (w *worker) processChunk(c chunk, rnd *rand.Rand) (HistogramTable, Stats, error) {
	if c.start > c.end {
		return nil, Stats{}, ErrInvalidRange
	}
	chromLen, err := w.seq.ChromLength(c.chrom)
	if err != nil {
		return nil, Stats{}, err
	}
	table := make(HistogramTable)
	stats := Stats{Chunks: 1}
	for _, fragLen := range w.lengths {
		// Fragments may extend past the chunk end into the neighboring
		// chunk; only the chromosome end stops them.  Reserving room at
		// chunk boundaries instead would make the sampled position set,
		// and hence the merged histograms, depend on the chunking.
		positions, err := samplePositions(w.filter, c.chrom, c.start, c.end, w.stride)
		if err != nil {
			return nil, Stats{}, err
		}
		pair := table.pair(fragLen)
		maxReads := w.caps.Max[fragLen]
		for _, pos := range positions {
			if pos+fragLen > chromLen {
				log.Debug.Printf("chunk %s:%d-%d: fragment end %d exceeds chromosome length %d, stopping",
					c.chrom, c.start, c.end, pos+fragLen, chromLen)
				break
			}
			gcFrac, err := w.seq.GCFraction(c.chrom, pos, pos+fragLen)
			if err != nil {
				// Ambiguous window (assembly gap, masked repeat): skip the
				// position, it contributes to neither histogram.
				stats.SkippedPositions++
				continue
			}
			bin := roundGCBin(gcFrac, rnd)

			frags, err := w.aln.FragmentsStartingAt(c.chrom, pos)
			if err != nil {
				return nil, Stats{}, err
			}
			var numReads int64
			for _, f := range frags {
				if f.EffectiveLength() == fragLen {
					numReads++
				}
			}
			if maxReads > 0 && float64(numReads) >= maxReads {
				stats.SuppressedPeaks++
				continue
			}
			pair.Expected[bin]++
			pair.Observed[bin] += numReads
			stats.SampledPositions++
		}
	}
	return table, stats, nil
}

// roundGCBin converts a GC fraction to an integer percentage bin with
// stochastic rounding: the fractional remainder of the two-decimal
// percentage rounds up with probability equal to itself.  Deterministic
// rounding would pile mass onto round percentages when many positions
// aggregate; stochastic rounding is unbiased in expectation.
func roundGCBin(frac float64, rnd *rand.Rand) int {
	pct := math.Round(frac*10000) / 100
	ipart, fpart := math.Modf(pct)
	bin := int(ipart)
	if rnd.Float64() < fpart {
		bin++
	}
	if bin > NumGCBins-1 {
		bin = NumGCBins - 1
	}
	return bin
}
