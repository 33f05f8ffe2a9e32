package gcbias

import (
	"fmt"
)

// Stats reports what a tabulation run did.
type Stats struct {
	// Chunks is the number of genome chunks processed.
	Chunks int64
	// SampledPositions is the number of (position, fragment length) pairs
	// that contributed to the histograms.
	SampledPositions int64
	// SuppressedPeaks is the number of sampled positions discarded because
	// their read count reached the Poisson ceiling (amplification
	// artifacts, collapsed repeats).
	SuppressedPeaks int64
	// SkippedPositions is the number of sampled positions dropped because
	// their GC content could not be computed (mostly assembly gaps).
	SkippedPositions int64
}

func (s *Stats) merge(other Stats) {
	s.Chunks += other.Chunks
	s.SampledPositions += other.SampledPositions
	s.SuppressedPeaks += other.SuppressedPeaks
	s.SkippedPositions += other.SkippedPositions
}

func (s Stats) String() string {
	return fmt.Sprintf("chunks: %d, sampled: %d, peak-suppressed: %d, skipped: %d",
		s.Chunks, s.SampledPositions, s.SuppressedPeaks, s.SkippedPositions)
}
