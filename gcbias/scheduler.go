package gcbias

import (
	"fmt"
	"math/rand"
	"runtime"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/traverse"
)

// Chromosome names a reference sequence and gives its length.
type Chromosome struct {
	Name   string
	Length int
}

// maxChunkLength caps chunk sizes for sparse data; denser expected
// coverage uses smaller chunks to bound per-worker memory and improve
// load balance.
const (
	maxChunkLength    = 2000000
	chunkLengthBudget = 400000
)

func chunkLength(readsPerBp float64) int {
	length := maxChunkLength
	if readsPerBp > 0 {
		if scaled := int(chunkLengthBudget / readsPerBp); scaled < length {
			length = scaled
		}
	}
	if length < 1 {
		length = 1
	}
	return length
}

// makeChunks splits the chromosomes into consecutive chunks of at most
// chunkLen bases, restricted to region when non-nil.
func makeChunks(chroms []Chromosome, region *Region, chunkLen int) ([]chunk, error) {
	var chunks []chunk
	for _, chrom := range chroms {
		start, end := 0, chrom.Length
		if region != nil {
			if chrom.Name != region.Chrom {
				continue
			}
			start = region.Start
			if region.End > 0 && region.End < end {
				end = region.End
			}
			if start > end {
				return nil, ErrInvalidRange
			}
		}
		for pos := start; pos < end; pos += chunkLen {
			limit := pos + chunkLen
			if limit > end {
				limit = end
			}
			chunks = append(chunks, chunk{chrom: chrom.Name, start: pos, end: limit})
		}
	}
	if region != nil && len(chunks) == 0 {
		return nil, errors.E(fmt.Sprintf("gcbias: region %s:%d-%d matches no chromosome",
			region.Chrom, region.Start, region.End))
	}
	return chunks, nil
}

// Tabulate partitions the genome into chunks, tabulates per-fragment-
// length GC histograms across a fixed worker pool, and merges the
// per-chunk results.  Workers share no mutable state: each owns its own
// providers (from factory) and histograms, and every chunk seeds its
// own random source from opts.Seed and the chunk's position in the
// schedule, so the merged table is identical for any parallelism.  Any
// worker failure aborts the whole run.
func Tabulate(opts Opts, chroms []Chromosome, factory ProviderFactory, filter IntervalFilter, caps ReadCountCaps) (HistogramTable, Stats, error) {
	if err := opts.Validate(); err != nil {
		return nil, Stats{}, err
	}
	var genomeSize int64
	for _, chrom := range chroms {
		genomeSize += int64(chrom.Length)
	}
	stride := opts.Stride(genomeSize)
	chunkLen := chunkLength(opts.ReadsPerBp())
	chunks, err := makeChunks(chroms, opts.Region, chunkLen)
	if err != nil {
		return nil, Stats{}, err
	}
	parallelism := opts.Parallelism
	if parallelism <= 0 {
		parallelism = runtime.GOMAXPROCS(0)
	}
	if parallelism > len(chunks) {
		parallelism = len(chunks)
	}
	if parallelism < 1 {
		parallelism = 1
	}
	log.Printf("tabulating GC content: %d chunks of <=%d bases, stride %d, %d workers",
		len(chunks), chunkLen, stride, parallelism)

	lengths := opts.FragmentLengths()
	tables := make([]HistogramTable, parallelism)
	partStats := make([]Stats, parallelism)
	err = traverse.Each(parallelism, func(job int) error {
		startIdx := (job * len(chunks)) / parallelism
		endIdx := ((job + 1) * len(chunks)) / parallelism

		seq, err := factory.Sequence()
		if err != nil {
			return err
		}
		defer seq.Close() // nolint: errcheck
		aln, err := factory.Alignment()
		if err != nil {
			return err
		}
		defer aln.Close() // nolint: errcheck

		w := worker{
			seq:     seq,
			aln:     aln,
			filter:  filter,
			caps:    caps,
			lengths: lengths,
			stride:  stride,
		}
		table := make(HistogramTable)
		var stats Stats
		for ci := startIdx; ci < endIdx; ci++ {
			rnd := rand.New(rand.NewSource(opts.Seed + int64(ci)))
			sub, st, err := w.processChunk(chunks[ci], rnd)
			if err != nil {
				return err
			}
			table.Merge(sub)
			stats.merge(st)
		}
		tables[job] = table
		partStats[job] = stats
		return nil
	})
	if err != nil {
		return nil, Stats{}, err
	}

	// Reduce phase: single threaded, order independent.
	merged := make(HistogramTable)
	var stats Stats
	for job := range tables {
		merged.Merge(tables[job])
		stats.merge(partStats[job])
	}
	log.Printf("tabulation done: %s", stats)
	return merged, stats, nil
}
