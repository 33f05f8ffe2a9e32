package gcbias

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/gcbias/alignment"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkLength(t *testing.T) {
	assert.Equal(t, maxChunkLength, chunkLength(0))
	assert.Equal(t, maxChunkLength, chunkLength(0.1))
	assert.Equal(t, 400000, chunkLength(1))
	assert.Equal(t, 400, chunkLength(1000))
	assert.Equal(t, 1, chunkLength(1e9))
}

func TestMakeChunks(t *testing.T) {
	chroms := []Chromosome{{"chrA", 250}, {"chrB", 100}}
	chunks, err := makeChunks(chroms, nil, 100)
	require.NoError(t, err)
	assert.Equal(t, []chunk{
		{"chrA", 0, 100}, {"chrA", 100, 200}, {"chrA", 200, 250},
		{"chrB", 0, 100},
	}, chunks)
}

func TestMakeChunksRegion(t *testing.T) {
	chroms := []Chromosome{{"chrA", 250}, {"chrB", 100}}
	chunks, err := makeChunks(chroms, &Region{Chrom: "chrB", Start: 20, End: 80}, 50)
	require.NoError(t, err)
	assert.Equal(t, []chunk{{"chrB", 20, 70}, {"chrB", 70, 80}}, chunks)

	// End == 0 runs to the chromosome end.
	chunks, err = makeChunks(chroms, &Region{Chrom: "chrB", Start: 50}, 100)
	require.NoError(t, err)
	assert.Equal(t, []chunk{{"chrB", 50, 100}}, chunks)

	_, err = makeChunks(chroms, &Region{Chrom: "chrB", Start: 90, End: 40}, 50)
	assert.Equal(t, ErrInvalidRange, err)

	_, err = makeChunks(chroms, &Region{Chrom: "chrZ", Start: 0, End: 100}, 50)
	assert.Error(t, err)
}

// syntheticGenome builds a deterministic pseudorandom reference split
// over two chromosomes, plus proper pairs of template length 60 placed
// every 100 bases.
func syntheticGenome() (FakeSequence, FakeAlignment, []Chromosome) {
	rnd := rand.New(rand.NewSource(42))
	bases := []byte("ACGT")
	mkSeq := func(n int) string {
		var sb strings.Builder
		for i := 0; i < n; i++ {
			sb.WriteByte(bases[rnd.Intn(4)])
		}
		return sb.String()
	}
	seq := FakeSequence{"chrA": mkSeq(3000), "chrB": mkSeq(2000)}
	frag := alignment.Fragment{TemplateLen: 60, Paired: true, ProperPair: true, MateDownstream: true}
	aln := FakeAlignment{"chrA": {}, "chrB": {}}
	for chrom, s := range seq {
		for pos := 0; pos+60 < len(s); pos += 100 {
			aln[chrom][pos] = []alignment.Fragment{frag}
		}
	}
	chroms := []Chromosome{{"chrA", 3000}, {"chrB", 2000}}
	return seq, aln, chroms
}

func syntheticOpts() Opts {
	opts := DefaultOpts
	opts.MinLength = 55
	opts.MaxLength = 65
	opts.SampleSize = 1000
	opts.EffectiveGenomeSize = 5000
	opts.TotalMappedReads = 5000000 // readsPerBp 1000, chunk length 400
	return opts
}

func TestTabulateParallelismInvariance(t *testing.T) {
	seq, aln, chroms := syntheticGenome()
	factory := FakeFactory{Seq: seq, Aln: aln}
	opts := syntheticOpts()

	opts.Parallelism = 1
	base, baseStats, err := Tabulate(opts, chroms, factory, nil, ReadCountCaps{})
	require.NoError(t, err)
	require.NotEmpty(t, base)
	assert.Equal(t, int64(13), baseStats.Chunks)
	assert.True(t, baseStats.SampledPositions > 0)

	// Chunk seeds come from the schedule, not the worker, so the worker
	// count cannot change the result.
	for _, parallelism := range []int{3, 7, 100} {
		opts.Parallelism = parallelism
		table, stats, err := Tabulate(opts, chroms, factory, nil, ReadCountCaps{})
		require.NoError(t, err)
		assert.Equal(t, base, table)
		assert.Equal(t, baseStats, stats)
	}
}

func TestTabulateChunkSizeInvariance(t *testing.T) {
	// Exact integer GC bins sidestep stochastic rounding, whose random
	// streams are tied to chunk indices and so legitimately vary with
	// the chunk size.
	seq, aln, chroms := syntheticGenome()
	factory := FakeFactory{Seq: scaledSeq{seq}, Aln: aln}

	// Stride is 5 for each of these, but the chunk lengths are 400,
	// 1000, and one chunk per chromosome.  All are stride aligned, so
	// the sampled position set is identical.
	results := make([]HistogramTable, 0, 3)
	for _, totalReads := range []int64{5000000, 2000000, 100} {
		opts := syntheticOpts()
		opts.TotalMappedReads = totalReads
		table, _, err := Tabulate(opts, chroms, factory, nil, ReadCountCaps{})
		require.NoError(t, err)
		results = append(results, table)
	}
	assert.Equal(t, results[0], results[1])
	assert.Equal(t, results[0], results[2])
}

func TestTabulateRegion(t *testing.T) {
	seq, aln, chroms := syntheticGenome()
	factory := FakeFactory{Seq: scaledSeq{seq}, Aln: aln}
	opts := syntheticOpts()
	opts.TotalMappedReads = 100 // one chunk spans the whole region
	opts.Region = &Region{Chrom: "chrA", Start: 100, End: 600}

	table, stats, err := Tabulate(opts, chroms, factory, nil, ReadCountCaps{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Chunks)

	// A single worker over the same chunk must agree.
	w := worker{
		seq:     scaledSeq{seq},
		aln:     aln,
		lengths: opts.FragmentLengths(),
		stride:  5,
	}
	want, wantStats, err := w.processChunk(chunk{"chrA", 100, 600}, rand.New(rand.NewSource(opts.Seed)))
	require.NoError(t, err)
	assert.Equal(t, want, table)
	assert.Equal(t, wantStats.SampledPositions, stats.SampledPositions)
}

type errFactory struct {
	err error
}

func (f errFactory) Sequence() (SequenceProvider, error)   { return nil, f.err }
func (f errFactory) Alignment() (AlignmentProvider, error) { return nil, f.err }

func TestTabulateErrors(t *testing.T) {
	_, _, chroms := syntheticGenome()
	opts := syntheticOpts()

	// Provider construction failure aborts the run.
	wantErr := errors.E("no providers here")
	_, _, err := Tabulate(opts, chroms, errFactory{err: wantErr}, nil, ReadCountCaps{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no providers here")

	// A chromosome unknown to the sequence provider fails tabulation.
	factory := FakeFactory{Seq: FakeSequence{"chrA": "ACGT"}, Aln: FakeAlignment{}}
	_, _, err = Tabulate(opts, []Chromosome{{"chrMissing", 1000}}, factory, nil, ReadCountCaps{})
	assert.Error(t, err)

	// Bad options are rejected before any work is scheduled.
	bad := opts
	bad.MinLength = 0
	_, _, err = Tabulate(bad, chroms, errFactory{err: wantErr}, nil, ReadCountCaps{})
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "no providers here")
}
