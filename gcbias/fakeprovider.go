package gcbias

import (
	"github.com/grailbio/base/errors"
	"github.com/grailbio/gcbias/alignment"
)

// FakeSequence is an in-memory SequenceProvider backed by literal
// chromosome strings.  For testing.
type FakeSequence map[string]string

// GCFraction implements SequenceProvider.
func (f FakeSequence) GCFraction(chrom string, start, end int) (float64, error) {
	seq, ok := f[chrom]
	if !ok {
		return 0, errors.E("fake sequence: unknown chromosome", chrom)
	}
	if start < 0 || end <= start || end > len(seq) {
		return 0, errors.E("fake sequence: bad window")
	}
	var gc, acgt int
	for i := start; i < end; i++ {
		switch seq[i] {
		case 'G', 'C', 'g', 'c':
			gc++
			acgt++
		case 'A', 'T', 'a', 't':
			acgt++
		}
	}
	if acgt == 0 {
		return 0, errors.E("fake sequence: all-ambiguous window")
	}
	return float64(gc) / float64(end-start), nil
}

// ChromLength implements SequenceProvider.
func (f FakeSequence) ChromLength(chrom string) (int, error) {
	seq, ok := f[chrom]
	if !ok {
		return 0, errors.E("fake sequence: unknown chromosome", chrom)
	}
	return len(seq), nil
}

// Close implements SequenceProvider.
func (f FakeSequence) Close() error { return nil }

// FakeAlignment is an in-memory AlignmentProvider mapping chromosome
// and position to fragments.  For testing.
type FakeAlignment map[string]map[int][]alignment.Fragment

// FragmentsStartingAt implements AlignmentProvider.
func (f FakeAlignment) FragmentsStartingAt(chrom string, pos int) ([]alignment.Fragment, error) {
	return f[chrom][pos], nil
}

// Close implements AlignmentProvider.
func (f FakeAlignment) Close() error { return nil }

// FakeFactory hands every worker the same provider values.  The fakes
// above are stateless, so sharing them across workers is safe.
type FakeFactory struct {
	Seq SequenceProvider
	Aln AlignmentProvider
}

// Sequence implements ProviderFactory.
func (f FakeFactory) Sequence() (SequenceProvider, error) { return f.Seq, nil }

// Alignment implements ProviderFactory.
func (f FakeFactory) Alignment() (AlignmentProvider, error) { return f.Aln, nil }
