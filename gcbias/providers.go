package gcbias

import (
	"github.com/grailbio/gcbias/alignment"
	"github.com/grailbio/gcbias/encoding/fasta"
)

// SequenceProvider supplies GC content and chromosome lengths for the
// reference genome.  A lookup failure for a single window (ambiguous or
// masked bases) is reported as an error and only skips that position.
type SequenceProvider interface {
	// GCFraction returns the GC fraction of [start, end) on chrom.
	GCFraction(chrom string, start, end int) (float64, error)
	// ChromLength returns the total length of chrom.
	ChromLength(chrom string) (int, error)
	// Close releases resources held by the provider.
	Close() error
}

// AlignmentProvider supplies the fragments starting at a genome
// position.  It aliases alignment.Provider so engine users only import
// this package.
type AlignmentProvider = alignment.Provider

// ProviderFactory opens data sources for tabulation workers.  Every
// worker calls it once and owns the returned providers exclusively, so
// implementations need not hand out thread-safe values.
type ProviderFactory interface {
	Sequence() (SequenceProvider, error)
	Alignment() (AlignmentProvider, error)
}

type fastaSequenceProvider struct {
	fa fasta.Fasta
	// nameMap translates scheduler chromosome names (alignment-side) to
	// FASTA sequence names, when the two disagree about "chr" prefixes.
	nameMap map[string]string
	closer  func() error
}

// NewFastaSequenceProvider adapts a fasta.Fasta to SequenceProvider.
// nameMap, which may be nil, translates chromosome names to FASTA
// sequence names.  closer, which may be nil, is invoked on Close.
func NewFastaSequenceProvider(fa fasta.Fasta, nameMap map[string]string, closer func() error) SequenceProvider {
	return &fastaSequenceProvider{fa: fa, nameMap: nameMap, closer: closer}
}

func (p *fastaSequenceProvider) seqName(chrom string) string {
	if name, ok := p.nameMap[chrom]; ok {
		return name
	}
	return chrom
}

func (p *fastaSequenceProvider) GCFraction(chrom string, start, end int) (float64, error) {
	return fasta.GCFraction(p.fa, p.seqName(chrom), uint64(start), uint64(end))
}

func (p *fastaSequenceProvider) ChromLength(chrom string) (int, error) {
	n, err := p.fa.Len(p.seqName(chrom))
	return int(n), err
}

func (p *fastaSequenceProvider) Close() error {
	if p.closer == nil {
		return nil
	}
	return p.closer()
}
