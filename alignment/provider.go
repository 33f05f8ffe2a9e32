// Package alignment provides per-position lookups of aligned-read
// fragments, backed by coordinate-sorted, indexed BAM files.
package alignment

// Fragment describes one aligned read (or read pair) whose alignment
// starts at a queried position.
type Fragment struct {
	// TemplateLen is the absolute template (insert) span for paired reads.
	TemplateLen int
	// ReadLen is the read's own query length.
	ReadLen int
	// Paired is whether the read is part of a pair.
	Paired bool
	// ProperPair is whether the aligner flagged the pair as proper.
	ProperPair bool
	// MateDownstream is whether the mate aligns after this read.
	MateDownstream bool
}

// EffectiveLength returns the fragment length this read represents: the
// template span for a properly paired read whose mate is downstream, the
// read length for an unpaired read, and 0 otherwise (the fragment cannot
// be sized from this end).
func (f Fragment) EffectiveLength() int {
	if f.Paired {
		if f.ProperPair && f.MateDownstream {
			return f.TemplateLen
		}
		return 0
	}
	return f.ReadLen
}

// Provider returns the fragments whose alignment starts at a given
// position.  Implementations are not required to be thread safe; every
// concurrent user should open its own Provider.
type Provider interface {
	// FragmentsStartingAt returns the fragments starting exactly at pos on
	// chrom.  A position with no coverage yields an empty slice.
	FragmentsStartingAt(chrom string, pos int) ([]Fragment, error)

	// Close releases resources held by the provider.
	Close() error
}
