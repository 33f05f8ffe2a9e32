package fasta

import (
	"github.com/pkg/errors"
)

// minUnambiguousFrac is the minimum fraction of a window that must be
// unambiguous (ACGT) for the GC content to be meaningful.  Windows made
// up mostly of Ns (assembly gaps, masked repeats) fail the lookup.
const minUnambiguousFrac = 0.95

// GCFraction returns the fraction of G/C bases in [start, end) of the
// given sequence, counted case-insensitively over the full window
// length.  It returns an error when the window cannot be fetched or
// when fewer than 95% of its bases are unambiguous.
func GCFraction(f Fasta, seqName string, start, end uint64) (float64, error) {
	s, err := f.Get(seqName, start, end)
	if err != nil {
		return 0, err
	}
	var gc, acgt int
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case 'G', 'C', 'g', 'c':
			gc++
			acgt++
		case 'A', 'T', 'a', 't':
			acgt++
		}
	}
	if float64(acgt) < minUnambiguousFrac*float64(len(s)) {
		return 0, errors.Errorf("too many ambiguous bases in %s:[%d, %d): %d of %d",
			seqName, start, end, len(s)-acgt, len(s))
	}
	return float64(gc) / float64(len(s)), nil
}
