// Package fasta provides random access to (optionally indexed) FASTA
// files, plus GC-content computation over subsequences.  See
// http://www.htslib.org/doc/faidx.html for the index format.  FASTA data
// consists of named sequences that may be interrupted by newlines:
//
// >chr7
// ACGTAC
// GAGGAC
// GCG
// >chr8
// ACGT
//
// Sequence names are the stretch of characters excluding spaces
// immediately after '>'; any text after a space is ignored.
package fasta

import (
	"bufio"
	"io"
	"strings"

	"github.com/pkg/errors"
)

// Fasta represents FASTA-formatted data, consisting of a set of named
// sequences.
type Fasta interface {
	// Get returns a substring of the given sequence at the given
	// coordinates, treated as a 0-based half-open interval [start, end).
	// Get is thread-safe.
	Get(seqName string, start, end uint64) (string, error)

	// Len returns the length of the given sequence.
	Len(seqName string) (uint64, error)

	// SeqNames returns the names of all sequences, in order of appearance.
	SeqNames() []string
}

type memFasta struct {
	seqs     map[string]string
	seqNames []string
}

// New creates a Fasta holding all data from the given reader in memory.
func New(r io.Reader) (Fasta, error) {
	f := &memFasta{seqs: make(map[string]string)}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(nil, 256*1024*1024)
	var seqName string
	var seq strings.Builder
	flush := func() error {
		if seqName == "" {
			return errors.New("malformed FASTA: sequence data before any header")
		}
		f.seqs[seqName] = seq.String()
		f.seqNames = append(f.seqNames, seqName)
		seq.Reset()
		return nil
	}
	for scanner.Scan() {
		line := scanner.Text()
		if len(line) == 0 {
			continue
		}
		if line[0] == '>' {
			if seq.Len() != 0 {
				if err := flush(); err != nil {
					return nil, err
				}
			}
			seqName = strings.Split(line[1:], " ")[0]
			continue
		}
		seq.WriteString(line)
	}
	if scanner.Err() != nil {
		return nil, errors.Wrap(scanner.Err(), "couldn't read FASTA data")
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *memFasta) Get(seqName string, start, end uint64) (string, error) {
	s, ok := f.seqs[seqName]
	if !ok {
		return "", errors.Errorf("sequence not found: %s", seqName)
	}
	if end <= start || end > uint64(len(s)) {
		return "", errors.Errorf("invalid query range [%d, %d) for sequence %s with length %d",
			start, end, seqName, len(s))
	}
	return s[start:end], nil
}

func (f *memFasta) Len(seqName string) (uint64, error) {
	s, ok := f.seqs[seqName]
	if !ok {
		return 0, errors.Errorf("sequence not found: %s", seqName)
	}
	return uint64(len(s)), nil
}

func (f *memFasta) SeqNames() []string {
	return f.seqNames
}
