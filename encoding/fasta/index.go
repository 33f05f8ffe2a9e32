package fasta

import (
	"bufio"
	"bytes"
	"io"
	"strings"

	"github.com/grailbio/base/tsv"
	"github.com/pkg/errors"
)

// GenerateIndex writes a "samtools faidx" style index (*.fai) for the
// FASTA data read from in.  The index can later be passed to NewIndexed
// for random access without loading the sequences into memory.
func GenerateIndex(out io.Writer, in io.Reader) (err error) {
	var (
		tsvOut      = tsv.NewWriter(out)
		r           = bufio.NewReader(in)
		seqName     string
		seqStartOff int64
		totalBases  int
		lineBases   int
		lineWidth   int
		cumByte     int64
		eof         bool
	)

	setErr := func(e error) {
		if e != nil && err == nil {
			err = e
		}
	}
	flush := func() {
		tsvOut.WriteString(seqName)
		tsvOut.WriteInt64(int64(totalBases))
		tsvOut.WriteInt64(seqStartOff)
		tsvOut.WriteInt64(int64(lineBases))
		tsvOut.WriteInt64(int64(lineWidth))
		setErr(tsvOut.EndLine())
	}
	for !eof && err == nil {
		fullLine, e := r.ReadBytes('\n')
		if e == io.EOF {
			eof = true
		} else if e != nil {
			setErr(e)
		}
		cumByte += int64(len(fullLine))
		line := bytes.TrimRight(fullLine, "\r\n")
		if len(line) == 0 {
			continue
		}
		if line[0] == '>' { // Start a new sequence.
			if lineWidth != 0 {
				if seqName == "" {
					setErr(errors.New("malformed FASTA file"))
				}
				flush()
			}
			seqName = strings.Split(string(line[1:]), " ")[0]
			seqStartOff = cumByte
			lineWidth = 0
			lineBases = 0
			totalBases = 0
			continue
		}
		if lineWidth == 0 {
			lineWidth = len(fullLine)
			lineBases = len(line)
		}
		totalBases += len(line)
	}
	flush()
	setErr(tsvOut.Flush())
	if cumByte == 0 {
		setErr(errors.New("empty FASTA file"))
	}
	return
}

// FaiToReferenceLengths reads a FASTA fai index and returns a map of
// sequence name to sequence length, without reading the FASTA itself.
func FaiToReferenceLengths(index io.Reader) (map[string]uint64, error) {
	idx, err := NewIndexed(nil, index)
	if err != nil {
		return nil, err
	}
	lengths := make(map[string]uint64)
	for _, name := range idx.SeqNames() {
		n, err := idx.Len(name)
		if err != nil {
			return nil, err
		}
		lengths[name] = n
	}
	return lengths, nil
}
