package fasta

import (
	"bufio"
	"io"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

// Index lines are "<name>\t<length>\t<byte offset>\t<bases per
// line>\t<bytes per line>".  For example: "chr3\t12345\t9000\t80\t81".
type indexEntry struct {
	length    uint64
	offset    uint64
	lineBases uint64
	lineWidth uint64
}

type indexedFasta struct {
	seqs     map[string]indexEntry
	seqNames []string

	mu        sync.Mutex
	reader    io.ReadSeeker
	bufOff    int64
	buf       []byte // caches file contents starting at bufOff
	resultBuf []byte // temp for splicing multi-line sequences
}

// NewIndexed creates a Fasta that performs random lookups through the
// provided fai index, without reading the sequence data into memory.
func NewIndexed(fasta io.ReadSeeker, index io.Reader) (Fasta, error) {
	f := &indexedFasta{seqs: make(map[string]indexEntry), reader: fasta}
	scanner := bufio.NewScanner(index)
	for scanner.Scan() {
		line := scanner.Text()
		fields := strings.Split(line, "\t")
		if len(fields) < 5 {
			return nil, errors.Errorf("invalid index line: %q", line)
		}
		var (
			ent  indexEntry
			err  error
			name = fields[0]
		)
		if ent.length, err = strconv.ParseUint(fields[1], 10, 64); err != nil {
			return nil, errors.Wrapf(err, "invalid index line: %q", line)
		}
		if ent.offset, err = strconv.ParseUint(fields[2], 10, 64); err != nil {
			return nil, errors.Wrapf(err, "invalid index line: %q", line)
		}
		if ent.lineBases, err = strconv.ParseUint(fields[3], 10, 64); err != nil {
			return nil, errors.Wrapf(err, "invalid index line: %q", line)
		}
		if ent.lineWidth, err = strconv.ParseUint(fields[4], 10, 64); err != nil {
			return nil, errors.Wrapf(err, "invalid index line: %q", line)
		}
		if ent.lineBases == 0 || ent.lineWidth < ent.lineBases {
			return nil, errors.Errorf("inconsistent line geometry in index line: %q", line)
		}
		f.seqs[name] = ent
		f.seqNames = append(f.seqNames, name)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	sort.SliceStable(f.seqNames, func(i, j int) bool {
		return f.seqs[f.seqNames[i]].offset < f.seqs[f.seqNames[j]].offset
	})
	return f, nil
}

func (f *indexedFasta) Len(seqName string) (uint64, error) {
	ent, ok := f.seqs[seqName]
	if !ok {
		return 0, errors.Errorf("sequence not found in index: %s", seqName)
	}
	return ent.length, nil
}

func (f *indexedFasta) SeqNames() []string {
	return f.seqNames
}

// read returns range [off, off+n) of the underlying FASTA file,
// refilling the cache buffer on a miss.
func (f *indexedFasta) read(off int64, n int) ([]byte, error) {
	limit := off + int64(n)
	if off < f.bufOff || limit > f.bufOff+int64(len(f.buf)) {
		if newOff, err := f.reader.Seek(off, io.SeekStart); err != nil || newOff != off {
			return nil, errors.Errorf("failed to seek to offset %d: %d, %v", off, newOff, err)
		}
		bufSize := 8192
		if bufSize < n {
			bufSize = n
		}
		f.resizeBuf(&f.buf, bufSize)
		bytesRead, err := io.ReadFull(f.reader, f.buf)
		if err == io.ErrUnexpectedEOF || err == io.EOF {
			err = nil
		}
		if err != nil {
			return nil, err
		}
		if bytesRead < n {
			return nil, errors.New("unexpected end of file (bad index, or file doesn't end in newline?)")
		}
		f.bufOff = off
		f.buf = f.buf[:bytesRead]
	}
	return f.buf[off-f.bufOff : limit-f.bufOff], nil
}

func (f *indexedFasta) resizeBuf(buf *[]byte, n int) {
	if cap(*buf) < n {
		*buf = make([]byte, n)
	} else {
		*buf = (*buf)[:n]
	}
}

func (f *indexedFasta) Get(seqName string, start, end uint64) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if end <= start {
		return "", errors.Errorf("invalid query range [%d, %d)", start, end)
	}
	ent, ok := f.seqs[seqName]
	if !ok {
		return "", errors.Errorf("sequence not found in index: %s", seqName)
	}
	if end > ent.length {
		return "", errors.Errorf("end is past end of sequence %s: %d > %d", seqName, end, ent.length)
	}

	// Byte offset of the first base, accounting for newline characters.
	sepWidth := ent.lineWidth - ent.lineBases
	offset := ent.offset + start + sepWidth*(start/ent.lineBases)

	// Number of bytes (bases plus newlines) covering the request.
	firstLineBases := ent.lineBases - (start % ent.lineBases)
	newlines := uint64(0)
	if end-start > firstLineBases {
		newlines = 1 + (end-start-firstLineBases)/ent.lineBases
	}
	span := end - start + newlines*sepWidth

	buffer, err := f.read(int64(offset), int(span))
	if err != nil {
		return "", err
	}

	// Copy the non-newline bytes into the result.
	f.resizeBuf(&f.resultBuf, int(end-start))
	linePos := (offset - ent.offset) % ent.lineWidth
	resultPos := 0
	for i := range buffer {
		if linePos < ent.lineBases {
			f.resultBuf[resultPos] = buffer[i]
			resultPos++
		}
		linePos++
		if linePos == ent.lineWidth {
			linePos = 0
		}
	}
	return string(f.resultBuf), nil
}
