package alignment

import (
	"context"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/hts/bam"
	"github.com/grailbio/hts/sam"
)

// fetchWindow is the number of bases fetched around a queried position.
// Sample positions are visited in ascending order, so one window serves
// many consecutive queries before the next index seek.
const fetchWindow = 1 << 16

// BAMOpts defines options for NewBAMProvider.
type BAMOpts struct {
	// Index is the path of the BAM index.  It defaults to path + ".bai".
	Index string
}

type bamProvider struct {
	path      string
	indexPath string

	ctx    context.Context
	in     file.File
	idxIn  file.File
	reader *bam.Reader
	index  *bam.Index
	refs   map[string]*sam.Reference

	// Window cache for the most recent fetch.
	winChrom string
	winStart int
	winEnd   int
	byPos    map[int][]Fragment
}

// NewBAMProvider returns a Provider reading the given coordinate-sorted
// BAM file.  The file is opened lazily on first use, so each worker can
// construct its own provider cheaply up front.
func NewBAMProvider(path string, opts BAMOpts) Provider {
	indexPath := opts.Index
	if indexPath == "" {
		indexPath = path + ".bai"
	}
	return &bamProvider{path: path, indexPath: indexPath, winStart: -1, winEnd: -1}
}

func (p *bamProvider) open() error {
	if p.reader != nil {
		return nil
	}
	p.ctx = vcontext.Background()
	in, err := file.Open(p.ctx, p.path)
	if err != nil {
		return err
	}
	reader, err := bam.NewReader(in.Reader(p.ctx), 1)
	if err != nil {
		_ = in.Close(p.ctx)
		return errors.E(err, "opening BAM:", p.path)
	}
	idxIn, err := file.Open(p.ctx, p.indexPath)
	if err != nil {
		_ = reader.Close()
		_ = in.Close(p.ctx)
		return err
	}
	index, err := bam.ReadIndex(idxIn.Reader(p.ctx))
	if err != nil {
		_ = idxIn.Close(p.ctx)
		_ = reader.Close()
		_ = in.Close(p.ctx)
		return errors.E(err, "reading BAM index:", p.indexPath)
	}
	refs := make(map[string]*sam.Reference)
	for _, ref := range reader.Header().Refs() {
		refs[ref.Name()] = ref
	}
	p.in, p.idxIn, p.reader, p.index, p.refs = in, idxIn, reader, index, refs
	return nil
}

// FragmentsStartingAt implements Provider.
func (p *bamProvider) FragmentsStartingAt(chrom string, pos int) ([]Fragment, error) {
	if err := p.open(); err != nil {
		return nil, err
	}
	if chrom != p.winChrom || pos < p.winStart || pos >= p.winEnd {
		if err := p.fetch(chrom, pos); err != nil {
			return nil, err
		}
	}
	return p.byPos[pos], nil
}

// fetch loads all reads starting in [pos, pos+fetchWindow) on chrom into
// the window cache.
func (p *bamProvider) fetch(chrom string, pos int) error {
	p.winChrom = chrom
	p.winStart = pos
	p.winEnd = pos + fetchWindow
	p.byPos = make(map[int][]Fragment)

	ref, ok := p.refs[chrom]
	if !ok {
		return errors.E("BAM header has no reference named", chrom)
	}
	end := p.winEnd
	if end > ref.Len() {
		end = ref.Len()
	}
	if pos >= end {
		return nil
	}
	// A chunk-lookup miss means the index holds no reads for the window;
	// that is plain zero coverage, not an I/O failure.
	chunks, err := p.index.Chunks(ref, pos, end)
	if err != nil {
		return nil
	}
	it, err := bam.NewIterator(p.reader, chunks)
	if err != nil {
		return err
	}
	for it.Next() {
		rec := it.Record()
		if rec.Flags&sam.Unmapped != 0 || rec.Pos < pos || rec.Pos >= end {
			continue
		}
		p.byPos[rec.Pos] = append(p.byPos[rec.Pos], Fragment{
			TemplateLen:    abs(rec.TempLen),
			ReadLen:        rec.Seq.Length,
			Paired:         rec.Flags&sam.Paired != 0,
			ProperPair:     rec.Flags&sam.ProperPair != 0,
			MateDownstream: rec.MatePos > rec.Pos,
		})
	}
	return it.Close()
}

// Close implements Provider.
func (p *bamProvider) Close() error {
	if p.reader == nil {
		return nil
	}
	err := p.reader.Close()
	if e := p.idxIn.Close(p.ctx); e != nil && err == nil {
		err = e
	}
	if e := p.in.Close(p.ctx); e != nil && err == nil {
		err = e
	}
	p.reader = nil
	return err
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
