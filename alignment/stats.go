package alignment

import (
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/hts/bam"
	"github.com/grailbio/hts/sam"
)

// MappedReadCount returns the total number of mapped reads recorded in
// the BAM index metadata, along with the reference sequences declared in
// the BAM header.  An indexPath of "" defaults to path + ".bai".
func MappedReadCount(path, indexPath string) (mapped uint64, refs []*sam.Reference, err error) {
	if indexPath == "" {
		indexPath = path + ".bai"
	}
	ctx := vcontext.Background()
	in, err := file.Open(ctx, path)
	if err != nil {
		return 0, nil, err
	}
	defer func() {
		if cerr := in.Close(ctx); cerr != nil && err == nil {
			err = cerr
		}
	}()
	reader, err := bam.NewReader(in.Reader(ctx), 1)
	if err != nil {
		return 0, nil, errors.E(err, "opening BAM:", path)
	}
	defer func() {
		if cerr := reader.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	idxIn, err := file.Open(ctx, indexPath)
	if err != nil {
		return 0, nil, err
	}
	defer func() {
		if cerr := idxIn.Close(ctx); cerr != nil && err == nil {
			err = cerr
		}
	}()
	index, err := bam.ReadIndex(idxIn.Reader(ctx))
	if err != nil {
		return 0, nil, errors.E(err, "reading BAM index:", indexPath)
	}

	refs = reader.Header().Refs()
	for _, ref := range refs {
		if stats, ok := index.ReferenceStats(ref.ID()); ok {
			mapped += stats.Mapped
		}
	}
	return mapped, refs, nil
}
