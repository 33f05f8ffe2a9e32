package gcbias

import (
	"context"
	"strconv"

	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/tsv"
)

// Table-name discriminators in the output artifact.
const (
	tableExpected = "Expected"
	tableObserved = "Observed"
	tableRatio    = "Ratio"
)

// WriteBiasTable writes the stacked Expected/Observed/Ratio tables to
// path as TSV: one row per (table, fragment length), one column per GC
// bin.  The raw histograms ride along with the ratios so downstream
// consumers can audit the correction.
func WriteBiasTable(ctx context.Context, path string, bt *BiasTable) (err error) {
	out, err := file.Create(ctx, path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(ctx); cerr != nil && err == nil {
			err = cerr
		}
	}()
	w := tsv.NewWriter(out.Writer(ctx))
	writeGCHeader(w)
	for i, fragLen := range bt.Lengths {
		w.WriteString(tableExpected)
		w.WriteInt64(int64(fragLen))
		for g := 0; g < NumGCBins; g++ {
			w.WriteInt64(bt.Expected[i][g])
		}
		if err = w.EndLine(); err != nil {
			return err
		}
	}
	for i, fragLen := range bt.Lengths {
		w.WriteString(tableObserved)
		w.WriteInt64(int64(fragLen))
		for g := 0; g < NumGCBins; g++ {
			w.WriteInt64(bt.Observed[i][g])
		}
		if err = w.EndLine(); err != nil {
			return err
		}
	}
	for i, fragLen := range bt.Lengths {
		w.WriteString(tableRatio)
		w.WriteInt64(int64(fragLen))
		for g := 0; g < NumGCBins; g++ {
			w.WriteString(strconv.FormatFloat(bt.Ratio[i][g], 'g', -1, 64))
		}
		if err = w.EndLine(); err != nil {
			return err
		}
	}
	if err = w.Flush(); err != nil {
		return err
	}
	log.Printf("wrote GC-bias table (%d fragment lengths) to %s", len(bt.Lengths), path)
	return nil
}

// WriteMeasuredCounts writes the raw sampled histograms to path.  This
// secondary artifact preserves the measurements when the primary output
// holds interpolated values.
func WriteMeasuredCounts(ctx context.Context, path string, table HistogramTable) (err error) {
	out, err := file.Create(ctx, path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(ctx); cerr != nil && err == nil {
			err = cerr
		}
	}()
	w := tsv.NewWriter(out.Writer(ctx))
	writeGCHeader(w)
	lengths := table.Lengths()
	for _, fragLen := range lengths {
		w.WriteString(tableExpected)
		w.WriteInt64(int64(fragLen))
		for g := 0; g < NumGCBins; g++ {
			w.WriteInt64(table[fragLen].Expected[g])
		}
		if err = w.EndLine(); err != nil {
			return err
		}
	}
	for _, fragLen := range lengths {
		w.WriteString(tableObserved)
		w.WriteInt64(int64(fragLen))
		for g := 0; g < NumGCBins; g++ {
			w.WriteInt64(table[fragLen].Observed[g])
		}
		if err = w.EndLine(); err != nil {
			return err
		}
	}
	if err = w.Flush(); err != nil {
		return err
	}
	log.Printf("wrote measured GC counts (%d fragment lengths) to %s", len(lengths), path)
	return nil
}

func writeGCHeader(w *tsv.Writer) {
	w.WriteString("#table")
	w.WriteString("length")
	for g := 0; g < NumGCBins; g++ {
		w.WriteString(strconv.Itoa(g))
	}
	_ = w.EndLine()
}
