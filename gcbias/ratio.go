package gcbias

// BiasTable is the derived output of a run: the expected and observed
// histograms and the per-(length, GC bin) bias ratios, stored in
// parallel slices indexed by Lengths.  A BiasTable is immutable once
// built.  Cells with no evidence carry ratio 1.0 (no correction).
type BiasTable struct {
	Lengths  []int
	Expected []Histogram
	Observed []Histogram
	Ratio    [][NumGCBins]float64
}

// EstimateRatios derives the bias-ratio table from merged histograms.
// In direct mode every tabulated fragment length maps straight to a
// ratio row.  In interpolation mode a spline surface is fitted over the
// sampled (length x GC) grid and evaluated for every integer length in
// between, trading smoothing noise for coverage of lengths that were
// never directly sampled.
func EstimateRatios(table HistogramTable, opts Opts) (*BiasTable, error) {
	if opts.Interpolate {
		return interpolateRatios(table, opts)
	}
	return directRatios(table), nil
}

func directRatios(table HistogramTable) *BiasTable {
	lengths := table.Lengths()
	bt := &BiasTable{
		Lengths:  lengths,
		Expected: make([]Histogram, len(lengths)),
		Observed: make([]Histogram, len(lengths)),
		Ratio:    make([][NumGCBins]float64, len(lengths)),
	}
	for i, fragLen := range lengths {
		pair := table[fragLen]
		bt.Expected[i] = pair.Expected
		bt.Observed[i] = pair.Observed

		scaling := 0.0
		if sumF := pair.Observed.Sum(); sumF > 0 {
			scaling = float64(pair.Expected.Sum()) / float64(sumF)
		}
		for g := 0; g < NumGCBins; g++ {
			n, f := pair.Expected[g], pair.Observed[g]
			r := 1.0
			if n > 0 && f > 0 {
				r = float64(f) / float64(n) * scaling
			}
			bt.Ratio[i][g] = r
		}
	}
	return bt
}
