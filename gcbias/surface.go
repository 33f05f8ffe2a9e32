package gcbias

import (
	"fmt"
	"math"

	"github.com/grailbio/base/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/interp"
)

// ErrDegenerateSurface reports that interpolation was requested but
// fewer than two distinct fragment lengths were sampled, so no surface
// can be fitted.
var ErrDegenerateSurface = errors.E("gcbias: interpolation needs at least two sampled fragment lengths")

// SurfaceFitter fits a smooth surface over a sparse grid
// z[i][j] = f(xs[i], ys[j]) and evaluates it on a dense grid.  It is
// pluggable so the interpolation backend can be swapped out.
type SurfaceFitter interface {
	Fit(xs, ys []float64, z [][]float64) error
	EvalGrid(xs, ys []float64) ([][]float64, error)
}

// splineSurface implements SurfaceFitter with tensor-product Akima
// splines, optionally preceded by 1-2-1 kernel smoothing passes over
// the sparse grid.  With zero smoothing passes the surface reproduces
// the grid values exactly.
type splineSurface struct {
	smoothPasses int
	xs, ys       []float64
	z            [][]float64
}

// NewSplineSurface returns a SurfaceFitter applying the given number of
// smoothing passes before fitting.
func NewSplineSurface(smoothPasses int) SurfaceFitter {
	return &splineSurface{smoothPasses: smoothPasses}
}

// Fit implements SurfaceFitter.
func (s *splineSurface) Fit(xs, ys []float64, z [][]float64) error {
	if len(xs) < 2 || len(ys) < 2 {
		return ErrDegenerateSurface
	}
	if len(z) != len(xs) {
		return errors.E(fmt.Sprintf("gcbias: surface grid has %d rows, want %d", len(z), len(xs)))
	}
	s.z = make([][]float64, len(z))
	for i, row := range z {
		if len(row) != len(ys) {
			return errors.E(fmt.Sprintf("gcbias: surface grid row %d has %d values, want %d", i, len(row), len(ys)))
		}
		s.z[i] = append([]float64(nil), row...)
	}
	s.xs = append([]float64(nil), xs...)
	s.ys = append([]float64(nil), ys...)
	for pass := 0; pass < s.smoothPasses; pass++ {
		smoothGrid(s.z)
	}
	return nil
}

// EvalGrid implements SurfaceFitter: splines along the y axis produce
// one value per sample row for each requested y, then splines along the
// x axis interpolate those columns at the requested xs.
func (s *splineSurface) EvalGrid(xs, ys []float64) ([][]float64, error) {
	if s.z == nil {
		return nil, errors.E("gcbias: EvalGrid called before Fit")
	}
	var spline interp.AkimaSpline
	rows := make([][]float64, len(s.xs))
	for i := range s.xs {
		if err := spline.Fit(s.ys, s.z[i]); err != nil {
			return nil, err
		}
		row := make([]float64, len(ys))
		for j, y := range ys {
			row[j] = spline.Predict(y)
		}
		rows[i] = row
	}
	out := make([][]float64, len(xs))
	for i := range out {
		out[i] = make([]float64, len(ys))
	}
	col := make([]float64, len(s.xs))
	for j := range ys {
		for i := range s.xs {
			col[i] = rows[i][j]
		}
		if err := spline.Fit(s.xs, col); err != nil {
			return nil, err
		}
		for i, x := range xs {
			out[i][j] = spline.Predict(x)
		}
	}
	return out, nil
}

// smoothGrid applies one separable 1-2-1 kernel pass along both axes.
func smoothGrid(z [][]float64) {
	for _, row := range z {
		smoothSlice(row)
	}
	if len(z) == 0 {
		return
	}
	col := make([]float64, len(z))
	for j := range z[0] {
		for i := range z {
			col[i] = z[i][j]
		}
		smoothSlice(col)
		for i := range z {
			z[i][j] = col[i]
		}
	}
}

func smoothSlice(a []float64) {
	if len(a) < 3 {
		return
	}
	prev := a[0]
	a[0] = (2*a[0] + a[1]) / 3
	for i := 1; i < len(a)-1; i++ {
		cur := a[i]
		a[i] = 0.25*prev + 0.5*cur + 0.25*a[i+1]
		prev = cur
	}
	last := len(a) - 1
	a[last] = (prev + 2*a[last]) / 3
}

// interpolateRatios fits surfaces over the sampled Expected and
// Observed grids and derives ratios on the dense grid of every integer
// fragment length between the smallest and largest sampled length.
func interpolateRatios(table HistogramTable, opts Opts) (*BiasTable, error) {
	lengths := table.Lengths()
	if len(lengths) < 2 {
		return nil, ErrDegenerateSurface
	}
	xs := make([]float64, len(lengths))
	for i, fragLen := range lengths {
		xs[i] = float64(fragLen)
	}
	ys := make([]float64, NumGCBins)
	for g := range ys {
		ys[g] = float64(g)
	}
	zN := make([][]float64, len(lengths))
	zF := make([][]float64, len(lengths))
	for i, fragLen := range lengths {
		pair := table[fragLen]
		zN[i] = make([]float64, NumGCBins)
		zF[i] = make([]float64, NumGCBins)
		for g := 0; g < NumGCBins; g++ {
			zN[i][g] = float64(pair.Expected[g])
			zF[i][g] = float64(pair.Observed[g])
		}
	}

	fitN := NewSplineSurface(opts.SurfaceSmooth)
	if err := fitN.Fit(xs, ys, zN); err != nil {
		return nil, err
	}
	fitF := NewSplineSurface(opts.SurfaceSmooth)
	if err := fitF.Fit(xs, ys, zF); err != nil {
		return nil, err
	}

	denseLengths := make([]int, 0, lengths[len(lengths)-1]-lengths[0]+1)
	dx := make([]float64, 0, cap(denseLengths))
	for l := lengths[0]; l <= lengths[len(lengths)-1]; l++ {
		denseLengths = append(denseLengths, l)
		dx = append(dx, float64(l))
	}
	evalN, err := fitN.EvalGrid(dx, ys)
	if err != nil {
		return nil, err
	}
	evalF, err := fitF.EvalGrid(dx, ys)
	if err != nil {
		return nil, err
	}

	// Per-length scaling, falling back to the nearest length with a
	// nonvanishing observed row.
	scalings := make([]float64, len(dx))
	for i := range dx {
		sumF := floats.Sum(evalF[i])
		if sumF > 1e-9 {
			scalings[i] = floats.Sum(evalN[i]) / sumF
		} else {
			scalings[i] = math.NaN()
		}
	}
	fillNearest(scalings)

	bt := &BiasTable{
		Lengths:  denseLengths,
		Expected: make([]Histogram, len(denseLengths)),
		Observed: make([]Histogram, len(denseLengths)),
		Ratio:    make([][NumGCBins]float64, len(denseLengths)),
	}
	for i := range denseLengths {
		for g := 0; g < NumGCBins; g++ {
			// Rounding (not truncation) keeps sampled grid points exactly
			// reproducible: the spline passes through the original integer
			// counts up to float error.
			n := math.Round(evalN[i][g])
			f := math.Round(evalF[i][g])
			r := 1.0
			if n > 0 && f > 0 && !math.IsNaN(scalings[i]) {
				r = f / n * scalings[i]
			}
			bt.Expected[i][g] = clampCount(n)
			bt.Observed[i][g] = clampCount(f)
			bt.Ratio[i][g] = r
		}
	}
	return bt, nil
}

// fillNearest replaces NaN entries with the nearest non-NaN neighbor,
// preferring the one to the left.
func fillNearest(a []float64) {
	last := math.NaN()
	for i, v := range a {
		if math.IsNaN(v) {
			a[i] = last
		} else {
			last = v
		}
	}
	last = math.NaN()
	for i := len(a) - 1; i >= 0; i-- {
		if math.IsNaN(a[i]) {
			a[i] = last
		} else {
			last = a[i]
		}
	}
}

func clampCount(v float64) int64 {
	if v < 0 || math.IsNaN(v) {
		return 0
	}
	return int64(v)
}
