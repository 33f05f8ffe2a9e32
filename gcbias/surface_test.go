package gcbias

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// syntheticTable fills smooth, strictly positive histograms for the
// given fragment lengths.
func syntheticTable(lengths []int) HistogramTable {
	table := make(HistogramTable)
	for _, fragLen := range lengths {
		pair := table.pair(fragLen)
		for g := 0; g < NumGCBins; g++ {
			pair.Expected[g] = int64(200 + 3*g + fragLen)
			pair.Observed[g] = int64(100 + 2*g + fragLen/5)
		}
	}
	return table
}

func TestInterpolateMatchesDirectAtSampledLengths(t *testing.T) {
	lengths := []int{30, 35, 40, 45, 50}
	table := syntheticTable(lengths)

	opts := DefaultOpts
	opts.Interpolate = true
	opts.SurfaceSmooth = 0
	interp, err := EstimateRatios(table, opts)
	require.NoError(t, err)

	// Every integer length between the sampled extremes gets a row.
	require.Equal(t, 21, len(interp.Lengths))
	assert.Equal(t, 30, interp.Lengths[0])
	assert.Equal(t, 50, interp.Lengths[20])

	direct := directRatios(table)
	for di, fragLen := range lengths {
		ii := fragLen - interp.Lengths[0]
		for g := 0; g < NumGCBins; g++ {
			assert.InDelta(t, direct.Ratio[di][g], interp.Ratio[ii][g], 1e-6,
				"length %d bin %d", fragLen, g)
			assert.Equal(t, direct.Expected[di][g], interp.Expected[ii][g])
			assert.Equal(t, direct.Observed[di][g], interp.Observed[ii][g])
		}
	}

	// Interpolated rows stay between their neighbors for this monotone
	// synthetic surface.
	for g := 0; g < NumGCBins; g++ {
		lo, hi := interp.Expected[0][g], interp.Expected[5][g]
		mid := interp.Expected[2][g]
		assert.True(t, lo <= mid && mid <= hi, "bin %d: %d outside [%d, %d]", g, mid, lo, hi)
	}
}

func TestInterpolateDegenerate(t *testing.T) {
	opts := DefaultOpts
	opts.Interpolate = true

	_, err := EstimateRatios(syntheticTable([]int{30}), opts)
	assert.Equal(t, ErrDegenerateSurface, err)
	_, err = EstimateRatios(make(HistogramTable), opts)
	assert.Equal(t, ErrDegenerateSurface, err)
}

func TestSplineSurfaceErrors(t *testing.T) {
	s := NewSplineSurface(0)
	_, err := s.EvalGrid([]float64{1}, []float64{1})
	assert.Error(t, err)

	assert.Equal(t, ErrDegenerateSurface, s.Fit([]float64{1}, []float64{1, 2}, [][]float64{{1, 2}}))
	assert.Error(t, s.Fit([]float64{1, 2}, []float64{1, 2}, [][]float64{{1, 2}}))
	assert.Error(t, s.Fit([]float64{1, 2}, []float64{1, 2}, [][]float64{{1, 2}, {1}}))
}

func TestSplineSurfaceReproducesGrid(t *testing.T) {
	xs := []float64{0, 1, 2, 3}
	ys := []float64{0, 2, 4}
	z := [][]float64{
		{1, 2, 3},
		{4, 5, 6},
		{7, 8, 9},
		{10, 11, 12},
	}
	s := NewSplineSurface(0)
	require.NoError(t, s.Fit(xs, ys, z))
	out, err := s.EvalGrid(xs, ys)
	require.NoError(t, err)
	for i := range xs {
		for j := range ys {
			assert.InDelta(t, z[i][j], out[i][j], 1e-9)
		}
	}
}

func TestSmoothSlice(t *testing.T) {
	a := []float64{0, 3, 0}
	smoothSlice(a)
	assert.InDeltaSlice(t, []float64{1, 1.5, 1}, a, 1e-12)

	// Too short to smooth.
	b := []float64{5, 7}
	smoothSlice(b)
	assert.Equal(t, []float64{5, 7}, b)
}

func TestSurfaceSmoothingDampensSpikes(t *testing.T) {
	lengths := []int{30, 35, 40, 45}
	table := syntheticTable(lengths)
	table[35].Observed[50] += 100000 // spike

	opts := DefaultOpts
	opts.Interpolate = true
	opts.SurfaceSmooth = 0
	raw, err := EstimateRatios(table, opts)
	require.NoError(t, err)
	opts.SurfaceSmooth = 2
	smoothed, err := EstimateRatios(table, opts)
	require.NoError(t, err)

	row := 35 - 30
	assert.True(t, smoothed.Observed[row][50] < raw.Observed[row][50])
}

func TestFillNearest(t *testing.T) {
	a := []float64{math.NaN(), 2, math.NaN(), math.NaN(), 5, math.NaN()}
	fillNearest(a)
	assert.Equal(t, []float64{2, 2, 2, 2, 5, 5}, a)

	b := []float64{math.NaN(), math.NaN()}
	fillNearest(b)
	assert.True(t, math.IsNaN(b[0]) && math.IsNaN(b[1]))
}
