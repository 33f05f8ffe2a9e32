package gcbias

import (
	"github.com/grailbio/base/errors"
)

// Region restricts a run to a single genomic interval.  End == 0 means
// the end of the chromosome.
type Region struct {
	Chrom string
	Start int
	End   int
}

// Opts configures a GC-bias estimation run.  An Opts value is immutable
// once handed to the engine; workers receive it by value.
type Opts struct {
	// MinLength and MaxLength bound the candidate fragment lengths, in
	// base pairs, inclusive.
	MinLength int
	MaxLength int
	// LengthStep is the spacing between sampled fragment lengths.  It only
	// applies in interpolation mode; otherwise every length is sampled.
	LengthStep int
	// Interpolate enables spline interpolation of the ratio surface across
	// fragment lengths that were not directly sampled.
	Interpolate bool
	// SampleSize is the total sample-point budget for the genome.
	SampleSize int64
	// EffectiveGenomeSize is the mappable portion of the genome.
	EffectiveGenomeSize int64
	// TotalMappedReads is the mapped-read count of the alignment input.
	TotalMappedReads int64
	// Parallelism is the worker-pool size; 0 means GOMAXPROCS.
	Parallelism int
	// MaxReadsFactor and MinReadsFactor scale the mean depth of the
	// Poisson model bounding per-position read counts.  The defaults are
	// empirical; see NewReadCountCaps.
	MaxReadsFactor float64
	MinReadsFactor float64
	// SurfaceSmooth is the number of kernel-smoothing passes applied to
	// the sampled grid before the interpolation surface is fitted.
	SurfaceSmooth int
	// Seed feeds the per-chunk random sources used by stochastic GC
	// rounding.  Runs with equal seeds produce identical output.
	Seed int64
	// Region, when non-nil, restricts tabulation to one genomic interval.
	Region *Region
}

// DefaultOpts sets the default values to Opts.
var DefaultOpts = Opts{
	MinLength:      30,
	MaxLength:      250,
	LengthStep:     5,
	SampleSize:     5e7,
	MaxReadsFactor: 4,
	MinReadsFactor: 0.25,
	Seed:           1,
}

// Validate checks o for nonsensical settings.
func (o Opts) Validate() error {
	switch {
	case o.MinLength <= 0:
		return errors.E("gcbias: min fragment length must be positive")
	case o.MaxLength < o.MinLength:
		return errors.E("gcbias: max fragment length below min")
	case o.LengthStep <= 0:
		return errors.E("gcbias: fragment length step must be positive")
	case o.SampleSize <= 0:
		return errors.E("gcbias: sample size must be positive")
	case o.EffectiveGenomeSize <= 0:
		return errors.E("gcbias: effective genome size must be positive")
	case o.TotalMappedReads <= 0:
		return errors.E("gcbias: total mapped reads must be positive")
	case o.MaxReadsFactor <= 0 || o.MinReadsFactor < 0:
		return errors.E("gcbias: invalid Poisson cap factors")
	}
	return nil
}

// FragmentLengths returns the ascending fragment lengths to tabulate:
// MinLength..MaxLength at LengthStep spacing in interpolation mode, or
// every integer length otherwise.
func (o Opts) FragmentLengths() []int {
	step := 1
	if o.Interpolate {
		step = o.LengthStep
	}
	var lengths []int
	for l := o.MinLength; l <= o.MaxLength; l += step {
		lengths = append(lengths, l)
	}
	return lengths
}

// ReadsPerBp returns the expected sequencing depth per base pair.
func (o Opts) ReadsPerBp() float64 {
	return float64(o.TotalMappedReads) / float64(o.EffectiveGenomeSize)
}

// Stride returns the sampling stride spreading the sample-point budget
// over a genome of the given size.
func (o Opts) Stride(genomeSize int64) int {
	stride := genomeSize / o.SampleSize
	if stride < 1 {
		stride = 1
	}
	return int(stride)
}
