package gcbias

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func validOpts() Opts {
	opts := DefaultOpts
	opts.EffectiveGenomeSize = 2000000
	opts.TotalMappedReads = 1000000
	return opts
}

func TestOptsValidate(t *testing.T) {
	assert.NoError(t, validOpts().Validate())

	mutate := func(f func(*Opts)) Opts {
		opts := validOpts()
		f(&opts)
		return opts
	}
	assert.Error(t, mutate(func(o *Opts) { o.MinLength = 0 }).Validate())
	assert.Error(t, mutate(func(o *Opts) { o.MaxLength = o.MinLength - 1 }).Validate())
	assert.Error(t, mutate(func(o *Opts) { o.LengthStep = 0 }).Validate())
	assert.Error(t, mutate(func(o *Opts) { o.SampleSize = 0 }).Validate())
	assert.Error(t, mutate(func(o *Opts) { o.EffectiveGenomeSize = 0 }).Validate())
	assert.Error(t, mutate(func(o *Opts) { o.TotalMappedReads = 0 }).Validate())
	assert.Error(t, mutate(func(o *Opts) { o.MaxReadsFactor = 0 }).Validate())
	assert.Error(t, mutate(func(o *Opts) { o.MinReadsFactor = -1 }).Validate())
}

func TestOptsFragmentLengths(t *testing.T) {
	opts := validOpts()
	opts.MinLength, opts.MaxLength, opts.LengthStep = 30, 45, 5

	// Direct mode samples every length regardless of the step.
	assert.Equal(t,
		[]int{30, 31, 32, 33, 34, 35, 36, 37, 38, 39, 40, 41, 42, 43, 44, 45},
		opts.FragmentLengths())

	opts.Interpolate = true
	assert.Equal(t, []int{30, 35, 40, 45}, opts.FragmentLengths())

	// The step need not divide the range evenly.
	opts.MaxLength = 47
	assert.Equal(t, []int{30, 35, 40, 45}, opts.FragmentLengths())
}

func TestOptsDerived(t *testing.T) {
	opts := validOpts()
	assert.Equal(t, 0.5, opts.ReadsPerBp())

	opts.SampleSize = 1000
	assert.Equal(t, 5, opts.Stride(5000))
	assert.Equal(t, 1, opts.Stride(500)) // budget exceeds genome
	assert.Equal(t, 1, opts.Stride(1999))
}
