package interval

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetOverlaps(t *testing.T) {
	s := NewSet()
	require.NoError(t, s.Add("chr1", 10, 20))
	require.NoError(t, s.Add("chr1", 15, 30))
	require.NoError(t, s.Add("chr1", 50, 60))
	require.NoError(t, s.Add("chr2", 0, 5))
	s.Freeze()

	assert.Equal(t, []Interval{{10, 20}, {15, 30}}, s.Overlaps("chr1", 0, 25))
	assert.Equal(t, []Interval{{50, 60}}, s.Overlaps("chr1", 59, 100))
	// Half-open: an interval ending at the query start does not overlap.
	assert.Nil(t, s.Overlaps("chr1", 30, 50))
	assert.Nil(t, s.Overlaps("chr1", 60, 70))
	// Missing chromosome is no intervals, not an error.
	assert.Nil(t, s.Overlaps("chrX", 0, 1000))
	// Empty or inverted query ranges match nothing.
	assert.Nil(t, s.Overlaps("chr1", 12, 12))
	assert.Nil(t, s.Overlaps("chr1", 12, 11))

	var nilSet *Set
	assert.Nil(t, nilSet.Overlaps("chr1", 0, 100))
	assert.Equal(t, 0, nilSet.Len())
	assert.Equal(t, 4, s.Len())
}

func TestSetAddErrors(t *testing.T) {
	s := NewSet()
	assert.Error(t, s.Add("chr1", -1, 5))
	assert.Error(t, s.Add("chr1", 10, 5))
	require.NoError(t, s.Add("chr1", 5, 10))
	s.Freeze()
	assert.Error(t, s.Add("chr1", 20, 30))
}

func TestNewSetFromBED(t *testing.T) {
	bed := `# a comment
track name=excluded
chr2L	4	8
chr2L	12	14

chr3R	100	200	some	extra	columns
`
	s, err := NewSetFromBED(strings.NewReader(bed))
	require.NoError(t, err)
	assert.Equal(t, []Interval{{4, 8}, {12, 14}}, s.Overlaps("chr2L", 0, 20))
	assert.Equal(t, []Interval{{100, 200}}, s.Overlaps("chr3R", 150, 160))
}

func TestNewSetFromBEDErrors(t *testing.T) {
	_, err := NewSetFromBED(strings.NewReader("chr1\t5\n"))
	assert.Error(t, err)
	_, err = NewSetFromBED(strings.NewReader("chr1\tfoo\t10\n"))
	assert.Error(t, err)
	_, err = NewSetFromBED(strings.NewReader("chr1\t10\t5\n"))
	assert.Error(t, err)
}

func TestFilterSet(t *testing.T) {
	ex, err := NewSetFromBED(strings.NewReader("chr2L\t4\t8\n"))
	require.NoError(t, err)
	f := FilterSet{Exclude: ex}
	assert.Equal(t, []Interval{{4, 8}}, f.ExcludeOverlaps("chr2L", 0, 20))
	// Nil extra set behaves as empty.
	assert.Nil(t, f.ExtraOverlaps("chr2L", 0, 20))
}
