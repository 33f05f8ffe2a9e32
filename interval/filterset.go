// Package interval provides genomic region sets used to steer genome
// sampling: an exclude set removes sample positions falling inside its
// regions, and an extra-sampling set marks regions that get additional
// stride-aligned sample positions.  Regions are loaded from BED files
// (plain or gzipped) and queried per chromosome with overlap lookups
// backed by interval trees.
package interval

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"sort"
	"strconv"

	store "github.com/biogo/store/interval"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/fileio"
	"github.com/grailbio/base/vcontext"
	"github.com/klauspost/compress/gzip"
)

// Interval is a 0-based half-open genomic interval [Start, End).
type Interval struct {
	Start int
	End   int
}

// node adapts Interval to the biogo interval-tree element interface.
type node struct {
	iv Interval
	id uintptr
}

func (n node) Overlap(b store.IntRange) bool {
	return n.iv.End > b.Start && n.iv.Start < b.End
}

func (n node) ID() uintptr { return n.id }

func (n node) Range() store.IntRange {
	return store.IntRange{Start: n.iv.Start, End: n.iv.End}
}

// Set is a collection of intervals grouped by chromosome, supporting
// overlap queries.  A Set is safe for concurrent readers once Freeze has
// been called; Add and Freeze are not thread safe.
type Set struct {
	trees  map[string]*store.IntTree
	nextID uintptr
	frozen bool
}

// NewSet returns an empty Set.
func NewSet() *Set {
	return &Set{trees: map[string]*store.IntTree{}}
}

// Add inserts [start, end) for the given chromosome.  Intervals may
// overlap each other; they are reported as given, not merged.
func (s *Set) Add(chrom string, start, end int) error {
	if s.frozen {
		return fmt.Errorf("interval: Add after Freeze")
	}
	if start < 0 || end < start {
		return fmt.Errorf("interval: invalid interval %s:[%d,%d)", chrom, start, end)
	}
	t := s.trees[chrom]
	if t == nil {
		t = &store.IntTree{}
		s.trees[chrom] = t
	}
	s.nextID++
	return t.Insert(node{iv: Interval{Start: start, End: end}, id: s.nextID}, true)
}

// Freeze finishes construction.  It must be called once, after the last
// Add and before the first Overlaps call.
func (s *Set) Freeze() {
	for _, t := range s.trees {
		t.AdjustRanges()
	}
	s.frozen = true
}

// Overlaps returns the intervals overlapping [start, end) on chrom,
// sorted by ascending start.  A chromosome with no registered intervals
// yields nil; it is not an error.
func (s *Set) Overlaps(chrom string, start, end int) []Interval {
	if s == nil || end <= start {
		return nil
	}
	t := s.trees[chrom]
	if t == nil {
		return nil
	}
	hits := t.Get(node{iv: Interval{Start: start, End: end}})
	if len(hits) == 0 {
		return nil
	}
	ivs := make([]Interval, len(hits))
	for i, h := range hits {
		r := h.Range()
		ivs[i] = Interval{Start: r.Start, End: r.End}
	}
	sort.Slice(ivs, func(i, j int) bool {
		if ivs[i].Start != ivs[j].Start {
			return ivs[i].Start < ivs[j].Start
		}
		return ivs[i].End < ivs[j].End
	})
	return ivs
}

// Len returns the total number of intervals in the set.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	n := 0
	for _, t := range s.trees {
		n += t.Len()
	}
	return n
}

// FilterSet bundles the two region sets consulted during position
// sampling.  Either field may be nil, meaning "no such regions".
type FilterSet struct {
	Exclude *Set
	Extra   *Set
}

// ExcludeOverlaps returns exclude regions overlapping [start, end).
func (f FilterSet) ExcludeOverlaps(chrom string, start, end int) []Interval {
	return f.Exclude.Overlaps(chrom, start, end)
}

// ExtraOverlaps returns extra-sampling regions overlapping [start, end).
func (f FilterSet) ExtraOverlaps(chrom string, start, end int) []Interval {
	return f.Extra.Overlaps(chrom, start, end)
}

// NewSetFromBED reads BED data and returns the resulting Set.  Only the
// first three columns are consumed; browser/track/comment lines and
// blank lines are skipped.
func NewSetFromBED(r io.Reader) (*Set, error) {
	s := NewSet()
	scanner := bufio.NewScanner(r)
	lineIdx := 0
	for scanner.Scan() {
		lineIdx++
		line := scanner.Bytes()
		if len(line) == 0 || line[0] == '#' {
			continue
		}
		fields := bytes.Fields(line)
		if len(fields) == 0 {
			continue
		}
		switch string(fields[0]) {
		case "browser", "track":
			continue
		}
		if len(fields) < 3 {
			return nil, fmt.Errorf("interval: BED line %d has %d columns, want >= 3", lineIdx, len(fields))
		}
		start, err := strconv.Atoi(string(fields[1]))
		if err != nil {
			return nil, fmt.Errorf("interval: BED line %d: bad start: %v", lineIdx, err)
		}
		end, err := strconv.Atoi(string(fields[2]))
		if err != nil {
			return nil, fmt.Errorf("interval: BED line %d: bad end: %v", lineIdx, err)
		}
		if err := s.Add(string(fields[0]), start, end); err != nil {
			return nil, fmt.Errorf("interval: BED line %d: %v", lineIdx, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	s.Freeze()
	return s, nil
}

// NewSetFromPath is a wrapper for NewSetFromBED that takes a path
// instead of an io.Reader.  Gzipped BEDs are detected by extension.
func NewSetFromPath(path string) (s *Set, err error) {
	ctx := vcontext.Background()
	var in file.File
	if in, err = file.Open(ctx, path); err != nil {
		return nil, err
	}
	defer func() {
		if cerr := in.Close(ctx); cerr != nil && err == nil {
			err = cerr
		}
	}()
	r := io.Reader(in.Reader(ctx))
	if fileio.DetermineType(path) == fileio.Gzip {
		if r, err = gzip.NewReader(r); err != nil {
			return nil, err
		}
	}
	return NewSetFromBED(r)
}
