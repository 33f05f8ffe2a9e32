// Package gcbias estimates sequencing GC bias.
//
// For every candidate fragment length, the genome is sampled at a fixed
// stride and two GC-percentage histograms are tabulated: the expected
// histogram counts sampled genome positions per GC bin, and the observed
// histogram counts the reads of that fragment length actually starting
// at those positions.  The ratio of the two, scaled per fragment length,
// is the bias-correction table consumed by a downstream read-reweighting
// stage.
//
// Tabulation runs as a map-reduce: the genome is partitioned into chunks
// sized inversely to expected coverage, chunks are processed by a fixed
// pool of workers holding no shared mutable state, and the per-chunk
// histograms are merged by elementwise addition, so the result does not
// depend on worker count or completion order.
package gcbias
