// Package search implements exact searches over sorted integer sequences.
//
// All functions take an inclusive range [lo, hi] over a Sequence and agree with
// a linear scan on every input, including empty ranges, single elements and runs
// of repeated values.
package search
