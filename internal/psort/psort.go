// Package psort provides the bounded parallel sorting used when an index is frozen.
//
// Results never depend on the number of workers: Permutation breaks ties by
// original position, so the output order is fully determined by the input.
package psort

import (
	"cmp"
	"slices"

	"golang.org/x/sync/errgroup"
)

// minChunk is the smallest range worth handing to its own worker.
const minChunk = 4096

// ForEachChunk splits [0, n) into at most threads contiguous chunks and calls fn
// on each with up to threads concurrent workers. It returns the first error.
func ForEachChunk(n, threads int, fn func(lo, hi int) error) error {
	if n <= 0 {
		return nil
	}
	parts := chunks(n, threads, 1)
	if parts == 1 {
		return fn(0, n)
	}
	var g errgroup.Group
	g.SetLimit(threads)
	for p := 0; p < parts; p++ {
		lo, hi := bounds(n, parts, p)
		g.Go(func() error { return fn(lo, hi) })
	}
	return g.Wait()
}

// Permutation returns the indices [0, n) ordered by compare, with ties broken
// by index. Up to threads workers sort chunks and then merge them pairwise.
func Permutation(n, threads int, compare func(a, b int) int) []int {
	total := func(a, b int) int {
		if c := compare(a, b); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	}

	perm := make([]int, n)
	for i := range perm {
		perm[i] = i
	}
	parts := chunks(n, threads, minChunk)
	if parts <= 1 {
		slices.SortFunc(perm, total)
		return perm
	}

	runs := make([][2]int, parts)
	var g errgroup.Group
	g.SetLimit(threads)
	for p := range runs {
		lo, hi := bounds(n, parts, p)
		runs[p] = [2]int{lo, hi}
		g.Go(func() error {
			slices.SortFunc(perm[lo:hi], total)
			return nil
		})
	}
	_ = g.Wait()

	src, dst := perm, make([]int, n)
	for len(runs) > 1 {
		next := make([][2]int, 0, (len(runs)+1)/2)
		var mg errgroup.Group
		mg.SetLimit(threads)
		for i := 0; i < len(runs); i += 2 {
			if i+1 == len(runs) {
				r := runs[i]
				copy(dst[r[0]:r[1]], src[r[0]:r[1]])
				next = append(next, r)
				continue
			}
			a, b := runs[i], runs[i+1]
			mg.Go(func() error {
				merge(dst[a[0]:b[1]], src[a[0]:a[1]], src[b[0]:b[1]], total)
				return nil
			})
			next = append(next, [2]int{a[0], b[1]})
		}
		_ = mg.Wait()
		src, dst = dst, src
		runs = next
	}
	return src
}

func merge(dst, a, b []int, compare func(x, y int) int) {
	i, j, k := 0, 0, 0
	for i < len(a) && j < len(b) {
		if compare(a[i], b[j]) <= 0 {
			dst[k] = a[i]
			i++
		} else {
			dst[k] = b[j]
			j++
		}
		k++
	}
	k += copy(dst[k:], a[i:])
	copy(dst[k:], b[j:])
}

func chunks(n, threads, minSize int) int {
	parts := max(threads, 1)
	if limit := (n + minSize - 1) / minSize; parts > limit {
		parts = limit
	}
	return max(parts, 1)
}

func bounds(n, parts, p int) (int, int) {
	return n * p / parts, n * (p + 1) / parts
}
