// Package sortutil provides the sorting helpers shared by the diagnostics
// and output code.
package sortutil

import (
	"cmp"
	"slices"
)

// ByLocation stably sorts elements by site, then line, then column.
// Elements at the same location keep their relative order.
func ByLocation[S ~[]E, E any](s S, getSite func(E) string, getLine func(E) int, getCol func(E) int) {
	slices.SortStableFunc(s, func(a, b E) int {
		return cmp.Or(
			cmp.Compare(getSite(a), getSite(b)),
			cmp.Compare(getLine(a), getLine(b)),
			cmp.Compare(getCol(a), getCol(b)),
		)
	})
}

// ByName stably sorts elements by the name extracted from each.
func ByName[S ~[]E, E any](s S, getName func(E) string) {
	slices.SortStableFunc(s, func(a, b E) int {
		return cmp.Compare(getName(a), getName(b))
	})
}
