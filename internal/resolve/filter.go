package resolve

import (
	"slices"
	"strconv"

	"github.com/NigeWarren/dotty/internal/migration"
	"github.com/NigeWarren/dotty/internal/scope"
	"github.com/NigeWarren/dotty/internal/types"
)

// Filter applies the migration policy and shadowing to collected candidates
// and returns the survivors sorted by rank, together with the rejections.
//
// The migration policy only concerns old-style providers reached through an
// ordinary import. Shadowing removes a candidate when a strictly shallower
// candidate declares an identical type; shadowed candidates are unreachable,
// so they can neither win nor make a result ambiguous.
func Filter(candidates []Candidate, mode migration.Mode) (kept []Candidate, rejected []Rejection) {
	visibleCands := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		if c.Style != scope.OldStyle || c.Channel != scope.OrdinaryImport {
			visibleCands = append(visibleCands, c)
			continue
		}
		if !mode.KeepsOldStyleImports() {
			rejected = append(rejected, Rejection{Candidate: c, Reason: RejectMigration, Detail: string(mode)})
			continue
		}
		c.Deprecated = mode.ReportsDeprecation()
		visibleCands = append(visibleCands, c)
	}

	sortByRank(visibleCands)

	kept = make([]Candidate, 0, len(visibleCands))
	for _, c := range visibleCands {
		if by, ok := shadowedBy(c, kept); ok {
			rejected = append(rejected, Rejection{Candidate: c, Reason: RejectShadowed, Detail: by.DisplayName()})
			continue
		}
		kept = append(kept, c)
	}

	slices.SortStableFunc(rejected, func(a, b Rejection) int {
		return a.Candidate.Rank.Compare(b.Candidate.Rank)
	})
	return kept, rejected
}

// shadowedBy finds a kept candidate at a smaller depth with the same declared
// type. kept is in rank order, so every shallower candidate has been seen.
func shadowedBy(c Candidate, kept []Candidate) (Candidate, bool) {
	for _, k := range kept {
		if k.Rank.Depth >= c.Rank.Depth {
			break
		}
		if sameDeclaredType(k, c) {
			return k, true
		}
	}
	return Candidate{}, false
}

// sameDeclaredType compares declared types up to renaming of type parameters.
func sameDeclaredType(a, b Candidate) bool {
	if len(a.TypeParams) == 0 && len(b.TypeParams) == 0 {
		return a.Type.Equal(b.Type)
	}
	return canonical(a).Equal(canonical(b))
}

// canonical renames a candidate's type parameters by first occurrence.
func canonical(c Candidate) types.TypeRef {
	s := make(types.Subst)
	n := 0
	for _, v := range types.FreeVars(c.Type) {
		if slices.Contains(c.TypeParams, v) {
			s[v] = types.Var("$" + strconv.Itoa(n))
			n++
		}
	}
	return types.Apply(c.Type, s)
}

func sortByRank(cands []Candidate) {
	slices.SortStableFunc(cands, func(a, b Candidate) int {
		return a.Rank.Compare(b.Rank)
	})
}
