package resolve

import (
	"cmp"
	"fmt"

	"github.com/NigeWarren/dotty/internal/scope"
	"github.com/NigeWarren/dotty/internal/types"
)

// Candidate is a provider binding considered for one resolution request.
// Candidates are values; the filter derives new ones rather than editing them.
type Candidate struct {
	Ref        scope.ProviderRef
	Name       string
	Type       types.TypeRef
	TypeParams []string
	Params     []types.TypeRef
	Channel    scope.Origin
	Style      scope.Style
	Rank       Rank
	Pos        scope.Position
	Frame      string

	// Deprecated is set when the migration policy keeps the candidate but
	// reports its selection.
	Deprecated bool
}

// DisplayName returns the provider name, or its reference when anonymous.
func (c Candidate) DisplayName() string {
	if c.Name != "" {
		return c.Name
	}
	return string(c.Ref)
}

func (c Candidate) String() string {
	return fmt.Sprintf("%s: %s (%s, depth %d)", c.DisplayName(), c.Type, c.Channel, c.Rank.Depth)
}

// Rank orders candidates; lower wins. Depth dominates the channel priority,
// which dominates declaration order (frame, then binding index).
type Rank struct {
	Depth   int
	Channel int
	Frame   int
	Index   int
}

// Compare returns -1, 0 or +1 ordering r before, equal to, or after o.
func (r Rank) Compare(o Rank) int {
	return cmp.Or(
		cmp.Compare(r.Depth, o.Depth),
		cmp.Compare(r.Channel, o.Channel),
		cmp.Compare(r.Frame, o.Frame),
		cmp.Compare(r.Index, o.Index),
	)
}

// Ties reports whether r and o share depth and channel priority. Declaration
// order never separates tied candidates; ties are ambiguous.
func (r Rank) Ties(o Rank) bool {
	return r.Depth == o.Depth && r.Channel == o.Channel
}

// ChannelPriority orders channels at equal depth: lexical and inherited
// providers first, then companion members, capability imports, and ordinary
// imports last.
func ChannelPriority(o scope.Origin) int {
	switch o {
	case scope.Local, scope.Inherited:
		return 0
	case scope.CompanionMember:
		return 1
	case scope.CapabilityImport:
		return 2
	case scope.OrdinaryImport:
		return 3
	default:
		panic(fmt.Sprintf("resolve: unknown origin %d", int(o)))
	}
}

// RejectReason explains why a candidate did not take part in the result.
type RejectReason int

const (
	// RejectWrongType: the candidate's type is not compatible with the requirement.
	RejectWrongType RejectReason = iota
	// RejectMigration: an old-style provider reached by ordinary import under Strict.
	RejectMigration
	// RejectShadowed: an inner provider of the identical type hides it.
	RejectShadowed
	// RejectNestedNotFound: one of its parameters could not be resolved.
	RejectNestedNotFound
	// RejectNestedAmbiguous: one of its parameters was ambiguous.
	RejectNestedAmbiguous
	// RejectNestedDivergent: resolving a parameter diverged.
	RejectNestedDivergent
)

func (r RejectReason) String() string {
	switch r {
	case RejectWrongType:
		return "wrong-type"
	case RejectMigration:
		return "migration"
	case RejectShadowed:
		return "shadowed"
	case RejectNestedNotFound:
		return "nested-not-found"
	case RejectNestedAmbiguous:
		return "nested-ambiguous"
	case RejectNestedDivergent:
		return "nested-divergent"
	default:
		return fmt.Sprintf("reason(%d)", int(r))
	}
}

// Rejection records a candidate removed from consideration.
type Rejection struct {
	Candidate Candidate
	Reason    RejectReason

	// Detail names the shadowing provider or the failed parameter type.
	Detail string
}
