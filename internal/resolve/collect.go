package resolve

import (
	"github.com/NigeWarren/dotty/internal/scope"
)

// Collect walks the chain innermost to outermost and returns every provider
// visible through its frame's channel, in traversal order.
//
// New-style providers behind an ordinary import are not visible; they are
// returned separately as hidden so diagnostics can point at the missing
// capability import. Non-provider bindings are never collected.
func Collect(chain *scope.Chain) (candidates, hidden []Candidate) {
	chain.Walk(func(fi int, f *scope.Frame) bool {
		for bi, b := range f.Bindings {
			if !b.Provider {
				continue
			}
			c := newCandidate(f, fi, bi, b)
			if visible(f.Origin, b.Style) {
				candidates = append(candidates, c)
			} else {
				hidden = append(hidden, c)
			}
		}
		return true
	})
	return candidates, hidden
}

// visible reports whether a provider of the given style is exposed by a
// frame of the given origin. The migration policy is applied later.
func visible(origin scope.Origin, style scope.Style) bool {
	switch origin {
	case scope.OrdinaryImport:
		return style == scope.OldStyle
	case scope.CapabilityImport, scope.Local, scope.Inherited, scope.CompanionMember:
		return true
	default:
		return false
	}
}

func newCandidate(f *scope.Frame, fi, bi int, b scope.Binding) Candidate {
	return Candidate{
		Ref:        b.Key(),
		Name:       b.Name,
		Type:       b.Type,
		TypeParams: b.TypeParams,
		Params:     b.Params,
		Channel:    f.Origin,
		Style:      b.Style,
		Pos:        b.Pos,
		Frame:      f.Label,
		Rank: Rank{
			Depth:   f.Depth,
			Channel: ChannelPriority(f.Origin),
			Frame:   fi,
			Index:   bi,
		},
	}
}
