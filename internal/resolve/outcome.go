package resolve

import (
	"fmt"
	"strings"

	"github.com/NigeWarren/dotty/internal/scope"
	"github.com/NigeWarren/dotty/internal/types"
)

// Outcome is the terminal result of one resolution request.
// It is one of *Resolved, *Ambiguous, *NotFound or *DivergentSearch.
type Outcome interface {
	// outcome is a marker method to seal the interface.
	outcome()

	// Kind returns the variant tag.
	Kind() Kind

	// String returns a one-line summary.
	String() string
}

// Ensure all outcome variants implement Outcome.
var (
	_ Outcome = (*Resolved)(nil)
	_ Outcome = (*Ambiguous)(nil)
	_ Outcome = (*NotFound)(nil)
	_ Outcome = (*DivergentSearch)(nil)
)

// Kind tags an Outcome variant.
type Kind int

const (
	KindResolved Kind = iota
	KindAmbiguous
	KindNotFound
	KindDivergent
)

func (k Kind) String() string {
	switch k {
	case KindResolved:
		return "resolved"
	case KindAmbiguous:
		return "ambiguous"
	case KindNotFound:
		return "not-found"
	case KindDivergent:
		return "divergent"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Resolved carries the synthesized witness.
type Resolved struct {
	Required types.TypeRef
	Witness  *Witness

	// Ref is the provider at the root of the witness.
	Ref scope.ProviderRef

	// Deprecations lists old-style providers reached through ordinary
	// imports anywhere in the witness, when the mode reports them.
	Deprecations []Deprecation
}

func (*Resolved) outcome()     {}
func (*Resolved) Kind() Kind   { return KindResolved }
func (o *Resolved) String() string {
	return "resolved " + o.Witness.String()
}

// Ambiguous lists the equally ranked providers that all resolved.
type Ambiguous struct {
	Required   types.TypeRef
	Candidates []Candidate
}

func (*Ambiguous) outcome()   {}
func (*Ambiguous) Kind() Kind { return KindAmbiguous }
func (o *Ambiguous) String() string {
	names := make([]string, len(o.Candidates))
	for i, c := range o.Candidates {
		names[i] = c.DisplayName()
	}
	return "ambiguous " + strings.Join(names, ", ")
}

// NotFound reports that no candidate could provide the requirement.
type NotFound struct {
	Required types.TypeRef

	// Rejected lists the candidates considered and why each failed.
	Rejected []Rejection

	// Hints lists new-style providers of a compatible type that are only
	// reachable through a capability import.
	Hints []Candidate
}

func (*NotFound) outcome()         {}
func (*NotFound) Kind() Kind       { return KindNotFound }
func (o *NotFound) String() string { return "not-found " + o.Required.String() }

// DivergentSearch reports a recursive search that would not terminate.
type DivergentSearch struct {
	Required types.TypeRef

	// Cycle runs from the first in-progress request involved to the request
	// that repeated or outgrew it.
	Cycle []PathEntry
}

func (*DivergentSearch) outcome()   {}
func (*DivergentSearch) Kind() Kind { return KindDivergent }
func (o *DivergentSearch) String() string {
	parts := make([]string, len(o.Cycle))
	for i, e := range o.Cycle {
		parts[i] = e.Type.String()
	}
	return "divergent " + strings.Join(parts, " -> ")
}

// PathEntry is one in-progress request on the recursion path. Ref is the
// provider whose parameters are being synthesized for it, empty for the
// request that closed a cycle.
type PathEntry struct {
	Type types.TypeRef
	Site scope.SiteID
	Ref  scope.ProviderRef
}

func (e PathEntry) String() string {
	return fmt.Sprintf("%s@%s", e.Type, e.Site)
}

// Deprecation points at an old-style provider selected through an ordinary import.
type Deprecation struct {
	Ref   scope.ProviderRef
	Name  string
	Pos   scope.Position
	Frame string
}

// Witness is the synthesized expression: a provider applied to the
// witnesses of its parameters.
type Witness struct {
	Ref      scope.ProviderRef
	Name     string
	Type     types.TypeRef
	TypeArgs []types.TypeRef
	Args     []*Witness
}

// String renders the witness as an application, e.g. "listOrd[Int](intOrd)".
func (w *Witness) String() string {
	var sb strings.Builder
	w.write(&sb)
	return sb.String()
}

func (w *Witness) write(sb *strings.Builder) {
	if w.Name != "" {
		sb.WriteString(w.Name)
	} else {
		sb.WriteString(string(w.Ref))
	}
	if len(w.TypeArgs) > 0 {
		sb.WriteByte('[')
		for i, t := range w.TypeArgs {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(t.String())
		}
		sb.WriteByte(']')
	}
	if len(w.Args) > 0 {
		sb.WriteByte('(')
		for i, a := range w.Args {
			if i > 0 {
				sb.WriteString(", ")
			}
			a.write(sb)
		}
		sb.WriteByte(')')
	}
}
