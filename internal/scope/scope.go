// Package scope models the lookup frames visible at a capability resolution site.
//
// A Chain is built by the host type checker for one site and handed to the
// resolver as a read-only view. Frames are ordered innermost to outermost.
package scope

import (
	"fmt"
	"strings"

	"github.com/NigeWarren/dotty/internal/types"
)

// SiteID identifies a resolution site (a program point) within a compilation run.
type SiteID string

// ProviderRef is an opaque reference to a declaration owned by the host.
// The resolver only copies and compares it.
type ProviderRef string

// Position is a declaration site used for diagnostics.
type Position struct {
	File string
	Line int
	Col  int
}

// IsValid reports whether the position carries a file.
func (p Position) IsValid() bool { return p.File != "" }

func (p Position) String() string {
	if !p.IsValid() {
		return "-"
	}
	return fmt.Sprintf("%s:%d:%d", p.File, p.Line, p.Col)
}

// Origin is the visibility channel that introduced a frame.
type Origin int

const (
	// Local bindings of an enclosing block, method, or template body.
	Local Origin = iota
	// Inherited members of an enclosing class.
	Inherited
	// OrdinaryImport exposes everything except new-style providers.
	OrdinaryImport
	// CapabilityImport exposes providers of both styles and nothing else.
	CapabilityImport
	// CompanionMember exposes members of companion objects of the required type.
	CompanionMember
)

// AllOrigins returns every origin in declaration order.
func AllOrigins() []Origin {
	return []Origin{Local, Inherited, OrdinaryImport, CapabilityImport, CompanionMember}
}

func (o Origin) String() string {
	switch o {
	case Local:
		return "local"
	case Inherited:
		return "inherited"
	case OrdinaryImport:
		return "import"
	case CapabilityImport:
		return "given-import"
	case CompanionMember:
		return "companion"
	default:
		return fmt.Sprintf("origin(%d)", int(o))
	}
}

// Valid reports whether o is one of the defined origins.
func (o Origin) Valid() bool {
	return o >= Local && o <= CompanionMember
}

// ParseOrigin parses the String form of an origin. A few aliases are accepted.
func ParseOrigin(s string) (Origin, error) {
	switch s {
	case "ordinary-import":
		return OrdinaryImport, nil
	case "capability-import":
		return CapabilityImport, nil
	}
	names := make([]string, 0, len(AllOrigins()))
	for _, o := range AllOrigins() {
		if o.String() == s {
			return o, nil
		}
		names = append(names, o.String())
	}
	return 0, fmt.Errorf("unknown origin: %q (valid: %s)", s, strings.Join(names, ", "))
}

// Style is the declaration form of a capability provider.
type Style int

const (
	// NewStyle providers are only exposed by capability imports.
	NewStyle Style = iota
	// OldStyle providers are also exposed by ordinary imports,
	// subject to the migration policy.
	OldStyle
)

func (s Style) String() string {
	switch s {
	case NewStyle:
		return "new"
	case OldStyle:
		return "old"
	default:
		return fmt.Sprintf("style(%d)", int(s))
	}
}

// ParseStyle parses "new"/"given" or "old"/"implicit". Empty means NewStyle.
func ParseStyle(s string) (Style, error) {
	switch s {
	case "", "new", "given":
		return NewStyle, nil
	case "old", "implicit":
		return OldStyle, nil
	default:
		return 0, fmt.Errorf("unknown provider style: %q (valid: new, old)", s)
	}
}

// Binding is one declaration in a frame.
type Binding struct {
	// Name is empty for anonymous providers.
	Name string

	// Ref identifies the declaration. When empty, the name (or a
	// position-derived key) is used.
	Ref ProviderRef

	// Type is the declared type; for providers, the capability provided.
	Type types.TypeRef

	// TypeParams lists the type variables Type and Params are generic over.
	TypeParams []string

	// Params are capabilities the provider itself requires.
	// Each is resolved by a nested request.
	Params []types.TypeRef

	// Provider marks capability providers. Other bindings are never candidates.
	Provider bool

	// Style is the provider's declaration form.
	Style Style

	// Pos is the declaration site.
	Pos Position
}

// Key returns the binding's provider reference, deriving one if Ref is unset.
func (b Binding) Key() ProviderRef {
	switch {
	case b.Ref != "":
		return b.Ref
	case b.Name != "":
		return ProviderRef(b.Name)
	case b.Pos.IsValid():
		return ProviderRef("<anon@" + b.Pos.String() + ">")
	default:
		return ProviderRef("<anon:" + fmt.Sprint(b.Type) + ">")
	}
}

// Frame is one lexical or import-introduced layer.
type Frame struct {
	Origin   Origin
	Depth    int
	Label    string
	Bindings []Binding
}
