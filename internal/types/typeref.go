// Package types provides the capability type representation used during
// contextual resolution.
//
// A capability type is a type constructor applied to arguments, such as
// "Ord[Int]" or "Show[List[T]]". Provider declarations may be generic over
// type variables; those variables are bound when a provider is matched
// against a required type.
package types

import (
	"fmt"
	"strings"
)

// TypeRef represents a capability type.
// Types are immutable and can be safely shared.
type TypeRef interface {
	// typeRef is a marker method to seal the interface.
	typeRef()

	// String returns the display representation of the type.
	String() string

	// Equal returns true if the types are structurally equal.
	// Type variables compare by name.
	Equal(other TypeRef) bool
}

// Ensure all type variants implement TypeRef.
var (
	_ TypeRef = (*NamedType)(nil)
	_ TypeRef = (*TypeVar)(nil)
	_ TypeRef = (*AnyType)(nil)
)

// NamedType represents a simple or applied type like "Int" or "Ord[List[Int]]".
type NamedType struct {
	Name string    // Type constructor: "Int", "Ord", "List", etc.
	Args []TypeRef // Type arguments: Ord[Int] -> Args: [Int]
}

func (*NamedType) typeRef() {}

func (t *NamedType) String() string {
	if len(t.Args) == 0 {
		return t.Name
	}
	args := make([]string, len(t.Args))
	for i, arg := range t.Args {
		args[i] = arg.String()
	}
	return fmt.Sprintf("%s[%s]", t.Name, strings.Join(args, ", "))
}

func (t *NamedType) Equal(other TypeRef) bool {
	o, ok := other.(*NamedType)
	if !ok {
		return false
	}
	if t.Name != o.Name || len(t.Args) != len(o.Args) {
		return false
	}
	for i, arg := range t.Args {
		if !arg.Equal(o.Args[i]) {
			return false
		}
	}
	return true
}

// TypeVar is a type parameter of a generic provider, e.g. the T in
// "given listOrd[T](using Ord[T]): Ord[List[T]]".
type TypeVar struct {
	Name string
}

func (*TypeVar) typeRef()         {}
func (t *TypeVar) String() string { return t.Name }
func (t *TypeVar) Equal(other TypeRef) bool {
	o, ok := other.(*TypeVar)
	return ok && o.Name == t.Name
}

// AnyType is the top type. Every type is compatible with a required Any,
// and a provider of Any is compatible with every requirement.
type AnyType struct{}

func (*AnyType) typeRef()       {}
func (*AnyType) String() string { return "Any" }
func (*AnyType) Equal(other TypeRef) bool {
	_, ok := other.(*AnyType)
	return ok
}

// ----------------------------------------------------------------------------
// Constructors
// ----------------------------------------------------------------------------

// Named creates a type constructor applied to args.
func Named(name string, args ...TypeRef) TypeRef {
	return &NamedType{Name: name, Args: args}
}

// Var creates a type variable.
func Var(name string) TypeRef { return &TypeVar{Name: name} }

// Any returns the top type.
func Any() TypeRef { return &AnyType{} }

// ----------------------------------------------------------------------------
// Predicates and utilities
// ----------------------------------------------------------------------------

// IsAny returns true if the type is Any.
func IsAny(t TypeRef) bool {
	_, ok := t.(*AnyType)
	return ok
}

// FreeVars returns the type variables of t in first-occurrence order.
func FreeVars(t TypeRef) []string {
	var out []string
	var walk func(TypeRef)
	walk = func(t TypeRef) {
		switch typ := t.(type) {
		case *TypeVar:
			for _, name := range out {
				if name == typ.Name {
					return
				}
			}
			out = append(out, typ.Name)
		case *NamedType:
			for _, arg := range typ.Args {
				walk(arg)
			}
		}
	}
	walk(t)
	return out
}

// Size returns the number of nodes in t. Used to detect requirements
// that grow without bound during recursive synthesis.
func Size(t TypeRef) int {
	n, ok := t.(*NamedType)
	if !ok {
		return 1
	}
	size := 1
	for _, arg := range n.Args {
		size += Size(arg)
	}
	return size
}

// Constructors returns the sorted, de-duplicated set of type constructor
// names appearing in t (its covering set).
func Constructors(t TypeRef) []string {
	seen := make(map[string]bool)
	var walk func(TypeRef)
	walk = func(t TypeRef) {
		if n, ok := t.(*NamedType); ok {
			seen[n.Name] = true
			for _, arg := range n.Args {
				walk(arg)
			}
		}
	}
	walk(t)
	return sortedKeys(seen)
}

// Head returns the outermost constructor name of t, or "" for variables and Any.
func Head(t TypeRef) string {
	if n, ok := t.(*NamedType); ok {
		return n.Name
	}
	return ""
}
