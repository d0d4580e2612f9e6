package types

import (
	"fmt"
	"slices"
	"strings"
)

// Subst maps type variable names to the types they were bound to.
type Subst map[string]TypeRef

// String renders the substitution in name order, e.g. "{A=Int, T=List[Int]}".
func (s Subst) String() string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%s", k, s[k])
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// Apply replaces the type variables of t bound in s.
// Substitution is applied once; bound types are not rewritten again.
func Apply(t TypeRef, s Subst) TypeRef {
	if len(s) == 0 {
		return t
	}
	switch typ := t.(type) {
	case *TypeVar:
		if bound, ok := s[typ.Name]; ok {
			return bound
		}
		return typ
	case *NamedType:
		if len(typ.Args) == 0 {
			return typ
		}
		args := make([]TypeRef, len(typ.Args))
		for i, arg := range typ.Args {
			args[i] = Apply(arg, s)
		}
		return &NamedType{Name: typ.Name, Args: args}
	default:
		return t
	}
}

// Matcher is the type compatibility oracle consulted by the resolver.
//
// Match reports whether a provider declaring type provided (generic over
// params) can satisfy a requirement of type required, and if so returns the
// bindings for params. Type variables not listed in params are rigid.
type Matcher interface {
	Match(provided TypeRef, params []string, required TypeRef) (Subst, bool)
}

// Structural is the default Matcher. Type arguments are invariant; Any is
// compatible in both directions. Supertypes optionally declares nominal
// parents for type constructors of equal arity, e.g. {"Monad": {"Functor"}}
// lets a Monad[F] provider satisfy a Functor[F] requirement.
type Structural struct {
	Supertypes map[string][]string
}

var _ Matcher = Structural{}

// Match implements Matcher.
func (m Structural) Match(provided TypeRef, params []string, required TypeRef) (Subst, bool) {
	s := make(Subst)
	if !m.unify(provided, required, params, s) {
		return nil, false
	}
	return s, true
}

func (m Structural) unify(p, r TypeRef, params []string, s Subst) bool {
	if IsAny(p) || IsAny(r) {
		return true
	}
	switch pt := p.(type) {
	case *TypeVar:
		if !slices.Contains(params, pt.Name) {
			return pt.Equal(r)
		}
		if bound, ok := s[pt.Name]; ok {
			return bound.Equal(r)
		}
		s[pt.Name] = r
		return true
	case *NamedType:
		rt, ok := r.(*NamedType)
		if !ok || len(pt.Args) != len(rt.Args) {
			return false
		}
		if pt.Name != rt.Name && !m.isSubtype(pt.Name, rt.Name) {
			return false
		}
		for i, arg := range pt.Args {
			if !m.unify(arg, rt.Args[i], params, s) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// isSubtype walks the supertype table breadth-first.
func (m Structural) isSubtype(sub, super string) bool {
	if len(m.Supertypes) == 0 {
		return false
	}
	seen := map[string]bool{sub: true}
	queue := []string{sub}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, parent := range m.Supertypes[cur] {
			if parent == super {
				return true
			}
			if !seen[parent] {
				seen[parent] = true
				queue = append(queue, parent)
			}
		}
	}
	return false
}

// MoreSpecific reports whether a (generic over aParams) is strictly more
// specific than b (generic over bParams): b can be instantiated to a, but a
// cannot be instantiated to b.
func MoreSpecific(m Matcher, a TypeRef, aParams []string, b TypeRef, bParams []string) bool {
	_, bCoversA := m.Match(b, bParams, a)
	if !bCoversA {
		return false
	}
	_, aCoversB := m.Match(a, aParams, b)
	return !aCoversB
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
