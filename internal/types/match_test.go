package types

import (
	"testing"
)

func TestStructural_Match(t *testing.T) {
	tests := []struct {
		name      string
		provided  string
		params    []string
		required  string
		wantOK    bool
		wantSubst string
	}{
		{"identical", "Ord[Int]", nil, "Ord[Int]", true, "{}"},
		{"different arg", "Ord[Int]", nil, "Ord[String]", false, ""},
		{"different head", "Show[Int]", nil, "Ord[Int]", false, ""},
		{"binds var", "Ord[List[T]]", []string{"T"}, "Ord[List[Int]]", true, "{T=Int}"},
		{"var binds nested", "Ord[T]", []string{"T"}, "Ord[List[Int]]", true, "{T=List[Int]}"},
		{"repeated var consistent", "Conv[T, T]", []string{"T"}, "Conv[Int, Int]", true, "{T=Int}"},
		{"repeated var inconsistent", "Conv[T, T]", []string{"T"}, "Conv[Int, String]", false, ""},
		{"undeclared T is a name", "Ord[T]", nil, "Ord[Int]", false, ""},
		{"undeclared T matches itself", "Ord[T]", nil, "Ord[T]", true, "{}"},
		{"required any", "Ord[Int]", nil, "Any", true, "{}"},
		{"provided any arg", "Ord[Any]", nil, "Ord[Int]", true, "{}"},
		{"arity mismatch", "Map[Int]", nil, "Map[Int, Int]", false, ""},
	}

	m := Structural{}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provided := MustParse(tt.provided, tt.params...)
			required := MustParse(tt.required)
			s, ok := m.Match(provided, tt.params, required)
			if ok != tt.wantOK {
				t.Fatalf("Match(%s, %s) ok = %v, want %v", provided, required, ok, tt.wantOK)
			}
			if ok && s.String() != tt.wantSubst {
				t.Errorf("Match(%s, %s) subst = %s, want %s", provided, required, s, tt.wantSubst)
			}
		})
	}
}

func TestStructural_Supertypes(t *testing.T) {
	m := Structural{Supertypes: map[string][]string{
		"Monad":       {"Applicative"},
		"Applicative": {"Functor"},
	}}

	provided := MustParse("Monad[F]", "F")
	if _, ok := m.Match(provided, []string{"F"}, MustParse("Functor[List]")); !ok {
		t.Error("Monad[F] should satisfy Functor[List] through the supertype chain")
	}
	if _, ok := m.Match(MustParse("Functor[List]"), nil, MustParse("Monad[List]")); ok {
		t.Error("Functor[List] must not satisfy Monad[List]")
	}
}

func TestApply(t *testing.T) {
	typ := MustParse("Conv[A, List[B]]", "A", "B")
	got := Apply(typ, Subst{"A": MustParse("Int"), "B": Var("A")})
	// B is replaced by the rigid A, which is not substituted again.
	if want := "Conv[Int, List[A]]"; got.String() != want {
		t.Errorf("Apply = %s, want %s", got, want)
	}
	if Apply(typ, nil) != typ {
		t.Error("Apply with empty substitution should return the input")
	}
}

func TestMoreSpecific(t *testing.T) {
	m := Structural{}
	concrete := MustParse("Ord[List[Int]]")
	generic := MustParse("Ord[List[T]]", "T")
	wider := MustParse("Ord[T]", "T")

	if !MoreSpecific(m, concrete, nil, generic, []string{"T"}) {
		t.Error("Ord[List[Int]] should be more specific than Ord[List[T]]")
	}
	if !MoreSpecific(m, generic, []string{"T"}, wider, []string{"T"}) {
		t.Error("Ord[List[T]] should be more specific than Ord[T]")
	}
	if MoreSpecific(m, wider, []string{"T"}, generic, []string{"T"}) {
		t.Error("Ord[T] should not be more specific than Ord[List[T]]")
	}
	if MoreSpecific(m, concrete, nil, concrete, nil) {
		t.Error("a type is not strictly more specific than itself")
	}
}
