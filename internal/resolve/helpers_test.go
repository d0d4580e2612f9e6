package resolve

import (
	"testing"

	"github.com/NigeWarren/dotty/internal/migration"
	"github.com/NigeWarren/dotty/internal/scope"
	"github.com/NigeWarren/dotty/internal/types"
)

// prov describes a provider binding in test chains.
type prov struct {
	name    string
	typ     string
	tparams []string
	params  []string
	style   scope.Style
}

func (p prov) old() prov {
	p.style = scope.OldStyle
	return p
}

func (p prov) binding() scope.Binding {
	b := scope.Binding{
		Name:       p.name,
		Type:       types.MustParse(p.typ, p.tparams...),
		TypeParams: p.tparams,
		Provider:   true,
		Style:      p.style,
		Pos:        scope.Position{File: "Test.scala", Line: len(p.name) + 1, Col: 3},
	}
	for _, ps := range p.params {
		b.Params = append(b.Params, types.MustParse(ps, p.tparams...))
	}
	return b
}

func given(name, typ string, params ...string) prov {
	return prov{name: name, typ: typ, params: params}
}

func genericGiven(name string, tparams []string, typ string, params ...string) prov {
	return prov{name: name, typ: typ, tparams: tparams, params: params}
}

func frame(origin scope.Origin, depth int, provs ...prov) scope.Frame {
	f := scope.Frame{Origin: origin, Depth: depth, Label: origin.String()}
	for _, p := range provs {
		f.Bindings = append(f.Bindings, p.binding())
	}
	return f
}

func mustChain(t *testing.T, frames ...scope.Frame) *scope.Chain {
	t.Helper()
	c, err := scope.NewChain("Test.scala:10", frames...)
	if err != nil {
		t.Fatalf("NewChain: %v", err)
	}
	return c
}

func resolveIn(t *testing.T, chain *scope.Chain, typ string, mode migration.Mode) Outcome {
	t.Helper()
	out, err := New(Options{}).Resolve(Request{Type: types.MustParse(typ), Chain: chain, Mode: mode})
	if err != nil {
		t.Fatalf("Resolve(%s): %v", typ, err)
	}
	return out
}

func mustResolved(t *testing.T, out Outcome) *Resolved {
	t.Helper()
	r, ok := out.(*Resolved)
	if !ok {
		t.Fatalf("outcome = %s, want resolved", out)
	}
	return r
}

func refs(cands []Candidate) []scope.ProviderRef {
	out := make([]scope.ProviderRef, len(cands))
	for i, c := range cands {
		out[i] = c.Ref
	}
	return out
}

func reasons(rs []Rejection) map[scope.ProviderRef]RejectReason {
	out := make(map[scope.ProviderRef]RejectReason, len(rs))
	for _, r := range rs {
		out[r.Candidate.Ref] = r.Reason
	}
	return out
}
