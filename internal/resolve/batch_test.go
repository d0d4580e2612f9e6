package resolve

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/NigeWarren/dotty/internal/migration"
	"github.com/NigeWarren/dotty/internal/scope"
	"github.com/NigeWarren/dotty/internal/types"
)

func TestResolveAll(t *testing.T) {
	chain := mustChain(t,
		frame(scope.Local, 0, genericGiven("listOrd", []string{"T"}, "Ord[List[T]]", "Ord[T]")),
		frame(scope.CapabilityImport, 1, given("intOrd", "Ord[Int]")),
	)

	var reqs []Request
	var want []string
	for i := 0; i < 40; i++ {
		typ := "Ord[Int]"
		for j := 0; j < i%4; j++ {
			typ = fmt.Sprintf("Ord[List[%s]]", typ[4:len(typ)-1])
		}
		reqs = append(reqs, Request{Type: types.MustParse(typ), Chain: chain, Mode: migration.Strict})
		want = append(want, typ)
	}
	reqs = append(reqs, Request{Type: types.MustParse("Ord[Int]")})

	results := ResolveAll(context.Background(), New(Options{}), reqs, 3)
	if len(results) != len(reqs) {
		t.Fatalf("got %d results, want %d", len(results), len(reqs))
	}
	for i, w := range want {
		res := results[i]
		if res.Err != nil {
			t.Fatalf("result %d: %v", i, res.Err)
		}
		r, ok := res.Outcome.(*Resolved)
		if !ok {
			t.Fatalf("result %d = %s, want resolved", i, res.Outcome)
		}
		if got := r.Witness.Type.String(); got != w {
			t.Errorf("result %d witness type = %s, want %s", i, got, w)
		}
	}

	last := results[len(results)-1]
	if !errors.Is(last.Err, scope.ErrMalformedScope) {
		t.Errorf("broken request err = %v, want ErrMalformedScope", last.Err)
	}
}

func TestResolveAll_Cancelled(t *testing.T) {
	chain := mustChain(t, frame(scope.Local, 0, given("intOrd", "Ord[Int]")))
	reqs := []Request{
		{Type: types.MustParse("Ord[Int]"), Chain: chain},
		{Type: types.MustParse("Ord[Int]"), Chain: chain},
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for i, res := range ResolveAll(ctx, New(Options{}), reqs, 0) {
		if !errors.Is(res.Err, context.Canceled) {
			t.Errorf("result %d err = %v, want context.Canceled", i, res.Err)
		}
		if res.Outcome != nil {
			t.Errorf("result %d resolved after cancellation", i)
		}
	}
}
