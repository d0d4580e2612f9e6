package scope

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/NigeWarren/dotty/internal/types"
)

func provider(name, typ string) Binding {
	return Binding{Name: name, Type: types.MustParse(typ), Provider: true}
}

func TestNewChain_Valid(t *testing.T) {
	c, err := NewChain("site",
		Frame{Origin: Local, Depth: 0, Bindings: []Binding{provider("a", "Ord[Int]")}},
		Frame{Origin: CapabilityImport, Depth: 0},
		Frame{Origin: Inherited, Depth: 1},
		Frame{Origin: OrdinaryImport, Depth: 3},
	)
	if err != nil {
		t.Fatalf("NewChain failed: %v", err)
	}
	if c.Site() != "site" || c.Len() != 4 {
		t.Errorf("Site/Len = %s/%d, want site/4", c.Site(), c.Len())
	}

	var origins []Origin
	c.Walk(func(_ int, f *Frame) bool {
		origins = append(origins, f.Origin)
		return true
	})
	want := []Origin{Local, CapabilityImport, Inherited, OrdinaryImport}
	if diff := cmp.Diff(want, origins); diff != "" {
		t.Errorf("Walk order mismatch (-want +got):\n%s", diff)
	}
}

func TestNewChain_Malformed(t *testing.T) {
	tests := []struct {
		name   string
		frames []Frame
		reason string
	}{
		{
			name:   "decreasing depth",
			frames: []Frame{{Origin: Local, Depth: 2}, {Origin: Local, Depth: 1}},
			reason: "depth 1 after depth 2",
		},
		{
			name:   "negative depth",
			frames: []Frame{{Origin: Local, Depth: -1}},
			reason: "negative depth",
		},
		{
			name:   "unknown origin",
			frames: []Frame{{Origin: Origin(42)}},
			reason: "unknown origin",
		},
		{
			name:   "untyped provider",
			frames: []Frame{{Origin: Local, Bindings: []Binding{{Name: "x", Provider: true}}}},
			reason: "has no type",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewChain("s", tt.frames...)
			if !errors.Is(err, ErrMalformedScope) {
				t.Fatalf("NewChain error = %v, want ErrMalformedScope", err)
			}
			var mse *MalformedScopeError
			if !errors.As(err, &mse) {
				t.Fatalf("error %T is not *MalformedScopeError", err)
			}
			if !strings.Contains(mse.Reason, tt.reason) {
				t.Errorf("Reason = %q, want it to contain %q", mse.Reason, tt.reason)
			}
		})
	}
}

func TestChain_IsImmutable(t *testing.T) {
	bindings := []Binding{provider("a", "Ord[Int]")}
	c, err := NewChain("s", Frame{Origin: Local, Bindings: bindings})
	if err != nil {
		t.Fatal(err)
	}

	bindings[0].Name = "mutated"
	frames := c.Frames()
	frames[0].Origin = OrdinaryImport

	got := c.Frames()[0]
	if got.Bindings[0].Name != "a" {
		t.Errorf("caller slice mutation leaked into chain: %q", got.Bindings[0].Name)
	}
	if got.Origin != Local {
		t.Errorf("Frames() copy mutation leaked into chain: %s", got.Origin)
	}
}

func TestChain_NilValidate(t *testing.T) {
	var c *Chain
	if err := c.Validate(); !errors.Is(err, ErrMalformedScope) {
		t.Errorf("nil chain Validate() = %v, want ErrMalformedScope", err)
	}
}

func TestParseOrigin(t *testing.T) {
	for _, o := range AllOrigins() {
		got, err := ParseOrigin(o.String())
		if err != nil {
			t.Errorf("ParseOrigin(%q) error: %v", o, err)
			continue
		}
		if got != o {
			t.Errorf("ParseOrigin(%q) = %s", o, got)
		}
	}
	for alias, want := range map[string]Origin{"ordinary-import": OrdinaryImport, "capability-import": CapabilityImport} {
		if got, err := ParseOrigin(alias); err != nil || got != want {
			t.Errorf("ParseOrigin(%q) = %s, %v; want %s", alias, got, err, want)
		}
	}
	_, err := ParseOrigin("global")
	if err == nil {
		t.Fatal("ParseOrigin(global) should fail")
	}
	if want := "valid: local, inherited, import, given-import, companion"; !strings.Contains(err.Error(), want) {
		t.Errorf("ParseOrigin(global) error = %q, want it to list %q", err, want)
	}
}

func TestParseStyle(t *testing.T) {
	tests := []struct {
		input   string
		want    Style
		wantErr bool
	}{
		{"", NewStyle, false},
		{"new", NewStyle, false},
		{"given", NewStyle, false},
		{"old", OldStyle, false},
		{"implicit", OldStyle, false},
		{"OLD", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseStyle(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseStyle(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseStyle(%q) = %s, want %s", tt.input, got, tt.want)
			}
		})
	}
}

func TestBinding_Key(t *testing.T) {
	tests := []struct {
		name string
		b    Binding
		want ProviderRef
	}{
		{"explicit ref", Binding{Ref: "pkg.ord", Name: "ord"}, "pkg.ord"},
		{"name", Binding{Name: "ord"}, "ord"},
		{"anonymous with pos", Binding{Pos: Position{File: "a.scala", Line: 3, Col: 1}}, "<anon@a.scala:3:1>"},
		{"anonymous", Binding{Type: types.MustParse("Ord[Int]")}, "<anon:Ord[Int]>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.b.Key(); got != tt.want {
				t.Errorf("Key() = %q, want %q", got, tt.want)
			}
		})
	}
}
