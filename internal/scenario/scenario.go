// Package scenario loads resolution scenarios: scope chains at one or more
// resolution sites, the capability requests made there, and optionally the
// expected outcome of each request.
//
// Scenarios stand in for the host type checker. They can be written in
// TOML, YAML or Starlark; Load picks the format from the file extension.
package scenario

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/NigeWarren/dotty/internal/migration"
	"github.com/NigeWarren/dotty/internal/scope"
	"github.com/NigeWarren/dotty/internal/types"
)

// ErrUnsupportedFormat is returned by Load for unknown file extensions.
var ErrUnsupportedFormat = errors.New("unsupported scenario format")

// Scenario is the decoded form of a scenario file.
type Scenario struct {
	// Path is the file the scenario was loaded from.
	Path string `toml:"-" yaml:"-"`

	Name string `toml:"name" yaml:"name"`

	// Source and Mode select the migration mode for every request that
	// does not set its own. Mode wins over Source. With neither, requests
	// use the caller's default.
	Source string `toml:"source" yaml:"source"`
	Mode   string `toml:"mode" yaml:"mode"`

	Sites []SiteSpec `toml:"site" yaml:"sites"`
}

// SiteSpec describes one resolution site.
type SiteSpec struct {
	ID       string        `toml:"id" yaml:"id"`
	Frames   []FrameSpec   `toml:"frame" yaml:"frames"`
	Requests []RequestSpec `toml:"request" yaml:"requests"`
}

// FrameSpec describes one scope frame, innermost first.
type FrameSpec struct {
	Origin string `toml:"origin" yaml:"origin"`
	Depth  int    `toml:"depth" yaml:"depth"`
	Label  string `toml:"label" yaml:"label"`

	// Givens are capability providers; Values are ordinary bindings.
	Givens []BindingSpec `toml:"given" yaml:"givens"`
	Values []BindingSpec `toml:"value" yaml:"values"`
}

// BindingSpec describes one declaration.
type BindingSpec struct {
	Name       string   `toml:"name" yaml:"name"`
	Ref        string   `toml:"ref" yaml:"ref"`
	Type       string   `toml:"type" yaml:"type"`
	TypeParams []string `toml:"type_params" yaml:"type_params"`
	Using      []string `toml:"using" yaml:"using"`
	Style      string   `toml:"style" yaml:"style"`
	Line       int      `toml:"line" yaml:"line"`
	Col        int      `toml:"col" yaml:"col"`
}

// RequestSpec describes one capability request at a site.
type RequestSpec struct {
	Type   string `toml:"type" yaml:"type"`
	Mode   string `toml:"mode" yaml:"mode"`
	Expect string `toml:"expect" yaml:"expect"`
}

// Site is a built resolution site.
type Site struct {
	ID       scope.SiteID
	Chain    *scope.Chain
	Requests []Request
}

// Request is a built capability request.
type Request struct {
	Type types.TypeRef

	// Mode is empty when neither the request nor the scenario chose one.
	Mode migration.Mode

	// Expect is the expected outcome in expectation syntax, or empty.
	Expect string
}

// BuildError reports a scenario that cannot be turned into scope chains.
type BuildError struct {
	File string
	Site string
	Err  error
}

func (e *BuildError) Error() string {
	switch {
	case e.Site != "":
		return fmt.Sprintf("%s: site %s: %v", e.File, e.Site, e.Err)
	default:
		return fmt.Sprintf("%s: %v", e.File, e.Err)
	}
}

func (e *BuildError) Unwrap() error { return e.Err }

// Load reads a scenario file, choosing the decoder from its extension.
func Load(path string) (*Scenario, error) {
	var (
		s   *Scenario
		err error
	)
	switch ext := filepath.Ext(path); ext {
	case ".toml":
		s, err = LoadTOML(path)
	case ".yaml", ".yml":
		s, err = LoadYAML(path)
	case ".sky", ".star":
		s, err = LoadStarlark(path)
	default:
		return nil, fmt.Errorf("%s: %w %q (expected .toml, .yaml, .yml, .sky or .star)", path, ErrUnsupportedFormat, ext)
	}
	if err != nil {
		return nil, err
	}
	s.Path = path
	return s, nil
}

// IsScenarioFile reports whether path has a scenario file extension.
func IsScenarioFile(path string) bool {
	switch filepath.Ext(path) {
	case ".toml", ".yaml", ".yml", ".sky", ".star":
		return true
	default:
		return false
	}
}

// Build validates the scenario and produces its sites in file order.
func (s *Scenario) Build() ([]Site, error) {
	defaultMode, err := s.mode()
	if err != nil {
		return nil, &BuildError{File: s.Path, Err: err}
	}

	seen := make(map[string]bool, len(s.Sites))
	sites := make([]Site, 0, len(s.Sites))
	for i, spec := range s.Sites {
		if spec.ID == "" {
			return nil, &BuildError{File: s.Path, Err: fmt.Errorf("site %d has no id", i)}
		}
		if seen[spec.ID] {
			return nil, &BuildError{File: s.Path, Site: spec.ID, Err: errors.New("duplicate site id")}
		}
		seen[spec.ID] = true

		site, err := s.buildSite(spec, defaultMode)
		if err != nil {
			return nil, &BuildError{File: s.Path, Site: spec.ID, Err: err}
		}
		sites = append(sites, site)
	}
	return sites, nil
}

func (s *Scenario) mode() (migration.Mode, error) {
	switch {
	case s.Mode != "":
		return migration.Parse(s.Mode)
	case s.Source != "":
		return migration.FromVersion(s.Source)
	default:
		return "", nil
	}
}

func (s *Scenario) buildSite(spec SiteSpec, defaultMode migration.Mode) (Site, error) {
	frames := make([]scope.Frame, 0, len(spec.Frames))
	for i, fs := range spec.Frames {
		f, err := s.buildFrame(fs)
		if err != nil {
			return Site{}, fmt.Errorf("frame %d: %w", i, err)
		}
		frames = append(frames, f)
	}

	chain, err := scope.NewChain(scope.SiteID(spec.ID), frames...)
	if err != nil {
		return Site{}, err
	}

	site := Site{ID: chain.Site(), Chain: chain}
	for i, rs := range spec.Requests {
		typ, err := types.ParseTypeString(rs.Type)
		if err != nil {
			return Site{}, fmt.Errorf("request %d: %w", i, err)
		}
		mode := defaultMode
		if rs.Mode != "" {
			if mode, err = migration.Parse(rs.Mode); err != nil {
				return Site{}, fmt.Errorf("request %d: %w", i, err)
			}
		}
		site.Requests = append(site.Requests, Request{Type: typ, Mode: mode, Expect: rs.Expect})
	}
	return site, nil
}

func (s *Scenario) buildFrame(fs FrameSpec) (scope.Frame, error) {
	origin, err := scope.ParseOrigin(fs.Origin)
	if err != nil {
		return scope.Frame{}, err
	}
	f := scope.Frame{Origin: origin, Depth: fs.Depth, Label: fs.Label}
	if f.Label == "" {
		f.Label = origin.String()
	}

	for _, bs := range fs.Givens {
		b, err := s.buildBinding(bs, true)
		if err != nil {
			return scope.Frame{}, err
		}
		f.Bindings = append(f.Bindings, b)
	}
	for _, bs := range fs.Values {
		b, err := s.buildBinding(bs, false)
		if err != nil {
			return scope.Frame{}, err
		}
		f.Bindings = append(f.Bindings, b)
	}
	return f, nil
}

func (s *Scenario) buildBinding(bs BindingSpec, provider bool) (scope.Binding, error) {
	name := bs.Name
	if name == "" {
		name = "<anonymous>"
	}
	typ, err := types.ParseGenericType(bs.Type, bs.TypeParams)
	if err != nil {
		return scope.Binding{}, fmt.Errorf("%s: type: %w", name, err)
	}
	style, err := scope.ParseStyle(bs.Style)
	if err != nil {
		return scope.Binding{}, fmt.Errorf("%s: %w", name, err)
	}
	if !provider && len(bs.Using) > 0 {
		return scope.Binding{}, fmt.Errorf("%s: only givens take using parameters", name)
	}

	b := scope.Binding{
		Name:       bs.Name,
		Ref:        scope.ProviderRef(bs.Ref),
		Type:       typ,
		TypeParams: bs.TypeParams,
		Provider:   provider,
		Style:      style,
	}
	if bs.Line > 0 {
		b.Pos = scope.Position{File: s.Path, Line: bs.Line, Col: bs.Col}
	}
	for i, u := range bs.Using {
		p, err := types.ParseGenericType(u, bs.TypeParams)
		if err != nil {
			return scope.Binding{}, fmt.Errorf("%s: using %d: %w", name, i, err)
		}
		b.Params = append(b.Params, p)
	}
	return b, nil
}
