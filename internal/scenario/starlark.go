package scenario

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"go.starlark.net/starlark"
)

// DefaultStarlarkTimeout bounds the execution of a Starlark scenario.
const DefaultStarlarkTimeout = 5 * time.Second

// ErrNoScenario is returned when a Starlark file neither calls scenario()
// nor defines a global named sites.
var ErrNoScenario = errors.New("scenario file must call scenario() or define sites")

// LoadStarlark executes a Starlark scenario. The file builds its sites with
// the given(), binding(), frame(), request() and site() builtins, then
// either calls scenario(sites = [...]) once or assigns the list to a global
// named sites (with optional name, mode and source globals). Givens record
// the line of their call. Execution is sandboxed: no load(), no I/O, and a
// timeout.
func LoadStarlark(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario %s: %w", path, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), DefaultStarlarkTimeout)
	defer cancel()

	thread := &starlark.Thread{Name: path}
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			thread.Cancel("execution timeout")
		case <-done:
		}
	}()
	defer close(done)

	b := &starlarkBuilder{}
	globals, err := starlark.ExecFile(thread, path, data, b.predeclared())
	if err != nil {
		return nil, fmt.Errorf("executing scenario %s: %w", path, err)
	}

	if b.scenario != nil {
		return b.scenario, nil
	}
	s, err := scenarioFromGlobals(globals)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// specValue carries a decoded spec between builtins.
type specValue struct {
	kind string
	spec any
}

var _ starlark.Value = (*specValue)(nil)

func (v *specValue) String() string        { return "<" + v.kind + ">" }
func (v *specValue) Type() string          { return v.kind }
func (v *specValue) Freeze()               {}
func (v *specValue) Truth() starlark.Bool  { return starlark.True }
func (v *specValue) Hash() (uint32, error) { return 0, fmt.Errorf("unhashable type: %s", v.kind) }

type starlarkBuilder struct {
	scenario *Scenario
}

func (b *starlarkBuilder) predeclared() starlark.StringDict {
	return starlark.StringDict{
		"given":    starlark.NewBuiltin("given", builtinGiven),
		"binding":  starlark.NewBuiltin("binding", builtinBinding),
		"frame":    starlark.NewBuiltin("frame", builtinFrame),
		"request":  starlark.NewBuiltin("request", builtinRequest),
		"site":     starlark.NewBuiltin("site", builtinSite),
		"scenario": starlark.NewBuiltin("scenario", b.builtinScenario),
	}
}

// builtinGiven implements
// given(name, type, using=[], type_params=[], style="new", ref="") -> given.
func builtinGiven(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var (
		spec          BindingSpec
		using, params *starlark.List
	)
	if err := starlark.UnpackArgs(fn.Name(), args, kwargs,
		"name", &spec.Name,
		"type", &spec.Type,
		"using?", &using,
		"type_params?", &params,
		"style?", &spec.Style,
		"ref?", &spec.Ref,
	); err != nil {
		return nil, err
	}
	var err error
	if spec.Using, err = stringList(fn.Name(), "using", using); err != nil {
		return nil, err
	}
	if spec.TypeParams, err = stringList(fn.Name(), "type_params", params); err != nil {
		return nil, err
	}
	pos := thread.CallFrame(1).Pos
	spec.Line, spec.Col = int(pos.Line), int(pos.Col)
	return &specValue{kind: "given", spec: spec}, nil
}

// builtinBinding implements binding(name, type, type_params=[]) -> binding.
func builtinBinding(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var (
		spec   BindingSpec
		params *starlark.List
	)
	if err := starlark.UnpackArgs(fn.Name(), args, kwargs,
		"name", &spec.Name,
		"type", &spec.Type,
		"type_params?", &params,
	); err != nil {
		return nil, err
	}
	var err error
	if spec.TypeParams, err = stringList(fn.Name(), "type_params", params); err != nil {
		return nil, err
	}
	pos := thread.CallFrame(1).Pos
	spec.Line, spec.Col = int(pos.Line), int(pos.Col)
	return &specValue{kind: "binding", spec: spec}, nil
}

// builtinFrame implements frame(origin, bindings=[], depth=0, label="") -> frame.
func builtinFrame(_ *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var (
		spec     FrameSpec
		bindings *starlark.List
	)
	if err := starlark.UnpackArgs(fn.Name(), args, kwargs,
		"origin", &spec.Origin,
		"bindings?", &bindings,
		"depth?", &spec.Depth,
		"label?", &spec.Label,
	); err != nil {
		return nil, err
	}
	if bindings != nil {
		for i := 0; i < bindings.Len(); i++ {
			v, ok := bindings.Index(i).(*specValue)
			if !ok {
				return nil, fmt.Errorf("%s: bindings[%d] must be a given or binding, got %s", fn.Name(), i, bindings.Index(i).Type())
			}
			switch v.kind {
			case "given":
				spec.Givens = append(spec.Givens, v.spec.(BindingSpec))
			case "binding":
				spec.Values = append(spec.Values, v.spec.(BindingSpec))
			default:
				return nil, fmt.Errorf("%s: bindings[%d] must be a given or binding, got %s", fn.Name(), i, v.kind)
			}
		}
	}
	return &specValue{kind: "frame", spec: spec}, nil
}

// builtinRequest implements request(type, expect="", mode="") -> request.
func builtinRequest(_ *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var spec RequestSpec
	if err := starlark.UnpackArgs(fn.Name(), args, kwargs,
		"type", &spec.Type,
		"expect?", &spec.Expect,
		"mode?", &spec.Mode,
	); err != nil {
		return nil, err
	}
	return &specValue{kind: "request", spec: spec}, nil
}

// builtinSite implements site(id, frames=[], requests=[]) -> site.
func builtinSite(_ *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var (
		spec             SiteSpec
		frames, requests *starlark.List
	)
	if err := starlark.UnpackArgs(fn.Name(), args, kwargs,
		"id", &spec.ID,
		"frames?", &frames,
		"requests?", &requests,
	); err != nil {
		return nil, err
	}
	var err error
	if spec.Frames, err = specList[FrameSpec](fn.Name(), "frames", "frame", frames); err != nil {
		return nil, err
	}
	if spec.Requests, err = specList[RequestSpec](fn.Name(), "requests", "request", requests); err != nil {
		return nil, err
	}
	return &specValue{kind: "site", spec: spec}, nil
}

// builtinScenario implements scenario(sites, name="", mode="", source="").
func (b *starlarkBuilder) builtinScenario(_ *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if b.scenario != nil {
		return nil, fmt.Errorf("%s: called more than once", fn.Name())
	}
	var (
		s     Scenario
		sites *starlark.List
	)
	if err := starlark.UnpackArgs(fn.Name(), args, kwargs,
		"sites", &sites,
		"name?", &s.Name,
		"mode?", &s.Mode,
		"source?", &s.Source,
	); err != nil {
		return nil, err
	}
	var err error
	if s.Sites, err = specList[SiteSpec](fn.Name(), "sites", "site", sites); err != nil {
		return nil, err
	}
	b.scenario = &s
	return starlark.None, nil
}

func scenarioFromGlobals(globals starlark.StringDict) (*Scenario, error) {
	v, ok := globals["sites"]
	if !ok {
		return nil, ErrNoScenario
	}
	list, ok := v.(*starlark.List)
	if !ok {
		return nil, fmt.Errorf("sites must be a list, got %s", v.Type())
	}

	var (
		s   Scenario
		err error
	)
	if s.Sites, err = specList[SiteSpec]("sites", "sites", "site", list); err != nil {
		return nil, err
	}
	for name, dst := range map[string]*string{"name": &s.Name, "mode": &s.Mode, "source": &s.Source} {
		g, ok := globals[name]
		if !ok {
			continue
		}
		str, ok := starlark.AsString(g)
		if !ok {
			return nil, fmt.Errorf("%s must be a string, got %s", name, g.Type())
		}
		*dst = str
	}
	return &s, nil
}

func specList[T any](fnName, param, kind string, list *starlark.List) ([]T, error) {
	if list == nil {
		return nil, nil
	}
	out := make([]T, 0, list.Len())
	for i := 0; i < list.Len(); i++ {
		v, ok := list.Index(i).(*specValue)
		if !ok || v.kind != kind {
			return nil, fmt.Errorf("%s: %s[%d] must be a %s, got %s", fnName, param, i, kind, list.Index(i).Type())
		}
		out = append(out, v.spec.(T))
	}
	return out, nil
}

func stringList(fnName, param string, list *starlark.List) ([]string, error) {
	if list == nil {
		return nil, nil
	}
	out := make([]string, 0, list.Len())
	for i := 0; i < list.Len(); i++ {
		s, ok := starlark.AsString(list.Index(i))
		if !ok {
			return nil, fmt.Errorf("%s: %s[%d] must be a string", fnName, param, i)
		}
		out = append(out, s)
	}
	return out, nil
}
