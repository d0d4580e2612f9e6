package capconfig

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"time"

	"go.starlark.net/starlark"
)

// DefaultStarlarkTimeout is the default execution timeout for Starlark config files.
const DefaultStarlarkTimeout = 5 * time.Second

// ErrConfigureNotFound is returned when capres.sky doesn't define a configure() function.
var ErrConfigureNotFound = errors.New("capres.sky must define a configure() function")

// ErrConfigureReturnType is returned when configure() doesn't return a dict.
var ErrConfigureReturnType = errors.New("configure() must return a dict")

// LoadStarlarkConfig loads a configuration from a Starlark file.
// The file must define a configure() function that returns a dict.
// The execution is sandboxed: no filesystem or network access, with a timeout.
func LoadStarlarkConfig(path string, timeout time.Duration) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
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

	globals, err := starlark.ExecFile(thread, path, data, configPredeclared())
	if err != nil {
		return nil, fmt.Errorf("executing config %s: %w", path, err)
	}

	configureFn, ok := globals["configure"]
	if !ok {
		return nil, fmt.Errorf("%s: %w", path, ErrConfigureNotFound)
	}
	fn, ok := configureFn.(*starlark.Function)
	if !ok {
		return nil, fmt.Errorf("%s: configure must be a function, got %s", path, configureFn.Type())
	}

	result, err := starlark.Call(thread, fn, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: calling configure(): %w", path, err)
	}

	dict, ok := result.(*starlark.Dict)
	if !ok {
		return nil, fmt.Errorf("%s: %w, got %s", path, ErrConfigureReturnType, result.Type())
	}

	cfg, err := dictToConfig(dict)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// configPredeclared returns the sandboxed predeclared values for config files.
func configPredeclared() starlark.StringDict {
	return starlark.StringDict{
		"getenv":    starlark.NewBuiltin("getenv", builtinGetenv),
		"host_os":   starlark.String(runtime.GOOS),
		"host_arch": starlark.String(runtime.GOARCH),
		"duration":  starlark.NewBuiltin("duration", builtinDuration),
		"struct":    starlark.NewBuiltin("struct", builtinStruct),
	}
}

// builtinGetenv implements getenv(name, default="") -> string.
func builtinGetenv(_ *starlark.Thread, _ *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var name string
	var defaultVal starlark.String
	if err := starlark.UnpackArgs("getenv", args, kwargs, "name", &name, "default?", &defaultVal); err != nil {
		return nil, err
	}

	val := os.Getenv(name)
	if val == "" {
		return defaultVal, nil
	}
	return starlark.String(val), nil
}

// builtinDuration implements duration(s) -> string, validating the Go duration syntax.
func builtinDuration(_ *starlark.Thread, _ *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var s string
	if err := starlark.UnpackArgs("duration", args, kwargs, "s", &s); err != nil {
		return nil, err
	}
	if _, err := time.ParseDuration(s); err != nil {
		return nil, fmt.Errorf("invalid duration %q: %w", s, err)
	}
	return starlark.String(s), nil
}

// builtinStruct implements struct(**kwargs) as a dict constructor.
func builtinStruct(_ *starlark.Thread, _ *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if len(args) > 0 {
		return nil, errors.New("struct: positional arguments not allowed")
	}
	d := starlark.NewDict(len(kwargs))
	for _, kv := range kwargs {
		if err := d.SetKey(kv[0], kv[1]); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// dictToConfig converts a Starlark dict to a Config struct.
func dictToConfig(d *starlark.Dict) (*Config, error) {
	cfg := DefaultConfig()

	sections := []struct {
		name  string
		parse func(*starlark.Dict, *Config) error
	}{
		{"resolve", parseResolveConfig},
		{"log", parseLogConfig},
		{"output", parseOutputConfig},
		{"watch", parseWatchConfig},
	}
	for _, s := range sections {
		v, found, _ := d.Get(starlark.String(s.name))
		if !found {
			continue
		}
		sd, ok := v.(*starlark.Dict)
		if !ok {
			return nil, fmt.Errorf("%s must be a dict, got %s", s.name, v.Type())
		}
		if err := s.parse(sd, cfg); err != nil {
			return nil, fmt.Errorf("parsing %s config: %w", s.name, err)
		}
	}
	return cfg, nil
}

func parseResolveConfig(d *starlark.Dict, cfg *Config) error {
	if err := getString(d, "source", &cfg.Resolve.Source); err != nil {
		return err
	}
	if err := getString(d, "mode", &cfg.Resolve.Mode); err != nil {
		return err
	}
	if v, found, _ := d.Get(starlark.String("parallel")); found {
		i, ok := v.(starlark.Int)
		if !ok {
			return fmt.Errorf("parallel must be an int, got %s", v.Type())
		}
		n, ok := i.Int64()
		if !ok {
			return fmt.Errorf("parallel out of range: %s", i)
		}
		cfg.Resolve.Parallel = int(n)
	}
	return getBool(d, "specificity", &cfg.Resolve.Specificity)
}

func parseLogConfig(d *starlark.Dict, cfg *Config) error {
	if err := getString(d, "level", &cfg.Log.Level); err != nil {
		return err
	}
	return getString(d, "format", &cfg.Log.Format)
}

func parseOutputConfig(d *starlark.Dict, cfg *Config) error {
	if err := getString(d, "format", &cfg.Output.Format); err != nil {
		return err
	}
	return getBool(d, "quiet", &cfg.Output.Quiet)
}

func parseWatchConfig(d *starlark.Dict, cfg *Config) error {
	var s string
	if err := getString(d, "debounce", &s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	return cfg.Watch.Debounce.UnmarshalText([]byte(s))
}

func getString(d *starlark.Dict, key string, dst *string) error {
	v, found, _ := d.Get(starlark.String(key))
	if !found {
		return nil
	}
	s, ok := starlark.AsString(v)
	if !ok {
		return fmt.Errorf("%s must be a string, got %s", key, v.Type())
	}
	*dst = s
	return nil
}

func getBool(d *starlark.Dict, key string, dst *bool) error {
	v, found, _ := d.Get(starlark.String(key))
	if !found {
		return nil
	}
	b, ok := v.(starlark.Bool)
	if !ok {
		return fmt.Errorf("%s must be a bool, got %s", key, v.Type())
	}
	*dst = bool(b)
	return nil
}
