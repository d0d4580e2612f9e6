package scenario

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// LoadTOML reads a TOML scenario. Unknown keys are an error.
func LoadTOML(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario %s: %w", path, err)
	}

	var s Scenario
	md, err := toml.Decode(string(data), &s)
	if err != nil {
		return nil, fmt.Errorf("parsing TOML scenario %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("parsing TOML scenario %s: unknown key %s", path, undecoded[0])
	}
	return &s, nil
}
