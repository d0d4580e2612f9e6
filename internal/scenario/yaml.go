package scenario

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadYAML reads a YAML scenario. Unknown keys outside bindings are an
// error. Bindings without an explicit line take the position of their node.
func LoadYAML(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario %s: %w", path, err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var s Scenario
	if err := dec.Decode(&s); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parsing YAML scenario %s: %w", path, err)
	}
	return &s, nil
}

// UnmarshalYAML records the node position of a binding.
func (b *BindingSpec) UnmarshalYAML(n *yaml.Node) error {
	type plain BindingSpec
	var p plain
	if err := n.Decode(&p); err != nil {
		return err
	}
	*b = BindingSpec(p)
	if b.Line == 0 {
		b.Line, b.Col = n.Line, n.Column
	}
	return nil
}
