package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

const resourceBase = "https://termux-mcp.local/schemas/"

// Validator checks argument payloads against a compiled node.
type Validator struct {
	schema *jsonschema.Schema
}

// Compile builds a Validator for n. name only identifies the resource.
func Compile(name string, n *Node) (*Validator, error) {
	if n == nil {
		return nil, errors.New("schema is nil")
	}
	raw, err := json.Marshal(n.JSONSchema())
	if err != nil {
		return nil, err
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	url := resourceBase + name + ".json"
	c := jsonschema.NewCompiler()
	if err := c.AddResource(url, doc); err != nil {
		return nil, fmt.Errorf("schema %q: %w", name, err)
	}
	sch, err := c.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("schema %q: %w", name, err)
	}
	return &Validator{schema: sch}, nil
}

// Validate reports whether args satisfy the schema. A nil map is treated
// as an empty object.
func (v *Validator) Validate(args map[string]any) error {
	if args == nil {
		args = map[string]any{}
	}
	raw, err := json.Marshal(args)
	if err != nil {
		return err
	}
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return err
	}
	if err := v.schema.Validate(inst); err != nil {
		return errors.New(flatten(err))
	}
	return nil
}

// flatten turns the multi-line validation report into one line, dropping
// the header that only repeats the resource URL.
func flatten(err error) string {
	lines := strings.Split(strings.TrimSpace(err.Error()), "\n")
	if len(lines) > 1 {
		lines = lines[1:]
	}
	parts := make([]string, 0, len(lines))
	for _, l := range lines {
		l = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(l), "-"))
		if l != "" {
			parts = append(parts, l)
		}
	}
	return strings.Join(parts, "; ")
}
