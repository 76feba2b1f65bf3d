// Package schema describes the arguments an operation accepts.
//
// A Node is plain data: it renders to the descriptor shape served by the
// discovery endpoints and to a standard JSON Schema document used to check
// call arguments before an executor runs.
package schema

import (
	"encoding/json"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Kind is the JSON type of a schema node.
type Kind string

const (
	KindObject  Kind = "object"
	KindString  Kind = "string"
	KindInteger Kind = "integer"
	KindBoolean Kind = "boolean"
	KindArray   Kind = "array"
)

// Node is a recursive parameter descriptor.
type Node struct {
	Kind        Kind
	Description string
	Properties  *orderedmap.OrderedMap[string, *Node]
	Enum        []any
	Required    bool
	Default     any
	Items       *Node
	Minimum     *int64
	Maximum     *int64
}

// Property names a child of an object node.
type Property struct {
	Name string
	Node *Node
}

// Prop is shorthand for a Property literal.
func Prop(name string, n *Node) Property { return Property{Name: name, Node: n} }

// Object returns an object node with the properties in declaration order.
func Object(props ...Property) *Node {
	n := &Node{Kind: KindObject, Properties: orderedmap.New[string, *Node]()}
	for _, p := range props {
		n.Properties.Set(p.Name, p.Node)
	}
	return n
}

func Str() *Node  { return &Node{Kind: KindString} }
func Int() *Node  { return &Node{Kind: KindInteger} }
func Bool() *Node { return &Node{Kind: KindBoolean} }

// ArrayOf returns an array node whose elements match items.
func ArrayOf(items *Node) *Node { return &Node{Kind: KindArray, Items: items} }

// OneOf restricts the node to the given literal values.
func (n *Node) OneOf(values ...any) *Node {
	n.Enum = values
	return n
}

// WithDefault sets the value assumed when the argument is absent.
func (n *Node) WithDefault(v any) *Node {
	n.Default = v
	return n
}

// Between bounds an integer node to [min, max].
func (n *Node) Between(min, max int64) *Node {
	n.Minimum, n.Maximum = &min, &max
	return n
}

// AsRequired marks the node as a required property of its parent.
func (n *Node) AsRequired() *Node {
	n.Required = true
	return n
}

// Describe sets a human readable description.
func (n *Node) Describe(desc string) *Node {
	n.Description = desc
	return n
}

// Property returns the named child of an object node.
func (n *Node) Property(name string) (*Node, bool) {
	if n == nil || n.Properties == nil {
		return nil, false
	}
	return n.Properties.Get(name)
}

// RequiredProperties lists the names of required children in declaration order.
func (n *Node) RequiredProperties() []string {
	if n == nil || n.Properties == nil {
		return nil
	}
	var out []string
	for pair := n.Properties.Oldest(); pair != nil; pair = pair.Next() {
		if pair.Value != nil && pair.Value.Required {
			out = append(out, pair.Key)
		}
	}
	return out
}

type nodeJSON struct {
	Type        Kind                                  `json:"type"`
	Description string                                `json:"description,omitempty"`
	Properties  *orderedmap.OrderedMap[string, *Node] `json:"properties,omitempty"`
	Enum        []any                                 `json:"enum,omitempty"`
	Required    bool                                  `json:"required,omitempty"`
	Default     any                                   `json:"default,omitempty"`
	Items       *Node                                 `json:"items,omitempty"`
	Minimum     *int64                                `json:"minimum,omitempty"`
	Maximum     *int64                                `json:"maximum,omitempty"`
}

// MarshalJSON renders the descriptor shape, with required flags kept on
// the properties themselves.
func (n *Node) MarshalJSON() ([]byte, error) {
	return json.Marshal(nodeJSON{
		Type:        n.Kind,
		Description: n.Description,
		Properties:  n.Properties,
		Enum:        n.Enum,
		Required:    n.Required,
		Default:     n.Default,
		Items:       n.Items,
		Minimum:     n.Minimum,
		Maximum:     n.Maximum,
	})
}

// JSONSchema converts the node into a standard JSON Schema document, lifting
// per-property required flags into the parent's "required" list.
func (n *Node) JSONSchema() map[string]any {
	out := map[string]any{"type": string(n.Kind)}
	if n.Description != "" {
		out["description"] = n.Description
	}
	if len(n.Enum) > 0 {
		out["enum"] = n.Enum
	}
	if n.Default != nil {
		out["default"] = n.Default
	}
	if n.Items != nil {
		out["items"] = n.Items.JSONSchema()
	}
	if n.Minimum != nil {
		out["minimum"] = *n.Minimum
	}
	if n.Maximum != nil {
		out["maximum"] = *n.Maximum
	}
	if n.Properties != nil {
		props := make(map[string]any, n.Properties.Len())
		for pair := n.Properties.Oldest(); pair != nil; pair = pair.Next() {
			props[pair.Key] = pair.Value.JSONSchema()
		}
		out["properties"] = props
		if req := n.RequiredProperties(); len(req) > 0 {
			out["required"] = req
		}
	}
	return out
}
