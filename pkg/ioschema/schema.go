// Package ioschema defines the renderer-facing IO schema and the conversion
// from operator property trees into it (FromOperator). The IO schema is a
// JSON Schema flavoured tree where every node also carries the view component
// a form renderer should use.
package ioschema

import "sort"

// Type names used in IO schema nodes.
const (
	TypeObject  = "object"
	TypeString  = "string"
	TypeBoolean = "boolean"
	TypeNumber  = "number"
	TypeInteger = "integer"
	TypeArray   = "array"
	TypeOneOf   = "oneOf"
	TypeFile    = "file"
)

// View tells renderers how to present a node.
type View struct {
	Component   string         `json:"component"`
	Label       string         `json:"label,omitempty"`
	Description string         `json:"description,omitempty"`
	Caption     string         `json:"caption,omitempty"`
	Placeholder string         `json:"placeholder,omitempty"`
	ReadOnly    bool           `json:"readOnly,omitempty"`
	Options     map[string]any `json:"options,omitempty"`
}

// Schema is a single IO schema node.
type Schema struct {
	Type                 string             `json:"type"`
	Label                string             `json:"label,omitempty"`
	Description          string             `json:"description,omitempty"`
	Required             bool               `json:"required,omitempty"`
	Default              any                `json:"default,omitempty"`
	Invalid              bool               `json:"invalid,omitempty"`
	ErrorMessage         string             `json:"errorMessage,omitempty"`
	View                 View               `json:"view"`
	Properties           map[string]*Schema `json:"properties,omitempty"`
	Order                []string           `json:"order,omitempty"`
	Items                *Schema            `json:"items,omitempty"`
	PrefixItems          []*Schema          `json:"prefixItems,omitempty"`
	AdditionalProperties *Schema            `json:"additionalProperties,omitempty"`
	Enum                 []any              `json:"enum,omitempty"`
	Types                []*Schema          `json:"types,omitempty"`
	Minimum              *float64           `json:"minimum,omitempty"`
	Maximum              *float64           `json:"maximum,omitempty"`
	MinItems             *int               `json:"minItems,omitempty"`
	MaxItems             *int               `json:"maxItems,omitempty"`
	MinLength            *int               `json:"minLength,omitempty"`
	MaxLength            *int               `json:"maxLength,omitempty"`
	Pattern              string             `json:"pattern,omitempty"`
}

// Field is an ordered (name, schema) pair of an object node.
type Field struct {
	Name   string
	Schema *Schema
}

// Fields returns object properties in declaration order. Names missing from
// Order (hand-built schemas) follow, sorted by name.
func (s *Schema) Fields() []Field {
	if s == nil || len(s.Properties) == 0 {
		return nil
	}
	fields := make([]Field, 0, len(s.Properties))
	seen := make(map[string]struct{}, len(s.Properties))
	for _, name := range s.Order {
		child, ok := s.Properties[name]
		if !ok {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		fields = append(fields, Field{Name: name, Schema: child})
	}
	if len(fields) == len(s.Properties) {
		return fields
	}
	rest := make([]string, 0, len(s.Properties)-len(fields))
	for name := range s.Properties {
		if _, ok := seen[name]; !ok {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	for _, name := range rest {
		fields = append(fields, Field{Name: name, Schema: s.Properties[name]})
	}
	return fields
}

// RequiredFields lists the names of required object properties in order.
func (s *Schema) RequiredFields() []string {
	var names []string
	for _, field := range s.Fields() {
		if field.Schema != nil && field.Schema.Required {
			names = append(names, field.Name)
		}
	}
	return names
}

// DisplayLabel returns the view label, then the node label.
func (s *Schema) DisplayLabel() string {
	if s == nil {
		return ""
	}
	if s.View.Label != "" {
		return s.View.Label
	}
	return s.Label
}

// DisplayDescription returns the view description, then the node description.
func (s *Schema) DisplayDescription() string {
	if s == nil {
		return ""
	}
	if s.View.Description != "" {
		return s.View.Description
	}
	return s.Description
}
