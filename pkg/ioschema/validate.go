package ioschema

import (
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

const rootField = "(root)"

// Issue is a single validation failure for a form value.
type Issue struct {
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// JSONSchema projects the IO schema onto a draft-07 JSON Schema document.
// View hints are dropped; file nodes validate as strings.
func (s *Schema) JSONSchema() map[string]any {
	out := s.jsonSchema()
	out["$schema"] = "http://json-schema.org/draft-07/schema#"
	return out
}

func (s *Schema) jsonSchema() map[string]any {
	out := make(map[string]any)
	if s == nil {
		return out
	}
	if s.Label != "" {
		out["title"] = s.Label
	}
	if s.Description != "" {
		out["description"] = s.Description
	}

	switch s.Type {
	case TypeObject:
		out["type"] = "object"
		if len(s.Properties) > 0 {
			props := make(map[string]any, len(s.Properties))
			for _, field := range s.Fields() {
				props[field.Name] = field.Schema.jsonSchema()
			}
			out["properties"] = props
		}
		if required := s.RequiredFields(); len(required) > 0 {
			out["required"] = required
		}
		if s.AdditionalProperties != nil {
			out["additionalProperties"] = s.AdditionalProperties.jsonSchema()
		}
	case TypeArray:
		out["type"] = "array"
		if len(s.PrefixItems) > 0 {
			items := make([]any, 0, len(s.PrefixItems))
			for _, item := range s.PrefixItems {
				items = append(items, item.jsonSchema())
			}
			out["items"] = items
			out["additionalItems"] = false
			out["minItems"] = len(s.PrefixItems)
		} else if s.Items != nil {
			out["items"] = s.Items.jsonSchema()
		}
		if s.MinItems != nil {
			out["minItems"] = *s.MinItems
		}
		if s.MaxItems != nil {
			out["maxItems"] = *s.MaxItems
		}
	case TypeOneOf:
		options := make([]any, 0, len(s.Types))
		for _, option := range s.Types {
			options = append(options, option.jsonSchema())
		}
		out["oneOf"] = options
	case TypeFile:
		out["type"] = "string"
	default:
		out["type"] = s.Type
	}

	if len(s.Enum) > 0 {
		out["enum"] = s.Enum
	}
	if s.Minimum != nil {
		out["minimum"] = *s.Minimum
	}
	if s.Maximum != nil {
		out["maximum"] = *s.Maximum
	}
	if s.MinLength != nil {
		out["minLength"] = *s.MinLength
	}
	if s.MaxLength != nil {
		out["maxLength"] = *s.MaxLength
	}
	if s.Pattern != "" {
		out["pattern"] = s.Pattern
	}
	return out
}

// Validate checks form values against the schema. A nil error with no
// issues means the values are acceptable.
func Validate(s *Schema, values map[string]any) ([]Issue, error) {
	if s == nil {
		return nil, errors.New("ioschema: schema is nil")
	}
	if values == nil {
		values = map[string]any{}
	}
	result, err := gojsonschema.Validate(
		gojsonschema.NewGoLoader(s.JSONSchema()),
		gojsonschema.NewGoLoader(values),
	)
	if err != nil {
		return nil, fmt.Errorf("ioschema: validate: %w", err)
	}
	if result.Valid() {
		return nil, nil
	}
	issues := make([]Issue, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		field := desc.Field()
		if field == rootField {
			field = ""
		}
		if desc.Type() == "required" {
			if prop, ok := desc.Details()["property"].(string); ok && !strings.HasSuffix(field, prop) {
				field = joinField(field, prop)
			}
		}
		issues = append(issues, Issue{Field: field, Message: desc.Description()})
	}
	return issues, nil
}

func joinField(parent, name string) string {
	if parent == "" {
		return name
	}
	return parent + "." + name
}
