package operator

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// FromJSON decodes a property tree from a JSON document.
func FromJSON(raw []byte) (*Property, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, ErrEmptyDocument
	}
	if !json.Valid(trimmed) {
		return nil, fmt.Errorf("%w: malformed json", ErrInvalidDocument)
	}
	normalized, err := reencodeJSON(trimmed)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	// Re-indent so the YAML decoder never sees tab indentation.
	var indented bytes.Buffer
	if err := json.Indent(&indented, normalized, "", "  "); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	return decode(indented.Bytes())
}

// reencodeJSON rewrites a JSON document token by token. Strings are
// re-marshaled, so escapes YAML lacks (such as \/) never reach the YAML
// decoder; numbers keep their literal text.
func reencodeJSON(raw []byte) ([]byte, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var buf bytes.Buffer
	if err := reencodeValue(dec, &buf); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("trailing data after document")
	}
	return buf.Bytes(), nil
}

func reencodeValue(dec *json.Decoder, buf *bytes.Buffer) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	switch v := tok.(type) {
	case json.Delim:
		closing := byte('}')
		if v == '[' {
			closing = ']'
		}
		buf.WriteByte(byte(v))
		for first := true; dec.More(); first = false {
			if !first {
				buf.WriteByte(',')
			}
			if v == '{' {
				key, err := dec.Token()
				if err != nil {
					return err
				}
				if err := writeJSONString(buf, fmt.Sprint(key)); err != nil {
					return err
				}
				buf.WriteByte(':')
			}
			if err := reencodeValue(dec, buf); err != nil {
				return err
			}
		}
		if _, err := dec.Token(); err != nil {
			return err
		}
		buf.WriteByte(closing)
	case string:
		return writeJSONString(buf, v)
	case json.Number:
		buf.WriteString(v.String())
	case bool:
		buf.WriteString(strconv.FormatBool(v))
	case nil:
		buf.WriteString("null")
	default:
		return fmt.Errorf("unexpected token %v", tok)
	}
	return nil
}

func writeJSONString(buf *bytes.Buffer, s string) error {
	encoded, err := json.Marshal(s)
	if err != nil {
		return err
	}
	buf.Write(encoded)
	return nil
}

// FromYAML decodes a property tree from a YAML document using the same
// grammar as FromJSON.
func FromYAML(raw []byte) (*Property, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, ErrEmptyDocument
	}
	return decode(raw)
}

// MustFromJSON panics when the document cannot be decoded. Intended for
// embedded fixtures and tests.
func MustFromJSON(raw []byte) *Property {
	prop, err := FromJSON(raw)
	if err != nil {
		panic(err)
	}
	return prop
}

func decode(raw []byte) (*Property, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	root := &doc
	if root.Kind == yaml.DocumentNode {
		if len(root.Content) == 0 {
			return nil, ErrEmptyDocument
		}
		root = root.Content[0]
	}
	return parseProperty(root, "$")
}

func parseProperty(n *yaml.Node, path string) (*Property, error) {
	m, err := asMapping(n, path)
	if err != nil {
		return nil, err
	}

	prop := &Property{}
	if typeNode := m.get("type"); typeNode != nil && resolve(typeNode).Kind == yaml.MappingNode {
		prop.Type, err = parseCanonicalType(resolve(typeNode), path+".type")
	} else {
		prop.Type, err = parseShorthandType(m)
	}
	if err != nil {
		return nil, err
	}

	if prop.Label, err = m.firstString("label", "title"); err != nil {
		return nil, err
	}
	if prop.Description, err = m.str("description"); err != nil {
		return nil, err
	}
	if req := m.get("required"); req != nil && resolve(req).Kind == yaml.ScalarNode {
		if prop.Required, err = m.boolean("required"); err != nil {
			return nil, err
		}
	}
	if node := m.get("default"); node != nil {
		if prop.Default, err = decodeValue(node, path+".default"); err != nil {
			return nil, err
		}
	}
	if prop.Invalid, err = m.boolean("invalid"); err != nil {
		return nil, err
	}
	if prop.ErrorMessage, err = m.firstString("error_message", "errorMessage"); err != nil {
		return nil, err
	}
	if node := m.get("view"); node != nil {
		if prop.View, err = parseView(node, path+".view"); err != nil {
			return nil, err
		}
	}
	return prop, nil
}

func parseView(n *yaml.Node, path string) (*View, error) {
	m, err := asMapping(n, path)
	if err != nil {
		return nil, err
	}
	view := &View{}
	err = m.each(func(key string, value *yaml.Node) error {
		decoded, err := decodeValue(value, path+"."+key)
		if err != nil {
			return err
		}
		text, _ := decoded.(string)
		switch key {
		case "component", "name":
			view.Component = text
		case "label":
			view.Label = text
		case "description":
			view.Description = text
		case "caption":
			view.Caption = text
		case "placeholder":
			view.Placeholder = text
		case "read_only", "readOnly":
			flag, _ := decoded.(bool)
			view.ReadOnly = flag
		default:
			if view.Options == nil {
				view.Options = make(map[string]any)
			}
			view.Options[key] = decoded
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

// parseCanonicalType handles {"name": "List", "element_type": {...}} nodes.
func parseCanonicalType(n *yaml.Node, path string) (Type, error) {
	m, err := asMapping(n, path)
	if err != nil {
		return nil, err
	}
	name, err := m.str("name")
	if err != nil {
		return nil, err
	}
	kind, ok := ParseKind(name)
	if !ok {
		return nil, fmt.Errorf("%w %q at %s", ErrUnknownType, name, path)
	}
	return parseKindFields(kind, m)
}

func parseKindFields(kind Kind, m mapping) (Type, error) {
	path := m.path
	switch kind {
	case KindObject:
		obj := &Object{}
		if node := m.get("properties"); node != nil {
			if err := parseObjectProperties(obj, node, path+".properties"); err != nil {
				return nil, err
			}
		}
		return obj, nil
	case KindString:
		return parseStringFields(m, "min_length", "max_length")
	case KindBoolean:
		return &Boolean{}, nil
	case KindNumber:
		num := &Number{}
		var err error
		if num.Min, err = m.float("min"); err != nil {
			return nil, err
		}
		if num.Max, err = m.float("max"); err != nil {
			return nil, err
		}
		if num.Int, err = m.boolean("int"); err != nil {
			return nil, err
		}
		if num.Float, err = m.boolean("float"); err != nil {
			return nil, err
		}
		return num, nil
	case KindList:
		node := m.get("element_type")
		if node == nil {
			return nil, fmt.Errorf("%w: %s.element_type is required", ErrUnknownType, path)
		}
		elem, err := parseTypeNode(node, path+".element_type")
		if err != nil {
			return nil, err
		}
		list := &List{Element: elem}
		if list.MinItems, err = m.integer("min_items"); err != nil {
			return nil, err
		}
		if list.MaxItems, err = m.integer("max_items"); err != nil {
			return nil, err
		}
		return list, nil
	case KindEnum:
		values, err := m.list("values")
		if err != nil {
			return nil, err
		}
		return &Enum{Values: values}, nil
	case KindOneOf:
		types, err := parseTypeList(m, "types")
		if err != nil {
			return nil, err
		}
		return &OneOf{Types: types}, nil
	case KindTuple:
		items, err := parseTypeList(m, "items")
		if err != nil {
			return nil, err
		}
		return &Tuple{Items: items}, nil
	case KindMap:
		out := &Map{}
		if node := m.get("key_type"); node != nil {
			key, err := parseTypeNode(node, path+".key_type")
			if err != nil {
				return nil, err
			}
			out.Key = key
		}
		node := m.get("value_type")
		if node == nil {
			return nil, fmt.Errorf("%w: %s.value_type is required", ErrUnknownType, path)
		}
		value, err := parseTypeNode(node, path+".value_type")
		if err != nil {
			return nil, err
		}
		out.Value = value
		return out, nil
	case KindFile:
		return &File{}, nil
	}
	return nil, fmt.Errorf("%w %q at %s", ErrUnknownType, kind, path)
}

// parseShorthandType reads JSON Schema style keywords from a property node.
func parseShorthandType(m mapping) (Type, error) {
	path := m.path
	name := ""
	if node := m.get("type"); node != nil {
		node = resolve(node)
		if node.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("%w: %s.type must be a string or type object", ErrUnknownType, path)
		}
		name = strings.ToLower(strings.TrimSpace(node.Value))
	}

	if node := m.get("enum"); node != nil {
		values, err := m.list("enum")
		if err != nil {
			return nil, err
		}
		return &Enum{Values: values}, nil
	}
	if node := m.get("oneOf"); node != nil {
		types, err := parseTypeList(m, "oneOf")
		if err != nil {
			return nil, err
		}
		return &OneOf{Types: types}, nil
	}

	switch name {
	case "object", "":
		if node := m.get("properties"); node != nil {
			obj := &Object{}
			if err := parseObjectProperties(obj, node, path+".properties"); err != nil {
				return nil, err
			}
			if err := markRequired(obj, m); err != nil {
				return nil, err
			}
			return obj, nil
		}
		if node := m.get("additionalProperties"); node != nil && resolve(node).Kind == yaml.MappingNode {
			value, err := parseTypeNode(node, path+".additionalProperties")
			if err != nil {
				return nil, err
			}
			return &Map{Key: &String{}, Value: value}, nil
		}
		if name == "object" {
			return &Object{}, nil
		}
		return nil, fmt.Errorf("%w: %s has no type", ErrUnknownType, path)
	case "string":
		format, err := m.str("format")
		if err != nil {
			return nil, err
		}
		if strings.EqualFold(format, "file") {
			return &File{}, nil
		}
		return parseStringFields(m, "minLength", "maxLength")
	case "boolean":
		return &Boolean{}, nil
	case "number", "integer":
		num := &Number{Int: name == "integer", Float: name == "number"}
		var err error
		if num.Min, err = m.float("minimum"); err != nil {
			return nil, err
		}
		if num.Max, err = m.float("maximum"); err != nil {
			return nil, err
		}
		return num, nil
	case "array":
		if node := m.get("prefixItems"); node != nil {
			items, err := parseTypeList(m, "prefixItems")
			if err != nil {
				return nil, err
			}
			return &Tuple{Items: items}, nil
		}
		node := m.get("items")
		if node == nil {
			return nil, fmt.Errorf("%w: %s.items is required for arrays", ErrUnknownType, path)
		}
		elem, err := parseTypeNode(node, path+".items")
		if err != nil {
			return nil, err
		}
		list := &List{Element: elem}
		if list.MinItems, err = m.integer("minItems"); err != nil {
			return nil, err
		}
		if list.MaxItems, err = m.integer("maxItems"); err != nil {
			return nil, err
		}
		return list, nil
	}

	// Canonical names used as plain strings keep their fields inline.
	if kind, ok := ParseKind(name); ok {
		return parseKindFields(kind, m)
	}
	return nil, fmt.Errorf("%w %q at %s", ErrUnknownType, name, path)
}

func parseStringFields(m mapping, minKey, maxKey string) (Type, error) {
	str := &String{}
	var err error
	if str.MinLength, err = m.integer(minKey); err != nil {
		return nil, err
	}
	if str.MaxLength, err = m.integer(maxKey); err != nil {
		return nil, err
	}
	if str.Pattern, err = m.str("pattern"); err != nil {
		return nil, err
	}
	return str, nil
}

func parseObjectProperties(obj *Object, n *yaml.Node, path string) error {
	props, err := asMapping(n, path)
	if err != nil {
		return err
	}
	return props.each(func(key string, value *yaml.Node) error {
		child, err := parseProperty(value, path+"."+key)
		if err != nil {
			return err
		}
		obj.Properties = append(obj.Properties, NamedProperty{Name: key, Property: child})
		return nil
	})
}

// markRequired applies a JSON Schema "required" name list to object children.
func markRequired(obj *Object, m mapping) error {
	node := m.get("required")
	if node == nil || resolve(node).Kind != yaml.SequenceNode {
		return nil
	}
	var names []string
	if err := resolve(node).Decode(&names); err != nil {
		return fmt.Errorf("%w: %s.required: %v", ErrInvalidDocument, m.path, err)
	}
	for _, name := range names {
		if child, ok := obj.Property(name); ok {
			child.Required = true
		}
	}
	return nil
}

// parseTypeNode accepts a canonical type object, a bare type name, or a
// shorthand schema.
func parseTypeNode(n *yaml.Node, path string) (Type, error) {
	n = resolve(n)
	switch n.Kind {
	case yaml.ScalarNode:
		name := strings.TrimSpace(n.Value)
		switch strings.ToLower(name) {
		case "integer":
			return &Number{Int: true}, nil
		case "number":
			return &Number{}, nil
		}
		kind, ok := ParseKind(name)
		if !ok {
			return nil, fmt.Errorf("%w %q at %s", ErrUnknownType, name, path)
		}
		return parseKindFields(kind, mapping{node: &yaml.Node{Kind: yaml.MappingNode}, path: path})
	case yaml.MappingNode:
		m := mapping{node: n, path: path}
		if m.get("name") != nil {
			return parseCanonicalType(n, path)
		}
		prop, err := parseProperty(n, path)
		if err != nil {
			return nil, err
		}
		return prop.Type, nil
	}
	return nil, fmt.Errorf("%w at %s", ErrUnknownType, path)
}

func parseTypeList(m mapping, key string) ([]Type, error) {
	node := m.get(key)
	if node == nil {
		return nil, nil
	}
	node = resolve(node)
	if node.Kind != yaml.SequenceNode {
		return nil, fmt.Errorf("%w: %s.%s must be a list", ErrInvalidDocument, m.path, key)
	}
	types := make([]Type, 0, len(node.Content))
	for idx, item := range node.Content {
		t, err := parseTypeNode(item, fmt.Sprintf("%s.%s[%d]", m.path, key, idx))
		if err != nil {
			return nil, err
		}
		types = append(types, t)
	}
	return types, nil
}
