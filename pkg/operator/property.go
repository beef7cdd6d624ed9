package operator

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrEmptyDocument is returned when a decoder receives no content.
	ErrEmptyDocument = errors.New("operator: document is empty")
	// ErrUnknownType is returned when a node does not describe a known type.
	ErrUnknownType = errors.New("operator: unknown type")
	// ErrInvalidDocument is returned when the payload is not a mapping.
	ErrInvalidDocument = errors.New("operator: invalid document")
)

// View carries presentation hints for a property. Component names the view
// used by form renderers (for example "FieldView" or "DropdownView").
type View struct {
	Component   string
	Label       string
	Description string
	Caption     string
	Placeholder string
	ReadOnly    bool
	Options     map[string]any
}

// Property describes a single operator parameter.
type Property struct {
	Type         Type
	Label        string
	Description  string
	Required     bool
	Default      any
	Invalid      bool
	ErrorMessage string
	View         *View
}

// MarshalJSON emits the canonical encoding accepted by FromJSON.
func (p *Property) MarshalJSON() ([]byte, error) {
	if p == nil {
		return []byte("null"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	w := objectWriter{buf: &buf}
	typ, err := marshalType(p.Type)
	if err != nil {
		return nil, err
	}
	w.raw("type", typ)
	w.str("label", p.Label)
	w.str("description", p.Description)
	if p.Required {
		w.value("required", true)
	}
	if p.Default != nil {
		w.value("default", p.Default)
	}
	if p.Invalid {
		w.value("invalid", true)
	}
	w.str("error_message", p.ErrorMessage)
	if p.View != nil {
		w.value("view", viewJSON(p.View))
	}
	if w.err != nil {
		return nil, w.err
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func viewJSON(v *View) map[string]any {
	out := make(map[string]any, len(v.Options)+6)
	for key, value := range v.Options {
		out[key] = value
	}
	if v.Component != "" {
		out["component"] = v.Component
	}
	if v.Label != "" {
		out["label"] = v.Label
	}
	if v.Description != "" {
		out["description"] = v.Description
	}
	if v.Caption != "" {
		out["caption"] = v.Caption
	}
	if v.Placeholder != "" {
		out["placeholder"] = v.Placeholder
	}
	if v.ReadOnly {
		out["read_only"] = true
	}
	return out
}

func marshalType(t Type) (json.RawMessage, error) {
	if t == nil {
		return nil, fmt.Errorf("operator: marshal: %w", ErrUnknownType)
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	w := objectWriter{buf: &buf}
	w.value("name", string(t.Kind()))

	switch typed := t.(type) {
	case *Object:
		var props bytes.Buffer
		props.WriteByte('{')
		pw := objectWriter{buf: &props}
		for _, entry := range typed.Properties {
			raw, err := entry.Property.MarshalJSON()
			if err != nil {
				return nil, err
			}
			pw.raw(entry.Name, raw)
		}
		props.WriteByte('}')
		if pw.err != nil {
			return nil, pw.err
		}
		w.raw("properties", props.Bytes())
	case *String:
		w.intPtr("min_length", typed.MinLength)
		w.intPtr("max_length", typed.MaxLength)
		w.str("pattern", typed.Pattern)
	case *Number:
		if typed.Min != nil {
			w.value("min", *typed.Min)
		}
		if typed.Max != nil {
			w.value("max", *typed.Max)
		}
		if typed.Int {
			w.value("int", true)
		}
		if typed.Float {
			w.value("float", true)
		}
	case *List:
		elem, err := marshalType(typed.Element)
		if err != nil {
			return nil, err
		}
		w.raw("element_type", elem)
		w.intPtr("min_items", typed.MinItems)
		w.intPtr("max_items", typed.MaxItems)
	case *Enum:
		w.value("values", typed.Values)
	case *OneOf:
		list, err := marshalTypes(typed.Types)
		if err != nil {
			return nil, err
		}
		w.raw("types", list)
	case *Tuple:
		list, err := marshalTypes(typed.Items)
		if err != nil {
			return nil, err
		}
		w.raw("items", list)
	case *Map:
		if typed.Key != nil {
			key, err := marshalType(typed.Key)
			if err != nil {
				return nil, err
			}
			w.raw("key_type", key)
		}
		value, err := marshalType(typed.Value)
		if err != nil {
			return nil, err
		}
		w.raw("value_type", value)
	}

	if w.err != nil {
		return nil, w.err
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func marshalTypes(types []Type) (json.RawMessage, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for idx, t := range types {
		if idx > 0 {
			buf.WriteByte(',')
		}
		raw, err := marshalType(t)
		if err != nil {
			return nil, err
		}
		buf.Write(raw)
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

// objectWriter appends ordered key/value pairs to a JSON object body.
type objectWriter struct {
	buf   *bytes.Buffer
	count int
	err   error
}

func (w *objectWriter) key(name string) {
	if w.count > 0 {
		w.buf.WriteByte(',')
	}
	w.count++
	encoded, _ := json.Marshal(name)
	w.buf.Write(encoded)
	w.buf.WriteByte(':')
}

func (w *objectWriter) raw(name string, value []byte) {
	if w.err != nil {
		return
	}
	w.key(name)
	w.buf.Write(value)
}

func (w *objectWriter) value(name string, value any) {
	if w.err != nil {
		return
	}
	encoded, err := json.Marshal(value)
	if err != nil {
		w.err = fmt.Errorf("operator: marshal %s: %w", name, err)
		return
	}
	w.raw(name, encoded)
}

func (w *objectWriter) str(name, value string) {
	if value == "" {
		return
	}
	w.value(name, value)
}

func (w *objectWriter) intPtr(name string, value *int) {
	if value == nil {
		return
	}
	w.value(name, *value)
}
