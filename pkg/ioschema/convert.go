package ioschema

import (
	"errors"
	"fmt"

	"github.com/goliatone/go-operatorio/pkg/operator"
)

var (
	// ErrNilProperty is returned for a missing property node.
	ErrNilProperty = errors.New("ioschema: property is nil")
	// ErrMissingType is returned when a property has no type.
	ErrMissingType = errors.New("ioschema: property type is missing")
	// ErrUnsupportedType is returned for types the converter does not know.
	ErrUnsupportedType = errors.New("ioschema: unsupported type")
	// ErrEmptyEnum is returned for an enum without values.
	ErrEmptyEnum = errors.New("ioschema: enum has no values")
	// ErrInvalidContainer is returned for lists, tuples, unions and maps
	// missing their member types.
	ErrInvalidContainer = errors.New("ioschema: container type is incomplete")
)

// ConversionError locates a conversion failure inside the property tree.
type ConversionError struct {
	Path string
	Err  error
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("%v at %s", e.Err, e.Path)
}

func (e *ConversionError) Unwrap() error {
	return e.Err
}

// Converter turns operator property trees into IO schemas.
type Converter struct {
	views   *ViewRegistry
	labeler Labeler
}

// Option configures a Converter.
type Option func(*Converter)

// WithViewRegistry overrides the default view resolution.
func WithViewRegistry(registry *ViewRegistry) Option {
	return func(c *Converter) {
		if registry != nil {
			c.views = registry
		}
	}
}

// WithLabeler overrides how labels are derived from property names.
func WithLabeler(labeler Labeler) Option {
	return func(c *Converter) {
		if labeler != nil {
			c.labeler = labeler
		}
	}
}

// NewConverter constructs a Converter with the built-in view registry.
func NewConverter(options ...Option) *Converter {
	c := &Converter{
		views:   NewViewRegistry(),
		labeler: DefaultLabeler,
	}
	for _, opt := range options {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

var defaultConverter = NewConverter()

// FromOperator converts a property tree with the default converter.
func FromOperator(prop *operator.Property) (*Schema, error) {
	return defaultConverter.Convert(prop)
}

// Convert returns a new IO schema derived from prop. prop is not modified.
func (c *Converter) Convert(prop *operator.Property) (*Schema, error) {
	return c.property(prop, "", "$")
}

func (c *Converter) property(prop *operator.Property, name, path string) (*Schema, error) {
	if prop == nil {
		return nil, &ConversionError{Path: path, Err: ErrNilProperty}
	}
	if prop.Type == nil {
		return nil, &ConversionError{Path: path, Err: ErrMissingType}
	}

	out := &Schema{
		Label:        prop.Label,
		Description:  prop.Description,
		Required:     prop.Required,
		Default:      cloneValue(prop.Default),
		Invalid:      prop.Invalid,
		ErrorMessage: prop.ErrorMessage,
	}
	if out.Label == "" && name != "" {
		out.Label = c.labeler(name)
	}
	if err := c.fillType(out, prop.Type, path); err != nil {
		return nil, err
	}

	component, _ := c.views.Resolve(prop)
	out.View = View{Component: component}
	if view := prop.View; view != nil {
		out.View.Label = view.Label
		out.View.Description = view.Description
		out.View.Caption = view.Caption
		out.View.Placeholder = view.Placeholder
		out.View.ReadOnly = view.ReadOnly
		out.View.Options = cloneOptions(view.Options)
	}
	return out, nil
}

// member converts a bare type used inside a container.
func (c *Converter) member(t operator.Type, path string) (*Schema, error) {
	if t == nil {
		return nil, &ConversionError{Path: path, Err: ErrInvalidContainer}
	}
	return c.property(&operator.Property{Type: t}, "", path)
}

func (c *Converter) fillType(out *Schema, t operator.Type, path string) error {
	switch typed := t.(type) {
	case *operator.Object:
		out.Type = TypeObject
		out.Properties = make(map[string]*Schema, len(typed.Properties))
		out.Order = make([]string, 0, len(typed.Properties))
		for _, entry := range typed.Properties {
			child, err := c.property(entry.Property, entry.Name, path+".properties."+entry.Name)
			if err != nil {
				return err
			}
			if _, dup := out.Properties[entry.Name]; !dup {
				out.Order = append(out.Order, entry.Name)
			}
			out.Properties[entry.Name] = child
		}
	case *operator.String:
		out.Type = TypeString
		out.MinLength = copyInt(typed.MinLength)
		out.MaxLength = copyInt(typed.MaxLength)
		out.Pattern = typed.Pattern
	case *operator.Boolean:
		out.Type = TypeBoolean
	case *operator.Number:
		out.Type = TypeNumber
		if typed.Int {
			out.Type = TypeInteger
		}
		out.Minimum = copyFloat(typed.Min)
		out.Maximum = copyFloat(typed.Max)
	case *operator.List:
		items, err := c.member(typed.Element, path+".items")
		if err != nil {
			return err
		}
		out.Type = TypeArray
		out.Items = items
		out.MinItems = copyInt(typed.MinItems)
		out.MaxItems = copyInt(typed.MaxItems)
	case *operator.Enum:
		if len(typed.Values) == 0 {
			return &ConversionError{Path: path, Err: ErrEmptyEnum}
		}
		out.Type = enumType(typed.Values)
		out.Enum = append([]any(nil), typed.Values...)
	case *operator.OneOf:
		if len(typed.Types) == 0 {
			return &ConversionError{Path: path, Err: ErrInvalidContainer}
		}
		out.Type = TypeOneOf
		for idx, member := range typed.Types {
			child, err := c.member(member, fmt.Sprintf("%s.types[%d]", path, idx))
			if err != nil {
				return err
			}
			out.Types = append(out.Types, child)
		}
	case *operator.Tuple:
		if len(typed.Items) == 0 {
			return &ConversionError{Path: path, Err: ErrInvalidContainer}
		}
		out.Type = TypeArray
		for idx, member := range typed.Items {
			child, err := c.member(member, fmt.Sprintf("%s.prefixItems[%d]", path, idx))
			if err != nil {
				return err
			}
			out.PrefixItems = append(out.PrefixItems, child)
		}
	case *operator.Map:
		if typed.Key != nil && typed.Key.Kind() != operator.KindString {
			return &ConversionError{Path: path + ".key", Err: fmt.Errorf("%w: map keys must be strings", ErrUnsupportedType)}
		}
		value, err := c.member(typed.Value, path+".additionalProperties")
		if err != nil {
			return err
		}
		out.Type = TypeObject
		out.AdditionalProperties = value
	case *operator.File:
		out.Type = TypeFile
	default:
		return &ConversionError{Path: path, Err: fmt.Errorf("%w %T", ErrUnsupportedType, t)}
	}
	return nil
}

// enumType is number when every choice is numeric, string otherwise.
func enumType(values []any) string {
	for _, value := range values {
		switch value.(type) {
		case int, int64, float64:
		default:
			return TypeString
		}
	}
	return TypeNumber
}

func copyInt(v *int) *int {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}

func copyFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}

func cloneOptions(src map[string]any) map[string]any {
	if len(src) == 0 {
		return nil
	}
	out := make(map[string]any, len(src))
	for key, value := range src {
		out[key] = cloneValue(value)
	}
	return out
}

// cloneValue copies the maps and slices a decoded default or option may
// hold. Scalars are returned as is.
func cloneValue(v any) any {
	switch value := v.(type) {
	case map[string]any:
		if value == nil {
			return value
		}
		out := make(map[string]any, len(value))
		for key, item := range value {
			out[key] = cloneValue(item)
		}
		return out
	case []any:
		if value == nil {
			return value
		}
		out := make([]any, len(value))
		for i, item := range value {
			out[i] = cloneValue(item)
		}
		return out
	case []string:
		return append([]string(nil), value...)
	default:
		return v
	}
}
