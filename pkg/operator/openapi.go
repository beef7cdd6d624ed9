package operator

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
)

var (
	// ErrSchemaNotFound is returned when an OpenAPI component is missing.
	ErrSchemaNotFound = errors.New("operator: openapi schema not found")
	// ErrCyclicSchema is returned when a schema references itself, directly
	// or through its descendants. Property trees are finite.
	ErrCyclicSchema = errors.New("operator: cyclic openapi schema")
)

// FromOpenAPI converts a resolved kin-openapi schema into a property tree.
// Object properties are emitted in name order since OpenAPI maps carry none.
func FromOpenAPI(ref *openapi3.SchemaRef) (*Property, error) {
	return newOpenAPIWalker().property(ref, "$")
}

// LoadOpenAPIComponent loads the document at location (file path or URL) and
// converts components.schemas[name].
func LoadOpenAPIComponent(ctx context.Context, location, name string) (*Property, error) {
	loader := openapi3.NewLoader()
	loader.Context = ctx
	loader.IsExternalRefsAllowed = true

	var (
		doc *openapi3.T
		err error
	)
	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
		var parsed *url.URL
		if parsed, err = url.Parse(location); err != nil {
			return nil, fmt.Errorf("operator: parse openapi url: %w", err)
		}
		doc, err = loader.LoadFromURI(parsed)
	} else {
		doc, err = loader.LoadFromFile(location)
	}
	if err != nil {
		return nil, fmt.Errorf("operator: load openapi %q: %w", location, err)
	}
	return OpenAPIComponent(doc, name)
}

// OpenAPIComponent converts a named component schema from a loaded document.
func OpenAPIComponent(doc *openapi3.T, name string) (*Property, error) {
	if doc == nil || doc.Components == nil {
		return nil, fmt.Errorf("%w: %q", ErrSchemaNotFound, name)
	}
	ref, ok := doc.Components.Schemas[name]
	if !ok || ref == nil {
		return nil, fmt.Errorf("%w: %q", ErrSchemaNotFound, name)
	}
	return newOpenAPIWalker().property(ref, "$")
}

// openAPIWalker converts schemas depth first and remembers the schemas on
// the current path so self references surface as ErrCyclicSchema.
type openAPIWalker struct {
	active map[*openapi3.Schema]string
}

func newOpenAPIWalker() *openAPIWalker {
	return &openAPIWalker{active: make(map[*openapi3.Schema]string)}
}

func (w *openAPIWalker) property(ref *openapi3.SchemaRef, path string) (*Property, error) {
	if ref == nil || ref.Value == nil {
		return nil, fmt.Errorf("%w: %s has no schema", ErrUnknownType, path)
	}
	src := ref.Value
	if first, ok := w.active[src]; ok {
		return nil, fmt.Errorf("%w: %s repeats %s", ErrCyclicSchema, path, first)
	}
	w.active[src] = path
	defer delete(w.active, src)

	t, err := w.typeOf(src, path)
	if err != nil {
		return nil, err
	}
	prop := &Property{
		Type:        t,
		Label:       src.Title,
		Description: src.Description,
		Default:     src.Default,
	}
	if src.ReadOnly {
		prop.View = &View{ReadOnly: true}
	}
	return prop, nil
}

func (w *openAPIWalker) typeOf(src *openapi3.Schema, path string) (Type, error) {
	if len(src.Enum) > 0 {
		return &Enum{Values: append([]any(nil), src.Enum...)}, nil
	}
	if len(src.OneOf) > 0 {
		types := make([]Type, 0, len(src.OneOf))
		for idx, option := range src.OneOf {
			child, err := w.property(option, fmt.Sprintf("%s.oneOf[%d]", path, idx))
			if err != nil {
				return nil, err
			}
			types = append(types, child.Type)
		}
		return &OneOf{Types: types}, nil
	}

	switch firstType(src.Type) {
	case openapi3.TypeObject, "":
		if len(src.Properties) == 0 && src.AdditionalProperties.Schema != nil {
			value, err := w.property(src.AdditionalProperties.Schema, path+".additionalProperties")
			if err != nil {
				return nil, err
			}
			return &Map{Key: &String{}, Value: value.Type}, nil
		}
		obj := &Object{}
		names := make([]string, 0, len(src.Properties))
		for name := range src.Properties {
			names = append(names, name)
		}
		sort.Strings(names)
		required := make(map[string]struct{}, len(src.Required))
		for _, name := range src.Required {
			required[name] = struct{}{}
		}
		for _, name := range names {
			child, err := w.property(src.Properties[name], path+".properties."+name)
			if err != nil {
				return nil, err
			}
			if _, ok := required[name]; ok {
				child.Required = true
			}
			obj.Properties = append(obj.Properties, NamedProperty{Name: name, Property: child})
		}
		return obj, nil
	case openapi3.TypeString:
		if strings.EqualFold(src.Format, "binary") || strings.EqualFold(src.Format, "file") {
			return &File{}, nil
		}
		str := &String{Pattern: src.Pattern}
		if src.MinLength > 0 {
			value := int(src.MinLength)
			str.MinLength = &value
		}
		if src.MaxLength != nil {
			value := int(*src.MaxLength)
			str.MaxLength = &value
		}
		return str, nil
	case openapi3.TypeBoolean:
		return &Boolean{}, nil
	case openapi3.TypeInteger, openapi3.TypeNumber:
		num := &Number{Int: firstType(src.Type) == openapi3.TypeInteger}
		num.Float = !num.Int
		if src.Min != nil {
			value := *src.Min
			num.Min = &value
		}
		if src.Max != nil {
			value := *src.Max
			num.Max = &value
		}
		return num, nil
	case openapi3.TypeArray:
		elem, err := w.property(src.Items, path+".items")
		if err != nil {
			return nil, err
		}
		list := &List{Element: elem.Type}
		if src.MinItems > 0 {
			value := int(src.MinItems)
			list.MinItems = &value
		}
		if src.MaxItems != nil {
			value := int(*src.MaxItems)
			list.MaxItems = &value
		}
		return list, nil
	}
	return nil, fmt.Errorf("%w %q at %s", ErrUnknownType, firstType(src.Type), path)
}

func firstType(types *openapi3.Types) string {
	if types == nil {
		return ""
	}
	values := types.Slice()
	for _, value := range values {
		if value != openapi3.TypeNull {
			return value
		}
	}
	return ""
}
