package form

import (
	"context"
	"errors"
	"fmt"
)

// ErrSchemaRequired is returned when props carry no schema.
var ErrSchemaRequired = errors.New("form: schema is required")

// SchemaIO is the generic schema-driven form component.
type SchemaIO struct {
	registry        *Registry
	defaultRenderer string
}

// NewSchemaIO binds a registry and the renderer used when a render call does
// not name one.
func NewSchemaIO(registry *Registry, defaultRenderer string) *SchemaIO {
	return &SchemaIO{registry: registry, defaultRenderer: defaultRenderer}
}

// Renderers lists the available renderer names.
func (s *SchemaIO) Renderers() []string {
	if s == nil || s.registry == nil {
		return nil
	}
	return s.registry.List()
}

// Render draws props.Schema with the named renderer (or the default). The
// props, including OnChange, reach the renderer untouched.
func (s *SchemaIO) Render(ctx context.Context, rendererName string, props Props) (Output, error) {
	if ctx == nil {
		return Output{}, errors.New("form: context is required")
	}
	if err := ctx.Err(); err != nil {
		return Output{}, err
	}
	if props.Schema == nil {
		return Output{}, ErrSchemaRequired
	}

	renderer, err := s.rendererFor(rendererName)
	if err != nil {
		return Output{}, err
	}

	body, err := renderer.Render(ctx, props)
	if err != nil {
		return Output{}, fmt.Errorf("form: render %s: %w", renderer.Name(), err)
	}
	return Output{ContentType: renderer.ContentType(), Body: body}, nil
}

func (s *SchemaIO) rendererFor(name string) (Renderer, error) {
	if s == nil || s.registry == nil {
		return nil, errors.New("form: renderer registry is nil")
	}

	target := name
	if target == "" {
		target = s.defaultRenderer
	}
	if target != "" {
		renderer, err := s.registry.Get(target)
		if err == nil {
			return renderer, nil
		}
		if name != "" {
			return nil, err
		}
	}

	names := s.registry.List()
	if len(names) == 0 {
		return nil, errors.New("form: no renderers registered")
	}
	return s.registry.Get(names[0])
}
