// Package form renders IO schemas as forms. SchemaIO is the entry point: it
// resolves a Renderer from a Registry and hands it the schema, the current
// values and the change handler. Interactive renderers (see form/tui) call
// OnChange after every committed edit; static ones (form/html) never do.
package form

import (
	"context"

	"github.com/goliatone/go-operatorio/pkg/ioschema"
)

// ChangeFunc receives the full form value after every edit.
type ChangeFunc func(value map[string]any)

// Props are the inputs of a form render.
type Props struct {
	Schema   *ioschema.Schema
	OnChange ChangeFunc
	// Values pre-populates controls keyed by property name; nested objects
	// are nested maps.
	Values map[string]any
	// Errors surfaces validation feedback keyed by dotted field path.
	Errors map[string][]string
}

// Output is a rendered form together with its media type.
type Output struct {
	ContentType string
	Body        []byte
}

// Renderer converts props into a byte representation.
type Renderer interface {
	Name() string
	ContentType() string
	Render(ctx context.Context, props Props) ([]byte, error)
}
