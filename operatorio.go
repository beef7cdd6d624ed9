// Package operatorio is the top-level entry point for rendering operator
// property schemas as forms. It re-exports the types most callers need and
// wires the default renderers so a single call can produce a form.
package operatorio

import (
	"context"
	"io/fs"

	"github.com/goliatone/go-operatorio/pkg/form"
	"github.com/goliatone/go-operatorio/pkg/form/html"
	"github.com/goliatone/go-operatorio/pkg/form/tui"
	"github.com/goliatone/go-operatorio/pkg/ioschema"
	"github.com/goliatone/go-operatorio/pkg/operator"
	adapter "github.com/goliatone/go-operatorio/pkg/operatorio"
	"github.com/goliatone/go-operatorio/pkg/plugins"
)

// Property is an operator property tree.
type Property = operator.Property

// Schema is the IO schema consumed by renderers.
type Schema = ioschema.Schema

// Props are the render-time inputs shared by every plugin.
type Props = plugins.Props

// Output is a rendered form with its content type.
type Output = form.Output

// ChangeFunc receives a snapshot of the form value after each edit.
type ChangeFunc = form.ChangeFunc

// Adapter renders operator schemas through SchemaIO.
type Adapter = adapter.Adapter

// Renderer names accepted by NewAdapter and Render.
const (
	RendererHTML = html.Name
	RendererTUI  = tui.Name
)

// SchemaIOOption configures NewDefaultSchemaIO.
type SchemaIOOption func(*rendererOptions)

type rendererOptions struct {
	html []html.Option
	tui  []tui.Option
}

// WithHTMLOptions passes options to the HTML renderer.
func WithHTMLOptions(options ...html.Option) SchemaIOOption {
	return func(o *rendererOptions) {
		o.html = append(o.html, options...)
	}
}

// WithTUIOptions passes options to the terminal renderer.
func WithTUIOptions(options ...tui.Option) SchemaIOOption {
	return func(o *rendererOptions) {
		o.tui = append(o.tui, options...)
	}
}

// NewDefaultSchemaIO builds a SchemaIO over the HTML and terminal renderers.
// defaultRenderer picks the one used when a call names none.
func NewDefaultSchemaIO(defaultRenderer string, options ...SchemaIOOption) (*form.SchemaIO, error) {
	var opts rendererOptions
	for _, opt := range options {
		if opt != nil {
			opt(&opts)
		}
	}
	htmlRenderer, err := html.New(opts.html...)
	if err != nil {
		return nil, err
	}
	registry, err := form.NewRegistry(htmlRenderer, tui.New(opts.tui...))
	if err != nil {
		return nil, err
	}
	return form.NewSchemaIO(registry, defaultRenderer), nil
}

// AdapterOption configures NewAdapter.
type AdapterOption = adapter.Option

// Adapter options re-exported for callers of the root package.
var (
	WithSchemaIO  = adapter.WithSchemaIO
	WithLogger    = adapter.WithLogger
	WithLogSink   = adapter.WithLogSink
	WithConverter = adapter.WithConverter
)

// NewAdapter returns an adapter bound to the named renderer. Extra options
// are applied after the renderer is set.
func NewAdapter(renderer string, options ...AdapterOption) (*Adapter, error) {
	opts := append([]AdapterOption{adapter.WithRenderer(renderer)}, options...)
	return adapter.New(opts...)
}

// NewPluginRegistry returns a plugin registry holding the OperatorIO panel
// and component backed by a.
func NewPluginRegistry(a *Adapter) (*plugins.Registry, error) {
	reg := plugins.NewRegistry()
	if err := adapter.Register(reg, a); err != nil {
		return nil, err
	}
	return reg, nil
}

// Convert maps a property tree onto an IO schema with the default view
// registry and labeler.
func Convert(prop *Property) (*Schema, error) {
	return ioschema.FromOperator(prop)
}

// Render converts prop and draws it with the named renderer.
func Render(ctx context.Context, renderer string, prop *Property, onChange ChangeFunc) (Output, error) {
	a, err := NewAdapter(renderer)
	if err != nil {
		return Output{}, err
	}
	return a.Component(ctx, Props{Schema: prop, OnChange: onChange})
}

// EmbeddedTemplates exposes the HTML renderer templates.
func EmbeddedTemplates() fs.FS {
	return html.TemplatesFS()
}
