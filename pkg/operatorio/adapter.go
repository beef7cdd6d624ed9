// Package operatorio exposes the operator IO form as host plugins: the
// OperatorIO panel, which renders a built-in annotation fixture, and the
// embeddable OperatorIOComponent, which renders a caller-supplied operator
// property. Both convert the property to an IO schema on every render and
// hand it to a form.SchemaIO.
package operatorio

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/goliatone/go-operatorio/pkg/form"
	"github.com/goliatone/go-operatorio/pkg/form/html"
	"github.com/goliatone/go-operatorio/pkg/form/tui"
	"github.com/goliatone/go-operatorio/pkg/ioschema"
	"github.com/goliatone/go-operatorio/pkg/logging"
	"github.com/goliatone/go-operatorio/pkg/operator"
	"github.com/goliatone/go-operatorio/pkg/plugins"
)

//go:embed fixtures/annotation.json
var annotationFixture []byte

// AnnotationFixture returns a copy of the embedded panel fixture.
func AnnotationFixture() []byte {
	return append([]byte(nil), annotationFixture...)
}

// Converter turns an operator property into an IO schema.
type Converter interface {
	Convert(prop *operator.Property) (*ioschema.Schema, error)
}

// ConverterFunc adapts a function to Converter.
type ConverterFunc func(prop *operator.Property) (*ioschema.Schema, error)

// Convert calls f.
func (f ConverterFunc) Convert(prop *operator.Property) (*ioschema.Schema, error) {
	return f(prop)
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithConverter replaces the default ioschema converter.
func WithConverter(c Converter) Option {
	return func(a *Adapter) {
		if c != nil {
			a.converter = c
		}
	}
}

// WithSchemaIO replaces the form component used for rendering.
func WithSchemaIO(s *form.SchemaIO) Option {
	return func(a *Adapter) {
		if s != nil {
			a.schemaIO = s
		}
	}
}

// WithRenderer selects the renderer by name. Empty means the SchemaIO
// default.
func WithRenderer(name string) Option {
	return func(a *Adapter) {
		a.renderer = name
	}
}

// WithFixture replaces the panel fixture document.
func WithFixture(doc []byte) Option {
	return func(a *Adapter) {
		a.fixture = append([]byte(nil), doc...)
	}
}

// WithLogger sets the logger backing the default log sink.
func WithLogger(l *zap.Logger) Option {
	return func(a *Adapter) {
		a.logger = logging.OrNop(l)
	}
}

// WithLogSink replaces the panel change handler.
func WithLogSink(sink form.ChangeFunc) Option {
	return func(a *Adapter) {
		a.sink = sink
	}
}

// Adapter renders the operator IO plugins.
type Adapter struct {
	converter Converter
	schemaIO  *form.SchemaIO
	renderer  string
	fixture   []byte
	logger    *zap.Logger
	sink      form.ChangeFunc
}

// New builds an adapter. Without WithSchemaIO it renders through a registry
// holding the HTML and terminal renderers, HTML being the default.
func New(options ...Option) (*Adapter, error) {
	a := &Adapter{
		converter: ioschema.NewConverter(),
		fixture:   annotationFixture,
		logger:    zap.NewNop(),
	}
	for _, opt := range options {
		if opt != nil {
			opt(a)
		}
	}

	if a.schemaIO == nil {
		htmlRenderer, err := html.New()
		if err != nil {
			return nil, fmt.Errorf("operatorio: %w", err)
		}
		registry, err := form.NewRegistry(htmlRenderer, tui.New())
		if err != nil {
			return nil, fmt.Errorf("operatorio: %w", err)
		}
		a.schemaIO = form.NewSchemaIO(registry, html.Name)
	}
	if a.sink == nil {
		a.sink = ZapSink(a.logger)
	}
	return a, nil
}

// ZapSink logs every form value at info level.
func ZapSink(l *zap.Logger) form.ChangeFunc {
	l = logging.OrNop(l)
	return func(value map[string]any) {
		l.Info("operator io changed", zap.Any("value", value))
	}
}

var errAdapterNil = errors.New("operatorio: adapter is nil")

// Panel renders the fixture form with the log sink as change handler. Parse
// and conversion errors propagate to the caller.
func (a *Adapter) Panel(ctx context.Context, props plugins.Props) (form.Output, error) {
	if a == nil {
		return form.Output{}, errAdapterNil
	}
	prop, err := operator.FromJSON(a.fixture)
	if err != nil {
		return form.Output{}, fmt.Errorf("operatorio: fixture: %w", err)
	}
	return a.render(ctx, prop, a.sink, props.Values)
}

// Component renders props.Schema and forwards props.OnChange untouched.
func (a *Adapter) Component(ctx context.Context, props plugins.Props) (form.Output, error) {
	return a.render(ctx, props.Schema, props.OnChange, props.Values)
}

func (a *Adapter) render(ctx context.Context, prop *operator.Property, onChange form.ChangeFunc, values map[string]any) (form.Output, error) {
	if a == nil {
		return form.Output{}, errAdapterNil
	}
	schema, err := a.converter.Convert(prop)
	if err != nil {
		return form.Output{}, err
	}
	return a.schemaIO.Render(ctx, a.renderer, form.Props{
		Schema:   schema,
		OnChange: onChange,
		Values:   values,
	})
}
