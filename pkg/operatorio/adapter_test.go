package operatorio_test

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/goliatone/go-operatorio/pkg/form"
	"github.com/goliatone/go-operatorio/pkg/form/tui"
	"github.com/goliatone/go-operatorio/pkg/ioschema"
	"github.com/goliatone/go-operatorio/pkg/operator"
	"github.com/goliatone/go-operatorio/pkg/operatorio"
	"github.com/goliatone/go-operatorio/pkg/plugins"
)

type captureRenderer struct {
	props []form.Props
}

func (c *captureRenderer) Name() string        { return "capture" }
func (c *captureRenderer) ContentType() string { return "text/plain" }
func (c *captureRenderer) Render(_ context.Context, props form.Props) ([]byte, error) {
	c.props = append(c.props, props)
	return []byte("rendered"), nil
}

type countingConverter struct {
	calls   int
	results []*ioschema.Schema
}

func (c *countingConverter) Convert(prop *operator.Property) (*ioschema.Schema, error) {
	c.calls++
	schema, err := ioschema.FromOperator(prop)
	if err == nil {
		c.results = append(c.results, schema)
	}
	return schema, err
}

func captureAdapter(t *testing.T, opts ...operatorio.Option) (*operatorio.Adapter, *captureRenderer, *countingConverter) {
	t.Helper()
	capture := &captureRenderer{}
	registry, err := form.NewRegistry(capture)
	require.NoError(t, err)
	conv := &countingConverter{}

	base := []operatorio.Option{
		operatorio.WithSchemaIO(form.NewSchemaIO(registry, capture.Name())),
		operatorio.WithConverter(conv),
	}
	adapter, err := operatorio.New(append(base, opts...)...)
	require.NoError(t, err)
	return adapter, capture, conv
}

func funcPointer(fn any) uintptr {
	return reflect.ValueOf(fn).Pointer()
}

func TestPanel_ConvertsFixtureOnce(t *testing.T) {
	adapter, capture, conv := captureAdapter(t)

	out, err := adapter.Panel(context.Background(), plugins.Props{})
	require.NoError(t, err)
	assert.Equal(t, "rendered", string(out.Body))
	assert.Equal(t, "text/plain", out.ContentType)

	require.Equal(t, 1, conv.calls)
	require.Len(t, capture.props, 1)
	assert.Same(t, conv.results[0], capture.props[0].Schema, "schema must reach the renderer unmodified")
	assert.NotNil(t, capture.props[0].OnChange, "panel installs the log sink")
	assert.Equal(t, "Label field", capture.props[0].Schema.Properties["label_field"].DisplayLabel())
}

func TestComponent_ForwardsOnChangeUnmodified(t *testing.T) {
	adapter, capture, conv := captureAdapter(t)

	var seen []map[string]any
	onChange := form.ChangeFunc(func(v map[string]any) { seen = append(seen, v) })
	prop := operator.MustFromJSON([]byte(`{"type":"object","properties":{"name":{"type":"string"}}}`))

	_, err := adapter.Component(context.Background(), plugins.Props{Schema: prop, OnChange: onChange})
	require.NoError(t, err)

	require.Equal(t, 1, conv.calls)
	require.Len(t, capture.props, 1)
	assert.Same(t, conv.results[0], capture.props[0].Schema)
	assert.Equal(t, funcPointer(onChange), funcPointer(capture.props[0].OnChange))

	capture.props[0].OnChange(map[string]any{"name": "x"})
	assert.Equal(t, []map[string]any{{"name": "x"}}, seen)
}

func TestComponent_RecomputesEveryRender(t *testing.T) {
	adapter, capture, conv := captureAdapter(t)
	prop := operator.MustFromJSON([]byte(`{"type":"object","properties":{}}`))

	for i := 0; i < 3; i++ {
		_, err := adapter.Component(context.Background(), plugins.Props{Schema: prop})
		require.NoError(t, err)
	}
	assert.Equal(t, 3, conv.calls)
	require.Len(t, capture.props, 3)
	assert.NotSame(t, capture.props[0].Schema, capture.props[1].Schema)
}

func TestComponent_ConversionFailurePropagates(t *testing.T) {
	adapter, capture, _ := captureAdapter(t)

	tests := []struct {
		name string
		prop *operator.Property
		want error
	}{
		{"nil schema", nil, ioschema.ErrNilProperty},
		{"missing type", &operator.Property{}, ioschema.ErrMissingType},
		{"empty enum", operator.NewProperty(&operator.Enum{}), ioschema.ErrEmptyEnum},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := adapter.Component(context.Background(), plugins.Props{Schema: tc.prop})
			require.ErrorIs(t, err, tc.want)
		})
	}
	assert.Empty(t, capture.props, "renderer must not run after a failed conversion")
}

func TestPanel_MalformedFixture(t *testing.T) {
	adapter, capture, conv := captureAdapter(t, operatorio.WithFixture([]byte(`{"type":`)))

	_, err := adapter.Panel(context.Background(), plugins.Props{})
	require.ErrorIs(t, err, operator.ErrInvalidDocument)
	assert.Zero(t, conv.calls)
	assert.Empty(t, capture.props)
}

func TestPanel_EmptyFixtureRendersNoFieldsAndLogsNothing(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	adapter, err := operatorio.New(
		operatorio.WithFixture([]byte(`{"type":"object","properties":{}}`)),
		operatorio.WithLogger(zap.New(core)),
	)
	require.NoError(t, err)

	out, err := adapter.Panel(context.Background(), plugins.Props{})
	require.NoError(t, err)

	body := string(out.Body)
	assert.Contains(t, body, `data-component="ObjectView"`)
	assert.NotContains(t, body, "operatorio-field")
	assert.Zero(t, logs.Len())
}

type scriptedDriver struct {
	inputs []string
}

func (d *scriptedDriver) Input(context.Context, tui.InputConfig) (string, error) {
	if len(d.inputs) == 0 {
		return "", errors.New("no input scripted")
	}
	next := d.inputs[0]
	d.inputs = d.inputs[1:]
	return next, nil
}
func (d *scriptedDriver) Confirm(context.Context, tui.ConfirmConfig) (bool, error) { return false, nil }
func (d *scriptedDriver) Select(context.Context, tui.SelectConfig) (int, error)    { return 0, nil }
func (d *scriptedDriver) MultiSelect(context.Context, tui.SelectConfig) ([]int, error) {
	return nil, nil
}
func (d *scriptedDriver) TextArea(context.Context, tui.TextAreaConfig) (string, error) {
	return "", nil
}
func (d *scriptedDriver) Info(context.Context, string) error { return nil }

func TestPanel_LogsEveryChange(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	renderer := tui.New(tui.WithPromptDriver(&scriptedDriver{inputs: []string{"ground_truth", "0.5"}}))
	registry, err := form.NewRegistry(renderer)
	require.NoError(t, err)

	adapter, err := operatorio.New(
		operatorio.WithFixture([]byte(`{"type":"object","properties":{"label_field":{"type":"string"},"threshold":{"type":"number"}}}`)),
		operatorio.WithSchemaIO(form.NewSchemaIO(registry, tui.Name)),
		operatorio.WithLogger(zap.New(core)),
	)
	require.NoError(t, err)

	out, err := adapter.Panel(context.Background(), plugins.Props{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"label_field":"ground_truth","threshold":0.5}`, string(out.Body))

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "operator io changed", entries[0].Message)
	assert.Equal(t, map[string]any{"label_field": "ground_truth"}, entries[0].ContextMap()["value"])
	assert.Equal(t, map[string]any{"label_field": "ground_truth", "threshold": 0.5}, entries[1].ContextMap()["value"])
}

func TestPanel_CustomLogSink(t *testing.T) {
	var got []map[string]any
	renderer := tui.New(tui.WithPromptDriver(&scriptedDriver{inputs: []string{"x"}}))
	registry, err := form.NewRegistry(renderer)
	require.NoError(t, err)

	adapter, err := operatorio.New(
		operatorio.WithFixture([]byte(`{"type":"object","properties":{"name":{"type":"string"}}}`)),
		operatorio.WithSchemaIO(form.NewSchemaIO(registry, "")),
		operatorio.WithLogSink(func(v map[string]any) { got = append(got, v) }),
	)
	require.NoError(t, err)

	_, err = adapter.Panel(context.Background(), plugins.Props{})
	require.NoError(t, err)
	assert.Equal(t, []map[string]any{{"name": "x"}}, got)
}

func TestPanel_DefaultFixture(t *testing.T) {
	adapter, err := operatorio.New()
	require.NoError(t, err)

	out, err := adapter.Panel(context.Background(), plugins.Props{})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out.ContentType, "text/html"))

	body := string(out.Body)
	for _, path := range []string{"label_field", "label_type", "classes", "allow_additions", "confidence_threshold", "attributes"} {
		assert.Contains(t, body, `data-path="`+path+`"`)
	}
	assert.Less(t, strings.Index(body, `data-path="label_field"`), strings.Index(body, `data-path="attributes"`))
}

func TestAdapter_NilReceiver(t *testing.T) {
	var adapter *operatorio.Adapter

	_, err := adapter.Panel(context.Background(), plugins.Props{})
	assert.Error(t, err)
	_, err = adapter.Component(context.Background(), plugins.Props{})
	assert.Error(t, err)
}
