package operatorio_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-operatorio/pkg/operator"
	"github.com/goliatone/go-operatorio/pkg/operatorio"
	"github.com/goliatone/go-operatorio/pkg/plugins"
)

func TestRegister_AddsPanelAndComponent(t *testing.T) {
	adapter, capture, _ := captureAdapter(t)
	reg := plugins.NewRegistry()
	require.NoError(t, operatorio.Register(reg, adapter))

	list := reg.List()
	require.Len(t, list, 2)

	assert.Equal(t, operatorio.PanelName, list[0].Name)
	assert.Equal(t, "Operator IO", list[0].Label)
	assert.Equal(t, plugins.Panel, list[0].Type)

	assert.Equal(t, operatorio.ComponentName, list[1].Name)
	assert.Equal(t, "Operator IO Component", list[1].Label)
	assert.Equal(t, plugins.Component, list[1].Type)

	anywhere := plugins.ActivationContext{Dataset: "any", View: "grid"}
	assert.Len(t, reg.Active(anywhere, plugins.Panel), 1)
	assert.Len(t, reg.Active(anywhere, plugins.Component), 1)

	_, err := reg.Render(context.Background(), operatorio.PanelName, anywhere, plugins.Props{})
	require.NoError(t, err)
	_, err = reg.Render(context.Background(), operatorio.ComponentName, anywhere, plugins.Props{
		Schema: operator.MustFromJSON([]byte(`{"type":"object","properties":{}}`)),
	})
	require.NoError(t, err)
	assert.Len(t, capture.props, 2)
}

func TestRegister_Twice(t *testing.T) {
	adapter, _, _ := captureAdapter(t)
	reg := plugins.NewRegistry()
	require.NoError(t, operatorio.Register(reg, adapter))

	err := operatorio.Register(reg, adapter)
	require.ErrorIs(t, err, plugins.ErrDuplicate)
	assert.Len(t, reg.List(), 2, "first registration stays intact")
}

func TestRegister_RequiresArguments(t *testing.T) {
	adapter, _, _ := captureAdapter(t)
	assert.Error(t, operatorio.Register(nil, adapter))
	assert.Error(t, operatorio.Register(plugins.NewRegistry(), nil))
}

func TestAnnotationFixture_IsCopy(t *testing.T) {
	first := operatorio.AnnotationFixture()
	first[0] = 'x'
	assert.Equal(t, byte('{'), operatorio.AnnotationFixture()[0])
}
