package server_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/goliatone/go-operatorio/pkg/form"
	"github.com/goliatone/go-operatorio/pkg/operatorio"
	"github.com/goliatone/go-operatorio/pkg/plugins"
	"github.com/goliatone/go-operatorio/pkg/server"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	adapter, err := operatorio.New()
	require.NoError(t, err)

	reg := plugins.NewRegistry()
	require.NoError(t, operatorio.Register(reg, adapter))
	reg.MustRegister(plugins.Descriptor{
		Name: "ImagesOnly",
		Type: plugins.Panel,
		Component: func(context.Context, plugins.Props) (form.Output, error) {
			return form.Output{ContentType: "text/plain", Body: []byte("images")}, nil
		},
		Activator: func(actx plugins.ActivationContext) bool { return actx.View == "images" },
	})

	srv, err := server.New(reg, server.WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func get(t *testing.T, url string) (*http.Response, string) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func post(t *testing.T, url, payload string) (*http.Response, string) {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(payload))
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t)
	resp, body := get(t, ts.URL+"/healthz")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, body)
}

func TestListPlugins(t *testing.T) {
	ts := newTestServer(t)

	resp, body := get(t, ts.URL+"/plugins?view=video")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var views []struct {
		Name   string `json:"name"`
		Label  string `json:"label"`
		Type   string `json:"type"`
		Active bool   `json:"active"`
	}
	require.NoError(t, json.Unmarshal([]byte(body), &views))
	require.Len(t, views, 3)
	assert.Equal(t, "OperatorIO", views[0].Name)
	assert.Equal(t, "Operator IO", views[0].Label)
	assert.Equal(t, "Panel", views[0].Type)
	assert.True(t, views[0].Active)
	assert.Equal(t, "OperatorIOComponent", views[1].Name)
	assert.Equal(t, "Component", views[1].Type)
	assert.False(t, views[2].Active, "activator rejects the video view")

	resp, body = get(t, ts.URL+"/plugins?type=component")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal([]byte(body), &views))
	require.Len(t, views, 1)
	assert.Equal(t, "OperatorIOComponent", views[0].Name)

	resp, _ = get(t, ts.URL+"/plugins?type=widget")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRenderPanel(t *testing.T) {
	ts := newTestServer(t)

	resp, body := get(t, ts.URL+"/plugins/OperatorIO")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.HasPrefix(resp.Header.Get("Content-Type"), "text/html"))
	assert.Contains(t, body, `data-path="label_field"`)
}

func TestRenderComponent(t *testing.T) {
	ts := newTestServer(t)

	resp, body := post(t, ts.URL+"/plugins/OperatorIOComponent/render",
		`{"schema":{"type":"object","properties":{"name":{"type":"string"}}},"values":{"name":"sample"}}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Contains(t, body, `data-path="name"`)
	assert.Contains(t, body, `value="sample"`)
}

func TestRenderErrors(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
	}{
		{"unknown plugin", http.MethodGet, "/plugins/Nope", "", http.StatusNotFound},
		{"inactive plugin", http.MethodGet, "/plugins/ImagesOnly?view=video", "", http.StatusConflict},
		{"component without schema", http.MethodGet, "/plugins/OperatorIOComponent", "", http.StatusUnprocessableEntity},
		{"malformed schema", http.MethodPost, "/plugins/OperatorIOComponent/render", `{"schema":{"type":"array"}}`, http.StatusUnprocessableEntity},
		{"bad body", http.MethodPost, "/plugins/OperatorIOComponent/render", `{"schema":`, http.StatusBadRequest},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var (
				resp *http.Response
				body string
			)
			if tc.method == http.MethodPost {
				resp, body = post(t, ts.URL+tc.path, tc.body)
			} else {
				resp, body = get(t, ts.URL+tc.path)
			}
			assert.Equal(t, tc.status, resp.StatusCode, body)

			var payload map[string]string
			require.NoError(t, json.Unmarshal([]byte(body), &payload))
			assert.NotEmpty(t, payload["error"])
		})
	}

	resp, body := get(t, ts.URL+"/plugins/ImagesOnly?view=images")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "images", body)
}

func TestMetrics(t *testing.T) {
	ts := newTestServer(t)
	get(t, ts.URL+"/plugins/OperatorIO")
	get(t, ts.URL+"/plugins/Nope")

	resp, body := get(t, ts.URL+"/metrics")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `operatorio_plugin_renders_total{outcome="ok",plugin="OperatorIO"} 1`)
	assert.Contains(t, body, `operatorio_plugin_renders_total{outcome="not_found",plugin="unknown"} 1`)
	assert.Contains(t, body, "operatorio_plugin_render_duration_seconds")
}

func TestMetrics_UnknownPluginsShareOneSeries(t *testing.T) {
	ts := newTestServer(t)
	get(t, ts.URL+"/plugins/random-a1")
	get(t, ts.URL+"/plugins/random-b2")
	post(t, ts.URL+"/plugins/random-c3/render", `{"schema":{"type":"array"}}`)

	_, body := get(t, ts.URL+"/metrics")
	assert.Contains(t, body, `operatorio_plugin_renders_total{outcome="not_found",plugin="unknown"} 2`)
	assert.Contains(t, body, `operatorio_plugin_renders_total{outcome="invalid",plugin="unknown"} 1`)
	for _, name := range []string{"random-a1", "random-b2", "random-c3"} {
		assert.NotContains(t, body, name)
	}
}

func TestNew_RequiresRegistry(t *testing.T) {
	_, err := server.New(nil)
	assert.Error(t, err)
}
