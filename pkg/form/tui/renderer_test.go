package tui

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-operatorio/pkg/form"
	"github.com/goliatone/go-operatorio/pkg/ioschema"
	"github.com/goliatone/go-operatorio/pkg/operator"
)

type stubDriver struct {
	inputs       []string
	selectIdx    []int
	multiIdx     [][]int
	confirm      []bool
	textAreas    []string
	infoMessages []string
	prompts      []string
	inputPos     int
	selectPos    int
	multiPos     int
	confirmPos   int
	textPos      int
}

func (s *stubDriver) Input(_ context.Context, cfg InputConfig) (string, error) {
	s.prompts = append(s.prompts, cfg.Message)
	if s.inputPos >= len(s.inputs) {
		return "", errors.New("no input scripted")
	}
	val := s.inputs[s.inputPos]
	s.inputPos++
	return val, nil
}

func (s *stubDriver) Confirm(_ context.Context, cfg ConfirmConfig) (bool, error) {
	s.prompts = append(s.prompts, cfg.Message)
	if s.confirmPos >= len(s.confirm) {
		return false, errors.New("no confirm scripted")
	}
	val := s.confirm[s.confirmPos]
	s.confirmPos++
	return val, nil
}

func (s *stubDriver) Select(_ context.Context, cfg SelectConfig) (int, error) {
	s.prompts = append(s.prompts, cfg.Message)
	if s.selectPos >= len(s.selectIdx) {
		return -1, errors.New("no select scripted")
	}
	val := s.selectIdx[s.selectPos]
	s.selectPos++
	return val, nil
}

func (s *stubDriver) MultiSelect(_ context.Context, cfg SelectConfig) ([]int, error) {
	s.prompts = append(s.prompts, cfg.Message)
	if s.multiPos >= len(s.multiIdx) {
		return nil, errors.New("no multiselect scripted")
	}
	val := s.multiIdx[s.multiPos]
	s.multiPos++
	return val, nil
}

func (s *stubDriver) TextArea(_ context.Context, cfg TextAreaConfig) (string, error) {
	s.prompts = append(s.prompts, cfg.Message)
	if s.textPos >= len(s.textAreas) {
		return "", errors.New("no textarea scripted")
	}
	val := s.textAreas[s.textPos]
	s.textPos++
	return val, nil
}

func (s *stubDriver) Info(_ context.Context, msg string) error {
	s.infoMessages = append(s.infoMessages, msg)
	return nil
}

func mustSchema(t *testing.T, raw string) *ioschema.Schema {
	t.Helper()
	prop, err := operator.FromJSON([]byte(raw))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	schema, err := ioschema.FromOperator(prop)
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	return schema
}

type changeRecorder struct {
	calls []map[string]any
}

func (c *changeRecorder) record(value map[string]any) {
	c.calls = append(c.calls, value)
}

func TestRender_EmptyObjectPromptsNothing(t *testing.T) {
	driver := &stubDriver{}
	recorder := &changeRecorder{}
	r := New(WithPromptDriver(driver))

	out, err := r.Render(context.Background(), form.Props{
		Schema:   mustSchema(t, `{"type":"object","properties":{}}`),
		OnChange: recorder.record,
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if string(out) != "{}" {
		t.Fatalf("expected empty object, got %s", out)
	}
	if len(driver.prompts) != 0 {
		t.Fatalf("expected no prompts, got %v", driver.prompts)
	}
	if len(recorder.calls) != 0 {
		t.Fatalf("expected no change events, got %d", len(recorder.calls))
	}
}

func TestRender_OnChangeAfterEachCommit(t *testing.T) {
	driver := &stubDriver{
		inputs:    []string{"ground_truth", "0.75"},
		selectIdx: []int{1},
	}
	recorder := &changeRecorder{}
	r := New(WithPromptDriver(driver))

	schema := mustSchema(t, `{
  "type": "object",
  "properties": {
    "label_field": {"type": "string"},
    "shape": {"enum": ["box", "polygon"]},
    "confidence": {"type": "number"}
  }
}`)
	out, err := r.Render(context.Background(), form.Props{Schema: schema, OnChange: recorder.record})
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	want := []map[string]any{
		{"label_field": "ground_truth"},
		{"label_field": "ground_truth", "shape": "polygon"},
		{"label_field": "ground_truth", "shape": "polygon", "confidence": 0.75},
	}
	if diff := cmp.Diff(want, recorder.calls); diff != "" {
		t.Fatalf("change events mismatch (-want +got):\n%s", diff)
	}
	if got := string(out); got != `{"confidence":0.75,"label_field":"ground_truth","shape":"polygon"}` {
		t.Fatalf("unexpected output %s", got)
	}
	if diff := cmp.Diff([]string{"Label Field", "Shape", "Confidence"}, driver.prompts); diff != "" {
		t.Fatalf("prompt order mismatch (-want +got):\n%s", diff)
	}
}

func TestRender_OnChangeReceivesCopies(t *testing.T) {
	driver := &stubDriver{inputs: []string{"a", "b"}}
	var calls []map[string]any
	r := New(WithPromptDriver(driver))

	schema := mustSchema(t, `{"type":"object","properties":{"first":{"type":"string"},"second":{"type":"string"}}}`)
	_, err := r.Render(context.Background(), form.Props{
		Schema: schema,
		OnChange: func(value map[string]any) {
			calls = append(calls, value)
			value["injected"] = true
		},
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if len(calls) != 2 {
		t.Fatalf("expected 2 change events, got %d", len(calls))
	}
	if diff := cmp.Diff(map[string]any{"first": "a", "second": "b", "injected": true}, calls[1]); diff != "" {
		t.Fatalf("second event mismatch (-want +got):\n%s", diff)
	}
	if _, ok := calls[0]["second"]; ok {
		t.Fatalf("first event was mutated by later commits: %v", calls[0])
	}
}

func TestRender_NumberValidation(t *testing.T) {
	driver := &stubDriver{inputs: []string{"-1", "abc", "10"}}
	r := New(WithPromptDriver(driver))

	schema := mustSchema(t, `{"type":"object","required":["count"],"properties":{"count":{"type":"integer","minimum":0}}}`)
	out, err := r.Render(context.Background(), form.Props{Schema: schema})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if len(driver.infoMessages) != 2 {
		t.Fatalf("expected two validation messages, got %v", driver.infoMessages)
	}
	if string(out) != `{"count":10}` {
		t.Fatalf("unexpected output %s", out)
	}
}

func TestRender_NestedObjectCommitsLeaves(t *testing.T) {
	driver := &stubDriver{
		inputs:  []string{"detections"},
		confirm: []bool{true},
	}
	recorder := &changeRecorder{}
	r := New(WithPromptDriver(driver))

	schema := mustSchema(t, `{
  "type": "object",
  "properties": {
    "target": {
      "type": "object",
      "properties": {
        "field": {"type": "string"},
        "overwrite": {"type": "boolean"}
      }
    }
  }
}`)
	_, err := r.Render(context.Background(), form.Props{Schema: schema, OnChange: recorder.record})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	want := []map[string]any{
		{"target": map[string]any{"field": "detections"}},
		{"target": map[string]any{"field": "detections", "overwrite": true}},
	}
	if diff := cmp.Diff(want, recorder.calls); diff != "" {
		t.Fatalf("change events mismatch (-want +got):\n%s", diff)
	}
}

func TestRender_Containers(t *testing.T) {
	driver := &stubDriver{
		// list: add? yes, item, add? no; map: add? yes, key, value, add? no
		confirm:  []bool{true, false, true, true, false},
		inputs:   []string{"cat", "1", "2", "occluded"},
		multiIdx: [][]int{{0, 2}},
	}
	r := New(WithPromptDriver(driver))

	schema := mustSchema(t, `{
  "type": "object",
  "properties": {
    "tags": {"type": "array", "items": {"type": "string"}},
    "point": {"type": "array", "prefixItems": [{"type": "integer"}, {"type": "integer"}]},
    "attrs": {"type": "object", "additionalProperties": {"type": "boolean"}},
    "splits": {"type": "array", "items": {"enum": ["train", "val", "test"]}}
  }
}`)
	out, err := r.Render(context.Background(), form.Props{Schema: schema})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	want := `{"attrs":{"occluded":true},"point":[1,2],"splits":["train","test"],"tags":["cat"]}`
	if string(out) != want {
		t.Fatalf("output mismatch\nwant %s\n got %s", want, out)
	}
}

func TestRender_PrefillAndReadOnly(t *testing.T) {
	driver := &stubDriver{inputs: []string{""}}
	recorder := &changeRecorder{}
	r := New(WithPromptDriver(driver), WithOutputFormat(OutputFormatPrettyText))

	obj := operator.NewObject()
	obj.Str("dataset", operator.WithDefault("quickstart"), operator.WithView(operator.View{ReadOnly: true}))
	obj.Str("note")
	schema, err := ioschema.FromOperator(operator.NewProperty(obj))
	if err != nil {
		t.Fatalf("convert: %v", err)
	}

	out, err := r.Render(context.Background(), form.Props{
		Schema:   schema,
		OnChange: recorder.record,
		Values:   map[string]any{"extra": "kept"},
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if len(recorder.calls) != 0 {
		t.Fatalf("expected no change events, got %v", recorder.calls)
	}
	if diff := cmp.Diff([]string{"Note"}, driver.prompts); diff != "" {
		t.Fatalf("prompts mismatch (-want +got):\n%s", diff)
	}
	if got := string(out); got != "dataset=quickstart\nextra=kept\n" {
		t.Fatalf("unexpected pretty output %q", got)
	}
}

func TestRender_ErrorsShownBeforePrompt(t *testing.T) {
	driver := &stubDriver{inputs: []string{"x"}}
	r := New(WithPromptDriver(driver), WithTheme(Theme{ErrorPrefix: "! "}))

	schema := mustSchema(t, `{"type":"object","properties":{"name":{"type":"string"}}}`)
	_, err := r.Render(context.Background(), form.Props{
		Schema: schema,
		Errors: map[string][]string{"name": {"already taken"}},
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if diff := cmp.Diff([]string{"! name: already taken"}, driver.infoMessages); diff != "" {
		t.Fatalf("info mismatch (-want +got):\n%s", diff)
	}
}

func TestRender_RejectsNonObjectRoot(t *testing.T) {
	r := New(WithPromptDriver(&stubDriver{}))
	_, err := r.Render(context.Background(), form.Props{Schema: &ioschema.Schema{Type: ioschema.TypeString}})
	if !errors.Is(err, ErrRootNotObject) {
		t.Fatalf("expected ErrRootNotObject, got %v", err)
	}
}

func TestRender_DriverErrorStopsSession(t *testing.T) {
	recorder := &changeRecorder{}
	r := New(WithPromptDriver(&stubDriver{}))

	schema := mustSchema(t, `{"type":"object","properties":{"name":{"type":"string"}}}`)
	if _, err := r.Render(context.Background(), form.Props{Schema: schema, OnChange: recorder.record}); err == nil {
		t.Fatalf("expected driver error")
	}
	if len(recorder.calls) != 0 {
		t.Fatalf("expected no change events, got %d", len(recorder.calls))
	}
}

func TestRender_SubmitTransformer(t *testing.T) {
	schema := mustSchema(t, `{"type":"object","properties":{"name":{"type":"string"},"note":{"type":"string"}}}`)

	driver := &stubDriver{inputs: []string{"sample", "draft"}}
	recorder := &changeRecorder{}
	r := New(WithPromptDriver(driver), WithSubmitTransformer(func(values map[string]any) (map[string]any, error) {
		delete(values, "note")
		values["source"] = "tui"
		return values, nil
	}))

	out, err := r.Render(context.Background(), form.Props{Schema: schema, OnChange: recorder.record})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if got := string(out); got != `{"name":"sample","source":"tui"}` {
		t.Fatalf("unexpected output %s", got)
	}
	last := recorder.calls[len(recorder.calls)-1]
	if diff := cmp.Diff(map[string]any{"name": "sample", "note": "draft"}, last); diff != "" {
		t.Fatalf("change events saw transformed values (-want +got):\n%s", diff)
	}

	boom := errors.New("boom")
	r = New(WithPromptDriver(&stubDriver{inputs: []string{"a", "b"}}), WithSubmitTransformer(func(map[string]any) (map[string]any, error) {
		return nil, boom
	}))
	if _, err := r.Render(context.Background(), form.Props{Schema: schema}); !errors.Is(err, boom) {
		t.Fatalf("expected transformer error, got %v", err)
	}
}
