package operator_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-operatorio/pkg/operator"
)

const annotationAPI = `
openapi: 3.0.3
info:
  title: annotation
  version: "1"
paths: {}
components:
  schemas:
    Annotation:
      type: object
      required: [label_field]
      properties:
        label_field:
          type: string
          title: Label field
          minLength: 1
        mask:
          type: string
          format: binary
        attributes:
          type: object
          additionalProperties:
            type: string
        confidence:
          type: number
          minimum: 0
          maximum: 1
        shape:
          type: string
          enum: [box, polygon]
        tags:
          type: array
          items:
            type: string
    Node:
      type: object
      properties:
        name:
          type: string
        children:
          type: array
          items:
            $ref: '#/components/schemas/Node'
    Pair:
      type: object
      properties:
        left:
          $ref: '#/components/schemas/Leaf'
        right:
          $ref: '#/components/schemas/Leaf'
    Leaf:
      type: integer
`

func loadAnnotationAPI(t *testing.T) *openapi3.T {
	t.Helper()
	doc, err := openapi3.NewLoader().LoadFromData([]byte(annotationAPI))
	if err != nil {
		t.Fatalf("load openapi: %v", err)
	}
	return doc
}

func TestOpenAPIComponent_Mapping(t *testing.T) {
	prop, err := operator.OpenAPIComponent(loadAnnotationAPI(t), "Annotation")
	if err != nil {
		t.Fatalf("component: %v", err)
	}
	obj, ok := prop.Type.(*operator.Object)
	if !ok {
		t.Fatalf("expected object, got %T", prop.Type)
	}

	want := []string{"attributes", "confidence", "label_field", "mask", "shape", "tags"}
	if diff := cmp.Diff(want, obj.Names()); diff != "" {
		t.Fatalf("names mismatch (-want +got):\n%s", diff)
	}

	label, _ := obj.Property("label_field")
	if !label.Required || label.Label != "Label field" {
		t.Fatalf("unexpected label_field %+v", label)
	}
	if str := label.Type.(*operator.String); str.MinLength == nil || *str.MinLength != 1 {
		t.Fatalf("expected minLength 1, got %+v", str)
	}

	mask, _ := obj.Property("mask")
	if _, ok := mask.Type.(*operator.File); !ok {
		t.Fatalf("expected binary string to map to File, got %T", mask.Type)
	}
	if mask.Required {
		t.Fatalf("mask is not required")
	}

	attrs, _ := obj.Property("attributes")
	m, ok := attrs.Type.(*operator.Map)
	if !ok {
		t.Fatalf("expected additionalProperties to map to Map, got %T", attrs.Type)
	}
	if _, ok := m.Value.(*operator.String); !ok {
		t.Fatalf("expected string map values, got %T", m.Value)
	}

	confidence, _ := obj.Property("confidence")
	num := confidence.Type.(*operator.Number)
	if num.Int || num.Min == nil || *num.Max != 1 {
		t.Fatalf("unexpected number %+v", num)
	}

	shape, _ := obj.Property("shape")
	if diff := cmp.Diff([]any{"box", "polygon"}, shape.Type.(*operator.Enum).Values); diff != "" {
		t.Fatalf("enum mismatch (-want +got):\n%s", diff)
	}

	tags, _ := obj.Property("tags")
	if _, ok := tags.Type.(*operator.List).Element.(*operator.String); !ok {
		t.Fatalf("expected list of strings, got %+v", tags.Type)
	}
}

func TestOpenAPIComponent_Missing(t *testing.T) {
	if _, err := operator.OpenAPIComponent(loadAnnotationAPI(t), "Widget"); !errors.Is(err, operator.ErrSchemaNotFound) {
		t.Fatalf("expected ErrSchemaNotFound, got %v", err)
	}
	if _, err := operator.OpenAPIComponent(nil, "Widget"); !errors.Is(err, operator.ErrSchemaNotFound) {
		t.Fatalf("expected ErrSchemaNotFound for nil document, got %v", err)
	}
}

func TestOpenAPIComponent_Cycle(t *testing.T) {
	_, err := operator.OpenAPIComponent(loadAnnotationAPI(t), "Node")
	if !errors.Is(err, operator.ErrCyclicSchema) {
		t.Fatalf("expected ErrCyclicSchema, got %v", err)
	}
}

func TestOpenAPIComponent_SharedSiblingsAreNotCycles(t *testing.T) {
	prop, err := operator.OpenAPIComponent(loadAnnotationAPI(t), "Pair")
	if err != nil {
		t.Fatalf("component: %v", err)
	}
	if diff := cmp.Diff([]string{"left", "right"}, prop.Type.(*operator.Object).Names()); diff != "" {
		t.Fatalf("names mismatch (-want +got):\n%s", diff)
	}
}

func TestFromOpenAPI(t *testing.T) {
	ref := openapi3.NewSchemaRef("", &openapi3.Schema{
		Type:     &openapi3.Types{openapi3.TypeBoolean},
		Title:    "Visible",
		ReadOnly: true,
	})
	prop, err := operator.FromOpenAPI(ref)
	if err != nil {
		t.Fatalf("from openapi: %v", err)
	}
	if _, ok := prop.Type.(*operator.Boolean); !ok {
		t.Fatalf("expected boolean, got %T", prop.Type)
	}
	if prop.Label != "Visible" || prop.View == nil || !prop.View.ReadOnly {
		t.Fatalf("unexpected property %+v", prop)
	}

	if _, err := operator.FromOpenAPI(nil); !errors.Is(err, operator.ErrUnknownType) {
		t.Fatalf("expected ErrUnknownType, got %v", err)
	}
}

func TestLoadOpenAPIComponent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "api.yaml")
	if err := os.WriteFile(path, []byte(annotationAPI), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	prop, err := operator.LoadOpenAPIComponent(context.Background(), path, "Annotation")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(prop.Type.(*operator.Object).Properties) != 6 {
		t.Fatalf("unexpected properties %v", prop.Type.(*operator.Object).Names())
	}

	if _, err := operator.LoadOpenAPIComponent(context.Background(), filepath.Join(t.TempDir(), "missing.yaml"), "Annotation"); err == nil {
		t.Fatalf("expected error for missing document")
	}
}
