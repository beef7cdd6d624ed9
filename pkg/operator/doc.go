// Package operator models the parameter schema of an operator: a tree of
// Property values whose Type describes what a caller must supply (objects,
// strings, numbers, lists, enums, unions, tuples, maps and files).
//
// Trees are built either with the builder helpers (NewObject plus Str, Int,
// Bool, ...) or decoded from documents with FromJSON/FromYAML, which accept
// both the canonical operator encoding ({"type": {"name": "Object", ...}})
// and the JSON Schema shorthand ({"type": "object", "properties": {...}}).
// Object property order follows the source document. FromOpenAPI converts
// kin-openapi schemas for callers that already describe operator inputs in an
// OpenAPI document.
//
// Every constructor returns a fresh tree; consumers such as the ioschema
// converter never mutate it.
package operator
