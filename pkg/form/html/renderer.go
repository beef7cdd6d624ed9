// Package html renders IO schemas as static HTML forms using pongo2
// templates. Every field element carries a data-component attribute naming
// its view so client code can hydrate it. The renderer has no event loop and
// never invokes Props.OnChange.
package html

import (
	"context"
	"embed"
	"errors"
	"fmt"
	stdhtml "html"
	"io/fs"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"

	"github.com/goliatone/go-operatorio/pkg/form"
	"github.com/goliatone/go-operatorio/pkg/form/template"
	"github.com/goliatone/go-operatorio/pkg/ioschema"
)

// Name is the registry name of the HTML renderer.
const Name = "html"

//go:embed templates/*.html
var embeddedTemplates embed.FS

var (
	policyOnce   sync.Once
	textPolicy   *bluemonday.Policy
	markupPolicy *bluemonday.Policy
)

// TemplatesFS exposes the built-in form.html and field.html so callers can
// copy or extend them and pass the result back through WithTemplatesFS.
func TemplatesFS() fs.FS {
	sub, err := fs.Sub(embeddedTemplates, "templates")
	if err != nil {
		return embeddedTemplates
	}
	return sub
}

// Option configures the renderer.
type Option func(*Renderer)

// WithTemplatesFS replaces the embedded templates. The FS must provide
// form.html and field.html.
func WithTemplatesFS(files fs.FS) Option {
	return func(r *Renderer) {
		r.templates = files
	}
}

// WithTemplatesDir reads templates from dir ahead of the embedded set, so a
// directory holding only field.html overrides just the field markup.
func WithTemplatesDir(dir string) Option {
	return func(r *Renderer) {
		r.templatesDir = strings.TrimSpace(dir)
	}
}

// WithIDPrefix namespaces element ids, for pages that host several forms.
func WithIDPrefix(prefix string) Option {
	return func(r *Renderer) {
		r.idPrefix = strings.TrimSpace(prefix)
	}
}

// Renderer implements form.Renderer and emits text/html.
type Renderer struct {
	engine       *template.Engine
	templates    fs.FS
	templatesDir string
	idPrefix     string
}

// New builds a renderer over the embedded templates.
func New(options ...Option) (*Renderer, error) {
	r := &Renderer{idPrefix: "operatorio"}
	for _, opt := range options {
		if opt != nil {
			opt(r)
		}
	}
	if r.templates == nil {
		r.templates = TemplatesFS()
	}
	if err := registerFilters(); err != nil {
		return nil, fmt.Errorf("html: %w", err)
	}
	engine, err := template.New(template.WithDir(r.templatesDir), template.WithFS(r.templates))
	if err != nil {
		return nil, fmt.Errorf("html: %w", err)
	}
	r.engine = engine
	return r, nil
}

// Name reports the renderer identifier.
func (r *Renderer) Name() string {
	return Name
}

// ContentType reports text/html.
func (r *Renderer) ContentType() string {
	return "text/html; charset=utf-8"
}

// Render produces the form markup for props.Schema.
func (r *Renderer) Render(ctx context.Context, props form.Props) ([]byte, error) {
	if ctx == nil {
		return nil, errors.New("html: context is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if props.Schema == nil {
		return nil, form.ErrSchemaRequired
	}

	fields := make([]string, 0, len(props.Schema.Properties))
	for _, field := range props.Schema.Fields() {
		markup, err := r.field([]string{field.Name}, field.Schema, props.Values[field.Name], props.Errors)
		if err != nil {
			return nil, err
		}
		fields = append(fields, markup)
	}

	out, err := r.engine.Render("form.html", map[string]any{
		"component": props.Schema.View.Component,
		"title":     props.Schema.DisplayLabel(),
		"fields":    fields,
	})
	if err != nil {
		return nil, fmt.Errorf("html: %w", err)
	}
	return []byte(out), nil
}

func (r *Renderer) field(path []string, schema *ioschema.Schema, value any, errs map[string][]string) (string, error) {
	if schema == nil {
		return "", nil
	}
	dotted := strings.Join(path, ".")
	data := map[string]any{
		"path":        dotted,
		"id":          r.idFor(path),
		"type":        schema.Type,
		"component":   schema.View.Component,
		"label":       labelFor(schema, path[len(path)-1]),
		"description": strings.TrimSpace(schema.DisplayDescription()),
		"caption":     strings.TrimSpace(schema.View.Caption),
		"placeholder": strings.TrimSpace(schema.View.Placeholder),
		"required":    schema.Required,
		"readonly":    schema.View.ReadOnly,
		"errors":      errs[dotted],
		"pattern":     schema.Pattern,
	}
	if value == nil {
		value = schema.Default
	}

	switch {
	case len(schema.Enum) > 0:
		data["options"] = options(schema.Enum, []any{value})
	case schema.Type == ioschema.TypeArray && schema.Items != nil && len(schema.Items.Enum) > 0:
		data["options"] = options(schema.Items.Enum, asSlice(value))
		data["multiple"] = true
		if schema.View.Component == ioschema.ViewList {
			data["component"] = ioschema.ViewDropdown
		}
	case schema.Type == ioschema.TypeBoolean:
		checked, _ := value.(bool)
		data["checkbox"] = true
		data["checked"] = checked
	case schema.Type == ioschema.TypeObject,
		schema.Type == ioschema.TypeArray,
		schema.Type == ioschema.TypeOneOf:
		children, err := r.children(path, schema, value, errs)
		if err != nil {
			return "", err
		}
		data["nested"] = true
		data["children"] = children
		if schema.MinItems != nil {
			data["min_items"] = strconv.Itoa(*schema.MinItems)
		}
		if schema.MaxItems != nil {
			data["max_items"] = strconv.Itoa(*schema.MaxItems)
		}
	default:
		data["input_type"] = inputType(schema)
		if value != nil && schema.Type != ioschema.TypeFile {
			data["value"] = fmt.Sprint(value)
		}
		if schema.Minimum != nil {
			data["minimum"] = formatFloat(*schema.Minimum)
		}
		if schema.Maximum != nil {
			data["maximum"] = formatFloat(*schema.Maximum)
		}
		switch schema.Type {
		case ioschema.TypeInteger:
			data["step"] = "1"
		case ioschema.TypeNumber:
			data["step"] = "any"
		}
	}

	out, err := r.engine.Render("field.html", data)
	if err != nil {
		return "", fmt.Errorf("html: field %s: %w", dotted, err)
	}
	return out, nil
}

// children renders the members of a container. Lists and maps render the
// entries present in value; tuples, unions and objects render their schema.
func (r *Renderer) children(path []string, schema *ioschema.Schema, value any, errs map[string][]string) ([]string, error) {
	var out []string
	add := func(segment string, child *ioschema.Schema, v any) error {
		markup, err := r.field(append(append([]string(nil), path...), segment), child, v, errs)
		if err != nil {
			return err
		}
		out = append(out, markup)
		return nil
	}

	switch {
	case schema.Type == ioschema.TypeOneOf:
		for i, option := range schema.Types {
			if err := add(strconv.Itoa(i), option, nil); err != nil {
				return nil, err
			}
		}
	case len(schema.PrefixItems) > 0:
		items := asSlice(value)
		for i, item := range schema.PrefixItems {
			var v any
			if i < len(items) {
				v = items[i]
			}
			if err := add(strconv.Itoa(i), item, v); err != nil {
				return nil, err
			}
		}
	case schema.Type == ioschema.TypeArray:
		for i, item := range asSlice(value) {
			if err := add(strconv.Itoa(i), schema.Items, item); err != nil {
				return nil, err
			}
		}
	case schema.AdditionalProperties != nil && len(schema.Properties) == 0:
		entries, _ := value.(map[string]any)
		keys := make([]string, 0, len(entries))
		for key := range entries {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			if err := add(key, schema.AdditionalProperties, entries[key]); err != nil {
				return nil, err
			}
		}
	default:
		values, _ := value.(map[string]any)
		for _, field := range schema.Fields() {
			if err := add(field.Name, field.Schema, values[field.Name]); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

func (r *Renderer) idFor(path []string) string {
	parts := append([]string{r.idPrefix}, path...)
	return strings.Join(parts, "-")
}

func options(enum []any, selected []any) []map[string]any {
	chosen := make(map[string]struct{}, len(selected))
	for _, v := range selected {
		if v != nil {
			chosen[fmt.Sprint(v)] = struct{}{}
		}
	}
	out := make([]map[string]any, 0, len(enum))
	for _, v := range enum {
		s := fmt.Sprint(v)
		_, ok := chosen[s]
		out = append(out, map[string]any{"value": s, "label": s, "selected": ok})
	}
	return out
}

func inputType(schema *ioschema.Schema) string {
	switch schema.Type {
	case ioschema.TypeNumber, ioschema.TypeInteger:
		return "number"
	case ioschema.TypeFile:
		return "file"
	default:
		return "text"
	}
}

func labelFor(schema *ioschema.Schema, name string) string {
	if label := schema.DisplayLabel(); label != "" {
		return label
	}
	return name
}

func asSlice(value any) []any {
	switch v := value.(type) {
	case []any:
		return v
	case []string:
		out := make([]any, len(v))
		for i, s := range v {
			out[i] = s
		}
		return out
	default:
		return nil
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func registerFilters() error {
	if err := template.RegisterFilter("operatorio_text", sanitizeText, false); err != nil {
		return err
	}
	return template.RegisterFilter("operatorio_markup", sanitizeMarkup, true)
}

// sanitizeText strips all markup and returns plain text; autoescaping
// re-encodes it on output.
func sanitizeText(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	return strings.TrimSpace(stdhtml.UnescapeString(policies().text.Sanitize(trimmed)))
}

// sanitizeMarkup keeps basic inline formatting in descriptions.
func sanitizeMarkup(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	return strings.TrimSpace(policies().markup.Sanitize(trimmed))
}

type policySet struct {
	text   *bluemonday.Policy
	markup *bluemonday.Policy
}

func policies() policySet {
	policyOnce.Do(func() {
		textPolicy = bluemonday.StrictPolicy()

		markup := bluemonday.NewPolicy()
		markup.AllowElements("b", "strong", "i", "em", "code", "br", "p", "ul", "ol", "li")
		markup.AllowAttrs("href").OnElements("a")
		markup.AllowStandardURLs()
		markup.RequireNoFollowOnLinks(true)
		markupPolicy = markup
	})
	return policySet{text: textPolicy, markup: markupPolicy}
}
