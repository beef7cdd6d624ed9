// Package tui renders IO schemas as interactive terminal prompts. Every value
// the user commits is written to the form state and the caller's OnChange
// handler receives a copy of the whole form value.
package tui

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/goliatone/go-operatorio/pkg/form"
	"github.com/goliatone/go-operatorio/pkg/ioschema"
)

// Name is the registry name of the terminal renderer.
const Name = "tui"

var errRequired = errors.New("required")

// Renderer implements form.Renderer for terminal sessions.
type Renderer struct {
	driver            PromptDriver
	outputFormat      OutputFormat
	submitTransformer SubmitTransformer
	theme             Theme
}

// New constructs a renderer with the survey driver and JSON output.
func New(options ...Option) *Renderer {
	r := &Renderer{outputFormat: OutputFormatJSON}
	for _, opt := range options {
		if opt != nil {
			opt(r)
		}
	}
	if r.driver == nil {
		r.driver = NewSurveyDriver(nil)
	}
	return r
}

// Name reports the renderer identifier.
func (r *Renderer) Name() string {
	return Name
}

// ContentType reports the serialization format used by Render.
func (r *Renderer) ContentType() string {
	switch r.outputFormat {
	case OutputFormatFormURLEncoded:
		return "application/x-www-form-urlencoded"
	case OutputFormatPrettyText:
		return "text/plain"
	default:
		return "application/json"
	}
}

// Render prompts for every field of the root object in declaration order and
// returns the serialized result.
func (r *Renderer) Render(ctx context.Context, props form.Props) ([]byte, error) {
	if ctx == nil {
		return nil, errors.New("tui: context is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if r.driver == nil {
		return nil, errors.New("tui: prompt driver is nil")
	}
	schema := props.Schema
	if schema == nil {
		return nil, form.ErrSchemaRequired
	}
	if schema.Type != ioschema.TypeObject || isMap(schema) {
		return nil, fmt.Errorf("%w: got %q", ErrRootNotObject, schema.Type)
	}

	s := &session{
		driver:   r.driver,
		theme:    r.theme,
		state:    NewState(props.Values, props.Errors),
		onChange: props.OnChange,
	}
	for _, field := range schema.Fields() {
		if err := s.field(ctx, []string{field.Name}, field.Schema); err != nil {
			return nil, err
		}
	}

	values := s.state.Values()
	if r.submitTransformer != nil {
		var err error
		values, err = r.submitTransformer(s.state.Snapshot())
		if err != nil {
			return nil, fmt.Errorf("tui: submit transformer: %w", err)
		}
	}
	return r.serialize(values)
}

type session struct {
	driver   PromptDriver
	theme    Theme
	state    *State
	onChange form.ChangeFunc
}

// field prompts for one property of an object. Nested objects recurse so each
// leaf is committed on its own.
func (s *session) field(ctx context.Context, path []string, schema *ioschema.Schema) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if schema == nil {
		return nil
	}
	for _, msg := range s.state.ErrorsFor(path) {
		_ = s.driver.Info(ctx, fmt.Sprintf("%s%s: %s", s.theme.ErrorPrefix, strings.Join(path, "."), msg))
	}
	if schema.View.ReadOnly {
		if _, ok := s.state.Get(path); !ok && schema.Default != nil {
			return s.state.Set(path, deepCopy(schema.Default))
		}
		return nil
	}

	if schema.Type == ioschema.TypeObject && !isMap(schema) {
		for _, child := range schema.Fields() {
			childPath := append(append([]string(nil), path...), child.Name)
			if err := s.field(ctx, childPath, child.Schema); err != nil {
				return err
			}
		}
		return nil
	}

	current, _ := s.state.Get(path)
	value, ok, err := s.value(ctx, labelFor(schema, path[len(path)-1]), schema, current)
	if err != nil || !ok {
		return err
	}
	return s.commit(path, value)
}

func (s *session) commit(path []string, value any) error {
	if err := s.state.Set(path, value); err != nil {
		return err
	}
	if s.onChange != nil {
		s.onChange(s.state.Snapshot())
	}
	return nil
}

// value prompts for a single value. ok is false when the user left an
// optional value empty.
func (s *session) value(ctx context.Context, label string, schema *ioschema.Schema, current any) (any, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	if current == nil {
		current = schema.Default
	}
	if len(schema.Enum) > 0 {
		return s.enum(ctx, label, schema, current)
	}

	switch schema.Type {
	case ioschema.TypeBoolean:
		return s.boolean(ctx, label, schema, current)
	case ioschema.TypeNumber, ioschema.TypeInteger:
		return s.number(ctx, label, schema, current)
	case ioschema.TypeArray:
		switch {
		case len(schema.PrefixItems) > 0:
			return s.tuple(ctx, label, schema, current)
		case schema.Items != nil && len(schema.Items.Enum) > 0:
			return s.multiSelect(ctx, label, schema, current)
		default:
			return s.list(ctx, label, schema, current)
		}
	case ioschema.TypeOneOf:
		return s.oneOf(ctx, label, schema, current)
	case ioschema.TypeObject:
		if isMap(schema) {
			return s.mapEntries(ctx, label, schema, current)
		}
		return s.object(ctx, label, schema, current)
	default:
		return s.text(ctx, label, schema, current)
	}
}

func (s *session) text(ctx context.Context, label string, schema *ioschema.Schema, current any) (any, bool, error) {
	def, _ := current.(string)
	help := helpFor(schema)
	if schema.Type == ioschema.TypeFile && help == "" {
		help = "Path to a file"
	}
	multiline, _ := schema.View.Options["multiline"].(bool)

	for {
		var (
			resp string
			err  error
		)
		if multiline {
			resp, err = s.driver.TextArea(ctx, TextAreaConfig{Message: label, Default: def, Help: help})
		} else {
			resp, err = s.driver.Input(ctx, InputConfig{Message: label, Default: def, Help: help})
		}
		if err != nil {
			return nil, false, err
		}
		if strings.TrimSpace(resp) == "" && !schema.Required {
			return nil, false, nil
		}
		if err := checkString(schema, resp); err != nil {
			s.invalid(ctx, label, err)
			continue
		}
		return resp, true, nil
	}
}

func (s *session) boolean(ctx context.Context, label string, schema *ioschema.Schema, current any) (any, bool, error) {
	def, _ := current.(bool)
	resp, err := s.driver.Confirm(ctx, ConfirmConfig{Message: label, Default: def, Help: helpFor(schema)})
	if err != nil {
		return nil, false, err
	}
	return resp, true, nil
}

func (s *session) number(ctx context.Context, label string, schema *ioschema.Schema, current any) (any, bool, error) {
	def := ""
	switch current.(type) {
	case int, int64, float64:
		def = fmt.Sprint(current)
	}
	integer := schema.Type == ioschema.TypeInteger

	for {
		input, err := s.driver.Input(ctx, InputConfig{Message: label, Default: def, Help: helpFor(schema)})
		if err != nil {
			return nil, false, err
		}
		trimmed := strings.TrimSpace(input)
		if trimmed == "" {
			if schema.Required {
				s.invalid(ctx, label, errRequired)
				continue
			}
			return nil, false, nil
		}

		var (
			parsed any
			num    float64
		)
		if integer {
			i, err := strconv.ParseInt(trimmed, 10, 64)
			if err != nil {
				s.invalid(ctx, label, err)
				continue
			}
			parsed, num = i, float64(i)
		} else {
			f, err := strconv.ParseFloat(trimmed, 64)
			if err != nil {
				s.invalid(ctx, label, err)
				continue
			}
			parsed, num = f, f
		}
		if schema.Minimum != nil && num < *schema.Minimum {
			s.invalid(ctx, label, fmt.Errorf("must be >= %v", *schema.Minimum))
			continue
		}
		if schema.Maximum != nil && num > *schema.Maximum {
			s.invalid(ctx, label, fmt.Errorf("must be <= %v", *schema.Maximum))
			continue
		}
		return parsed, true, nil
	}
}

func (s *session) enum(ctx context.Context, label string, schema *ioschema.Schema, current any) (any, bool, error) {
	options := stringify(schema.Enum)
	cfg := SelectConfig{
		Message:      label,
		Options:      options,
		DefaultIndex: -1,
		Help:         helpFor(schema),
	}
	if current != nil {
		cfg.DefaultIndex = indexOf(options, fmt.Sprint(current))
	}
	if schema.View.Component == ioschema.ViewRadio {
		cfg.PageSize = len(options)
	}

	for {
		idx, err := s.driver.Select(ctx, cfg)
		if err != nil {
			return nil, false, err
		}
		if idx < 0 || idx >= len(options) {
			s.invalid(ctx, label, errors.New("unknown option"))
			continue
		}
		return schema.Enum[idx], true, nil
	}
}

func (s *session) multiSelect(ctx context.Context, label string, schema *ioschema.Schema, current any) (any, bool, error) {
	options := stringify(schema.Items.Enum)
	cfg := SelectConfig{
		Message:  label,
		Options:  options,
		Defaults: indicesOf(options, stringify(asSlice(current))),
		Help:     helpFor(schema),
	}
	for {
		indices, err := s.driver.MultiSelect(ctx, cfg)
		if err != nil {
			return nil, false, err
		}
		selected := make([]any, 0, len(indices))
		for _, idx := range indices {
			if idx >= 0 && idx < len(schema.Items.Enum) {
				selected = append(selected, schema.Items.Enum[idx])
			}
		}
		if err := checkCount(schema, len(selected)); err != nil {
			s.invalid(ctx, label, err)
			continue
		}
		return selected, true, nil
	}
}

func (s *session) list(ctx context.Context, label string, schema *ioschema.Schema, current any) (any, bool, error) {
	if schema.Items == nil {
		return nil, false, fmt.Errorf("tui: list %s has no item schema", label)
	}
	existing := asSlice(current)
	items := make([]any, 0, len(existing))
	for _, item := range existing {
		items = append(items, deepCopy(item))
	}

	for {
		if schema.MaxItems != nil && len(items) >= *schema.MaxItems {
			break
		}
		needMore := schema.MinItems != nil && len(items) < *schema.MinItems
		if !needMore {
			add, err := s.driver.Confirm(ctx, ConfirmConfig{Message: fmt.Sprintf("Add an item to %s?", label)})
			if err != nil {
				return nil, false, err
			}
			if !add {
				break
			}
		}
		item, ok, err := s.value(ctx, fmt.Sprintf("%s [%d]", label, len(items)), schema.Items, nil)
		if err != nil {
			return nil, false, err
		}
		if ok {
			items = append(items, item)
		}
	}

	if len(items) == 0 && len(existing) == 0 && !schema.Required {
		return nil, false, nil
	}
	return items, true, nil
}

func (s *session) tuple(ctx context.Context, label string, schema *ioschema.Schema, current any) (any, bool, error) {
	existing := asSlice(current)
	out := make([]any, len(schema.PrefixItems))
	set := false
	for i, item := range schema.PrefixItems {
		var prev any
		if i < len(existing) {
			prev = existing[i]
		}
		v, ok, err := s.value(ctx, fmt.Sprintf("%s [%d]", label, i), item, prev)
		if err != nil {
			return nil, false, err
		}
		if ok {
			out[i] = v
			set = true
		}
	}
	if !set && !schema.Required {
		return nil, false, nil
	}
	return out, true, nil
}

func (s *session) oneOf(ctx context.Context, label string, schema *ioschema.Schema, current any) (any, bool, error) {
	options := make([]string, len(schema.Types))
	for i, option := range schema.Types {
		options[i] = option.DisplayLabel()
		if options[i] == "" {
			options[i] = option.Type
		}
	}
	idx, err := s.driver.Select(ctx, SelectConfig{
		Message:      label,
		Options:      options,
		DefaultIndex: -1,
		Help:         helpFor(schema),
	})
	if err != nil {
		return nil, false, err
	}
	if idx < 0 || idx >= len(schema.Types) {
		return nil, false, fmt.Errorf("tui: %s: unknown option", label)
	}
	return s.value(ctx, label, schema.Types[idx], current)
}

func (s *session) object(ctx context.Context, label string, schema *ioschema.Schema, current any) (any, bool, error) {
	prev, _ := current.(map[string]any)
	out := make(map[string]any)
	for _, child := range schema.Fields() {
		if child.Schema == nil {
			continue
		}
		if child.Schema.View.ReadOnly {
			if child.Schema.Default != nil {
				out[child.Name] = deepCopy(child.Schema.Default)
			}
			continue
		}
		v, ok, err := s.value(ctx, label+" / "+labelFor(child.Schema, child.Name), child.Schema, prev[child.Name])
		if err != nil {
			return nil, false, err
		}
		if ok {
			out[child.Name] = v
		}
	}
	return out, true, nil
}

func (s *session) mapEntries(ctx context.Context, label string, schema *ioschema.Schema, current any) (any, bool, error) {
	entries := make(map[string]any)
	if prev, ok := current.(map[string]any); ok {
		entries = cloneMap(prev)
	}
	for {
		add, err := s.driver.Confirm(ctx, ConfirmConfig{Message: fmt.Sprintf("Add an entry to %s?", label)})
		if err != nil {
			return nil, false, err
		}
		if !add {
			break
		}
		key, err := s.driver.Input(ctx, InputConfig{Message: label + " key"})
		if err != nil {
			return nil, false, err
		}
		key = strings.TrimSpace(key)
		if key == "" {
			s.invalid(ctx, label, errors.New("key is required"))
			continue
		}
		v, ok, err := s.value(ctx, label+" / "+key, schema.AdditionalProperties, entries[key])
		if err != nil {
			return nil, false, err
		}
		if ok {
			entries[key] = v
		}
	}
	if len(entries) == 0 && !schema.Required {
		return nil, false, nil
	}
	return entries, true, nil
}

func (s *session) invalid(ctx context.Context, label string, err error) {
	_ = s.driver.Info(ctx, fmt.Sprintf("%sInvalid %s: %v", s.theme.InfoPrefix, label, err))
}

func checkString(schema *ioschema.Schema, value string) error {
	if schema.Required && strings.TrimSpace(value) == "" {
		return errRequired
	}
	length := utf8.RuneCountInString(value)
	if schema.MinLength != nil && length < *schema.MinLength {
		return fmt.Errorf("must be at least %d characters", *schema.MinLength)
	}
	if schema.MaxLength != nil && length > *schema.MaxLength {
		return fmt.Errorf("must be at most %d characters", *schema.MaxLength)
	}
	if schema.Pattern != "" {
		re, err := regexp.Compile(schema.Pattern)
		if err != nil {
			return fmt.Errorf("invalid pattern %q: %w", schema.Pattern, err)
		}
		if !re.MatchString(value) {
			return fmt.Errorf("must match %s", schema.Pattern)
		}
	}
	return nil
}

func checkCount(schema *ioschema.Schema, n int) error {
	if schema.MinItems != nil && n < *schema.MinItems {
		return fmt.Errorf("select at least %d", *schema.MinItems)
	}
	if schema.MaxItems != nil && n > *schema.MaxItems {
		return fmt.Errorf("select at most %d", *schema.MaxItems)
	}
	return nil
}

func isMap(schema *ioschema.Schema) bool {
	return schema.AdditionalProperties != nil && len(schema.Properties) == 0
}

func labelFor(schema *ioschema.Schema, name string) string {
	if label := schema.DisplayLabel(); label != "" {
		return label
	}
	return name
}

func helpFor(schema *ioschema.Schema) string {
	if desc := schema.DisplayDescription(); desc != "" {
		return desc
	}
	return schema.View.Caption
}

func stringify(values []any) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		out = append(out, fmt.Sprint(v))
	}
	return out
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

func (r *Renderer) serialize(values map[string]any) ([]byte, error) {
	switch r.outputFormat {
	case OutputFormatFormURLEncoded:
		flat := url.Values{}
		flatten("", values, flat)
		return []byte(flat.Encode()), nil
	case OutputFormatPrettyText:
		var b strings.Builder
		writePretty(&b, "", values)
		return []byte(b.String()), nil
	default:
		if values == nil {
			values = map[string]any{}
		}
		return json.Marshal(values)
	}
}

func flatten(prefix string, value any, out url.Values) {
	switch v := value.(type) {
	case map[string]any:
		for key, val := range v {
			flatten(joinKey(prefix, key), val, out)
		}
	case []any:
		for _, val := range v {
			out.Add(prefix+"[]", fmt.Sprint(val))
		}
	default:
		out.Set(prefix, fmt.Sprint(v))
	}
}

func writePretty(b *strings.Builder, prefix string, value any) {
	switch v := value.(type) {
	case map[string]any:
		keys := make([]string, 0, len(v))
		for key := range v {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			writePretty(b, joinKey(prefix, key), v[key])
		}
	case []any:
		for idx, val := range v {
			writePretty(b, fmt.Sprintf("%s[%d]", prefix, idx), val)
		}
	default:
		if prefix != "" {
			fmt.Fprintf(b, "%s=%v\n", prefix, v)
		}
	}
}

func joinKey(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}
