package ioschema

import (
	"sort"
	"strings"
	"sync"

	"github.com/goliatone/go-operatorio/pkg/operator"
)

// Built-in view components.
const (
	ViewObject   = "ObjectView"
	ViewField    = "FieldView"
	ViewCheckbox = "CheckboxView"
	ViewDropdown = "DropdownView"
	ViewRadio    = "RadioView"
	ViewList     = "ListView"
	ViewTuple    = "TupleView"
	ViewMap      = "MapView"
	ViewOneOf    = "OneOfView"
	ViewFile     = "FileView"
)

// radioThreshold is the largest enum rendered as radio buttons.
const radioThreshold = 3

// ViewMatcher reports whether a view should present the property.
type ViewMatcher func(prop *operator.Property) bool

type viewRule struct {
	name     string
	priority int
	match    ViewMatcher
	order    int
}

// ViewRegistry picks a default view component for properties that do not
// name one. Higher priority wins; ties fall back to registration order.
type ViewRegistry struct {
	mu    sync.RWMutex
	rules []viewRule
}

// NewViewRegistry returns a registry with the built-in matchers.
func NewViewRegistry() *ViewRegistry {
	reg := &ViewRegistry{}
	reg.registerBuiltins()
	return reg
}

// Register adds a matcher. Empty names and nil matchers are ignored.
func (r *ViewRegistry) Register(name string, priority int, matcher ViewMatcher) {
	if r == nil || matcher == nil {
		return
	}
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.rules = append(r.rules, viewRule{
		name:     trimmed,
		priority: priority,
		match:    matcher,
		order:    len(r.rules),
	})
}

// Resolve returns the view component for a property. An explicit
// View.Component always wins.
func (r *ViewRegistry) Resolve(prop *operator.Property) (string, bool) {
	if prop == nil {
		return "", false
	}
	if prop.View != nil {
		if explicit := strings.TrimSpace(prop.View.Component); explicit != "" {
			return explicit, true
		}
	}
	if r == nil {
		return "", false
	}
	r.mu.RLock()
	rules := append([]viewRule(nil), r.rules...)
	r.mu.RUnlock()

	sort.SliceStable(rules, func(i, j int) bool {
		if rules[i].priority == rules[j].priority {
			return rules[i].order < rules[j].order
		}
		return rules[i].priority > rules[j].priority
	})
	for _, rule := range rules {
		if rule.match(prop) {
			return rule.name, true
		}
	}
	return "", false
}

func kindIs(kind operator.Kind) ViewMatcher {
	return func(prop *operator.Property) bool {
		return prop.Type != nil && prop.Type.Kind() == kind
	}
}

func (r *ViewRegistry) registerBuiltins() {
	r.Register(ViewRadio, 110, func(prop *operator.Property) bool {
		enum, ok := prop.Type.(*operator.Enum)
		return ok && len(enum.Values) > 0 && len(enum.Values) <= radioThreshold
	})
	r.Register(ViewDropdown, 100, kindIs(operator.KindEnum))
	r.Register(ViewCheckbox, 90, kindIs(operator.KindBoolean))
	r.Register(ViewOneOf, 80, kindIs(operator.KindOneOf))
	r.Register(ViewTuple, 70, kindIs(operator.KindTuple))
	r.Register(ViewList, 60, kindIs(operator.KindList))
	r.Register(ViewMap, 50, kindIs(operator.KindMap))
	r.Register(ViewFile, 40, kindIs(operator.KindFile))
	r.Register(ViewObject, 30, kindIs(operator.KindObject))
	r.Register(ViewField, 0, func(*operator.Property) bool { return true })
}
