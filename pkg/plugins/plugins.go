// Package plugins is the registration surface for host-application plugins.
// A Descriptor names a panel or component, the function that renders it and
// the activator that decides whether it applies to the current context.
package plugins

import (
	"context"
	"fmt"
	"strings"

	"github.com/goliatone/go-operatorio/pkg/form"
	"github.com/goliatone/go-operatorio/pkg/operator"
)

// ComponentType distinguishes standalone panels from embeddable components.
type ComponentType string

const (
	// Panel is a standalone view hosted by the application shell.
	Panel ComponentType = "Panel"
	// Component is embedded by other views and receives its schema as a prop.
	Component ComponentType = "Component"
)

// ParseComponentType accepts the type name case-insensitively.
func ParseComponentType(raw string) (ComponentType, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "panel":
		return Panel, nil
	case "component":
		return Component, nil
	default:
		return "", fmt.Errorf("plugins: unknown component type %q", raw)
	}
}

// ActivationContext describes where the host wants to show a plugin.
type ActivationContext struct {
	Dataset string         `json:"dataset,omitempty"`
	View    string         `json:"view,omitempty"`
	Extras  map[string]any `json:"extras,omitempty"`
}

// Activator decides whether a plugin is available in a context.
type Activator func(ActivationContext) bool

// AlwaysActive accepts every context.
func AlwaysActive(ActivationContext) bool { return true }

// Props are passed to a plugin's render function. Panels ignore Schema.
type Props struct {
	Schema   *operator.Property
	OnChange form.ChangeFunc
	Values   map[string]any
}

// RenderFunc renders a plugin.
type RenderFunc func(ctx context.Context, props Props) (form.Output, error)

// Descriptor is a registration record.
type Descriptor struct {
	Name      string
	Label     string
	Component RenderFunc
	Type      ComponentType
	Activator Activator
}

// Active reports whether the descriptor applies to actx. A nil activator
// always applies.
func (d Descriptor) Active(actx ActivationContext) bool {
	if d.Activator == nil {
		return true
	}
	return d.Activator(actx)
}
