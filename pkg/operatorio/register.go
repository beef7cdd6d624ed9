package operatorio

import (
	"fmt"

	"github.com/goliatone/go-operatorio/pkg/plugins"
)

// Plugin names.
const (
	PanelName     = "OperatorIO"
	ComponentName = "OperatorIOComponent"
)

// Descriptors returns the two plugin registrations backed by a.
func Descriptors(a *Adapter) []plugins.Descriptor {
	return []plugins.Descriptor{
		{
			Name:      PanelName,
			Label:     "Operator IO",
			Component: a.Panel,
			Type:      plugins.Panel,
			Activator: plugins.AlwaysActive,
		},
		{
			Name:      ComponentName,
			Label:     "Operator IO Component",
			Component: a.Component,
			Type:      plugins.Component,
			Activator: plugins.AlwaysActive,
		},
	}
}

// Register adds both plugins to reg. Registering twice into the same registry
// fails with plugins.ErrDuplicate and leaves the first registration intact.
func Register(reg *plugins.Registry, a *Adapter) error {
	if reg == nil || a == nil {
		return fmt.Errorf("operatorio: registry and adapter are required")
	}
	for _, desc := range Descriptors(a) {
		if err := reg.Register(desc); err != nil {
			return fmt.Errorf("operatorio: register %s: %w", desc.Name, err)
		}
	}
	return nil
}
