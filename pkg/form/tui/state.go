package tui

import (
	"errors"
	"strings"
)

// State holds the values collected so far and the errors supplied by the
// caller. Paths are property-name segments from the root object.
type State struct {
	values map[string]any
	errors map[string][]string
}

// NewState seeds the state with prefilled values and errors. Both maps are
// copied.
func NewState(prefill map[string]any, errs map[string][]string) *State {
	return &State{
		values: cloneMap(prefill),
		errors: cloneErrors(errs),
	}
}

// Values returns the live value map.
func (s *State) Values() map[string]any {
	if s == nil {
		return nil
	}
	return s.values
}

// Snapshot returns a deep copy of the current values.
func (s *State) Snapshot() map[string]any {
	if s == nil {
		return nil
	}
	return cloneMap(s.values)
}

// ErrorsFor returns caller supplied errors for the dotted form of path.
func (s *State) ErrorsFor(path []string) []string {
	if s == nil || len(s.errors) == 0 {
		return nil
	}
	return s.errors[strings.Join(path, ".")]
}

// Get resolves path through nested maps.
func (s *State) Get(path []string) (any, bool) {
	if s == nil || len(path) == 0 {
		return nil, false
	}
	var current any = s.values
	for _, segment := range path {
		node, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = node[segment]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// Set writes value at path, creating intermediate maps. A non-map value in
// the way is replaced.
func (s *State) Set(path []string, value any) error {
	if s == nil {
		return errors.New("tui: state is nil")
	}
	if len(path) == 0 {
		return errors.New("tui: empty path")
	}
	if s.values == nil {
		s.values = make(map[string]any)
	}
	node := s.values
	for _, segment := range path[:len(path)-1] {
		child, ok := node[segment].(map[string]any)
		if !ok {
			child = make(map[string]any)
			node[segment] = child
		}
		node = child
	}
	node[path[len(path)-1]] = value
	return nil
}

func cloneMap(src map[string]any) map[string]any {
	out := make(map[string]any, len(src))
	for k, v := range src {
		out[k] = deepCopy(v)
	}
	return out
}

func cloneErrors(src map[string][]string) map[string][]string {
	out := make(map[string][]string, len(src))
	for k, v := range src {
		out[k] = append([]string(nil), v...)
	}
	return out
}

func deepCopy(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		return cloneMap(typed)
	case []any:
		clone := make([]any, len(typed))
		for i, v := range typed {
			clone[i] = deepCopy(v)
		}
		return clone
	default:
		return typed
	}
}
