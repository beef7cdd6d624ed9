package operator

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// mapping is an ordered view over a YAML mapping node.
type mapping struct {
	node *yaml.Node
	path string
}

func resolve(n *yaml.Node) *yaml.Node {
	for n != nil && n.Kind == yaml.AliasNode {
		n = n.Alias
	}
	return n
}

func asMapping(n *yaml.Node, path string) (mapping, error) {
	n = resolve(n)
	if n == nil || n.Kind != yaml.MappingNode {
		return mapping{}, fmt.Errorf("%w: %s must be an object", ErrInvalidDocument, path)
	}
	return mapping{node: n, path: path}, nil
}

func (m mapping) get(key string) *yaml.Node {
	if m.node == nil {
		return nil
	}
	content := m.node.Content
	for i := 0; i+1 < len(content); i += 2 {
		if content[i].Value == key {
			value := content[i+1]
			if value.Tag == "!!null" {
				return nil
			}
			return value
		}
	}
	return nil
}

func (m mapping) each(fn func(key string, value *yaml.Node) error) error {
	content := m.node.Content
	for i := 0; i+1 < len(content); i += 2 {
		if err := fn(content[i].Value, content[i+1]); err != nil {
			return err
		}
	}
	return nil
}

func (m mapping) str(key string) (string, error) {
	node := m.get(key)
	if node == nil {
		return "", nil
	}
	node = resolve(node)
	if node.Kind != yaml.ScalarNode {
		return "", fmt.Errorf("%w: %s.%s must be a string", ErrInvalidDocument, m.path, key)
	}
	return node.Value, nil
}

func (m mapping) firstString(keys ...string) (string, error) {
	for _, key := range keys {
		value, err := m.str(key)
		if err != nil {
			return "", err
		}
		if value != "" {
			return value, nil
		}
	}
	return "", nil
}

func (m mapping) boolean(key string) (bool, error) {
	node := m.get(key)
	if node == nil {
		return false, nil
	}
	var out bool
	if err := resolve(node).Decode(&out); err != nil {
		return false, fmt.Errorf("%w: %s.%s must be a boolean", ErrInvalidDocument, m.path, key)
	}
	return out, nil
}

func (m mapping) float(key string) (*float64, error) {
	node := m.get(key)
	if node == nil {
		return nil, nil
	}
	var out float64
	if err := resolve(node).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: %s.%s must be a number", ErrInvalidDocument, m.path, key)
	}
	return &out, nil
}

func (m mapping) integer(key string) (*int, error) {
	node := m.get(key)
	if node == nil {
		return nil, nil
	}
	var out int
	if err := resolve(node).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: %s.%s must be an integer", ErrInvalidDocument, m.path, key)
	}
	return &out, nil
}

func (m mapping) list(key string) ([]any, error) {
	node := m.get(key)
	if node == nil {
		return nil, nil
	}
	node = resolve(node)
	if node.Kind != yaml.SequenceNode {
		return nil, fmt.Errorf("%w: %s.%s must be a list", ErrInvalidDocument, m.path, key)
	}
	out := make([]any, 0, len(node.Content))
	for idx, item := range node.Content {
		value, err := decodeValue(item, fmt.Sprintf("%s.%s[%d]", m.path, key, idx))
		if err != nil {
			return nil, err
		}
		out = append(out, value)
	}
	return out, nil
}

func decodeValue(n *yaml.Node, path string) (any, error) {
	var out any
	if err := resolve(n).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidDocument, path, err)
	}
	return out, nil
}
