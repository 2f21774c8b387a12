package config

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// GetValue returns the value at a dotted key such as "encoder.fps"
func (m *Manager) GetValue(key string) (interface{}, error) {
	tree, err := toTree(m.Get())
	if err != nil {
		return nil, err
	}

	var cur interface{} = tree
	for _, part := range strings.Split(key, ".") {
		node, ok := cur.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("configuration key not found: %s", key)
		}
		cur, ok = node[part]
		if !ok {
			return nil, fmt.Errorf("configuration key not found: %s", key)
		}
	}
	return cur, nil
}

// SetValue parses value as a YAML scalar or flow collection, stores it at the
// dotted key, validates the result and saves it.
func (m *Manager) SetValue(key, value string) error {
	tree, err := toTree(m.Get())
	if err != nil {
		return err
	}

	var parsed interface{}
	if err := yaml.Unmarshal([]byte(value), &parsed); err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}

	parts := strings.Split(key, ".")
	node := tree
	for _, part := range parts[:len(parts)-1] {
		child, ok := node[part].(map[string]interface{})
		if !ok {
			return fmt.Errorf("configuration key not found: %s", key)
		}
		node = child
	}
	last := parts[len(parts)-1]
	if _, ok := node[last]; !ok {
		return fmt.Errorf("configuration key not found: %s", key)
	}
	node[last] = parsed

	data, err := yaml.Marshal(tree)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	cfg, err := parse(data)
	if err != nil {
		return err
	}
	return m.Update(cfg)
}

func toTree(cfg *Config) (map[string]interface{}, error) {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	tree := map[string]interface{}{}
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return tree, nil
}
