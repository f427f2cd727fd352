package config

import (
	"fmt"
)

// Settings is the per-instance view of a model's settings section.
//
// Lookup is scoped: "<instance>.<key>" wins over the bare "<key>", so a
// model can set sink_uri globally and override it for one component.
// Typed getters return ErrSettingNotFound for missing keys; the *Or
// variants return a default instead, matching the optional-setting
// semantics of the coupling configuration surface.
type Settings struct {
	instance string
	values   map[string]interface{}
}

// NewSettings creates a settings view scoped to one instance name.
// The values map is the model document's flattened settings section.
func NewSettings(instance string, values map[string]interface{}) *Settings {
	if values == nil {
		values = map[string]interface{}{}
	}
	return &Settings{instance: instance, values: values}
}

// Instance returns the instance name this view is scoped to.
func (s *Settings) Instance() string {
	return s.instance
}

func (s *Settings) lookup(key string) (interface{}, bool) {
	if v, ok := s.values[s.instance+"."+key]; ok {
		return v, true
	}
	v, ok := s.values[key]
	return v, ok
}

// Has reports whether the key resolves for this instance.
func (s *Settings) Has(key string) bool {
	_, ok := s.lookup(key)
	return ok
}

// String returns a string setting.
func (s *Settings) String(key string) (string, error) {
	v, ok := s.lookup(key)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrSettingNotFound, key)
	}
	str, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: %q is %T, want string", ErrSettingType, key, v)
	}
	return str, nil
}

// StringOr returns a string setting or a default when absent.
func (s *Settings) StringOr(key, def string) string {
	v, err := s.String(key)
	if err != nil {
		return def
	}
	return v
}

// Float returns a numeric setting as float64. YAML integers coerce.
func (s *Settings) Float(key string) (float64, error) {
	v, ok := s.lookup(key)
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrSettingNotFound, key)
	}
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("%w: %q is %T, want number", ErrSettingType, key, v)
	}
}

// FloatOr returns a numeric setting or a default when absent.
func (s *Settings) FloatOr(key string, def float64) float64 {
	v, err := s.Float(key)
	if err != nil {
		return def
	}
	return v
}

// Int returns an integer setting.
func (s *Settings) Int(key string) (int, error) {
	v, ok := s.lookup(key)
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrSettingNotFound, key)
	}
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		return int(n), nil
	default:
		return 0, fmt.Errorf("%w: %q is %T, want integer", ErrSettingType, key, v)
	}
}

// IntOr returns an integer setting or a default when absent.
func (s *Settings) IntOr(key string, def int) int {
	v, err := s.Int(key)
	if err != nil {
		return def
	}
	return v
}

// BoolOr returns a boolean setting or a default when absent.
func (s *Settings) BoolOr(key string, def bool) bool {
	v, ok := s.lookup(key)
	if !ok {
		return def
	}
	b, ok := v.(bool)
	if !ok {
		return def
	}
	return b
}
