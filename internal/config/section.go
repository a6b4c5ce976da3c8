package config

import (
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"
	"time"
)

// MissingKeyError reports a required key that is absent or empty
type MissingKeyError struct {
	Section string
	Key     string
}

func (e *MissingKeyError) Error() string {
	return fmt.Sprintf("%s: %s is required", e.Section, e.Key)
}

// Section is a read-only view over one named group of configuration keys.
// Keys are case-insensitive and a key holding an empty value is treated as unset.
type Section struct {
	name   string
	values map[string]string
}

// NewSection creates a section view over the given values
func NewSection(name string, values map[string]string) Section {
	normalized := make(map[string]string, len(values))
	for k, v := range values {
		normalized[normalizeKey(k)] = v
	}
	return Section{name: strings.ToLower(name), values: normalized}
}

// Name returns the section name
func (s Section) Name() string {
	return s.name
}

// Keys returns the set keys in sorted order
func (s Section) Keys() []string {
	keys := make([]string, 0, len(s.values))
	for k, v := range s.values {
		if v != "" {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)
	return keys
}

// Lookup returns the value of key and whether it is set
func (s Section) Lookup(key string) (string, bool) {
	v, ok := s.values[normalizeKey(key)]
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// String returns a required value
func (s Section) String(key string) (string, error) {
	v, ok := s.Lookup(key)
	if !ok {
		return "", &MissingKeyError{Section: s.name, Key: key}
	}
	return v, nil
}

// StringOr returns the value of key, or fallback when it is unset
func (s Section) StringOr(key, fallback string) string {
	if v, ok := s.Lookup(key); ok {
		return v
	}
	return fallback
}

// Int returns an integer value, or fallback when it is unset
func (s Section) Int(key string, fallback int) (int, error) {
	v, ok := s.Lookup(key)
	if !ok {
		return fallback, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, fmt.Errorf("%s: invalid %s %q: must be an integer", s.name, key, v)
	}
	return n, nil
}

// Duration returns a duration value such as "30s", or fallback when it is unset.
// A bare integer is read as seconds.
func (s Section) Duration(key string, fallback time.Duration) (time.Duration, error) {
	v, ok := s.Lookup(key)
	if !ok {
		return fallback, nil
	}
	v = strings.TrimSpace(v)
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid %s %q: %w", s.name, key, v, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s: %s must be positive", s.name, key)
	}
	return d, nil
}

// Values returns a copy of all set values
func (s Section) Values() map[string]string {
	out := maps.Clone(s.values)
	maps.DeleteFunc(out, func(_, v string) bool { return v == "" })
	return out
}

func normalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}
