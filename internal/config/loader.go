package config

import (
	"fmt"
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/go-ini/ini"
)

// EnvPrefix is the environment variable prefix for configuration overrides,
// e.g. FILE_UPLOAD_SFTP_PASSWORD sets password in the [sftp] section.
const EnvPrefix = "FILE_UPLOAD"

const defaultSection = "default"

// Config holds every section of a loaded configuration.
// Values of the [DEFAULT] section are inherited by all other sections.
type Config struct {
	sections map[string]map[string]string
}

// New returns an empty configuration
func New() *Config {
	return &Config{sections: make(map[string]map[string]string)}
}

// Load reads an INI configuration file
func Load(path string) (*Config, error) {
	f, err := ini.LoadSources(loadOptions, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file: %w", err)
	}
	return fromINI(f), nil
}

// Parse reads INI configuration from memory
func Parse(data []byte) (*Config, error) {
	f, err := ini.LoadSources(loadOptions, data)
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return fromINI(f), nil
}

// Passwords and tokens may contain '#' or ';', so inline comments are not stripped.
var loadOptions = ini.LoadOptions{
	IgnoreInlineComment: true,
}

func fromINI(f *ini.File) *Config {
	c := New()
	for _, sec := range f.Sections() {
		for _, key := range sec.Keys() {
			c.Set(sec.Name(), key.Name(), key.String())
		}
	}
	return c
}

// Set stores a value, replacing any previous one
func (c *Config) Set(section, key, value string) {
	name := strings.ToLower(strings.TrimSpace(section))
	values, ok := c.sections[name]
	if !ok {
		values = make(map[string]string)
		c.sections[name] = values
	}
	values[normalizeKey(key)] = value
}

// Merge copies the set values of other into c; values in other win
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}
	for name, values := range other.sections {
		for k, v := range values {
			if v == "" {
				continue
			}
			c.Set(name, k, v)
		}
	}
}

// Section returns the named section with [DEFAULT] values filled in.
// A section that does not exist yields an empty view.
func (c *Config) Section(name string) Section {
	name = strings.ToLower(name)
	values := make(map[string]string)
	maps.Copy(values, c.sections[defaultSection])
	maps.Copy(values, c.sections[name])
	return Section{name: name, values: values}
}

// Sections returns the section names in sorted order
func (c *Config) Sections() []string {
	names := slices.Collect(maps.Keys(c.sections))
	slices.Sort(names)
	return names
}

// ParseOverride parses a section.key=value override
func ParseOverride(override string) (section, key, value string, err error) {
	parts := strings.SplitN(override, "=", 2)
	if len(parts) != 2 {
		return "", "", "", fmt.Errorf("invalid format, expected section.key=value: %s", override)
	}

	name := strings.TrimSpace(parts[0])
	section, key, ok := strings.Cut(name, ".")
	if !ok || strings.TrimSpace(section) == "" {
		return "", "", "", fmt.Errorf("missing section in %q, expected section.key=value", name)
	}
	if strings.TrimSpace(key) == "" {
		return "", "", "", fmt.Errorf("empty key in %q", name)
	}

	return strings.TrimSpace(section), strings.TrimSpace(key), strings.TrimSpace(parts[1]), nil
}

// ParseEnvWithPrefix collects PREFIX_<SECTION>_<KEY> variables from environ.
// The section is the segment before the first underscore, the rest is the key.
func ParseEnvWithPrefix(prefix string, environ []string) *Config {
	c := New()
	envPrefix := prefix + "_"
	for _, env := range environ {
		if !strings.HasPrefix(env, envPrefix) {
			continue
		}
		name, value, ok := strings.Cut(env, "=")
		if !ok || value == "" {
			continue
		}
		section, key, ok := strings.Cut(strings.TrimPrefix(name, envPrefix), "_")
		if !ok || section == "" || key == "" {
			continue
		}
		c.Set(section, key, value)
	}
	return c
}

// Build assembles the configuration from all sources.
// Precedence: environment < file < overrides.
func Build(path string, overrides []string) (*Config, error) {
	result := ParseEnvWithPrefix(EnvPrefix, os.Environ())

	fileConfig, err := Load(path)
	if err != nil {
		return nil, err
	}
	result.Merge(fileConfig)

	for _, o := range overrides {
		section, key, value, err := ParseOverride(o)
		if err != nil {
			return nil, fmt.Errorf("failed to parse override: %w", err)
		}
		result.Set(section, key, value)
	}

	return result, nil
}
