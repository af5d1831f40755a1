// Package config validates the option set handed to a generation backend.
package config

import (
	"os"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"winmdgen/internal/errors"
)

// Backend names a generation target.
type Backend string

const (
	BackendGo  Backend = "go"
	BackendIDL Backend = "idl"
)

// Recognised option keys.
const (
	KeyMinimal = "minimal"
	KeySys     = "sys"
	KeyFlatten = "flatten"
	KeyPackage = "package"
	KeyCore    = "core"
)

// DefaultPackage is the import path prefix of generated Go packages.
const DefaultPackage = "winmdgen/bindings"

// DefaultCore is the import path of the runtime support package.
const DefaultCore = "winmdgen/core"

// Options are the validated settings of one backend.
type Options struct {
	// Minimal suppresses derived-capability emission.
	Minimal bool
	// Sys suppresses wrapper ergonomics and emits raw aliases and constants.
	Sys bool
	// Flatten renders every namespace into a single file.
	Flatten bool
	// Package is the import path prefix generated namespaces live under.
	Package string
	// Core is the import path of the runtime support package.
	Core string
}

var acceptedKeys = map[Backend][]string{
	BackendGo:  {KeyCore, KeyFlatten, KeyMinimal, KeyPackage, KeySys},
	BackendIDL: {},
}

// Parse validates values for backend. Any key the backend does not accept is
// reported before generation starts.
func Parse(backend Backend, values map[string]string) (Options, error) {
	accepted, ok := acceptedKeys[backend]
	if !ok {
		return Options{}, errors.Wrapf(errors.ErrInvalidConfig, "unknown backend %q", string(backend))
	}

	options := Options{
		Package: DefaultPackage,
		Core:    DefaultCore,
	}

	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		value := values[key]
		if !contains(accepted, key) {
			err := errors.Wrapf(errors.ErrInvalidConfig, "`%s`", key)
			if len(accepted) == 0 {
				return Options{}, errors.WithHintf(err, "the %s backend takes no configuration", backend)
			}
			return Options{}, errors.WithHintf(err, "accepted keys: %s", strings.Join(accepted, ", "))
		}

		var err error
		switch key {
		case KeyMinimal:
			options.Minimal, err = parseBool(key, value)
		case KeySys:
			options.Sys, err = parseBool(key, value)
		case KeyFlatten:
			options.Flatten, err = parseBool(key, value)
		case KeyPackage:
			options.Package, err = parsePath(key, value)
		case KeyCore:
			options.Core, err = parsePath(key, value)
		}
		if err != nil {
			return Options{}, err
		}
	}

	return options, nil
}

// ParsePairs turns `key` and `key=value` items into a map. Later items win.
func ParsePairs(pairs []string) (map[string]string, error) {
	values := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, _ := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if key == "" {
			return nil, errors.Wrapf(errors.ErrInvalidConfig, "empty key in %q", pair)
		}
		values[key] = strings.TrimSpace(value)
	}
	return values, nil
}

// LoadFile reads a flat YAML mapping of option keys to scalar values.
func LoadFile(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading config file")
	}

	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrapf(errors.ErrInvalidConfig, "parsing YAML config %s: %v", path, err)
	}

	values := make(map[string]string, len(raw))
	for key, value := range raw {
		switch v := value.(type) {
		case nil:
			values[key] = ""
		case bool:
			values[key] = strconv.FormatBool(v)
		case string:
			values[key] = v
		default:
			return nil, errors.Wrapf(errors.ErrInvalidConfig, "`%s` in %s must be a scalar", key, path)
		}
	}
	return values, nil
}

// Merge returns base overridden by overrides.
func Merge(base, overrides map[string]string) map[string]string {
	merged := make(map[string]string, len(base)+len(overrides))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range overrides {
		merged[k] = v
	}
	return merged
}

func parseBool(key, value string) (bool, error) {
	if value == "" {
		return true, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, errors.Wrapf(errors.ErrInvalidConfig, "`%s` expects a boolean, got %q", key, value)
	}
	return b, nil
}

func parsePath(key, value string) (string, error) {
	value = strings.Trim(value, "/")
	if value == "" {
		return "", errors.Wrapf(errors.ErrInvalidConfig, "`%s` cannot be empty", key)
	}
	return value, nil
}

func contains(list []string, item string) bool {
	for _, v := range list {
		if v == item {
			return true
		}
	}
	return false
}
