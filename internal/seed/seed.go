// Package seed loads initial blackboard values from YAML, TOML or JSON
// documents.
//
// A seed document is a single mapping of blackboard keys to values. Values
// pass through the JSON codec of package binding, so a key declared with a
// type beforehand receives that type, and an undeclared key receives a
// generic value (numbers become float64).
package seed

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/segmentio/encoding/json"
	"gopkg.in/yaml.v3"

	"github.com/joeycumines/bteng/internal/binding"
	"github.com/joeycumines/bteng/internal/bt"
)

// Format names a seed document syntax.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// ErrUnknownFormat reports a file extension with no matching Format.
var ErrUnknownFormat = errors.New("seed: unknown format")

// DetectFormat picks the format from the extension of path.
func DetectFormat(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, filepath.Base(path))
	}
}

// Parse decodes a seed document into one JSON value per key.
func Parse(format Format, data []byte) (map[string][]byte, error) {
	var doc map[string]any
	switch format {
	case FormatJSON:
		var raw map[string]json.RawMessage
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("seed: JSON parse error: %w", err)
		}
		out := make(map[string][]byte, len(raw))
		for k, v := range raw {
			out[k] = v
		}
		return out, nil
	case FormatYAML:
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("seed: YAML parse error: %w", err)
		}
	case FormatTOML:
		if err := toml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("seed: TOML parse error: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}

	out := make(map[string][]byte, len(doc))
	for k, v := range doc {
		normalized, err := normalize(v)
		if err != nil {
			return nil, fmt.Errorf("seed: key %q: %w", k, err)
		}
		encoded, err := json.Marshal(normalized)
		if err != nil {
			return nil, fmt.Errorf("seed: key %q: %w", k, err)
		}
		out[k] = encoded
	}
	return out, nil
}

// normalize rewrites YAML mappings with non-string keys, which JSON cannot
// encode.
func normalize(v any) (any, error) {
	switch x := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			n, err := normalize(e)
			if err != nil {
				return nil, err
			}
			out[k] = n
		}
		return out, nil
	case map[any]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			n, err := normalize(e)
			if err != nil {
				return nil, err
			}
			out[fmt.Sprint(k)] = n
		}
		return out, nil
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			n, err := normalize(e)
			if err != nil {
				return nil, err
			}
			out[i] = n
		}
		return out, nil
	case []map[string]any:
		// TOML arrays of tables
		out := make([]any, len(x))
		for i, e := range x {
			n, err := normalize(e)
			if err != nil {
				return nil, err
			}
			out[i] = n
		}
		return out, nil
	default:
		return v, nil
	}
}

// Apply writes values to bb in key order. It stops at the first key that
// cannot be stored; the keys before it stay written.
func Apply(bb *bt.Blackboard, values map[string][]byte) ([]string, error) {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for i, k := range keys {
		if err := binding.ImportValue(binding.JSON{}, bb, k, values[k]); err != nil {
			return keys[:i], fmt.Errorf("seed: %w", err)
		}
	}
	return keys, nil
}

// LoadFile parses the document at path and applies it to bb, returning the
// keys written.
func LoadFile(path string, bb *bt.Blackboard) ([]string, error) {
	format, err := DetectFormat(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("seed: %w", err)
	}
	values, err := Parse(format, data)
	if err != nil {
		return nil, err
	}
	return Apply(bb, values)
}
