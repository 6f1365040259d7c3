package route

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// document is the on-disk layout of a precomputed route.
type document struct {
	Name     string    `json:"name" yaml:"name"`
	Segments []Segment `json:"segments" yaml:"segments"`
}

// Route is a named, validated list of segments.
type Route struct {
	Name     string
	Segments []Segment
}

// LoadFile reads a route from a .json, .yaml or .yml file. Both a bare list of
// segments and an object with "name" and "segments" are accepted.
func LoadFile(path string) (*Route, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read route file: %w", err)
	}
	ext := strings.ToLower(filepath.Ext(path))
	r, err := Parse(data, ext)
	if err != nil {
		return nil, fmt.Errorf("route file %s: %w", path, err)
	}
	if r.Name == "" {
		r.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return r, nil
}

// Parse decodes route data; format is a file extension (".json", ".yaml", ".yml").
func Parse(data []byte, format string) (*Route, error) {
	var doc document
	switch format {
	case ".json":
		trimmed := strings.TrimSpace(string(data))
		if strings.HasPrefix(trimmed, "[") {
			if err := json.Unmarshal(data, &doc.Segments); err != nil {
				return nil, fmt.Errorf("decode json: %w", err)
			}
		} else if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("decode json: %w", err)
		}
	case ".yaml", ".yml":
		var node yaml.Node
		if err := yaml.Unmarshal(data, &node); err != nil {
			return nil, fmt.Errorf("decode yaml: %w", err)
		}
		if len(node.Content) > 0 && node.Content[0].Kind == yaml.SequenceNode {
			if err := node.Decode(&doc.Segments); err != nil {
				return nil, fmt.Errorf("decode yaml: %w", err)
			}
		} else if err := node.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode yaml: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported route format %q", format)
	}
	if err := ValidateAll(doc.Segments); err != nil {
		return nil, err
	}
	return &Route{Name: doc.Name, Segments: doc.Segments}, nil
}
