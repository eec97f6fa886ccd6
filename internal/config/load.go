package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Load reads a pipeline file, choosing the decoder by extension: .json,
// .yaml/.yml or .toml. Unknown fields are rejected so typos surface early.
func Load(path string) (Pipeline, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Pipeline{}, fmt.Errorf("read config: %w", err)
	}
	p, err := Decode(b, filepath.Ext(path))
	if err != nil {
		return Pipeline{}, fmt.Errorf("decode config %s: %w", path, err)
	}
	return p, nil
}

// Decode parses b in the format implied by ext (".json", ".yaml", ".yml",
// ".toml"; the leading dot is optional).
func Decode(b []byte, ext string) (Pipeline, error) {
	var p Pipeline
	switch strings.TrimPrefix(strings.ToLower(ext), ".") {
	case "json":
		dec := json.NewDecoder(bytes.NewReader(b))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&p); err != nil {
			return Pipeline{}, err
		}
	case "yaml", "yml":
		dec := yaml.NewDecoder(bytes.NewReader(b))
		dec.KnownFields(true)
		if err := dec.Decode(&p); err != nil {
			return Pipeline{}, err
		}
	case "toml":
		dec := toml.NewDecoder(bytes.NewReader(b))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&p); err != nil {
			return Pipeline{}, err
		}
	default:
		return Pipeline{}, fmt.Errorf("unsupported config format %q", ext)
	}
	return p, nil
}
