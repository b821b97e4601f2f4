package config

import (
	"bytes"
	"errors"
	"os"

	"gopkg.in/yaml.v3"
)

var ErrNoEmbedded = errors.New("config: no embedded config")

// Parse decodes YAML, rejecting unknown keys, then validates and normalizes.
func Parse(raw []byte) (*Config, error) {
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)

	var cfg Config
	if err := dec.Decode(&cfg); err != nil {
		return nil, err
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	Normalize(&cfg)
	return &cfg, nil
}

// Load reads and parses the file at path.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(raw)
}

// EmbeddedConfigLookup resolves a built-in config by device ID. Boards
// without a filesystem use this instead of Load.
var EmbeddedConfigLookup = func(device string) ([]byte, bool) {
	s, ok := embeddedConfigs[device]
	return []byte(s), ok
}

func Embedded(device string) (*Config, error) {
	raw, ok := EmbeddedConfigLookup(device)
	if !ok || len(raw) == 0 {
		return nil, ErrNoEmbedded
	}
	return Parse(raw)
}
