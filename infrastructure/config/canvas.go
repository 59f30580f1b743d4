package config

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	domainconfig "nodal/domain/config"
)

// LoadCanvasConfig reads canvas rules from a YAML file. Keys missing from
// the file keep the defaults for the environment. An empty path returns the
// defaults.
func LoadCanvasConfig(path, environment string) (*domainconfig.DomainConfig, error) {
	cfg := domainconfig.LoadDomainConfig(environment)
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read canvas config: %w", err)
	}
	return ParseCanvasConfig(data, cfg)
}

// ParseCanvasConfig overlays YAML onto base and validates the result.
// Unknown keys are rejected.
func ParseCanvasConfig(data []byte, base *domainconfig.DomainConfig) (*domainconfig.DomainConfig, error) {
	cfg := *base
	if len(bytes.TrimSpace(data)) > 0 {
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil {
			return nil, fmt.Errorf("failed to parse canvas config: %w", err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid canvas config: %w", err)
	}
	return &cfg, nil
}
