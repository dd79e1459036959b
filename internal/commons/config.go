package commons

import (
	"fmt"
	"os"

	"go.yaml.in/yaml/v3"

	"webshop/internal/config"
)

// LoadConfig overlays the YAML file at path onto base. Keys missing from
// the file keep the value from base.
func LoadConfig(path string, base *config.Config) (*config.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg config.Config
	if base != nil {
		cfg = *base
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	return &cfg, nil
}
