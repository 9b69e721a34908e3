package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/tunaaoguzhann/secure-delivery/internal/flagx"
)

// parseFile overlays the YAML file named by -c/-config. Keys absent from
// the file keep their current values.
func parseFile(cfg *Config, args []string) error {
	path := flagx.ConfigPath(args)
	if path == "" {
		return nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}
