// SPDX-License-Identifier: MIT
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Load reads configuration from a YAML file at path. If path is empty it
// searches default locations ("lumen.yaml", "config.yaml"); if no file is
// found the built-in defaults are used. Environment overrides are applied
// after the file, and the result is validated.
func Load(path string) (*Config, error) {
	cfg := NewConfig()

	if path == "" {
		for _, candidate := range []string{"lumen.yaml", "config.yaml"} {
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			}
		}
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// applyEnvOverrides layers LUMEN_* environment variables on top of whatever
// was loaded from file. Only knobs that matter for headless deployments are
// exposed this way.
func (cfg *Config) applyEnvOverrides() {
	if val, ok := os.LookupEnv("LUMEN_DEBUG"); ok {
		if bVal, err := strconv.ParseBool(val); err == nil {
			cfg.Debug = bVal
		}
	}
	if val, ok := os.LookupEnv("LUMEN_DEVICE"); ok {
		if iVal, err := strconv.Atoi(val); err == nil {
			cfg.Audio.DeviceID = iVal
		}
	}
	if val, ok := os.LookupEnv("LUMEN_WS_ADDR"); ok {
		cfg.Present.WebSocketEnabled = true
		cfg.Present.WebSocketAddr = val
	}
	if val, ok := os.LookupEnv("LUMEN_UDP_TARGET"); ok {
		cfg.Present.UDPEnabled = true
		cfg.Present.UDPTargetAddress = val
	}
}
