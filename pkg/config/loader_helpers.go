package config

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/odvcencio/hoverkit/pkg/errors"
)

// loadAndMerge loads a YAML file and merges it into the config. Read
// failures keep the underlying error reachable through errors.Is.
func loadAndMerge(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeConfigLoad, "reading config").WithContext("path", path)
	}

	var override Config
	if err := yaml.Unmarshal(data, &override); err != nil {
		return errors.Wrap(err, errors.ErrCodeConfigParse, "parsing YAML").WithContext("path", path)
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return errors.Wrap(err, errors.ErrCodeConfigParse, "parsing YAML").WithContext("path", path)
	}

	mergeConfigs(cfg, &override, raw)
	return nil
}

// mergeConfigs merges override into base. Booleans only override when the
// file mentions them, so a missing key never turns a feature off.
func mergeConfigs(base, override *Config, raw map[string]any) {
	if override == nil {
		return
	}

	if boolFieldSet(raw, "hover", "enabled") {
		base.Hover.Enabled = override.Hover.Enabled
	}
	if override.Hover.Delay != 0 {
		base.Hover.Delay = override.Hover.Delay
	}
	if override.Hover.RequestDelay != 0 {
		base.Hover.RequestDelay = override.Hover.RequestDelay
	}

	if override.Theme != "" {
		base.Theme = override.Theme
	}

	if override.Log.Level != "" {
		base.Log.Level = override.Log.Level
	}
	if override.Log.Format != "" {
		base.Log.Format = override.Log.Format
	}

	if override.LSP.Command != "" {
		base.LSP.Command = override.LSP.Command
		base.LSP.Args = override.LSP.Args
	} else if override.LSP.Args != nil {
		base.LSP.Args = override.LSP.Args
	}
	if override.LSP.Root != "" {
		base.LSP.Root = override.LSP.Root
	}

	if override.Metrics.Listen != "" {
		base.Metrics.Listen = override.Metrics.Listen
	}
}

func boolFieldSet(raw map[string]any, path ...string) bool {
	if len(path) == 0 || raw == nil {
		return false
	}
	current := any(raw)
	for _, key := range path {
		m, ok := current.(map[string]any)
		if !ok {
			return false
		}
		val, ok := m[key]
		if !ok {
			return false
		}
		current = val
	}
	return true
}
