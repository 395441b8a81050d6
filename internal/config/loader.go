package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/leapstack-labs/leapconnect/pkg/core"
	"github.com/spf13/pflag"
)

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// FindConfigFile returns explicit when set, otherwise the first config file
// found searching upward from dir. Returns "" when there is none.
func FindConfigFile(explicit, dir string) string {
	if explicit != "" {
		return explicit
	}
	for i := 0; i < maxUpwardSearchLevels; i++ {
		for _, name := range []string{ConfigFileName, ConfigFileNameAlt} {
			candidate := filepath.Join(dir, name)
			if _, err := os.Stat(candidate); err == nil {
				return candidate
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}

// Load reads configuration from defaults, the config file, the environment
// and flags. Only flags the user actually set override lower layers.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	// 1. Defaults
	if err := k.Load(confmap.Provider(map[string]interface{}{
		"log_level":  DefaultLogLevel,
		"log_format": DefaultLogFormat,
		"verbose":    false,
		"output":     DefaultOutput,
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config file
	cwd, _ := os.Getwd()
	if cwd == "" {
		cwd = "."
	}
	path := FindConfigFile(cfgFile, cwd)
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", path, err)
		}
	}

	// 3. Environment: LEAPCONNECT_LOG_LEVEL -> log_level
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed || f.Name == "config" {
				return "", nil
			}
			return strings.ReplaceAll(f.Name, "-", "_"), posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.File = path

	conns, err := decodeConnections(k)
	if err != nil {
		return nil, err
	}
	cfg.Connections = conns

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// decodeConnections decodes each entry of the connections list into its
// engine struct.
func decodeConnections(k *koanf.Koanf) ([]core.ConnectionConfig, error) {
	entries := k.Slices("connections")
	conns := make([]core.ConnectionConfig, 0, len(entries))
	for i, entry := range entries {
		raw := entry.Raw()
		expandSecrets(raw)

		conn, err := core.DecodeConnectionConfig(raw)
		if err != nil {
			return nil, fmt.Errorf("connections[%d]: %w", i, err)
		}
		if conn.Name == "" {
			return nil, fmt.Errorf("connections[%d]: name is required", i)
		}
		conns = append(conns, conn)
	}
	return conns, nil
}

func (c *Config) validate() error {
	switch c.Output {
	case OutputAuto, OutputTable, OutputJSON, OutputYAML, OutputCSV:
	default:
		return fmt.Errorf("invalid output format %q (want auto, table, json, yaml or csv)", c.Output)
	}
	seen := make(map[string]bool, len(c.Connections))
	for _, conn := range c.Connections {
		if seen[conn.Name] {
			return fmt.Errorf("duplicate connection name %q", conn.Name)
		}
		seen[conn.Name] = true
	}
	return nil
}

// expandSecrets replaces ${VAR} in secret-bearing string values.
func expandSecrets(raw map[string]any) {
	for key, val := range raw {
		s, ok := val.(string)
		if !ok || !secretKeys[key] {
			continue
		}
		raw[key] = ExpandEnvVars(s)
	}
}

// ExpandEnvVars expands ${VAR} patterns with environment variable values.
// Unset variables are left as written.
func ExpandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[2 : len(match)-1]
		if val := os.Getenv(varName); val != "" {
			return val
		}
		return match
	})
}
