// Package config loads leapconnect settings and connection definitions.
//
// Sources are layered with koanf. Precedence, highest first: explicitly set
// flags, LEAPCONNECT_ environment variables, the config file, defaults.
package config

import (
	"fmt"
	"sort"
	"strings"

	"github.com/leapstack-labs/leapconnect/pkg/core"
)

// Config holds CLI settings and every configured connection.
type Config struct {
	LogLevel  string `koanf:"log_level"`
	LogFormat string `koanf:"log_format"`
	Verbose   bool   `koanf:"verbose"`
	Output    string `koanf:"output"`

	// Connection names the connection used when a command is not told
	// otherwise.
	Connection string `koanf:"connection"`

	// Connections are decoded separately through core.DecodeConnectionConfig.
	Connections []core.ConnectionConfig `koanf:"-"`

	// File is the config file that was read, if any.
	File string `koanf:"-"`
}

// Lookup returns the named connection. An empty name selects Config.Connection,
// or the only connection when exactly one is configured.
func (c *Config) Lookup(name string) (core.ConnectionConfig, error) {
	if name == "" {
		name = c.Connection
	}
	if name == "" {
		switch len(c.Connections) {
		case 0:
			return core.ConnectionConfig{}, fmt.Errorf("no connections configured\nHint: Add a connections list to %s", ConfigFileName)
		case 1:
			return c.Connections[0], nil
		default:
			return core.ConnectionConfig{}, fmt.Errorf("several connections configured, choose one with --connection: %s", strings.Join(c.Names(), ", "))
		}
	}
	for _, conn := range c.Connections {
		if conn.Name == name {
			return conn, nil
		}
	}
	return core.ConnectionConfig{}, fmt.Errorf("connection %q not found\nAvailable connections: %s", name, strings.Join(c.Names(), ", "))
}

// Names returns connection names, sorted.
func (c *Config) Names() []string {
	names := make([]string, 0, len(c.Connections))
	for _, conn := range c.Connections {
		names = append(names, conn.Name)
	}
	sort.Strings(names)
	return names
}
