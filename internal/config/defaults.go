package config

// Config file names, searched in this order.
const (
	ConfigFileName    = "leapconnect.yaml"
	ConfigFileNameAlt = "leapconnect.yml"
)

// EnvPrefix prefixes environment overrides, e.g. LEAPCONNECT_OUTPUT=json.
const EnvPrefix = "LEAPCONNECT_"

// Default values.
const (
	DefaultLogLevel  = "warn"
	DefaultLogFormat = "text"
	DefaultOutput    = "auto" // table on a TTY, json otherwise
)

// Output formats.
const (
	OutputAuto  = "auto"
	OutputTable = "table"
	OutputJSON  = "json"
	OutputYAML  = "yaml"
	OutputCSV   = "csv"
)

// maxUpwardSearchLevels limits how far up the directory tree to search for config files.
const maxUpwardSearchLevels = 10

// secretKeys are the connection keys that get ${VAR} expansion.
var secretKeys = map[string]bool{
	"password": true,
	"token":    true,
	"keyfile":  true,
	"username": true,
	"host":     true,
	"account":  true,
}
