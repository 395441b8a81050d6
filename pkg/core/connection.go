package core

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"sort"
	"strings"

	"github.com/go-viper/mapstructure/v2"
)

// Engine identifies the SQL engine a connection targets. It is the tag of the
// ConnectionConfig union.
type Engine string

// Supported engines.
const (
	EnginePostgres   Engine = "postgres"
	EngineRedshift   Engine = "redshift"
	EngineSnowflake  Engine = "snowflake"
	EngineBigQuery   Engine = "bigquery"
	EngineDatabricks Engine = "databricks"
	EngineDuckDB     Engine = "duckdb"
)

// Engines returns every supported engine, sorted.
func Engines() []Engine {
	engines := []Engine{
		EnginePostgres, EngineRedshift, EngineSnowflake,
		EngineBigQuery, EngineDatabricks, EngineDuckDB,
	}
	sort.Slice(engines, func(i, j int) bool { return engines[i] < engines[j] })
	return engines
}

// BigQueryServiceAccount is the only supported BigQuery authentication method.
const BigQueryServiceAccount = "service-account"

// Default schema names per engine.
const (
	DefaultPostgresSchema = "public"
	DefaultDuckDBSchema   = "main"
)

// ConnectionConfig is a tagged union of engine-specific connection settings.
// Exactly one of the engine pointers is set and it always matches Engine;
// adapters read only the struct for their own engine.
type ConnectionConfig struct {
	Name   string
	Engine Engine

	Postgres   *PostgresConfig
	Redshift   *RedshiftConfig
	Snowflake  *SnowflakeConfig
	BigQuery   *BigQueryConfig
	Databricks *DatabricksConfig
	DuckDB     *DuckDBConfig
}

// PostgresConfig holds Postgres connection settings.
type PostgresConfig struct {
	Host        string `mapstructure:"host" json:"host"`
	Port        int    `mapstructure:"port" json:"port"`
	Username    string `mapstructure:"username" json:"username"`
	Password    string `mapstructure:"password" json:"password"`
	Database    string `mapstructure:"database" json:"database"`
	Schema      string `mapstructure:"schema" json:"schema"`
	SSL         *bool  `mapstructure:"ssl" json:"ssl,omitempty"`
	SSLRootCert string `mapstructure:"sslrootcert" json:"sslrootcert,omitempty"`
}

// RedshiftConfig holds Redshift connection settings. Redshift speaks the
// Postgres wire protocol, so the fields are shared; SSL defaults to on.
type RedshiftConfig struct {
	PostgresConfig `mapstructure:",squash"`
}

// SnowflakeConfig holds Snowflake connection settings.
type SnowflakeConfig struct {
	Account   string `mapstructure:"account" json:"account"`
	Username  string `mapstructure:"username" json:"username"`
	Password  string `mapstructure:"password" json:"password"`
	Warehouse string `mapstructure:"warehouse" json:"warehouse"`
	Database  string `mapstructure:"database" json:"database"`
	Schema    string `mapstructure:"schema" json:"schema"`
	Role      string `mapstructure:"role" json:"role"`
}

// BigQueryConfig holds BigQuery connection settings. Keyfile is the service
// account key as a JSON string, not a path.
type BigQueryConfig struct {
	Project  string `mapstructure:"project" json:"project"`
	Method   string `mapstructure:"method" json:"method"`
	Keyfile  string `mapstructure:"keyfile" json:"keyfile"`
	Location string `mapstructure:"location" json:"location,omitempty"`
	Priority string `mapstructure:"priority" json:"priority,omitempty"`
	Dataset  string `mapstructure:"dataset" json:"dataset,omitempty"`
}

// DatabricksConfig holds Databricks SQL warehouse settings.
type DatabricksConfig struct {
	Host     string `mapstructure:"host" json:"host"`
	HTTPPath string `mapstructure:"httpPath" json:"httpPath"`
	Token    string `mapstructure:"token" json:"token"`
	Catalog  string `mapstructure:"catalog" json:"catalog,omitempty"`
	Schema   string `mapstructure:"schema" json:"schema,omitempty"`
}

// DuckDBConfig holds DuckDB settings.
type DuckDBConfig struct {
	DatabasePath string `mapstructure:"database_path" json:"database_path"`
	Schema       string `mapstructure:"schema" json:"schema"`

	// ReadOnly opens the file in read-only access mode, which several
	// processes may hold at once.
	ReadOnly bool `mapstructure:"read_only" json:"read_only,omitempty"`
	// Settings are applied with SET on every new session (e.g. threads,
	// memory_limit).
	Settings map[string]string `mapstructure:"settings" json:"settings,omitempty"`
	// Extensions are loaded on every new session.
	Extensions []string `mapstructure:"extensions" json:"extensions,omitempty"`
}

// DecodeConnectionConfig builds a ConnectionConfig from a flat key/value map
// such as one entry of the connections file. The "type" key selects the
// engine; keys that belong to other engines are ignored.
func DecodeConnectionConfig(raw map[string]any) (ConnectionConfig, error) {
	tag, _ := raw["type"].(string)
	cfg := ConnectionConfig{Engine: Engine(strings.ToLower(strings.TrimSpace(tag)))}
	cfg.Name, _ = raw["name"].(string)

	var target any
	switch cfg.Engine {
	case EnginePostgres:
		cfg.Postgres = &PostgresConfig{}
		target = cfg.Postgres
	case EngineRedshift:
		cfg.Redshift = &RedshiftConfig{}
		target = cfg.Redshift
	case EngineSnowflake:
		cfg.Snowflake = &SnowflakeConfig{}
		target = cfg.Snowflake
	case EngineBigQuery:
		cfg.BigQuery = &BigQueryConfig{}
		target = cfg.BigQuery
	case EngineDatabricks:
		cfg.Databricks = &DatabricksConfig{}
		target = cfg.Databricks
	case EngineDuckDB:
		cfg.DuckDB = &DuckDBConfig{}
		target = cfg.DuckDB
	case "":
		return cfg, fmt.Errorf("connection %q: type not specified", cfg.Name)
	default:
		return cfg, fmt.Errorf("connection %q: unsupported type %q", cfg.Name, tag)
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return cfg, fmt.Errorf("failed to create decoder: %w", err)
	}
	if err := decoder.Decode(raw); err != nil {
		return cfg, fmt.Errorf("connection %q: failed to decode %s settings: %w", cfg.Name, cfg.Engine, err)
	}

	cfg.ApplyDefaults()
	return cfg, nil
}

// Clone returns a copy of c whose engine structs are not shared with c, so
// ApplyDefaults on the copy leaves the caller's config untouched.
func (c ConnectionConfig) Clone() ConnectionConfig {
	out := c
	if c.Postgres != nil {
		v := *c.Postgres
		out.Postgres = &v
	}
	if c.Redshift != nil {
		v := *c.Redshift
		out.Redshift = &v
	}
	if c.Snowflake != nil {
		v := *c.Snowflake
		out.Snowflake = &v
	}
	if c.BigQuery != nil {
		v := *c.BigQuery
		out.BigQuery = &v
	}
	if c.Databricks != nil {
		v := *c.Databricks
		out.Databricks = &v
	}
	if c.DuckDB != nil {
		v := *c.DuckDB
		v.Settings = maps.Clone(c.DuckDB.Settings)
		v.Extensions = slices.Clone(c.DuckDB.Extensions)
		out.DuckDB = &v
	}
	return out
}

// ApplyDefaults fills engine-specific defaults for unset fields.
func (c *ConnectionConfig) ApplyDefaults() {
	switch c.Engine {
	case EnginePostgres:
		if c.Postgres == nil {
			return
		}
		if c.Postgres.Port == 0 {
			c.Postgres.Port = 5432
		}
		if c.Postgres.Schema == "" {
			c.Postgres.Schema = DefaultPostgresSchema
		}
	case EngineRedshift:
		if c.Redshift == nil {
			return
		}
		if c.Redshift.Port == 0 {
			c.Redshift.Port = 5439
		}
		if c.Redshift.Schema == "" {
			c.Redshift.Schema = DefaultPostgresSchema
		}
	case EngineBigQuery:
		if c.BigQuery != nil && c.BigQuery.Method == "" {
			c.BigQuery.Method = BigQueryServiceAccount
		}
	case EngineDuckDB:
		if c.DuckDB != nil && c.DuckDB.Schema == "" {
			c.DuckDB.Schema = DefaultDuckDBSchema
		}
	}
}

// Validate checks that the active engine struct is present.
func (c ConnectionConfig) Validate() error {
	var present bool
	switch c.Engine {
	case EnginePostgres:
		present = c.Postgres != nil
	case EngineRedshift:
		present = c.Redshift != nil
	case EngineSnowflake:
		present = c.Snowflake != nil
	case EngineBigQuery:
		present = c.BigQuery != nil
	case EngineDatabricks:
		present = c.Databricks != nil
	case EngineDuckDB:
		present = c.DuckDB != nil
	case "":
		return fmt.Errorf("connection %q: type not specified", c.Name)
	default:
		return fmt.Errorf("connection %q: unsupported type %q", c.Name, c.Engine)
	}
	if !present {
		return fmt.Errorf("connection %q: missing %s settings", c.Name, c.Engine)
	}
	return nil
}

// SSLEnabled reports whether TLS should be negotiated. Redshift defaults to
// TLS; Postgres only uses it when asked.
func (c RedshiftConfig) SSLEnabled() bool {
	return c.SSL == nil || *c.SSL
}

// active returns the engine struct selected by the tag.
func (c ConnectionConfig) active() any {
	switch c.Engine {
	case EnginePostgres:
		return c.Postgres
	case EngineRedshift:
		return c.Redshift
	case EngineSnowflake:
		return c.Snowflake
	case EngineBigQuery:
		return c.BigQuery
	case EngineDatabricks:
		return c.Databricks
	case EngineDuckDB:
		return c.DuckDB
	}
	return nil
}

// MarshalJSON writes the flat wire shape: name, type and the active engine's
// fields side by side.
func (c ConnectionConfig) MarshalJSON() ([]byte, error) {
	flat := map[string]any{}
	if active := c.active(); active != nil {
		b, err := json.Marshal(active)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(b, &flat); err != nil {
			return nil, err
		}
	}
	flat["name"] = c.Name
	flat["type"] = string(c.Engine)
	return json.Marshal(flat)
}

// UnmarshalJSON reads the flat wire shape written by MarshalJSON.
func (c *ConnectionConfig) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	decoded, err := DecodeConnectionConfig(raw)
	if err != nil {
		return err
	}
	*c = decoded
	return nil
}
