package duckdb

import (
	"context"
	"database/sql/driver"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/leapstack-labs/leapconnect/pkg/core"
)

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// dsn returns the go-duckdb DSN for cfg.
func dsn(cfg core.DuckDBConfig) string {
	if cfg.ReadOnly {
		return cfg.DatabasePath + "?access_mode=READ_ONLY"
	}
	return cfg.DatabasePath
}

// sessionStatements builds the statements run on every new session:
// extension loads first, then settings in key order.
func sessionStatements(cfg core.DuckDBConfig) ([]string, error) {
	var stmts []string
	for _, ext := range cfg.Extensions {
		if !identPattern.MatchString(ext) {
			return nil, fmt.Errorf("invalid extension name %q", ext)
		}
		stmts = append(stmts, "INSTALL "+ext, "LOAD "+ext)
	}

	keys := make([]string, 0, len(cfg.Settings))
	for k := range cfg.Settings {
		if !identPattern.MatchString(k) {
			return nil, fmt.Errorf("invalid setting name %q", k)
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v := strings.ReplaceAll(cfg.Settings[k], "'", "''")
		stmts = append(stmts, fmt.Sprintf("SET %s = '%s'", k, v))
	}
	return stmts, nil
}

// sessionInit returns the go-duckdb connection init hook for stmts.
func sessionInit(stmts []string) func(driver.ExecerContext) error {
	if len(stmts) == 0 {
		return nil
	}
	return func(execer driver.ExecerContext) error {
		for _, stmt := range stmts {
			if _, err := execer.ExecContext(context.Background(), stmt, nil); err != nil {
				return fmt.Errorf("failed to run %q: %w", stmt, err)
			}
		}
		return nil
	}
}
