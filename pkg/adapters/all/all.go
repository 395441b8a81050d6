// Package all registers every engine adapter with the default registry.
//
//	import _ "github.com/leapstack-labs/leapconnect/pkg/adapters/all"
package all

import (
	// Each adapter package registers itself from init().
	_ "github.com/leapstack-labs/leapconnect/pkg/adapters/bigquery"
	_ "github.com/leapstack-labs/leapconnect/pkg/adapters/databricks"
	_ "github.com/leapstack-labs/leapconnect/pkg/adapters/duckdb"
	_ "github.com/leapstack-labs/leapconnect/pkg/adapters/postgres"
	_ "github.com/leapstack-labs/leapconnect/pkg/adapters/snowflake"
)
