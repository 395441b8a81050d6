// Command leapconnect tests connections, extracts schemas and runs queries
// against Postgres, Redshift, Snowflake, BigQuery, Databricks and DuckDB.
package main

import (
	"os"

	"github.com/leapstack-labs/leapconnect/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
