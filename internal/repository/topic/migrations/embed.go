// Package migrations embeds the topic schema for each SQL dialect.
package migrations

import "embed"

// FS holds sqlite/*.up.sql and postgres/*.up.sql.
//
//go:embed sqlite/*.sql postgres/*.sql
var FS embed.FS
