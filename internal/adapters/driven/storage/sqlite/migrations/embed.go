// Package migrations embeds the SQL schema migrations for the
// document store.
package migrations

import "embed"

// FS holds the migration files, embedded at compile time.
//
//go:embed *.sql
var FS embed.FS
