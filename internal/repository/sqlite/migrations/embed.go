package migrations

import "embed"

// FS contains embedded SQLite migrations for the node store.
//
//go:embed *.sql
var FS embed.FS
