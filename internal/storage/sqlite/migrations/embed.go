// Package migrations embeds the SQL schema for the bonding engine's
// sqlite store.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
