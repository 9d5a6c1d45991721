// Package migrations embeds the schema applied at startup.
package migrations

import _ "embed"

//go:embed schema.sql
var Schema string
