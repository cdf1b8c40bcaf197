// Package migrations embeds goose SQL migrations for both services.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
