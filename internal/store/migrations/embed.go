// Package migrations embeds the SQL migrations applied after AutoMigrate.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
