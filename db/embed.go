// Package db embeds the SQL migrations applied by "ormctl db migrate".
package db

import "embed"

//go:embed migrations/*.sql
var Migrations embed.FS
