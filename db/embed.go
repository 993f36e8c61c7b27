// Package db embeds the ledger migrations.
package db

import "embed"

// Migrations holds the ledger DDL files. They are applied in name order and
// must be idempotent.
//
//go:embed migrations/*.sql
var Migrations embed.FS
