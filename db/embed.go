// Package db provides the embedded database schema and seed catalog.
package db

import _ "embed"

// Schema contains the DDL statements for all application tables.
//
//go:embed migrations/001_schema.sql
var Schema string

// Catalog is the default catalog of customers, branches and products loaded
// by cmd/seed-db and by the in-memory storage driver.
//
//go:embed seed/catalog.json
var Catalog []byte
