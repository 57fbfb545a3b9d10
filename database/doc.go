// Package database wires SQL backends for the smartdrive table stores.
//
// Connect returns an AccountDirectory and FileCatalog backed by SQLite or
// PostgreSQL, after running migrations and validating the schema. Listing by
// owner is an indexed query rather than a full scan in both backends.
package database
