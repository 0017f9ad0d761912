// Package store defines the persistence interfaces used by the services.
// Implementations live in internal/platform/postgres. Every store accepts a
// DBTX so it can run on a pool or inside a transaction, and exposes WithTx
// to rebind itself to a caller-managed *sql.Tx.
//
// Stores return the sentinel errors declared in errors.go, wrapped with
// context. Ownership checks are done by the services, not here.
package store
