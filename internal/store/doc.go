// Package store provides the key/value persistence substrate that tenant
// collections are written to.
//
// The engine only needs get/set semantics over opaque byte values, so every
// backend implements the small [Store] interface. Keys use ":" as a path
// separator ("conflicts:acme"); each segment is restricted to letters,
// digits, hyphens, and underscores so keys are safe as file names and SQL
// parameters alike.
//
// # Backends
//
//   - [Memory]: process-local map, used in tests and for ephemeral runs
//   - [FileStore]: one JSON file per key, written atomically via rename
//   - [SQLite]: single-table KV on modernc.org/sqlite (pure Go, no cgo)
//   - [Postgres]: single-table KV on a pgx connection pool
//
// [Open] selects a backend from configuration.
//
// # Consistency
//
// Every backend gives read-your-writes within a process: a Get that starts
// after a Set returns has observed it.
package store
