// Package lease provides non-blocking admission keyed by string.
//
// An [Admitter] either admits a key immediately or reports that another
// holder has it; it never waits. Three implementations cover increasing
// deployment scope:
//
//   - [Memory]: a mutex-guarded set, for a single process
//   - [File]: flock(2) lock files, for processes sharing a host
//   - [Postgres]: pg_try_advisory_lock, for processes sharing a database
//
// File and Postgres also keep an in-process set so one process never
// admits the same key twice, independent of how the OS or server scopes
// the underlying lock.
package lease
