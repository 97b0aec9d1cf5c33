// Package repository holds one tenant's conflicts, workflows, and
// resolution history on top of a [store.Store].
//
// Each collection is a single JSON array under a tenant-scoped key:
//
//	conflicts:<tenant>
//	workflows:<tenant>
//	history:<tenant>
//
// A Repository serializes every read-modify-write with a mutex, which gives
// read-your-writes within a process. Multi-collection updates such as
// [Repository.CommitResolution] restore the earlier collection when a later
// write fails, so a failed commit leaves no partial state behind.
package repository
