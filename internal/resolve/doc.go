// Package resolve applies resolution strategies to conflicts.
//
// [Engine.Resolve] admits at most one resolution per conflict id at a time.
// A second call for an id already in flight fails immediately with a
// ConcurrencyError; it never waits. Admission is delegated to a
// [lease.Admitter], so the same guard works in one process or across
// several.
//
// A successful resolution marks the conflict resolved, records the value
// and strategy, bumps the version, and appends a history entry in one
// repository commit. Any failure leaves the conflict untouched.
//
// The workflow_approval strategy does not resolve: it registers the
// embedded workflow against the conflict and returns a pending result.
// Until that workflow completes, direct resolution is refused.
package resolve
