// Package orchestrator builds and caches one coordination.Coordinator per
// tenant from a config.Config.
//
// Backends that are safe to share (the key/value store and the resolution
// admitter) are opened once and reused by every tenant. Everything holding
// tenant state is created per tenant, so no two tenants share a collection.
package orchestrator
