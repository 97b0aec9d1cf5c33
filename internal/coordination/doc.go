// Package coordination provides a Coordinator that wires the conflict
// components together for a single tenant.
//
// The Coordinator owns the tenant pipeline:
//
//	intake → Detector → Repository ← resolve.Engine ← approval.Engine
//
// Plus the escalation policy, which runs as a background sweep between
// Start and Stop, and the analytics view over the same repository.
//
// Usage:
//
//	c, err := coordination.NewCoordinator(coordination.Config{
//	    TenantID: "acme",
//	    Store:    kv,
//	})
//	if err != nil {
//	    return err
//	}
//	if err := c.Start(ctx); err != nil {
//	    return err
//	}
//	defer c.Stop()
//
//	res, err := c.ResolveConflict(ctx, id, strategy.ServerWins{})
package coordination
