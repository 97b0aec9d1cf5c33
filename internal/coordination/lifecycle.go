package coordination

import (
	"context"
	"errors"
)

// Start begins the background escalation sweep. It returns an error if the
// coordinator is already started. With no sweep interval configured it only
// marks the coordinator running.
func (c *Coordinator) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.started {
		return errors.New("coordination: coordinator already started")
	}

	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.started = true
	c.sweepDone = make(chan struct{})

	go func() {
		defer close(c.sweepDone)
		_ = c.policy.Run(ctx, c.sweepInterval)
	}()

	c.logger.Info("coordinator started", "sweep_interval", c.sweepInterval.String())
	return nil
}

// Stop cancels the sweep and waits for it to exit. It is idempotent.
func (c *Coordinator) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.started {
		return nil
	}

	c.cancel()
	<-c.sweepDone

	c.started = false
	c.logger.Info("coordinator stopped")
	return nil
}

// Running returns whether the coordinator is currently started.
func (c *Coordinator) Running() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.started
}
