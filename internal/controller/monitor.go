package controller

import (
	"context"
	"time"
)

// DefaultMonitorInterval is how often RunMonitor polls the status register.
const DefaultMonitorInterval = 2 * time.Second

// RunMonitor polls the chip's status register until ctx is done, logging
// loss-of-lock and loss-of-signal transitions and publishing a snapshot
// whenever the register changes.
func (c *Controller) RunMonitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultMonitorInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.poll(ctx)
		}
	}
}

func (c *Controller) poll(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.refreshChip(ctx) {
		c.publish()
	}
}
