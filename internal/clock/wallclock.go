package clock

import (
	"context"
	"time"
)

// RunWallClock spawns a goroutine that calls Advance(interval) on every
// real-time tick until ctx is canceled. This is the only place in the
// clock package that touches a goroutine or a real ticker; the host opts
// into it explicitly, and the execution core never calls it implicitly
// (§5: "the only suspension in the core is between cycles").
//
// Callers driving deterministic tests should never call RunWallClock;
// they should call Advance directly instead.
func (c *Clock) RunWallClock(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.Advance(interval)
			}
		}
	}()
}
