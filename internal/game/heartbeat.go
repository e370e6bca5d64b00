package game

import (
	"context"
	"time"
)

// RunHeartbeat settles passive income every interval until ctx is done.
// It blocks, so run it in its own goroutine.
func (e *Engine) RunHeartbeat(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	e.log.Info("heartbeat started", "interval", interval)
	for {
		select {
		case <-ctx.Done():
			e.log.Info("heartbeat stopped")
			return nil
		case <-ticker.C:
			if minted := e.Settle(); minted > 0 {
				e.log.Debug("passive income settled", "minted", minted)
			}
		}
	}
}
