package application

import (
	"context"
	"time"
)

// StartScheduledSync launches the background sync loop. Every interval it
// runs one full sequential pass over the connected platforms. Calling it
// again replaces the previous loop, so the interval can be changed at
// runtime without stacking tickers.
func (r *Registry) StartScheduledSync(ctx context.Context, interval time.Duration) {
	r.StopScheduledSync()

	loopCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	r.schedMu.Lock()
	r.schedCancel = cancel
	r.schedDone = done
	r.schedMu.Unlock()

	r.logger.Info().Dur("interval", interval).Msg("scheduled sync started")

	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-loopCtx.Done():
				r.logger.Info().Msg("scheduled sync stopped")
				return
			case <-ticker.C:
				if _, err := r.ManualSync(loopCtx, ""); err != nil {
					r.logger.Error().Err(err).Msg("scheduled sync pass failed")
				}
			}
		}
	}()
}

// StopScheduledSync cancels the background loop and waits for it to exit.
// Safe to call when no loop is running.
func (r *Registry) StopScheduledSync() {
	r.schedMu.Lock()
	cancel := r.schedCancel
	done := r.schedDone
	r.schedCancel = nil
	r.schedDone = nil
	r.schedMu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}
