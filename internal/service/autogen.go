package service

import (
	"context"
	"time"
)

// autoTicker runs fire every period until stopped.
type autoTicker struct {
	cancel context.CancelFunc
	done   chan struct{}
}

func startAutoTicker(period time.Duration, fire func(*autoTicker)) *autoTicker {
	ctx, cancel := context.WithCancel(context.Background())
	t := &autoTicker{cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(t.done)

		ticker := time.NewTicker(period)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				fire(t)
			}
		}
	}()

	return t
}

// stop cancels the ticker and waits for its goroutine to exit.
// Must not be called from fire.
func (t *autoTicker) stop() {
	t.cancel()
	<-t.done
}
