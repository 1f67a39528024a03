package jobs

import (
	"context"
	"log"
	"time"
)

// RunForever runs body on a fixed interval until ctx is cancelled.
// A panic or returned error is logged and the loop keeps going; a
// supervised job never takes the process down with it.
func RunForever(ctx context.Context, name string, interval time.Duration, body func(ctx context.Context) error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Printf("[%s] started (interval: %s)", name, interval)
	defer log.Printf("[%s] stopped", name)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runOnce(ctx, name, body)
		}
	}
}

// RunLoop runs body back to back until ctx is cancelled, with the same
// supervision contract. Used for loops that block internally (the
// mutation worker's queue get) rather than tick.
func RunLoop(ctx context.Context, name string, body func(ctx context.Context) error) {
	log.Printf("[%s] started", name)
	defer log.Printf("[%s] stopped", name)

	for {
		if ctx.Err() != nil {
			return
		}
		runOnce(ctx, name, body)
	}
}

func runOnce(ctx context.Context, name string, body func(ctx context.Context) error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[%s] panic recovered: %v", name, r)
		}
	}()

	if err := body(ctx); err != nil {
		log.Printf("[%s] error: %v", name, err)
	}
}
