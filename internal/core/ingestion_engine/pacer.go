package ingestion_engine

import (
	"context"
	"time"
)

// Pacer inserts a fixed delay between batches to stay under provider quotas.
// It does not inspect responses or back off further on throttling errors.
type Pacer struct {
	delay time.Duration
	sleep func(ctx context.Context, d time.Duration) error
}

func NewPacer(delay time.Duration) *Pacer {
	return &Pacer{delay: delay, sleep: sleepCtx}
}

// Pace blocks for the configured delay or until ctx is done.
func (p *Pacer) Pace(ctx context.Context) error {
	if p == nil || p.delay <= 0 {
		return nil
	}
	return p.sleep(ctx, p.delay)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
