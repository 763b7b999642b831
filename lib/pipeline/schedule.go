package pipeline

import (
	"context"
	"time"
)

// NextRun returns the first instant strictly after now at hour:00 UTC.
func NextRun(now time.Time, hour int) time.Time {
	now = now.UTC()
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, time.UTC)
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// Schedule runs the pipeline once a day at hour UTC until ctx is done. A
// failed run is logged and the loop waits for the next slot.
func (p *Pipeline) Schedule(ctx context.Context, hour int) error {
	for {
		next := NextRun(p.now(), hour)
		wait := next.Sub(p.now())
		p.Log.Info("Next run at %s (in %s)", next.Format(time.RFC3339), wait.Round(time.Second))

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		if _, err := p.Run(ctx); err != nil {
			p.Log.Error("Scheduled run failed: %v", err)
		}
	}
}
