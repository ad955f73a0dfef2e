package schedule

import (
	"context"
	"fmt"
	"time"
)

// Every runs execute at each time matched by cron, starting after now.
// It blocks until ctx is cancelled. Runs never overlap: a run that overlaps
// the next tick delays it.
func Every(ctx context.Context, cron string, execute func(ctx context.Context)) error {
	s, err := Parse(cron)
	if err != nil {
		return err
	}
	for {
		next := s.Next(time.Now())
		if next.IsZero() {
			return fmt.Errorf("cron expression %q never fires again", s)
		}

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
			execute(ctx)
		}
	}
}
