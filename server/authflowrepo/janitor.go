package authflowrepo

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// RunJanitor removes flows idle for longer than maxIdle every interval
// until ctx is done.
func RunJanitor(ctx context.Context, repo Repo, interval, maxIdle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			Sweep(repo, now, maxIdle)
		}
	}
}

// Sweep removes flows idle for longer than maxIdle at now and releases
// their notifications.
func Sweep(repo Repo, now time.Time, maxIdle time.Duration) int {
	removed := repo.DeleteIdle(now.Add(-maxIdle))
	for _, flow := range removed {
		if flow.Toasts != nil {
			flow.Toasts.Close()
		}
	}
	if len(removed) > 0 {
		log.Debug().Int("count", len(removed)).Msg("Expired idle login flows")
	}
	return len(removed)
}
