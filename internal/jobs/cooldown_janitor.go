package jobs

import (
	"context"
	"log"
	"time"
)

// Pruner removes expired entries and reports how many were dropped.
type Pruner interface {
	Prune(now time.Time) int
}

// CooldownJanitor periodically drops cooldown entries whose window has elapsed.
type CooldownJanitor struct {
	tracker  Pruner
	interval time.Duration
	now      func() time.Time
}

// NewCooldownJanitor creates a janitor that prunes tracker every interval.
func NewCooldownJanitor(tracker Pruner, interval time.Duration) *CooldownJanitor {
	return &CooldownJanitor{
		tracker:  tracker,
		interval: interval,
		now:      time.Now,
	}
}

// Start runs the prune loop until ctx is cancelled.
func (j *CooldownJanitor) Start(ctx context.Context) {
	log.Printf("Cooldown janitor started (interval: %v)", j.interval)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Cooldown janitor stopped")
			return
		case <-ticker.C:
			j.RunOnce()
		}
	}
}

// RunOnce performs a single prune pass.
func (j *CooldownJanitor) RunOnce() int {
	removed := j.tracker.Prune(j.now())
	if removed > 0 {
		log.Printf("Cooldown janitor: pruned %d expired entries", removed)
	}
	return removed
}
