// Package scheduler runs periodic background maintenance.
package scheduler

import (
	"context"
	"time"

	fiberlog "github.com/gofiber/fiber/v2/log"

	"github.com/ragline-ai/ragline/internal/services/semanticcache"
)

// EvictionScheduler removes expired semantic-cache entries on a fixed
// interval. Failures are logged and retried on the next tick.
type EvictionScheduler struct {
	cache    *semanticcache.Cache
	interval time.Duration
	stopChan chan struct{}
}

func NewEvictionScheduler(cache *semanticcache.Cache, interval time.Duration) *EvictionScheduler {
	if interval == 0 {
		interval = 1 * time.Hour
	}
	return &EvictionScheduler{
		cache:    cache,
		interval: interval,
		stopChan: make(chan struct{}),
	}
}

func (s *EvictionScheduler) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	fiberlog.Infof("cache eviction scheduler started, running every %s", s.interval)

	for {
		select {
		case <-ticker.C:
			if err := s.cache.EvictExpired(ctx, s.cache.TTL()); err != nil {
				fiberlog.Errorf("cache eviction failed, will retry next tick: %v", err)
			} else {
				fiberlog.Debug("cache eviction completed")
			}
		case <-s.stopChan:
			fiberlog.Info("cache eviction scheduler stopped")
			return
		case <-ctx.Done():
			fiberlog.Info("cache eviction scheduler stopped due to context cancellation")
			return
		}
	}
}

func (s *EvictionScheduler) Stop() {
	close(s.stopChan)
}
