package cache

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

const defaultPurgeInterval = 5 * time.Minute

// Purger periodically sweeps expired entries out of a Cache. Correctness
// does not depend on it; Get already refuses expired entries.
type Purger struct {
	logger   *logrus.Logger
	cache    *Cache
	interval time.Duration
}

func NewPurger(logger *logrus.Logger, cache *Cache, interval time.Duration) *Purger {
	if interval <= 0 {
		interval = defaultPurgeInterval
	}
	return &Purger{
		logger:   logger,
		cache:    cache,
		interval: interval,
	}
}

// Start blocks until ctx is cancelled.
func (p *Purger) Start(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	logEntry := p.logger.WithField("component", "cache_purger")
	logEntry.WithField("interval", p.interval).Info("Starting cache purger")

	for {
		select {
		case <-ticker.C:
			p.purgeExpired(logEntry)
		case <-ctx.Done():
			logEntry.Info("Stopping cache purger")
			return
		}
	}
}

func (p *Purger) purgeExpired(log *logrus.Entry) {
	log = log.WithField("operation", "cache_purge")

	defer func() {
		if r := recover(); r != nil {
			log.WithField("panic", r).Warn("Cache purge aborted")
		}
	}()

	removed := p.cache.Cleanup()
	if removed > 0 {
		log.WithFields(logrus.Fields{
			"removed":   removed,
			"remaining": p.cache.Len(),
		}).Debug("Purged expired cache entries")
	}
}
