/*
scheduler.go - Background checkpoint builder

PURPOSE:
  Periodically builds a checkpoint covering the newest transaction so that
  derivation replays stay short. The cache contract makes this safe at any
  cadence: a missed or duplicated run changes cost, never results.

USAGE:
  scheduler := NewCacheScheduler(service, logger, 10*time.Minute)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: UpdateCache endpoint (manual trigger)
  - ledger/checkpoint.go: the cache itself
*/
package api

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/warp/kiosk-ledger/ledger"
)

// CacheScheduler runs periodic checkpoint updates.
type CacheScheduler struct {
	Service  *ledger.Service
	Interval time.Duration

	logger *logrus.Logger
	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewCacheScheduler creates a new scheduler.
func NewCacheScheduler(service *ledger.Service, logger *logrus.Logger, interval time.Duration) *CacheScheduler {
	if logger == nil {
		logger = logrus.New()
	}
	return &CacheScheduler{
		Service:  service,
		Interval: interval,
		logger:   logger,
		stop:     make(chan struct{}),
	}
}

// Start begins the scheduler.
func (cs *CacheScheduler) Start() {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	cs.ticker = time.NewTicker(cs.Interval)
	cs.wg.Add(1)
	go cs.run()

	cs.logger.WithField("interval", cs.Interval.String()).Info("cache scheduler started")
}

// Stop stops the scheduler and waits for an in-flight update to finish.
func (cs *CacheScheduler) Stop() {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if cs.ticker != nil {
		cs.ticker.Stop()
		close(cs.stop)
		cs.wg.Wait()
		cs.logger.Info("cache scheduler stopped")
	}
}

func (cs *CacheScheduler) run() {
	defer cs.wg.Done()

	// Run once on start so a restart doesn't wait a full interval.
	cs.update()

	for {
		select {
		case <-cs.ticker.C:
			cs.update()
		case <-cs.stop:
			return
		}
	}
}

func (cs *CacheScheduler) update() {
	if err := cs.Service.UpdateCache(context.Background()); err != nil {
		cs.logger.WithError(err).Error("scheduled cache update failed")
	}
}
