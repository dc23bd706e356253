package app

import (
	"context"
	"log"
	"time"

	"github.com/mohdshadink/spotshare/internal/metrics"
)

// Sweeper is the background expiry process. It is a cleanup pass, not the
// source of truth: every read path checks deadlines directly, so the sweep
// only bounds how long an expired hold can keep its spot out of circulation.
type Sweeper struct {
	holds    *HoldService
	interval time.Duration
	logger   *log.Logger
	metrics  *metrics.Metrics
}

const DefaultSweepInterval = 30 * time.Second

func NewSweeper(holds *HoldService, interval time.Duration, logger *log.Logger, m *metrics.Metrics) *Sweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	if logger == nil {
		logger = log.Default()
	}
	if m == nil {
		m = metrics.NewNop()
	}
	return &Sweeper{holds: holds, interval: interval, logger: logger, metrics: m}
}

// Run sweeps until ctx is cancelled. A failed pass is logged and retried on
// the next tick; it never brings the process down.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			expired, err := s.holds.ExpireDue(ctx)
			if err != nil {
				s.metrics.SweepFailures.Inc()
				s.logger.Printf("expiry sweep: %v", err)
			}
			if expired > 0 {
				s.metrics.HoldsExpired.Add(float64(expired))
				s.logger.Printf("expiry sweep: expired %d holds", expired)
			}
		}
	}
}
