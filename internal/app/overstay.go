package app

import (
	"context"
	"log"
	"time"
)

// OverstayNotifier re-emits overstay alerts for flagged active sessions at a
// fixed interval. Alerts stop on their own once a session closes because the
// scan only sees active sessions.
type OverstayNotifier struct {
	sessions *SessionService
	interval time.Duration
	logger   *log.Logger
}

const DefaultOverstayInterval = 2 * time.Minute

func NewOverstayNotifier(sessions *SessionService, interval time.Duration, logger *log.Logger) *OverstayNotifier {
	if interval <= 0 {
		interval = DefaultOverstayInterval
	}
	if logger == nil {
		logger = log.Default()
	}
	return &OverstayNotifier{sessions: sessions, interval: interval, logger: logger}
}

func (n *OverstayNotifier) Run(ctx context.Context) {
	ticker := time.NewTicker(n.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := n.sessions.NotifyOverstays(ctx); err != nil {
				n.logger.Printf("overstay notifier: %v", err)
			}
		}
	}
}
