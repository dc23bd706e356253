package app

import (
	"context"
	"testing"
	"time"

	"github.com/mohdshadink/spotshare/internal/clock"
	"github.com/mohdshadink/spotshare/internal/domain"
)

func TestSessionService_Activate(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	heldSpot := domain.Spot{ID: "spot-1", OwnerID: "owner-1", State: domain.SpotStateHeld, RateCents: 500, BillingUnitMinutes: 60}
	verifiedAt := now.Add(-time.Minute)
	verifiedHold := domain.Hold{
		ID: "hold-1", SpotID: "spot-1", DriverID: "driver-1", Code: "4321",
		Status: domain.HoldStatusVerified, ExpiresAt: now.Add(10 * time.Minute), VerifiedAt: &verifiedAt,
	}

	t.Run("activates verified hold", func(t *testing.T) {
		store := newFakeStore([]domain.Spot{heldSpot}, []domain.Hold{verifiedHold}, nil)
		pub := &fakePublisher{}
		svc := NewSessionService(store, pub, clock.NewFixed(now))

		session, err := svc.Activate(context.Background(), ActivateInput{HoldID: "hold-1", PaymentRef: "upi://ref123"})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if session.Status != domain.SessionStatusActive {
			t.Fatalf("expected active, got %s", session.Status)
		}
		if session.PaymentRef != "upi://ref123" {
			t.Fatalf("expected payment ref stored verbatim, got %q", session.PaymentRef)
		}
		if !session.StartedAt.Equal(now) {
			t.Fatalf("expected start %v, got %v", now, session.StartedAt)
		}
		if session.OwnerID != "owner-1" || session.DriverID != "driver-1" {
			t.Fatalf("unexpected parties %q/%q", session.OwnerID, session.DriverID)
		}
		if store.spots["spot-1"].State != domain.SpotStateActive {
			t.Fatalf("expected spot active, got %s", store.spots["spot-1"].State)
		}
		if got := pub.byType(domain.EventSessionActivated); len(got) != 1 {
			t.Fatalf("expected 1 activation event, got %d", len(got))
		}
	})

	t.Run("rejects unverified hold", func(t *testing.T) {
		for _, status := range []domain.HoldStatus{domain.HoldStatusPending, domain.HoldStatusExpired, domain.HoldStatusCancelled} {
			hold := verifiedHold
			hold.Status = status
			hold.VerifiedAt = nil
			store := newFakeStore([]domain.Spot{heldSpot}, []domain.Hold{hold}, nil)
			svc := NewSessionService(store, &fakePublisher{}, clock.NewFixed(now))

			if _, err := svc.Activate(context.Background(), ActivateInput{HoldID: "hold-1"}); err != domain.ErrHoldNotVerified {
				t.Fatalf("status %s: expected ErrHoldNotVerified, got %v", status, err)
			}
		}
	})

	t.Run("second activation fails", func(t *testing.T) {
		store := newFakeStore([]domain.Spot{heldSpot}, []domain.Hold{verifiedHold}, nil)
		svc := NewSessionService(store, &fakePublisher{}, clock.NewFixed(now))

		if _, err := svc.Activate(context.Background(), ActivateInput{HoldID: "hold-1", PaymentRef: "a"}); err != nil {
			t.Fatalf("first activation: %v", err)
		}
		if _, err := svc.Activate(context.Background(), ActivateInput{HoldID: "hold-1", PaymentRef: "b"}); err != domain.ErrAlreadyActivated {
			t.Fatalf("expected ErrAlreadyActivated, got %v", err)
		}
		if len(store.sessions) != 1 {
			t.Fatalf("expected exactly one session, got %d", len(store.sessions))
		}
	})

	t.Run("suspended spot blocks activation", func(t *testing.T) {
		spot := heldSpot
		spot.State = domain.SpotStateSuspended
		store := newFakeStore([]domain.Spot{spot}, []domain.Hold{verifiedHold}, nil)
		svc := NewSessionService(store, &fakePublisher{}, clock.NewFixed(now))

		if _, err := svc.Activate(context.Background(), ActivateInput{HoldID: "hold-1"}); err != domain.ErrSpotUnavailable {
			t.Fatalf("expected ErrSpotUnavailable, got %v", err)
		}
	})

	t.Run("unknown hold", func(t *testing.T) {
		store := newFakeStore(nil, nil, nil)
		svc := NewSessionService(store, &fakePublisher{}, clock.NewFixed(now))

		if _, err := svc.Activate(context.Background(), ActivateInput{HoldID: "missing"}); err != domain.ErrHoldNotFound {
			t.Fatalf("expected ErrHoldNotFound, got %v", err)
		}
	})
}

func TestSessionService_Close(t *testing.T) {
	t.Parallel()

	start := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	activeSpot := domain.Spot{ID: "spot-1", OwnerID: "owner-1", State: domain.SpotStateActive, RateCents: 500, BillingUnitMinutes: 60}
	activeSession := domain.Session{
		ID: "session-1", HoldID: "hold-1", SpotID: "spot-1", DriverID: "driver-1", OwnerID: "owner-1",
		Status: domain.SessionStatusActive, StartedAt: start,
	}

	t.Run("closes and bills rounded-up units", func(t *testing.T) {
		now := start.Add(90 * time.Minute)
		store := newFakeStore([]domain.Spot{activeSpot}, nil, []domain.Session{activeSession})
		pub := &fakePublisher{}
		svc := NewSessionService(store, pub, clock.NewFixed(now))

		session, err := svc.Close(context.Background(), "session-1")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if session.Status != domain.SessionStatusCompleted {
			t.Fatalf("expected completed, got %s", session.Status)
		}
		if session.EndedAt == nil || !session.EndedAt.Equal(now) {
			t.Fatalf("expected end %v, got %v", now, session.EndedAt)
		}
		if session.Duration != 90*time.Minute {
			t.Fatalf("expected duration 90m, got %s", session.Duration)
		}
		// 90 minutes at 60-minute units is 2 units.
		if session.CostCents != 1000 {
			t.Fatalf("expected cost 1000, got %d", session.CostCents)
		}
		if store.spots["spot-1"].State != domain.SpotStateAvailable {
			t.Fatalf("expected spot available, got %s", store.spots["spot-1"].State)
		}
		if got := pub.byType(domain.EventSessionEnded); len(got) != 1 {
			t.Fatalf("expected 1 session.ended event, got %d", len(got))
		}
	})

	t.Run("brief stay bills one unit", func(t *testing.T) {
		now := start.Add(5 * time.Minute)
		store := newFakeStore([]domain.Spot{activeSpot}, nil, []domain.Session{activeSession})
		svc := NewSessionService(store, &fakePublisher{}, clock.NewFixed(now))

		session, err := svc.Close(context.Background(), "session-1")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if session.CostCents != 500 {
			t.Fatalf("expected one unit (500), got %d", session.CostCents)
		}
	})

	t.Run("second close fails and leaves the first result", func(t *testing.T) {
		now := start.Add(time.Hour)
		store := newFakeStore([]domain.Spot{activeSpot}, nil, []domain.Session{activeSession})
		svc := NewSessionService(store, &fakePublisher{}, clock.NewFixed(now))

		first, err := svc.Close(context.Background(), "session-1")
		if err != nil {
			t.Fatalf("first close: %v", err)
		}
		if _, err := svc.Close(context.Background(), "session-1"); err != domain.ErrSessionNotActive {
			t.Fatalf("expected ErrSessionNotActive, got %v", err)
		}
		if store.sessions["session-1"].CostCents != first.CostCents {
			t.Fatalf("second close changed cost: %d vs %d", store.sessions["session-1"].CostCents, first.CostCents)
		}
	})

	t.Run("close on suspended spot keeps it suspended", func(t *testing.T) {
		spot := activeSpot
		spot.State = domain.SpotStateSuspended
		now := start.Add(time.Hour)
		store := newFakeStore([]domain.Spot{spot}, nil, []domain.Session{activeSession})
		pub := &fakePublisher{}
		svc := NewSessionService(store, pub, clock.NewFixed(now))

		if _, err := svc.Close(context.Background(), "session-1"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if store.spots["spot-1"].State != domain.SpotStateSuspended {
			t.Fatalf("expected spot suspended, got %s", store.spots["spot-1"].State)
		}
		if got := pub.byType(domain.EventSpotStateChanged); len(got) != 0 {
			t.Fatalf("expected no state-change event, got %d", len(got))
		}
	})
}

func TestSessionService_Overstay(t *testing.T) {
	t.Parallel()

	start := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	now := start.Add(2 * time.Hour)

	activeSpot := domain.Spot{ID: "spot-1", OwnerID: "owner-1", State: domain.SpotStateActive, RateCents: 500, BillingUnitMinutes: 60}
	activeSession := domain.Session{
		ID: "session-1", HoldID: "hold-1", SpotID: "spot-1", DriverID: "driver-1", OwnerID: "owner-1",
		Status: domain.SessionStatusActive, StartedAt: start,
	}

	t.Run("report flags and alerts", func(t *testing.T) {
		store := newFakeStore([]domain.Spot{activeSpot}, nil, []domain.Session{activeSession})
		pub := &fakePublisher{}
		svc := NewSessionService(store, pub, clock.NewFixed(now))

		count, err := svc.ReportOverstay(context.Background(), "session-1")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if count != 1 {
			t.Fatalf("expected count 1, got %d", count)
		}
		if !store.sessions["session-1"].Overstayed {
			t.Fatalf("expected overstay flag set")
		}
		alerts := pub.byType(domain.EventOverstayAlert)
		if len(alerts) != 1 {
			t.Fatalf("expected 1 alert, got %d", len(alerts))
		}
		if alerts[0].event.OverstayCount != 1 {
			t.Fatalf("expected alert count 1, got %d", alerts[0].event.OverstayCount)
		}
	})

	t.Run("report on closed session fails", func(t *testing.T) {
		closed := activeSession
		closed.Status = domain.SessionStatusCompleted
		store := newFakeStore([]domain.Spot{activeSpot}, nil, []domain.Session{closed})
		svc := NewSessionService(store, &fakePublisher{}, clock.NewFixed(now))

		if _, err := svc.ReportOverstay(context.Background(), "session-1"); err != domain.ErrSessionNotActive {
			t.Fatalf("expected ErrSessionNotActive, got %v", err)
		}
	})

	t.Run("notifier re-alerts flagged active sessions only", func(t *testing.T) {
		flagged := activeSession
		flagged.Overstayed = true
		flagged.OverstayAlerts = 1

		closed := domain.Session{
			ID: "session-2", HoldID: "hold-2", SpotID: "spot-2", DriverID: "driver-2", OwnerID: "owner-2",
			Status: domain.SessionStatusCompleted, StartedAt: start, Overstayed: true, OverstayAlerts: 3,
		}
		store := newFakeStore([]domain.Spot{activeSpot}, nil, []domain.Session{flagged, closed})
		pub := &fakePublisher{}
		svc := NewSessionService(store, pub, clock.NewFixed(now))

		alerted, err := svc.NotifyOverstays(context.Background())
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if alerted != 1 {
			t.Fatalf("expected 1 alert, got %d", alerted)
		}
		if store.sessions["session-1"].OverstayAlerts != 2 {
			t.Fatalf("expected counter 2, got %d", store.sessions["session-1"].OverstayAlerts)
		}
		if store.sessions["session-2"].OverstayAlerts != 3 {
			t.Fatalf("closed session counter moved to %d", store.sessions["session-2"].OverstayAlerts)
		}
	})
}

func TestSessionService_MarkDisputed(t *testing.T) {
	t.Parallel()

	start := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	activeSpot := domain.Spot{ID: "spot-1", OwnerID: "owner-1", State: domain.SpotStateActive}
	activeSession := domain.Session{
		ID: "session-1", HoldID: "hold-1", SpotID: "spot-1", DriverID: "driver-1", OwnerID: "owner-1",
		Status: domain.SessionStatusActive, StartedAt: start,
	}

	t.Run("marks active session disputed without touching the spot", func(t *testing.T) {
		store := newFakeStore([]domain.Spot{activeSpot}, nil, []domain.Session{activeSession})
		svc := NewSessionService(store, &fakePublisher{}, clock.NewFixed(start))

		if err := svc.MarkDisputed(context.Background(), "session-1"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if store.sessions["session-1"].Status != domain.SessionStatusDisputed {
			t.Fatalf("expected disputed, got %s", store.sessions["session-1"].Status)
		}
		if store.spots["spot-1"].State != domain.SpotStateActive {
			t.Fatalf("expected spot untouched, got %s", store.spots["spot-1"].State)
		}
	})

	t.Run("disputed is terminal", func(t *testing.T) {
		disputed := activeSession
		disputed.Status = domain.SessionStatusDisputed
		store := newFakeStore([]domain.Spot{activeSpot}, nil, []domain.Session{disputed})
		svc := NewSessionService(store, &fakePublisher{}, clock.NewFixed(start))

		if err := svc.MarkDisputed(context.Background(), "session-1"); err != domain.ErrSessionNotActive {
			t.Fatalf("expected ErrSessionNotActive, got %v", err)
		}
		if _, err := svc.Close(context.Background(), "session-1"); err != domain.ErrSessionNotActive {
			t.Fatalf("expected close to fail with ErrSessionNotActive, got %v", err)
		}
	})
}
