package app

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/mohdshadink/spotshare/internal/domain"
)

// fakeStore is an in-memory stand-in for the Postgres repositories. WithTx
// takes a single mutex so concurrent service calls serialize the way the spot
// row lock serializes them in the real store.
type fakeStore struct {
	mu       sync.Mutex
	spots    map[string]*domain.Spot
	holds    map[string]*domain.Hold
	sessions map[string]*domain.Session
}

func newFakeStore(spots []domain.Spot, holds []domain.Hold, sessions []domain.Session) *fakeStore {
	s := &fakeStore{
		spots:    make(map[string]*domain.Spot),
		holds:    make(map[string]*domain.Hold),
		sessions: make(map[string]*domain.Session),
	}
	for i := range spots {
		spot := spots[i]
		s.spots[spot.ID] = &spot
	}
	for i := range holds {
		hold := holds[i]
		s.holds[hold.ID] = &hold
	}
	for i := range sessions {
		session := sessions[i]
		s.sessions[session.ID] = &session
	}
	return s
}

func (s *fakeStore) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(ctx)
}

func (s *fakeStore) GetSpot(ctx context.Context, spotID string) (domain.Spot, error) {
	spot, ok := s.spots[spotID]
	if !ok {
		return domain.Spot{}, domain.ErrSpotNotFound
	}
	return *spot, nil
}

func (s *fakeStore) GetSpotForUpdate(ctx context.Context, spotID string) (domain.Spot, error) {
	return s.GetSpot(ctx, spotID)
}

func (s *fakeStore) ListSpots(ctx context.Context) ([]domain.Spot, error) {
	out := make([]domain.Spot, 0, len(s.spots))
	for _, spot := range s.spots {
		out = append(out, *spot)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *fakeStore) CreateSpot(ctx context.Context, spot domain.Spot) error {
	copied := spot
	s.spots[spot.ID] = &copied
	return nil
}

func (s *fakeStore) UpdateSpotState(ctx context.Context, spotID string, state domain.SpotState) error {
	spot, ok := s.spots[spotID]
	if !ok {
		return domain.ErrSpotNotFound
	}
	spot.State = state
	return nil
}

func (s *fakeStore) GetHold(ctx context.Context, holdID string) (domain.Hold, error) {
	hold, ok := s.holds[holdID]
	if !ok {
		return domain.Hold{}, domain.ErrHoldNotFound
	}
	return *hold, nil
}

// liveHold mirrors the store's liveness predicate: pending and unexpired, or
// verified whose session (if any) still occupies the spot.
func (s *fakeStore) liveHold(h *domain.Hold, now time.Time) bool {
	switch h.Status {
	case domain.HoldStatusPending:
		return !h.Expired(now)
	case domain.HoldStatusVerified:
		for _, session := range s.sessions {
			if session.HoldID == h.ID {
				return session.Occupying()
			}
		}
		return true
	default:
		return false
	}
}

func (s *fakeStore) FindPendingHoldBySpot(ctx context.Context, spotID string) (*domain.Hold, error) {
	for _, hold := range s.holds {
		if hold.SpotID == spotID && hold.Status == domain.HoldStatusPending {
			copied := *hold
			return &copied, nil
		}
	}
	return nil, nil
}

func (s *fakeStore) FindLiveHoldByDriver(ctx context.Context, driverID string, now time.Time) (*domain.Hold, error) {
	for _, hold := range s.holds {
		if hold.DriverID == driverID && s.liveHold(hold, now) {
			copied := *hold
			return &copied, nil
		}
	}
	return nil, nil
}

func (s *fakeStore) HoldHasSession(ctx context.Context, holdID string) (bool, error) {
	for _, session := range s.sessions {
		if session.HoldID == holdID {
			return true, nil
		}
	}
	return false, nil
}

func (s *fakeStore) LiveCodes(ctx context.Context, now time.Time) (map[string]struct{}, error) {
	codes := make(map[string]struct{})
	for _, hold := range s.holds {
		if s.liveHold(hold, now) {
			codes[hold.Code] = struct{}{}
		}
	}
	return codes, nil
}

func (s *fakeStore) CreateHold(ctx context.Context, hold domain.Hold) error {
	copied := hold
	s.holds[hold.ID] = &copied
	return nil
}

func (s *fakeStore) UpdateHoldStatus(ctx context.Context, holdID string, status domain.HoldStatus, verifiedAt *time.Time) error {
	hold, ok := s.holds[holdID]
	if !ok {
		return domain.ErrHoldNotFound
	}
	hold.Status = status
	if verifiedAt != nil {
		hold.VerifiedAt = verifiedAt
	}
	return nil
}

func (s *fakeStore) ListExpiredPendingHoldIDs(ctx context.Context, now time.Time, limit int) ([]string, error) {
	var ids []string
	for _, hold := range s.holds {
		if hold.Status == domain.HoldStatusPending && hold.Expired(now) {
			ids = append(ids, hold.ID)
		}
		if len(ids) == limit {
			break
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *fakeStore) GetSession(ctx context.Context, sessionID string) (domain.Session, error) {
	session, ok := s.sessions[sessionID]
	if !ok {
		return domain.Session{}, domain.ErrSessionNotFound
	}
	return *session, nil
}

func (s *fakeStore) GetSessionByHoldID(ctx context.Context, holdID string) (*domain.Session, error) {
	for _, session := range s.sessions {
		if session.HoldID == holdID {
			copied := *session
			return &copied, nil
		}
	}
	return nil, nil
}

func (s *fakeStore) FindOccupyingSessionBySubject(ctx context.Context, subjectID string) (*domain.Session, error) {
	for _, session := range s.sessions {
		if (session.DriverID == subjectID || session.OwnerID == subjectID) && session.Occupying() {
			copied := *session
			return &copied, nil
		}
	}
	return nil, nil
}

func (s *fakeStore) CreateSession(ctx context.Context, session domain.Session) error {
	copied := session
	s.sessions[session.ID] = &copied
	return nil
}

func (s *fakeStore) CloseSession(ctx context.Context, session domain.Session) error {
	stored, ok := s.sessions[session.ID]
	if !ok {
		return domain.ErrSessionNotFound
	}
	*stored = session
	return nil
}

func (s *fakeStore) SetSessionStatus(ctx context.Context, sessionID string, status domain.SessionStatus) error {
	session, ok := s.sessions[sessionID]
	if !ok {
		return domain.ErrSessionNotFound
	}
	session.Status = status
	return nil
}

func (s *fakeStore) BumpOverstay(ctx context.Context, sessionID string) (int, error) {
	session, ok := s.sessions[sessionID]
	if !ok {
		return 0, domain.ErrSessionNotFound
	}
	if session.Status != domain.SessionStatusActive {
		return 0, domain.ErrSessionNotActive
	}
	session.Overstayed = true
	session.OverstayAlerts++
	return session.OverstayAlerts, nil
}

func (s *fakeStore) ListOverstayedActive(ctx context.Context) ([]domain.Session, error) {
	var out []domain.Session
	for _, session := range s.sessions {
		if session.Status == domain.SessionStatusActive && session.Overstayed {
			out = append(out, *session)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type fakePublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

type publishedEvent struct {
	event  domain.Event
	topics []string
}

func (p *fakePublisher) Publish(ev domain.Event, topics ...string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{event: ev, topics: topics})
}

func (p *fakePublisher) byType(typ domain.EventType) []publishedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []publishedEvent
	for _, pe := range p.events {
		if pe.event.Type == typ {
			out = append(out, pe)
		}
	}
	return out
}
