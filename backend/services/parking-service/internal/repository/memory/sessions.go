package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"parkmeter/backend/services/parking-service/internal/models"
	"parkmeter/backend/services/parking-service/internal/repository"
)

// SessionRepository is an in-memory parking session store.
type SessionRepository struct {
	mu       sync.Mutex
	sessions map[string]*models.Session
}

// NewSessionRepository returns an empty store.
func NewSessionRepository() *SessionRepository {
	return &SessionRepository{sessions: make(map[string]*models.Session)}
}

func (r *SessionRepository) Create(_ context.Context, session *models.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	session.IsOpen = true
	session.EndTime = nil
	session.Cost = nil
	session.CreatedAt = now
	session.UpdatedAt = now
	r.sessions[session.ID] = cloneSession(session)
	return nil
}

func (r *SessionRepository) Get(_ context.Context, id string) (*models.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneSession(s), nil
}

func (r *SessionRepository) Close(_ context.Context, id string, end time.Time, cost float64) (*models.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok || !s.IsOpen {
		return nil, repository.ErrConditionFailed
	}
	end = end.UTC()
	s.IsOpen = false
	s.EndTime = &end
	s.Cost = &cost
	s.UpdatedAt = time.Now().UTC()
	return cloneSession(s), nil
}

func (r *SessionRepository) MarkConfirmed(_ context.Context, id string) (*models.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	s.IsConfirmed = true
	s.UpdatedAt = time.Now().UTC()
	return cloneSession(s), nil
}

func (r *SessionRepository) Reassign(_ context.Context, id, plate string, userID, carID *string) (*models.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	s.LicensePlate = plate
	s.UserID = cloneString(userID)
	s.CarID = cloneString(carID)
	s.IsConfirmed = true
	s.UpdatedAt = time.Now().UTC()
	return cloneSession(s), nil
}

func (r *SessionRepository) SetPayment(_ context.Context, id, paymentID string) (*models.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	s.PaymentID = &paymentID
	s.UpdatedAt = time.Now().UTC()
	return cloneSession(s), nil
}

func (r *SessionRepository) ListByUser(_ context.Context, userID string, filter models.SessionFilter) ([]models.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []models.Session
	for _, s := range r.sessions {
		if s.UserID == nil || *s.UserID != userID {
			continue
		}
		if filter.Open != nil && s.IsOpen != *filter.Open {
			continue
		}
		if filter.Confirmed != nil && s.IsConfirmed != *filter.Confirmed {
			continue
		}
		out = append(out, *cloneSession(s))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.After(out[j].StartTime) })
	return out, nil
}

func cloneSession(s *models.Session) *models.Session {
	out := *s
	out.UserID = cloneString(s.UserID)
	out.CarID = cloneString(s.CarID)
	out.PaymentID = cloneString(s.PaymentID)
	if s.EndTime != nil {
		t := *s.EndTime
		out.EndTime = &t
	}
	if s.Cost != nil {
		c := *s.Cost
		out.Cost = &c
	}
	return &out
}
