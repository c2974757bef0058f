package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"parkmeter/backend/services/parking-service/internal/models"
	"parkmeter/backend/services/parking-service/internal/repository"
)

// MeterRepository is an in-memory meter store with the same guarded-update semantics as
// the postgres repository. Callers always receive copies.
type MeterRepository struct {
	mu     sync.Mutex
	meters map[string]*models.Meter
}

// NewMeterRepository returns an empty store.
func NewMeterRepository() *MeterRepository {
	return &MeterRepository{meters: make(map[string]*models.Meter)}
}

func (r *MeterRepository) Create(_ context.Context, meter *models.Meter) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	meter.CreatedAt = now
	meter.UpdatedAt = now
	stored := *meter
	stored.IsOccupied = false
	stored.IsConfirmed = false
	stored.LicensePlate, stored.ParkingID, stored.Cost = nil, nil, nil
	r.meters[meter.ID] = &stored
	return nil
}

func (r *MeterRepository) Get(_ context.Context, id string) (*models.Meter, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.meters[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneMeter(m), nil
}

func (r *MeterRepository) List(_ context.Context) ([]models.Meter, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]models.Meter, 0, len(r.meters))
	for _, m := range r.meters {
		out = append(out, *cloneMeter(m))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *MeterRepository) Occupy(_ context.Context, id, plate string, confirmed bool) (*models.Meter, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.meters[id]
	if !ok || m.IsOccupied {
		return nil, repository.ErrConditionFailed
	}
	m.IsOccupied = true
	m.LicensePlate = &plate
	m.IsConfirmed = confirmed
	m.ParkingID = nil
	m.Cost = nil
	m.UpdatedAt = time.Now().UTC()
	return cloneMeter(m), nil
}

func (r *MeterRepository) AttachSession(_ context.Context, id, sessionID string) (*models.Meter, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.meters[id]
	if !ok || !m.IsOccupied {
		return nil, repository.ErrConditionFailed
	}
	m.ParkingID = &sessionID
	m.UpdatedAt = time.Now().UTC()
	return cloneMeter(m), nil
}

func (r *MeterRepository) Vacate(_ context.Context, id, plate string) (*string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.meters[id]
	if !ok || !m.IsOccupied || m.LicensePlate == nil || *m.LicensePlate != plate {
		return nil, repository.ErrConditionFailed
	}
	prev := m.ParkingID
	m.IsOccupied = false
	m.LicensePlate = nil
	m.ParkingID = nil
	m.IsConfirmed = false
	m.UpdatedAt = time.Now().UTC()
	return prev, nil
}

func (r *MeterRepository) SetCost(_ context.Context, id string, cost float64) (*models.Meter, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.meters[id]
	if !ok || m.IsOccupied || m.ParkingID != nil {
		return nil, repository.ErrConditionFailed
	}
	m.Cost = &cost
	m.UpdatedAt = time.Now().UTC()
	return cloneMeter(m), nil
}

func (r *MeterRepository) Reset(_ context.Context, id string) (*models.Meter, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.meters[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	m.IsOccupied = false
	m.LicensePlate = nil
	m.ParkingID = nil
	m.Cost = nil
	m.IsConfirmed = false
	m.UpdatedAt = time.Now().UTC()
	return cloneMeter(m), nil
}

func (r *MeterRepository) SetConfirmation(_ context.Context, id, sessionID string, plate *string, confirmed bool) (*models.Meter, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.meters[id]
	if !ok || !m.IsOccupied || m.ParkingID == nil || *m.ParkingID != sessionID {
		return nil, repository.ErrConditionFailed
	}
	m.IsConfirmed = confirmed
	if plate != nil {
		p := *plate
		m.LicensePlate = &p
	}
	m.UpdatedAt = time.Now().UTC()
	return cloneMeter(m), nil
}

func cloneMeter(m *models.Meter) *models.Meter {
	out := *m
	out.LicensePlate = cloneString(m.LicensePlate)
	out.ParkingID = cloneString(m.ParkingID)
	if m.Cost != nil {
		c := *m.Cost
		out.Cost = &c
	}
	return &out
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
