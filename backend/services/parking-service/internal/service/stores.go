package service

import (
	"context"
	"strings"
	"time"

	"parkmeter/backend/services/parking-service/internal/models"
)

// MeterStore persists meters. Occupy, Vacate, SetCost and SetConfirmation are guarded updates that
// return repository.ErrConditionFailed when their precondition does not hold.
type MeterStore interface {
	Create(ctx context.Context, meter *models.Meter) error
	Get(ctx context.Context, id string) (*models.Meter, error)
	List(ctx context.Context) ([]models.Meter, error)
	Occupy(ctx context.Context, id, plate string, confirmed bool) (*models.Meter, error)
	AttachSession(ctx context.Context, id, sessionID string) (*models.Meter, error)
	Vacate(ctx context.Context, id, plate string) (*string, error)
	SetCost(ctx context.Context, id string, cost float64) (*models.Meter, error)
	Reset(ctx context.Context, id string) (*models.Meter, error)
	SetConfirmation(ctx context.Context, id, sessionID string, plate *string, confirmed bool) (*models.Meter, error)
}

// SessionReader reads parking sessions.
type SessionReader interface {
	Get(ctx context.Context, id string) (*models.Session, error)
}

// SessionStore persists parking sessions.
type SessionStore interface {
	SessionReader
	Create(ctx context.Context, session *models.Session) error
	Close(ctx context.Context, id string, end time.Time, cost float64) (*models.Session, error)
	MarkConfirmed(ctx context.Context, id string) (*models.Session, error)
	Reassign(ctx context.Context, id, plate string, userID, carID *string) (*models.Session, error)
	SetPayment(ctx context.Context, id, paymentID string) (*models.Session, error)
	ListByUser(ctx context.Context, userID string, filter models.SessionFilter) ([]models.Session, error)
}

// CarRegistry resolves a plate to a registered car.
type CarRegistry interface {
	FindByPlate(ctx context.Context, plate string) (*models.Car, error)
}

// CarStore manages the car registry. Create returns repository.ErrConflict for a plate that
// is already registered; Rename and Delete only touch cars owned by userID.
type CarStore interface {
	CarRegistry
	Create(ctx context.Context, car *models.Car) error
	Get(ctx context.Context, id string) (*models.Car, error)
	ListByUser(ctx context.Context, userID string) ([]models.Car, error)
	Rename(ctx context.Context, id, userID, name string) (*models.Car, error)
	Delete(ctx context.Context, id, userID string) error
}

// PaymentStore stores card references.
type PaymentStore interface {
	Create(ctx context.Context, payment *models.Payment) error
	SetDefaultForUser(ctx context.Context, userID, paymentID string) error
	DefaultForUser(ctx context.Context, userID string) (*models.Payment, error)
}

// NormalizePlate trims and upper-cases a license plate.
func NormalizePlate(plate string) string {
	return strings.ToUpper(strings.TrimSpace(plate))
}
