package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"parkmeter/backend/services/parking-service/internal/models"
	"parkmeter/backend/services/parking-service/internal/repository"
)

const millisPerHour = int64(time.Hour / time.Millisecond)

// SessionWatcher is told about every newly opened session.
type SessionWatcher interface {
	Watch(session models.Session)
}

// OpenSessionInput carries what the meter knows when a vehicle arrives.
type OpenSessionInput struct {
	LicensePlate string
	UserID       *string
	CarID        *string
	PaymentID    *string
	MeterID      string
	UnitPrice    float64
	IsConfirmed  bool
}

// OpenResult identifies the opened session.
type OpenResult struct {
	SessionID string
	IsUser    bool
}

// Ledger owns parking session records.
type Ledger struct {
	sessions SessionStore
	meters   MeterStore
	cars     CarRegistry
	watcher  SessionWatcher
	logger   *zap.Logger

	now   func() time.Time
	newID func() string
}

// NewLedger builds ledger. watcher may be nil.
func NewLedger(sessions SessionStore, meters MeterStore, cars CarRegistry, watcher SessionWatcher, logger *zap.Logger) *Ledger {
	return &Ledger{
		sessions: sessions,
		meters:   meters,
		cars:     cars,
		watcher:  watcher,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
		newID:    uuid.NewString,
	}
}

// ComputeCost bills every started hour: unitPrice * ceil(elapsed ms / 3,600,000), with a
// one hour minimum so zero-length sessions still bill.
func ComputeCost(unitPrice float64, start, end time.Time) float64 {
	ms := end.Sub(start).Milliseconds()
	hours := int64(1)
	if ms > 0 {
		hours = (ms + millisPerHour - 1) / millisPerHour
	}
	return decimal.NewFromFloat(unitPrice).Mul(decimal.NewFromInt(hours)).InexactFloat64()
}

// Open creates an open session and schedules its obligation checks.
func (l *Ledger) Open(ctx context.Context, in OpenSessionInput) (*OpenResult, error) {
	plate := NormalizePlate(in.LicensePlate)
	if plate == "" || in.MeterID == "" || in.UnitPrice <= 0 {
		return nil, ErrInvalidInput
	}

	session := &models.Session{
		ID:           l.newID(),
		LicensePlate: plate,
		UserID:       in.UserID,
		CarID:        in.CarID,
		MeterID:      in.MeterID,
		UnitPrice:    in.UnitPrice,
		StartTime:    l.now(),
		IsOpen:       true,
		IsConfirmed:  in.IsConfirmed,
		PaymentID:    in.PaymentID,
	}
	if err := l.sessions.Create(ctx, session); err != nil {
		return nil, persistence("open session", err)
	}

	l.logger.Info("parking session opened",
		zap.String("session_id", session.ID),
		zap.String("meter_id", session.MeterID),
		zap.Bool("confirmed", session.IsConfirmed),
	)

	if l.watcher != nil {
		l.watcher.Watch(*session)
	}
	return &OpenResult{SessionID: session.ID, IsUser: in.UserID != nil}, nil
}

// Close ends the open session parked under expectedPlate and returns its cost.
func (l *Ledger) Close(ctx context.Context, sessionID, expectedPlate string) (float64, error) {
	session, err := l.get(ctx, sessionID)
	if err != nil {
		return 0, err
	}
	if !session.IsOpen {
		return 0, ErrSessionNotFound
	}
	if session.LicensePlate != NormalizePlate(expectedPlate) {
		return 0, ErrPlateMismatch
	}

	end := l.now()
	cost := ComputeCost(session.UnitPrice, session.StartTime, end)
	if _, err := l.sessions.Close(ctx, sessionID, end, cost); err != nil {
		if errors.Is(err, repository.ErrConditionFailed) {
			return 0, ErrSessionNotFound
		}
		return 0, persistence("close session", err)
	}

	l.logger.Info("parking session closed",
		zap.String("session_id", sessionID),
		zap.Float64("cost", cost),
	)
	return cost, nil
}

// ConfirmPlate confirms the recorded plate, or replaces it with correctedPlate when isNew
// is set and re-resolves the owner. The confirmation is mirrored onto the meter while the
// meter still references this session.
func (l *Ledger) ConfirmPlate(ctx context.Context, sessionID string, isNew bool, correctedPlate string) (*models.Session, error) {
	plate := NormalizePlate(correctedPlate)
	if sessionID == "" || (isNew && plate == "") {
		return nil, ErrInvalidInput
	}
	if _, err := l.get(ctx, sessionID); err != nil {
		return nil, err
	}

	var (
		updated  *models.Session
		err      error
		newPlate *string
	)
	if !isNew {
		updated, err = l.sessions.MarkConfirmed(ctx, sessionID)
	} else {
		var userID, carID *string
		car, lookupErr := l.cars.FindByPlate(ctx, plate)
		switch {
		case lookupErr == nil:
			userID, carID = &car.UserID, &car.ID
		case !errors.Is(lookupErr, repository.ErrNotFound):
			return nil, persistence("resolve car", lookupErr)
		}
		newPlate = &plate
		updated, err = l.sessions.Reassign(ctx, sessionID, plate, userID, carID)
	}
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, persistence("confirm session", err)
	}

	if _, err := l.meters.SetConfirmation(ctx, updated.MeterID, updated.ID, newPlate, true); err != nil {
		if errors.Is(err, repository.ErrConditionFailed) {
			l.logger.Debug("meter no longer references session, skipping confirmation mirror",
				zap.String("session_id", updated.ID),
				zap.String("meter_id", updated.MeterID),
			)
		} else {
			l.logger.Warn("failed to mirror confirmation onto meter",
				zap.String("session_id", updated.ID),
				zap.String("meter_id", updated.MeterID),
				zap.Error(err),
			)
		}
	}
	return updated, nil
}

// AttachPayment records paymentID on the session.
func (l *Ledger) AttachPayment(ctx context.Context, sessionID, paymentID string) (*models.Session, error) {
	if sessionID == "" || paymentID == "" {
		return nil, ErrInvalidInput
	}
	session, err := l.sessions.SetPayment(ctx, sessionID, paymentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, persistence("attach payment", err)
	}
	return session, nil
}

// Get returns a session.
func (l *Ledger) Get(ctx context.Context, sessionID string) (*models.Session, error) {
	return l.get(ctx, sessionID)
}

// CurrentSessions returns the user's open, confirmed sessions.
func (l *Ledger) CurrentSessions(ctx context.Context, userID string) ([]models.Session, error) {
	open, confirmed := true, true
	return l.list(ctx, userID, models.SessionFilter{Open: &open, Confirmed: &confirmed})
}

// PreviousSessions returns the user's closed, confirmed sessions.
func (l *Ledger) PreviousSessions(ctx context.Context, userID string) ([]models.Session, error) {
	open, confirmed := false, true
	return l.list(ctx, userID, models.SessionFilter{Open: &open, Confirmed: &confirmed})
}

// AllSessions returns every session of the user.
func (l *Ledger) AllSessions(ctx context.Context, userID string) ([]models.Session, error) {
	return l.list(ctx, userID, models.SessionFilter{})
}

func (l *Ledger) list(ctx context.Context, userID string, filter models.SessionFilter) ([]models.Session, error) {
	if userID == "" {
		return nil, ErrInvalidInput
	}
	sessions, err := l.sessions.ListByUser(ctx, userID, filter)
	if err != nil {
		return nil, persistence("list sessions", err)
	}
	if len(sessions) == 0 {
		return nil, ErrNoSessions
	}
	return sessions, nil
}

func (l *Ledger) get(ctx context.Context, sessionID string) (*models.Session, error) {
	if sessionID == "" {
		return nil, ErrInvalidInput
	}
	session, err := l.sessions.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, persistence("get session", err)
	}
	return session, nil
}
