package service

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"parkmeter/backend/services/parking-service/internal/models"
	"parkmeter/backend/services/parking-service/internal/notify"
	"parkmeter/backend/services/parking-service/internal/repository"
)

// TransitionRequest is an occupancy report from a meter.
type TransitionRequest struct {
	IsOccupied   bool
	LicensePlate string
	IsConfirmed  bool
}

// TransitionResult is the meter after a transition. IsUser is set on occupy only.
type TransitionResult struct {
	Meter  *models.Meter
	IsUser *bool
}

// DefaultPaymentResolver returns a user's default payment.
type DefaultPaymentResolver interface {
	DefaultForUser(ctx context.Context, userID string) (*models.Payment, error)
}

// MeterService is the meter occupancy state machine. A meter is FREE or OCCUPIED; each
// transition is a guarded store update so that only one of two racing requests wins.
type MeterService struct {
	meters   MeterStore
	cars     CarRegistry
	payments DefaultPaymentResolver
	ledger   *Ledger
	notifier notify.Notifier
	logger   *zap.Logger

	newID func() string
}

// NewMeterService builds service. payments may be nil.
func NewMeterService(
	meters MeterStore,
	cars CarRegistry,
	payments DefaultPaymentResolver,
	ledger *Ledger,
	notifier notify.Notifier,
	logger *zap.Logger,
) *MeterService {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &MeterService{
		meters:   meters,
		cars:     cars,
		payments: payments,
		ledger:   ledger,
		notifier: notifier,
		logger:   logger,
		newID:    uuid.NewString,
	}
}

// AddMeter registers a free meter.
func (s *MeterService) AddMeter(ctx context.Context, unitPrice float64) (*models.Meter, error) {
	if unitPrice <= 0 || math.IsNaN(unitPrice) || math.IsInf(unitPrice, 0) {
		return nil, ErrInvalidInput
	}
	meter := &models.Meter{ID: s.newID(), UnitPrice: unitPrice}
	if err := s.meters.Create(ctx, meter); err != nil {
		return nil, persistence("add meter", err)
	}
	return meter, nil
}

// GetMeter returns meter by id.
func (s *MeterService) GetMeter(ctx context.Context, id string) (*models.Meter, error) {
	if id == "" {
		return nil, ErrInvalidInput
	}
	meter, err := s.meters.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrMeterNotFound
		}
		return nil, persistence("get meter", err)
	}
	return meter, nil
}

// ListMeters returns every meter, ErrNoMeters when there are none.
func (s *MeterService) ListMeters(ctx context.Context) ([]models.Meter, error) {
	meters, err := s.meters.List(ctx)
	if err != nil {
		return nil, persistence("list meters", err)
	}
	if len(meters) == 0 {
		return nil, ErrNoMeters
	}
	return meters, nil
}

// UpdateStatus applies an occupancy report.
func (s *MeterService) UpdateStatus(ctx context.Context, id string, req TransitionRequest) (*TransitionResult, error) {
	plate := NormalizePlate(req.LicensePlate)
	if id == "" || plate == "" {
		return nil, ErrInvalidInput
	}
	if req.IsOccupied {
		return s.occupy(ctx, id, plate, req.IsConfirmed)
	}
	return s.vacate(ctx, id, plate)
}

// Reset forces the meter free without closing its session.
func (s *MeterService) Reset(ctx context.Context, id string) (*models.Meter, error) {
	if id == "" {
		return nil, ErrInvalidInput
	}
	meter, err := s.meters.Reset(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrMeterNotFound
		}
		return nil, persistence("reset meter", err)
	}
	s.logger.Info("meter reset", zap.String("meter_id", id))
	s.publish(ctx, meter)
	return meter, nil
}

func (s *MeterService) occupy(ctx context.Context, id, plate string, confirmed bool) (*TransitionResult, error) {
	meter, err := s.GetMeter(ctx, id)
	if err != nil {
		return nil, err
	}
	if meter.IsOccupied {
		return nil, ErrAlreadyOccupied
	}

	claimed, err := s.meters.Occupy(ctx, id, plate, confirmed)
	if err != nil {
		if errors.Is(err, repository.ErrConditionFailed) {
			return nil, ErrAlreadyOccupied
		}
		return nil, persistence("occupy meter", err)
	}

	userID, carID := s.resolveCar(ctx, plate)
	var paymentID *string
	if userID != nil {
		paymentID = s.resolvePayment(ctx, *userID)
	}

	opened, err := s.ledger.Open(ctx, OpenSessionInput{
		LicensePlate: plate,
		UserID:       userID,
		CarID:        carID,
		PaymentID:    paymentID,
		MeterID:      id,
		UnitPrice:    claimed.UnitPrice,
		IsConfirmed:  confirmed,
	})
	if err != nil {
		if _, resetErr := s.meters.Reset(ctx, id); resetErr != nil {
			s.logger.Error("failed to release meter after session open failure",
				zap.String("meter_id", id),
				zap.Error(resetErr),
			)
		}
		return nil, err
	}

	updated, err := s.meters.AttachSession(ctx, id, opened.SessionID)
	if err != nil {
		s.logger.Error("session opened but not attached to meter, needs reconciliation",
			zap.String("meter_id", id),
			zap.String("session_id", opened.SessionID),
			zap.Error(err),
		)
		return nil, persistence("attach session", err)
	}

	s.publish(ctx, updated)
	isUser := opened.IsUser
	return &TransitionResult{Meter: updated, IsUser: &isUser}, nil
}

func (s *MeterService) vacate(ctx context.Context, id, plate string) (*TransitionResult, error) {
	meter, err := s.GetMeter(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := checkVacate(meter, plate); err != nil {
		return nil, err
	}

	sessionID, err := s.meters.Vacate(ctx, id, plate)
	if err != nil {
		if !errors.Is(err, repository.ErrConditionFailed) {
			return nil, persistence("vacate meter", err)
		}
		current, getErr := s.GetMeter(ctx, id)
		if getErr != nil {
			return nil, getErr
		}
		if checkErr := checkVacate(current, plate); checkErr != nil {
			return nil, checkErr
		}
		return nil, ErrNotOccupied
	}

	var cost *float64
	if sessionID != nil {
		c, closeErr := s.ledger.Close(ctx, *sessionID, plate)
		switch {
		case closeErr == nil:
			cost = &c
		case errors.Is(closeErr, ErrSessionNotFound), errors.Is(closeErr, ErrPlateMismatch):
			s.logger.Warn("meter released without an open session to close",
				zap.String("meter_id", id),
				zap.String("session_id", *sessionID),
				zap.Error(closeErr),
			)
		default:
			s.logger.Error("meter released but session not closed, needs reconciliation",
				zap.String("meter_id", id),
				zap.String("session_id", *sessionID),
				zap.Error(closeErr),
			)
			return nil, closeErr
		}
	} else {
		s.logger.Warn("occupied meter had no session reference", zap.String("meter_id", id))
	}

	released := releasedView(meter)
	updated := released
	if cost != nil {
		stored, err := s.meters.SetCost(ctx, id, *cost)
		switch {
		case err == nil:
			updated = stored
		case errors.Is(err, repository.ErrConditionFailed):
			// claimed again before the cost landed
			s.logger.Warn("meter cost superseded by a new occupancy",
				zap.String("meter_id", id),
				zap.Float64("cost", *cost),
			)
			released.Cost = cost
			return &TransitionResult{Meter: released}, nil
		default:
			return nil, persistence("store meter cost", err)
		}
	}

	s.publish(ctx, updated)
	return &TransitionResult{Meter: updated}, nil
}

// releasedView is meter as the vacate left it.
func releasedView(meter *models.Meter) *models.Meter {
	out := *meter
	out.IsOccupied = false
	out.IsConfirmed = false
	out.LicensePlate = nil
	out.ParkingID = nil
	out.Cost = nil
	out.UpdatedAt = time.Now().UTC()
	return &out
}

func checkVacate(meter *models.Meter, plate string) error {
	if !meter.IsOccupied {
		return ErrNotOccupied
	}
	if meter.Plate() != plate {
		return ErrPlateMismatch
	}
	return nil
}

// resolveCar is best-effort: registry failures are treated as a guest vehicle.
func (s *MeterService) resolveCar(ctx context.Context, plate string) (userID, carID *string) {
	if s.cars == nil {
		return nil, nil
	}
	car, err := s.cars.FindByPlate(ctx, plate)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			s.logger.Warn("car lookup failed, treating as guest", zap.Error(err))
		}
		return nil, nil
	}
	return &car.UserID, &car.ID
}

func (s *MeterService) resolvePayment(ctx context.Context, userID string) *string {
	if s.payments == nil {
		return nil
	}
	payment, err := s.payments.DefaultForUser(ctx, userID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			s.logger.Warn("default payment lookup failed", zap.String("user_id", userID), zap.Error(err))
		}
		return nil
	}
	return &payment.ID
}

func (s *MeterService) publish(ctx context.Context, meter *models.Meter) {
	s.notifier.Notify(ctx, notify.Event{
		Kind:  notify.KindMeterStatusChange,
		Meter: meter,
		At:    time.Now().UTC(),
	})
}
