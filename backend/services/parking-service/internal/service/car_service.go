package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"parkmeter/backend/services/parking-service/internal/models"
	"parkmeter/backend/services/parking-service/internal/repository"
)

// CarService registers the cars that let the meter recognise a driver by plate.
type CarService struct {
	cars   CarStore
	logger *zap.Logger

	newID func() string
}

func NewCarService(cars CarStore, logger *zap.Logger) *CarService {
	return &CarService{cars: cars, logger: logger, newID: uuid.NewString}
}

// AddCar registers plate for userID. An empty name defaults to the plate.
func (s *CarService) AddCar(ctx context.Context, userID, name, plate string) (*models.Car, error) {
	plate = NormalizePlate(plate)
	if userID == "" || plate == "" {
		return nil, ErrInvalidInput
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = plate
	}

	car := &models.Car{ID: s.newID(), UserID: userID, CarName: name, LicensePlate: plate}
	if err := s.cars.Create(ctx, car); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrCarExists
		}
		return nil, persistence("add car", err)
	}
	s.logger.Info("car registered", zap.String("user_id", userID), zap.String("car_id", car.ID))
	return car, nil
}

// ListCars returns the user's cars, ErrNoCars when there are none.
func (s *CarService) ListCars(ctx context.Context, userID string) ([]models.Car, error) {
	if userID == "" {
		return nil, ErrInvalidInput
	}
	cars, err := s.cars.ListByUser(ctx, userID)
	if err != nil {
		return nil, persistence("list cars", err)
	}
	if len(cars) == 0 {
		return nil, ErrNoCars
	}
	return cars, nil
}

// GetCar returns one of the user's cars. Cars of other users are reported as not found.
func (s *CarService) GetCar(ctx context.Context, userID, carID string) (*models.Car, error) {
	if userID == "" || carID == "" {
		return nil, ErrInvalidInput
	}
	car, err := s.cars.Get(ctx, carID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrCarNotFound
		}
		return nil, persistence("get car", err)
	}
	if car.UserID != userID {
		s.logger.Warn("car requested by another user", zap.String("user_id", userID), zap.String("car_id", carID))
		return nil, ErrCarNotFound
	}
	return car, nil
}

// RenameCar changes the display name of one of the user's cars.
func (s *CarService) RenameCar(ctx context.Context, userID, carID, name string) (*models.Car, error) {
	name = strings.TrimSpace(name)
	if userID == "" || carID == "" || name == "" {
		return nil, ErrInvalidInput
	}
	car, err := s.cars.Rename(ctx, carID, userID, name)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrCarNotFound
		}
		return nil, persistence("rename car", err)
	}
	return car, nil
}

// DeleteCar removes one of the user's cars. Sessions already opened for it keep their owner.
func (s *CarService) DeleteCar(ctx context.Context, userID, carID string) error {
	if userID == "" || carID == "" {
		return ErrInvalidInput
	}
	if err := s.cars.Delete(ctx, carID, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrCarNotFound
		}
		return persistence("delete car", err)
	}
	s.logger.Info("car deleted", zap.String("user_id", userID), zap.String("car_id", carID))
	return nil
}
