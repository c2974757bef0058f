package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"parkmeter/backend/services/parking-service/internal/models"
	"parkmeter/backend/services/parking-service/internal/repository"
)

// CarRepository is an in-memory car registry with a unique plate index.
type CarRepository struct {
	mu      sync.RWMutex
	cars    map[string]models.Car
	byPlate map[string]string
}

// NewCarRepository returns a registry seeded with cars.
func NewCarRepository(cars ...models.Car) *CarRepository {
	r := &CarRepository{
		cars:    make(map[string]models.Car),
		byPlate: make(map[string]string),
	}
	for _, c := range cars {
		r.Add(c)
	}
	return r
}

// Add registers a car, replacing whichever car held the plate before.
func (r *CarRepository) Add(car models.Car) {
	r.mu.Lock()
	defer r.mu.Unlock()
	car.LicensePlate = strings.ToUpper(strings.TrimSpace(car.LicensePlate))
	if prev, ok := r.byPlate[car.LicensePlate]; ok {
		delete(r.cars, prev)
	}
	r.cars[car.ID] = car
	r.byPlate[car.LicensePlate] = car.ID
}

func (r *CarRepository) Create(_ context.Context, car *models.Car) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byPlate[car.LicensePlate]; ok {
		return repository.ErrConflict
	}
	if _, ok := r.cars[car.ID]; ok {
		return repository.ErrConflict
	}
	r.cars[car.ID] = *car
	r.byPlate[car.LicensePlate] = car.ID
	return nil
}

func (r *CarRepository) Get(_ context.Context, id string) (*models.Car, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	car, ok := r.cars[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &car, nil
}

func (r *CarRepository) FindByPlate(_ context.Context, plate string) (*models.Car, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byPlate[plate]
	if !ok {
		return nil, repository.ErrNotFound
	}
	car := r.cars[id]
	return &car, nil
}

func (r *CarRepository) ListByUser(_ context.Context, userID string) ([]models.Car, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []models.Car
	for _, c := range r.cars {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LicensePlate < out[j].LicensePlate })
	return out, nil
}

func (r *CarRepository) Rename(_ context.Context, id, userID, name string) (*models.Car, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	car, ok := r.cars[id]
	if !ok || car.UserID != userID {
		return nil, repository.ErrNotFound
	}
	car.CarName = name
	r.cars[id] = car
	return &car, nil
}

func (r *CarRepository) Delete(_ context.Context, id, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	car, ok := r.cars[id]
	if !ok || car.UserID != userID {
		return repository.ErrNotFound
	}
	delete(r.cars, id)
	delete(r.byPlate, car.LicensePlate)
	return nil
}
