package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"parkmeter/backend/services/parking-service/internal/models"
	"parkmeter/backend/services/parking-service/internal/notify"
	"parkmeter/backend/services/parking-service/internal/repository/memory"
)

type recordingNotifier struct {
	mu     sync.Mutex
	events []notify.Event
}

func (r *recordingNotifier) Notify(_ context.Context, event notify.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recordingNotifier) kinds() []notify.Kind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]notify.Kind, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Kind)
	}
	return out
}

func (r *recordingNotifier) last() notify.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.events) == 0 {
		return notify.Event{}
	}
	return r.events[len(r.events)-1]
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type stubHasher struct{}

func (stubHasher) Hash(secret string) (string, error) {
	return "hashed:" + secret, nil
}

type testEnv struct {
	meters   *memory.MeterRepository
	sessions *memory.SessionRepository
	cars     *memory.CarRepository
	payments *memory.PaymentRepository
	notifier *recordingNotifier
	clock    *fakeClock
	ledger   *Ledger
	svc      *MeterService
	payment  *PaymentService
}

func newTestEnv(cars ...models.Car) *testEnv {
	env := &testEnv{
		meters:   memory.NewMeterRepository(),
		sessions: memory.NewSessionRepository(),
		cars:     memory.NewCarRepository(cars...),
		payments: memory.NewPaymentRepository(),
		notifier: &recordingNotifier{},
		clock:    newFakeClock(),
	}
	logger := zap.NewNop()
	env.ledger = NewLedger(env.sessions, env.meters, env.cars, nil, logger)
	env.ledger.now = env.clock.Now
	env.svc = NewMeterService(env.meters, env.cars, env.payments, env.ledger, env.notifier, logger)
	env.payment = NewPaymentService(env.payments, env.ledger, stubHasher{}, logger)
	return env
}

func strPtr(s string) *string { return &s }
