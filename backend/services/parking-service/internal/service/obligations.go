package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"parkmeter/backend/services/parking-service/internal/models"
	"parkmeter/backend/services/parking-service/internal/notify"
)

const (
	defaultGracePeriod = 15 * time.Minute
	obligationTimeout  = 10 * time.Second
)

// Timer is a pending delayed call.
type Timer interface {
	Stop() bool
}

// AfterFunc schedules f after d.
type AfterFunc func(d time.Duration, f func()) Timer

// AlertGuard deduplicates alerts across replicas. Acquire reports whether the caller
// owns the alert for key.
type AlertGuard interface {
	Acquire(ctx context.Context, key string) (bool, error)
}

// ObligationScheduler checks, after a grace period, whether a new session was confirmed
// and paid, and raises an alert for each obligation still unresolved. Checks read the
// session at fire time; resolving an obligation earlier turns its check into a no-op.
type ObligationScheduler struct {
	sessions SessionReader
	notifier notify.Notifier
	guard    AlertGuard
	grace    time.Duration
	logger   *zap.Logger

	after AfterFunc
	now   func() time.Time

	mu      sync.Mutex
	timers  map[string]Timer
	stopped bool
}

// NewObligationScheduler builds scheduler. guard may be nil.
func NewObligationScheduler(sessions SessionReader, notifier notify.Notifier, guard AlertGuard, grace time.Duration, logger *zap.Logger) *ObligationScheduler {
	if grace <= 0 {
		grace = defaultGracePeriod
	}
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &ObligationScheduler{
		sessions: sessions,
		notifier: notifier,
		guard:    guard,
		grace:    grace,
		logger:   logger,
		after: func(d time.Duration, f func()) Timer {
			return time.AfterFunc(d, f)
		},
		now:    func() time.Time { return time.Now().UTC() },
		timers: make(map[string]Timer),
	}
}

// Watch schedules the checks a freshly opened session needs.
func (s *ObligationScheduler) Watch(session models.Session) {
	if !session.IsConfirmed {
		s.schedule(notify.KindSessionUnconfirmed, session.ID)
	}
	if session.PaymentID == nil {
		s.schedule(notify.KindSessionUnpaid, session.ID)
	}
}

// Pending returns the number of scheduled checks.
func (s *ObligationScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// Stop drops every pending check. Later Watch calls are ignored.
func (s *ObligationScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	for key, t := range s.timers {
		t.Stop()
		delete(s.timers, key)
	}
}

func (s *ObligationScheduler) schedule(kind notify.Kind, sessionID string) {
	key := string(kind) + ":" + sessionID

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	if _, ok := s.timers[key]; ok {
		return
	}
	s.timers[key] = s.after(s.grace, func() {
		s.fire(kind, sessionID, key)
	})
}

func (s *ObligationScheduler) fire(kind notify.Kind, sessionID, key string) {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	delete(s.timers, key)
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), obligationTimeout)
	defer cancel()

	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		s.logger.Warn("obligation check could not read session",
			zap.String("session_id", sessionID),
			zap.String("kind", string(kind)),
			zap.Error(err),
		)
		return
	}

	switch kind {
	case notify.KindSessionUnconfirmed:
		if session.IsConfirmed {
			return
		}
	case notify.KindSessionUnpaid:
		if session.PaymentID != nil {
			return
		}
	}

	if s.guard != nil {
		owned, err := s.guard.Acquire(ctx, key)
		if err != nil {
			s.logger.Warn("alert guard unavailable, notifying anyway", zap.String("key", key), zap.Error(err))
		} else if !owned {
			return
		}
	}

	s.logger.Info("session obligation unresolved",
		zap.String("session_id", sessionID),
		zap.String("kind", string(kind)),
	)
	s.notifier.Notify(ctx, notify.Event{Kind: kind, Session: session, At: s.now()})
}
