package notify

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

const defaultSendTimeout = 5 * time.Second

// Sink delivers an event to one destination.
type Sink interface {
	Name() string
	Send(ctx context.Context, event Event) error
}

// Fanout delivers every event to all sinks. Each delivery runs on its own goroutine with
// a bounded timeout and outlives the request that triggered it; failures are logged.
type Fanout struct {
	sinks   []Sink
	timeout time.Duration
	logger  *zap.Logger

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewFanout builds notifier over sinks.
func NewFanout(timeout time.Duration, logger *zap.Logger, sinks ...Sink) *Fanout {
	if timeout <= 0 {
		timeout = defaultSendTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fanout{sinks: sinks, timeout: timeout, logger: logger}
}

// Notify schedules delivery and returns immediately. Events arriving after Wait has
// started are dropped.
func (f *Fanout) Notify(ctx context.Context, event Event) {
	if event.At.IsZero() {
		event.At = time.Now().UTC()
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		f.logger.Debug("notification dropped after shutdown", zap.String("kind", string(event.Kind)))
		return
	}

	base := context.WithoutCancel(ctx)
	for _, sink := range f.sinks {
		f.wg.Add(1)
		go func(sink Sink) {
			defer f.wg.Done()
			sendCtx, cancel := context.WithTimeout(base, f.timeout)
			defer cancel()
			if err := sink.Send(sendCtx, event); err != nil {
				f.logger.Warn("notification delivery failed",
					zap.String("sink", sink.Name()),
					zap.String("kind", string(event.Kind)),
					zap.Error(err),
				)
			}
		}(sink)
	}
}

// Wait stops accepting events and blocks until in-flight deliveries finish.
func (f *Fanout) Wait() {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	f.wg.Wait()
}
