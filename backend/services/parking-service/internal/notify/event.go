package notify

import (
	"context"
	"time"

	"parkmeter/backend/services/parking-service/internal/models"
)

// Kind names a notification type.
type Kind string

const (
	KindMeterStatusChange  Kind = "meter-status-change"
	KindSessionUnconfirmed Kind = "session-unconfirmed"
	KindSessionUnpaid      Kind = "session-unpaid"
)

// Event is a structured status change or alert. Meter is set for status changes and
// Session for session alerts.
type Event struct {
	Kind    Kind            `json:"kind"`
	Meter   *models.Meter   `json:"meter,omitempty"`
	Session *models.Session `json:"session,omitempty"`
	At      time.Time       `json:"at"`
}

// Notifier accepts events. Implementations never report delivery failures to the caller.
type Notifier interface {
	Notify(ctx context.Context, event Event)
}

// Nop discards every event.
type Nop struct{}

func (Nop) Notify(context.Context, Event) {}
