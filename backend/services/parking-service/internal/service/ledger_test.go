package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"parkmeter/backend/services/parking-service/internal/models"
)

func TestComputeCost(t *testing.T) {
	start := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	cases := []struct {
		name    string
		elapsed time.Duration
		want    float64
	}{
		{"zero duration bills one hour", 0, 12},
		{"one millisecond", time.Millisecond, 12},
		{"exactly one hour", time.Hour, 12},
		{"just over one hour", time.Hour + time.Millisecond, 24},
		{"five and a half hours", 5*time.Hour + 30*time.Minute, 72},
		{"clock skew", -time.Minute, 12},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ComputeCost(12, start, start.Add(tc.elapsed)); got != tc.want {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
		})
	}

	if got := ComputeCost(2.5, start, start.Add(3*time.Hour)); got != 7.5 {
		t.Fatalf("expected 7.5 for fractional price, got %v", got)
	}
}

func TestLedgerOpenAndClose(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	opened, err := env.ledger.Open(ctx, OpenSessionInput{
		LicensePlate: "abc123",
		MeterID:      "meter-1",
		UnitPrice:    12,
	})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if opened.IsUser {
		t.Fatalf("guest session must not report a user")
	}

	session, err := env.ledger.Get(ctx, opened.SessionID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !session.IsOpen || session.EndTime != nil || session.Cost != nil {
		t.Fatalf("open session must have no end time or cost: %+v", session)
	}
	if session.LicensePlate != "ABC123" {
		t.Fatalf("expected normalized plate, got %q", session.LicensePlate)
	}

	env.clock.Advance(time.Hour + time.Millisecond)
	cost, err := env.ledger.Close(ctx, opened.SessionID, "ABC123")
	if err != nil {
		t.Fatalf("close: %v", err)
	}
	if cost != 24 {
		t.Fatalf("expected cost 24, got %v", cost)
	}

	session, _ = env.ledger.Get(ctx, opened.SessionID)
	if session.IsOpen || session.EndTime == nil || session.Cost == nil || *session.Cost != 24 {
		t.Fatalf("closed session must carry end time and cost: %+v", session)
	}

	if _, err := env.ledger.Close(ctx, opened.SessionID, "ABC123"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound on second close, got %v", err)
	}
}

func TestLedgerCloseRejectsOtherPlate(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	opened, err := env.ledger.Open(ctx, OpenSessionInput{LicensePlate: "ABC123", MeterID: "m", UnitPrice: 3})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := env.ledger.Close(ctx, opened.SessionID, "XYZ999"); !errors.Is(err, ErrPlateMismatch) {
		t.Fatalf("expected ErrPlateMismatch, got %v", err)
	}
	session, _ := env.ledger.Get(ctx, opened.SessionID)
	if !session.IsOpen {
		t.Fatalf("session must stay open after rejected close")
	}
	if _, err := env.ledger.Close(ctx, "missing", "ABC123"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestLedgerOpenValidatesInput(t *testing.T) {
	env := newTestEnv()
	inputs := []OpenSessionInput{
		{LicensePlate: "", MeterID: "m", UnitPrice: 1},
		{LicensePlate: "ABC123", MeterID: "", UnitPrice: 1},
		{LicensePlate: "ABC123", MeterID: "m", UnitPrice: 0},
	}
	for _, in := range inputs {
		if _, err := env.ledger.Open(context.Background(), in); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("expected ErrInvalidInput for %+v, got %v", in, err)
		}
	}
}

func TestConfirmPlateKeepsPlate(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	meter, _ := env.svc.AddMeter(ctx, 12)
	res, err := env.svc.UpdateStatus(ctx, meter.ID, TransitionRequest{IsOccupied: true, LicensePlate: "ABC123"})
	if err != nil {
		t.Fatalf("occupy: %v", err)
	}

	session, err := env.ledger.ConfirmPlate(ctx, *res.Meter.ParkingID, false, "IGNORED1")
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if !session.IsConfirmed || session.LicensePlate != "ABC123" {
		t.Fatalf("confirm without new plate must keep plate: %+v", session)
	}

	stored, _ := env.meters.Get(ctx, meter.ID)
	if !stored.IsConfirmed || stored.Plate() != "ABC123" {
		t.Fatalf("meter must mirror confirmation: %+v", stored)
	}
}

func TestConfirmPlateReplacesPlateAndOwner(t *testing.T) {
	env := newTestEnv(models.Car{ID: "car-7", UserID: "user-7", CarName: "Civic", LicensePlate: "NEW777"})
	ctx := context.Background()

	meter, _ := env.svc.AddMeter(ctx, 5)
	res, err := env.svc.UpdateStatus(ctx, meter.ID, TransitionRequest{IsOccupied: true, LicensePlate: "OLD111"})
	if err != nil {
		t.Fatalf("occupy: %v", err)
	}
	if *res.IsUser {
		t.Fatalf("unregistered plate must be a guest")
	}

	session, err := env.ledger.ConfirmPlate(ctx, *res.Meter.ParkingID, true, "new777")
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if session.LicensePlate != "NEW777" || !session.IsConfirmed {
		t.Fatalf("expected corrected plate and confirmation: %+v", session)
	}
	if session.UserID == nil || *session.UserID != "user-7" || session.CarID == nil || *session.CarID != "car-7" {
		t.Fatalf("expected owner resolved from corrected plate: %+v", session)
	}

	stored, _ := env.meters.Get(ctx, meter.ID)
	if stored.Plate() != "NEW777" || !stored.IsConfirmed {
		t.Fatalf("meter must carry corrected plate: %+v", stored)
	}

	if _, err := env.svc.UpdateStatus(ctx, meter.ID, TransitionRequest{IsOccupied: false, LicensePlate: "NEW777"}); err != nil {
		t.Fatalf("vacate under corrected plate: %v", err)
	}
}

func TestConfirmPlateErrors(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	if _, err := env.ledger.ConfirmPlate(ctx, "missing", false, ""); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
	if _, err := env.ledger.ConfirmPlate(ctx, "any", true, "  "); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for empty corrected plate, got %v", err)
	}
}

func TestConfirmAfterMeterMovedOnLeavesMeterAlone(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	meter, _ := env.svc.AddMeter(ctx, 5)
	first, _ := env.svc.UpdateStatus(ctx, meter.ID, TransitionRequest{IsOccupied: true, LicensePlate: "AAA111"})
	firstSession := *first.Meter.ParkingID
	if _, err := env.svc.UpdateStatus(ctx, meter.ID, TransitionRequest{IsOccupied: false, LicensePlate: "AAA111"}); err != nil {
		t.Fatalf("vacate: %v", err)
	}
	if _, err := env.svc.UpdateStatus(ctx, meter.ID, TransitionRequest{IsOccupied: true, LicensePlate: "BBB222"}); err != nil {
		t.Fatalf("second occupy: %v", err)
	}

	if _, err := env.ledger.ConfirmPlate(ctx, firstSession, true, "CCC333"); err != nil {
		t.Fatalf("confirm old session: %v", err)
	}
	stored, _ := env.meters.Get(ctx, meter.ID)
	if stored.Plate() != "BBB222" || stored.IsConfirmed {
		t.Fatalf("confirming an old session must not touch the current occupant: %+v", stored)
	}
}

func TestSessionQueries(t *testing.T) {
	env := newTestEnv(models.Car{ID: "car-1", UserID: "user-1", LicensePlate: "ABC123"})
	ctx := context.Background()

	if _, err := env.ledger.AllSessions(ctx, "user-1"); !errors.Is(err, ErrNoSessions) {
		t.Fatalf("expected ErrNoSessions for empty history, got %v", err)
	}

	closed, _ := env.ledger.Open(ctx, OpenSessionInput{LicensePlate: "ABC123", UserID: strPtr("user-1"), MeterID: "m1", UnitPrice: 1, IsConfirmed: true})
	env.clock.Advance(time.Minute)
	if _, err := env.ledger.Close(ctx, closed.SessionID, "ABC123"); err != nil {
		t.Fatalf("close: %v", err)
	}
	current, _ := env.ledger.Open(ctx, OpenSessionInput{LicensePlate: "ABC123", UserID: strPtr("user-1"), MeterID: "m2", UnitPrice: 1, IsConfirmed: true})
	_, _ = env.ledger.Open(ctx, OpenSessionInput{LicensePlate: "ABC123", UserID: strPtr("user-1"), MeterID: "m3", UnitPrice: 1})

	cur, err := env.ledger.CurrentSessions(ctx, "user-1")
	if err != nil || len(cur) != 1 || cur[0].ID != current.SessionID {
		t.Fatalf("unexpected current sessions %v, %v", cur, err)
	}
	prev, err := env.ledger.PreviousSessions(ctx, "user-1")
	if err != nil || len(prev) != 1 || prev[0].ID != closed.SessionID {
		t.Fatalf("unexpected previous sessions %v, %v", prev, err)
	}
	all, err := env.ledger.AllSessions(ctx, "user-1")
	if err != nil || len(all) != 3 {
		t.Fatalf("expected 3 sessions, got %d, %v", len(all), err)
	}
	if _, err := env.ledger.CurrentSessions(ctx, "user-2"); !errors.Is(err, ErrNoSessions) {
		t.Fatalf("expected ErrNoSessions for other user, got %v", err)
	}
}

func TestAttachPayment(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	opened, _ := env.ledger.Open(ctx, OpenSessionInput{LicensePlate: "ABC123", MeterID: "m", UnitPrice: 1})
	session, err := env.ledger.AttachPayment(ctx, opened.SessionID, "pay-1")
	if err != nil {
		t.Fatalf("attach: %v", err)
	}
	if session.PaymentID == nil || *session.PaymentID != "pay-1" {
		t.Fatalf("expected payment attached: %+v", session)
	}
	if _, err := env.ledger.AttachPayment(ctx, "missing", "pay-1"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}
