package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"parkmeter/backend/services/parking-service/internal/cardhash"
	"parkmeter/backend/services/parking-service/internal/models"
)

// CardHasher hashes card secrets.
type CardHasher interface {
	Hash(secret string) (string, error)
}

// Card is a payment card as submitted by a client.
type Card struct {
	Number  string
	ExpDate string
	CVV     string
}

// PaymentService stores cards and links them to sessions or users. No authorization
// against a card network happens here.
type PaymentService struct {
	payments PaymentStore
	ledger   *Ledger
	hasher   CardHasher
	logger   *zap.Logger

	newID func() string
}

// NewPaymentService builds service.
func NewPaymentService(payments PaymentStore, ledger *Ledger, hasher CardHasher, logger *zap.Logger) *PaymentService {
	return &PaymentService{
		payments: payments,
		ledger:   ledger,
		hasher:   hasher,
		logger:   logger,
		newID:    uuid.NewString,
	}
}

// AddGuestPayment stores a card and attaches it to the session.
func (s *PaymentService) AddGuestPayment(ctx context.Context, sessionID string, card Card) (*models.Payment, error) {
	if sessionID == "" {
		return nil, ErrInvalidInput
	}
	if err := validateCard(card); err != nil {
		return nil, err
	}
	if _, err := s.ledger.Get(ctx, sessionID); err != nil {
		return nil, err
	}

	payment, err := s.store(ctx, nil, card)
	if err != nil {
		return nil, err
	}
	if _, err := s.ledger.AttachPayment(ctx, sessionID, payment.ID); err != nil {
		return nil, err
	}
	s.logger.Info("guest payment attached", zap.String("session_id", sessionID), zap.String("payment_id", payment.ID))
	return payment, nil
}

// AddUserPayment stores a card as the user's default payment.
func (s *PaymentService) AddUserPayment(ctx context.Context, userID string, card Card) (*models.Payment, error) {
	if userID == "" {
		return nil, ErrInvalidInput
	}
	if err := validateCard(card); err != nil {
		return nil, err
	}

	payment, err := s.store(ctx, &userID, card)
	if err != nil {
		return nil, err
	}
	if err := s.payments.SetDefaultForUser(ctx, userID, payment.ID); err != nil {
		return nil, persistence("set default payment", err)
	}
	s.logger.Info("user payment stored", zap.String("user_id", userID), zap.String("payment_id", payment.ID))
	return payment, nil
}

func (s *PaymentService) store(ctx context.Context, userID *string, card Card) (*models.Payment, error) {
	hash, err := s.hasher.Hash(cardhash.Secret(card.Number, card.CVV))
	if err != nil {
		return nil, fmt.Errorf("hash card: %w", err)
	}
	payment := &models.Payment{
		ID:         s.newID(),
		UserID:     userID,
		CardLast4:  card.Number[len(card.Number)-4:],
		ExpDate:    card.ExpDate,
		SecretHash: hash,
	}
	if err := s.payments.Create(ctx, payment); err != nil {
		return nil, persistence("store payment", err)
	}
	return payment, nil
}

func validateCard(card Card) error {
	switch {
	case !isDigits(card.Number, 6, 19):
		return ErrInvalidInput
	case !isDigits(card.ExpDate, 1, 6):
		return ErrInvalidInput
	case !isDigits(card.CVV, 3, 4):
		return ErrInvalidInput
	}
	return nil
}

func isDigits(s string, minLen, maxLen int) bool {
	if len(s) < minLen || len(s) > maxLen {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
