package handlers

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"parkmeter/backend/services/parking-service/internal/service"
)

type cardRequest struct {
	CardNum numeric `json:"cardNum"`
	ExpDate numeric `json:"expDate"`
	CVV     numeric `json:"cvv"`
}

func (c cardRequest) card() service.Card {
	return service.Card{Number: string(c.CardNum), ExpDate: string(c.ExpDate), CVV: string(c.CVV)}
}

// NewGuestPaymentHandler returns POST /payment/guest/{parkingId} handler.
func NewGuestPaymentHandler(svc *service.PaymentService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r, "parkingId")
		if !ok {
			writeError(w, http.StatusUnprocessableEntity, msgInvalidInputs)
			return
		}
		var req cardRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, http.StatusUnprocessableEntity, msgInvalidInputs)
			return
		}

		if _, err := svc.AddGuestPayment(r.Context(), id, req.card()); err != nil {
			writePaymentFailure(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusCreated, true)
	}
}

// NewUserPaymentHandler returns POST /payment/user/{userId} handler.
func NewUserPaymentHandler(svc *service.PaymentService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := ownerFromPath(w, r)
		if !ok {
			return
		}
		var req cardRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, http.StatusUnprocessableEntity, msgInvalidInputs)
			return
		}

		if _, err := svc.AddUserPayment(r.Context(), userID, req.card()); err != nil {
			writePaymentFailure(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusCreated, true)
	}
}

func writePaymentFailure(w http.ResponseWriter, r *http.Request, logger *zap.Logger, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		writeError(w, http.StatusUnprocessableEntity, msgInvalidInputs)
	case errors.Is(err, service.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, "Not found parking")
	default:
		logFailure(logger, r, "add payment failed", err)
		writeError(w, http.StatusInternalServerError, "Adding payment failed")
	}
}
