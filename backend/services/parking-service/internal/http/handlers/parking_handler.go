package handlers

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"parkmeter/backend/services/parking-service/internal/models"
	"parkmeter/backend/services/parking-service/internal/service"
)

type confirmRequest struct {
	IsNew        *bool  `json:"isNew"`
	LicensePlate string `json:"licensePlate"`
}

// NewConfirmParkingHandler returns PUT /parking/confirm/{parkingId} handler.
func NewConfirmParkingHandler(ledger *service.Ledger, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r, "parkingId")
		if !ok {
			writeError(w, http.StatusUnprocessableEntity, msgInvalidInputs)
			return
		}
		var req confirmRequest
		if err := decodeJSON(w, r, &req); err != nil || req.IsNew == nil || (*req.IsNew && !validPlate(req.LicensePlate)) {
			writeError(w, http.StatusUnprocessableEntity, msgInvalidInputs)
			return
		}

		session, err := ledger.ConfirmPlate(r.Context(), id, *req.IsNew, req.LicensePlate)
		if err != nil {
			switch {
			case errors.Is(err, service.ErrSessionNotFound):
				writeError(w, http.StatusNotFound, "Not found parking")
			case errors.Is(err, service.ErrInvalidInput):
				writeError(w, http.StatusUnprocessableEntity, msgInvalidInputs)
			default:
				logFailure(logger, r, "confirm parking failed", err)
				writeError(w, http.StatusInternalServerError, "Updating parking failed")
			}
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"parkingId": session.ID})
	}
}

// NewCurrentParkingsHandler returns GET /parking/{userId}/current handler.
func NewCurrentParkingsHandler(ledger *service.Ledger, logger *zap.Logger) http.HandlerFunc {
	return sessionList(ledger.CurrentSessions, logger, "currentParkings", "Not found currently parked")
}

// NewPreviousParkingsHandler returns GET /parking/{userId}/previous handler.
func NewPreviousParkingsHandler(ledger *service.Ledger, logger *zap.Logger) http.HandlerFunc {
	return sessionList(ledger.PreviousSessions, logger, "previousParkings", "Not found previously parked")
}

// NewAllParkingsHandler returns GET /parking/{userId}/all handler.
func NewAllParkingsHandler(ledger *service.Ledger, logger *zap.Logger) http.HandlerFunc {
	return sessionList(ledger.AllSessions, logger, "allParkings", "Not found any parked")
}

type sessionQuery func(ctx context.Context, userID string) ([]models.Session, error)

func sessionList(query sessionQuery, logger *zap.Logger, key, emptyMessage string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := ownerFromPath(w, r)
		if !ok {
			return
		}

		sessions, err := query(r.Context(), userID)
		if err != nil {
			if errors.Is(err, service.ErrNoSessions) {
				writeError(w, http.StatusNotFound, emptyMessage)
				return
			}
			logFailure(logger, r, "list parkings failed", err)
			writeError(w, http.StatusInternalServerError, "Finding parking failed")
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{key: sessions})
	}
}
