package handlers

import (
	"errors"
	"math"
	"net/http"

	"go.uber.org/zap"

	"parkmeter/backend/services/parking-service/internal/models"
	"parkmeter/backend/services/parking-service/internal/service"
)

type addMeterRequest struct {
	UnitPrice *float64 `json:"unitPrice"`
}

type updateStatusRequest struct {
	IsOccupied   *bool  `json:"isOccupied"`
	LicensePlate string `json:"licensePlate"`
	IsConfirmed  bool   `json:"isConfirmed"`
}

type meterResponse struct {
	*models.Meter
	IsUser *bool `json:"isUser,omitempty"`
}

// NewAddMeterHandler returns POST /meter/addMeter handler.
func NewAddMeterHandler(svc *service.MeterService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req addMeterRequest
		if err := decodeJSON(w, r, &req); err != nil || req.UnitPrice == nil || *req.UnitPrice <= 0 || math.IsInf(*req.UnitPrice, 0) {
			writeError(w, http.StatusUnprocessableEntity, msgInvalidInputs)
			return
		}

		meter, err := svc.AddMeter(r.Context(), *req.UnitPrice)
		if err != nil {
			if errors.Is(err, service.ErrInvalidInput) {
				writeError(w, http.StatusUnprocessableEntity, msgInvalidInputs)
				return
			}
			logFailure(logger, r, "add meter failed", err)
			writeError(w, http.StatusInternalServerError, "Adding meter failed")
			return
		}
		writeJSON(w, http.StatusCreated, meter)
	}
}

// NewListMetersHandler returns GET /meter/all handler.
func NewListMetersHandler(svc *service.MeterService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		meters, err := svc.ListMeters(r.Context())
		if err != nil {
			if errors.Is(err, service.ErrNoMeters) {
				writeError(w, http.StatusUnauthorized, "No meter found")
				return
			}
			logFailure(logger, r, "list meters failed", err)
			writeError(w, http.StatusInternalServerError, "Getting meters failed")
			return
		}
		writeJSON(w, http.StatusOK, meters)
	}
}

// NewGetMeterHandler returns GET /meter/{meterId} handler.
func NewGetMeterHandler(svc *service.MeterService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r, "meterId")
		if !ok {
			writeError(w, http.StatusUnprocessableEntity, msgInvalidInputs)
			return
		}

		meter, err := svc.GetMeter(r.Context(), id)
		if err != nil {
			if errors.Is(err, service.ErrMeterNotFound) {
				writeError(w, http.StatusUnauthorized, "Invalid meter")
				return
			}
			logFailure(logger, r, "get meter failed", err)
			writeError(w, http.StatusInternalServerError, "Getting status failed")
			return
		}
		writeJSON(w, http.StatusOK, meter)
	}
}

// NewUpdateMeterHandler returns PUT /meter/{meterId} handler.
func NewUpdateMeterHandler(svc *service.MeterService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r, "meterId")
		if !ok {
			writeError(w, http.StatusUnprocessableEntity, msgInvalidInputs)
			return
		}
		var req updateStatusRequest
		if err := decodeJSON(w, r, &req); err != nil || req.IsOccupied == nil || !validPlate(req.LicensePlate) {
			writeError(w, http.StatusUnprocessableEntity, msgInvalidInputs)
			return
		}

		res, err := svc.UpdateStatus(r.Context(), id, service.TransitionRequest{
			IsOccupied:   *req.IsOccupied,
			LicensePlate: req.LicensePlate,
			IsConfirmed:  req.IsConfirmed,
		})
		if err != nil {
			switch {
			case errors.Is(err, service.ErrAlreadyOccupied):
				writeError(w, http.StatusUnauthorized, "Error: meter is already occupied")
			case errors.Is(err, service.ErrNotOccupied):
				writeError(w, http.StatusUnauthorized, "Error: meter is not occupied")
			case errors.Is(err, service.ErrPlateMismatch):
				writeError(w, http.StatusConflict, "Error: existing parked car")
			case errors.Is(err, service.ErrMeterNotFound):
				writeError(w, http.StatusUnauthorized, "No meter found")
			case errors.Is(err, service.ErrInvalidInput):
				writeError(w, http.StatusUnprocessableEntity, msgInvalidInputs)
			default:
				logFailure(logger, r, "update meter status failed", err)
				writeError(w, http.StatusInternalServerError, "Updating status failed")
			}
			return
		}
		writeJSON(w, http.StatusOK, meterResponse{Meter: res.Meter, IsUser: res.IsUser})
	}
}

// NewResetMeterHandler returns POST /meter/{meterId}/reset handler.
func NewResetMeterHandler(svc *service.MeterService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r, "meterId")
		if !ok {
			writeError(w, http.StatusUnprocessableEntity, msgInvalidInputs)
			return
		}

		meter, err := svc.Reset(r.Context(), id)
		if err != nil {
			if errors.Is(err, service.ErrMeterNotFound) {
				writeError(w, http.StatusUnauthorized, "No meter found")
				return
			}
			logFailure(logger, r, "reset meter failed", err)
			writeError(w, http.StatusInternalServerError, "Resetting meter failed")
			return
		}
		writeJSON(w, http.StatusOK, meter)
	}
}
