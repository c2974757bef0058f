package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"parkmeter/backend/services/parking-service/internal/service"
)

type addCarRequest struct {
	CarName      string `json:"carName"`
	LicensePlate string `json:"licensePlate"`
}

type renameCarRequest struct {
	CarName string `json:"carName"`
}

// NewListCarsHandler returns GET /car/{userId} handler.
func NewListCarsHandler(svc *service.CarService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := ownerFromPath(w, r)
		if !ok {
			return
		}

		cars, err := svc.ListCars(r.Context(), userID)
		if err != nil {
			if errors.Is(err, service.ErrNoCars) {
				writeError(w, http.StatusNotFound, "Not found")
				return
			}
			logFailure(logger, r, "list cars failed", err)
			writeError(w, http.StatusInternalServerError, "Failed getting cars")
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"cars": cars})
	}
}

// NewAddCarHandler returns POST /car/{userId} handler.
func NewAddCarHandler(svc *service.CarService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := ownerFromPath(w, r)
		if !ok {
			return
		}
		var req addCarRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "Missing parameters")
			return
		}
		if strings.TrimSpace(req.LicensePlate) == "" {
			writeError(w, http.StatusBadRequest, "Missing license plate")
			return
		}
		if !validPlate(req.LicensePlate) {
			writeError(w, http.StatusUnprocessableEntity, msgInvalidInputs)
			return
		}

		car, err := svc.AddCar(r.Context(), userID, req.CarName, req.LicensePlate)
		if err != nil {
			switch {
			case errors.Is(err, service.ErrCarExists):
				writeError(w, http.StatusUnprocessableEntity, "Car already exist")
			case errors.Is(err, service.ErrInvalidInput):
				writeError(w, http.StatusUnprocessableEntity, msgInvalidInputs)
			default:
				logFailure(logger, r, "add car failed", err)
				writeError(w, http.StatusInternalServerError, "Failed post car")
			}
			return
		}
		writeJSON(w, http.StatusCreated, car)
	}
}

// NewGetCarHandler returns GET /car/{userId}/{carId} handler.
func NewGetCarHandler(svc *service.CarService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, carID, ok := carFromPath(w, r)
		if !ok {
			return
		}

		car, err := svc.GetCar(r.Context(), userID, carID)
		if err != nil {
			if errors.Is(err, service.ErrCarNotFound) {
				writeError(w, http.StatusNotFound, "Not found")
				return
			}
			logFailure(logger, r, "get car failed", err)
			writeError(w, http.StatusInternalServerError, "Failed getting car")
			return
		}
		writeJSON(w, http.StatusOK, car)
	}
}

// NewRenameCarHandler returns PUT /car/{userId}/{carId} handler.
func NewRenameCarHandler(svc *service.CarService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, carID, ok := carFromPath(w, r)
		if !ok {
			return
		}
		var req renameCarRequest
		if err := decodeJSON(w, r, &req); err != nil || strings.TrimSpace(req.CarName) == "" {
			writeError(w, http.StatusUnprocessableEntity, "Missing parameter")
			return
		}

		car, err := svc.RenameCar(r.Context(), userID, carID, req.CarName)
		if err != nil {
			switch {
			case errors.Is(err, service.ErrCarNotFound):
				writeError(w, http.StatusNotFound, "Not found")
			case errors.Is(err, service.ErrInvalidInput):
				writeError(w, http.StatusUnprocessableEntity, msgInvalidInputs)
			default:
				logFailure(logger, r, "rename car failed", err)
				writeError(w, http.StatusInternalServerError, "Failed updating car")
			}
			return
		}
		writeJSON(w, http.StatusOK, car)
	}
}

// NewDeleteCarHandler returns DELETE /car/{userId}/{carId} handler.
func NewDeleteCarHandler(svc *service.CarService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, carID, ok := carFromPath(w, r)
		if !ok {
			return
		}

		if err := svc.DeleteCar(r.Context(), userID, carID); err != nil {
			if errors.Is(err, service.ErrCarNotFound) {
				writeError(w, http.StatusNotFound, "Not found or already deleted")
				return
			}
			logFailure(logger, r, "delete car failed", err)
			writeError(w, http.StatusInternalServerError, "Failed deleting car")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "Deleted car"})
	}
}

func carFromPath(w http.ResponseWriter, r *http.Request) (string, string, bool) {
	userID, ok := ownerFromPath(w, r)
	if !ok {
		return "", "", false
	}
	carID := strings.TrimSpace(mux.Vars(r)["carId"])
	if carID == "" {
		writeError(w, http.StatusUnauthorized, msgUnauthorized)
		return "", "", false
	}
	return userID, carID, true
}
