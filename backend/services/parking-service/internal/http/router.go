package httpserver

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"parkmeter/backend/services/parking-service/internal/http/handlers"
	"parkmeter/backend/services/parking-service/internal/http/middleware"
)

// Routes groups handlers.
type Routes struct {
	AddMeter         http.HandlerFunc
	ListMeters       http.HandlerFunc
	GetMeter         http.HandlerFunc
	UpdateMeter      http.HandlerFunc
	ResetMeter       http.HandlerFunc
	ConfirmParking   http.HandlerFunc
	CurrentParkings  http.HandlerFunc
	PreviousParkings http.HandlerFunc
	AllParkings      http.HandlerFunc
	GuestPayment     http.HandlerFunc
	UserPayment      http.HandlerFunc
	ListCars         http.HandlerFunc
	AddCar           http.HandlerFunc
	GetCar           http.HandlerFunc
	RenameCar        http.HandlerFunc
	DeleteCar        http.HandlerFunc
	Events           http.Handler
	Health           http.HandlerFunc
	Version          http.HandlerFunc
}

type route struct {
	path    string
	method  string
	handler http.HandlerFunc
	auth    bool
}

// NewRouter registers endpoints. Routes taking a {userId} require a bearer token.
func NewRouter(routes Routes, tokens middleware.TokenValidator, logger *zap.Logger) http.Handler {
	r := mux.NewRouter()
	r.NotFoundHandler = handlers.NewNotFoundHandler()
	auth := middleware.Auth(tokens)

	table := []route{
		{"/health", http.MethodGet, routes.Health, false},
		{"/version", http.MethodGet, routes.Version, false},

		{"/meter/addMeter", http.MethodPost, routes.AddMeter, false},
		{"/meter/all", http.MethodGet, routes.ListMeters, false},
		{"/meter/{meterId}", http.MethodGet, routes.GetMeter, false},
		{"/meter/{meterId}", http.MethodPut, routes.UpdateMeter, false},
		{"/meter/{meterId}/reset", http.MethodPost, routes.ResetMeter, false},

		{"/parking/confirm/{parkingId}", http.MethodPut, routes.ConfirmParking, false},
		{"/parking/{userId}/current", http.MethodGet, routes.CurrentParkings, true},
		{"/parking/{userId}/previous", http.MethodGet, routes.PreviousParkings, true},
		{"/parking/{userId}/all", http.MethodGet, routes.AllParkings, true},

		{"/payment/guest/{parkingId}", http.MethodPost, routes.GuestPayment, false},
		{"/payment/user/{userId}", http.MethodPost, routes.UserPayment, true},

		{"/car/{userId}", http.MethodGet, routes.ListCars, true},
		{"/car/{userId}", http.MethodPost, routes.AddCar, true},
		{"/car/{userId}/{carId}", http.MethodGet, routes.GetCar, true},
		{"/car/{userId}/{carId}", http.MethodPut, routes.RenameCar, true},
		{"/car/{userId}/{carId}", http.MethodDelete, routes.DeleteCar, true},
	}
	for _, rt := range table {
		if rt.handler == nil {
			continue
		}
		var h http.Handler = rt.handler
		if rt.auth {
			h = auth(h)
		}
		r.Handle(rt.path, h).Methods(rt.method)
	}

	if routes.Events != nil {
		r.Handle("/ws/meters", routes.Events).Methods(http.MethodGet)
	}

	return middleware.Chain(r, middleware.RequestID, middleware.AccessLog(logger))
}
