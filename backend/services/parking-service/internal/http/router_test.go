package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"parkmeter/backend/services/parking-service/internal/cardhash"
	"parkmeter/backend/services/parking-service/internal/http/handlers"
	"parkmeter/backend/services/parking-service/internal/identity"
	"parkmeter/backend/services/parking-service/internal/models"
	"parkmeter/backend/services/parking-service/internal/repository/memory"
	"parkmeter/backend/services/parking-service/internal/service"
)

type testServer struct {
	handler http.Handler
	tokens  *identity.TokenService
	ledger  *service.Ledger
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := zap.NewNop()

	meters := memory.NewMeterRepository()
	sessions := memory.NewSessionRepository()
	cars := memory.NewCarRepository(models.Car{ID: "car-1", UserID: "user-1", CarName: "Golf", LicensePlate: "REG001"})
	payments := memory.NewPaymentRepository()

	ledger := service.NewLedger(sessions, meters, cars, nil, logger)
	meterSvc := service.NewMeterService(meters, cars, payments, ledger, nil, logger)
	paymentSvc := service.NewPaymentService(payments, ledger, cardhash.NewBcryptHasher(4), logger)
	tokens := identity.NewTokenService("test-secret", time.Hour)

	carSvc := service.NewCarService(cars, logger)

	routes := Routes{
		AddMeter:         handlers.NewAddMeterHandler(meterSvc, logger),
		ListMeters:       handlers.NewListMetersHandler(meterSvc, logger),
		GetMeter:         handlers.NewGetMeterHandler(meterSvc, logger),
		UpdateMeter:      handlers.NewUpdateMeterHandler(meterSvc, logger),
		ResetMeter:       handlers.NewResetMeterHandler(meterSvc, logger),
		ConfirmParking:   handlers.NewConfirmParkingHandler(ledger, logger),
		CurrentParkings:  handlers.NewCurrentParkingsHandler(ledger, logger),
		PreviousParkings: handlers.NewPreviousParkingsHandler(ledger, logger),
		AllParkings:      handlers.NewAllParkingsHandler(ledger, logger),
		GuestPayment:     handlers.NewGuestPaymentHandler(paymentSvc, logger),
		UserPayment:      handlers.NewUserPaymentHandler(paymentSvc, logger),
		ListCars:         handlers.NewListCarsHandler(carSvc, logger),
		AddCar:           handlers.NewAddCarHandler(carSvc, logger),
		GetCar:           handlers.NewGetCarHandler(carSvc, logger),
		RenameCar:        handlers.NewRenameCarHandler(carSvc, logger),
		DeleteCar:        handlers.NewDeleteCarHandler(carSvc, logger),
		Health:           handlers.NewHealthHandler(),
		Version:          handlers.NewVersionHandler("1.2.3"),
	}
	return &testServer{handler: NewRouter(routes, tokens, logger), tokens: tokens, ledger: ledger}
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) token(t *testing.T, userID string) string {
	t.Helper()
	tok, err := s.tokens.GenerateToken(userID)
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	return tok
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return out
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, status int, message string) {
	t.Helper()
	if rec.Code != status {
		t.Fatalf("expected %d, got %d: %s", status, rec.Code, rec.Body.String())
	}
	if message != "" {
		if got := decode(t, rec)["message"]; got != message {
			t.Fatalf("expected message %q, got %v", message, got)
		}
	}
}

func (s *testServer) addMeter(t *testing.T, price float64) string {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/meter/addMeter", map[string]float64{"unitPrice": price}, "")
	expectStatus(t, rec, http.StatusCreated, "")
	return decode(t, rec)["id"].(string)
}

func TestMeterScenario(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/meter/addMeter", map[string]float64{"unitPrice": 12}, "")
	expectStatus(t, rec, http.StatusCreated, "")
	if body := rec.Body.String(); strings.Contains(body, "licensePlate") || strings.Contains(body, "cost") || strings.Contains(body, "parkingId") {
		t.Fatalf("unset meter fields must be omitted: %s", body)
	}
	meterID := decode(t, rec)["id"].(string)

	rec = s.do(t, http.MethodPut, "/meter/"+meterID, map[string]interface{}{"isOccupied": true, "licensePlate": "abc123"}, "")
	expectStatus(t, rec, http.StatusOK, "")
	occupied := decode(t, rec)
	if occupied["isOccupied"] != true || occupied["parkingId"] == nil || occupied["licensePlate"] != "ABC123" {
		t.Fatalf("unexpected occupied meter %v", occupied)
	}
	if occupied["isUser"] != false {
		t.Fatalf("expected isUser=false, got %v", occupied["isUser"])
	}

	rec = s.do(t, http.MethodPut, "/meter/"+meterID, map[string]interface{}{"isOccupied": true, "licensePlate": "XYZ999"}, "")
	expectStatus(t, rec, http.StatusUnauthorized, "Error: meter is already occupied")

	rec = s.do(t, http.MethodPut, "/meter/"+meterID, map[string]interface{}{"isOccupied": false, "licensePlate": "XYZ999"}, "")
	expectStatus(t, rec, http.StatusConflict, "Error: existing parked car")

	rec = s.do(t, http.MethodPut, "/meter/"+meterID, map[string]interface{}{"isOccupied": false, "licensePlate": "ABC123"}, "")
	expectStatus(t, rec, http.StatusOK, "")
	vacated := decode(t, rec)
	if vacated["isOccupied"] != false || vacated["cost"] != float64(12) {
		t.Fatalf("unexpected vacated meter %v", vacated)
	}
	if _, ok := vacated["isUser"]; ok {
		t.Fatalf("isUser is only returned on occupy")
	}

	rec = s.do(t, http.MethodPut, "/meter/"+meterID, map[string]interface{}{"isOccupied": false, "licensePlate": "ABC123"}, "")
	expectStatus(t, rec, http.StatusUnauthorized, "Error: meter is not occupied")

	rec = s.do(t, http.MethodGet, "/meter/"+meterID, nil, "")
	expectStatus(t, rec, http.StatusOK, "")

	rec = s.do(t, http.MethodGet, "/meter/all", nil, "")
	expectStatus(t, rec, http.StatusOK, "")
	var list []map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil || len(list) != 1 {
		t.Fatalf("expected one meter, got %s", rec.Body.String())
	}
}

func TestMeterValidationAndLookups(t *testing.T) {
	s := newTestServer(t)

	expectStatus(t, s.do(t, http.MethodGet, "/meter/all", nil, ""), http.StatusUnauthorized, "No meter found")
	expectStatus(t, s.do(t, http.MethodGet, "/meter/not-a-uuid", nil, ""), http.StatusUnprocessableEntity, "Invalid inputs")
	expectStatus(t, s.do(t, http.MethodGet, "/meter/"+uuid.NewString(), nil, ""), http.StatusUnauthorized, "Invalid meter")
	expectStatus(t, s.do(t, http.MethodPost, "/meter/addMeter", map[string]float64{"unitPrice": -1}, ""), http.StatusUnprocessableEntity, "Invalid inputs")
	expectStatus(t, s.do(t, http.MethodPost, "/meter/addMeter", `{"unitPrice":`, ""), http.StatusUnprocessableEntity, "Invalid inputs")

	meterID := s.addMeter(t, 3)
	badBodies := []interface{}{
		map[string]interface{}{"licensePlate": "ABC123"},
		map[string]interface{}{"isOccupied": true, "licensePlate": "AB1"},
		map[string]interface{}{"isOccupied": true, "licensePlate": "ABC-123"},
		map[string]interface{}{"isOccupied": true, "licensePlate": "ABCDEFGHI"},
	}
	for _, body := range badBodies {
		expectStatus(t, s.do(t, http.MethodPut, "/meter/"+meterID, body, ""), http.StatusUnprocessableEntity, "Invalid inputs")
	}
	expectStatus(t, s.do(t, http.MethodPut, "/meter/"+uuid.NewString(), map[string]interface{}{"isOccupied": true, "licensePlate": "ABC123"}, ""), http.StatusUnauthorized, "No meter found")
}

func TestMeterReset(t *testing.T) {
	s := newTestServer(t)
	meterID := s.addMeter(t, 3)
	s.do(t, http.MethodPut, "/meter/"+meterID, map[string]interface{}{"isOccupied": true, "licensePlate": "ABC123"}, "")

	rec := s.do(t, http.MethodPost, "/meter/"+meterID+"/reset", nil, "")
	expectStatus(t, rec, http.StatusOK, "")
	if body := decode(t, rec); body["isOccupied"] != false || body["licensePlate"] != nil {
		t.Fatalf("unexpected reset meter %v", body)
	}
	expectStatus(t, s.do(t, http.MethodPost, "/meter/"+uuid.NewString()+"/reset", nil, ""), http.StatusUnauthorized, "No meter found")
}

func TestParkingConfirmAndQueries(t *testing.T) {
	s := newTestServer(t)
	meterID := s.addMeter(t, 5)

	rec := s.do(t, http.MethodPut, "/meter/"+meterID, map[string]interface{}{"isOccupied": true, "licensePlate": "WRONG1"}, "")
	expectStatus(t, rec, http.StatusOK, "")
	parkingID := decode(t, rec)["parkingId"].(string)

	token := s.token(t, "user-1")
	expectStatus(t, s.do(t, http.MethodGet, "/parking/user-1/current", nil, token), http.StatusNotFound, "Not found currently parked")

	rec = s.do(t, http.MethodPut, "/parking/confirm/"+parkingID, map[string]interface{}{"isNew": true, "licensePlate": "REG001"}, "")
	expectStatus(t, rec, http.StatusOK, "")
	if decode(t, rec)["parkingId"] != parkingID {
		t.Fatalf("confirm must echo parkingId")
	}

	rec = s.do(t, http.MethodGet, "/meter/"+meterID, nil, "")
	if body := decode(t, rec); body["licensePlate"] != "REG001" || body["isConfirmed"] != true {
		t.Fatalf("meter must mirror confirmation: %v", body)
	}

	rec = s.do(t, http.MethodGet, "/parking/user-1/current", nil, token)
	expectStatus(t, rec, http.StatusOK, "")
	current, ok := decode(t, rec)["currentParkings"].([]interface{})
	if !ok || len(current) != 1 {
		t.Fatalf("expected one current parking, got %s", rec.Body.String())
	}
	expectStatus(t, s.do(t, http.MethodGet, "/parking/user-1/previous", nil, token), http.StatusNotFound, "Not found previously parked")

	s.do(t, http.MethodPut, "/meter/"+meterID, map[string]interface{}{"isOccupied": false, "licensePlate": "REG001"}, "")
	rec = s.do(t, http.MethodGet, "/parking/user-1/previous", nil, token)
	expectStatus(t, rec, http.StatusOK, "")
	rec = s.do(t, http.MethodGet, "/parking/user-1/all", nil, token)
	expectStatus(t, rec, http.StatusOK, "")
	if all, _ := decode(t, rec)["allParkings"].([]interface{}); len(all) != 1 {
		t.Fatalf("expected one parking in history, got %s", rec.Body.String())
	}
}

func TestParkingAuthAndValidation(t *testing.T) {
	s := newTestServer(t)

	expectStatus(t, s.do(t, http.MethodGet, "/parking/user-1/all", nil, ""), http.StatusUnauthorized, "Token missing or invalid")
	expectStatus(t, s.do(t, http.MethodGet, "/parking/user-1/all", nil, s.token(t, "user-2")), http.StatusUnauthorized, "Token missing or invalid")
	expectStatus(t, s.do(t, http.MethodGet, "/parking/user-1/all", nil, "garbage"), http.StatusUnauthorized, "Token missing or invalid")

	expectStatus(t, s.do(t, http.MethodPut, "/parking/confirm/"+uuid.NewString(), map[string]interface{}{"isNew": false}, ""), http.StatusNotFound, "Not found parking")
	expectStatus(t, s.do(t, http.MethodPut, "/parking/confirm/xyz", map[string]interface{}{"isNew": false}, ""), http.StatusUnprocessableEntity, "Invalid inputs")
	expectStatus(t, s.do(t, http.MethodPut, "/parking/confirm/"+uuid.NewString(), map[string]interface{}{"isNew": true, "licensePlate": "A"}, ""), http.StatusUnprocessableEntity, "Invalid inputs")
	expectStatus(t, s.do(t, http.MethodPut, "/parking/confirm/"+uuid.NewString(), map[string]interface{}{"licensePlate": "ABC123"}, ""), http.StatusUnprocessableEntity, "Invalid inputs")
}

func TestPayments(t *testing.T) {
	s := newTestServer(t)
	meterID := s.addMeter(t, 5)
	rec := s.do(t, http.MethodPut, "/meter/"+meterID, map[string]interface{}{"isOccupied": true, "licensePlate": "GUEST1"}, "")
	parkingID := decode(t, rec)["parkingId"].(string)

	card := map[string]interface{}{"cardNum": 987654321, "expDate": 111, "cvv": 333}
	rec = s.do(t, http.MethodPost, "/payment/guest/"+parkingID, card, "")
	expectStatus(t, rec, http.StatusCreated, "")
	if strings.TrimSpace(rec.Body.String()) != "true" {
		t.Fatalf("expected true, got %s", rec.Body.String())
	}
	session, err := s.ledger.Get(context.Background(), parkingID)
	if err != nil || session.PaymentID == nil {
		t.Fatalf("payment must be attached: %+v, %v", session, err)
	}

	expectStatus(t, s.do(t, http.MethodPost, "/payment/guest/"+uuid.NewString(), card, ""), http.StatusNotFound, "Not found parking")
	expectStatus(t, s.do(t, http.MethodPost, "/payment/guest/"+parkingID, map[string]interface{}{"cardNum": "abc", "expDate": 111, "cvv": 333}, ""), http.StatusUnprocessableEntity, "Invalid inputs")
	expectStatus(t, s.do(t, http.MethodPost, "/payment/guest/"+parkingID, `{"cardNum": true}`, ""), http.StatusUnprocessableEntity, "Invalid inputs")

	stringCard := map[string]interface{}{"cardNum": "4111111111111111", "expDate": "0127", "cvv": "123"}
	expectStatus(t, s.do(t, http.MethodPost, "/payment/user/user-1", stringCard, s.token(t, "user-1")), http.StatusCreated, "")
	expectStatus(t, s.do(t, http.MethodPost, "/payment/user/user-1", stringCard, ""), http.StatusUnauthorized, "Token missing or invalid")
}

func TestRegisteredCarGetsDefaultPaymentAndIsUser(t *testing.T) {
	s := newTestServer(t)
	card := map[string]interface{}{"cardNum": 987654321, "expDate": 111, "cvv": 333}
	expectStatus(t, s.do(t, http.MethodPost, "/payment/user/user-1", card, s.token(t, "user-1")), http.StatusCreated, "")

	meterID := s.addMeter(t, 5)
	rec := s.do(t, http.MethodPut, "/meter/"+meterID, map[string]interface{}{"isOccupied": true, "licensePlate": "REG001"}, "")
	expectStatus(t, rec, http.StatusOK, "")
	body := decode(t, rec)
	if body["isUser"] != true {
		t.Fatalf("expected isUser=true, got %v", body["isUser"])
	}
	session, _ := s.ledger.Get(context.Background(), body["parkingId"].(string))
	if session.PaymentID == nil || session.UserID == nil || *session.UserID != "user-1" {
		t.Fatalf("expected owner and default payment on session: %+v", session)
	}
}

func TestHealthVersionAndUnknownRoute(t *testing.T) {
	s := newTestServer(t)

	expectStatus(t, s.do(t, http.MethodGet, "/health", nil, ""), http.StatusOK, "")
	expectStatus(t, s.do(t, http.MethodGet, "/version", nil, ""), http.StatusOK, "1.2.3")
	expectStatus(t, s.do(t, http.MethodGet, "/nowhere", nil, ""), http.StatusNotFound, "Could not find this route")

	rec := s.do(t, http.MethodGet, "/health", nil, "")
	if rec.Header().Get("X-Request-ID") == "" {
		t.Fatalf("responses must carry a request id")
	}
}

func TestCarRegistry(t *testing.T) {
	s := newTestServer(t)
	token := s.token(t, "user-2")

	expectStatus(t, s.do(t, http.MethodGet, "/car/user-2", nil, token), http.StatusNotFound, "Not found")
	expectStatus(t, s.do(t, http.MethodPost, "/car/user-2", map[string]string{"licensePlate": "NEW001"}, ""), http.StatusUnauthorized, "Token missing or invalid")
	expectStatus(t, s.do(t, http.MethodPost, "/car/user-1", map[string]string{"licensePlate": "NEW001"}, token), http.StatusUnauthorized, "Token missing or invalid")
	expectStatus(t, s.do(t, http.MethodPost, "/car/user-2", map[string]string{"carName": "Van"}, token), http.StatusBadRequest, "Missing license plate")
	expectStatus(t, s.do(t, http.MethodPost, "/car/user-2", map[string]string{"licensePlate": "REG001"}, token), http.StatusUnprocessableEntity, "Car already exist")

	rec := s.do(t, http.MethodPost, "/car/user-2", map[string]string{"licensePlate": "new001"}, token)
	expectStatus(t, rec, http.StatusCreated, "")
	car := decode(t, rec)
	if car["licensePlate"] != "NEW001" || car["carName"] != "NEW001" || car["userId"] != "user-2" {
		t.Fatalf("unexpected car %v", car)
	}
	carID := car["id"].(string)

	rec = s.do(t, http.MethodGet, "/car/user-2", nil, token)
	expectStatus(t, rec, http.StatusOK, "")
	if cars, _ := decode(t, rec)["cars"].([]interface{}); len(cars) != 1 {
		t.Fatalf("expected one car, got %s", rec.Body.String())
	}

	rec = s.do(t, http.MethodPut, "/car/user-2/"+carID, map[string]string{"carName": "Van"}, token)
	expectStatus(t, rec, http.StatusOK, "")
	if decode(t, rec)["carName"] != "Van" {
		t.Fatalf("expected renamed car, got %s", rec.Body.String())
	}
	expectStatus(t, s.do(t, http.MethodPut, "/car/user-2/"+carID, map[string]string{}, token), http.StatusUnprocessableEntity, "Missing parameter")

	user1 := s.token(t, "user-1")
	expectStatus(t, s.do(t, http.MethodGet, "/car/user-1/"+carID, nil, user1), http.StatusNotFound, "Not found")
	expectStatus(t, s.do(t, http.MethodDelete, "/car/user-1/"+carID, nil, user1), http.StatusNotFound, "Not found or already deleted")

	meterID := s.addMeter(t, 5)
	rec = s.do(t, http.MethodPut, "/meter/"+meterID, map[string]interface{}{"isOccupied": true, "licensePlate": "NEW001"}, "")
	expectStatus(t, rec, http.StatusOK, "")
	if decode(t, rec)["isUser"] != true {
		t.Fatalf("registered car must be recognised, got %s", rec.Body.String())
	}

	expectStatus(t, s.do(t, http.MethodDelete, "/car/user-2/"+carID, nil, token), http.StatusOK, "Deleted car")
	expectStatus(t, s.do(t, http.MethodGet, "/car/user-2/"+carID, nil, token), http.StatusNotFound, "Not found")
}
