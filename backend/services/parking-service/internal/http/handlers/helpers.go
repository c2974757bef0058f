package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"parkmeter/backend/services/parking-service/internal/http/middleware"
)

const (
	msgInvalidInputs = "Invalid inputs"
	msgUnauthorized  = "Token missing or invalid"
	maxBodyBytes     = 1 << 16
)

var platePattern = regexp.MustCompile(`^[A-Za-z0-9]{6,8}$`)

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("empty body")
		}
		return err
	}
	return nil
}

// pathID returns a uuid path variable, or false when it is missing or malformed.
func pathID(r *http.Request, name string) (string, bool) {
	id := strings.TrimSpace(mux.Vars(r)[name])
	if _, err := uuid.Parse(id); err != nil {
		return "", false
	}
	return id, true
}

func validPlate(plate string) bool {
	return platePattern.MatchString(strings.TrimSpace(plate))
}

// ownerFromPath checks that the {userId} segment belongs to the authenticated caller.
func ownerFromPath(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := strings.TrimSpace(mux.Vars(r)["userId"])
	authUser, ok := middleware.UserIDFromContext(r.Context())
	if !ok || userID == "" || authUser != userID {
		writeError(w, http.StatusUnauthorized, msgUnauthorized)
		return "", false
	}
	return userID, true
}

func logFailure(logger *zap.Logger, r *http.Request, msg string, err error) {
	logger.Error(msg,
		zap.String("request_id", middleware.RequestIDFromContext(r.Context())),
		zap.String("path", r.URL.Path),
		zap.Error(err),
	)
}

// numeric accepts a JSON number or a string of digits and keeps its literal text.
type numeric string

func (n *numeric) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*n = numeric(strings.TrimSpace(s))
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(b, &num); err != nil {
		return err
	}
	*n = numeric(num.String())
	return nil
}
