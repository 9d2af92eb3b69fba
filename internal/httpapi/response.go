package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	authd "github.com/naviriti/authd"
)

// envelope is the wire contract of every response body.
type envelope map[string]any

func writeJSON(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		http.Error(w, `{"status":"error","message":"failed to encode response"}`, http.StatusInternalServerError)
	}
}

// writeSuccess writes the success envelope with optional extra fields.
func writeSuccess(w http.ResponseWriter, status int, message string, extra envelope) {
	body := envelope{
		"status":  "success",
		"message": message,
	}
	for k, v := range extra {
		body[k] = v
	}
	writeJSON(w, status, body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, envelope{
		"status":  "error",
		"message": message,
	})
}

// writeEngineError maps an engine error onto the wire contract. Backend
// failures all collapse to a generic 500 so store and mail details never
// reach clients.
func writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, authd.ErrMissingFields),
		errors.Is(err, authd.ErrInvalidOrExpiredOTP),
		errors.Is(err, authd.ErrNoPendingOTP),
		errors.Is(err, authd.ErrOTPMismatch),
		errors.Is(err, authd.ErrOTPExpired),
		errors.Is(err, authd.ErrPasswordPolicy):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, authd.ErrInvalidCredentials),
		errors.Is(err, authd.ErrTokenMissing),
		errors.Is(err, authd.ErrTokenInvalid),
		errors.Is(err, authd.ErrTokenRevoked),
		errors.Is(err, authd.ErrTokenPayload):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, authd.ErrEmailNotVerified):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, authd.ErrUserNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, authd.ErrPreverifiedDisabled):
		// Indistinguishable from an absent route.
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, authd.ErrEmailTaken):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, authd.ErrMailDelivery):
		writeError(w, http.StatusInternalServerError, authd.ErrMailDelivery.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
