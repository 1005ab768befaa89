package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/murmurapp/murmur-backend/internal/apperr"
)

// apiResponse is the JSON envelope every endpoint speaks: success flag plus
// a human-readable message, with operation-specific fields alongside.
type apiResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("response encode failed: %v", err)
	}
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, apiResponse{Success: true, Message: message})
}

// writeError maps the error's taxonomy kind to an HTTP status. A dependency
// error carrying an upstream status passes it through.
func writeError(w http.ResponseWriter, err error) {
	status := statusForKind(apperr.KindOf(err))
	if upstream := apperr.StatusOf(err); upstream != 0 {
		status = upstream
	}
	writeJSON(w, status, apiResponse{Success: false, Message: apperr.MessageOf(err)})
}

func statusForKind(kind apperr.Kind) int {
	switch kind {
	case apperr.Unauthenticated:
		return http.StatusUnauthorized
	case apperr.NotFound:
		return http.StatusNotFound
	case apperr.AlreadyExists, apperr.AlreadyVerified:
		return http.StatusConflict
	case apperr.NotVerified, apperr.NotAccepting:
		return http.StatusForbidden
	case apperr.CodeMismatch, apperr.CodeExpired, apperr.InvalidInput:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
