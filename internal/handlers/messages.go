package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/murmurapp/murmur-backend/internal/apperr"
	"github.com/murmurapp/murmur-backend/internal/middleware"
	"github.com/murmurapp/murmur-backend/internal/models"
	"github.com/murmurapp/murmur-backend/internal/services"
)

// MessageHandler serves the public delivery endpoint and the owner-only
// inbox and acceptance-gate endpoints.
type MessageHandler struct {
	messaging *services.MessagingService
}

func NewMessageHandler(messaging *services.MessagingService) *MessageHandler {
	return &MessageHandler{messaging: messaging}
}

type sendMessageRequest struct {
	Username string `json:"username"`
	Content  string `json:"content"`
}

// Send delivers an anonymous message to a recipient. No authentication.
func (h *MessageHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.E(apperr.InvalidInput, "Invalid request body"))
		return
	}

	if err := h.messaging.Deliver(r.Context(), req.Username, req.Content); err != nil {
		writeError(w, err)
		return
	}

	writeMessage(w, http.StatusOK, "Message sent successfully")
}

type acceptanceResponse struct {
	apiResponse
	IsAcceptingMessages bool `json:"isAcceptingMessages"`
}

// GetAcceptance returns the owner's acceptance flag.
func (h *MessageHandler) GetAcceptance(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, apperr.E(apperr.Unauthenticated, "Not authenticated"))
		return
	}

	accepting, err := h.messaging.AcceptanceStatus(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, acceptanceResponse{
		apiResponse:         apiResponse{Success: true},
		IsAcceptingMessages: accepting,
	})
}

type setAcceptanceRequest struct {
	// Pointer so a missing or non-boolean value is rejected instead of
	// silently defaulting to false.
	AcceptMessages *bool `json:"acceptMessages"`
}

// SetAcceptance updates the owner's acceptance flag.
func (h *MessageHandler) SetAcceptance(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, apperr.E(apperr.Unauthenticated, "Not authenticated"))
		return
	}

	var req setAcceptanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.AcceptMessages == nil {
		writeError(w, apperr.E(apperr.InvalidInput, "Invalid input for acceptMessages. Must be a boolean."))
		return
	}

	stored, err := h.messaging.SetAcceptance(r.Context(), userID, *req.AcceptMessages)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, acceptanceResponse{
		apiResponse:         apiResponse{Success: true, Message: "Message acceptance status updated successfully"},
		IsAcceptingMessages: stored,
	})
}

type inboxResponse struct {
	apiResponse
	Messages []models.Message `json:"messages"`
}

// List returns the owner's messages newest-first.
func (h *MessageHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, apperr.E(apperr.Unauthenticated, "Not authenticated"))
		return
	}

	msgs, err := h.messaging.Inbox(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, inboxResponse{
		apiResponse: apiResponse{Success: true, Message: "Messages retrieved successfully"},
		Messages:    msgs,
	})
}

// Delete removes one of the owner's messages by id.
func (h *MessageHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, apperr.E(apperr.Unauthenticated, "Not authenticated"))
		return
	}

	messageID := chi.URLParam(r, "messageID")
	if err := h.messaging.DeleteMessage(r.Context(), userID, messageID); err != nil {
		writeError(w, err)
		return
	}

	writeMessage(w, http.StatusOK, "Message deleted successfully")
}
