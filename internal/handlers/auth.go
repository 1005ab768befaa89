package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/murmurapp/murmur-backend/internal/apperr"
	"github.com/murmurapp/murmur-backend/internal/middleware"
	"github.com/murmurapp/murmur-backend/internal/services"
	"github.com/murmurapp/murmur-backend/internal/store"
)

// SessionManager is the slice of the session service the auth handlers use.
type SessionManager interface {
	Create(ctx context.Context, userID primitive.ObjectID) (string, error)
	Invalidate(ctx context.Context, token string) error
}

// AuthHandler serves registration, verification and session endpoints.
type AuthHandler struct {
	accounts   *services.AccountService
	sessions   SessionManager
	store      store.UserStore
	production bool
}

func NewAuthHandler(accounts *services.AccountService, sessions SessionManager, users store.UserStore, production bool) *AuthHandler {
	return &AuthHandler{accounts: accounts, sessions: sessions, store: users, production: production}
}

type signupRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Signup registers a new account and emails the verification code.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.E(apperr.InvalidInput, "Invalid request body"))
		return
	}
	if req.Username == "" || req.Email == "" || req.Password == "" {
		writeError(w, apperr.E(apperr.InvalidInput, "All fields are required"))
		return
	}

	if err := h.accounts.Register(r.Context(), req.Username, req.Email, req.Password); err != nil {
		writeError(w, err)
		return
	}

	writeMessage(w, http.StatusCreated, "User registered successfully. Please verify your email.")
}

type verifyCodeRequest struct {
	Username string `json:"username"`
	Code     string `json:"code"`
}

// VerifyCode validates the emailed verification code.
func (h *AuthHandler) VerifyCode(w http.ResponseWriter, r *http.Request) {
	var req verifyCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.E(apperr.InvalidInput, "Invalid request body"))
		return
	}

	if err := h.accounts.VerifyCode(r.Context(), req.Username, req.Code); err != nil {
		writeError(w, err)
		return
	}

	writeMessage(w, http.StatusOK, "Account verified successfully")
}

// CheckUsername reports availability of a username among verified accounts.
func (h *AuthHandler) CheckUsername(w http.ResponseWriter, r *http.Request) {
	username := r.URL.Query().Get("username")

	if err := h.accounts.CheckUsername(r.Context(), username); err != nil {
		writeError(w, err)
		return
	}

	writeMessage(w, http.StatusOK, "Username is unique and available")
}

type signinRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

type signinResponse struct {
	apiResponse
	Token string                 `json:"token"`
	User  map[string]interface{} `json:"user"`
}

// Signin authenticates by username or email and issues a session.
func (h *AuthHandler) Signin(w http.ResponseWriter, r *http.Request) {
	var req signinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.E(apperr.InvalidInput, "Invalid request body"))
		return
	}
	if req.Identifier == "" || req.Password == "" {
		writeError(w, apperr.E(apperr.InvalidInput, "Username or email and password are required"))
		return
	}

	user, err := h.accounts.Authenticate(r.Context(), req.Identifier, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	token, err := h.sessions.Create(r.Context(), user.ID)
	if err != nil {
		writeError(w, apperr.Wrap(apperr.PersistenceFailure, "Failed to create session", err))
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(services.SessionDuration),
		HttpOnly: true,
		Secure:   h.production,
		SameSite: http.SameSiteLaxMode,
	})

	writeJSON(w, http.StatusOK, signinResponse{
		apiResponse: apiResponse{Success: true, Message: "Login successful"},
		Token:       token,
		User: map[string]interface{}{
			"id":                    user.ID.Hex(),
			"username":              user.Username,
			"is_verified":           user.IsVerified,
			"is_accepting_messages": user.IsAcceptingMessages,
		},
	})
}

// Signout invalidates the current session.
func (h *AuthHandler) Signout(w http.ResponseWriter, r *http.Request) {
	token := middleware.SessionToken(r)
	if err := h.sessions.Invalidate(r.Context(), token); err != nil {
		writeError(w, apperr.Wrap(apperr.PersistenceFailure, "Failed to sign out", err))
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.production,
		SameSite: http.SameSiteLaxMode,
	})

	writeMessage(w, http.StatusOK, "Signed out")
}

type meResponse struct {
	apiResponse
	User map[string]interface{} `json:"user"`
}

// Me returns the authenticated identity snapshot.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, apperr.E(apperr.Unauthenticated, "Not authenticated"))
		return
	}

	user, err := h.store.FindByID(r.Context(), userID)
	if err != nil {
		writeError(w, apperr.E(apperr.NotFound, "User not found"))
		return
	}

	writeJSON(w, http.StatusOK, meResponse{
		apiResponse: apiResponse{Success: true},
		User: map[string]interface{}{
			"id":                    user.ID.Hex(),
			"username":              user.Username,
			"email":                 user.Email,
			"is_verified":           user.IsVerified,
			"is_accepting_messages": user.IsAcceptingMessages,
			"created_at":            user.CreatedAt,
		},
	})
}
