package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/murmurapp/murmur-backend/internal/handlers"
)

// Setup wires the endpoint surface. requireSession guards the owner-only
// routes; everything else is public.
func Setup(
	r *chi.Mux,
	auth *handlers.AuthHandler,
	messages *handlers.MessageHandler,
	suggest *handlers.SuggestHandler,
	inboxSocket *handlers.InboxSocketHandler,
	requireSession func(http.Handler) http.Handler,
) {
	// Auth routes
	r.Post("/api/auth/signup", auth.Signup)
	r.Post("/api/auth/verify-code", auth.VerifyCode)
	r.Get("/api/auth/check-username", auth.CheckUsername)
	r.Post("/api/auth/signin", auth.Signin)
	r.Post("/api/auth/signout", auth.Signout)
	r.With(requireSession).Get("/api/auth/me", auth.Me)

	// Public delivery and suggestions
	r.Post("/api/messages/send", messages.Send)
	r.Post("/api/suggest-messages", suggest.Suggest)

	// Owner-only inbox and acceptance gate
	r.Group(func(r chi.Router) {
		r.Use(requireSession)
		r.Get("/api/messages/accept", messages.GetAcceptance)
		r.Post("/api/messages/accept", messages.SetAcceptance)
		r.Get("/api/messages", messages.List)
		r.Delete("/api/messages/{messageID}", messages.Delete)
	})

	// WebSocket endpoint for live inbox events (authenticates inside the
	// handler so browser clients can pass the token as a query parameter)
	r.Get("/ws/inbox", inboxSocket.Serve)
}
