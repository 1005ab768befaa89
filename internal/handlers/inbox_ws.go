package handlers

import (
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/murmurapp/murmur-backend/internal/middleware"
	"github.com/murmurapp/murmur-backend/internal/services"
)

var inboxUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// CORS is enforced at the HTTP layer already.
		return true
	},
}

// InboxSocketHandler holds a WebSocket open per signed-in owner and pushes
// message_received events as anonymous messages arrive.
type InboxSocketHandler struct {
	sessions middleware.SessionValidator
	notifier *services.InboxNotifier
}

func NewInboxSocketHandler(sessions middleware.SessionValidator, notifier *services.InboxNotifier) *InboxSocketHandler {
	return &InboxSocketHandler{sessions: sessions, notifier: notifier}
}

// Serve authenticates via the session token (Authorization header, cookie,
// or ?token= for browser WebSocket clients) and registers the connection.
func (h *InboxSocketHandler) Serve(w http.ResponseWriter, r *http.Request) {
	token := middleware.SessionToken(r)
	if token == "" {
		http.Error(w, "missing session token", http.StatusUnauthorized)
		return
	}

	userID, ok, err := h.sessions.Validate(r.Context(), token)
	if err != nil || !ok {
		http.Error(w, "invalid session token", http.StatusUnauthorized)
		return
	}

	conn, err := inboxUpgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("inbox websocket upgrade failed: %v", err)
		return
	}

	h.notifier.Register(userID, conn)
	defer func() {
		h.notifier.Unregister(userID, conn)
		conn.Close()
	}()

	// The socket is push-only; the read loop just detects disconnects and
	// discards client frames.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
