package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/murmurapp/murmur-backend/internal/apperr"
	"github.com/murmurapp/murmur-backend/internal/handlers"
	"github.com/murmurapp/murmur-backend/internal/middleware"
	"github.com/murmurapp/murmur-backend/internal/models"
	"github.com/murmurapp/murmur-backend/internal/routes"
	"github.com/murmurapp/murmur-backend/internal/services"
	"github.com/murmurapp/murmur-backend/internal/store"
)

type fakeSessions struct {
	mu      sync.Mutex
	tokens  map[string]primitive.ObjectID
	counter int
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{tokens: make(map[string]primitive.ObjectID)}
}

func (s *fakeSessions) Create(_ context.Context, userID primitive.ObjectID) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counter++
	token := fmt.Sprintf("token-%d", s.counter)
	s.tokens[token] = userID
	return token, nil
}

func (s *fakeSessions) Invalidate(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, token)
	return nil
}

func (s *fakeSessions) Validate(_ context.Context, token string) (primitive.ObjectID, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.tokens[token]
	return id, ok, nil
}

type recordingMailer struct {
	mu    sync.Mutex
	codes map[string]string // username -> last code
	err   error
}

func (m *recordingMailer) SendVerificationCode(_, username, code string) error {
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.codes == nil {
		m.codes = make(map[string]string)
	}
	m.codes[username] = code
	return nil
}

func (m *recordingMailer) codeFor(username string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.codes[username]
}

type noopNotifier struct{}

func (noopNotifier) NotifyMessage(context.Context, primitive.ObjectID, models.Message) {}

type fakeSuggester struct {
	result *services.Suggestions
	err    error
}

func (s *fakeSuggester) Suggest(context.Context) (*services.Suggestions, error) {
	return s.result, s.err
}

type testAPI struct {
	router   *chi.Mux
	store    *store.Memory
	sessions *fakeSessions
	mailer   *recordingMailer
	suggest  *fakeSuggester
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	mem := store.NewMemory()
	mailer := &recordingMailer{}
	sessions := newFakeSessions()
	suggester := &fakeSuggester{}

	accounts := services.NewAccountService(mem, mailer)
	messaging := services.NewMessagingService(mem, noopNotifier{})

	authHandler := handlers.NewAuthHandler(accounts, sessions, mem, false)
	messageHandler := handlers.NewMessageHandler(messaging)
	suggestHandler := handlers.NewSuggestHandler(suggester)
	inboxSocket := handlers.NewInboxSocketHandler(sessions, services.NewInboxNotifier(nil))

	r := chi.NewRouter()
	routes.Setup(r, authHandler, messageHandler, suggestHandler, inboxSocket, middleware.RequireSession(sessions))

	return &testAPI{router: r, store: mem, sessions: sessions, mailer: mailer, suggest: suggester}
}

func (a *testAPI) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

// registerVerified drives signup and verification and returns a session token.
func (a *testAPI) registerVerified(t *testing.T, username, email, password string) string {
	t.Helper()

	rec := a.do(t, http.MethodPost, "/api/auth/signup", "", map[string]string{
		"username": username, "email": email, "password": password,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = a.do(t, http.MethodPost, "/api/auth/verify-code", "", map[string]string{
		"username": username, "code": a.mailer.codeFor(username),
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = a.do(t, http.MethodPost, "/api/auth/signin", "", map[string]string{
		"identifier": username, "password": password,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	token, _ := decodeBody(t, rec)["token"].(string)
	require.NotEmpty(t, token)
	return token
}

func TestSignupFlow(t *testing.T) {
	api := newTestAPI(t)

	t.Run("missing fields", func(t *testing.T) {
		rec := api.do(t, http.MethodPost, "/api/auth/signup", "", map[string]string{"username": "alice"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("registers and verifies", func(t *testing.T) {
		rec := api.do(t, http.MethodPost, "/api/auth/signup", "", map[string]string{
			"username": "alice", "email": "a@x.com", "password": "longenough",
		})
		require.Equal(t, http.StatusCreated, rec.Code)
		body := decodeBody(t, rec)
		assert.Equal(t, true, body["success"])

		code := api.mailer.codeFor("alice")
		require.NotEmpty(t, code)

		rec = api.do(t, http.MethodPost, "/api/auth/verify-code", "", map[string]string{
			"username": "alice", "code": "000000",
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		rec = api.do(t, http.MethodPost, "/api/auth/verify-code", "", map[string]string{
			"username": "alice", "code": code,
		})
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("verified name is taken", func(t *testing.T) {
		rec := api.do(t, http.MethodPost, "/api/auth/signup", "", map[string]string{
			"username": "alice", "email": "other@x.com", "password": "longenough",
		})
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("check-username reflects verification", func(t *testing.T) {
		rec := api.do(t, http.MethodGet, "/api/auth/check-username?username=alice", "", nil)
		assert.Equal(t, http.StatusConflict, rec.Code)

		rec = api.do(t, http.MethodGet, "/api/auth/check-username?username=brandnew", "", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestSigninAndSessions(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodPost, "/api/auth/signup", "", map[string]string{
		"username": "alice", "email": "a@x.com", "password": "longenough",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	t.Run("unverified account is rejected", func(t *testing.T) {
		rec := api.do(t, http.MethodPost, "/api/auth/signin", "", map[string]string{
			"identifier": "alice", "password": "longenough",
		})
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	rec = api.do(t, http.MethodPost, "/api/auth/verify-code", "", map[string]string{
		"username": "alice", "code": api.mailer.codeFor("alice"),
	})
	require.Equal(t, http.StatusOK, rec.Code)

	t.Run("wrong password", func(t *testing.T) {
		rec := api.do(t, http.MethodPost, "/api/auth/signin", "", map[string]string{
			"identifier": "alice", "password": "wrongpassword",
		})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	var token string
	t.Run("signin by email sets cookie and returns token", func(t *testing.T) {
		rec := api.do(t, http.MethodPost, "/api/auth/signin", "", map[string]string{
			"identifier": "a@x.com", "password": "longenough",
		})
		require.Equal(t, http.StatusOK, rec.Code)

		body := decodeBody(t, rec)
		token, _ = body["token"].(string)
		assert.NotEmpty(t, token)

		user, _ := body["user"].(map[string]interface{})
		require.NotNil(t, user)
		assert.Equal(t, "alice", user["username"])

		cookies := rec.Result().Cookies()
		require.NotEmpty(t, cookies)
		assert.Equal(t, middleware.SessionCookieName, cookies[0].Name)
		assert.Equal(t, token, cookies[0].Value)
		assert.True(t, cookies[0].HttpOnly)
	})

	t.Run("me returns the identity snapshot", func(t *testing.T) {
		rec := api.do(t, http.MethodGet, "/api/auth/me", token, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		user, _ := decodeBody(t, rec)["user"].(map[string]interface{})
		require.NotNil(t, user)
		assert.Equal(t, "alice", user["username"])
		assert.Equal(t, "a@x.com", user["email"])
	})

	t.Run("signout invalidates the token", func(t *testing.T) {
		rec := api.do(t, http.MethodPost, "/api/auth/signout", token, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		rec = api.do(t, http.MethodGet, "/api/auth/me", token, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestOwnerRoutesRequireSession(t *testing.T) {
	api := newTestAPI(t)

	paths := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/auth/me"},
		{http.MethodGet, "/api/messages"},
		{http.MethodGet, "/api/messages/accept"},
		{http.MethodPost, "/api/messages/accept"},
		{http.MethodDelete, "/api/messages/" + primitive.NewObjectID().Hex()},
	}
	for _, p := range paths {
		rec := api.do(t, p.method, p.path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, "%s %s", p.method, p.path)
	}
}

func TestMessageLifecycle(t *testing.T) {
	api := newTestAPI(t)
	token := api.registerVerified(t, "alice", "a@x.com", "longenough")

	t.Run("anonymous send needs no session", func(t *testing.T) {
		rec := api.do(t, http.MethodPost, "/api/messages/send", "", map[string]string{
			"username": "alice", "content": "you are doing great work",
		})
		assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	})

	t.Run("send to unknown recipient", func(t *testing.T) {
		rec := api.do(t, http.MethodPost, "/api/messages/send", "", map[string]string{
			"username": "nobody", "content": "you are doing great work",
		})
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("content length enforced", func(t *testing.T) {
		rec := api.do(t, http.MethodPost, "/api/messages/send", "", map[string]string{
			"username": "alice", "content": "short",
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	var messageID string
	t.Run("inbox lists the message", func(t *testing.T) {
		rec := api.do(t, http.MethodGet, "/api/messages", token, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		msgs, _ := decodeBody(t, rec)["messages"].([]interface{})
		require.Len(t, msgs, 1)
		first, _ := msgs[0].(map[string]interface{})
		messageID, _ = first["id"].(string)
		require.NotEmpty(t, messageID)
		assert.Equal(t, "you are doing great work", first["content"])
	})

	t.Run("acceptance toggle blocks delivery", func(t *testing.T) {
		rec := api.do(t, http.MethodPost, "/api/messages/accept", token, map[string]bool{"acceptMessages": false})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, false, decodeBody(t, rec)["isAcceptingMessages"])

		rec = api.do(t, http.MethodPost, "/api/messages/send", "", map[string]string{
			"username": "alice", "content": "this one bounces off the gate",
		})
		assert.Equal(t, http.StatusForbidden, rec.Code)

		rec = api.do(t, http.MethodGet, "/api/messages/accept", token, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, false, decodeBody(t, rec)["isAcceptingMessages"])
	})

	t.Run("acceptance flag must be a boolean", func(t *testing.T) {
		rec := api.do(t, http.MethodPost, "/api/messages/accept", token, map[string]string{"acceptMessages": "yes"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		rec = api.do(t, http.MethodPost, "/api/messages/accept", token, map[string]string{})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("delete is owner scoped", func(t *testing.T) {
		otherToken := api.registerVerified(t, "mallory", "m@x.com", "longenough")

		rec := api.do(t, http.MethodDelete, "/api/messages/"+messageID, otherToken, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)

		rec = api.do(t, http.MethodDelete, "/api/messages/"+messageID, token, nil)
		assert.Equal(t, http.StatusOK, rec.Code)

		rec = api.do(t, http.MethodDelete, "/api/messages/"+messageID, token, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestSuggestEndpoint(t *testing.T) {
	api := newTestAPI(t)

	t.Run("success", func(t *testing.T) {
		api.suggest.result = &services.Suggestions{
			Text:  "One?||Two?||Three?",
			Items: []string{"One?", "Two?", "Three?"},
		}
		api.suggest.err = nil

		rec := api.do(t, http.MethodPost, "/api/suggest-messages", "", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		body := decodeBody(t, rec)
		assert.Equal(t, "One?||Two?||Three?", body["text"])
		items, _ := body["suggestions"].([]interface{})
		assert.Len(t, items, 3)
	})

	t.Run("upstream status passes through", func(t *testing.T) {
		api.suggest.result = nil
		api.suggest.err = &apperr.Error{
			Kind:    apperr.DependencyFailure,
			Message: "AI service error: quota exceeded",
			Status:  http.StatusTooManyRequests,
		}

		rec := api.do(t, http.MethodPost, "/api/suggest-messages", "", nil)
		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		assert.Equal(t, false, decodeBody(t, rec)["success"])
	})

	t.Run("unreachable provider is a server error", func(t *testing.T) {
		api.suggest.result = nil
		api.suggest.err = apperr.E(apperr.DependencyFailure, "AI service unreachable")

		rec := api.do(t, http.MethodPost, "/api/suggest-messages", "", nil)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestInboxSocketRejectsAnonymous(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodGet, "/ws/inbox", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = api.do(t, http.MethodGet, "/ws/inbox?token=bogus", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
