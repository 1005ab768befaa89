package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type staticValidator struct {
	token string
	id    primitive.ObjectID
}

func (v staticValidator) Validate(_ context.Context, token string) (primitive.ObjectID, bool, error) {
	if token == v.token {
		return v.id, true, nil
	}
	return primitive.NilObjectID, false, nil
}

func TestSessionTokenPrecedence(t *testing.T) {
	t.Run("authorization header wins", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/?token=from-query", nil)
		req.Header.Set("Authorization", "Bearer from-header")
		req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "from-cookie"})
		assert.Equal(t, "from-header", SessionToken(req))
	})

	t.Run("cookie before query", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/?token=from-query", nil)
		req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "from-cookie"})
		assert.Equal(t, "from-cookie", SessionToken(req))
	})

	t.Run("query as last resort", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/?token=from-query", nil)
		assert.Equal(t, "from-query", SessionToken(req))
	})

	t.Run("bearer scheme is case insensitive", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "bearer lower")
		assert.Equal(t, "lower", SessionToken(req))
	})

	t.Run("non-bearer scheme is ignored", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
		assert.Equal(t, "", SessionToken(req))
	})
}

func TestRequireSession(t *testing.T) {
	userID := primitive.NewObjectID()
	validator := staticValidator{token: "good-token", id: userID}

	var gotID primitive.ObjectID
	var gotOK bool
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID, gotOK = IdentityFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
	guarded := RequireSession(validator)(next)

	t.Run("valid token reaches the handler", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer good-token")
		rec := httptest.NewRecorder()

		guarded.ServeHTTP(rec, req)
		require.Equal(t, http.StatusNoContent, rec.Code)
		assert.True(t, gotOK)
		assert.Equal(t, userID, gotID)
	})

	t.Run("invalid token is rejected with the json envelope", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer bad-token")
		rec := httptest.NewRecorder()

		guarded.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.JSONEq(t, `{"success":false,"message":"Not authenticated"}`, rec.Body.String())
	})
}

func TestIdentityFromContextMissing(t *testing.T) {
	_, ok := IdentityFromContext(context.Background())
	assert.False(t, ok)
}
