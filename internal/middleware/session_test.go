package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evenio/event-ticketing/internal/auth"
)

// fakeVerifier answers VerifySession from a fixed token -> session table.
type fakeVerifier struct {
	sessions map[string]auth.Session
	calls    int
}

func (f *fakeVerifier) VerifySession(_ context.Context, raw string) (auth.Session, error) {
	f.calls++
	sess, ok := f.sessions[raw]
	if !ok {
		return auth.Session{}, auth.ErrInvalidToken
	}
	return sess, nil
}

// runChain sends a request with the given cookie through RefreshSession and
// RequireSessionRole, reporting whether the inner handler ran.
func runChain(t *testing.T, v SessionVerifier, cookie string, roles ...string) (*httptest.ResponseRecorder, bool) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v1/events", nil)
	if cookie != "" {
		req.AddCookie(&http.Cookie{Name: "refresh_token", Value: cookie})
	}
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(req, rec)

	invoked := false
	handler := func(c echo.Context) error {
		invoked = true
		return c.NoContent(http.StatusOK)
	}
	chain := RefreshSession(v)(RequireSessionRole(roles...)(handler))
	require.NoError(t, chain(c))
	return rec, invoked
}

func TestRefreshSessionNoCookie(t *testing.T) {
	v := &fakeVerifier{}
	rec, invoked := runChain(t, v, "", "admin", "owner")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"success":false,"message":"No token"}`, rec.Body.String())
	// Rejected before any lookup or handler work happened.
	assert.Zero(t, v.calls)
	assert.False(t, invoked)
}

func TestRefreshSessionInvalidToken(t *testing.T) {
	v := &fakeVerifier{sessions: map[string]auth.Session{}}
	rec, invoked := runChain(t, v, "bogus", "admin", "owner")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"success":false,"message":"Invalid token"}`, rec.Body.String())
	assert.False(t, invoked)
}

func TestRequireSessionRoleForbidden(t *testing.T) {
	v := &fakeVerifier{sessions: map[string]auth.Session{
		"tok": {UserID: 3, Email: "c@example.com", Role: "customer"},
	}}
	rec, invoked := runChain(t, v, "tok", "admin", "owner")

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.JSONEq(t, `{"success":false,"message":"Forbidden"}`, rec.Body.String())
	assert.False(t, invoked)
}

func TestRefreshSessionAllowed(t *testing.T) {
	for _, role := range []string{"admin", "owner"} {
		v := &fakeVerifier{sessions: map[string]auth.Session{
			"tok": {UserID: 3, Email: "o@example.com", Role: role},
		}}
		rec, invoked := runChain(t, v, "tok", "admin", "owner")

		assert.Equal(t, http.StatusOK, rec.Code, "role %s", role)
		assert.True(t, invoked, "role %s", role)
	}
}

func TestCurrentSession(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	c := echo.New().NewContext(req, httptest.NewRecorder())

	_, ok := CurrentSession(c)
	assert.False(t, ok)

	want := auth.Session{UserID: 9, Email: "a@example.com", Role: "admin"}
	c.Set(sessionKey, want)
	got, ok := CurrentSession(c)
	assert.True(t, ok)
	assert.Equal(t, want, got)
}
