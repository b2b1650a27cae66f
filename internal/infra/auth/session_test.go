package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/LaithAlz/me-agent/internal/infra"
)

func newTestManager() *SessionManager {
	return NewSessionManager(infra.AuthConfig{
		JWTSecret:  "test-secret",
		TokenTTL:   time.Hour,
		CookieName: "meagent_user",
	}, zap.NewNop())
}

// identityProbe возвращает user id, который middleware положил в контекст.
func identityProbe(m *SessionManager) (http.Handler, *string) {
	var got string
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = UserID(r.Context())
	}))
	return h, &got
}

func TestMiddlewareIssueRoundtrip(t *testing.T) {
	m := newTestManager()

	rec := httptest.NewRecorder()
	require.NoError(t, m.Issue(rec, "user_abc123"))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.True(t, cookies[0].HttpOnly)

	h, got := identityProbe(m)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	h.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, "user_abc123", *got)
}

func TestMiddlewareDefaultsToDemo(t *testing.T) {
	m := newTestManager()

	h, got := identityProbe(m)
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, DefaultDemoUser, *got)
}

func TestMiddlewareLegacyRawCookie(t *testing.T) {
	m := newTestManager()

	h, got := identityProbe(m)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	// Старые куки хранили user id без подписи
	req.AddCookie(&http.Cookie{Name: "meagent_user", Value: "legacy-user-7"})
	h.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, "legacy-user-7", *got)
}

func TestMiddlewareRejectsForeignSignature(t *testing.T) {
	other := NewSessionManager(infra.AuthConfig{
		JWTSecret:  "different-secret",
		TokenTTL:   time.Hour,
		CookieName: "meagent_user",
	}, zap.NewNop())

	rec := httptest.NewRecorder()
	require.NoError(t, other.Issue(rec, "user_evil"))

	m := newTestManager()
	h, got := identityProbe(m)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(rec.Result().Cookies()[0])
	h.ServeHTTP(httptest.NewRecorder(), req)

	// Подпись не сошлась — значение трактуется как legacy raw id,
	// а не как подтвержденный subject
	assert.Equal(t, rec.Result().Cookies()[0].Value, *got)
}

func TestClearExpiresCookie(t *testing.T) {
	m := newTestManager()

	rec := httptest.NewRecorder()
	m.Clear(rec)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Empty(t, cookies[0].Value)
	assert.Negative(t, cookies[0].MaxAge)
}

func TestUserIDOutsideMiddleware(t *testing.T) {
	assert.Equal(t, DefaultDemoUser, UserID(httptest.NewRequest(http.MethodGet, "/", nil).Context()))
}
