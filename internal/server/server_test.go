package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"concertlog/api/internal/config"
	"concertlog/api/internal/handlers"
	"concertlog/api/internal/repository/memstore"
)

type silentNotifier struct{}

func (silentNotifier) Welcome(string, string)      {}
func (silentNotifier) Cancellation(string, string) {}

func newTestServer(t *testing.T) *HTTPServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := &config.AppConfig{
		Environment: "test",
		HTTP:        config.HTTPConfig{Host: "127.0.0.1", Port: 0},
		Security:    config.SecurityConfig{JWTSecret: "test-secret", BcryptCost: 4},
		Avatar:      config.AvatarConfig{MaxBytes: 1_000_000, Size: 250},
	}
	store := memstore.New()
	hs := handlers.NewHandlerSet(zerolog.Nop(), cfg, handlers.Dependencies{
		Users:    store.Users(),
		Concerts: store.Concerts(),
		Notifier: silentNotifier{},
	})
	return NewHTTPServer(cfg, zerolog.Nop(), hs)
}

func TestHTTPServer_RoutesAtRoot(t *testing.T) {
	srv := newTestServer(t)

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-Id"))

	w = httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/users/me", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestHTTPServer_CountsRequests(t *testing.T) {
	srv := newTestServer(t)

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/concerts", nil))
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), `concertlog_http_requests_total{method="GET",route="/concerts",status="401"}`))
}
