package router

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"

	"github.com/ignatzorin/quizzo-backend/internal/config"
	"github.com/ignatzorin/quizzo-backend/internal/http/handlers"
	"github.com/ignatzorin/quizzo-backend/internal/http/middleware"
	"github.com/ignatzorin/quizzo-backend/internal/http/response"
	"github.com/ignatzorin/quizzo-backend/internal/metrics"
	"github.com/ignatzorin/quizzo-backend/internal/service"
	"github.com/ignatzorin/quizzo-backend/internal/validation"
)

type okDB struct{}

func (okDB) PingContext(ctx context.Context) error { return nil }
func (okDB) Stats() sql.DBStats                    { return sql.DBStats{} }

func testConfig(t *testing.T) *config.Config {
	return &config.Config{
		Env:                  "development",
		MediaStoragePath:     t.TempDir(),
		AllowedOrigins:       []string{"*"},
		SlowRequestThreshold: time.Second,
		GeneralRateLimit:     config.RateLimit{Limit: 100, Period: 15 * time.Minute},
		AuthRateLimit:        config.RateLimit{Limit: 5, Period: 15 * time.Minute},
		OTPRateLimit:         config.RateLimit{Limit: 3, Period: 5 * time.Minute},
		UploadRateLimit:      config.RateLimit{Limit: 10, Period: 10 * time.Minute},
	}
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	return newTestRouterWithConfig(t, testConfig(t))
}

func newTestRouterWithConfig(t *testing.T, cfg *config.Config) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	validation.RegisterGinValidators()

	collector := metrics.New()
	store := memory.NewStoreWithOptions(limiter.StoreOptions{Prefix: "test"})
	tokens := service.NewTokenManager("access", "refresh", time.Hour, 2*time.Hour)

	// Запросы в тестах отсекаются валидацией, поэтому сервисы не нужны.
	return SetupRouter(
		cfg,
		collector,
		middleware.NewRateLimiter(store, collector),
		tokens,
		handlers.NewAuthHandler(nil),
		handlers.NewUploadHandler(nil, 5),
		handlers.NewHealthHandler(okDB{}, nil),
	)
}

func do(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRouter_AuthRateLimit(t *testing.T) {
	r := newTestRouter(t)

	for i := 0; i < 5; i++ {
		w := do(r, http.MethodPost, "/api/auth/login", `{}`)
		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "5", w.Header().Get("X-RateLimit-Limit"))
	}

	w := do(r, http.MethodPost, "/api/auth/login", `{}`)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	var body response.ErrorBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "Too many authentication attempts, please try again later.", body.Message)
	assert.Equal(t, "RATE_LIMITED", body.Code)

	// другой scope считает отдельно
	w = do(r, http.MethodPost, "/api/auth/check-phone-availability", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRouter_OTPRateLimitSharedAcrossRoutes(t *testing.T) {
	r := newTestRouter(t)

	do(r, http.MethodPost, "/api/auth/send-registration-otp", `{}`)
	do(r, http.MethodPost, "/api/auth/forgot-password", `{}`)
	do(r, http.MethodPost, "/api/auth/resend-otp", `{}`)

	w := do(r, http.MethodPost, "/api/auth/resend-otp", `{}`)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestRouter_MeRequiresToken(t *testing.T) {
	w := do(newTestRouter(t), http.MethodGet, "/api/auth/me", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRouter_NotFound(t *testing.T) {
	w := do(newTestRouter(t), http.MethodGet, "/api/quizzes", "")

	assert.Equal(t, http.StatusNotFound, w.Code)
	var body response.ErrorBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "Route /api/quizzes not found", body.Message)
	assert.Equal(t, "ROUTE_NOT_FOUND", body.Code)
}

func TestRouter_HealthMetricsAndHeaders(t *testing.T) {
	r := newTestRouter(t)

	w := do(r, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))

	w = do(r, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "http_requests_total")
}

func TestRouter_MediaServesFilesWithoutListing(t *testing.T) {
	cfg := testConfig(t)
	dir := filepath.Join(cfg.MediaStoragePath, "school-ids")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "1700000000000-abcdef0123456789.jpg"), []byte("jpeg"), 0o644))

	r := newTestRouterWithConfig(t, cfg)

	w := do(r, http.MethodGet, "/media/school-ids/", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.NotContains(t, w.Body.String(), "abcdef0123456789")

	w = do(r, http.MethodGet, "/media/school-ids/1700000000000-abcdef0123456789.jpg", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "jpeg", w.Body.String())
}
