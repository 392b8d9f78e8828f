package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"

	"github.com/akylbek/ar-system/discrepancy-service/internal/interfaces/mocks"
	"github.com/akylbek/ar-system/discrepancy-service/internal/service"
)

func testRouter(t *testing.T) http.Handler {
	users := mocks.NewMockUserRepository(gomock.NewController(t))
	return NewRouter(Services{
		Auth: service.NewAuthService(users, "secret", time.Hour),
	}, Options{MaxUploadBytes: 1 << 20})
}

func TestHealthAndMetrics(t *testing.T) {
	r := testRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_goroutines")
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	r := testRouter(t)

	for _, route := range []struct{ method, path string }{
		{http.MethodGet, "/api/discrepancies"},
		{http.MethodPost, "/api/data-import/excel/import"},
		{http.MethodPost, "/api/import/execute"},
		{http.MethodGet, "/api/dashboard/stats"},
		{http.MethodDelete, "/api/customers/abc"},
	} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(route.method, route.path, nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code, route.path)
	}
}
