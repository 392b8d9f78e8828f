package telemetry

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func observeLogs(t *testing.T) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	prev := Logger
	Logger = zap.New(core)
	t.Cleanup(func() { Logger = prev })
	return logs
}

func newEngine() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(TracingMiddleware())
	r.GET("/ok", func(c *gin.Context) {
		c.String(http.StatusOK, RequestID(c))
	})
	r.GET("/missing", func(c *gin.Context) { c.Status(http.StatusNotFound) })
	r.GET("/boom", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })
	return r
}

func TestTracingMiddlewareRequestID(t *testing.T) {
	observeLogs(t)
	r := newEngine()

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))
	generated := w.Header().Get(RequestIDHeader)
	require.NotEmpty(t, generated)
	assert.Equal(t, generated, w.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/ok", nil)
	req.Header.Set(RequestIDHeader, "req-123")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "req-123", w.Header().Get(RequestIDHeader))
	assert.Equal(t, "req-123", w.Body.String())
}

func TestTracingMiddlewareLogLevelFollowsStatus(t *testing.T) {
	tests := []struct {
		path  string
		level zapcore.Level
		code  int
	}{
		{"/ok", zapcore.InfoLevel, http.StatusOK},
		{"/missing", zapcore.WarnLevel, http.StatusNotFound},
		{"/boom", zapcore.ErrorLevel, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			logs := observeLogs(t)
			r := newEngine()

			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			req.Header.Set(RequestIDHeader, "req-1")
			r.ServeHTTP(httptest.NewRecorder(), req)

			entries := logs.FilterMessage("HTTP request").All()
			require.Len(t, entries, 1)
			assert.Equal(t, tt.level, entries[0].Level)
			fields := entries[0].ContextMap()
			assert.Equal(t, int64(tt.code), fields["status"])
			assert.Equal(t, tt.path, fields["path"])
			assert.Equal(t, "req-1", fields["request_id"])
		})
	}
}

func TestNewLoggerRejectsUnknownLevel(t *testing.T) {
	_, err := newLogger(Options{ServiceName: "svc", LogLevel: "loud"})
	assert.Error(t, err)

	logger, err := newLogger(Options{ServiceName: "svc", LogLevel: "warn"})
	require.NoError(t, err)
	assert.Equal(t, zapcore.WarnLevel, logger.Level())
}
