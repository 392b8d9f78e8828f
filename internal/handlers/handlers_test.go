package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akylbek/ar-system/discrepancy-service/internal/apperror"
	"github.com/akylbek/ar-system/discrepancy-service/internal/config"
	"github.com/akylbek/ar-system/discrepancy-service/internal/ingest"
	"github.com/akylbek/ar-system/discrepancy-service/internal/interfaces/mocks"
	"github.com/akylbek/ar-system/discrepancy-service/internal/models"
	"github.com/akylbek/ar-system/discrepancy-service/internal/scoring"
	"github.com/akylbek/ar-system/discrepancy-service/internal/service"
	"github.com/akylbek/ar-system/discrepancy-service/internal/spreadsheet"
)

func init() {
	gin.SetMode(gin.TestMode)
	RegisterValidators()
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func withActor(actor models.Actor) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(actorKey, actor)
		c.Next()
	}
}

func TestErrorHandlerEnvelope(t *testing.T) {
	r := gin.New()
	r.Use(ErrorHandler())
	r.GET("/app", func(c *gin.Context) { fail(c, apperror.Conflict("VERSION_CONFLICT", "stale")) })
	r.GET("/repo", func(c *gin.Context) { fail(c, apperror.ErrNotFound) })
	r.GET("/boom", func(c *gin.Context) { fail(c, errors.New("pq: connection refused")) })

	tests := []struct {
		path    string
		status  int
		code    string
		message string
	}{
		{"/app", http.StatusConflict, "VERSION_CONFLICT", "stale"},
		{"/repo", http.StatusNotFound, "NOT_FOUND", "Resource not found"},
		{"/boom", http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))

			assert.Equal(t, tt.status, w.Code)
			env := decode(t, w)
			assert.False(t, env.Success)
			assert.Equal(t, tt.code, env.Code)
			assert.Equal(t, tt.message, env.Error)
			assert.NotContains(t, w.Body.String(), "connection refused")
		})
	}
}

func TestAuthenticateAndAuthorize(t *testing.T) {
	users := mocks.NewMockUserRepository(gomock.NewController(t))
	auth := service.NewAuthService(users, "secret", time.Hour)

	r := gin.New()
	r.Use(ErrorHandler())
	g := r.Group("", Authenticate(auth))
	g.GET("/me", func(c *gin.Context) { ok(c, actorFrom(c).UserID) })
	g.DELETE("/thing", Authorize(models.RoleAdmin), func(c *gin.Context) { okMessage(c, "gone") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	users.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)
	_, token, err := auth.Register(context.Background(), service.RegisterInput{Email: "u@example.test", Password: "password1"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	req = httptest.NewRequest(http.MethodDelete, "/thing", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "FORBIDDEN", decode(t, w).Code)
}

func TestCreateDiscrepancyValidation(t *testing.T) {
	h := NewDiscrepancyHandler(nil)
	r := gin.New()
	r.Use(ErrorHandler(), withActor(models.Actor{UserID: "u", Role: models.RoleUser}))
	r.POST("/discrepancies", h.Create)

	tests := []struct {
		name string
		body string
		code string
	}{
		{"malformed json", `{"type":`, "INVALID_REQUEST"},
		{"unknown type", `{"type":"REFUND","customerId":"c"}`, "VALIDATION_ERROR"},
		{"bad priority", `{"type":"UNPAID","customerId":"c","priority":"SOON"}`, "VALIDATION_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/discrepancies", strings.NewReader(tt.body)))

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, tt.code, decode(t, w).Code)
		})
	}
}

func TestListDiscrepanciesRejectsBadFilter(t *testing.T) {
	h := NewDiscrepancyHandler(nil)
	r := gin.New()
	r.Use(ErrorHandler())
	r.GET("/discrepancies", h.List)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/discrepancies?limit=500", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	env := decode(t, w)
	assert.Equal(t, "VALIDATION_ERROR", env.Code)
	assert.Equal(t, map[string]interface{}{"Limit": "max"}, env.Details)
}

func multipartBody(t *testing.T, filename, contentType string, content []byte, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if filename != "" {
		header := make(map[string][]string)
		header["Content-Disposition"] = []string{`form-data; name="file"; filename="` + filename + `"`}
		header["Content-Type"] = []string{contentType}
		part, err := mw.CreatePart(header)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func importRouter(t *testing.T, maxBytes int64) *gin.Engine {
	h := config.DefaultHeuristics()
	svc := service.NewImportService(
		spreadsheet.NewResolver(h),
		ingest.NewNormalizer(h),
		scoring.DefaultCalculator(),
		mocks.NewMockDiscrepancyRepository(gomock.NewController(t)),
		nil, nil, nil, nil,
	)
	handler := NewImportHandler(svc, maxBytes)

	r := gin.New()
	r.Use(ErrorHandler(), withActor(models.Actor{UserID: "u", Role: models.RoleUser}))
	r.POST("/analyze", handler.Analyze)
	r.POST("/import", handler.Import)
	r.POST("/validate", handler.Validate)
	return r
}

func TestAnalyzeUpload(t *testing.T) {
	r := importRouter(t, 1<<20)
	csv := "Category,Customer Name,Amount,Email,Due Date,Notes\n" +
		"unpaid,Acme Trading Ltd,5000,ap@acme.test,2024-03-01,late\n"

	body, ct := multipartBody(t, "ar.csv", "text/csv", []byte(csv), map[string]string{"mode": "strict"})
	req := httptest.NewRequest(http.MethodPost, "/analyze", body)
	req.Header.Set("Content-Type", ct)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp struct {
		Success bool                  `json:"success"`
		Data    models.AnalysisResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, 1, resp.Data.ValidRows)
	assert.Contains(t, resp.Data.RequiredColumns, "email")
}

func TestUploadErrors(t *testing.T) {
	tests := []struct {
		name     string
		maxBytes int64
		filename string
		ctype    string
		content  []byte
		fields   map[string]string
		status   int
		code     string
	}{
		{"missing file", 1 << 20, "", "", nil, nil, http.StatusBadRequest, "FILE_REQUIRED"},
		{"wrong type", 1 << 20, "ar.pdf", "application/pdf", []byte("%PDF"), nil, http.StatusBadRequest, "UNSUPPORTED_FILE"},
		{"bad mode", 1 << 20, "ar.csv", "text/csv", []byte("a,b\n"), map[string]string{"mode": "lenient"}, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"too large", 64, "ar.csv", "text/csv", bytes.Repeat([]byte("x"), 4096), nil, http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := importRouter(t, tt.maxBytes)
			body, ct := multipartBody(t, tt.filename, tt.ctype, tt.content, tt.fields)
			req := httptest.NewRequest(http.MethodPost, "/analyze", body)
			req.Header.Set("Content-Type", ct)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.code, decode(t, w).Code)
		})
	}
}

func TestImportRejectsBadOptions(t *testing.T) {
	r := importRouter(t, 1<<20)
	body, ct := multipartBody(t, "ar.csv", "text/csv", []byte("a,b\n"), map[string]string{"options": "{not json"})
	req := httptest.NewRequest(http.MethodPost, "/import", body)
	req.Header.Set("Content-Type", ct)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_OPTIONS", decode(t, w).Code)
}

func TestValidateEndpoint(t *testing.T) {
	r := importRouter(t, 1<<20)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/validate", strings.NewReader(`{"rows":[]}`)))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/validate", strings.NewReader(
		`{"rows":[{"Category":"unpaid","Customer Name":"Acme Trading Ltd","Amount":5000}],"mode":"flexible"}`)))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"validRows":1`)
}
