package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/digimall/admin-gateway/internal/domain/identity"
	"github.com/digimall/admin-gateway/internal/infrastructure/backend"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func diagnosticRouter(prober BackendProber, s *identity.Session) *gin.Engine {
	h := NewDiagnosticHandler(prober, 2*time.Second)
	router := gin.New()
	router.Use(withSession(s))
	router.GET("/api/test-proxy", h.TestProxy)
	return router
}

func TestDiagnosticHandler_TestProxy(t *testing.T) {
	t.Run("reachable backend with session", func(t *testing.T) {
		prober := new(MockBackendProber)
		prober.On("Health", mock.Anything, 2*time.Second).Return(backend.HealthResult{
			URL:        "http://backend:8080/health",
			Reachable:  true,
			StatusCode: http.StatusOK,
			LatencyMS:  12,
		})

		w := httptest.NewRecorder()
		diagnosticRouter(prober, testSession(t)).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/test-proxy", nil))

		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"success":true,"data":{
			"backendUrl":"http://backend:8080/health",
			"reachable":true,
			"statusCode":200,
			"latencyMs":12,
			"hasSession":true,
			"authSource":"session"
		}}`, w.Body.String())
		prober.AssertExpectations(t)
	})

	t.Run("unreachable backend is reported, not failed", func(t *testing.T) {
		prober := new(MockBackendProber)
		prober.On("Health", mock.Anything, mock.Anything).Return(backend.HealthResult{
			URL:   "http://backend:8080/health",
			Error: "backend: service unavailable: dial tcp: connection refused",
		})

		w := httptest.NewRecorder()
		diagnosticRouter(prober, nil).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/test-proxy", nil))

		require.Equal(t, http.StatusOK, w.Code)
		data := decodeResponse(t, w).Data.(map[string]any)
		assert.Equal(t, false, data["reachable"])
		assert.Equal(t, false, data["hasSession"])
		assert.Equal(t, "none", data["authSource"])
		assert.Contains(t, data["error"], "connection refused")
	})
}

func TestNewDiagnosticHandler_DefaultTimeout(t *testing.T) {
	h := NewDiagnosticHandler(new(MockBackendProber), 0)
	assert.Equal(t, DefaultProbeTimeout, h.timeout)
}
