package proxy

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/digimall/admin-gateway/internal/application/session"
	"github.com/digimall/admin-gateway/internal/domain/identity"
	"github.com/digimall/admin-gateway/internal/infrastructure/backend"
	"github.com/digimall/admin-gateway/internal/infrastructure/config"
	"github.com/digimall/admin-gateway/internal/infrastructure/logger"
	"github.com/digimall/admin-gateway/internal/interfaces/http/dto"
	"github.com/digimall/admin-gateway/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const cookieName = "digimall.session-token"

// outbound is what the fake backend saw
type outbound struct {
	Method   string
	Path     string
	RawQuery string
	Header   http.Header
	Body     []byte
}

// fakeBackend records every request and answers with respond
type fakeBackend struct {
	*httptest.Server
	mu       sync.Mutex
	requests []outbound
	hits     atomic.Int32
}

func newFakeBackend(t *testing.T, respond http.HandlerFunc) *fakeBackend {
	t.Helper()
	fb := &fakeBackend{}
	fb.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		fb.mu.Lock()
		fb.requests = append(fb.requests, outbound{
			Method:   r.Method,
			Path:     r.URL.Path,
			RawQuery: r.URL.RawQuery,
			Header:   r.Header.Clone(),
			Body:     body,
		})
		fb.mu.Unlock()
		fb.hits.Add(1)
		respond(w, r)
	}))
	t.Cleanup(fb.Close)
	return fb
}

func (fb *fakeBackend) last(t *testing.T) outbound {
	t.Helper()
	fb.mu.Lock()
	defer fb.mu.Unlock()
	require.NotEmpty(t, fb.requests, "backend was not called")
	return fb.requests[len(fb.requests)-1]
}

func jsonOK(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, body)
	}
}

type stubResolver struct {
	results map[string]*session.Result
}

func (r *stubResolver) Resolve(_ context.Context, token string) (*session.Result, error) {
	if res, ok := r.results[token]; ok {
		return res, nil
	}
	return nil, session.ErrSessionInvalid
}

func testSession(t *testing.T) *identity.Session {
	t.Helper()
	s, err := identity.NewSession(
		identity.StaffUser{ID: "staff-1", Email: "ops@digimall.test", Role: identity.RoleAdmin},
		identity.TokenPair{AccessToken: "backend-access", RefreshToken: "backend-refresh", ExpiresIn: 900},
		time.Now(),
		24*time.Hour,
	)
	require.NoError(t, err)
	return s
}

func newTestClient(baseURL string) *backend.Client {
	return backend.NewClient(config.BackendConfig{
		BaseURL:      baseURL,
		APIPrefix:    "/api/v1",
		Timeout:      5 * time.Second,
		ServiceName:  "admin-dashboard",
		ExemptPrefix: []string{"auth/", "staff/auth/login", "staff/auth/refresh-token", "setup/"},
	}, "1.2.3", zap.NewNop())
}

// gateway wires the proxy behind the same middleware the server uses
func gateway(t *testing.T, baseURL string, results map[string]*session.Result, opts ...Option) *gin.Engine {
	t.Helper()
	h := NewHandler(newTestClient(baseURL), zap.NewNop(), opts...)

	router := gin.New()
	router.Use(middleware.RequestID())
	router.Use(logger.GinMiddleware(zap.NewNop()))
	router.Use(middleware.SessionAuth(middleware.SessionAuthConfig{
		Sessions:    &stubResolver{results: results},
		Cookie:      &middleware.SessionCookie{Name: cookieName, Path: "/", SameSite: http.SameSiteLaxMode},
		AllowBearer: true,
	}))
	router.Any("/api/proxy/*path", h.Forward)
	return router
}

func decodeProxyError(t *testing.T, w *httptest.ResponseRecorder) dto.ProxyError {
	t.Helper()
	var body dto.ProxyError
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return body
}

func TestForward_SessionScenario(t *testing.T) {
	fb := newFakeBackend(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.Header().Set("X-Total-Count", "1")
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, `{"success":true,"data":[{"id":"staff-1"}]}`)
	})
	s := testSession(t)
	router := gateway(t, fb.URL, map[string]*session.Result{"valid": {Session: s, Token: "valid"}})

	req := httptest.NewRequest(http.MethodGet, "/api/proxy/staff", nil)
	req.AddCookie(&http.Cookie{Name: cookieName, Value: "valid"})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true,"data":[{"id":"staff-1"}]}`, w.Body.String())
	assert.Equal(t, "1", w.Header().Get("X-Total-Count"))
	assert.Equal(t, "application/json; charset=utf-8", w.Header().Get("Content-Type"))

	got := fb.last(t)
	assert.Equal(t, http.MethodGet, got.Method)
	assert.Equal(t, "/api/v1/staff", got.Path)
	assert.Equal(t, "Bearer backend-access", got.Header.Get("Authorization"))
	assert.Equal(t, "staff-1", got.Header.Get("x-user-id"))
	assert.Equal(t, "ops@digimall.test", got.Header.Get("x-user-email"))
	assert.Equal(t, identity.RoleAdmin, got.Header.Get("x-user-role"))
	assert.Equal(t, "admin-dashboard", got.Header.Get("x-service-name"))
	assert.Equal(t, "1.2.3", got.Header.Get("x-service-version"))
	assert.Equal(t, w.Header().Get(middleware.RequestIDHeader), got.Header.Get("x-request-id"))
	assert.Empty(t, got.Header.Get("Cookie"), "browser cookies stay at the gateway")
	assert.Empty(t, got.Header.Get("x-service-key"))
}

func TestForward_ExemptPathsNeedNoIdentity(t *testing.T) {
	fb := newFakeBackend(t, jsonOK(`{"success":true}`))
	router := gateway(t, fb.URL, nil)

	tests := []struct {
		method string
		path   string
		want   string
	}{
		{http.MethodGet, "/api/proxy/auth/providers", "/api/v1/auth/providers"},
		{http.MethodPost, "/api/proxy/staff/auth/login", "/api/v1/staff/auth/login"},
		{http.MethodPost, "/api/proxy/staff/auth/refresh-token", "/api/v1/staff/auth/refresh-token"},
		{http.MethodGet, "/api/proxy/setup/check", "/api/v1/setup/check"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(`{}`))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusOK, w.Code)
			got := fb.last(t)
			assert.Equal(t, tt.want, got.Path)
			assert.Empty(t, got.Header.Get("Authorization"))
			assert.Empty(t, got.Header.Get("x-user-id"))
		})
	}
}

func TestForward_UnauthorizedWithoutIdentity(t *testing.T) {
	fb := newFakeBackend(t, jsonOK(`{}`))
	router := gateway(t, fb.URL, nil)

	tests := []struct {
		name   string
		path   string
		cookie string
	}{
		{"no credentials", "/api/proxy/staff", ""},
		{"nested resource", "/api/proxy/orders/42/items", ""},
		{"prefix lookalike", "/api/proxy/authors", ""},
		{"login lookalike", "/api/proxy/staff/auth/login-history", ""},
		{"unknown session cookie", "/api/proxy/staff", "forged"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: cookieName, Value: tt.cookie})
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			require.Equal(t, http.StatusUnauthorized, w.Code)
			body := decodeProxyError(t, w)
			assert.False(t, body.Success)
			assert.Equal(t, "Unauthorized", body.Error)
			assert.Equal(t, "Authentication required", body.Message)
		})
	}
	assert.Zero(t, fb.hits.Load(), "rejected requests never reach the backend")
}

func TestForward_InvalidPath(t *testing.T) {
	fb := newFakeBackend(t, jsonOK(`{}`))
	router := gateway(t, fb.URL, nil)

	for _, path := range []string{
		"/api/proxy/",
		"/api/proxy/staff/../admin",
		"/api/proxy/http://evil.test/steal",
	} {
		t.Run(path, func(t *testing.T) {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))

			require.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, "Invalid path", decodeProxyError(t, w).Error)
		})
	}
	assert.Zero(t, fb.hits.Load())
}

func TestForward_QueryStringUnmodified(t *testing.T) {
	fb := newFakeBackend(t, jsonOK(`{}`))
	router := gateway(t, fb.URL, nil)

	raw := "filter=a%2Cb&sort=-createdAt&tags=x&tags=y&empty=&q=caf%C3%A9+latte"
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/proxy/setup/check?"+raw, nil))

	require.Equal(t, http.StatusOK, w.Code)
	got := fb.last(t)
	assert.Equal(t, "/api/v1/setup/check", got.Path)
	assert.Equal(t, raw, got.RawQuery)
}

func TestForward_BearerFallback(t *testing.T) {
	fb := newFakeBackend(t, jsonOK(`{}`))
	router := gateway(t, fb.URL, nil)

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   "staff-9",
		"email": "qa@digimall.test",
		"role":  "manager",
	}).SignedString([]byte("backend-secret"))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/proxy/products", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	got := fb.last(t)
	assert.Equal(t, "Bearer "+token, got.Header.Get("Authorization"))
	assert.Equal(t, "staff-9", got.Header.Get("x-user-id"))
	assert.Equal(t, "qa@digimall.test", got.Header.Get("x-user-email"))
	assert.Equal(t, "manager", got.Header.Get("x-user-role"))
}

func TestForward_RequestBodyAndHeaders(t *testing.T) {
	fb := newFakeBackend(t, jsonOK(`{"success":true}`))
	s := testSession(t)
	router := gateway(t, fb.URL, map[string]*session.Result{"valid": {Session: s, Token: "valid"}})

	var payload bytes.Buffer
	mw := multipart.NewWriter(&payload)
	part, err := mw.CreateFormFile("file", "logo.png")
	require.NoError(t, err)
	binary := []byte{0x89, 'P', 'N', 'G', 0x00, 0xff, 0x10, 0x00}
	_, err = part.Write(binary)
	require.NoError(t, err)
	require.NoError(t, mw.WriteField("folder", "brands"))
	require.NoError(t, mw.Close())
	sent := append([]byte(nil), payload.Bytes()...)

	req := httptest.NewRequest(http.MethodPost, "/api/proxy/products/7/images", &payload)
	req.Host = "admin.digimall.test"
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Accept-Language", "vi-VN")
	req.Header.Set("Accept-Encoding", "br")
	req.Header.Set("X-Custom-Trace", "keep-me")
	req.Header.Set("X-User-Id", "intruder")
	req.Header.Set("X-User-Role", "super_admin")
	req.Header.Set("X-Service-Key", "forged")
	req.Header.Set("X-Forwarded-For", "203.0.113.9")
	req.Header.Set("Connection", "X-Hop-Only")
	req.Header.Set("X-Hop-Only", "drop")
	req.Header.Set("Keep-Alive", "timeout=5")
	req.AddCookie(&http.Cookie{Name: cookieName, Value: "valid"})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	got := fb.last(t)
	assert.Equal(t, http.MethodPost, got.Method)
	assert.Equal(t, sent, got.Body, "multipart body is forwarded byte for byte")
	assert.Equal(t, mw.FormDataContentType(), got.Header.Get("Content-Type"))
	assert.Equal(t, "vi-VN", got.Header.Get("Accept-Language"))
	assert.Equal(t, "keep-me", got.Header.Get("X-Custom-Trace"))
	assert.NotContains(t, got.Header.Get("Accept-Encoding"), "br")
	assert.Equal(t, "staff-1", got.Header.Get("x-user-id"))
	assert.Equal(t, identity.RoleAdmin, got.Header.Get("x-user-role"))
	assert.Empty(t, got.Header.Get("X-Service-Key"))
	assert.Empty(t, got.Header.Get("X-Hop-Only"))
	assert.Empty(t, got.Header.Get("Keep-Alive"))
	assert.Equal(t, "203.0.113.9, 192.0.2.1", got.Header.Get("X-Forwarded-For"))
	assert.Equal(t, "http", got.Header.Get("X-Forwarded-Proto"))
	assert.Equal(t, "admin.digimall.test", got.Header.Get("X-Forwarded-Host"))
}

func TestForward_BinaryResponseIsByteExact(t *testing.T) {
	payload := make([]byte, 256<<10)
	for i := range payload {
		payload[i] = byte(i*31 + i/7)
	}

	for _, contentType := range []string{"image/png", "application/pdf", "application/octet-stream"} {
		t.Run(contentType, func(t *testing.T) {
			fb := newFakeBackend(t, func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", contentType)
				w.Header().Set("Content-Disposition", `attachment; filename="export.bin"`)
				w.WriteHeader(http.StatusOK)
				_, _ = w.Write(payload)
			})
			router := gateway(t, fb.URL, nil)

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/proxy/setup/export", nil))

			require.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, len(payload), w.Body.Len())
			assert.True(t, bytes.Equal(payload, w.Body.Bytes()))
			assert.Equal(t, contentType, w.Header().Get("Content-Type"))
			assert.Equal(t, `attachment; filename="export.bin"`, w.Header().Get("Content-Disposition"))
			assert.Empty(t, w.Header().Get("Content-Length"))
		})
	}
}

func TestForward_HopHeadersNeverRelayed(t *testing.T) {
	fb := newFakeBackend(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Keep-Alive", "timeout=5")
		w.Header().Set("Proxy-Authenticate", "Basic")
		w.Header().Set("Set-Cookie", "backend_session=1; Path=/")
		w.Header().Set("X-Request-Cost", "3")

		body := []byte(`{"success":true,"data":{"items":[]}}`)
		if strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") {
			var buf bytes.Buffer
			gz := gzip.NewWriter(&buf)
			_, _ = gz.Write(body)
			_ = gz.Close()
			body = buf.Bytes()
			w.Header().Set("Content-Encoding", "gzip")
		}
		w.WriteHeader(http.StatusOK)
		// Flushing mid-body forces a chunked response
		_, _ = w.Write(body[:len(body)/2])
		w.(http.Flusher).Flush()
		_, _ = w.Write(body[len(body)/2:])
	})
	router := gateway(t, fb.URL, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/proxy/setup/check", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true,"data":{"items":[]}}`, w.Body.String())
	for _, name := range []string{
		"Content-Encoding", "Content-Length", "Transfer-Encoding", "Connection",
		"Keep-Alive", "Proxy-Authenticate", "Te", "Trailer", "Upgrade", "Set-Cookie",
	} {
		assert.Empty(t, w.Header().Values(name), name)
	}
	assert.Equal(t, "3", w.Header().Get("X-Request-Cost"))
}

func TestForward_RefreshedSessionCookieReplacesBackendCookies(t *testing.T) {
	fb := newFakeBackend(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Set-Cookie", "backend_session=1; Path=/")
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{}`)
	})
	s := testSession(t)
	router := gateway(t, fb.URL, map[string]*session.Result{
		"stale": {Session: s, Token: "rotated", Refreshed: true},
	})

	req := httptest.NewRequest(http.MethodGet, "/api/proxy/orders", nil)
	req.AddCookie(&http.Cookie{Name: cookieName, Value: "stale"})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, cookieName, cookies[0].Name)
	assert.Equal(t, "rotated", cookies[0].Value)
}

func TestForward_BackendErrorsRelayedVerbatim(t *testing.T) {
	fb := newFakeBackend(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = io.WriteString(w, `{"success":false,"error":{"code":"VALIDATION_ERROR","message":"name is required"}}`)
	})
	router := gateway(t, fb.URL, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/proxy/setup/super-admin", strings.NewReader(`{}`))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.JSONEq(t, `{"success":false,"error":{"code":"VALIDATION_ERROR","message":"name is required"}}`, w.Body.String())
}

func TestForward_Timeout(t *testing.T) {
	t.Run("no response headers in time", func(t *testing.T) {
		fb := newFakeBackend(t, func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
		})
		router := gateway(t, fb.URL, nil, WithTimeout(50*time.Millisecond))

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/proxy/setup/check", nil))

		require.Equal(t, http.StatusGatewayTimeout, w.Code)
		body := decodeProxyError(t, w)
		assert.False(t, body.Success)
		assert.Equal(t, "Request timeout", body.Error)
		assert.NotEmpty(t, body.Message)
	})

	t.Run("text body stalls after headers", func(t *testing.T) {
		fb := newFakeBackend(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_, _ = io.WriteString(w, `{"success":true,`)
			w.(http.Flusher).Flush()
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
		})
		router := gateway(t, fb.URL, nil, WithTimeout(100*time.Millisecond))

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/proxy/setup/check", nil))

		require.Equal(t, http.StatusGatewayTimeout, w.Code)
		assert.Equal(t, "Request timeout", decodeProxyError(t, w).Error)
	})
}

func TestForward_BackendUnavailable(t *testing.T) {
	down := httptest.NewServer(http.NotFoundHandler())
	baseURL := down.URL
	down.Close()

	router := gateway(t, baseURL, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/proxy/setup/check", nil))

	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	body := decodeProxyError(t, w)
	assert.Equal(t, "Service unavailable", body.Error)
}

func TestForward_EscapesDecodedPathCharacters(t *testing.T) {
	fb := newFakeBackend(t, jsonOK(`{}`))
	router := gateway(t, fb.URL, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/proxy/setup/a%3Fb?x=1", nil))

	require.Equal(t, http.StatusOK, w.Code)
	got := fb.last(t)
	assert.Equal(t, "/api/v1/setup/a?b", got.Path)
	assert.Equal(t, "x=1", got.RawQuery)
}

func TestNewHandler_Defaults(t *testing.T) {
	h := NewHandler(backend.NewClient(config.BackendConfig{BaseURL: "http://backend"}, "dev", nil), nil)
	assert.Equal(t, DefaultTimeout, h.Timeout())

	h = NewHandler(newTestClient("http://backend"), nil, WithTimeout(time.Second), WithExemptPrefixes("public/"))
	assert.Equal(t, time.Second, h.Timeout())
	assert.Equal(t, []string{"public/"}, h.exemptPrefixes)
	assert.Equal(t, DefaultBufferLimit, h.bufferLimit)

	h = NewHandler(newTestClient("http://backend"), nil, WithBufferLimit(1024))
	assert.Equal(t, int64(1024), h.bufferLimit)
}

func TestForward_GatewayHeadersAreNotDuplicated(t *testing.T) {
	const origin = "https://admin.digimall.test"
	fb := newFakeBackend(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", r.Header.Get("Origin"))
		w.Header().Set("Access-Control-Allow-Credentials", "true")
		w.Header().Set("X-Request-ID", "backend-generated")
		w.Header().Set("X-Frame-Options", "SAMEORIGIN")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, `{"success":true}`)
	})

	cors := middleware.DefaultCORSConfig()
	cors.AllowOrigins = []string{origin}
	h := NewHandler(newTestClient(fb.URL), zap.NewNop())
	router := gin.New()
	router.Use(middleware.RequestID())
	router.Use(logger.GinMiddleware(zap.NewNop()))
	router.Use(middleware.SecureWithConfig(middleware.DefaultSecurityConfig()))
	router.Use(middleware.CORSWithConfig(cors))
	router.Any("/api/proxy/*path", h.Forward)

	req := httptest.NewRequest(http.MethodGet, "/api/proxy/setup/check", nil)
	req.Header.Set("Origin", origin)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, origin, fb.last(t).Header.Get("Origin"), "Origin still reaches the backend")
	assert.Equal(t, []string{origin}, w.Header().Values("Access-Control-Allow-Origin"))
	assert.Equal(t, []string{"true"}, w.Header().Values("Access-Control-Allow-Credentials"))

	requestIDs := w.Header().Values(middleware.RequestIDHeader)
	require.Len(t, requestIDs, 1)
	assert.NotEqual(t, "backend-generated", requestIDs[0])
	assert.Equal(t, fb.last(t).Header.Get("x-request-id"), requestIDs[0])

	assert.Equal(t, []string{"SAMEORIGIN"}, w.Header().Values("X-Frame-Options"), "backend replaces middleware defaults")
}

func TestForward_ProxyError(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func(conn net.Conn) {
				defer conn.Close()
				_, _ = bufio.NewReader(conn).ReadString('\n')
				_, _ = io.WriteString(conn, "NOT-HTTP garbage\r\n\r\n")
			}(conn)
		}
	}()

	router := gateway(t, "http://"+ln.Addr().String(), nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/proxy/setup/check", nil))

	require.Equal(t, http.StatusInternalServerError, w.Code)
	body := decodeProxyError(t, w)
	assert.Equal(t, dto.ProxyErrInternal, body.Error)
	assert.Equal(t, "Proxy error", body.Error)
	assert.NotEmpty(t, body.Message)
}

func TestForward_TextBeyondBufferLimitIsStreamed(t *testing.T) {
	export := strings.Repeat("order-1,shipped\n", 64)
	fb := newFakeBackend(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/csv")
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, export)
	})
	router := gateway(t, fb.URL, nil, WithBufferLimit(32))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/proxy/setup/export", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, export, w.Body.String())
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
}
