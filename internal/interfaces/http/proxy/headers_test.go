package proxy

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsBinaryContentType(t *testing.T) {
	tests := []struct {
		contentType string
		want        bool
	}{
		{"image/png", true},
		{"image/svg+xml", true},
		{"audio/mpeg", true},
		{"video/mp4", true},
		{"font/woff2", true},
		{"application/pdf", true},
		{"APPLICATION/PDF", true},
		{"application/octet-stream", true},
		{"application/zip", true},
		{"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", true},
		{"application/vnd.ms-excel", true},
		{"application/msword", true},
		{"application/pdf; name=\"invoice.pdf\"", true},
		{"application/json", false},
		{"application/json; charset=utf-8", false},
		{"text/csv", false},
		{"text/html; charset=utf-8", false},
		{"", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsBinaryContentType(tt.contentType), tt.contentType)
	}
}

func TestCopyRequestHeaders(t *testing.T) {
	src := http.Header{}
	src.Set("Content-Type", "application/json")
	src.Set("Content-Encoding", "gzip")
	src.Set("Content-Length", "12")
	src.Set("Accept", "application/json")
	src.Set("Host", "admin.digimall.test")
	src.Set("Cookie", "digimall.session-token=abc")
	src.Set("Authorization", "Bearer client")
	src.Set("Accept-Encoding", "gzip, br")
	src.Set("Connection", "keep-alive, X-Debug")
	src.Set("X-Debug", "1")
	src.Set("Te", "trailers")
	src.Set("Upgrade", "websocket")
	src.Set("Proxy-Authorization", "Basic Zm9v")
	src.Set("X-User-Email", "forged@digimall.test")
	src.Set("X-Service-Name", "forged")
	src.Set("Forwarded", "for=198.51.100.1")
	src.Set("X-Setup-Token", "bootstrap")
	src.Add("X-Tag", "a")
	src.Add("X-Tag", "b")

	dst := http.Header{}
	copyRequestHeaders(dst, src)

	assert.Equal(t, "application/json", dst.Get("Content-Type"))
	assert.Equal(t, "gzip", dst.Get("Content-Encoding"), "request body encoding travels with the body")
	assert.Equal(t, "application/json", dst.Get("Accept"))
	assert.Equal(t, "bootstrap", dst.Get("X-Setup-Token"))
	assert.Equal(t, []string{"a", "b"}, dst.Values("X-Tag"))
	for _, name := range []string{
		"Content-Length", "Host", "Cookie", "Authorization", "Accept-Encoding", "Connection",
		"X-Debug", "Te", "Upgrade", "Proxy-Authorization", "X-User-Email", "X-Service-Name", "Forwarded",
	} {
		assert.Empty(t, dst.Values(name), name)
	}
}

func TestCopyResponseHeaders(t *testing.T) {
	src := http.Header{}
	src.Set("Content-Type", "text/csv")
	src.Set("Content-Disposition", `attachment; filename="orders.csv"`)
	src.Set("Content-Length", "1024")
	src.Set("Content-Encoding", "gzip")
	src.Set("Transfer-Encoding", "chunked")
	src.Set("Connection", "close, X-Backend-Node")
	src.Set("X-Backend-Node", "api-3")
	src.Set("Keep-Alive", "timeout=5")
	src.Set("Trailer", "Expires")
	src.Set("Set-Cookie", "backend=1")
	src.Set("Cache-Control", "no-store")

	dst := http.Header{}
	copyResponseHeaders(dst, src)

	assert.Equal(t, "text/csv", dst.Get("Content-Type"))
	assert.Equal(t, `attachment; filename="orders.csv"`, dst.Get("Content-Disposition"))
	assert.Equal(t, "no-store", dst.Get("Cache-Control"))
	for _, name := range []string{
		"Content-Length", "Content-Encoding", "Transfer-Encoding", "Connection",
		"X-Backend-Node", "Keep-Alive", "Trailer", "Set-Cookie",
	} {
		assert.Empty(t, dst.Values(name), name)
	}
}

func TestCopyResponseHeaders_GatewayHeadersWin(t *testing.T) {
	dst := http.Header{}
	dst.Set("Access-Control-Allow-Origin", "https://admin.digimall.test")
	dst.Set("X-Request-ID", "req-1")
	dst.Set("X-RateLimit-Remaining", "9")
	dst.Set("X-Frame-Options", "DENY")

	src := http.Header{}
	src.Set("Access-Control-Allow-Origin", "*")
	src.Set("Access-Control-Expose-Headers", "X-Total-Count")
	src.Set("X-Request-ID", "backend-req")
	src.Set("X-RateLimit-Remaining", "99")
	src.Set("X-RateLimit-Limit", "100")
	src.Set("X-Frame-Options", "SAMEORIGIN")
	src.Add("Link", "</staff?page=2>; rel=next")
	src.Add("Link", "</staff?page=5>; rel=last")

	copyResponseHeaders(dst, src)

	assert.Equal(t, []string{"https://admin.digimall.test"}, dst.Values("Access-Control-Allow-Origin"))
	assert.Empty(t, dst.Values("Access-Control-Expose-Headers"), "CORS stays with the gateway")
	assert.Equal(t, []string{"req-1"}, dst.Values("X-Request-ID"))
	assert.Equal(t, []string{"9"}, dst.Values("X-RateLimit-Remaining"))
	assert.Equal(t, []string{"100"}, dst.Values("X-RateLimit-Limit"), "relayed when the gateway set none")
	assert.Equal(t, []string{"SAMEORIGIN"}, dst.Values("X-Frame-Options"))
	assert.Len(t, dst.Values("Link"), 2)
}
