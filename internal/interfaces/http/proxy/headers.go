package proxy

import (
	"mime"
	"net/http"
	"strings"
)

// hopHeaders are connection-scoped and never crossed in either direction
var hopHeaders = map[string]struct{}{
	"Connection":          {},
	"Keep-Alive":          {},
	"Proxy-Authenticate":  {},
	"Proxy-Authorization": {},
	"Proxy-Connection":    {},
	"Te":                  {},
	"Trailer":             {},
	"Transfer-Encoding":   {},
	"Upgrade":             {},
}

// requestDenied are incoming headers replaced or dropped on the way out
var requestDenied = map[string]struct{}{
	"Host":              {},
	"Content-Length":    {},
	"Cookie":            {},
	"Accept-Encoding":   {},
	"Authorization":     {},
	"Forwarded":         {},
	"X-Forwarded-For":   {},
	"X-Forwarded-Host":  {},
	"X-Forwarded-Proto": {},
}

// responseDenied are backend headers the gateway never relays. The body is
// decoded and re-framed, so its encoding and length do not carry over, and
// the gateway owns the browser's cookies.
var responseDenied = map[string]struct{}{
	"Content-Encoding": {},
	"Content-Length":   {},
	"Set-Cookie":       {},
}

// gatewayOwnedPrefixes are response headers decided by the gateway's CORS
// policy. The backend's values are dropped even when the gateway set none.
var gatewayOwnedPrefixes = []string{"Access-Control-"}

// gatewayPreferred are response headers where a value already set by the
// gateway's middleware wins over the backend's
var gatewayPreferred = map[string]struct{}{
	"X-Request-Id":          {},
	"X-Ratelimit-Limit":     {},
	"X-Ratelimit-Remaining": {},
}

// requestDeniedPrefixes cover the identity and service headers the gateway
// sets itself
var requestDeniedPrefixes = []string{"X-User-", "X-Service-"}

// isHopHeader reports whether name is hop-by-hop, either by definition or
// because it is listed in the message's Connection header
func isHopHeader(name string, connection map[string]struct{}) bool {
	name = http.CanonicalHeaderKey(name)
	if _, ok := hopHeaders[name]; ok {
		return true
	}
	if strings.HasPrefix(name, "Proxy-") {
		return true
	}
	_, ok := connection[name]
	return ok
}

// connectionTokens returns the header names listed in Connection
func connectionTokens(h http.Header) map[string]struct{} {
	tokens := make(map[string]struct{})
	for _, value := range h.Values("Connection") {
		for _, token := range strings.Split(value, ",") {
			if token = strings.TrimSpace(token); token != "" {
				tokens[http.CanonicalHeaderKey(token)] = struct{}{}
			}
		}
	}
	return tokens
}

// copyRequestHeaders copies the forwardable incoming headers into dst
func copyRequestHeaders(dst, src http.Header) {
	connection := connectionTokens(src)
	for name, values := range src {
		if isHopHeader(name, connection) {
			continue
		}
		canonical := http.CanonicalHeaderKey(name)
		if _, denied := requestDenied[canonical]; denied {
			continue
		}
		if hasAnyPrefix(canonical, requestDeniedPrefixes) {
			continue
		}
		for _, v := range values {
			dst.Add(canonical, v)
		}
	}
}

// copyResponseHeaders copies the relayable backend headers into dst. A
// backend header replaces any value middleware already put in dst, except
// for the headers the gateway owns.
func copyResponseHeaders(dst, src http.Header) {
	connection := connectionTokens(src)
	for name, values := range src {
		if isHopHeader(name, connection) {
			continue
		}
		canonical := http.CanonicalHeaderKey(name)
		if _, denied := responseDenied[canonical]; denied {
			continue
		}
		if hasAnyPrefix(canonical, gatewayOwnedPrefixes) {
			continue
		}
		if _, preferred := gatewayPreferred[canonical]; preferred && dst.Get(canonical) != "" {
			continue
		}
		dst.Del(canonical)
		for _, v := range values {
			dst.Add(canonical, v)
		}
	}
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

// binaryTypes are exact media types relayed as a byte stream
var binaryTypes = map[string]struct{}{
	"application/pdf":               {},
	"application/octet-stream":      {},
	"application/zip":               {},
	"application/x-zip-compressed":  {},
	"application/gzip":              {},
	"application/msword":            {},
	"application/vnd.ms-excel":      {},
	"application/vnd.ms-powerpoint": {},
}

var binaryPrefixes = []string{
	"image/",
	"audio/",
	"video/",
	"font/",
	"application/vnd.openxmlformats-officedocument.",
	"application/vnd.oasis.opendocument.",
}

// IsBinaryContentType reports whether a response with this Content-Type is
// streamed byte for byte instead of being buffered as text.
func IsBinaryContentType(contentType string) bool {
	if contentType == "" {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0])
	}
	mediaType = strings.ToLower(mediaType)

	if _, ok := binaryTypes[mediaType]; ok {
		return true
	}
	return hasAnyPrefix(mediaType, binaryPrefixes)
}
