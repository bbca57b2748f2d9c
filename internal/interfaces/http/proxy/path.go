package proxy

import (
	"errors"
	"net/url"
	"strings"
)

// ErrInvalidPath is returned for proxy paths that cannot be forwarded
var ErrInvalidPath = errors.New("invalid proxy path")

// CleanPath validates the wildcard part of /api/proxy/*path and returns it
// without leading or trailing slashes. Empty paths, dot segments, schemes
// and control characters are rejected.
func CleanPath(raw string) (string, error) {
	p := strings.Trim(raw, "/")
	if p == "" {
		return "", ErrInvalidPath
	}
	if strings.Contains(p, "://") || strings.ContainsAny(p, "\\") {
		return "", ErrInvalidPath
	}
	for _, r := range p {
		if r < 0x20 || r == 0x7f {
			return "", ErrInvalidPath
		}
	}

	segments := strings.Split(p, "/")
	// "http:" or "javascript:" as the first segment would read as a scheme
	if strings.Contains(segments[0], ":") {
		return "", ErrInvalidPath
	}
	for _, seg := range segments {
		if seg == ".." || seg == "." {
			return "", ErrInvalidPath
		}
	}
	return p, nil
}

// EscapePath percent-encodes each segment of a cleaned path so that
// characters decoded by the router ("?", "#", spaces) stay in the path.
func EscapePath(p string) string {
	segments := strings.Split(p, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return strings.Join(segments, "/")
}

// IsExempt reports whether path may be forwarded without an identity.
// A prefix ending in "/" matches everything below it; otherwise the path
// must equal the prefix or continue with "/".
func IsExempt(path string, prefixes []string) bool {
	for _, prefix := range prefixes {
		prefix = strings.TrimLeft(prefix, "/")
		if prefix == "" {
			continue
		}
		if strings.HasSuffix(prefix, "/") {
			if strings.HasPrefix(path+"/", prefix) {
				return true
			}
			continue
		}
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			return true
		}
	}
	return false
}
