// Package proxy relays one upstream media resource per call and owns the
// /proxy-stream/{token} URL scheme embedded in returned streams.
package proxy

import (
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"

	"wsaddon/internal/domain"
)

const PathPrefix = "/proxy-stream/"

// Encode uses the URL-safe alphabet without padding so the token survives
// as a single path segment.
func Encode(upstream string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(upstream))
}

// Decode accepts both alphabets, padded or not, and returns the upstream
// URL once it parses as absolute http(s).
func Decode(token string) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", fmt.Errorf("%w: empty token", domain.ErrInvalidProxyURL)
	}
	trimmed := strings.TrimRight(token, "=")

	var raw []byte
	var err error
	for _, enc := range []*base64.Encoding{base64.RawURLEncoding, base64.RawStdEncoding} {
		raw, err = enc.DecodeString(trimmed)
		if err == nil {
			break
		}
	}
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrInvalidProxyURL, err)
	}

	upstream := string(raw)
	parsed, err := url.Parse(upstream)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrInvalidProxyURL, err)
	}
	scheme := strings.ToLower(parsed.Scheme)
	if (scheme != "http" && scheme != "https") || parsed.Host == "" {
		return "", fmt.Errorf("%w: not an absolute http url", domain.ErrInvalidProxyURL)
	}
	return upstream, nil
}

func Path(upstream string) string {
	return PathPrefix + Encode(upstream)
}

// URL joins base (scheme://host[/prefix]) with the proxy path for upstream.
func URL(base, upstream string) string {
	return strings.TrimRight(base, "/") + Path(upstream)
}
