package apihttp

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"wsaddon/internal/domain"
)

// decodeAddonConfig reads the /{config} segment: URL-escaped JSON as Stremio
// writes it, or base64 JSON as some installers do. An empty segment is an
// empty config.
func decodeAddonConfig(segment string) (domain.AddonConfig, error) {
	var cfg domain.AddonConfig
	if strings.TrimSpace(segment) == "" {
		return cfg, nil
	}
	raw, err := url.PathUnescape(segment)
	if err != nil {
		return cfg, fmt.Errorf("unescape config: %w", err)
	}
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "{") {
		decoded, decodeErr := decodeBase64(raw)
		if decodeErr != nil {
			return cfg, errors.New("config is neither json nor base64 json")
		}
		raw = decoded
	}
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		return domain.AddonConfig{}, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

func decodeBase64(raw string) (string, error) {
	trimmed := strings.TrimRight(raw, "=")
	var lastErr error
	for _, enc := range []*base64.Encoding{base64.RawURLEncoding, base64.RawStdEncoding} {
		decoded, err := enc.DecodeString(trimmed)
		if err == nil {
			return string(decoded), nil
		}
		lastErr = err
	}
	return "", lastErr
}
