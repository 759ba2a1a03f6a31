package realdebrid

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"wsaddon/internal/domain"
	"wsaddon/internal/metrics"
)

const (
	defaultBaseURL  = "https://api.real-debrid.com/rest/1.0"
	serviceName     = "realdebrid"
	maxPayloadBytes = 1024 * 1024
)

// Keys are opaque alphanumeric tokens; anything else is rejected locally.
var keyPattern = regexp.MustCompile(`^[A-Za-z0-9]{20,128}$`)

func ValidKeyFormat(apiKey string) bool {
	return keyPattern.MatchString(apiKey)
}

type Config struct {
	BaseURL   string
	UserAgent string
	Client    *http.Client
	Logger    *slog.Logger
}

// Client is a stateless Real-Debrid REST client; the API key is supplied
// per call because it belongs to the requesting user.
type Client struct {
	baseURL   string
	userAgent string
	http      *http.Client
	logger    *slog.Logger
}

type User struct {
	ID         int    `json:"id"`
	Username   string `json:"username"`
	Email      string `json:"email"`
	Points     int    `json:"points"`
	Type       string `json:"type"`
	Expiration string `json:"expiration"`
}

type CheckResult struct {
	Host      string `json:"host"`
	Link      string `json:"link"`
	Filename  string `json:"filename"`
	Filesize  int64  `json:"filesize"`
	Supported int    `json:"supported"`
}

type DownloadLink struct {
	ID         string `json:"id"`
	Filename   string `json:"filename"`
	MimeType   string `json:"mimeType"`
	Filesize   int64  `json:"filesize"`
	Link       string `json:"link"`
	Host       string `json:"host"`
	Download   string `json:"download"`
	Streamable int    `json:"streamable"`
}

type errorResponse struct {
	Error     string `json:"error"`
	ErrorCode int    `json:"error_code"`
}

type APIError struct {
	Operation  string
	HTTPStatus int
	Code       int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("realdebrid %s HTTP %d", e.Operation, e.HTTPStatus)
	}
	return fmt.Sprintf("realdebrid %s HTTP %d: %s (code %d)", e.Operation, e.HTTPStatus, e.Message, e.Code)
}

func (e *APIError) HTTPStatusCode() int { return e.HTTPStatus }

func NewClient(cfg Config) *Client {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	httpClient := cfg.Client
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: strings.TrimSpace(cfg.UserAgent),
		http:      httpClient,
		logger:    logger,
	}
}

func (c *Client) User(ctx context.Context, apiKey string) (User, error) {
	var user User
	err := c.call(ctx, "user", http.MethodGet, "/user", apiKey, nil, &user)
	return user, err
}

// ValidateKey makes one authenticated user lookup. Empty or malformed keys
// are rejected without a network call. Never retried.
func (c *Client) ValidateKey(ctx context.Context, apiKey string) bool {
	if !ValidKeyFormat(apiKey) {
		return false
	}
	user, err := c.User(ctx, apiKey)
	if err != nil {
		c.logger.Info("realdebrid key rejected", slog.String("error", err.Error()))
		return false
	}
	c.logger.Debug("realdebrid key valid", slog.String("accountType", user.Type))
	return true
}

// CheckLink returns nil when the premium service can unrestrict link and an
// error wrapping domain.ErrUnsupportedLink when it cannot.
func (c *Client) CheckLink(ctx context.Context, apiKey, link string) error {
	var result CheckResult
	err := c.call(ctx, "check", http.MethodPost, "/unrestrict/check", apiKey, url.Values{"link": {link}}, &result)
	if err != nil {
		var apiErr *APIError
		if !errors.Is(err, domain.ErrInvalidPremiumKey) && errors.As(err, &apiErr) && isUnsupported(apiErr) {
			return fmt.Errorf("%w: %w", domain.ErrUnsupportedLink, err)
		}
		return err
	}
	if result.Supported != 1 {
		return fmt.Errorf("%w: host %q", domain.ErrUnsupportedLink, result.Host)
	}
	return nil
}

// Unrestrict exchanges link for a premium download URL.
func (c *Client) Unrestrict(ctx context.Context, apiKey, link string) (domain.PremiumLink, error) {
	var download DownloadLink
	if err := c.call(ctx, "unrestrict", http.MethodPost, "/unrestrict/link", apiKey, url.Values{"link": {link}}, &download); err != nil {
		return domain.PremiumLink{}, err
	}
	target := strings.TrimSpace(download.Download)
	if target == "" {
		return domain.PremiumLink{}, fmt.Errorf("%w: unrestrict response without download url", domain.ErrProtocol)
	}
	return domain.PremiumLink{
		URL:         target,
		ContentType: strings.TrimSpace(download.MimeType),
		Filename:    download.Filename,
		SizeBytes:   download.Filesize,
	}, nil
}

// Verify issues a HEAD against a premium URL and returns its content type.
// Any 2xx or 3xx counts as usable.
func (c *Client) Verify(ctx context.Context, target string) (string, error) {
	started := time.Now()
	contentType, err := c.verify(ctx, target)
	metrics.ObserveUpstream(serviceName, "verify", err, time.Since(started))
	return contentType, err
}

func (c *Client) verify(ctx context.Context, target string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, target, nil)
	if err != nil {
		return "", err
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 400 {
		return "", &APIError{Operation: "verify", HTTPStatus: resp.StatusCode}
	}
	return strings.TrimSpace(resp.Header.Get("Content-Type")), nil
}

func (c *Client) call(ctx context.Context, operation, method, path, apiKey string, form url.Values, out any) error {
	started := time.Now()
	err := c.do(ctx, operation, method, path, apiKey, form, out)
	metrics.ObserveUpstream(serviceName, operation, err, time.Since(started))
	return err
}

func (c *Client) do(ctx context.Context, operation, method, path, apiKey string, form url.Values, out any) error {
	if strings.TrimSpace(apiKey) == "" {
		return domain.ErrInvalidPremiumKey
	}
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+apiKey)
	req.Header.Set("Accept", "application/json")
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		apiErr := &APIError{Operation: operation, HTTPStatus: resp.StatusCode}
		var decoded errorResponse
		if json.Unmarshal(payload, &decoded) == nil {
			apiErr.Code = decoded.ErrorCode
			apiErr.Message = decoded.Error
		} else {
			apiErr.Message = strings.TrimSpace(string(payload))
		}
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			return fmt.Errorf("%w: %w", domain.ErrInvalidPremiumKey, apiErr)
		}
		return apiErr
	}

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxPayloadBytes))
	if err != nil {
		return err
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("%w: %s response: %v", domain.ErrProtocol, operation, err)
	}
	return nil
}

// Error codes the API uses for hosters or files it will not handle.
var unsupportedCodes = map[int]struct{}{
	16: {}, // hoster_unsupported
	19: {}, // hoster_unavailable
	23: {}, // traffic_exhausted
	24: {}, // unavailable_file
	35: {}, // infringing_file
}

func isUnsupported(err *APIError) bool {
	if _, ok := unsupportedCodes[err.Code]; ok {
		return true
	}
	return err.HTTPStatus >= 400 && err.HTTPStatus < 500 && err.HTTPStatus != http.StatusTooManyRequests
}
