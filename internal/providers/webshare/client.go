package webshare

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html/charset"
	"wsaddon/internal/domain"
	"wsaddon/internal/metrics"
)

const (
	defaultBaseURL   = "https://webshare.cz/api"
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"
	serviceName      = "webshare"
	maxPayloadBytes  = 4 * 1024 * 1024
	defaultLimit     = 100
)

type Config struct {
	BaseURL     string
	UserAgent   string
	SearchLimit int
	Client      *http.Client
	Logger      *slog.Logger
}

// Client speaks the Webshare XML API. Every call is a form-encoded POST and
// authenticated calls carry the session token as the wst form field.
type Client struct {
	baseURL     string
	userAgent   string
	searchLimit int
	http        *http.Client
	logger      *slog.Logger
}

func NewClient(cfg Config) *Client {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	userAgent := strings.TrimSpace(cfg.UserAgent)
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	limit := cfg.SearchLimit
	if limit <= 0 {
		limit = defaultLimit
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
		baseURL:     strings.TrimRight(baseURL, "/"),
		userAgent:   userAgent,
		searchLimit: limit,
		http:        httpClient,
		logger:      logger,
	}
}

// APIError is a well-formed response whose status is not OK.
type APIError struct {
	Operation string
	Status    string
	Code      string
	Message   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("webshare %s: status %s (%s): %s", e.Operation, e.Status, e.Code, e.Message)
}

type httpStatusError struct {
	operation string
	status    int
	body      string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("webshare %s HTTP %d: %s", e.operation, e.status, e.body)
}

func (e *httpStatusError) HTTPStatusCode() int { return e.status }

func (c *Client) post(ctx context.Context, operation string, form url.Values) ([]byte, error) {
	started := time.Now()
	payload, err := c.doPost(ctx, operation, form)
	metrics.ObserveUpstream(serviceName, operation, err, time.Since(started))
	return payload, err
}

func (c *Client) doPost(ctx context.Context, operation string, form url.Values) ([]byte, error) {
	endpoint := c.baseURL + "/" + operation + "/"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded; charset=UTF-8")
	req.Header.Set("Accept", "text/xml; charset=UTF-8")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, &httpStatusError{operation: operation, status: resp.StatusCode, body: strings.TrimSpace(string(body))}
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxPayloadBytes))
}

// decodeXML honours the encoding declared in the XML prolog.
func decodeXML(payload []byte, out any) error {
	decoder := xml.NewDecoder(bytes.NewReader(payload))
	decoder.CharsetReader = charset.NewReaderLabel
	if err := decoder.Decode(out); err != nil {
		return fmt.Errorf("%w: invalid XML: %v", domain.ErrProtocol, err)
	}
	return nil
}
