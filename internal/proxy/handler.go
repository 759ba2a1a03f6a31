package proxy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"wsaddon/internal/domain"
	"wsaddon/internal/metrics"
)

const (
	defaultContentType = "video/mp4"
	copyBufferSize     = 256 * 1024
	maxRedirects       = 5
	probeTimeout       = 5 * time.Second
)

var skippedHeaders = map[string]struct{}{
	"Content-Encoding":  {},
	"Transfer-Encoding": {},
	"Connection":        {},
}

type Config struct {
	// AllowPrivate lets the relay reach loopback and private networks.
	AllowPrivate bool
	UserAgent    string
	Transport    http.RoundTripper
	Logger       *slog.Logger
}

type Handler struct {
	client       *http.Client
	allowPrivate bool
	userAgent    string
	logger       *slog.Logger
}

func NewHandler(cfg Config) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{
		allowPrivate: cfg.AllowPrivate,
		userAgent:    strings.TrimSpace(cfg.UserAgent),
		logger:       logger,
	}
	transport := cfg.Transport
	if transport == nil {
		transport = NewTransport(cfg.AllowPrivate)
	}
	h.client = &http.Client{
		Transport: transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return fmt.Errorf("stopped after %d redirects", maxRedirects)
			}
			return ValidateTarget(req.Context(), req.URL, h.allowPrivate)
		},
	}
	return h
}

// NewTransport builds the relay transport. It has no overall deadline since
// relayed media can run for hours; dial and header timeouts still bound a
// dead upstream. Unless allowPrivate is set, every dialed address is checked
// again so a host cannot rebind to a private address after ValidateTarget.
func NewTransport(allowPrivate bool) *http.Transport {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	dialer := &net.Dialer{Timeout: 8 * time.Second, KeepAlive: 30 * time.Second}
	if !allowPrivate {
		dialer.Control = guardDial
		// An egress proxy would be the dialed address instead of the target.
		transport.Proxy = nil
	}
	transport.DialContext = dialer.DialContext
	transport.ResponseHeaderTimeout = 30 * time.Second
	// Media bytes must reach the caller exactly as served.
	transport.DisableCompression = true
	return transport
}

type probeResult struct {
	contentType   string
	contentLength int64
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}
	// Standard-alphabet tokens may carry '/', so the token is the whole rest.
	escaped := r.URL.EscapedPath()
	token := strings.TrimPrefix(escaped, PathPrefix)
	if token == escaped || token == "" {
		writeError(w, http.StatusNotFound, "not_found", "not found")
		return
	}
	if unescaped, err := url.PathUnescape(token); err == nil {
		token = unescaped
	}

	upstream, err := Decode(token)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid proxy url")
		return
	}
	target, _ := url.Parse(upstream)
	if err := ValidateTarget(r.Context(), target, h.allowPrivate); err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, domain.ErrBlockedProxyTarget) {
			status = http.StatusForbidden
		}
		writeError(w, status, "invalid_request", err.Error())
		return
	}

	logger := h.logger.With(slog.String("host", target.Host))
	probe := h.probe(r.Context(), upstream)

	if r.Method == http.MethodHead {
		w.Header().Set("Content-Type", probe.contentType)
		w.Header().Set("Accept-Ranges", "bytes")
		if probe.contentLength > 0 {
			w.Header().Set("Content-Length", strconv.FormatInt(probe.contentLength, 10))
		}
		w.WriteHeader(http.StatusOK)
		return
	}

	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, upstream, nil)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid proxy url")
		return
	}
	h.decorate(req)
	if rangeHeader := r.Header.Get("Range"); rangeHeader != "" {
		req.Header.Set("Range", rangeHeader)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		if r.Context().Err() != nil {
			return
		}
		if errors.Is(err, domain.ErrBlockedProxyTarget) {
			writeError(w, http.StatusForbidden, "invalid_request", "proxy target not allowed")
			return
		}
		logger.Warn("proxy upstream request failed", slog.String("error", err.Error()))
		writeError(w, http.StatusBadGateway, "upstream_error", "failed to fetch stream")
		return
	}
	defer resp.Body.Close()

	for key, values := range resp.Header {
		if _, skip := skippedHeaders[http.CanonicalHeaderKey(key)]; skip {
			continue
		}
		for _, value := range values {
			w.Header().Add(key, value)
		}
	}
	if w.Header().Get("Content-Type") == "" {
		w.Header().Set("Content-Type", probe.contentType)
	}
	w.WriteHeader(resp.StatusCode)

	metrics.ProxyActiveStreams.Inc()
	defer metrics.ProxyActiveStreams.Dec()

	written, copyErr := relay(w, resp.Body)
	metrics.ProxyBytesTotal.Add(float64(written))
	if copyErr != nil && r.Context().Err() == nil {
		logger.Debug("proxy relay interrupted",
			slog.Int64("bytes", written),
			slog.String("error", copyErr.Error()),
		)
	}
}

// probe is best effort; failures fall back to generic defaults.
func (h *Handler) probe(ctx context.Context, upstream string) probeResult {
	result := probeResult{contentType: defaultContentType}

	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(probeCtx, http.MethodHead, upstream, nil)
	if err != nil {
		return result
	}
	h.decorate(req)
	resp, err := h.client.Do(req)
	if err != nil {
		return result
	}
	resp.Body.Close()
	if resp.StatusCode >= 400 {
		return result
	}
	if contentType := strings.TrimSpace(resp.Header.Get("Content-Type")); contentType != "" {
		result.contentType = contentType
	}
	if resp.ContentLength > 0 {
		result.contentLength = resp.ContentLength
	}
	return result
}

func (h *Handler) decorate(req *http.Request) {
	if h.userAgent != "" {
		req.Header.Set("User-Agent", h.userAgent)
	}
	req.Header.Set("Accept", "*/*")
}

// relay copies src to w, flushing after every chunk so bytes reach the
// caller as they arrive. A write error means the caller went away.
func relay(w http.ResponseWriter, src io.Reader) (int64, error) {
	flusher, _ := w.(http.Flusher)
	buf := make([]byte, copyBufferSize)
	var written int64
	for {
		n, readErr := src.Read(buf)
		if n > 0 {
			m, writeErr := w.Write(buf[:n])
			written += int64(m)
			if writeErr != nil {
				return written, writeErr
			}
			if flusher != nil {
				flusher.Flush()
			}
		}
		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				return written, nil
			}
			return written, readErr
		}
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]string{"code": code, "message": message},
	})
}
