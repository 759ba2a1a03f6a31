package apihttp

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"wsaddon/internal/domain"
)

type StreamResolver interface {
	Resolve(ctx context.Context, show domain.ShowInfo, cfg domain.AddonConfig, baseURL string) domain.StreamResponse
}

type ShowFinder interface {
	FindShowInfo(ctx context.Context, kind, id string) (domain.ShowInfo, error)
}

type Server struct {
	resolver       StreamResolver
	finder         ShowFinder
	proxy          http.Handler
	metrics        http.Handler
	logger         *slog.Logger
	version        string
	baseURL        string
	resolveTimeout time.Duration
	rateRPS        float64
	rateBurst      int
	started        time.Time
}

const (
	defaultResolveTimeout = 45 * time.Second
	serviceName           = "wsaddon"
)

type ServerOption func(*Server)

func WithLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithProxy mounts the stream relay under /proxy-stream/.
func WithProxy(handler http.Handler) ServerOption {
	return func(s *Server) {
		s.proxy = handler
	}
}

func WithMetricsHandler(handler http.Handler) ServerOption {
	return func(s *Server) {
		s.metrics = handler
	}
}

func WithVersion(version string) ServerOption {
	return func(s *Server) {
		s.version = version
	}
}

// WithBaseURL pins the public origin used in proxied stream URLs instead of
// deriving it from each request.
func WithBaseURL(baseURL string) ServerOption {
	return func(s *Server) {
		s.baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	}
}

func WithResolveTimeout(timeout time.Duration) ServerOption {
	return func(s *Server) {
		if timeout > 0 {
			s.resolveTimeout = timeout
		}
	}
}

func WithRateLimit(rps float64, burst int) ServerOption {
	return func(s *Server) {
		s.rateRPS = rps
		s.rateBurst = burst
	}
}

func NewServer(resolver StreamResolver, finder ShowFinder, options ...ServerOption) *Server {
	server := &Server{
		resolver:       resolver,
		finder:         finder,
		logger:         slog.Default(),
		version:        "dev",
		resolveTimeout: defaultResolveTimeout,
		rateRPS:        20,
		rateBurst:      40,
		started:        time.Now(),
	}
	for _, option := range options {
		if option != nil {
			option(server)
		}
	}
	if server.logger == nil {
		server.logger = slog.Default()
	}
	if server.metrics == nil {
		server.metrics = promhttp.Handler()
	}
	return server
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/healthcheck", s.handleHealth)
	mux.Handle("/metrics", s.metrics)
	mux.HandleFunc("/manifest.json", s.handleManifest)
	mux.HandleFunc("/stream/", s.handleStream)
	if s.proxy != nil {
		mux.Handle("/proxy-stream/", s.proxy)
	}
	mux.HandleFunc("/", s.handleLanding)

	traced := otelhttp.NewHandler(loggingMiddleware(s.logger, mux), serviceName,
		otelhttp.WithFilter(func(r *http.Request) bool {
			route := normalizeRoute(r.URL.Path)
			return route != "/metrics" && route != "/health"
		}),
	)
	chain := metricsMiddleware(corsMiddleware(requestIDMiddleware(traced)))
	return recoveryMiddleware(s.logger, configSegmentMiddleware(rateLimitMiddleware(s.rateRPS, s.rateBurst, chain)))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
		"uptime":  time.Since(s.started).Seconds(),
	})
}

func (s *Server) handleManifest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Cache-Control", "public, max-age=3600")
	configured := false
	if segment := configSegment(r.Context()); segment != "" {
		_, err := decodeAddonConfig(segment)
		configured = err == nil
	}
	writeJSON(w, http.StatusOK, Manifest(s.version, configured))
}

// handleStream serves /stream/{type}/{id}.json. The config segment has
// already been moved into the request context.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	segments := strings.Split(strings.TrimPrefix(r.URL.Path, "/stream/"), "/")
	if len(segments) != 2 || !strings.HasSuffix(segments[1], ".json") {
		writeError(w, http.StatusNotFound, "not_found", "unknown stream route")
		return
	}
	kind := segments[0]
	id := strings.TrimSuffix(segments[1], ".json")
	w.Header().Set("Cache-Control", "no-store")

	if _, ok := domain.NormalizeMediaKind(kind); !ok || s.resolver == nil || s.finder == nil {
		writeJSON(w, http.StatusOK, domain.StreamResponse{Streams: []domain.Stream{}})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.resolveTimeout)
	defer cancel()

	show, err := s.finder.FindShowInfo(ctx, kind, id)
	if err != nil {
		level := slog.LevelWarn
		if errors.Is(err, domain.ErrNotFound) {
			level = slog.LevelInfo
		}
		s.logger.Log(ctx, level, "show metadata unavailable",
			slog.String("kind", kind),
			slog.String("id", id),
			slog.String("error", err.Error()),
		)
		writeJSON(w, http.StatusOK, domain.StreamResponse{Streams: []domain.Stream{}})
		return
	}

	cfg, err := decodeAddonConfig(configSegment(r.Context()))
	if err != nil {
		s.logger.Debug("addon config not decodable", slog.String("error", err.Error()))
	}
	response := s.resolver.Resolve(ctx, show, cfg, s.publicBaseURL(r))
	if response.Streams == nil {
		response.Streams = []domain.Stream{}
	}
	writeJSON(w, http.StatusOK, response)
}

func (s *Server) handleLanding(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/", "/index.html", "/configure", "/404":
	default:
		writeError(w, http.StatusNotFound, "not_found", "not found")
		return
	}
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	manifestURL := s.publicBaseURL(r) + "/manifest.json"
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if err := renderLanding(w, landingData{
		Name:        manifestName,
		Description: manifestDescription,
		Version:     s.version,
		ManifestURL: manifestURL,
		InstallURL:  stremioInstallURL(manifestURL),
	}); err != nil {
		s.logger.Warn("landing page render failed", slog.String("error", err.Error()))
	}
}

// publicBaseURL prefers the configured origin and otherwise trusts the
// forwarding headers set by the reverse proxy in front of the addon.
func (s *Server) publicBaseURL(r *http.Request) string {
	if s.baseURL != "" {
		return s.baseURL
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	switch forwarded := strings.ToLower(strings.TrimSpace(strings.Split(r.Header.Get("X-Forwarded-Proto"), ",")[0])); forwarded {
	case "http", "https":
		scheme = forwarded
	}
	host := r.Host
	if forwarded := strings.TrimSpace(strings.Split(r.Header.Get("X-Forwarded-Host"), ",")[0]); forwarded != "" {
		host = forwarded
	}
	return scheme + "://" + host
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}
