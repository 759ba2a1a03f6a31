package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
	"wsaddon/internal/domain"
	"wsaddon/internal/metrics"
	"wsaddon/internal/retry"
)

const defaultConcurrency = 20

var errProbeRejected = errors.New("link probe rejected")

type LinkSource interface {
	FileLink(ctx context.Context, session domain.Session, ident string) (string, error)
}

type Config struct {
	// Probe enables the HEAD check of every obtained link.
	Probe       bool
	Concurrency int
	Policy      retry.Policy
	ProbeClient *http.Client
	UserAgent   string
	Logger      *slog.Logger
}

// DefaultPolicy is three attempts spaced attempt × 1.5s apart.
func DefaultPolicy() retry.Policy {
	return retry.Policy{
		MaxAttempts: 3,
		Backoff:     retry.Linear(1500 * time.Millisecond),
		Retryable:   retry.Always,
	}
}

type Resolver struct {
	links       LinkSource
	probe       bool
	concurrency int
	policy      retry.Policy
	probeClient *http.Client
	userAgent   string
	logger      *slog.Logger
}

func NewResolver(links LinkSource, cfg Config) *Resolver {
	policy := cfg.Policy
	if policy.MaxAttempts <= 0 {
		policy = DefaultPolicy()
	}
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	base := cfg.ProbeClient
	if base == nil {
		base = &http.Client{Timeout: 10 * time.Second}
	}
	// The probe must see redirects rather than follow them.
	probeClient := *base
	probeClient.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		links:       links,
		probe:       cfg.Probe,
		concurrency: concurrency,
		policy:      policy,
		probeClient: &probeClient,
		userAgent:   strings.TrimSpace(cfg.UserAgent),
		logger:      logger,
	}
}

// ResolveAll resolves every stream independently and concurrently. The
// output keeps input order and omits streams that never got a usable URL.
func (r *Resolver) ResolveAll(ctx context.Context, session domain.Session, streams []domain.RankedStream) []domain.ResolvedStream {
	resolved := make([]domain.ResolvedStream, len(streams))
	ok := make([]bool, len(streams))

	sem := semaphore.NewWeighted(int64(r.concurrency))
	var wg sync.WaitGroup
	for i, stream := range streams {
		wg.Add(1)
		go func(index int, current domain.RankedStream) {
			defer wg.Done()
			if err := sem.Acquire(ctx, 1); err != nil {
				return
			}
			defer sem.Release(1)

			result, err := r.Resolve(ctx, session, current)
			if err != nil {
				return
			}
			resolved[index] = result
			ok[index] = true
		}(i, stream)
	}
	wg.Wait()

	out := make([]domain.ResolvedStream, 0, len(streams))
	for i := range resolved {
		if ok[i] {
			out = append(out, resolved[i])
		}
	}
	return out
}

// Resolve obtains a direct link for one stream within the retry policy.
func (r *Resolver) Resolve(ctx context.Context, session domain.Session, stream domain.RankedStream) (domain.ResolvedStream, error) {
	logger := r.logger.With(slog.String("ident", stream.ID))
	result, err := retry.DoValue(ctx, r.policy, func(ctx context.Context, attempt int) (domain.ResolvedStream, error) {
		link, err := r.links.FileLink(ctx, session, stream.ID)
		if err != nil {
			logger.Debug("file link attempt failed", slog.Int("attempt", attempt), slog.String("error", err.Error()))
			return domain.ResolvedStream{}, err
		}
		resolved := domain.ResolvedStream{RankedStream: stream, URL: link}
		if !r.probe {
			return resolved, nil
		}
		target, contentType, err := r.probeLink(ctx, link)
		if err != nil {
			logger.Debug("file link probe failed", slog.Int("attempt", attempt), slog.String("error", err.Error()))
			return domain.ResolvedStream{}, err
		}
		resolved.URL = target
		resolved.ContentType = contentType
		return resolved, nil
	})
	if err != nil {
		metrics.LinkResolutionsTotal.WithLabelValues("failed").Inc()
		logger.Warn("file link unavailable", slog.String("error", err.Error()))
		return domain.ResolvedStream{}, err
	}
	metrics.LinkResolutionsTotal.WithLabelValues("ok").Inc()
	return result, nil
}

// probeLink issues a HEAD against link. A redirect yields its target, an
// error status rejects the attempt, and a failed probe keeps the link as is.
func (r *Resolver) probeLink(ctx context.Context, link string) (string, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, link, nil)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", domain.ErrProtocol, err)
	}
	if r.userAgent != "" {
		req.Header.Set("User-Agent", r.userAgent)
	}
	resp, err := r.probeClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", "", ctx.Err()
		}
		r.logger.Debug("probe unreachable, keeping unverified link", slog.String("error", err.Error()))
		return link, "", nil
	}
	resp.Body.Close()

	switch {
	case resp.StatusCode >= 300 && resp.StatusCode < 400:
		location := strings.TrimSpace(resp.Header.Get("Location"))
		if location == "" {
			return link, "", nil
		}
		base, err := url.Parse(link)
		if err != nil {
			return location, "", nil
		}
		target, err := base.Parse(location)
		if err != nil {
			return link, "", nil
		}
		return target.String(), "", nil
	case resp.StatusCode >= 400:
		return "", "", fmt.Errorf("%w: HTTP %d", errProbeRejected, resp.StatusCode)
	default:
		return link, strings.TrimSpace(resp.Header.Get("Content-Type")), nil
	}
}
