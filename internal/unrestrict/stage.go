// Package unrestrict runs the optional premium stage over resolved streams.
package unrestrict

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
	"wsaddon/internal/domain"
	"wsaddon/internal/metrics"
	"wsaddon/internal/retry"
)

const (
	PremiumMarker      = "🚀 RD "
	defaultConcurrency = 10
)

type Premium interface {
	ValidateKey(ctx context.Context, apiKey string) bool
	CheckLink(ctx context.Context, apiKey, link string) error
	Unrestrict(ctx context.Context, apiKey, link string) (domain.PremiumLink, error)
	Verify(ctx context.Context, target string) (string, error)
}

type Outcome string

const (
	OutcomeNoKey        Outcome = "no_key"
	OutcomeKeyInvalid   Outcome = "key_invalid"
	OutcomeAllFailed    Outcome = "all_failed"
	OutcomeUnrestricted Outcome = "unrestricted"
)

// Result carries the streams to return, premium ones first when any
// succeeded, followed by every plain stream.
type Result struct {
	Outcome      Outcome
	Streams      []domain.ResolvedStream
	Unrestricted int
}

type Config struct {
	Policy      retry.Policy
	Concurrency int
	Logger      *slog.Logger
}

// DefaultPolicy is two attempts with attempt × 2s between them.
func DefaultPolicy() retry.Policy {
	return retry.Policy{
		MaxAttempts: 2,
		Backoff:     retry.Linear(2 * time.Second),
		Retryable:   retry.Always,
	}
}

type Stage struct {
	premium     Premium
	policy      retry.Policy
	concurrency int
	logger      *slog.Logger
}

func NewStage(premium Premium, cfg Config) *Stage {
	policy := cfg.Policy
	if policy.MaxAttempts <= 0 {
		policy = DefaultPolicy()
	}
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Stage{premium: premium, policy: policy, concurrency: concurrency, logger: logger}
}

// Run applies the premium stage. Disabled stage passes plain through; an
// invalid key or a stage where nothing unrestricts passes plain through with
// the matching outcome so the caller can prepend an advisory.
func (s *Stage) Run(ctx context.Context, enabled bool, apiKey string, plain []domain.ResolvedStream) Result {
	if !enabled {
		return Result{Outcome: OutcomeNoKey, Streams: plain}
	}
	if !s.premium.ValidateKey(ctx, apiKey) {
		return Result{Outcome: OutcomeKeyInvalid, Streams: plain}
	}

	premium := make([]domain.ResolvedStream, len(plain))
	ok := make([]bool, len(plain))
	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, stream := range plain {
		g.Go(func() error {
			link, err := s.Unrestrict(ctx, apiKey, stream.URL)
			if err != nil {
				return nil
			}
			premium[i] = premiumStream(stream, link)
			ok[i] = true
			return nil
		})
	}
	_ = g.Wait()

	streams := make([]domain.ResolvedStream, 0, len(plain)*2)
	for i := range premium {
		if ok[i] {
			streams = append(streams, premium[i])
		}
	}
	unrestricted := len(streams)
	if unrestricted == 0 {
		return Result{Outcome: OutcomeAllFailed, Streams: plain}
	}
	streams = append(streams, plain...)
	return Result{Outcome: OutcomeUnrestricted, Streams: streams, Unrestricted: unrestricted}
}

// Unrestrict checks support, exchanges link within the retry policy and
// verifies the result once. A failed verification still returns the link.
func (s *Stage) Unrestrict(ctx context.Context, apiKey, link string) (domain.PremiumLink, error) {
	logger := s.logger.With(slog.String("link", truncate(link, 60)))
	result, err := retry.DoValue(ctx, s.policy, func(ctx context.Context, attempt int) (domain.PremiumLink, error) {
		if err := s.premium.CheckLink(ctx, apiKey, link); err != nil {
			if errors.Is(err, domain.ErrUnsupportedLink) || errors.Is(err, domain.ErrInvalidPremiumKey) {
				return domain.PremiumLink{}, retry.Permanent(err)
			}
			logger.Debug("premium check failed", slog.Int("attempt", attempt), slog.String("error", err.Error()))
			return domain.PremiumLink{}, err
		}
		premiumLink, err := s.premium.Unrestrict(ctx, apiKey, link)
		if err != nil {
			if errors.Is(err, domain.ErrInvalidPremiumKey) {
				return domain.PremiumLink{}, retry.Permanent(err)
			}
			logger.Debug("premium unrestrict failed", slog.Int("attempt", attempt), slog.String("error", err.Error()))
			return domain.PremiumLink{}, err
		}
		return premiumLink, nil
	})
	if err != nil {
		result := "failed"
		if errors.Is(err, domain.ErrUnsupportedLink) {
			result = "unsupported"
		}
		metrics.UnrestrictTotal.WithLabelValues(result).Inc()
		logger.Info("premium unrestriction gave up", slog.String("error", err.Error()))
		return domain.PremiumLink{}, err
	}
	metrics.UnrestrictTotal.WithLabelValues("ok").Inc()

	contentType, verifyErr := s.premium.Verify(ctx, result.URL)
	switch {
	case verifyErr != nil:
		logger.Debug("premium link verification failed", slog.String("error", verifyErr.Error()))
		result.ContentType = guessContentType(result.Filename, result.URL, result.ContentType)
	case contentType != "":
		result.ContentType = contentType
	case result.ContentType == "":
		result.ContentType = guessContentType(result.Filename, result.URL, "")
	}
	return result, nil
}

func premiumStream(plain domain.ResolvedStream, link domain.PremiumLink) domain.ResolvedStream {
	stream := plain
	stream.URL = link.URL
	stream.ContentType = link.ContentType
	stream.Premium = true
	stream.Label = PremiumMarker + plain.Label
	if link.SizeBytes > 0 {
		stream.SizeBytes = link.SizeBytes
	}
	return stream
}

func truncate(value string, limit int) string {
	if len(value) <= limit {
		return value
	}
	return value[:limit] + "..."
}
