// Package pipeline wires authentication, search, link resolution and the
// optional premium stage into one stream resolution request.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"wsaddon/internal/domain"
	"wsaddon/internal/metrics"
	"wsaddon/internal/proxy"
	"wsaddon/internal/search"
	"wsaddon/internal/unrestrict"
)

const (
	advisoryName       = "Webshare"
	webshareLoginURL   = "https://webshare.cz/#/login"
	webshareHomeURL    = "https://webshare.cz/"
	premiumAdvisory    = "Real-Debrid"
	premiumTokenURL    = "https://real-debrid.com/apitoken"
	premiumStatusURL   = "https://real-debrid.com/"
	outcomeStreams     = "streams"
	outcomeEmpty       = "empty"
	outcomeMissingAuth = "missing_credentials"
	outcomeBadAuth     = "bad_credentials"
	outcomeAuthDown    = "auth_unavailable"
	outcomeInvalidShow = "invalid_show"
)

type Authenticator interface {
	Login(ctx context.Context, creds domain.Credentials) (domain.Session, error)
}

type StreamSearcher interface {
	Search(ctx context.Context, queries []string, session domain.Session) []domain.RankedStream
}

type LinkResolver interface {
	ResolveAll(ctx context.Context, session domain.Session, streams []domain.RankedStream) []domain.ResolvedStream
}

type PremiumStage interface {
	Run(ctx context.Context, enabled bool, apiKey string, plain []domain.ResolvedStream) unrestrict.Result
}

type Config struct {
	// ProxyStreams wraps plain stream URLs in the /proxy-stream/ scheme.
	ProxyStreams bool
	Logger       *slog.Logger
}

type Pipeline struct {
	auth         Authenticator
	searcher     StreamSearcher
	resolver     LinkResolver
	premium      PremiumStage
	proxyStreams bool
	logger       *slog.Logger
}

func New(auth Authenticator, searcher StreamSearcher, resolver LinkResolver, premium PremiumStage, cfg Config) *Pipeline {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		auth:         auth,
		searcher:     searcher,
		resolver:     resolver,
		premium:      premium,
		proxyStreams: cfg.ProxyStreams,
		logger:       logger,
	}
}

// Resolve never fails: terminal problems come back as advisory entries and
// an empty result is an empty, non-nil stream list. baseURL is the public
// origin used for proxied stream URLs.
func (p *Pipeline) Resolve(ctx context.Context, show domain.ShowInfo, cfg domain.AddonConfig, baseURL string) domain.StreamResponse {
	started := time.Now()
	streams, outcome := p.resolve(ctx, show, cfg, baseURL)
	metrics.ResolutionsTotal.WithLabelValues(outcome).Inc()
	p.logger.Info("stream resolution finished",
		slog.String("title", show.Title),
		slog.String("kind", string(show.Kind)),
		slog.String("outcome", outcome),
		slog.Int("streams", len(streams)),
		slog.Duration("elapsed", time.Since(started)),
	)
	return domain.StreamResponse{Streams: streams}
}

func (p *Pipeline) resolve(ctx context.Context, show domain.ShowInfo, cfg domain.AddonConfig, baseURL string) ([]domain.Stream, string) {
	creds := cfg.Credentials()
	if !creds.Complete() {
		return []domain.Stream{missingCredentialsAdvisory()}, outcomeMissingAuth
	}

	session, err := p.auth.Login(ctx, creds)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrMissingCredentials):
		return []domain.Stream{missingCredentialsAdvisory()}, outcomeMissingAuth
	case errors.Is(err, domain.ErrBadCredentials):
		p.logger.Info("webshare rejected credentials", slog.String("user", creds.MaskedUsername()))
		return []domain.Stream{badCredentialsAdvisory()}, outcomeBadAuth
	default:
		p.logger.Warn("webshare login unavailable",
			slog.String("user", creds.MaskedUsername()),
			slog.String("error", err.Error()),
		)
		return []domain.Stream{authUnavailableAdvisory()}, outcomeAuthDown
	}

	if !show.Valid() {
		return []domain.Stream{}, outcomeInvalidShow
	}
	queries := search.Plan(show)
	ranked := p.searcher.Search(ctx, queries, session)
	if len(ranked) == 0 {
		return []domain.Stream{}, outcomeEmpty
	}
	resolved := p.resolver.ResolveAll(ctx, session, ranked)
	if len(resolved) == 0 {
		return []domain.Stream{}, outcomeEmpty
	}

	result := p.premium.Run(ctx, cfg.DebridEnabled(), cfg.PremiumKey(), resolved)
	streams := make([]domain.Stream, 0, len(result.Streams)+1)
	switch result.Outcome {
	case unrestrict.OutcomeKeyInvalid:
		streams = append(streams, invalidPremiumKeyAdvisory())
	case unrestrict.OutcomeAllFailed:
		streams = append(streams, premiumFailedAdvisory())
	}
	for _, stream := range result.Streams {
		streams = append(streams, p.toStremio(stream, baseURL))
	}
	outcome := outcomeStreams
	if result.Outcome != unrestrict.OutcomeNoKey {
		outcome = string(result.Outcome)
	}
	return streams, outcome
}

func (p *Pipeline) toStremio(stream domain.ResolvedStream, baseURL string) domain.Stream {
	url := stream.URL
	if p.proxyStreams && !stream.Premium && strings.TrimSpace(baseURL) != "" {
		url = proxy.URL(baseURL, stream.URL)
	}
	title := stream.Description
	if title == "" {
		title = stream.Label
	}
	if stream.Quality != "" {
		title += "\n" + stream.Quality
	}
	return domain.Stream{
		URL:   url,
		Name:  stream.Label,
		Title: title,
		BehaviorHints: &domain.BehaviorHints{
			NotWebReady: false,
			BingeGroup:  stream.BingeGroup,
			Filename:    stream.Description,
			VideoSize:   stream.SizeBytes,
		},
	}
}
