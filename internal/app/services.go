package app

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"wsaddon/internal/pipeline"
	"wsaddon/internal/providers/metadata"
	"wsaddon/internal/providers/realdebrid"
	"wsaddon/internal/providers/webshare"
	"wsaddon/internal/proxy"
	"wsaddon/internal/resolver"
	"wsaddon/internal/search"
	"wsaddon/internal/unrestrict"
)

// Services holds every collaborator both binaries wire from one Config.
type Services struct {
	Webshare   *webshare.Client
	RealDebrid *realdebrid.Client
	Pipeline   *pipeline.Pipeline
	Finder     *metadata.Finder
	Proxy      *proxy.Handler

	redis *redis.Client
}

func BuildServices(ctx context.Context, cfg Config, logger *slog.Logger) *Services {
	httpClient := newHTTPClient(cfg.RequestTimeout)

	ws := webshare.NewClient(webshare.Config{
		BaseURL:     cfg.WebshareBaseURL,
		UserAgent:   cfg.UserAgent,
		SearchLimit: cfg.SearchLimit,
		Client:      httpClient,
		Logger:      logger,
	})
	rd := realdebrid.NewClient(realdebrid.Config{
		BaseURL:   cfg.RealDebridBaseURL,
		UserAgent: cfg.UserAgent,
		Client:    httpClient,
		Logger:    logger,
	})

	aggregator := search.NewAggregator(ws,
		search.WithMaxStreams(cfg.MaxStreams),
		search.WithLogger(logger),
	)
	links := resolver.NewResolver(ws, resolver.Config{
		Probe:       cfg.ResolverProbe,
		Concurrency: cfg.ResolverWorkers,
		ProbeClient: httpClient,
		UserAgent:   cfg.UserAgent,
		Logger:      logger,
	})
	stage := unrestrict.NewStage(rd, unrestrict.Config{Logger: logger})

	services := &Services{
		Webshare:   ws,
		RealDebrid: rd,
		Pipeline: pipeline.New(ws, aggregator, links, stage, pipeline.Config{
			ProxyStreams: cfg.ProxyStreams,
			Logger:       logger,
		}),
		Proxy: proxy.NewHandler(proxy.Config{
			AllowPrivate: cfg.ProxyAllowPrivate,
			UserAgent:    cfg.UserAgent,
			Transport:    otelhttp.NewTransport(proxy.NewTransport(cfg.ProxyAllowPrivate)),
			Logger:       logger,
		}),
	}
	services.Finder = metadata.NewFinder(services.buildMetadata(ctx, cfg, httpClient, logger))
	return services
}

// buildMetadata chains TMDB (when keyed) before Cinemeta and wraps the chain
// in the Redis cache when REDIS_URL is reachable.
func (s *Services) buildMetadata(ctx context.Context, cfg Config, client *http.Client, logger *slog.Logger) metadata.Provider {
	var providers []metadata.Provider
	tmdb := metadata.NewTMDB(metadata.TMDBConfig{
		APIKey:   cfg.TMDBAPIKey,
		BaseURL:  cfg.TMDBBaseURL,
		Language: cfg.TMDBLanguage,
		Client:   client,
	})
	if tmdb.Enabled() {
		providers = append(providers, tmdb)
	} else {
		logger.Info("tmdb api key not configured, using cinemeta only")
	}
	providers = append(providers, metadata.NewCinemeta(cfg.CinemetaBaseURL, client))
	chain := metadata.NewChain(logger, providers...)

	s.redis = connectRedis(ctx, cfg.RedisURL, logger)
	if s.redis == nil {
		return chain
	}
	return metadata.NewRedisCache(s.redis, chain, cfg.MetadataCacheTTL, logger)
}

func (s *Services) Close() error {
	if s.redis != nil {
		return s.redis.Close()
	}
	return nil
}

func connectRedis(ctx context.Context, rawURL string, logger *slog.Logger) *redis.Client {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return nil
	}
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		logger.Warn("invalid redis url, metadata cache disabled", slog.String("error", err.Error()))
		return nil
	}
	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn("redis not reachable, metadata cache disabled", slog.String("error", err.Error()))
		_ = client.Close()
		return nil
	}
	logger.Info("redis connected", slog.String("addr", opts.Addr))
	return client
}

func newHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout, Transport: otelhttp.NewTransport(http.DefaultTransport)}
}
