package app

import (
	"os"
	"strconv"
	"strings"
	"time"

	"wsaddon/internal/providers/webshare"
)

// Version is reported by the manifest and the health endpoints.
const Version = "0.3.0"

type Config struct {
	HTTPAddr          string
	LogLevel          string
	LogFormat         string
	RequestTimeout    time.Duration
	ResolveTimeout    time.Duration
	BaseURL           string
	UserAgent         string
	WebshareBaseURL   string
	RealDebridBaseURL string
	ProxyStreams      bool
	ProxyAllowPrivate bool
	ResolverProbe     bool
	ResolverWorkers   int
	SearchLimit       int
	MaxStreams        int
	RedisURL          string
	TMDBAPIKey        string
	TMDBBaseURL       string
	TMDBLanguage      string
	CinemetaBaseURL   string
	MetadataCacheTTL  time.Duration
	RateLimitRPS      float64
	RateLimitBurst    int
	OTLPEndpoint      string
}

func LoadConfig() Config {
	return Config{
		HTTPAddr:          getEnv("HTTP_ADDR", defaultHTTPAddr()),
		LogLevel:          strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFormat:         strings.ToLower(getEnv("LOG_FORMAT", "text")),
		RequestTimeout:    getEnvDuration("REQUEST_TIMEOUT_SECONDS", 15*time.Second),
		ResolveTimeout:    getEnvDuration("RESOLVE_TIMEOUT_SECONDS", 45*time.Second),
		BaseURL:           strings.TrimRight(getEnv("ADDON_BASE_URL", ""), "/"),
		UserAgent:         getEnv("ADDON_USER_AGENT", webshare.DefaultUserAgent),
		WebshareBaseURL:   getEnv("WEBSHARE_BASE_URL", "https://webshare.cz/api"),
		RealDebridBaseURL: getEnv("REALDEBRID_BASE_URL", "https://api.real-debrid.com/rest/1.0"),
		ProxyStreams:      getEnvBool("PROXY_STREAMS", true),
		ProxyAllowPrivate: getEnvBool("PROXY_ALLOW_PRIVATE", false),
		ResolverProbe:     getEnvBool("RESOLVER_PROBE", true),
		ResolverWorkers:   getEnvInt("RESOLVER_CONCURRENCY", 20),
		SearchLimit:       getEnvInt("SEARCH_LIMIT", 100),
		MaxStreams:        getEnvInt("MAX_STREAMS", 20),
		RedisURL:          getEnv("REDIS_URL", ""),
		TMDBAPIKey:        strings.TrimSpace(os.Getenv("TMDB_API_KEY")),
		TMDBBaseURL:       getEnv("TMDB_BASE_URL", "https://api.themoviedb.org/3"),
		TMDBLanguage:      getEnv("TMDB_LANGUAGE", "cs"),
		CinemetaBaseURL:   getEnv("CINEMETA_BASE_URL", "https://v3-cinemeta.strem.io"),
		MetadataCacheTTL:  time.Duration(getEnvInt("METADATA_CACHE_TTL_HOURS", 24)) * time.Hour,
		RateLimitRPS:      float64(getEnvInt("RATE_LIMIT_RPS", 20)),
		RateLimitBurst:    getEnvInt("RATE_LIMIT_BURST", 40),
		OTLPEndpoint:      getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
	}
}

// defaultHTTPAddr honours the HOST/PORT pair set by PaaS runtimes.
func defaultHTTPAddr() string {
	port := getEnv("PORT", "3000")
	return strings.TrimSpace(os.Getenv("HOST")) + ":" + port
}

func getEnv(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func getEnvInt(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	raw := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if raw == "" {
		return fallback
	}
	switch raw {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

// getEnvDuration reads whole seconds.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	seconds := getEnvInt(key, 0)
	if seconds == 0 {
		return fallback
	}
	return time.Duration(seconds) * time.Second
}
