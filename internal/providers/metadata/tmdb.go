package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"wsaddon/internal/domain"
	"wsaddon/internal/metrics"
)

const (
	defaultTMDBBaseURL  = "https://api.themoviedb.org/3"
	defaultTMDBLanguage = "cs"
)

type TMDBConfig struct {
	APIKey   string
	BaseURL  string
	Language string
	Client   *http.Client
}

type TMDB struct {
	apiKey   string
	baseURL  string
	language string
	http     *http.Client
}

type findResponse struct {
	MovieResults []struct {
		Title         string `json:"title"`
		OriginalTitle string `json:"original_title"`
	} `json:"movie_results"`
	TVResults []struct {
		Name         string `json:"name"`
		OriginalName string `json:"original_name"`
	} `json:"tv_results"`
}

func NewTMDB(cfg TMDBConfig) *TMDB {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultTMDBBaseURL
	}
	language := strings.TrimSpace(cfg.Language)
	if language == "" {
		language = defaultTMDBLanguage
	}
	httpClient := cfg.Client
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &TMDB{
		apiKey:   strings.TrimSpace(cfg.APIKey),
		baseURL:  strings.TrimRight(baseURL, "/"),
		language: language,
		http:     httpClient,
	}
}

func (c *TMDB) Enabled() bool {
	return c.apiKey != ""
}

func (c *TMDB) Lookup(ctx context.Context, ref Ref) (Title, error) {
	if !c.Enabled() {
		return Title{}, domain.ErrNotFound
	}
	started := time.Now()
	title, err := c.find(ctx, ref)
	metrics.ObserveUpstream("tmdb", "find", err, time.Since(started))
	return title, err
}

func (c *TMDB) find(ctx context.Context, ref Ref) (Title, error) {
	params := url.Values{
		"external_source": {"imdb_id"},
		"language":        {c.language},
	}
	// v4 read access tokens are JWTs; v3 keys go in the query string.
	bearer := strings.Contains(c.apiKey, ".")
	if !bearer {
		params.Set("api_key", c.apiKey)
	}
	reqURL := c.baseURL + "/find/" + url.PathEscape(ref.IMDbID) + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return Title{}, err
	}
	req.Header.Set("Accept", "application/json")
	if bearer {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return Title{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return Title{}, fmt.Errorf("tmdb HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var response findResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 512*1024)).Decode(&response); err != nil {
		return Title{}, fmt.Errorf("%w: tmdb find: %v", domain.ErrProtocol, err)
	}

	switch ref.Kind {
	case domain.MediaKindMovie:
		if len(response.MovieResults) > 0 {
			first := response.MovieResults[0]
			return Title{Name: first.Title, OriginalName: first.OriginalTitle}, nil
		}
	case domain.MediaKindSeries:
		if len(response.TVResults) > 0 {
			first := response.TVResults[0]
			return Title{Name: first.Name, OriginalName: first.OriginalName}, nil
		}
	}
	return Title{}, domain.ErrNotFound
}
