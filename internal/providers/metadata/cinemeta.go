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

const defaultCinemetaBaseURL = "https://v3-cinemeta.strem.io"

type Cinemeta struct {
	baseURL string
	http    *http.Client
}

type cinemetaResponse struct {
	Meta *struct {
		Name string `json:"name"`
	} `json:"meta"`
}

func NewCinemeta(baseURL string, client *http.Client) *Cinemeta {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		baseURL = defaultCinemetaBaseURL
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Cinemeta{baseURL: strings.TrimRight(baseURL, "/"), http: client}
}

func (c *Cinemeta) Lookup(ctx context.Context, ref Ref) (Title, error) {
	started := time.Now()
	title, err := c.meta(ctx, ref)
	metrics.ObserveUpstream("cinemeta", "meta", err, time.Since(started))
	return title, err
}

func (c *Cinemeta) meta(ctx context.Context, ref Ref) (Title, error) {
	reqURL := fmt.Sprintf("%s/meta/%s/%s.json", c.baseURL, url.PathEscape(string(ref.Kind)), url.PathEscape(ref.IMDbID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return Title{}, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return Title{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return Title{}, domain.ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return Title{}, fmt.Errorf("cinemeta HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var response cinemetaResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 2*1024*1024)).Decode(&response); err != nil {
		return Title{}, fmt.Errorf("%w: cinemeta meta: %v", domain.ErrProtocol, err)
	}
	if response.Meta == nil || strings.TrimSpace(response.Meta.Name) == "" {
		return Title{}, domain.ErrNotFound
	}
	return Title{Name: response.Meta.Name}, nil
}
