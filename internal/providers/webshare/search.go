package webshare

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"wsaddon/internal/domain"
)

var errNoSession = errors.New("webshare: session token required")

// Search asks for up to the configured limit of video files matching query.
// Candidates come back unscored.
func (c *Client) Search(ctx context.Context, session domain.Session, query string) ([]domain.SearchCandidate, error) {
	if !session.Valid() {
		return nil, errNoSession
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("webshare: query is required")
	}
	payload, err := c.post(ctx, "search", url.Values{
		"what":     {query},
		"category": {"video"},
		"limit":    {strconv.Itoa(c.searchLimit)},
		"wst":      {session.Token},
	})
	if err != nil {
		return nil, err
	}
	candidates, skipped, err := parseSearch(payload)
	if err != nil {
		return nil, err
	}
	if skipped > 0 {
		c.logger.Debug("webshare search skipped malformed records",
			slog.String("query", query),
			slog.Int("skipped", skipped),
		)
	}
	return candidates, nil
}

// FileLink requests a forced-HTTPS streaming link for ident.
func (c *Client) FileLink(ctx context.Context, session domain.Session, ident string) (string, error) {
	if !session.Valid() {
		return "", errNoSession
	}
	payload, err := c.post(ctx, "file_link", url.Values{
		"ident":         {ident},
		"download_type": {"video_stream"},
		"force_https":   {"1"},
		"wst":           {session.Token},
	})
	if err != nil {
		return "", err
	}
	return parseFileLink(payload)
}
