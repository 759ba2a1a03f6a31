// Package metadata turns a Stremio content id into the ShowInfo consumed by
// the resolution pipeline. TMDB is asked first, Cinemeta second.
package metadata

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"wsaddon/internal/domain"
)

var imdbPattern = regexp.MustCompile(`^tt\d+$`)

// Ref identifies one title (and for series one episode) by IMDb id.
type Ref struct {
	IMDbID  string
	Kind    domain.MediaKind
	Season  int
	Episode int
}

// Title is what a provider knows about a Ref.
type Title struct {
	Name         string `json:"name"`
	OriginalName string `json:"originalName,omitempty"`
}

type Provider interface {
	Lookup(ctx context.Context, ref Ref) (Title, error)
}

// ParseID accepts "tt123" for movies and "tt123:season:episode" for series.
// Season 0 holds specials; episodes start at 1.
func ParseID(kind domain.MediaKind, id string) (Ref, error) {
	id = strings.TrimSpace(id)
	switch kind {
	case domain.MediaKindMovie:
		if !imdbPattern.MatchString(id) {
			return Ref{}, fmt.Errorf("%w: movie id %q", domain.ErrNotFound, id)
		}
		return Ref{IMDbID: id, Kind: kind}, nil
	case domain.MediaKindSeries:
		segments := strings.Split(id, ":")
		if len(segments) != 3 || !imdbPattern.MatchString(segments[0]) {
			return Ref{}, fmt.Errorf("%w: series id %q", domain.ErrNotFound, id)
		}
		season, errSeason := strconv.Atoi(segments[1])
		episode, errEpisode := strconv.Atoi(segments[2])
		if errSeason != nil || errEpisode != nil || season < 0 || episode <= 0 {
			return Ref{}, fmt.Errorf("%w: series id %q", domain.ErrNotFound, id)
		}
		return Ref{IMDbID: segments[0], Kind: kind, Season: season, Episode: episode}, nil
	default:
		return Ref{}, fmt.Errorf("%w: media kind %q", domain.ErrNotFound, kind)
	}
}

// Chain asks each provider in order; the first title found wins and
// provider errors count as absence.
type Chain struct {
	providers []Provider
	logger    *slog.Logger
}

func NewChain(logger *slog.Logger, providers ...Provider) *Chain {
	if logger == nil {
		logger = slog.Default()
	}
	return &Chain{providers: providers, logger: logger}
}

func (c *Chain) Lookup(ctx context.Context, ref Ref) (Title, error) {
	for _, provider := range c.providers {
		title, err := provider.Lookup(ctx, ref)
		if err == nil && strings.TrimSpace(title.Name) != "" {
			return title, nil
		}
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			c.logger.Debug("metadata provider failed",
				slog.String("imdb", ref.IMDbID),
				slog.String("provider", fmt.Sprintf("%T", provider)),
				slog.String("error", err.Error()),
			)
		}
	}
	return Title{}, domain.ErrNotFound
}

type Finder struct {
	provider Provider
}

func NewFinder(provider Provider) *Finder {
	return &Finder{provider: provider}
}

// FindShowInfo returns domain.ErrNotFound for unknown kinds, malformed ids
// and titles no provider knows.
func (f *Finder) FindShowInfo(ctx context.Context, rawKind, id string) (domain.ShowInfo, error) {
	kind, ok := domain.NormalizeMediaKind(rawKind)
	if !ok {
		return domain.ShowInfo{}, fmt.Errorf("%w: media kind %q", domain.ErrNotFound, rawKind)
	}
	ref, err := ParseID(kind, id)
	if err != nil {
		return domain.ShowInfo{}, err
	}
	title, err := f.provider.Lookup(ctx, ref)
	if err != nil {
		return domain.ShowInfo{}, err
	}
	original := strings.TrimSpace(title.OriginalName)
	if strings.EqualFold(original, strings.TrimSpace(title.Name)) {
		original = ""
	}
	return domain.ShowInfo{
		Title:         strings.TrimSpace(title.Name),
		OriginalTitle: original,
		Kind:          ref.Kind,
		Season:        ref.Season,
		Episode:       ref.Episode,
	}, nil
}
