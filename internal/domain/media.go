package domain

import "strings"

type MediaKind string

const (
	MediaKindMovie  MediaKind = "movie"
	MediaKindSeries MediaKind = "series"
)

func NormalizeMediaKind(raw string) (MediaKind, bool) {
	switch MediaKind(strings.ToLower(strings.TrimSpace(raw))) {
	case MediaKindMovie:
		return MediaKindMovie, true
	case MediaKindSeries:
		return MediaKindSeries, true
	default:
		return "", false
	}
}

// ShowInfo is what the metadata collaborator hands to the pipeline.
// Season and Episode are set only for series; season 0 holds specials.
type ShowInfo struct {
	Title         string    `json:"title"`
	OriginalTitle string    `json:"originalTitle,omitempty"`
	Kind          MediaKind `json:"kind"`
	Season        int       `json:"season,omitempty"`
	Episode       int       `json:"episode,omitempty"`
}

func (s ShowInfo) Valid() bool {
	if strings.TrimSpace(s.Title) == "" && strings.TrimSpace(s.OriginalTitle) == "" {
		return false
	}
	switch s.Kind {
	case MediaKindMovie:
		return s.Season == 0 && s.Episode == 0
	case MediaKindSeries:
		return s.Season >= 0 && s.Episode > 0
	default:
		return false
	}
}
