package search

import (
	"fmt"
	"strings"

	"wsaddon/internal/domain"
)

// Plan expands a show into literal host queries. Movies search by each
// distinct name; episodes get an SxxEyy and an xxXyy variant per name.
func Plan(info domain.ShowInfo) []string {
	names := distinctNames(info.Title, info.OriginalTitle)
	if info.Kind != domain.MediaKindSeries {
		return names
	}
	queries := make([]string, 0, len(names)*2)
	for _, name := range names {
		queries = append(queries,
			fmt.Sprintf("%s S%02dE%02d", name, info.Season, info.Episode),
			fmt.Sprintf("%s %02dx%02d", name, info.Season, info.Episode),
		)
	}
	return queries
}

func distinctNames(candidates ...string) []string {
	names := make([]string, 0, len(candidates))
	seen := make(map[string]struct{}, len(candidates))
	for _, raw := range candidates {
		name := strings.Join(strings.Fields(raw), " ")
		if name == "" {
			continue
		}
		key := strings.ToLower(name)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		names = append(names, name)
	}
	return names
}
