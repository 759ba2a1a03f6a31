package search

import (
	"reflect"
	"strings"
	"testing"

	"wsaddon/internal/domain"
)

func TestPlanMovieUsesNamesAsIs(t *testing.T) {
	got := Plan(domain.ShowInfo{Title: "Dune", Kind: domain.MediaKindMovie})
	if want := []string{"Dune"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestPlanSeriesPadsSeasonAndEpisode(t *testing.T) {
	got := Plan(domain.ShowInfo{Title: "Show", Kind: domain.MediaKindSeries, Season: 2, Episode: 5})
	if want := []string{"Show S02E05", "Show 02x05"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestPlanSeriesSpecialsUseSeasonZero(t *testing.T) {
	got := Plan(domain.ShowInfo{Title: "Show", Kind: domain.MediaKindSeries, Season: 0, Episode: 3})
	if want := []string{"Show S00E03", "Show 00x03"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestPlanSeriesEmitsTwoQueriesPerDistinctName(t *testing.T) {
	tests := []struct {
		info  domain.ShowInfo
		names int
	}{
		{domain.ShowInfo{Title: "Dark", OriginalTitle: "Dark", Kind: domain.MediaKindSeries, Season: 1, Episode: 1}, 1},
		{domain.ShowInfo{Title: "Přátelé", OriginalTitle: "Friends", Kind: domain.MediaKindSeries, Season: 10, Episode: 17}, 2},
		{domain.ShowInfo{Title: "The Office", OriginalTitle: "the office", Kind: domain.MediaKindSeries, Season: 3, Episode: 123}, 1},
		{domain.ShowInfo{Title: "  ", OriginalTitle: "Lost", Kind: domain.MediaKindSeries, Season: 4, Episode: 2}, 1},
	}
	for _, tt := range tests {
		queries := Plan(tt.info)
		if len(queries) != 2*tt.names {
			t.Fatalf("%+v: expected %d queries, got %v", tt.info, 2*tt.names, queries)
		}
		for i := 0; i < len(queries); i += 2 {
			if !seasonEpisodeMarker.MatchString(queries[i]) {
				t.Errorf("expected SxxEyy marker in %q", queries[i])
			}
			if !crossMarker.MatchString(queries[i+1]) {
				t.Errorf("expected xxXyy marker in %q", queries[i+1])
			}
		}
		for _, q := range queries {
			if strings.TrimSpace(q) == "" {
				t.Errorf("planner emitted an empty query")
			}
		}
	}
}

func TestPlanKeepsInsertionOrder(t *testing.T) {
	got := Plan(domain.ShowInfo{Title: "Přátelé", OriginalTitle: "Friends", Kind: domain.MediaKindSeries, Season: 1, Episode: 2})
	want := []string{"Přátelé S01E02", "Přátelé 01x02", "Friends S01E02", "Friends 01x02"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}
