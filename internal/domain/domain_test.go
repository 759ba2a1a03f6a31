package domain

import "testing"

func TestShowInfoValid(t *testing.T) {
	tests := []struct {
		name string
		info ShowInfo
		want bool
	}{
		{"movie", ShowInfo{Title: "Dune", Kind: MediaKindMovie}, true},
		{"movie with episode", ShowInfo{Title: "Dune", Kind: MediaKindMovie, Season: 1, Episode: 1}, false},
		{"series", ShowInfo{Title: "Show", Kind: MediaKindSeries, Season: 2, Episode: 5}, true},
		{"series without episode", ShowInfo{Title: "Show", Kind: MediaKindSeries, Season: 2}, false},
		{"series special", ShowInfo{Title: "Show", Kind: MediaKindSeries, Season: 0, Episode: 3}, true},
		{"negative season", ShowInfo{Title: "Show", Kind: MediaKindSeries, Season: -1, Episode: 3}, false},
		{"original title only", ShowInfo{OriginalTitle: "Duna", Kind: MediaKindMovie}, true},
		{"no names", ShowInfo{Kind: MediaKindMovie}, false},
		{"unknown kind", ShowInfo{Title: "x", Kind: "channel"}, false},
	}
	for _, tt := range tests {
		if got := tt.info.Valid(); got != tt.want {
			t.Errorf("%s: Valid() = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestAddonConfigDebridEnabled(t *testing.T) {
	for _, raw := range []string{"ano", "ANO", "yes", "true", "1", " on "} {
		if !(AddonConfig{UseRealDebrid: raw}).DebridEnabled() {
			t.Errorf("expected %q to enable debrid", raw)
		}
	}
	for _, raw := range []string{"", "ne", "no", "false", "0", "maybe"} {
		if (AddonConfig{UseRealDebrid: raw}).DebridEnabled() {
			t.Errorf("expected %q to keep debrid disabled", raw)
		}
	}
}

func TestCredentialsMaskedUsername(t *testing.T) {
	if got := (Credentials{Username: "jan.novak@example.cz"}).MaskedUsername(); got != "ja***" {
		t.Fatalf("expected ja***, got %q", got)
	}
	if got := (Credentials{Username: "ab"}).MaskedUsername(); got != "***" {
		t.Fatalf("expected *** for short names, got %q", got)
	}
	if (Credentials{Username: "user"}).Complete() {
		t.Fatalf("expected credentials without password to be incomplete")
	}
}
