package resolver

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"wsaddon/internal/domain"
	"wsaddon/internal/retry"
)

type fakeLinks struct {
	mu    sync.Mutex
	links map[string]string
	fail  map[string]int
	calls map[string]int
}

func (f *fakeLinks) FileLink(_ context.Context, _ domain.Session, ident string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = map[string]int{}
	}
	f.calls[ident]++
	if f.calls[ident] <= f.fail[ident] {
		return "", errors.New("webshare file_link: status FATAL")
	}
	link, ok := f.links[ident]
	if !ok {
		return "", errors.New("unknown ident")
	}
	return link, nil
}

func (f *fakeLinks) callCount(ident string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[ident]
}

func fastPolicy() retry.Policy {
	return retry.Policy{MaxAttempts: 3, Backoff: retry.Linear(time.Millisecond), Retryable: retry.Always}
}

func TestDefaultPolicy(t *testing.T) {
	policy := DefaultPolicy()
	if policy.MaxAttempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", policy.MaxAttempts)
	}
	if got := policy.Backoff(2); got != 3*time.Second {
		t.Fatalf("expected 3s before third attempt, got %v", got)
	}
}

func TestResolveAllDropsExhaustedCandidate(t *testing.T) {
	links := &fakeLinks{
		links: map[string]string{"good": "https://cdn.example/good.mkv", "bad": "https://cdn.example/bad.mkv"},
		fail:  map[string]int{"bad": 3},
	}
	r := NewResolver(links, Config{Policy: fastPolicy()})
	streams := []domain.RankedStream{{ID: "bad"}, {ID: "good"}}
	got := r.ResolveAll(context.Background(), domain.Session{Token: "t"}, streams)
	if len(got) != 1 || got[0].ID != "good" {
		t.Fatalf("expected only good stream, got %+v", got)
	}
	if got[0].URL == "" {
		t.Fatalf("expected resolved url")
	}
	if calls := links.callCount("bad"); calls != 3 {
		t.Fatalf("expected 3 attempts for failing candidate, got %d", calls)
	}
	if calls := links.callCount("good"); calls != 1 {
		t.Fatalf("expected single attempt for good candidate, got %d", calls)
	}
}

func TestResolveRecoversAfterTransientFailure(t *testing.T) {
	links := &fakeLinks{
		links: map[string]string{"a": "https://cdn.example/a.mkv"},
		fail:  map[string]int{"a": 2},
	}
	r := NewResolver(links, Config{Policy: fastPolicy()})
	got, err := r.Resolve(context.Background(), domain.Session{Token: "t"}, domain.RankedStream{ID: "a", Label: "x"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.URL != "https://cdn.example/a.mkv" || got.Label != "x" {
		t.Fatalf("unexpected result %+v", got)
	}
}

func TestResolveAllPreservesInputOrder(t *testing.T) {
	links := &fakeLinks{links: map[string]string{}}
	var streams []domain.RankedStream
	for _, id := range []string{"e", "d", "c", "b", "a"} {
		links.links[id] = "https://cdn.example/" + id
		streams = append(streams, domain.RankedStream{ID: id})
	}
	r := NewResolver(links, Config{Policy: fastPolicy(), Concurrency: 2})
	got := r.ResolveAll(context.Background(), domain.Session{Token: "t"}, streams)
	if len(got) != len(streams) {
		t.Fatalf("expected %d streams, got %d", len(streams), len(got))
	}
	for i := range streams {
		if got[i].ID != streams[i].ID {
			t.Fatalf("order changed at %d: %s != %s", i, got[i].ID, streams[i].ID)
		}
	}
}

func TestProbeAdoptsRedirectTarget(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/start.mkv", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodHead {
			t.Errorf("expected HEAD probe, got %s", r.Method)
		}
		http.Redirect(w, r, "/final.mkv", http.StatusFound)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	links := &fakeLinks{links: map[string]string{"a": srv.URL + "/start.mkv"}}
	r := NewResolver(links, Config{Probe: true, Policy: fastPolicy()})
	got, err := r.Resolve(context.Background(), domain.Session{Token: "t"}, domain.RankedStream{ID: "a"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.URL != srv.URL+"/final.mkv" {
		t.Fatalf("expected redirect target, got %s", got.URL)
	}
}

func TestProbeErrorStatusRetriesAttempt(t *testing.T) {
	var heads atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if heads.Add(1) == 1 {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "video/x-matroska")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	links := &fakeLinks{links: map[string]string{"a": srv.URL + "/a.mkv"}}
	r := NewResolver(links, Config{Probe: true, Policy: fastPolicy()})
	got, err := r.Resolve(context.Background(), domain.Session{Token: "t"}, domain.RankedStream{ID: "a"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if links.callCount("a") != 2 {
		t.Fatalf("expected a second file_link attempt after 404 probe, got %d", links.callCount("a"))
	}
	if got.ContentType != "video/x-matroska" {
		t.Fatalf("expected probed content type, got %q", got.ContentType)
	}
}

func TestProbeFailureKeepsUnverifiedLink(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	dead := srv.URL + "/a.mkv"
	srv.Close()

	links := &fakeLinks{links: map[string]string{"a": dead}}
	r := NewResolver(links, Config{Probe: true, Policy: fastPolicy()})
	got, err := r.Resolve(context.Background(), domain.Session{Token: "t"}, domain.RankedStream{ID: "a"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.URL != dead {
		t.Fatalf("expected unverified link kept, got %s", got.URL)
	}
	if links.callCount("a") != 1 {
		t.Fatalf("expected one attempt, got %d", links.callCount("a"))
	}
}
