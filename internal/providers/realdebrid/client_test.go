package realdebrid

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"wsaddon/internal/domain"
)

const testKey = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789ABCDEFGHIJKLMNOP"

func newPremiumServer(t *testing.T, calls *atomic.Int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.Header.Get("Authorization") != "Bearer "+testKey {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"bad_token","error_code":8}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/user":
			_, _ = w.Write([]byte(`{"id":1,"username":"jan","type":"premium"}`))
		case "/unrestrict/check":
			_ = r.ParseForm()
			switch r.PostForm.Get("link") {
			case "https://unsupported.example/file":
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(`{"error":"hoster_unsupported","error_code":16}`))
			case "https://busy.example/file":
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte(`{"error":"service_unavailable","error_code":25}`))
			default:
				_, _ = w.Write([]byte(`{"host":"webshare.cz","link":"x","filename":"movie.mkv","filesize":10,"supported":1}`))
			}
		case "/unrestrict/link":
			_ = r.ParseForm()
			if r.Header.Get("Content-Type") != "application/x-www-form-urlencoded" {
				t.Errorf("expected form encoding, got %q", r.Header.Get("Content-Type"))
			}
			if r.PostForm.Get("link") == "https://empty.example/file" {
				_, _ = w.Write([]byte(`{"id":"x"}`))
				return
			}
			_, _ = w.Write([]byte(`{"id":"x","filename":"movie.mkv","mimeType":"video/x-matroska","filesize":1234,"download":"https://rd.example/d/movie.mkv"}`))
		default:
			http.NotFound(w, r)
		}
	}))
}

func TestValidateKeyRejectsMalformedWithoutNetwork(t *testing.T) {
	var calls atomic.Int32
	srv := newPremiumServer(t, &calls)
	defer srv.Close()

	client := NewClient(Config{BaseURL: srv.URL})
	for _, key := range []string{"", "short", "has spaces in the key value!!", "ABCDEFGHIJKLMNOPQRSTUVWXYZ-0123456789"} {
		if client.ValidateKey(context.Background(), key) {
			t.Errorf("expected %q to be rejected", key)
		}
	}
	if calls.Load() != 0 {
		t.Fatalf("expected no network calls, got %d", calls.Load())
	}
}

func TestValidateKey(t *testing.T) {
	var calls atomic.Int32
	srv := newPremiumServer(t, &calls)
	defer srv.Close()

	client := NewClient(Config{BaseURL: srv.URL})
	if !client.ValidateKey(context.Background(), testKey) {
		t.Fatal("expected valid key")
	}
	if client.ValidateKey(context.Background(), "ZZZZZZZZZZZZZZZZZZZZZZZZZZZZZZ") {
		t.Fatal("expected unauthorized key to be invalid")
	}
	if calls.Load() != 2 {
		t.Fatalf("expected exactly one call per validation, got %d", calls.Load())
	}
}

func TestCheckLink(t *testing.T) {
	var calls atomic.Int32
	srv := newPremiumServer(t, &calls)
	defer srv.Close()
	client := NewClient(Config{BaseURL: srv.URL})

	if err := client.CheckLink(context.Background(), testKey, "https://vip.wsfiles.cz/file"); err != nil {
		t.Fatalf("expected supported link, got %v", err)
	}
	err := client.CheckLink(context.Background(), testKey, "https://unsupported.example/file")
	if !errors.Is(err, domain.ErrUnsupportedLink) {
		t.Fatalf("expected ErrUnsupportedLink, got %v", err)
	}
	err = client.CheckLink(context.Background(), testKey, "https://busy.example/file")
	if err == nil || errors.Is(err, domain.ErrUnsupportedLink) {
		t.Fatalf("expected transient error for 503, got %v", err)
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.HTTPStatusCode() != http.StatusServiceUnavailable {
		t.Fatalf("expected APIError with 503, got %v", err)
	}
}

func TestUnrestrict(t *testing.T) {
	var calls atomic.Int32
	srv := newPremiumServer(t, &calls)
	defer srv.Close()
	client := NewClient(Config{BaseURL: srv.URL})

	link, err := client.Unrestrict(context.Background(), testKey, "https://vip.wsfiles.cz/file")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if link.URL != "https://rd.example/d/movie.mkv" || link.ContentType != "video/x-matroska" || link.SizeBytes != 1234 {
		t.Fatalf("unexpected premium link %+v", link)
	}

	_, err = client.Unrestrict(context.Background(), testKey, "https://empty.example/file")
	if !errors.Is(err, domain.ErrProtocol) {
		t.Fatalf("expected ErrProtocol for missing download, got %v", err)
	}
}

func TestVerifyAcceptsRedirects(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/ok", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "video/mp4")
	})
	mux.HandleFunc("/gone", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusGone)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := NewClient(Config{BaseURL: srv.URL})
	contentType, err := client.Verify(context.Background(), srv.URL+"/ok")
	if err != nil || contentType != "video/mp4" {
		t.Fatalf("expected video/mp4, got %q (%v)", contentType, err)
	}
	if _, err := client.Verify(context.Background(), srv.URL+"/gone"); err == nil {
		t.Fatal("expected error for 410")
	}
}
