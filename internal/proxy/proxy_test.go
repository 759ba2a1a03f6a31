package proxy

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"wsaddon/internal/domain"
)

func TestEncodeDecodeAcceptsBothAlphabets(t *testing.T) {
	upstream := "https://free.example/dl/abc?token=a+b/c&x=~~~"

	if got, err := Decode(Encode(upstream)); err != nil || got != upstream {
		t.Fatalf("Decode(Encode()) = %q, %v", got, err)
	}
	std := base64.StdEncoding.EncodeToString([]byte(upstream))
	if got, err := Decode(std); err != nil || got != upstream {
		t.Fatalf("Decode(std) = %q, %v", got, err)
	}
	if strings.ContainsAny(Encode(upstream), "+/=") {
		t.Fatalf("Encode produced path-unsafe characters: %q", Encode(upstream))
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	for _, token := range []string{"", "!!!", Encode("ftp://x/y"), Encode("/relative/path")} {
		if _, err := Decode(token); !errors.Is(err, domain.ErrInvalidProxyURL) {
			t.Errorf("Decode(%q) err = %v, want ErrInvalidProxyURL", token, err)
		}
	}
}

func TestURLJoinsBase(t *testing.T) {
	got := URL("https://addon.example/", "https://cdn.example/v.mkv")
	want := "https://addon.example/proxy-stream/" + Encode("https://cdn.example/v.mkv")
	if got != want {
		t.Fatalf("URL = %q, want %q", got, want)
	}
}

func TestValidateTarget(t *testing.T) {
	ctx := context.Background()
	blocked := []string{"http://127.0.0.1/x", "http://localhost:8080/x", "http://10.1.2.3/x", "http://[::1]/x", "http://nas.local/x", "http://169.254.169.254/latest"}
	for _, raw := range blocked {
		u, _ := url.Parse(raw)
		if err := ValidateTarget(ctx, u, false); !errors.Is(err, domain.ErrBlockedProxyTarget) {
			t.Errorf("ValidateTarget(%q) = %v, want ErrBlockedProxyTarget", raw, err)
		}
		if err := ValidateTarget(ctx, u, true); err != nil {
			t.Errorf("ValidateTarget(%q, allowPrivate) = %v", raw, err)
		}
	}
	public, _ := url.Parse("https://93.184.216.34/x")
	if err := ValidateTarget(ctx, public, false); err != nil {
		t.Fatalf("public ip rejected: %v", err)
	}
	ftp, _ := url.Parse("ftp://93.184.216.34/x")
	if err := ValidateTarget(ctx, ftp, false); !errors.Is(err, domain.ErrInvalidProxyURL) {
		t.Fatalf("ftp err = %v", err)
	}
}

type upstreamRecorder struct {
	mu     sync.Mutex
	ranges []string
	heads  int
}

func newUpstream(t *testing.T, rec *upstreamRecorder, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.mu.Lock()
		if r.Method == http.MethodHead {
			rec.heads++
		} else {
			rec.ranges = append(rec.ranges, r.Header.Get("Range"))
		}
		rec.mu.Unlock()

		if r.URL.Path == "/redirect" {
			http.Redirect(w, r, "/video.mkv", http.StatusFound)
			return
		}
		w.Header().Set("Content-Type", "video/x-matroska")
		w.Header().Set("Accept-Ranges", "bytes")
		w.Header().Set("X-Upstream", "yes")
		w.Header().Set("Connection", "keep-alive")
		if r.Header.Get("Range") == "bytes=2-4" {
			w.Header().Set("Content-Range", "bytes 2-4/10")
			w.WriteHeader(http.StatusPartialContent)
			_, _ = io.WriteString(w, body[2:5])
			return
		}
		if r.Method == http.MethodHead {
			w.Header().Set("Content-Length", "10")
			return
		}
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestHandlerRelaysBodyAndHeaders(t *testing.T) {
	rec := &upstreamRecorder{}
	upstream := newUpstream(t, rec, "0123456789")
	h := NewHandler(Config{AllowPrivate: true})

	req := httptest.NewRequest(http.MethodGet, Path(upstream.URL+"/video.mkv"), nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}
	if rr.Body.String() != "0123456789" {
		t.Fatalf("body = %q", rr.Body.String())
	}
	if got := rr.Header().Get("Content-Type"); got != "video/x-matroska" {
		t.Fatalf("content type = %q", got)
	}
	if rr.Header().Get("X-Upstream") != "yes" {
		t.Fatal("upstream header not forwarded")
	}
	if rr.Header().Get("Connection") != "" {
		t.Fatal("connection header must not be forwarded")
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if rec.heads != 1 {
		t.Fatalf("head probes = %d, want 1", rec.heads)
	}
}

func TestHandlerForwardsRange(t *testing.T) {
	rec := &upstreamRecorder{}
	upstream := newUpstream(t, rec, "0123456789")
	h := NewHandler(Config{AllowPrivate: true})

	req := httptest.NewRequest(http.MethodGet, Path(upstream.URL+"/video.mkv"), nil)
	req.Header.Set("Range", "bytes=2-4")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusPartialContent {
		t.Fatalf("status = %d", rr.Code)
	}
	if rr.Body.String() != "234" {
		t.Fatalf("body = %q", rr.Body.String())
	}
	if got := rr.Header().Get("Content-Range"); got != "bytes 2-4/10" {
		t.Fatalf("content range = %q", got)
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.ranges) != 1 || rec.ranges[0] != "bytes=2-4" {
		t.Fatalf("forwarded ranges = %v", rec.ranges)
	}
}

func TestHandlerFollowsRedirects(t *testing.T) {
	rec := &upstreamRecorder{}
	upstream := newUpstream(t, rec, "abcdefghij")
	h := NewHandler(Config{AllowPrivate: true})

	req := httptest.NewRequest(http.MethodGet, Path(upstream.URL+"/redirect"), nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK || rr.Body.String() != "abcdefghij" {
		t.Fatalf("status = %d, body = %q", rr.Code, rr.Body.String())
	}
}

func TestHandlerHeadUsesProbe(t *testing.T) {
	rec := &upstreamRecorder{}
	upstream := newUpstream(t, rec, "0123456789")
	h := NewHandler(Config{AllowPrivate: true})

	req := httptest.NewRequest(http.MethodHead, Path(upstream.URL+"/video.mkv"), nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if rr.Header().Get("Content-Length") != "10" {
		t.Fatalf("content length = %q", rr.Header().Get("Content-Length"))
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.ranges) != 0 {
		t.Fatal("HEAD must not issue the GET")
	}
}

func TestHandlerProbeFailureUsesDefaults(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		_, _ = io.WriteString(w, "payload")
	}))
	defer upstream.Close()
	h := NewHandler(Config{AllowPrivate: true})

	req := httptest.NewRequest(http.MethodGet, Path(upstream.URL+"/v"), nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK || rr.Body.String() != "payload" {
		t.Fatalf("status = %d, body = %q", rr.Code, rr.Body.String())
	}
}

func TestHandlerBlocksPrivateTargets(t *testing.T) {
	h := NewHandler(Config{})
	req := httptest.NewRequest(http.MethodGet, Path("http://127.0.0.1:9/secret"), nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rr.Code)
	}
}

func TestHandlerRejectsBadTokenAndMethod(t *testing.T) {
	h := NewHandler(Config{AllowPrivate: true})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, PathPrefix+"!!!", nil))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("bad token status = %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, Path("https://cdn.example/v"), nil))
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("POST status = %d", rr.Code)
	}
}

func TestHandlerUpstreamDown(t *testing.T) {
	upstream := httptest.NewServer(http.NotFoundHandler())
	addr := upstream.URL
	upstream.Close()

	h := NewHandler(Config{AllowPrivate: true})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, Path(addr+"/v"), nil))
	if rr.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rr.Code)
	}
}

func TestHandlerAcceptsStdTokenWithSlash(t *testing.T) {
	rec := &upstreamRecorder{}
	upstream := newUpstream(t, rec, "0123456789")

	var token string
	for i := 0; i < 1000 && token == ""; i++ {
		candidate := base64.StdEncoding.EncodeToString([]byte(fmt.Sprintf("%s/video-%d.mkv", upstream.URL, i)))
		if strings.Contains(candidate, "/") {
			token = candidate
		}
	}
	if token == "" {
		t.Fatal("no standard token with a slash found")
	}

	h := NewHandler(Config{AllowPrivate: true})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, PathPrefix+token, nil))
	if rr.Code != http.StatusOK || rr.Body.String() != "0123456789" {
		t.Fatalf("token %q: status = %d, body = %q", token, rr.Code, rr.Body.String())
	}
}

func TestHandlerStopsUpstreamWhenCallerLeaves(t *testing.T) {
	upstreamDone := make(chan struct{})
	var once sync.Once
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "video/mp4")
		if r.Method == http.MethodHead {
			return
		}
		defer once.Do(func() { close(upstreamDone) })
		flusher, _ := w.(http.Flusher)
		chunk := make([]byte, 32*1024)
		for {
			if _, err := w.Write(chunk); err != nil {
				return
			}
			if flusher != nil {
				flusher.Flush()
			}
			select {
			case <-r.Context().Done():
				return
			case <-time.After(10 * time.Millisecond):
			}
		}
	}))
	defer upstream.Close()
	front := httptest.NewServer(NewHandler(Config{AllowPrivate: true}))
	defer front.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, front.URL+Path(upstream.URL+"/endless.mp4"), nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	buf := make([]byte, 1024)
	if _, err := io.ReadFull(resp.Body, buf); err != nil {
		t.Fatalf("first read failed: %v", err)
	}
	cancel()
	resp.Body.Close()

	select {
	case <-upstreamDone:
	case <-time.After(5 * time.Second):
		t.Fatal("upstream still streaming after the caller disconnected")
	}
}

func TestTransportRefusesPrivateDial(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "ok")
	}))
	defer upstream.Close()

	guarded := &http.Client{Transport: NewTransport(false)}
	if resp, err := guarded.Get(upstream.URL); !errors.Is(err, domain.ErrBlockedProxyTarget) {
		if resp != nil {
			resp.Body.Close()
		}
		t.Fatalf("guarded dial err = %v, want ErrBlockedProxyTarget", err)
	}

	open := &http.Client{Transport: NewTransport(true)}
	resp, err := open.Get(upstream.URL)
	if err != nil {
		t.Fatalf("allowPrivate dial failed: %v", err)
	}
	resp.Body.Close()
}

func TestGuardDial(t *testing.T) {
	cases := []struct {
		address string
		blocked bool
	}{
		{"127.0.0.1:80", true},
		{"[::1]:443", true},
		{"10.0.0.5:8080", true},
		{"169.254.169.254:80", true},
		{"93.184.216.34:443", false},
		{"[2606:2800:220:1:248:1893:25c8:1946]:443", false},
	}
	for _, tc := range cases {
		err := guardDial("tcp", tc.address, nil)
		if got := errors.Is(err, domain.ErrBlockedProxyTarget); got != tc.blocked {
			t.Errorf("guardDial(%q) = %v, want blocked=%v", tc.address, err, tc.blocked)
		}
	}
}
