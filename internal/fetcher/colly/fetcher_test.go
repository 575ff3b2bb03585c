package collyfetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goryckilukasz-skyscraper/skyscraper-backend/internal/scrape"
)

func TestFetchFillsRawPage(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Accept-Language") == "" {
			t.Error("expected browser headers on outbound request")
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte("<html><body>hello</body></html>"))
	}))
	defer server.Close()

	f := New(Config{UserAgent: "test-agent", Timeout: 5 * time.Second})
	page, err := f.Fetch(context.Background(), scrape.FetchRequest{URL: server.URL})
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if page.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", page.StatusCode)
	}
	if !strings.Contains(string(page.Body), "hello") {
		t.Fatalf("unexpected body: %q", page.Body)
	}
	if page.URL != server.URL {
		t.Fatalf("unexpected request url: %q", page.URL)
	}
	// colly normalizes the host-only URL to a trailing-slash form.
	if strings.TrimSuffix(page.FinalURL, "/") != server.URL {
		t.Fatalf("unexpected final url: %q", page.FinalURL)
	}
	if page.Rendered {
		t.Fatal("static fetch must not be marked rendered")
	}
	if page.Headers.Get("Content-Type") == "" {
		t.Fatal("expected response headers to be captured")
	}
	if page.Duration <= 0 {
		t.Fatalf("expected positive duration, got %v", page.Duration)
	}
}

func TestFetchFollowsRedirects(t *testing.T) {
	t.Parallel()

	var target string
	mux := http.NewServeMux()
	mux.HandleFunc("/start", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/final", http.StatusFound)
	})
	mux.HandleFunc("/final", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("landed"))
	})
	server := httptest.NewServer(mux)
	defer server.Close()
	target = server.URL + "/final"

	f := New(Config{Timeout: 5 * time.Second})
	page, err := f.Fetch(context.Background(), scrape.FetchRequest{URL: server.URL + "/start"})
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if page.FinalURL != target {
		t.Fatalf("expected final url %q, got %q", target, page.FinalURL)
	}
	if page.URL != server.URL+"/start" {
		t.Fatalf("expected original url to be preserved, got %q", page.URL)
	}
}

func TestFetchRejectsErrorStatus(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer server.Close()

	f := New(Config{Timeout: 5 * time.Second})
	if _, err := f.Fetch(context.Background(), scrape.FetchRequest{URL: server.URL}); err == nil {
		t.Fatal("expected error for 404 response")
	}
}

func TestFetchCanceledContext(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := New(Config{Timeout: 5 * time.Second})
	if _, err := f.Fetch(ctx, scrape.FetchRequest{URL: server.URL}); err == nil {
		t.Fatal("expected error for canceled context")
	}
}

func TestBuildCollectorAppliesConfig(t *testing.T) {
	t.Parallel()

	f := New(Config{UserAgent: "coverage-agent", Timeout: time.Second})
	var (
		result   scrape.RawPage
		fetchErr error
	)
	collector := f.buildCollector(scrape.FetchRequest{URL: "https://example.com"}, time.Now(), &result, &fetchErr)
	if collector.UserAgent != "coverage-agent" {
		t.Fatalf("expected user agent override, got %q", collector.UserAgent)
	}
	if !collector.IgnoreRobotsTxt {
		t.Fatal("expected robots txt handling to be left to the compliance stage")
	}
}

func TestRequestTimeoutOverridesConfig(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	f := New(Config{Timeout: 30 * time.Second})
	start := time.Now()
	_, err := f.Fetch(context.Background(), scrape.FetchRequest{
		URL:     server.URL,
		Timeout: 100 * time.Millisecond,
	})
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("timeout did not apply, took %v", elapsed)
	}
}
