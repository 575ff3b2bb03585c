package compliance

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"
)

func newTestChecker() *Checker {
	return New(Config{UserAgent: "test-bot", Timeout: time.Second}, zap.NewNop())
}

func robotsServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/robots.txt" {
			http.NotFound(w, r)
			return
		}
		w.WriteHeader(status)
		if _, err := w.Write([]byte(body)); err != nil {
			t.Errorf("write robots body: %v", err)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestCheckBlanketDisallowDenies(t *testing.T) {
	t.Parallel()

	srv := robotsServer(t, http.StatusOK, "User-agent: *\nDisallow: /\n")
	verdict := newTestChecker().Check(context.Background(), srv.URL+"/products")

	if verdict.Allowed {
		t.Fatalf("expected denial, got %+v", verdict)
	}
	if verdict.PolicySource != srv.URL+"/robots.txt" {
		t.Fatalf("expected policy source recorded, got %q", verdict.PolicySource)
	}
}

func TestCheckPermissivePolicyAllows(t *testing.T) {
	t.Parallel()

	srv := robotsServer(t, http.StatusOK, "User-agent: *\nDisallow: /admin\n")
	verdict := newTestChecker().Check(context.Background(), srv.URL+"/products")

	if !verdict.Allowed {
		t.Fatalf("expected allowance, got %+v", verdict)
	}
}

func TestCheckAbsentPolicyFailsOpen(t *testing.T) {
	t.Parallel()

	srv := robotsServer(t, http.StatusNotFound, "")
	verdict := newTestChecker().Check(context.Background(), srv.URL+"/anything")

	if !verdict.Allowed {
		t.Fatalf("expected fail-open on absent policy, got %+v", verdict)
	}
}

func TestCheckFetchFailureFailsOpen(t *testing.T) {
	t.Parallel()

	srv := robotsServer(t, http.StatusOK, "User-agent: *\nDisallow: /\n")
	srv.Close() // force a connection error
	verdict := newTestChecker().Check(context.Background(), srv.URL+"/anything")

	if !verdict.Allowed {
		t.Fatalf("expected fail-open on fetch failure, got %+v", verdict)
	}
	if verdict.Reason == "" {
		t.Fatal("expected reason recorded on fail-open verdict")
	}
	if verdict.PolicySource != "" {
		t.Fatalf("expected empty policy source when unreachable, got %q", verdict.PolicySource)
	}
}

func TestCheckNilLoggerDefaults(t *testing.T) {
	t.Parallel()

	srv := robotsServer(t, http.StatusOK, "User-agent: *\nDisallow: /\n")
	srv.Close() // the fetch-failure path is the one that logs
	verdict := New(Config{Timeout: time.Second}, nil).Check(context.Background(), srv.URL+"/page")

	if !verdict.Allowed {
		t.Fatalf("expected fail-open verdict, got %+v", verdict)
	}
}

func TestCheckServerErrorFailsOpen(t *testing.T) {
	t.Parallel()

	srv := robotsServer(t, http.StatusInternalServerError, "")
	verdict := newTestChecker().Check(context.Background(), srv.URL+"/anything")

	if !verdict.Allowed {
		t.Fatalf("expected fail-open on policy server error, got %+v", verdict)
	}
}

func TestCheckInvalidURLDenies(t *testing.T) {
	t.Parallel()

	verdict := newTestChecker().Check(context.Background(), "not a url")
	if verdict.Allowed {
		t.Fatalf("expected denial for unparsable URL, got %+v", verdict)
	}
}

func TestCheckCachesPerHost(t *testing.T) {
	t.Parallel()

	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		if _, err := w.Write([]byte("User-agent: *\nDisallow: /private\n")); err != nil {
			t.Errorf("write robots body: %v", err)
		}
	}))
	t.Cleanup(srv.Close)

	checker := newTestChecker()
	checker.Check(context.Background(), srv.URL+"/a")
	checker.Check(context.Background(), srv.URL+"/b")

	if hits != 1 {
		t.Fatalf("expected a single policy fetch, got %d", hits)
	}
}
