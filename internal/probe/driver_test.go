package probe

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestProbe_StatusOK(t *testing.T) {
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(200)
		w.Write([]byte("ok"))
	}))
	defer s.Close()

	d := NewDriver()
	defer d.Close()

	out, err := d.Probe(context.Background(), Request{URL: s.URL, Timeout: 2 * time.Second})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !out.Succeeded || out.Outcome != OutcomeOK {
		t.Fatalf("want success, got %+v", out)
	}
	if out.StatusCode != 200 {
		t.Fatalf("want status 200, got %d", out.StatusCode)
	}
	if out.LatencyMS < 0 {
		t.Fatalf("latency should be >= 0, got %f", out.LatencyMS)
	}
	if out.Timestamp.IsZero() {
		t.Fatal("timestamp not set")
	}
}

func TestProbe_Status500IsNotAnError(t *testing.T) {
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", 500)
	}))
	defer s.Close()

	out, err := NewDriver().Probe(context.Background(), Request{URL: s.URL})
	if err != nil {
		t.Fatalf("non-2xx must not return an error, got %v", err)
	}
	if out.Succeeded {
		t.Fatalf("want failure, got %+v", out)
	}
	if out.StatusCode != 500 || out.Outcome != OutcomeHTTPError {
		t.Fatalf("want 500/http_error, got %d/%s", out.StatusCode, out.Outcome)
	}
}

func TestProbe_TimeoutSetsStatusZero(t *testing.T) {
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(200)
	}))
	defer s.Close()

	out, err := NewDriver().Probe(context.Background(), Request{URL: s.URL, Timeout: 50 * time.Millisecond})
	if err != nil {
		t.Fatalf("timeout must not return an error, got %v", err)
	}
	if out.Succeeded || out.StatusCode != 0 {
		t.Fatalf("want failed probe with status 0, got %+v", out)
	}
	if out.Outcome != OutcomeTimeout {
		t.Fatalf("want timeout outcome, got %s", out.Outcome)
	}
}

func TestProbe_Unreachable(t *testing.T) {
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	addr := s.URL
	s.Close()

	out, err := NewDriver().Probe(context.Background(), Request{URL: addr, Timeout: time.Second})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Outcome != OutcomeUnreachable {
		t.Fatalf("want unreachable, got %+v", out)
	}
}

func TestProbe_MalformedURL(t *testing.T) {
	for _, raw := range []string{"://nope", "localhost:8080/x", "ftp://example.com", "http://"} {
		_, err := NewDriver().Probe(context.Background(), Request{URL: raw})
		if !errors.Is(err, ErrInvalidRequest) {
			t.Errorf("%q: want ErrInvalidRequest, got %v", raw, err)
		}
	}
}

func TestProbe_SendsHeadersAndToken(t *testing.T) {
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer secret" || r.Header.Get("X-Env") != "staging" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer s.Close()

	out, _ := NewDriver().Probe(context.Background(), Request{
		URL:       s.URL,
		Method:    http.MethodPost,
		Headers:   map[string]string{"X-Env": "staging"},
		AuthToken: "secret",
	})
	if out.StatusCode != http.StatusCreated || !out.Succeeded {
		t.Fatalf("want 201 success, got %+v", out)
	}
}

func TestProbe_DoesNotFollowRedirects(t *testing.T) {
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" {
			http.Redirect(w, r, "/next", http.StatusFound)
			return
		}
		w.WriteHeader(200)
	}))
	defer s.Close()

	out, _ := NewDriver().Probe(context.Background(), Request{URL: s.URL + "/"})
	if out.StatusCode != http.StatusFound || out.Succeeded {
		t.Fatalf("want unfollowed 302, got %+v", out)
	}
}

func TestProbe_FinishesWhenCallerCancels(t *testing.T) {
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(100 * time.Millisecond)
		w.WriteHeader(200)
	}))
	defer s.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	out, err := NewDriver().Probe(ctx, Request{URL: s.URL, Timeout: 2 * time.Second})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !out.Succeeded {
		t.Fatalf("in-flight probe should complete after cancellation, got %+v", out)
	}
}
