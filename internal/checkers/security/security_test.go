package security

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/juststeveking/readycheck/internal/check"
)

func byName(results []check.Result) map[string]check.Result {
	out := make(map[string]check.Result, len(results))
	for _, r := range results {
		out[r.Name] = r
	}
	return out
}

var defaultOpts = check.Options{
	"required_headers":     []string{"Strict-Transport-Security", "X-Content-Type-Options"},
	"optional_headers":     []string{"Referrer-Policy"},
	"scan_severity":        "high",
	"insecure_skip_verify": true,
}

func TestCheck_HardenedTLSServer(t *testing.T) {
	s := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Strict-Transport-Security", "max-age=63072000")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Referrer-Policy", "no-referrer")
		http.SetCookie(w, &http.Cookie{Name: "sid", Value: "x", Secure: true, HttpOnly: true, SameSite: http.SameSiteStrictMode})
		w.WriteHeader(http.StatusOK)
	}))
	defer s.Close()

	results, err := New(nil).Check(context.Background(), check.Target{BaseURL: s.URL}, defaultOpts)
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}

	got := byName(results)
	for _, name := range []string{"https", "tls-version", "certificate", "header/strict-transport-security",
		"header/x-content-type-options", "header/referrer-policy", "cors", "cookies", "disclosure"} {
		r, ok := got[name]
		if !ok {
			t.Errorf("missing result %q", name)
			continue
		}
		if r.Status != check.StatusPass {
			t.Errorf("%s = %s (%s), want PASS", name, r.Status, r.Message)
		}
	}
	if !got["https"].Critical {
		t.Error("https result should be critical")
	}
}

func TestCheck_PlainHTTPLeaks(t *testing.T) {
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Server", "nginx/1.18.0")
		w.Header().Set("X-Powered-By", "PHP/8.1")
		w.Header().Set("Access-Control-Allow-Origin", r.Header.Get("Origin"))
		w.Header().Set("Access-Control-Allow-Credentials", "true")
		http.SetCookie(w, &http.Cookie{Name: "sid", Value: "x"})
		w.WriteHeader(http.StatusOK)
	}))
	defer s.Close()

	results, err := New(nil).Check(context.Background(), check.Target{BaseURL: s.URL}, defaultOpts)
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}

	got := byName(results)
	tests := map[string]check.Status{
		"https":                            check.StatusFail,
		"header/strict-transport-security": check.StatusFail,
		"header/referrer-policy":           check.StatusWarn,
		"cors":                             check.StatusFail,
		"cookies":                          check.StatusWarn,
		"disclosure":                       check.StatusFail,
	}
	for name, want := range tests {
		if got[name].Status != want {
			t.Errorf("%s = %s (%s), want %s", name, got[name].Status, got[name].Message, want)
		}
	}
	if _, ok := got["tls-version"]; ok {
		t.Error("tls checks should be skipped for plain HTTP")
	}
}

func TestCheck_LowSeverityDowngradesMissingHeaders(t *testing.T) {
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer s.Close()

	opts := check.Options{"required_headers": []string{"X-Frame-Options"}, "scan_severity": "low"}
	results, err := New(nil).Check(context.Background(), check.Target{BaseURL: s.URL}, opts)
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if got := byName(results)["header/x-frame-options"].Status; got != check.StatusWarn {
		t.Errorf("status = %s, want WARN", got)
	}
}

func TestCheck_UnreachableIsError(t *testing.T) {
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := s.URL
	s.Close()

	results, err := New(nil).Check(context.Background(), check.Target{BaseURL: url}, defaultOpts)
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if got := byName(results)["headers"].Status; got != check.StatusError {
		t.Errorf("headers = %s, want ERROR", got)
	}
}

func TestCheckCORS(t *testing.T) {
	tests := []struct {
		name   string
		origin string
		creds  string
		want   check.Status
	}{
		{"none", "", "", check.StatusPass},
		{"fixed", "https://app.example.com", "true", check.StatusPass},
		{"wildcard", "*", "", check.StatusWarn},
		{"wildcard with credentials", "*", "true", check.StatusFail},
		{"reflected", probeOrigin, "", check.StatusWarn},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := http.Header{}
			if tt.origin != "" {
				h.Set("Access-Control-Allow-Origin", tt.origin)
			}
			if tt.creds != "" {
				h.Set("Access-Control-Allow-Credentials", tt.creds)
			}
			if got := checkCORS(h).Status; got != tt.want {
				t.Errorf("checkCORS() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestCheckCookies(t *testing.T) {
	tests := []struct {
		name      string
		setCookie string
		https     bool
		want      check.Status
	}{
		{"all flags", "sid=abc; Secure; HttpOnly; SameSite=Lax", true, check.StatusPass},
		{"no samesite attribute", "session=abc; HttpOnly", false, check.StatusWarn},
		{"unrecognised samesite", "session=abc; HttpOnly; SameSite=Sometimes", false, check.StatusWarn},
		{"none without secure", "session=abc; HttpOnly; SameSite=None", false, check.StatusWarn},
		{"none with secure", "session=abc; Secure; HttpOnly; SameSite=None", true, check.StatusPass},
		{"missing secure over https", "session=abc; HttpOnly; SameSite=Strict", true, check.StatusWarn},
		{"strict over http", "session=abc; HttpOnly; SameSite=Strict", false, check.StatusPass},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := &http.Response{Header: http.Header{"Set-Cookie": {tt.setCookie}}}
			got := checkCookies(resp.Cookies(), tt.https)
			if got.Status != tt.want {
				t.Errorf("checkCookies(%q) = %s (%s), want %s", tt.setCookie, got.Status, got.Message, tt.want)
			}
		})
	}
}

func TestCheck_CookieWithoutSameSiteWarns(t *testing.T) {
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Add("Set-Cookie", "session=abc; HttpOnly")
		w.WriteHeader(http.StatusOK)
	}))
	defer s.Close()

	results, err := New(nil).Check(context.Background(), check.Target{BaseURL: s.URL}, defaultOpts)
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	got := byName(results)["cookies"]
	if got.Status != check.StatusWarn {
		t.Fatalf("cookies = %s (%s), want WARN", got.Status, got.Message)
	}
	if !strings.Contains(got.Message, "SameSite") {
		t.Errorf("message %q should name SameSite", got.Message)
	}
}
