package security

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/juststeveking/readycheck/internal/check"
)

const Category = "security"

// probeOrigin is sent as Origin to see how the target answers CORS.
const probeOrigin = "https://readycheck.invalid"

var versionPattern = regexp.MustCompile(`\d+(\.\d+)+`)

var tlsVersions = map[string]uint16{
	"1.0": tls.VersionTLS10,
	"1.1": tls.VersionTLS11,
	"1.2": tls.VersionTLS12,
	"1.3": tls.VersionTLS13,
}

// Checker inspects transport security and security-relevant response
// headers of the target.
type Checker struct {
	logger *zap.Logger
}

func New(logger *zap.Logger) *Checker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Checker{logger: logger}
}

func (c *Checker) Category() string { return Category }

func (c *Checker) Check(ctx context.Context, target check.Target, opts check.Options) ([]check.Result, error) {
	u, err := url.Parse(target.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	insecure := opts.Bool("insecure_skip_verify", false)
	timeout := opts.Duration("request_timeout", 10*time.Second)

	var results []check.Result
	if u.Scheme == "https" {
		results = append(results, check.Pass("https", "served over HTTPS").WithCritical())
		results = append(results, c.checkTLS(ctx, u, opts, insecure, timeout)...)
	} else {
		results = append(results, check.Fail("https", "served over plain %s", strings.ToUpper(u.Scheme)).WithCritical())
	}

	resp, err := fetch(ctx, target, insecure, timeout)
	if err != nil {
		c.logger.Warn("security_fetch_failed", zap.String("url", target.BaseURL), zap.Error(err))
		return append(results, check.Error("headers", "could not fetch %s: %v", target.BaseURL, err)), nil
	}

	results = append(results, checkHeaders(resp.Header, opts)...)
	results = append(results, checkCORS(resp.Header))
	results = append(results, checkCookies(resp.Cookies(), u.Scheme == "https"))
	results = append(results, checkDisclosure(resp.Header))
	return results, nil
}

// checkTLS dials the target and inspects the negotiated protocol and the
// leaf certificate.
func (c *Checker) checkTLS(ctx context.Context, u *url.URL, opts check.Options, insecure bool, timeout time.Duration) []check.Result {
	host := u.Host
	if u.Port() == "" {
		host = net.JoinHostPort(u.Hostname(), "443")
	}

	dialer := &tls.Dialer{
		NetDialer: &net.Dialer{Timeout: timeout},
		Config:    &tls.Config{ServerName: u.Hostname(), InsecureSkipVerify: insecure},
	}
	conn, err := dialer.DialContext(ctx, "tcp", host)
	if err != nil {
		return []check.Result{check.Error("tls", "TLS connection failed: %v", err)}
	}
	defer conn.Close()

	state := conn.(*tls.Conn).ConnectionState()
	var results []check.Result

	minName := opts.String("min_tls_version", "1.2")
	minVersion, ok := tlsVersions[minName]
	if !ok {
		minVersion = tls.VersionTLS12
	}
	if state.Version < minVersion {
		results = append(results, check.Fail("tls-version", "negotiated %s, minimum is TLS %s", tls.VersionName(state.Version), minName))
	} else {
		results = append(results, check.Pass("tls-version", "negotiated %s", tls.VersionName(state.Version)))
	}

	if len(state.PeerCertificates) == 0 {
		return append(results, check.Fail("certificate", "no certificates presented"))
	}
	cert := state.PeerCertificates[0]
	days := time.Until(cert.NotAfter).Hours() / 24
	warnDays := float64(opts.Int("cert_warn_days", 30))
	failDays := float64(opts.Int("cert_fail_days", 7))

	switch {
	case time.Now().After(cert.NotAfter):
		results = append(results, check.Fail("certificate", "certificate expired on %s", cert.NotAfter.Format("2006-01-02")).WithMeasure(days, failDays))
	case days < failDays:
		results = append(results, check.Fail("certificate", "certificate expires in %.0f days", days).WithMeasure(days, failDays))
	case days < warnDays:
		results = append(results, check.Warn("certificate", "certificate expires in %.0f days", days).WithMeasure(days, warnDays))
	default:
		results = append(results, check.Pass("certificate", "certificate valid for %.0f days", days).WithMeasure(days, warnDays))
	}
	return results
}

func fetch(ctx context.Context, target check.Target, insecure bool, timeout time.Duration) (*http.Response, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: insecure}
	client := &http.Client{
		Timeout:   timeout,
		Transport: transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	defer client.CloseIdleConnections()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.BaseURL, nil)
	if err != nil {
		return nil, err
	}
	for key, value := range target.Headers {
		req.Header.Set(key, value)
	}
	req.Header.Set("Origin", probeOrigin)

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<20))
	resp.Body.Close()
	return resp, nil
}

func checkHeaders(h http.Header, opts check.Options) []check.Result {
	strict := strings.EqualFold(opts.String("scan_severity", "high"), "high")

	var results []check.Result
	for _, name := range opts.Strings("required_headers", nil) {
		id := "header/" + strings.ToLower(name)
		switch {
		case h.Get(name) != "":
			results = append(results, check.Pass(id, "%s present", name))
		case strict:
			results = append(results, check.Fail(id, "%s missing", name))
		default:
			results = append(results, check.Warn(id, "%s missing", name))
		}
	}
	for _, name := range opts.Strings("optional_headers", nil) {
		id := "header/" + strings.ToLower(name)
		if h.Get(name) != "" {
			results = append(results, check.Pass(id, "%s present", name).WithWeight(0.5))
		} else {
			results = append(results, check.Warn(id, "%s missing", name).WithWeight(0.5))
		}
	}
	return results
}

func checkCORS(h http.Header) check.Result {
	origin := h.Get("Access-Control-Allow-Origin")
	creds := strings.EqualFold(h.Get("Access-Control-Allow-Credentials"), "true")

	switch {
	case origin == "":
		return check.Pass("cors", "cross-origin requests not allowed for unknown origins")
	case origin == probeOrigin && creds:
		return check.Fail("cors", "arbitrary origins are reflected with credentials allowed")
	case origin == "*" && creds:
		return check.Fail("cors", "wildcard origin combined with credentials")
	case origin == "*":
		return check.Warn("cors", "wildcard Access-Control-Allow-Origin")
	case origin == probeOrigin:
		return check.Warn("cors", "arbitrary origins are reflected")
	default:
		return check.Pass("cors", "origin restricted to %s", origin)
	}
}

func checkCookies(cookies []*http.Cookie, https bool) check.Result {
	if len(cookies) == 0 {
		return check.Pass("cookies", "no cookies set")
	}

	var problems []string
	for _, ck := range cookies {
		var missing []string
		// Browsers reject SameSite=None without Secure.
		if (https || ck.SameSite == http.SameSiteNoneMode) && !ck.Secure {
			missing = append(missing, "Secure")
		}
		if !ck.HttpOnly {
			missing = append(missing, "HttpOnly")
		}
		// An absent attribute parses to 0, an unknown one to SameSiteDefaultMode.
		if ck.SameSite == 0 || ck.SameSite == http.SameSiteDefaultMode {
			missing = append(missing, "SameSite")
		}
		if len(missing) > 0 {
			problems = append(problems, fmt.Sprintf("%s (%s)", ck.Name, strings.Join(missing, ", ")))
		}
	}
	if len(problems) > 0 {
		return check.Warn("cookies", "cookie flags missing: %s", strings.Join(problems, "; "))
	}
	return check.Pass("cookies", "%d cookies carry secure flags", len(cookies))
}

func checkDisclosure(h http.Header) check.Result {
	var leaks []string
	if server := h.Get("Server"); server != "" && versionPattern.MatchString(server) {
		leaks = append(leaks, "Server: "+server)
	}
	if powered := h.Get("X-Powered-By"); powered != "" {
		leaks = append(leaks, "X-Powered-By: "+powered)
	}
	if len(leaks) > 0 {
		return check.Fail("disclosure", "technology details exposed (%s)", strings.Join(leaks, "; "))
	}
	return check.Pass("disclosure", "no version details in response headers")
}
