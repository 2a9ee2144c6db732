package probe

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"net/url"
	"strings"
	"time"

	"github.com/valyala/fasthttp"

	"sitemap-audit/pkg/logger"
)

// HostPolicy attaches extra headers to requests whose hostname ends with
// Suffix. Some hosts gate responses behind a static header.
type HostPolicy struct {
	Suffix  string
	Headers map[string]string
}

// RetryPolicy defines backoff behavior for rate-limited (429) responses.
// Other failures are never retried.
type RetryPolicy struct {
	MaxAttempts   int
	BaseDelay     time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
	JitterEnabled bool
}

// DefaultRetryPolicy bounds 429 retries to a few attempts with exponential
// backoff so a rate-limiting host cannot stall a scan indefinitely.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:   4,
		BaseDelay:     500 * time.Millisecond,
		MaxDelay:      10 * time.Second,
		BackoffFactor: 2.0,
		JitterEnabled: true,
	}
}

// Result is the terminal outcome of probing one URL. StatusCode 0 with a
// non-empty NetworkErr marks a connection or timeout failure.
type Result struct {
	URL            string `json:"url"`
	StatusCode     int    `json:"http_status"`
	NetworkErr     string `json:"network_error,omitempty"`
	RedirectTarget string `json:"redirect_target,omitempty"`
	ElapsedMs      int64  `json:"elapsed_ms"`
	Attempts       int    `json:"attempts"`
}

// IsNetworkError reports whether the probe never got an HTTP response.
func (r Result) IsNetworkError() bool {
	return r.StatusCode == 0
}

// IsSuccess reports a 2xx terminal status.
func (r Result) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode <= 299
}

// IsRedirect reports a 3xx terminal status.
func (r Result) IsRedirect() bool {
	return r.StatusCode >= 300 && r.StatusCode <= 399
}

// Prober issues classification-oriented requests with redirects disabled at
// the transport level, so a 3xx is observed directly and its Location header
// can be captured.
type Prober struct {
	client     *fasthttp.Client
	timeout    time.Duration
	retry      RetryPolicy
	policies   []HostPolicy
	userAgents []string
	log        *logger.Logger
}

type ProberOption func(*Prober)

// WithTimeout sets the per-request upper bound.
func WithTimeout(d time.Duration) ProberOption {
	return func(p *Prober) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// WithRetryPolicy overrides the 429 backoff policy.
func WithRetryPolicy(policy RetryPolicy) ProberOption {
	return func(p *Prober) {
		if policy.MaxAttempts > 0 {
			p.retry = policy
		}
	}
}

// WithHostPolicies installs the per-host header table.
func WithHostPolicies(policies []HostPolicy) ProberOption {
	return func(p *Prober) {
		p.policies = policies
	}
}

func NewProber(opts ...ProberOption) *Prober {
	p := &Prober{
		client: &fasthttp.Client{
			ReadTimeout:         15 * time.Second,
			WriteTimeout:        15 * time.Second,
			MaxIdleConnDuration: 10 * time.Minute,
		},
		timeout: 15 * time.Second,
		retry:   DefaultRetryPolicy(),
		userAgents: []string{
			"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		},
		log: logger.GetLogger().WithField("component", "prober"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Probe classifies one URL. A 429 response is retried with exponential
// backoff up to the policy's attempt bound; an exhausted 429 surfaces as the
// terminal status. All other statuses and network failures are terminal on
// first observation.
func (p *Prober) Probe(ctx context.Context, targetURL string) Result {
	start := time.Now()
	result := Result{URL: targetURL}

	for attempt := 1; attempt <= p.retry.MaxAttempts; attempt++ {
		result.Attempts = attempt

		select {
		case <-ctx.Done():
			result.StatusCode = 0
			result.NetworkErr = ctx.Err().Error()
			result.ElapsedMs = time.Since(start).Milliseconds()
			return result
		default:
		}

		status, location, err := p.request(targetURL)
		if err != nil {
			result.StatusCode = 0
			result.NetworkErr = err.Error()
			break
		}

		result.StatusCode = status
		result.NetworkErr = ""
		if status >= 300 && status <= 399 {
			result.RedirectTarget = location
		}

		if status != fasthttp.StatusTooManyRequests || attempt == p.retry.MaxAttempts {
			break
		}

		delay := p.backoffDelay(attempt)
		p.log.WithFields(map[string]interface{}{
			"attempt":  attempt,
			"delay_ms": delay.Milliseconds(),
		}).Debug("Rate limited, backing off")

		select {
		case <-ctx.Done():
			result.ElapsedMs = time.Since(start).Milliseconds()
			return result
		case <-time.After(delay):
		}
	}

	result.ElapsedMs = time.Since(start).Milliseconds()
	return result
}

// request issues a HEAD first and falls back to GET when the host rejects or
// does not implement HEAD.
func (p *Prober) request(targetURL string) (int, string, error) {
	status, location, err := p.do(targetURL, fasthttp.MethodHead)
	if err != nil || status == fasthttp.StatusMethodNotAllowed || status == fasthttp.StatusNotImplemented {
		return p.do(targetURL, fasthttp.MethodGet)
	}
	return status, location, nil
}

func (p *Prober) do(targetURL, method string) (int, string, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(targetURL)
	req.Header.SetMethod(method)
	p.setRequestHeaders(req, targetURL)

	if err := p.client.DoTimeout(req, resp, p.timeout); err != nil {
		return 0, "", fmt.Errorf("request failed: %w", err)
	}

	return resp.StatusCode(), string(resp.Header.Peek("Location")), nil
}

// FetchPage downloads the full response body of targetURL following no
// redirects. Used by the soft-404 content pass on URLs that already probed
// as 200.
func (p *Prober) FetchPage(ctx context.Context, targetURL string) (string, int, error) {
	select {
	case <-ctx.Done():
		return "", 0, ctx.Err()
	default:
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(targetURL)
	req.Header.SetMethod(fasthttp.MethodGet)
	p.setRequestHeaders(req, targetURL)

	if err := p.client.DoTimeout(req, resp, p.timeout); err != nil {
		return "", 0, fmt.Errorf("request failed: %w", err)
	}

	body, err := resp.BodyUncompressed()
	if err != nil {
		body = resp.Body()
	}
	return string(body), resp.StatusCode(), nil
}

func (p *Prober) setRequestHeaders(req *fasthttp.Request, targetURL string) {
	userAgent := p.userAgents[hashString(targetURL)%uint32(len(p.userAgents))]
	req.Header.SetUserAgent(userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	parsedURL, err := url.Parse(targetURL)
	if err != nil {
		return
	}
	host := strings.ToLower(parsedURL.Hostname())
	for _, policy := range p.policies {
		if policy.Suffix == "" || !strings.HasSuffix(host, strings.ToLower(policy.Suffix)) {
			continue
		}
		for key, value := range policy.Headers {
			req.Header.Set(key, value)
		}
	}
}

func (p *Prober) backoffDelay(attempt int) time.Duration {
	delay := time.Duration(float64(p.retry.BaseDelay) *
		math.Pow(p.retry.BackoffFactor, float64(attempt-1)))

	if delay > p.retry.MaxDelay {
		delay = p.retry.MaxDelay
	}

	if p.retry.JitterEnabled && delay > 0 {
		jitter := time.Duration(rand.Int63n(int64(delay)/4 + 1))
		delay += jitter
	}

	return delay
}

func hashString(s string) uint32 {
	h := uint32(0)
	for _, c := range s {
		h = h*31 + uint32(c)
	}
	return h
}
