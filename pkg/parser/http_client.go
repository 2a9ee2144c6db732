package parser

import (
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
)

// FetchClient downloads sitemap documents with browser-like headers.
type FetchClient struct {
	client     *fasthttp.Client
	timeout    time.Duration
	userAgents []string
}

// NewFetchClient creates an HTTP client for sitemap fetching.
func NewFetchClient() *FetchClient {
	return &FetchClient{
		client: &fasthttp.Client{
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		timeout: 30 * time.Second,
		userAgents: []string{
			"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:109.0) Gecko/20100101 Firefox/121.0",
		},
	}
}

// Download fetches the document at targetURL and returns the decoded body.
// A non-2xx response is an error; gzip payloads are transparently unwrapped.
func (c *FetchClient) Download(ctx context.Context, targetURL string) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(targetURL)
	req.Header.SetMethod(fasthttp.MethodGet)
	c.setRequestHeaders(req, targetURL)

	if err := c.client.DoTimeout(req, resp, c.timeout); err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	status := resp.StatusCode()
	if status < 200 || status > 299 {
		return nil, fmt.Errorf("HTTP %d", status)
	}

	body := make([]byte, len(resp.Body()))
	copy(body, resp.Body())

	if c.isGzipped(targetURL, resp) {
		gz, err := gzip.NewReader(bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("failed to create gzip reader: %w", err)
		}
		defer gz.Close()
		unpacked, err := io.ReadAll(gz)
		if err != nil {
			return nil, fmt.Errorf("failed to decompress body: %w", err)
		}
		return unpacked, nil
	}

	return body, nil
}

// setRequestHeaders adds browser-like headers to avoid bot detection
func (c *FetchClient) setRequestHeaders(req *fasthttp.Request, targetURL string) {
	userAgent := c.userAgents[hash(targetURL)%uint32(len(c.userAgents))]
	req.Header.SetUserAgent(userAgent)

	req.Header.Set("Accept", "application/xml,text/xml,text/plain;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Accept-Encoding", "gzip, deflate")
	req.Header.Set("Connection", "keep-alive")

	if parsedURL, err := url.Parse(targetURL); err == nil {
		req.Header.Set("Referer", fmt.Sprintf("%s://%s/", parsedURL.Scheme, parsedURL.Host))
	}
}

// isGzipped checks if the content is gzipped
func (c *FetchClient) isGzipped(targetURL string, resp *fasthttp.Response) bool {
	return strings.HasSuffix(strings.ToLower(targetURL), ".gz") ||
		string(resp.Header.Peek("Content-Encoding")) == "gzip"
}

// hash provides consistent user agent rotation per URL.
func hash(s string) uint32 {
	h := uint32(0)
	for _, c := range s {
		h = h*31 + uint32(c)
	}
	return h
}
