package parser

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"sitemap-audit/pkg/logger"
)

// Downloader abstracts document fetching so tests can substitute transports.
type Downloader interface {
	Download(ctx context.Context, url string) ([]byte, error)
}

// Resolver walks a sitemap tree from a root document and produces one
// Inventory per leaf sitemap. The traversal is an explicit worklist with a
// visited set, so deeply nested or cyclic index structures cannot blow the
// stack or loop forever.
type Resolver struct {
	client   Downloader
	log      *logger.Logger
	maxDepth int
	maxURLs  int
}

type ResolverOption func(*Resolver)

// WithMaxDepth bounds how many index levels below the root are followed.
func WithMaxDepth(depth int) ResolverOption {
	return func(r *Resolver) {
		if depth > 0 {
			r.maxDepth = depth
		}
	}
}

// WithMaxURLs caps the raw URL count taken from a single leaf sitemap.
func WithMaxURLs(n int) ResolverOption {
	return func(r *Resolver) {
		if n > 0 {
			r.maxURLs = n
		}
	}
}

// WithDownloader injects a custom fetch client (tests use this).
func WithDownloader(client Downloader) ResolverOption {
	return func(r *Resolver) {
		r.client = client
	}
}

func NewResolver(opts ...ResolverOption) *Resolver {
	r := &Resolver{
		client:   NewFetchClient(),
		log:      logger.GetLogger().WithField("component", "sitemap_resolver"),
		maxDepth: 5,
		maxURLs:  100000,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type workItem struct {
	url   string
	depth int
}

// Resolve fetches rootURL and resolves the sitemap tree below it. A fetch or
// format failure on the root itself is fatal; failures below the root are
// recorded in Result.Failures and siblings keep going.
func (r *Resolver) Resolve(ctx context.Context, rootURL string) (*Result, error) {
	result := &Result{RootURL: rootURL}

	queue := []workItem{{url: rootURL, depth: 0}}
	visited := map[string]bool{rootURL: true}

	for len(queue) > 0 {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		item := queue[0]
		queue = queue[1:]

		doc, err := r.fetchAndClassify(ctx, item.url)
		if err != nil {
			if item.depth == 0 {
				return nil, err
			}
			r.log.WithError(err).WithField("depth", item.depth).Warn("Sub-sitemap failed, continuing with siblings")
			result.Failures = append(result.Failures, SubtreeFailure{
				SitemapURL: item.url,
				Reason:     err.Error(),
			})
			continue
		}

		switch doc.kind {
		case kindIndex:
			for _, child := range doc.children {
				if visited[child] {
					r.log.WithField("url", child).Debug("Skipping already visited sitemap")
					continue
				}
				if item.depth+1 > r.maxDepth {
					result.Failures = append(result.Failures, SubtreeFailure{
						SitemapURL: child,
						Reason:     fmt.Sprintf("max sitemap depth %d exceeded", r.maxDepth),
					})
					continue
				}
				visited[child] = true
				queue = append(queue, workItem{url: child, depth: item.depth + 1})
			}

		case kindLeaf:
			result.Leaves = append(result.Leaves, r.buildInventory(item.url, doc.urls))
		}
	}

	r.log.WithFields(map[string]interface{}{
		"leaves":   len(result.Leaves),
		"failures": len(result.Failures),
		"urls":     result.TotalURLs(),
	}).Info("Sitemap tree resolved")

	return result, nil
}

// fetchAndClassify downloads one document and decodes it, falling back to
// plain-text interpretation when the body is not recognizable XML.
func (r *Resolver) fetchAndClassify(ctx context.Context, sitemapURL string) (*document, error) {
	data, err := r.client.Download(ctx, sitemapURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrFetch, sitemapURL, err)
	}

	doc, err := decodeSitemap(data)
	if err == nil {
		return doc, nil
	}
	if !errors.Is(err, ErrParse) && !errors.Is(err, ErrInvalidFormat) {
		return nil, err
	}

	// Some sitemap endpoints serve one-URL-per-line text documents.
	urls, scanErr := parsePlainText(data)
	if scanErr != nil {
		r.log.WithError(scanErr).WithField("url", sitemapURL).Warn("Plain text sitemap scan stopped early, keeping URLs read so far")
	}
	if len(urls) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidFormat, sitemapURL)
	}
	r.log.WithField("count", len(urls)).Debug("Parsed sitemap as plain text")
	return &document{kind: kindLeaf, urls: urls}, nil
}

// buildInventory deduplicates the raw leaf URL list. The raw multiset is not
// lost: any URL listed more than once lands in Duplicates with its count,
// which downstream sitemap-hygiene reports depend on.
func (r *Resolver) buildInventory(sitemapURL string, raw []string) Inventory {
	if len(raw) > r.maxURLs {
		r.log.WithFields(map[string]interface{}{
			"limit": r.maxURLs,
			"total": len(raw),
		}).Warn("Leaf sitemap exceeds URL limit, truncating")
		raw = raw[:r.maxURLs]
	}

	inv := Inventory{SitemapURL: sitemapURL}
	counts := make(map[string]int, len(raw))

	for _, u := range raw {
		counts[u]++
		if counts[u] == 1 {
			inv.URLs = append(inv.URLs, u)
		}
	}

	for _, u := range inv.URLs {
		if counts[u] > 1 {
			inv.Duplicates = append(inv.Duplicates, DuplicateEntry{URL: u, Count: counts[u]})
		}
	}

	return inv
}

// maxTextLineLen bounds a single plain-text sitemap line. A longer line
// stops the scan with bufio.ErrTooLong.
const maxTextLineLen = 1024 * 1024

// parsePlainText extracts URLs from a text document: the first
// whitespace-delimited token on each line that starts with "http". URLs
// collected before a scan error are returned alongside it.
func parsePlainText(data []byte) ([]string, error) {
	var urls []string

	scanner := bufio.NewScanner(bytes.NewReader(data))
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, maxTextLineLen)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		for _, field := range strings.Fields(line) {
			if strings.HasPrefix(field, "http") {
				urls = append(urls, field)
				break
			}
		}
	}

	return urls, scanner.Err()
}
