package parser

// Inventory is the deduplicated URL set of one leaf sitemap. URL order
// follows first occurrence in the document so reports stay deterministic.
type Inventory struct {
	SitemapURL string           `json:"sitemap_url"`
	URLs       []string         `json:"urls"`
	Duplicates []DuplicateEntry `json:"duplicates,omitempty"`
}

// DuplicateEntry records a URL that appeared more than once in the raw
// (pre-deduplication) sitemap, with its total occurrence count.
type DuplicateEntry struct {
	URL   string `json:"url"`
	Count int    `json:"count"`
}

// SubtreeFailure records a child sitemap that could not be resolved.
// Failures are scoped to their subtree; siblings keep processing.
type SubtreeFailure struct {
	SitemapURL string `json:"sitemap_url"`
	Reason     string `json:"reason"`
}

// Result is the outcome of resolving one sitemap root.
type Result struct {
	RootURL  string
	Leaves   []Inventory
	Failures []SubtreeFailure
}

// TotalURLs returns the number of distinct URLs across all leaves.
func (r *Result) TotalURLs() int {
	n := 0
	for _, leaf := range r.Leaves {
		n += len(leaf.URLs)
	}
	return n
}

// TotalDuplicates returns the summed duplicate occurrence count across leaves.
func (r *Result) TotalDuplicates() int {
	n := 0
	for _, leaf := range r.Leaves {
		for _, d := range leaf.Duplicates {
			n += d.Count - 1
		}
	}
	return n
}
