package classifier

import (
	"sitemap-audit/pkg/probe"
)

// Category is the actionable classification of one inventory URL.
type Category string

const (
	CategoryOK          Category = "ok"
	CategoryRedirect    Category = "redirect"
	CategoryBroken      Category = "broken"
	CategorySoftFailure Category = "soft_failure"
	CategoryUnresolved  Category = "unresolved"
)

// Record is the canonical report row for one URL. Written once per scan;
// only SuggestedURL is filled in afterwards, by the deferred suggestion pass.
type Record struct {
	URL              string   `json:"url"`
	StatusCode       int      `json:"http_status"`
	NetworkErr       string   `json:"network_error,omitempty"`
	RedirectURL      string   `json:"redirect_url,omitempty"`
	Category         Category `json:"category"`
	Redundant        bool     `json:"is_redundant_redirect"`
	RedundancyTarget string   `json:"redundancy_target,omitempty"`
	SuggestedURL     string   `json:"url_suggested,omitempty"`
	SoftIndicators   []string `json:"soft_404_indicators,omitempty"`
	ElapsedMs        int64    `json:"elapsed_ms"`
}

// FromProbe derives a record from a terminal probe result.
func FromProbe(res probe.Result) Record {
	rec := Record{
		URL:         res.URL,
		StatusCode:  res.StatusCode,
		NetworkErr:  res.NetworkErr,
		RedirectURL: res.RedirectTarget,
		ElapsedMs:   res.ElapsedMs,
	}

	switch {
	case res.IsSuccess():
		rec.Category = CategoryOK
	case res.IsRedirect():
		rec.Category = CategoryRedirect
	default:
		// Network failures, 4xx and 5xx all land here, including a 429
		// that survived the retry budget.
		rec.Category = CategoryBroken
	}

	return rec
}

// Unresolved builds the placeholder record for a probe slot that failed
// outside the probe's own error contract.
func Unresolved(url string) Record {
	return Record{URL: url, Category: CategoryUnresolved}
}
