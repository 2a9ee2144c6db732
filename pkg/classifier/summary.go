package classifier

import "fmt"

// Summary is an immutable count fold over a classified record list. It is
// computed once per leaf and rolled up per run; nothing accumulates it
// through shared state.
type Summary struct {
	SitemapURL  string `json:"sitemap_url,omitempty"`
	Total       int    `json:"total"`
	OK          int    `json:"ok"`
	Redirect    int    `json:"redirect"`
	Broken      int    `json:"broken"`
	SoftFailure int    `json:"soft_failure"`
	Redundant   int    `json:"redundant"`
	Unresolved  int    `json:"unresolved"`
	Duplicates  int    `json:"duplicates"`
	ElapsedMs   int64  `json:"elapsed_ms"`
}

// Summarize folds records into a summary for one leaf sitemap.
func Summarize(sitemapURL string, records []Record, duplicates int, elapsedMs int64) Summary {
	s := Summary{
		SitemapURL: sitemapURL,
		Total:      len(records),
		Duplicates: duplicates,
		ElapsedMs:  elapsedMs,
	}

	for _, rec := range records {
		switch rec.Category {
		case CategoryOK:
			s.OK++
		case CategoryRedirect:
			s.Redirect++
		case CategoryBroken:
			s.Broken++
		case CategorySoftFailure:
			s.SoftFailure++
		case CategoryUnresolved:
			s.Unresolved++
		}
		if rec.Redundant {
			s.Redundant++
		}
	}

	return s
}

// Merge returns the rollup of two summaries. The receiver is not modified.
func (s Summary) Merge(other Summary) Summary {
	return Summary{
		Total:       s.Total + other.Total,
		OK:          s.OK + other.OK,
		Redirect:    s.Redirect + other.Redirect,
		Broken:      s.Broken + other.Broken,
		SoftFailure: s.SoftFailure + other.SoftFailure,
		Redundant:   s.Redundant + other.Redundant,
		Unresolved:  s.Unresolved + other.Unresolved,
		Duplicates:  s.Duplicates + other.Duplicates,
		ElapsedMs:   s.ElapsedMs + other.ElapsedMs,
	}
}

// Percentage formats count as a share of the summary total.
func (s Summary) Percentage(count int) string {
	if s.Total == 0 {
		return "0.0%"
	}
	return fmt.Sprintf("%.1f%%", float64(count)/float64(s.Total)*100)
}
