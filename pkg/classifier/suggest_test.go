package classifier

import "testing"

func TestSuggest_AncestorPath(t *testing.T) {
	s := NewSuggester()
	knownGood := []string{
		"https://example.com/blog",
		"https://example.com/blog/2020",
		"https://example.com/about",
	}

	got := s.Suggest("https://example.com/blog/2020/old-post", knownGood)
	if got != "https://example.com/blog/2020" {
		t.Errorf("Expected nearest reachable ancestor, got %q", got)
	}
}

func TestSuggest_AncestorPrefersMostSpecific(t *testing.T) {
	s := NewSuggester()
	knownGood := []string{
		"https://example.com/docs",
		"https://example.com/docs/guides",
	}

	got := s.Suggest("https://example.com/docs/guides/deleted-page", knownGood)
	if got != "https://example.com/docs/guides" {
		t.Errorf("Expected deepest ancestor, got %q", got)
	}
}

func TestSuggest_AncestorKeepsPathCase(t *testing.T) {
	s := NewSuggester()
	knownGood := []string{
		"https://example.com/docs-archive/old",
		"https://example.com/Docs/Guides",
	}

	// The exact mixed-case ancestor must win over any keyword overlap with
	// other known-good URLs.
	got := s.Suggest("https://example.com/Docs/Guides/deleted-page", knownGood)
	if got != "https://example.com/Docs/Guides" {
		t.Errorf("Expected exact ancestor match, got %q", got)
	}
}

func TestSuggest_KeywordOverlap(t *testing.T) {
	s := NewSuggester()
	knownGood := []string{
		"https://example.com/gadgets/red-thing",
		"https://example.com/catalog/blue-widget",
	}

	got := s.Suggest("https://example.com/products/blue-widget-pro", knownGood)
	if got != "https://example.com/catalog/blue-widget" {
		t.Errorf("Expected keyword match, got %q", got)
	}
}

func TestSuggest_KeywordIgnoresOtherHosts(t *testing.T) {
	s := NewSuggester()
	knownGood := []string{
		"https://other.example.org/catalog/blue-widget",
	}

	got := s.Suggest("https://example.com/products/blue-widget-pro", knownGood)
	if got != "https://example.com/" {
		t.Errorf("Cross-host keyword match must not apply, got %q", got)
	}
}

func TestSuggest_KeywordIgnoresOtherSchemes(t *testing.T) {
	s := NewSuggester()
	knownGood := []string{
		"http://example.com/catalog/blue-widget",
	}

	got := s.Suggest("https://example.com/products/blue-widget-pro", knownGood)
	if got != "https://example.com/" {
		t.Errorf("Cross-scheme keyword match must not apply, got %q", got)
	}
}

func TestSuggest_ShortKeywordsSkipped(t *testing.T) {
	s := NewSuggester()
	knownGood := []string{
		"https://example.com/a-b-c",
	}

	// Every broken keyword is under the length floor, so only the homepage
	// fallback remains.
	got := s.Suggest("https://example.com/x-y-z", knownGood)
	if got != "https://example.com/" {
		t.Errorf("Expected homepage fallback, got %q", got)
	}
}

func TestSuggest_HomepageFallback(t *testing.T) {
	s := NewSuggester()

	got := s.Suggest("https://example.com/completely/unrelated", nil)
	if got != "https://example.com/" {
		t.Errorf("Expected homepage fallback, got %q", got)
	}
}

func TestSuggest_UnparseableBrokenURL(t *testing.T) {
	s := NewSuggester()

	if got := s.Suggest("relative/path/only", []string{"https://example.com/"}); got != "" {
		t.Errorf("Expected empty suggestion for URL without origin, got %q", got)
	}
}
