package classifier

import (
	"net/url"
	"strings"

	"sitemap-audit/pkg/logger"
)

// Suggester proposes a replacement for a hard-failure URL from the set of
// URLs confirmed reachable during the same scan. Strategies are ordered and
// the first match wins: exact ancestor path, keyword overlap on the same
// origin, then the origin homepage.
type Suggester struct {
	minKeywordLen int
	log           *logger.Logger
}

func NewSuggester() *Suggester {
	return &Suggester{
		minKeywordLen: 4,
		log:           logger.GetLogger().WithField("component", "suggester"),
	}
}

// Suggest returns a best-guess replacement for brokenURL, or "" when the
// broken URL cannot be parsed. knownGood must be fully collected before the
// first call; suggestion runs as a second pass after probing completes.
func (s *Suggester) Suggest(brokenURL string, knownGood []string) string {
	broken, err := url.Parse(strings.TrimSpace(brokenURL))
	if err != nil || broken.Scheme == "" || broken.Host == "" {
		return ""
	}

	goodByKey := make(map[string]string, len(knownGood))
	for _, g := range knownGood {
		if key, ok := NormalizeURL(g); ok {
			if _, exists := goodByKey[key]; !exists {
				goodByKey[key] = g
			}
		}
	}

	if match := s.ancestorMatch(broken, goodByKey); match != "" {
		return match
	}
	if match := s.keywordMatch(broken, knownGood); match != "" {
		return match
	}

	return broken.Scheme + "://" + broken.Host + "/"
}

// ancestorMatch walks the broken path from most-specific to root and returns
// the first ancestor that is itself a known-good URL. Candidate keys keep the
// original path case; NormalizeURL only lowercases scheme and host, so a
// lowercased candidate would never find a known-good URL with uppercase path
// characters.
func (s *Suggester) ancestorMatch(broken *url.URL, goodByKey map[string]string) string {
	segments := rawSegments(broken.EscapedPath())
	origin := strings.ToLower(broken.Scheme) + "://" + strings.ToLower(broken.Host)

	for i := len(segments) - 1; i >= 1; i-- {
		candidate := origin + "/" + strings.Join(segments[:i], "/")
		if match, ok := goodByKey[candidate]; ok {
			return match
		}
	}
	return ""
}

// keywordMatch returns the first known-good URL on the same origin whose
// path keywords overlap (substring, either direction) a sufficiently long
// keyword of the broken path.
func (s *Suggester) keywordMatch(broken *url.URL, knownGood []string) string {
	brokenKeywords := pathKeywords(broken.Path)
	if len(brokenKeywords) == 0 {
		return ""
	}

	for _, good := range knownGood {
		g, err := url.Parse(good)
		if err != nil {
			continue
		}
		if !strings.EqualFold(g.Scheme, broken.Scheme) || !strings.EqualFold(g.Host, broken.Host) {
			continue
		}

		goodKeywords := pathKeywords(g.Path)
		for _, bk := range brokenKeywords {
			if len(bk) < s.minKeywordLen {
				continue
			}
			for _, gk := range goodKeywords {
				if strings.Contains(gk, bk) || strings.Contains(bk, gk) {
					return good
				}
			}
		}
	}
	return ""
}

// rawSegments splits a path into its non-empty segments without changing
// their case.
func rawSegments(path string) []string {
	var segments []string
	for _, seg := range strings.Split(strings.Trim(path, "/"), "/") {
		if seg != "" {
			segments = append(segments, seg)
		}
	}
	return segments
}

func splitPath(path string) []string {
	var segments []string
	for _, seg := range strings.Split(strings.Trim(path, "/"), "/") {
		if seg != "" {
			segments = append(segments, strings.ToLower(seg))
		}
	}
	return segments
}

// pathKeywords splits path segments on hyphens into lowercase keywords.
func pathKeywords(path string) []string {
	var keywords []string
	for _, seg := range splitPath(path) {
		for _, kw := range strings.Split(seg, "-") {
			if kw != "" {
				keywords = append(keywords, kw)
			}
		}
	}
	return keywords
}
