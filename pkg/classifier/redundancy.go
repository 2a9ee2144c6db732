package classifier

import (
	"net/url"
	"strings"

	"sitemap-audit/pkg/logger"
)

// NormalizeURL reduces raw to its comparison key: lowercased origin plus
// path with the trailing slash stripped. Query and fragment are ignored.
// The key is only used for equality inside redundancy classification and is
// never surfaced in reports.
func NormalizeURL(raw string) (string, bool) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", false
	}

	path := u.EscapedPath()
	if path != "/" {
		path = strings.TrimSuffix(path, "/")
	}
	if path == "/" {
		path = ""
	}

	return strings.ToLower(u.Scheme) + "://" + strings.ToLower(u.Host) + path, true
}

// RedundancyIndex maps normalized inventory URLs back to their original
// form. Built once per leaf sitemap, read-only afterwards.
type RedundancyIndex struct {
	byKey map[string]string
}

// BuildRedundancyIndex indexes the inventory URL set for normalized lookup.
func BuildRedundancyIndex(inventory []string) *RedundancyIndex {
	idx := &RedundancyIndex{byKey: make(map[string]string, len(inventory))}
	for _, u := range inventory {
		key, ok := NormalizeURL(u)
		if !ok {
			continue
		}
		if _, exists := idx.byKey[key]; !exists {
			idx.byKey[key] = u
		}
	}
	return idx
}

// Lookup returns the inventory URL matching the normalized key.
func (idx *RedundancyIndex) Lookup(key string) (string, bool) {
	u, ok := idx.byKey[key]
	return u, ok
}

// ClassifyRedundancy flags every redirect record whose target is itself a
// member of the inventory: such a sitemap entry is redundant because the
// inventory already lists where it lands. Relative Location headers are
// resolved against the source URL before lookup.
func ClassifyRedundancy(records []Record, index *RedundancyIndex) {
	log := logger.GetLogger().WithField("component", "redundancy_classifier")

	for i := range records {
		rec := &records[i]
		if rec.Category != CategoryRedirect || rec.RedirectURL == "" {
			continue
		}

		target := resolveTarget(rec.URL, rec.RedirectURL)
		if target == "" {
			continue
		}

		key, ok := NormalizeURL(target)
		if !ok {
			continue
		}

		match, ok := index.Lookup(key)
		if !ok || match == rec.URL {
			// Self-matches (slash or scheme redirects onto the same entry)
			// are not redundancy between two inventory entries.
			continue
		}

		rec.Redundant = true
		rec.RedundancyTarget = match
		log.WithFields(map[string]interface{}{
			"source": rec.URL,
			"target": match,
		}).Debug("Redirect target already in inventory")
	}
}

// resolveTarget resolves a possibly relative redirect location against the
// source URL.
func resolveTarget(sourceURL, location string) string {
	base, err := url.Parse(sourceURL)
	if err != nil {
		return ""
	}
	ref, err := url.Parse(strings.TrimSpace(location))
	if err != nil {
		return ""
	}
	return base.ResolveReference(ref).String()
}
