package parser

import "errors"

var (
	// ErrFetch indicates the sitemap document could not be retrieved.
	ErrFetch = errors.New("sitemap fetch failed")

	// ErrParse indicates the document body could not be parsed as XML.
	ErrParse = errors.New("sitemap parse failed")

	// ErrInvalidFormat indicates the document is neither a sitemap index
	// nor a URL set, and the plain-text fallback found nothing.
	ErrInvalidFormat = errors.New("unrecognized sitemap format")
)
