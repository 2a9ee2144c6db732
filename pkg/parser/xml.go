package parser

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

type xmlSitemapRef struct {
	Loc string `xml:"loc"`
}

type xmlSitemapIndex struct {
	XMLName  xml.Name        `xml:"sitemapindex"`
	Sitemaps []xmlSitemapRef `xml:"sitemap"`
}

type xmlURL struct {
	Loc string `xml:"loc"`
}

type xmlURLSet struct {
	XMLName xml.Name `xml:"urlset"`
	URLs    []xmlURL `xml:"url"`
}

type documentKind int

const (
	kindIndex documentKind = iota
	kindLeaf
)

// document is the shape-classified form of one fetched sitemap body.
// For an index, children holds the child sitemap locations; for a leaf,
// urls holds the page locations. Entries are whitespace-trimmed.
type document struct {
	kind     documentKind
	children []string
	urls     []string
}

// decodeSitemap classifies and decodes a sitemap XML body. The root element
// decides the shape; anything other than <sitemapindex> or <urlset> is
// ErrInvalidFormat so the caller can try the plain-text fallback.
func decodeSitemap(data []byte) (*document, error) {
	dec := newDecoder(data)

	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrParse, err)
		}

		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}

		switch se.Name.Local {
		case "sitemapindex":
			var index xmlSitemapIndex
			if err := dec.DecodeElement(&index, &se); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrParse, err)
			}
			doc := &document{kind: kindIndex}
			for _, ref := range index.Sitemaps {
				if loc := strings.TrimSpace(ref.Loc); loc != "" {
					doc.children = append(doc.children, loc)
				}
			}
			return doc, nil

		case "urlset":
			var set xmlURLSet
			if err := dec.DecodeElement(&set, &se); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrParse, err)
			}
			doc := &document{kind: kindLeaf}
			for _, entry := range set.URLs {
				if loc := strings.TrimSpace(entry.Loc); loc != "" {
					doc.urls = append(doc.urls, loc)
				}
			}
			return doc, nil

		default:
			return nil, fmt.Errorf("%w: unexpected root element <%s>", ErrInvalidFormat, se.Name.Local)
		}
	}
}

func newDecoder(data []byte) *xml.Decoder {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Strict = false
	dec.CharsetReader = charsetReader
	return dec
}

// charsetReader converts declared non-UTF-8 encodings to UTF-8. Sitemaps in
// the wild occasionally declare latin or windows codepages.
func charsetReader(charset string, input io.Reader) (io.Reader, error) {
	var enc encoding.Encoding
	switch strings.ToLower(charset) {
	case "utf-8", "us-ascii", "":
		return input, nil
	case "iso-8859-1", "latin1":
		enc = charmap.ISO8859_1
	case "iso-8859-15", "latin9":
		enc = charmap.ISO8859_15
	case "windows-1252", "cp1252":
		enc = charmap.Windows1252
	case "windows-1251", "cp1251":
		enc = charmap.Windows1251
	case "utf-16":
		enc = unicode.UTF16(unicode.LittleEndian, unicode.UseBOM)
	default:
		return nil, fmt.Errorf("unsupported charset: %s", charset)
	}
	return transform.NewReader(input, enc.NewDecoder()), nil
}
