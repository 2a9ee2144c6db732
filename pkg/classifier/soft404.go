package classifier

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"sitemap-audit/pkg/logger"
)

// Detection is the soft-404 verdict for one page, with the indicators that
// fired so a report reader can see why.
type Detection struct {
	IsSoft404  bool     `json:"is_soft_404"`
	Indicators []string `json:"indicators,omitempty"`
}

// Soft404Detector flags pages that answer HTTP 200 but whose content says
// the resource does not exist. A single strong textual indicator is decisive;
// weak indicators must accumulate, and structural evidence of a working page
// (interactive elements, legitimate path terms) outvotes them.
type Soft404Detector struct {
	strongPhrases   []string
	weakPhrases     []string
	imageTerms      []string
	legitimateTerms []string
	minBodyTextLen  int
	weakThreshold   int
	log             *logger.Logger
}

func NewSoft404Detector() *Soft404Detector {
	return &Soft404Detector{
		strongPhrases: []string{
			"page not found",
			"404 not found",
			"error 404",
			"página no encontrada",
			"page introuvable",
			"seite nicht gefunden",
			"pagina non trovata",
			"página não encontrada",
			"страница не найдена",
			"ページが見つかりません",
			"页面未找到",
		},
		weakPhrases: []string{
			"not found",
			"no longer exists",
			"no longer available",
			"doesn't exist",
			"does not exist",
			"may have been moved",
			"may have been removed",
			"nothing was found",
			"we couldn't find",
			"we could not find",
			"no encontrada",
			"introuvable",
		},
		imageTerms: []string{"404", "not-found", "notfound", "not_found", "error"},
		legitimateTerms: []string{
			"pricing", "login", "signin", "signup", "register", "blog",
			"docs", "contact", "about", "account", "checkout", "cart",
			"search", "dashboard", "faq",
		},
		minBodyTextLen: 300,
		weakThreshold:  2,
		log:            logger.GetLogger().WithField("component", "soft404_detector"),
	}
}

// Detect classifies a fetched page. Only HTTP 200 responses are eligible;
// any other status is a hard result and never a soft 404.
func (d *Soft404Detector) Detect(pageHTML, pageURL string, statusCode int) Detection {
	if statusCode != 200 {
		return Detection{}
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(pageHTML))
	if err != nil {
		d.log.WithError(err).Debug("Page HTML unparseable, skipping soft-404 check")
		return Detection{}
	}

	title := strings.ToLower(strings.TrimSpace(doc.Find("title").First().Text()))
	heading := strings.ToLower(strings.TrimSpace(doc.Find("h1").First().Text()))
	metaDesc, _ := doc.Find(`meta[name="description"]`).First().Attr("content")
	metaDesc = strings.ToLower(strings.TrimSpace(metaDesc))

	// Tier 1: a strong phrase in title, first heading or meta description is
	// decisive on its own.
	for _, phrase := range d.strongPhrases {
		if strings.Contains(title, phrase) || strings.Contains(heading, phrase) || strings.Contains(metaDesc, phrase) {
			return Detection{
				IsSoft404:  true,
				Indicators: []string{"strong_phrase: " + phrase},
			}
		}
	}

	// Tier 2: weak indicators accumulate.
	var indicators []string
	bodyText := strings.ToLower(collapseSpaces(doc.Find("body").Text()))

	if len(bodyText) < d.minBodyTextLen {
		indicators = append(indicators, "thin_content")
	}

	for _, phrase := range d.weakPhrases {
		if strings.Contains(bodyText, phrase) {
			indicators = append(indicators, "weak_phrase: "+phrase)
		}
	}

	if d.hasSearchForm(doc) && strings.Contains(bodyText, "no results") {
		indicators = append(indicators, "search_no_results")
	}

	if d.hasNotFoundImage(doc) {
		indicators = append(indicators, "404_image")
	}

	// Structural evidence that the page works overrides the weak tier: a
	// page with forms, inputs or buttons is something, whatever its copy
	// says.
	if d.hasInteractiveElements(doc) {
		return Detection{Indicators: indicators}
	}

	threshold := d.weakThreshold
	if d.hasLegitimatePathTerm(pageURL) {
		threshold++
	}

	if len(indicators) >= threshold {
		return Detection{IsSoft404: true, Indicators: indicators}
	}
	return Detection{Indicators: indicators}
}

func (d *Soft404Detector) hasSearchForm(doc *goquery.Document) bool {
	if doc.Find(`input[type="search"]`).Length() > 0 {
		return true
	}
	if doc.Find(`form[role="search"]`).Length() > 0 {
		return true
	}
	return doc.Find(`form input[name="q"], form input[name="s"]`).Length() > 0
}

// hasNotFoundImage detects images whose src or alt references 404/error
// terms. Narrowly scoped: decorative 404 art is a common soft-404 tell.
func (d *Soft404Detector) hasNotFoundImage(doc *goquery.Document) bool {
	found := false
	doc.Find("img").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		src, _ := sel.Attr("src")
		alt, _ := sel.Attr("alt")
		src = strings.ToLower(src)
		alt = strings.ToLower(alt)
		for _, term := range d.imageTerms {
			if strings.Contains(src, term) || strings.Contains(alt, term) {
				found = true
				return false
			}
		}
		return true
	})
	return found
}

func (d *Soft404Detector) hasInteractiveElements(doc *goquery.Document) bool {
	if doc.Find("form").Length() > 0 {
		return true
	}
	if doc.Find(`input[type="text"], input[type="email"]`).Length() > 0 {
		return true
	}
	return doc.Find("button").Length() > 0
}

// hasLegitimatePathTerm reports whether the URL path names a page type that
// legitimately renders short or sparse content.
func (d *Soft404Detector) hasLegitimatePathTerm(pageURL string) bool {
	u, err := url.Parse(pageURL)
	if err != nil {
		return false
	}
	path := strings.ToLower(u.Path)
	for _, term := range d.legitimateTerms {
		if strings.Contains(path, term) {
			return true
		}
	}
	return false
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
