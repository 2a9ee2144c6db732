package report

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"sitemap-audit/internal/service"
	"sitemap-audit/pkg/classifier"
	"sitemap-audit/pkg/logger"
)

// Exporter writes audit reports to an output directory: one CSV of canonical
// rows per leaf sitemap, an opportunity document for downstream systems, the
// duplicate side-channel, and the aggregate summary.
type Exporter struct {
	outputDir string
	log       *logger.Logger
}

func NewExporter(outputDir string) *Exporter {
	return &Exporter{
		outputDir: outputDir,
		log:       logger.GetLogger().WithField("component", "report_exporter"),
	}
}

// csvHeader is the canonical report row schema.
var csvHeader = []string{"url", "httpStatus", "redirectUrl", "urlSuggested", "isRedundantRedirect", "redundancyTarget"}

// OpportunityDoc is the downstream-facing suggestion document for one leaf
// sitemap.
type OpportunityDoc struct {
	SiteID      string             `json:"site_id"`
	SitemapURL  string             `json:"sitemap_url"`
	GeneratedAt string             `json:"generated_at"`
	ScanStarted string             `json:"scan_started"`
	Entries     []OpportunityEntry `json:"entries"`
}

// OpportunityEntry is one actionable URL: a redirect to chase or a broken
// page to replace.
type OpportunityEntry struct {
	URL          string `json:"url"`
	StatusCode   int    `json:"status_code"`
	SuggestedURL string `json:"suggested_url,omitempty"`
}

// WriteReport persists every artifact for one site under
// outputDir/<siteID>/. Partial results are always written; a leaf that
// failed upstream simply has no rows here.
func (e *Exporter) WriteReport(ctx context.Context, report *service.AuditReport) error {
	dir := filepath.Join(e.outputDir, sanitize(report.SiteID))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}

	for _, leaf := range report.Leaves {
		if err := e.writeLeafCSV(dir, leaf); err != nil {
			return err
		}
	}

	if err := e.writeOpportunities(dir, report); err != nil {
		return err
	}
	if err := e.writeDuplicates(dir, report); err != nil {
		return err
	}
	if err := e.writeSummary(dir, report); err != nil {
		return err
	}

	e.log.WithFields(map[string]interface{}{
		"site": report.SiteID,
		"dir":  dir,
	}).Info("Report written")
	return nil
}

func (e *Exporter) writeLeafCSV(dir string, leaf service.LeafReport) error {
	path := filepath.Join(dir, sanitize(leaf.SitemapURL)+".csv")
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.Write(csvHeader); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, rec := range leaf.Records {
		row := []string{
			rec.URL,
			statusLabel(rec),
			rec.RedirectURL,
			rec.SuggestedURL,
			strconv.FormatBool(rec.Redundant),
			rec.RedundancyTarget,
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	w.Flush()
	return w.Error()
}

func (e *Exporter) writeOpportunities(dir string, report *service.AuditReport) error {
	var docs []OpportunityDoc
	generatedAt := time.Now().UTC().Format(time.RFC3339)

	for _, leaf := range report.Leaves {
		doc := OpportunityDoc{
			SiteID:      report.SiteID,
			SitemapURL:  leaf.SitemapURL,
			GeneratedAt: generatedAt,
			ScanStarted: report.StartedAt.Format(time.RFC3339),
			Entries:     []OpportunityEntry{},
		}

		for _, rec := range leaf.Records {
			switch rec.Category {
			case classifier.CategoryRedirect:
				doc.Entries = append(doc.Entries, OpportunityEntry{
					URL:          rec.URL,
					StatusCode:   rec.StatusCode,
					SuggestedURL: rec.RedirectURL,
				})
			case classifier.CategoryBroken:
				doc.Entries = append(doc.Entries, OpportunityEntry{
					URL:          rec.URL,
					StatusCode:   rec.StatusCode,
					SuggestedURL: rec.SuggestedURL,
				})
			}
		}

		docs = append(docs, doc)
	}

	return writeJSON(filepath.Join(dir, "opportunities.json"), docs)
}

func (e *Exporter) writeDuplicates(dir string, report *service.AuditReport) error {
	duplicates := make(map[string]interface{})
	for _, leaf := range report.Leaves {
		if len(leaf.Duplicates) > 0 {
			duplicates[leaf.SitemapURL] = leaf.Duplicates
		}
	}
	return writeJSON(filepath.Join(dir, "duplicates.json"), duplicates)
}

func (e *Exporter) writeSummary(dir string, report *service.AuditReport) error {
	perLeaf := make([]map[string]interface{}, 0, len(report.Leaves))
	for _, leaf := range report.Leaves {
		perLeaf = append(perLeaf, summaryRow(leaf.Summary))
	}

	summary := map[string]interface{}{
		"site_id":      report.SiteID,
		"started_at":   report.StartedAt.Format(time.RFC3339),
		"completed_at": report.CompletedAt.Format(time.RFC3339),
		"failures":     report.Failures,
		"leaves":       perLeaf,
		"overall":      summaryRow(report.Summary),
	}
	return writeJSON(filepath.Join(dir, "summary.json"), summary)
}

func summaryRow(s classifier.Summary) map[string]interface{} {
	return map[string]interface{}{
		"sitemap_url":      s.SitemapURL,
		"total":            s.Total,
		"ok":               s.OK,
		"ok_pct":           s.Percentage(s.OK),
		"redirect":         s.Redirect,
		"redirect_pct":     s.Percentage(s.Redirect),
		"broken":           s.Broken,
		"broken_pct":       s.Percentage(s.Broken),
		"soft_failure":     s.SoftFailure,
		"soft_failure_pct": s.Percentage(s.SoftFailure),
		"redundant":        s.Redundant,
		"redundant_pct":    s.Percentage(s.Redundant),
		"unresolved":       s.Unresolved,
		"duplicates":       s.Duplicates,
		"elapsed_ms":       s.ElapsedMs,
	}
}

func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", filepath.Base(path), err)
	}
	return os.WriteFile(path, data, 0644)
}

// statusLabel renders the status column; network failures have no HTTP
// status so the error class is written instead.
func statusLabel(rec classifier.Record) string {
	if rec.Category == classifier.CategoryUnresolved {
		return "unresolved"
	}
	if rec.StatusCode == 0 {
		return "network_error"
	}
	return strconv.Itoa(rec.StatusCode)
}

// sanitize turns an identifier or URL into a safe file name.
func sanitize(s string) string {
	s = strings.TrimPrefix(s, "https://")
	s = strings.TrimPrefix(s, "http://")
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	out := b.String()
	if len(out) > 120 {
		out = out[:120]
	}
	if out == "" {
		out = "report"
	}
	return out
}
