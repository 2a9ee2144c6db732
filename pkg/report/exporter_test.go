package report

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"sitemap-audit/internal/service"
	"sitemap-audit/pkg/classifier"
	"sitemap-audit/pkg/parser"
)

func sampleReport() *service.AuditReport {
	records := []classifier.Record{
		{URL: "https://example.com/ok", StatusCode: 200, Category: classifier.CategoryOK},
		{
			URL: "https://example.com/old", StatusCode: 301,
			RedirectURL: "https://example.com/ok", Category: classifier.CategoryRedirect,
			Redundant: true, RedundancyTarget: "https://example.com/ok",
		},
		{
			URL: "https://example.com/missing", StatusCode: 404,
			Category: classifier.CategoryBroken, SuggestedURL: "https://example.com/",
		},
		{URL: "https://example.com/down", Category: classifier.CategoryBroken, NetworkErr: "connection refused"},
		{URL: "https://example.com/odd", Category: classifier.CategoryUnresolved},
	}

	leaf := service.LeafReport{
		SitemapURL: "https://example.com/sitemap.xml",
		Records:    records,
		Duplicates: []parser.DuplicateEntry{{URL: "https://example.com/ok", Count: 3}},
		Summary:    classifier.Summarize("https://example.com/sitemap.xml", records, 2, 1200),
	}

	return &service.AuditReport{
		SiteID:      "demo",
		Roots:       []string{"https://example.com/sitemap.xml"},
		StartedAt:   time.Now().UTC().Add(-time.Minute),
		CompletedAt: time.Now().UTC(),
		Leaves:      []service.LeafReport{leaf},
		Summary:     leaf.Summary,
	}
}

func TestWriteReport(t *testing.T) {
	outputDir := t.TempDir()
	e := NewExporter(outputDir)

	if err := e.WriteReport(context.Background(), sampleReport()); err != nil {
		t.Fatalf("WriteReport failed: %v", err)
	}

	dir := filepath.Join(outputDir, "demo")

	csvFile, err := os.Open(filepath.Join(dir, "example.com_sitemap.xml.csv"))
	if err != nil {
		t.Fatalf("Leaf CSV missing: %v", err)
	}
	defer csvFile.Close()

	rows, err := csv.NewReader(csvFile).ReadAll()
	if err != nil {
		t.Fatalf("Failed to read CSV: %v", err)
	}
	if len(rows) != 6 {
		t.Fatalf("Expected header plus 5 rows, got %d", len(rows))
	}
	if rows[0][0] != "url" || rows[0][4] != "isRedundantRedirect" {
		t.Errorf("Unexpected header: %v", rows[0])
	}
	if rows[2][1] != "301" || rows[2][4] != "true" || rows[2][5] != "https://example.com/ok" {
		t.Errorf("Redirect row wrong: %v", rows[2])
	}
	if rows[3][3] != "https://example.com/" {
		t.Errorf("Suggestion column wrong: %v", rows[3])
	}
	if rows[4][1] != "network_error" {
		t.Errorf("Network error status label wrong: %v", rows[4])
	}
	if rows[5][1] != "unresolved" {
		t.Errorf("Unresolved status label wrong: %v", rows[5])
	}
}

func TestWriteReport_Opportunities(t *testing.T) {
	outputDir := t.TempDir()
	e := NewExporter(outputDir)

	if err := e.WriteReport(context.Background(), sampleReport()); err != nil {
		t.Fatalf("WriteReport failed: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(outputDir, "demo", "opportunities.json"))
	if err != nil {
		t.Fatalf("Opportunities file missing: %v", err)
	}

	var docs []OpportunityDoc
	if err := json.Unmarshal(data, &docs); err != nil {
		t.Fatalf("Invalid opportunities JSON: %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("Expected 1 document, got %d", len(docs))
	}

	// Redirect plus two broken records; the OK record contributes nothing.
	if len(docs[0].Entries) != 3 {
		t.Fatalf("Expected 3 entries, got %d", len(docs[0].Entries))
	}
	if docs[0].Entries[0].SuggestedURL != "https://example.com/ok" {
		t.Errorf("Redirect entry should suggest its target: %+v", docs[0].Entries[0])
	}
	if docs[0].Entries[1].SuggestedURL != "https://example.com/" {
		t.Errorf("Broken entry should carry its suggestion: %+v", docs[0].Entries[1])
	}
}

func TestWriteReport_SummaryAndDuplicates(t *testing.T) {
	outputDir := t.TempDir()
	e := NewExporter(outputDir)

	if err := e.WriteReport(context.Background(), sampleReport()); err != nil {
		t.Fatalf("WriteReport failed: %v", err)
	}

	var summary map[string]interface{}
	data, err := os.ReadFile(filepath.Join(outputDir, "demo", "summary.json"))
	if err != nil {
		t.Fatalf("Summary file missing: %v", err)
	}
	if err := json.Unmarshal(data, &summary); err != nil {
		t.Fatalf("Invalid summary JSON: %v", err)
	}
	overall, ok := summary["overall"].(map[string]interface{})
	if !ok {
		t.Fatal("Summary missing overall block")
	}
	if overall["total"].(float64) != 5 {
		t.Errorf("Overall total = %v, want 5", overall["total"])
	}
	if overall["ok_pct"].(string) != "20.0%" {
		t.Errorf("ok_pct = %v, want 20.0%%", overall["ok_pct"])
	}

	var duplicates map[string]interface{}
	data, err = os.ReadFile(filepath.Join(outputDir, "demo", "duplicates.json"))
	if err != nil {
		t.Fatalf("Duplicates file missing: %v", err)
	}
	if err := json.Unmarshal(data, &duplicates); err != nil {
		t.Fatalf("Invalid duplicates JSON: %v", err)
	}
	if _, ok := duplicates["https://example.com/sitemap.xml"]; !ok {
		t.Errorf("Duplicates missing leaf entry: %v", duplicates)
	}
}

func TestSanitize(t *testing.T) {
	tests := []struct{ in, want string }{
		{"https://example.com/sitemap.xml", "example.com_sitemap.xml"},
		{"demo", "demo"},
		{"a b/c", "a_b_c"},
		{"", "report"},
	}
	for _, tt := range tests {
		if got := sanitize(tt.in); got != tt.want {
			t.Errorf("sanitize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
