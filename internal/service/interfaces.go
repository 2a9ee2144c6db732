package service

import (
	"context"
	"time"

	"sitemap-audit/internal/config"
	"sitemap-audit/pkg/classifier"
	"sitemap-audit/pkg/parser"
)

// AuditService runs the full audit pipeline for configured sites.
type AuditService interface {
	AuditSite(ctx context.Context, site config.Site) (*AuditReport, error)
	AuditAll(ctx context.Context) ([]*AuditReport, error)
}

// ReportSink persists finished audit reports. Implementations decide the
// format; the service never writes files itself.
type ReportSink interface {
	WriteReport(ctx context.Context, report *AuditReport) error
}

// AuditReport is the terminal artifact of auditing one site: every leaf's
// classified records plus the rolled-up summary.
type AuditReport struct {
	SiteID      string                   `json:"site_id"`
	Roots       []string                 `json:"sitemap_roots"`
	StartedAt   time.Time                `json:"started_at"`
	CompletedAt time.Time                `json:"completed_at"`
	Leaves      []LeafReport             `json:"leaves"`
	Failures    []parser.SubtreeFailure  `json:"failures,omitempty"`
	Summary     classifier.Summary       `json:"summary"`
}

// LeafReport carries the audit outcome for one leaf sitemap.
type LeafReport struct {
	SitemapURL string                  `json:"sitemap_url"`
	Records    []classifier.Record     `json:"records"`
	Duplicates []parser.DuplicateEntry `json:"duplicates,omitempty"`
	Summary    classifier.Summary      `json:"summary"`
}
