package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"sitemap-audit/internal/config"
	"sitemap-audit/pkg/classifier"
	"sitemap-audit/pkg/logger"
	"sitemap-audit/pkg/parser"
	"sitemap-audit/pkg/probe"
	"sitemap-audit/pkg/storage"
	"sitemap-audit/pkg/worker"
)

type auditor struct {
	cfg       *config.Config
	resolver  *parser.Resolver
	prober    *probe.Prober
	probePool *worker.Pool
	softPool  *worker.Pool
	suggester *classifier.Suggester
	detector  *classifier.Soft404Detector
	store     storage.Store
	log       *logger.Logger
}

// NewAuditService wires the audit pipeline from configuration. store may be
// nil when no one needs to read reports back (one-shot CLI mode).
func NewAuditService(cfg *config.Config, store storage.Store) AuditService {
	hostPolicies := make([]probe.HostPolicy, 0, len(cfg.Hosts))
	for _, h := range cfg.Hosts {
		hostPolicies = append(hostPolicies, probe.HostPolicy{
			Suffix:  h.Suffix,
			Headers: h.Headers,
		})
	}

	retry := probe.DefaultRetryPolicy()
	if cfg.Probe.MaxAttempts > 0 {
		retry.MaxAttempts = cfg.Probe.MaxAttempts
	}
	if cfg.Probe.BaseDelayMs > 0 {
		retry.BaseDelay = time.Duration(cfg.Probe.BaseDelayMs) * time.Millisecond
	}
	if cfg.Probe.MaxDelayMs > 0 {
		retry.MaxDelay = time.Duration(cfg.Probe.MaxDelayMs) * time.Millisecond
	}
	if cfg.Probe.BackoffFactor > 0 {
		retry.BackoffFactor = cfg.Probe.BackoffFactor
	}

	return &auditor{
		cfg: cfg,
		resolver: parser.NewResolver(
			parser.WithMaxDepth(cfg.Audit.MaxSitemapDepth),
			parser.WithMaxURLs(cfg.Audit.MaxURLsPerLeaf),
		),
		prober: probe.NewProber(
			probe.WithTimeout(time.Duration(cfg.Probe.TimeoutSeconds)*time.Second),
			probe.WithRetryPolicy(retry),
			probe.WithHostPolicies(hostPolicies),
		),
		probePool: worker.NewPool(worker.PoolConfig{Workers: cfg.Audit.MaxWorkers}),
		softPool:  worker.NewPool(worker.PoolConfig{Workers: cfg.Audit.SoftCheckWorkers}),
		suggester: classifier.NewSuggester(),
		detector:  classifier.NewSoft404Detector(),
		store:     store,
		log:       logger.GetLogger().WithField("component", "audit_service"),
	}
}

// AuditAll audits every enabled site concurrently. A failing site does not
// abort its siblings; the first error is reported after all finish.
func (a *auditor) AuditAll(ctx context.Context) ([]*AuditReport, error) {
	var enabled []config.Site
	for _, site := range a.cfg.Sites {
		if site.Enabled {
			enabled = append(enabled, site)
		}
	}
	if len(enabled) == 0 {
		return nil, fmt.Errorf("no enabled sites configured")
	}

	reports := make([]*AuditReport, len(enabled))
	g, gctx := errgroup.WithContext(ctx)

	var mu sync.Mutex
	var firstErr error

	for i, site := range enabled {
		i, site := i, site
		g.Go(func() error {
			report, err := a.AuditSite(gctx, site)
			if err != nil {
				a.log.WithError(err).WithField("site", site.ID).Error("Site audit failed")
				mu.Lock()
				if firstErr == nil {
					firstErr = fmt.Errorf("site %s: %w", site.ID, err)
				}
				mu.Unlock()
				return nil
			}
			reports[i] = report
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []*AuditReport
	for _, r := range reports {
		if r != nil {
			out = append(out, r)
		}
	}
	if len(out) == 0 {
		return nil, firstErr
	}
	return out, nil
}

// AuditSite resolves every sitemap root of one site and audits each leaf. A
// root that cannot be resolved at all becomes a failure entry; the audit
// fails only when no root yields anything to classify.
func (a *auditor) AuditSite(ctx context.Context, site config.Site) (*AuditReport, error) {
	report := &AuditReport{
		SiteID:    site.ID,
		Roots:     site.Sitemaps,
		StartedAt: time.Now().UTC(),
	}

	for _, root := range site.Sitemaps {
		result, err := a.resolver.Resolve(ctx, root)
		if err != nil {
			a.log.WithError(err).WithField("root", root).Error("Sitemap root unreachable")
			report.Failures = append(report.Failures, parser.SubtreeFailure{
				SitemapURL: root,
				Reason:     err.Error(),
			})
			continue
		}

		report.Failures = append(report.Failures, result.Failures...)

		for _, leaf := range result.Leaves {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			default:
			}
			report.Leaves = append(report.Leaves, a.auditLeaf(ctx, leaf))
		}
	}

	if len(report.Leaves) == 0 {
		return nil, fmt.Errorf("no leaf sitemap of site %s could be resolved", site.ID)
	}

	for _, leaf := range report.Leaves {
		report.Summary = report.Summary.Merge(leaf.Summary)
	}
	report.CompletedAt = time.Now().UTC()

	a.log.WithFields(map[string]interface{}{
		"site":     site.ID,
		"leaves":   len(report.Leaves),
		"urls":     report.Summary.Total,
		"broken":   report.Summary.Broken,
		"redirect": report.Summary.Redirect,
		"soft_404": report.Summary.SoftFailure,
	}).Info("Site audit completed")

	if a.store != nil {
		if err := a.store.Save(ctx, "report:"+site.ID, report); err != nil {
			a.log.WithError(err).Warn("Failed to store audit report")
		}
	}

	return report, nil
}

// auditLeaf runs the two-phase pipeline over one leaf inventory: phase one
// probes everything, phase two classifies redundancy, rechecks 200s for soft
// failures, and only then generates suggestions against the complete
// known-good set.
func (a *auditor) auditLeaf(ctx context.Context, inv parser.Inventory) LeafReport {
	start := time.Now()

	records := a.probePhase(ctx, inv)

	index := classifier.BuildRedundancyIndex(inv.URLs)
	classifier.ClassifyRedundancy(records, index)

	a.softCheckPhase(ctx, records)

	var knownGood []string
	for _, rec := range records {
		if rec.Category == classifier.CategoryOK {
			knownGood = append(knownGood, rec.URL)
		}
	}

	for i := range records {
		if records[i].StatusCode == 404 {
			records[i].SuggestedURL = a.suggester.Suggest(records[i].URL, knownGood)
		}
	}

	duplicates := 0
	for _, d := range inv.Duplicates {
		duplicates += d.Count - 1
	}

	return LeafReport{
		SitemapURL: inv.SitemapURL,
		Records:    records,
		Duplicates: inv.Duplicates,
		Summary:    classifier.Summarize(inv.SitemapURL, records, duplicates, time.Since(start).Milliseconds()),
	}
}

// probePhase probes the whole inventory through the bounded pool and returns
// records in inventory order.
func (a *auditor) probePhase(ctx context.Context, inv parser.Inventory) []classifier.Record {
	results := make([]probe.Result, len(inv.URLs))
	tasks := make([]worker.Task, len(inv.URLs))
	for i, u := range inv.URLs {
		tasks[i] = &probeTask{url: u, index: i, prober: a.prober, results: results}
	}

	progress := logger.NewProgressReporter(len(tasks), "Probing "+inv.SitemapURL)
	taskResults := a.probePool.RunAll(ctx, tasks, func(done, total int) {
		progress.Update(1)
	})
	progress.Complete()

	records := make([]classifier.Record, len(inv.URLs))
	for i := range inv.URLs {
		if taskResults[i].Unresolved {
			records[i] = classifier.Unresolved(inv.URLs[i])
			continue
		}
		records[i] = classifier.FromProbe(results[i])
	}
	return records
}

// softCheckPhase refetches the full content of every 200-status URL and
// downgrades pages that are functionally not found.
func (a *auditor) softCheckPhase(ctx context.Context, records []classifier.Record) {
	var okIndexes []int
	for i, rec := range records {
		if rec.Category == classifier.CategoryOK {
			okIndexes = append(okIndexes, i)
		}
	}
	if len(okIndexes) == 0 {
		return
	}

	detections := make([]classifier.Detection, len(okIndexes))
	tasks := make([]worker.Task, len(okIndexes))
	for slot, recIdx := range okIndexes {
		tasks[slot] = &softCheckTask{
			url:        records[recIdx].URL,
			index:      slot,
			prober:     a.prober,
			detector:   a.detector,
			detections: detections,
		}
	}

	taskResults := a.softPool.RunAll(ctx, tasks, nil)

	flagged := 0
	for slot, recIdx := range okIndexes {
		if taskResults[slot].Err != nil || taskResults[slot].Unresolved {
			// Content fetch failed; the probe already said 200, leave it OK.
			continue
		}
		if detections[slot].IsSoft404 {
			records[recIdx].Category = classifier.CategorySoftFailure
			records[recIdx].SoftIndicators = detections[slot].Indicators
			flagged++
		}
	}

	if flagged > 0 {
		a.log.WithField("count", flagged).Info("Soft 404 pages detected")
	}
}

// probeTask probes one URL into its slot of the shared result slice.
type probeTask struct {
	url     string
	index   int
	prober  *probe.Prober
	results []probe.Result
}

func (t *probeTask) Execute(ctx context.Context) error {
	t.results[t.index] = t.prober.Probe(ctx, t.url)
	return nil
}

func (t *probeTask) ID() string { return t.url }

// softCheckTask fetches page content and runs the soft-404 detector.
type softCheckTask struct {
	url        string
	index      int
	prober     *probe.Prober
	detector   *classifier.Soft404Detector
	detections []classifier.Detection
}

func (t *softCheckTask) Execute(ctx context.Context) error {
	html, status, err := t.prober.FetchPage(ctx, t.url)
	if err != nil {
		return err
	}
	t.detections[t.index] = t.detector.Detect(html, t.url, status)
	return nil
}

func (t *softCheckTask) ID() string { return t.url }
