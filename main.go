package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"sitemap-audit/internal/config"
	"sitemap-audit/internal/service"
	"sitemap-audit/pkg/logger"
	"sitemap-audit/pkg/report"
)

// getEnvOrDefault returns environment variable value or default
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvIntOrDefault returns environment variable as int or default
func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvBoolOrDefault returns environment variable as bool or default
func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func main() {
	// Environment variable defaults (CI friendly)
	defaultSitemaps := getEnvOrDefault("AUDIT_SITEMAPS", "")
	defaultSiteID := getEnvOrDefault("AUDIT_SITE_ID", "default")
	defaultWorkers := getEnvIntOrDefault("AUDIT_WORKERS", 10)
	defaultOutput := getEnvOrDefault("AUDIT_OUTPUT_DIR", "./reports")
	defaultDebug := getEnvBoolOrDefault("DEBUG", false)
	defaultTimeout := getEnvIntOrDefault("AUDIT_PROBE_TIMEOUT", 15)

	// Command line flags (override environment variables)
	var (
		configPath = flag.String("config", "", "Configuration file path (optional)")
		sitemapCSV = flag.String("sitemaps", defaultSitemaps, "Comma-separated sitemap root URLs (env: AUDIT_SITEMAPS)")
		siteID     = flag.String("site-id", defaultSiteID, "Site identifier used in reports (env: AUDIT_SITE_ID)")
		workers    = flag.Int("workers", defaultWorkers, "Number of concurrent URL probes (env: AUDIT_WORKERS)")
		outputDir  = flag.String("output", defaultOutput, "Report output directory (env: AUDIT_OUTPUT_DIR)")
		timeout    = flag.Int("timeout", defaultTimeout, "Per-request timeout in seconds (env: AUDIT_PROBE_TIMEOUT)")
		debug      = flag.Bool("debug", defaultDebug, "Enable debug logging (env: DEBUG)")
		help       = flag.Bool("help", false, "Show help message")
	)

	flag.Parse()

	if *help {
		printUsage()
		return
	}

	cfg, err := buildConfig(*configPath, *sitemapCSV, *siteID, *workers, *outputDir, *timeout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n\n", err)
		printUsage()
		os.Exit(1)
	}

	logLevel := cfg.Logger.Level
	if *debug {
		logLevel = "debug"
	}
	logger.SetLogger(logger.New(logger.Config{
		Level:  logLevel,
		Format: cfg.Logger.Format,
		Output: cfg.Logger.Output,
	}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Warn("Shutdown signal received, finishing current work")
		cancel()
	}()

	audit := service.NewAuditService(cfg, nil)
	reports, err := audit.AuditAll(ctx)
	if err != nil {
		logger.WithError(err).Error("Audit run failed")
		os.Exit(1)
	}

	sink := report.NewExporter(cfg.Report.OutputDir)
	for _, r := range reports {
		if err := sink.WriteReport(ctx, r); err != nil {
			logger.WithError(err).WithField("site", r.SiteID).Error("Failed to write report")
			os.Exit(1)
		}
		printSummary(r)
	}
}

// buildConfig loads the config file when given, otherwise assembles a
// single-site config from flags.
func buildConfig(configPath, sitemapCSV, siteID string, workers int, outputDir string, timeout int) (*config.Config, error) {
	if configPath != "" {
		return config.NewManager().Load(configPath)
	}

	if sitemapCSV == "" {
		return nil, fmt.Errorf("at least one sitemap URL is required (use -sitemaps or AUDIT_SITEMAPS)")
	}

	var sitemaps []string
	for _, s := range strings.Split(sitemapCSV, ",") {
		if s = strings.TrimSpace(s); s != "" {
			sitemaps = append(sitemaps, s)
		}
	}

	cfg := config.Default()
	cfg.Sites = []config.Site{{ID: siteID, Sitemaps: sitemaps, Enabled: true}}
	if workers > 0 {
		cfg.Audit.MaxWorkers = workers
	}
	if outputDir != "" {
		cfg.Report.OutputDir = outputDir
	}
	if timeout > 0 {
		cfg.Probe.TimeoutSeconds = timeout
	}
	return cfg, nil
}

func printSummary(r *service.AuditReport) {
	s := r.Summary
	fmt.Printf("\nSite: %s\n", r.SiteID)
	fmt.Printf("  URLs checked: %d across %d leaf sitemap(s)\n", s.Total, len(r.Leaves))
	fmt.Printf("  OK:          %d (%s)\n", s.OK, s.Percentage(s.OK))
	fmt.Printf("  Redirects:   %d (%s), redundant: %d\n", s.Redirect, s.Percentage(s.Redirect), s.Redundant)
	fmt.Printf("  Broken:      %d (%s)\n", s.Broken, s.Percentage(s.Broken))
	fmt.Printf("  Soft 404s:   %d (%s)\n", s.SoftFailure, s.Percentage(s.SoftFailure))
	if s.Unresolved > 0 {
		fmt.Printf("  Unresolved:  %d\n", s.Unresolved)
	}
	if s.Duplicates > 0 {
		fmt.Printf("  Duplicate sitemap entries: %d\n", s.Duplicates)
	}
	if len(r.Failures) > 0 {
		fmt.Printf("  Unreachable sitemaps: %d\n", len(r.Failures))
	}
	fmt.Printf("  Elapsed: %s\n", r.CompletedAt.Sub(r.StartedAt).Round(10*time.Millisecond))
}

func printUsage() {
	fmt.Println("sitemap-audit - classify every URL listed in a site's sitemaps")
	fmt.Println("")
	fmt.Println("Usage:")
	fmt.Println("  sitemap-audit -sitemaps https://example.com/sitemap.xml")
	fmt.Println("  sitemap-audit -config config/audit.yaml")
	fmt.Println("")
	fmt.Println("Flags:")
	flag.PrintDefaults()
}
