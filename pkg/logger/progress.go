package logger

import (
	"fmt"
	"sync"
	"time"
)

// ProgressReporter provides coarse-grained progress reporting for large
// batches. Progress is logged when a count step is crossed or when enough
// wall time has passed, never on every update.
type ProgressReporter struct {
	mu          sync.Mutex
	total       int
	current     int
	step        int
	description string
	startTime   time.Time
	lastReport  time.Time
	lastCount   int
	logger      *Logger
}

// NewProgressReporter creates a reporter for total items. The report step is
// derived from the batch size so small batches stay quiet.
func NewProgressReporter(total int, description string) *ProgressReporter {
	step := total / 10
	if step < 25 {
		step = 25
	}
	return &ProgressReporter{
		total:       total,
		step:        step,
		description: description,
		startTime:   time.Now(),
		lastReport:  time.Now(),
		logger:      GetLogger().WithField("component", "progress"),
	}
}

// Update increments the progress counter and reports when a threshold is hit.
func (pr *ProgressReporter) Update(increment int) {
	pr.mu.Lock()
	defer pr.mu.Unlock()

	pr.current += increment
	now := time.Now()

	if pr.current-pr.lastCount >= pr.step || now.Sub(pr.lastReport) >= 5*time.Second || pr.current >= pr.total {
		pr.reportProgress()
		pr.lastReport = now
		pr.lastCount = pr.current
	}
}

// Complete marks the progress as complete and reports final status.
func (pr *ProgressReporter) Complete() {
	pr.mu.Lock()
	defer pr.mu.Unlock()

	pr.current = pr.total
	pr.reportProgress()
}

// reportProgress logs the current progress (must be called with lock held)
func (pr *ProgressReporter) reportProgress() {
	if pr.total == 0 {
		return
	}
	percentage := float64(pr.current) / float64(pr.total) * 100
	elapsed := time.Since(pr.startTime)

	var eta string
	if pr.current > 0 && pr.current < pr.total {
		avgTimePerItem := elapsed / time.Duration(pr.current)
		remaining := time.Duration(pr.total-pr.current) * avgTimePerItem
		eta = fmt.Sprintf(" (ETA: %s)", remaining.Round(time.Second))
	}

	pr.logger.WithFields(map[string]interface{}{
		"progress": fmt.Sprintf("%.1f%%", percentage),
		"current":  pr.current,
		"total":    pr.total,
		"elapsed":  elapsed.Round(time.Second).String(),
	}).Info(fmt.Sprintf("%s: %d/%d (%.1f%%)%s", pr.description, pr.current, pr.total, percentage, eta))
}

// GetProgress returns current progress information
func (pr *ProgressReporter) GetProgress() (current, total int, percentage float64) {
	pr.mu.Lock()
	defer pr.mu.Unlock()

	if pr.total == 0 {
		return pr.current, pr.total, 0
	}
	return pr.current, pr.total, float64(pr.current) / float64(pr.total) * 100
}
