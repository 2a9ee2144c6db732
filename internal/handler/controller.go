package handler

import (
	"context"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"sitemap-audit/internal/config"
	"sitemap-audit/internal/service"
	"sitemap-audit/pkg/logger"
	"sitemap-audit/pkg/storage"
)

// Controller exposes the audit pipeline over HTTP: trigger a scan for a
// configured site and fetch the latest stored report.
type Controller struct {
	audit service.AuditService
	store storage.Store
	cfg   *config.Config
	log   *logger.Logger
}

func NewController(audit service.AuditService, store storage.Store, cfg *config.Config) *Controller {
	return &Controller{
		audit: audit,
		store: store,
		cfg:   cfg,
		log:   logger.GetLogger().WithField("component", "controller"),
	}
}

// Register mounts all routes on the fiber app.
func (c *Controller) Register(app *fiber.App) {
	app.Get("/healthz", c.health)
	app.Post("/audits/:site", c.triggerAudit)
	app.Get("/reports", c.listReports)
	app.Get("/reports/:site", c.getReport)
}

func (c *Controller) health(ctx *fiber.Ctx) error {
	return ctx.JSON(fiber.Map{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// triggerAudit starts an audit for one configured site. The scan runs in the
// background; the latest finished report is available under /reports/:site.
func (c *Controller) triggerAudit(ctx *fiber.Ctx) error {
	siteID := ctx.Params("site")

	site, ok := c.findSite(siteID)
	if !ok {
		return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "unknown site: " + siteID,
		})
	}

	go func() {
		if _, err := c.audit.AuditSite(context.Background(), site); err != nil {
			c.log.WithError(err).WithField("site", site.ID).Error("Triggered audit failed")
		}
	}()

	return ctx.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"site":   site.ID,
		"status": "started",
	})
}

func (c *Controller) getReport(ctx *fiber.Ctx) error {
	siteID := ctx.Params("site")

	var report service.AuditReport
	if err := c.store.Load(ctx.Context(), "report:"+siteID, &report); err != nil {
		return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "no report for site: " + siteID,
		})
	}
	return ctx.JSON(report)
}

func (c *Controller) listReports(ctx *fiber.Ctx) error {
	keys, err := c.store.Keys(ctx.Context(), "report:")
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	sites := make([]string, 0, len(keys))
	for _, key := range keys {
		sites = append(sites, strings.TrimPrefix(key, "report:"))
	}
	return ctx.JSON(fiber.Map{"sites": sites})
}

func (c *Controller) findSite(id string) (config.Site, bool) {
	for _, site := range c.cfg.Sites {
		if site.ID == id {
			return site, true
		}
	}
	return config.Site{}, false
}
