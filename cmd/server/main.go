package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"

	"sitemap-audit/internal/config"
	"sitemap-audit/internal/handler"
	"sitemap-audit/internal/service"
	"sitemap-audit/pkg/logger"
	"sitemap-audit/pkg/storage"
)

func main() {
	var (
		configPath = flag.String("config", "config/audit.yaml", "Configuration file path")
		debug      = flag.Bool("debug", false, "Enable debug logging")
	)
	flag.Parse()

	cfg, err := config.NewManager().Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config %s: %v\n", *configPath, err)
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
	log := logger.GetLogger().WithField("component", "server")

	store := storage.NewMemoryStore()
	audit := service.NewAuditService(cfg, store)
	controller := handler.NewController(audit, store, cfg)

	app := fiber.New(fiber.Config{
		AppName:      "sitemap-audit",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	})
	controller.Register(app)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info("Shutdown signal received")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.WithError(err).Warn("Shutdown did not complete cleanly")
		}
	}()

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	log.WithField("addr", addr).Info("Starting audit server")
	if err := app.Listen(addr); err != nil {
		log.WithError(err).Fatal("Server stopped")
	}
}
