package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	httpapi "github.com/i474232898/turbine-power-curve/internal/api/http"
	"github.com/i474232898/turbine-power-curve/internal/config"
	"github.com/i474232898/turbine-power-curve/internal/logger"
	"github.com/i474232898/turbine-power-curve/internal/powercurve"
	"github.com/i474232898/turbine-power-curve/internal/powercurve/analytics"
	"github.com/i474232898/turbine-power-curve/internal/scheduler"
	"github.com/i474232898/turbine-power-curve/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	closer, err := logger.Init(cfg.Log)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer closer.Close()

	mainLog := logger.WithComponent("main")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Shared HTTP client for outbound analytics calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}
	client := analytics.NewClient(httpClient, cfg.APIBaseURL, logger.WithComponent("analytics"),
		analytics.WithBreaker(cfg.BreakerMaxRequests, cfg.BreakerTimeout))

	ctrl := powercurve.NewController(
		client,
		store.NewMemoryStore(),
		powercurve.NewParameterStore(powercurve.DefaultParams()),
		logger.WithComponent("controller"),
	)
	ctrl.Start(ctx)
	defer ctrl.Close()

	sched := scheduler.New(cfg.RefreshInterval, ctrl, logger.WithComponent("scheduler"))
	if err := sched.Start(); err != nil {
		mainLog.Fatal().Err(err).Msg("failed to start scheduler")
	}
	defer sched.Stop()

	app := fiber.New(fiber.Config{
		AppName:               "powercurve-client",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			var e *fiber.Error
			if errors.As(err, &e) {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	app.Use(fiberlogger.New())
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "powercurve-client",
			"api":     client.BaseURL(),
		})
	})

	httpapi.RegisterRoutes(app, ctrl)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			mainLog.Error().Err(err).Msg("fiber server stopped")
		}
	}()
	mainLog.Info().Str("port", cfg.Port).Str("api", client.BaseURL()).Msg("powercurve client started")

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		mainLog.Error().Err(err).Msg("error during shutdown")
	}
}
