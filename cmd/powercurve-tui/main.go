package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/i474232898/turbine-power-curve/internal/config"
	"github.com/i474232898/turbine-power-curve/internal/logger"
	"github.com/i474232898/turbine-power-curve/internal/powercurve"
	"github.com/i474232898/turbine-power-curve/internal/powercurve/analytics"
	"github.com/i474232898/turbine-power-curve/internal/scheduler"
	"github.com/i474232898/turbine-power-curve/internal/store"
	"github.com/i474232898/turbine-power-curve/internal/tui"
)

// defaultLogFile keeps log lines off the terminal the dashboard draws on.
const defaultLogFile = "powercurve-tui.log"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	closer, err := logger.Init(dashboardLog(cfg.Log, os.Getenv("LOG_OUTPUT") != ""))
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer closer.Close()

	mainLog := logger.WithComponent("main")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer stop()

	client := analytics.NewClient(&http.Client{Timeout: cfg.HTTPTimeout}, cfg.APIBaseURL, logger.WithComponent("analytics"),
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

	if err := tui.Run(ctx, ctrl, tea.WithAltScreen()); err != nil {
		mainLog.Error().Err(err).Msg("dashboard stopped")
	}
}

// dashboardLog moves terminal output to defaultLogFile unless the operator
// picked an output explicitly.
func dashboardLog(c logger.Config, explicit bool) logger.Config {
	if explicit {
		return c
	}
	if c.Output == "" || c.Output == "stderr" || c.Output == "stdout" {
		c.Output = defaultLogFile
	}
	return c
}
