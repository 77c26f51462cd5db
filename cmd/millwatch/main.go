package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/millwatch/millwatch/internal/alerts"
	"github.com/millwatch/millwatch/internal/api"
	"github.com/millwatch/millwatch/internal/config"
	"github.com/millwatch/millwatch/internal/health"
	"github.com/millwatch/millwatch/internal/metrics"
	"github.com/millwatch/millwatch/internal/model"
	"github.com/millwatch/millwatch/internal/monitor"
	"github.com/millwatch/millwatch/internal/simulator"
	"github.com/millwatch/millwatch/internal/store"
	"github.com/millwatch/millwatch/internal/ws"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	uiDir := flag.String("ui-dir", "", "serve the dashboard static files from this directory; leave empty to disable")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	// Optional .env for webhook URLs and API keys; absence is fine.
	if err := godotenv.Load(); err == nil {
		slog.Info("loaded environment from .env")
	}

	slog.Info("millwatch starting", "config", *configPath)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	slog.Info("config loaded",
		"http_port", cfg.Service.HTTPPort,
		"machines", cfg.Simulation.Machines,
		"tick_interval", cfg.Simulation.TickInterval,
		"failure_threshold", cfg.Monitoring.FailureThreshold,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Model artifact: loaded once, before any prediction is answered.
	// A failed load leaves the handle empty and the prediction path failing
	// fast with ModelUnavailable — the service still starts so /health and
	// /metrics can report the condition.
	models := model.NewHandle()
	if art, err := model.Load(cfg.Service.ModelDir); err != nil {
		slog.Error("model artifact load failed — predictions unavailable",
			"dir", cfg.Service.ModelDir, "err", err)
	} else {
		models.Set(art)
	}

	// Fleet: explicit construction order replaces first-access singletons.
	seed := cfg.Simulation.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	fleet := simulator.NewFleet(cfg.Simulation.Machines, cfg.Sensors, rand.New(rand.NewSource(seed)))

	classifier := health.New(health.PolicyFromConfig(cfg.Monitoring))
	verdicts := store.New(cfg.Simulation.VerdictTTL)
	go verdicts.Run(ctx)

	alertEngine := alerts.New(cfg.Alerts)
	registry := metrics.New(models.Loaded)

	coord := monitor.New(fleet, models, classifier,
		monitor.WithVerdictSink(verdicts),
		monitor.WithAlertEvaluator(alertEngine),
		monitor.WithTelemetry(registry),
	)

	// Watch config for hot-reload of the classification policy only.
	go func() {
		if err := config.Watch(ctx, *configPath, func(updated *config.Config) {
			coord.UpdatePolicy(health.PolicyFromConfig(updated.Monitoring))
		}); err != nil {
			slog.Error("config watcher stopped", "err", err)
		}
	}()

	// Continuous simulation loop feeding the store, alerts, and metrics.
	go coord.Run(ctx, cfg.Simulation.TickInterval)

	// WebSocket hub — broadcasts fleet verdicts to dashboard clients.
	hub := ws.New(verdicts, cfg.Simulation.TickInterval)
	go hub.Run(ctx)

	// Combined HTTP server: REST API + WebSocket hub + metrics.
	apiHandler := api.APIKey(
		cfg.Service.Auth.Mode,
		cfg.Service.Auth.EffectiveHeader(),
		cfg.Service.Auth.Key(),
		api.New(coord, verdicts, alertEngine),
	)

	httpMux := http.NewServeMux()
	httpMux.Handle("/api/", api.CORS(apiHandler))
	httpMux.Handle("/ws/stream", hub)
	httpMux.Handle("/metrics", registry)

	// Optional: serve the pre-built dashboard from a local directory.
	// The "/" catch-all serves index.html for any unknown path (SPA routing).
	if *uiDir != "" {
		fs := http.FileServer(http.Dir(*uiDir))
		httpMux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
			path := *uiDir + r.URL.Path
			if _, err := os.Stat(path); os.IsNotExist(err) {
				http.ServeFile(w, r, *uiDir+"/index.html")
				return
			}
			fs.ServeHTTP(w, r)
		})
		slog.Info("serving dashboard static files", "dir", *uiDir)
	}

	httpSrv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Service.HTTPPort),
		Handler: httpMux,
	}
	go func() {
		slog.Info("HTTP server listening", "port", cfg.Service.HTTPPort)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server stopped", "err", err)
		}
	}()

	<-ctx.Done()
	slog.Info("millwatch shutting down")
	httpSrv.Shutdown(context.Background()) //nolint:errcheck
}
