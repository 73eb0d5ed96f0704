package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/furkanugurlu/location-dashboard/internal/config"
	"github.com/furkanugurlu/location-dashboard/internal/dashboard"
	"github.com/furkanugurlu/location-dashboard/internal/health"
	"github.com/furkanugurlu/location-dashboard/internal/httpapi"
	"github.com/furkanugurlu/location-dashboard/internal/locationapi"
	"github.com/furkanugurlu/location-dashboard/internal/middleware"
	"github.com/furkanugurlu/location-dashboard/internal/observability"
	"github.com/furkanugurlu/location-dashboard/internal/pagination"
	"github.com/furkanugurlu/location-dashboard/internal/ratelimit"
	"github.com/furkanugurlu/location-dashboard/internal/realtime"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/redis/go-redis/v9"
)

const serviceName = "location-dashboard"

func main() {
	configPath := flag.String("config", os.Getenv("DASHBOARD_CONFIG"), "path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("config load failed", "error", err)
		os.Exit(1)
	}
	setupLogging(cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, promHandler, tracer, err := observability.SetupObservability(ctx, serviceName, cfg.Tracing.OTLPEndpoint)
	if err != nil {
		slog.Error("observability setup failed", "error", err)
		os.Exit(1)
	}
	defer shutdownTelemetry()

	api := locationapi.New(cfg.LocationAPI.URL, locationapi.Options{Timeout: cfg.LocationAPI.Timeout})
	svc := dashboard.NewService(api, dashboard.Options{
		Limits: pagination.Limits{
			DefaultLimit: cfg.Pagination.DefaultLimit,
			MaxLimit:     cfg.Pagination.MaxLimit,
		},
	})

	hub := realtime.NewHub(originChecker(cfg.CORS.AllowedOrigins))
	svc.Store().Subscribe(func(_, next dashboard.State, a dashboard.Action) {
		if !recordsChanged(a) {
			return
		}
		hub.Broadcast(realtime.Event{Type: realtime.EventRecordsChanged, Data: map[string]any{
			"version": next.Version,
			"total":   next.Total,
			"error":   next.Error,
		}})
	})

	monitor := health.NewMonitor(api, health.Options{
		Schedule: cfg.Health.Schedule,
		OnChange: func(_, next health.Status) {
			hub.Broadcast(realtime.Event{Type: realtime.EventHealthChanged, Data: next})
		},
	})
	if err := monitor.Start(ctx); err != nil {
		slog.Error("health monitor start failed", "error", err)
		os.Exit(1)
	}
	defer monitor.Stop()

	guards := httpapi.Guards{}
	if cfg.Auth.JWTPublicKeyPath != "" {
		pub, err := middleware.LoadRSAPublicKey(cfg.Auth.JWTPublicKeyPath)
		if err != nil {
			slog.Error("failed to load jwt public key", "error", err)
			os.Exit(1)
		}
		guards.Read = append(guards.Read, middleware.JWTAuthMiddlewareRS256(pub), middleware.RoleAtLeastMiddleware("resident"))
		guards.Delete = append(guards.Delete, middleware.RoleAtLeastMiddleware("admin"))
	} else {
		slog.Warn("auth disabled, no jwt public key configured")
	}
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password})
		defer rdb.Close()
		limiter := ratelimit.NewRedis(rdb, serviceName+":delete", ratelimit.LimiterConfig{
			RPS:   cfg.RateLimit.RPS,
			Burst: cfg.RateLimit.Burst,
		})
		guards.Delete = append(guards.Delete, ratelimit.Middleware(limiter, ratelimit.KeyByUserOrIP))
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   []string{"GET", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", middleware.CorrelationHeader},
		ExposedHeaders:   []string{middleware.CorrelationHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(middleware.CorrelationID)
	r.Use(observability.MetricsAndTracingMiddleware(serviceName, tracer))
	r.Handle("/metrics", promHandler)

	httpapi.NewServer(svc, monitor, hub).RegisterRoutes(r, guards)

	httpSrv := &http.Server{
		Addr:              cfg.ListenAddr(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		slog.Info("location-dashboard started", "addr", httpSrv.Addr, "location_api", cfg.LocationAPI.URL)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	slog.Info("shutting down")
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
}

func recordsChanged(a dashboard.Action) bool {
	switch a.(type) {
	case dashboard.FetchSucceeded, dashboard.DeleteRequested, dashboard.DeleteConfirmed, dashboard.DeleteFailed:
		return true
	}
	return false
}

func originChecker(allowed []string) func(*http.Request) bool {
	for _, o := range allowed {
		if o == "*" {
			return nil
		}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, o := range allowed {
			if strings.EqualFold(o, origin) {
				return true
			}
		}
		return false
	}
}

func setupLogging(level, format string) {
	lvl := slog.LevelInfo
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn", "warning":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	}
	opts := &slog.HandlerOptions{Level: lvl}
	var h slog.Handler = slog.NewTextHandler(os.Stdout, opts)
	if strings.EqualFold(strings.TrimSpace(format), "json") {
		h = slog.NewJSONHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(h))
}
