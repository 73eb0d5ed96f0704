package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/furkanugurlu/location-dashboard/internal/mockapi/config"
	"github.com/furkanugurlu/location-dashboard/internal/mockapi/httpapi"
	"github.com/furkanugurlu/location-dashboard/internal/mockapi/ingest"
	"github.com/furkanugurlu/location-dashboard/internal/mockapi/store"
	"github.com/furkanugurlu/location-dashboard/internal/mqtt"

	paho "github.com/eclipse/paho.mqtt.golang"
	chimw "github.com/go-chi/chi/v5/middleware"
	"gorm.io/gorm"
)

func main() {
	cfg := config.Load()
	setupLogging(cfg.LogLevel)

	var (
		db  *gorm.DB
		err error
	)
	if cfg.UsePostgres() {
		db, err = store.OpenPostgres(cfg.Postgres.User, cfg.Postgres.Password, cfg.Postgres.DBName, cfg.Postgres.Host, cfg.Postgres.Port, cfg.Postgres.SSLMode)
	} else {
		db, err = store.OpenSQLite(cfg.SQLitePath)
	}
	if err != nil {
		slog.Error("db connect failed", "error", err)
		os.Exit(1)
	}
	repo, err := store.New(db)
	if err != nil {
		slog.Error("db migrate failed", "error", err)
		os.Exit(1)
	}

	schema, err := ingest.LoadSchema()
	if err != nil {
		slog.Error("schema compile failed", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if broker := cfg.BrokerURL(); broker != "" {
		mq, err := mqtt.Dial(mqtt.Options{Broker: broker, ClientID: cfg.MQTTClientID, QoS: 1})
		if err != nil {
			slog.Error("mqtt connect failed", "error", err)
			os.Exit(1)
		}
		defer mq.Close()

		ing := &ingest.Ingestor{Repo: repo, Schema: schema, TopicPrefix: cfg.TopicPrefix, AllowRetains: cfg.IngestRetained}
		subTopic := strings.TrimRight(cfg.TopicPrefix, "/") + "/#"
		if err := mq.Subscribe(subTopic, func(m paho.Message) {
			ing.HandleMessage(ctx, m, time.Now().UTC())
		}); err != nil {
			slog.Error("mqtt subscribe failed", "topic", subTopic, "error", err)
			os.Exit(1)
		}
		slog.Info("location ingest subscribed", "topic", subTopic)
	}

	srv := httpapi.New(repo, schema)
	httpSrv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           chimw.Logger(chimw.Recoverer(srv.Handler())),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		slog.Info("mock-location-api listening", "addr", httpSrv.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("http server error", "error", err)
			cancel()
		}
	}()

	stop := make(chan os.Signal, 2)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-stop:
		slog.Info("shutdown requested")
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = httpSrv.Shutdown(shutdownCtx)
	cancel()
}

func setupLogging(level string) {
	lvl := slog.LevelInfo
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn", "warning":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	}
	h := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(h))
}
