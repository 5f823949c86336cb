package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/quillsocial/quill/internal/config"
	"github.com/quillsocial/quill/internal/infra/cache"
	"github.com/quillsocial/quill/internal/infra/database"
	"github.com/quillsocial/quill/internal/infra/repository"
	"github.com/quillsocial/quill/internal/present/rest"
	"github.com/quillsocial/quill/internal/present/rest/middleware"
	"github.com/quillsocial/quill/internal/queue"
	"github.com/quillsocial/quill/internal/service"
	"github.com/quillsocial/quill/internal/stream"
	"github.com/quillsocial/quill/internal/usecase"
)

func main() {
	configPath := os.Getenv("QUILL_CONFIG")
	if configPath == "" {
		configPath = "/etc/quill/config.yaml"
	}

	conf, err := config.Load(configPath)
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if conf.Server.EnableTrace {
		shutdown, err := setupTracing(ctx, conf.Server.TraceEndpoint)
		if err != nil {
			slog.Error("failed to set up tracing", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer shutdown(context.Background())
	}

	db, err := database.NewPostgres(conf.Server.PostgresDsn)
	if err != nil {
		slog.Error("failed to connect database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if err := database.MigratePostgres(db); err != nil {
		slog.Error("failed to migrate database", slog.String("error", err.Error()))
		os.Exit(1)
	}

	rdb := database.NewRedis(conf.Server.RedisAddr, "", conf.Server.RedisDB)

	streamTTL := time.Duration(conf.Server.StreamTTL) * time.Second
	var streamCache stream.StreamCache
	if conf.Server.MemcachedAddr != "" {
		mc := database.NewMemcached(conf.Server.MemcachedAddr)
		streamCache = cache.NewMemcachedStreamCache(mc, streamTTL)
	} else {
		streamCache = cache.NewRedisStreamCache(rdb, streamTTL)
	}

	notices := repository.NewNoticeRepository(db)
	profiles := repository.NewProfileRepository(db)
	queueRepo := repository.NewQueueRepository(db)

	timelines := stream.NewTimelines(notices, profiles, streamCache, &stream.Hooks{})
	timelineUC := usecase.NewTimelineUsecase(timelines, profiles)
	queueUC := usecase.NewQueueUsecase(queueRepo, queueRepo)

	signalSvc := service.NewSignalService(rdb)

	registry := queue.NewRegistry()
	registry.Register(service.TransportSignal, service.NewSignalHandler(signalSvc))

	consumer := queue.NewConsumer(queueRepo, registry, queue.ConsumerConfig{
		PollInterval: time.Duration(conf.Queue.PollInterval) * time.Second,
		ClaimLease:   time.Duration(conf.Queue.ClaimLease) * time.Second,
		Transports:   conf.Queue.Transports,
		Ignore:       conf.Queue.IgnoreTransports,
	}, slog.Default())

	go func() {
		if err := consumer.Run(ctx); err != nil && err != context.Canceled {
			slog.Error("queue consumer stopped", slog.String("error", err.Error()))
		}
	}()

	e := echo.New()
	e.Use(echomw.Logger())
	e.Use(echomw.Recover())
	e.Use(echomw.CORS())
	if conf.Server.EnableTrace {
		e.Use(otelecho.Middleware(conf.Site.FQDN))
	}

	viewerMW := middleware.NewViewerMiddleware(profiles)
	e.Use(viewerMW.IdentifyViewer)

	handler := rest.NewHandler(conf.Site, timelineUC, queueUC, signalSvc)
	handler.RegisterRoutes(e)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := e.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown failed", slog.String("error", err.Error()))
		}
	}()

	e.Logger.Fatal(e.Start(conf.Server.Listen))
}

func setupTracing(ctx context.Context, endpoint string) (func(context.Context) error, error) {
	exporter, err := otlptracehttp.New(ctx, otlptracehttp.WithEndpoint(endpoint))
	if err != nil {
		return nil, err
	}
	provider := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
	otel.SetTracerProvider(provider)
	return provider.Shutdown, nil
}
