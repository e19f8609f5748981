package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/wingx/dashboard/internal/assets"
	authsvc "github.com/wingx/dashboard/internal/auth"
	"github.com/wingx/dashboard/internal/catalog"
	"github.com/wingx/dashboard/internal/config"
	"github.com/wingx/dashboard/internal/db"
	"github.com/wingx/dashboard/internal/httpserver"
	"github.com/wingx/dashboard/internal/livefeed"
	"github.com/wingx/dashboard/internal/logging"
	authmw "github.com/wingx/dashboard/internal/middleware/auth"
	"github.com/wingx/dashboard/internal/middleware/csrf"
	loggingmw "github.com/wingx/dashboard/internal/middleware/logging"
	"github.com/wingx/dashboard/internal/mykafka"
	"github.com/wingx/dashboard/internal/pgnotify"
	"github.com/wingx/dashboard/internal/redisx"
	"github.com/wingx/dashboard/internal/repo"
	"github.com/wingx/dashboard/internal/search"
	"github.com/wingx/dashboard/internal/session"
	"github.com/wingx/dashboard/internal/tokens"
	"github.com/wingx/dashboard/internal/validate"
	"github.com/wingx/dashboard/internal/verification"
)

const (
	consumerWorkers = 4
	idempotencyTTL  = 24 * time.Hour
)

// Venezuela has no daylight saving time.
var caracas = time.FixedZone("VET", -4*60*60)

func main() {
	cfg := config.Load()
	cfg.MustValid()

	logger := logging.New(cfg.LogLevel).With("service", cfg.ServiceName)
	tokens.Secure = cfg.CookieSecure

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	gdb, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database init failed: %v", err)
	}
	if err := db.Migrate(ctx, gdb); err != nil {
		log.Fatalf("database migrate failed: %v", err)
	}
	store := &repo.GormRepo{DB: gdb}

	rdb, err := redisx.New(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		log.Fatalf("redis init failed: %v", err)
	}

	esClient, err := search.NewClient(search.Config{URL: cfg.ESURL, User: cfg.ESUser, Password: cfg.ESPassword}, logger)
	if err != nil {
		log.Fatalf("elasticsearch init failed: %v", err)
	}

	prod := mykafka.NewProducer(cfg.KafkaBrokers)

	hub := livefeed.NewHub(store, logger)
	bus := redisx.NewBus(rdb, hub, logger)
	sessions := session.NewManager(hub, cfg.AccessTTL, logger)

	var wg sync.WaitGroup
	spawn := func(name string, run func(context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("background_task_failed", "task", name, "error", err)
			}
		}()
	}

	spawn("session_sweeper", sessions.Run)
	if gdb.Dialector.Name() == "postgres" {
		spawn("pgnotify", pgnotify.New(cfg.DatabaseURL, db.OrdersChannel, hub, logger).Run)
	}
	if rdb != nil {
		spawn("redis_bus", bus.Listen)
	}
	if len(cfg.KafkaBrokers) > 0 {
		var idem mykafka.Deduper
		if rdb != nil {
			idem = redisx.NewStore(rdb, idempotencyTTL)
		}
		consumer := mykafka.NewConsumer(cfg.KafkaBrokers, cfg.KafkaConsumerGroup, cfg.OrderEventsTopic, consumerWorkers, idem, logger)
		handler := mykafka.OrderEvents(store, hub, logger)
		spawn("order_events", func(ctx context.Context) error { return consumer.Run(ctx, handler) })
	}

	authService := &authsvc.AuthService{
		Repo:          store,
		AccessSecret:  cfg.JWTAccessSecret,
		RefreshSecret: cfg.JWTRefreshSecret,
		AccessTTL:     cfg.AccessTTL,
		RefreshTTL:    cfg.RefreshTTL,
		Google:        authsvc.NewGoogleVerifier(cfg.GoogleClientID),
		Events:        prod,
	}

	ik := assets.NewClient(cfg.ImageKitPrivateKey, cfg.ImageKitPublicKey, cfg.ImageKitURLEndpoint)
	ikAuth := assets.NewAuthenticator(ik, cfg.ImageKitTokenTTL)
	catalogService := &catalog.Service{
		Store:    store,
		Events:   prod,
		Uploader: assets.NewUploader(ik),
		Topic:    cfg.ProductEventsTopic,
		Folder:   cfg.ImageKitFolder,
	}
	// a nil *search.Index must not end up inside the interface
	if ix := search.NewIndex(esClient, cfg.ESIndex); ix != nil {
		catalogService.Index = ix
	}

	verificationService := &verification.Service{
		Store:  store,
		Events: prod,
		Bus:    bus,
		Topic:  cfg.OrderEventsTopic,
	}

	v, err := validate.New()
	if err != nil {
		log.Fatalf("validator init failed: %v", err)
	}

	e := echo.New()
	e.HideBanner = true
	e.Validator = v
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover(), middleware.RequestID(), loggingmw.RequestLogger(logger))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     cfg.AllowOrigins,
		AllowCredentials: true,
		AllowHeaders:     []string{echo.HeaderContentType, "X-CSRF-Token"},
		ExposeHeaders:    []string{"X-CSRF-Token"},
	}))

	httpserver.Register(e, &httpserver.Deps{
		AuthHandler: &httpserver.AuthHTTP{
			Svc:       authService,
			Sessions:  sessions,
			Validator: v,
			ImageKit:  ikAuth,
		},
		ShellHandler:        &httpserver.ShellHTTP{},
		NotifyHandler:       &httpserver.NotificationsHTTP{},
		EventsHandler:       &httpserver.EventsHTTP{},
		VerificationHandler: &httpserver.VerificationHTTP{Svc: verificationService, Loc: caracas},
		StoreHandler:        &httpserver.StoreHTTP{Svc: catalogService, MaxImageMiB: cfg.ProductImagesMaxMiB},
		Auth: &authmw.SessionAuth{
			JWTSecret:     cfg.JWTAccessSecret,
			RefreshSecret: cfg.JWTRefreshSecret,
			Refresher:     authService,
			Sessions:      sessions,
		},
		CSRF: csrf.Config{
			Secure:         cfg.CookieSecure,
			TrustedOrigins: cfg.AllowOrigins,
		},
		Ready: func(c echo.Context) error { return ready(c.Request().Context(), gdb.DB, rdb) },
	})

	// WriteTimeout stays off: /api/v1/events is a long lived stream
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:           e,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	go func() {
		logger.Info("http_server_started", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http_server_failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting_down")

	// sessions first: it closes the event streams Shutdown would wait on
	sessions.Close()
	hub.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http_server_shutdown_failed", "error", err)
	}

	wg.Wait()

	if err := prod.Close(); err != nil {
		logger.Error("kafka_close_failed", "error", err)
	}
	if rdb != nil {
		if err := rdb.Close(); err != nil {
			logger.Error("redis_close_failed", "error", err)
		}
	}
	db.Close(gdb)

	logger.Info("shutdown_complete")
}

func ready(ctx context.Context, sqlDB func() (*sql.DB, error), rdb *redis.Client) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	s, err := sqlDB()
	if err != nil {
		return err
	}
	if err := s.PingContext(ctx); err != nil {
		return err
	}
	if rdb != nil {
		return rdb.Ping(ctx).Err()
	}
	return nil
}
