package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/AbbasPi/Maller-API/internal/cache"
	"github.com/AbbasPi/Maller-API/internal/httpserver"
	"github.com/AbbasPi/Maller-API/internal/metrics"
	"github.com/AbbasPi/Maller-API/internal/mykafka"
	"github.com/AbbasPi/Maller-API/internal/repo"
	"github.com/AbbasPi/Maller-API/internal/search"
	"github.com/AbbasPi/Maller-API/internal/service"
	"github.com/AbbasPi/Maller-API/pkg/authclient"
	"github.com/AbbasPi/Maller-API/pkg/config"
	pkgdb "github.com/AbbasPi/Maller-API/pkg/db"
	"github.com/AbbasPi/Maller-API/pkg/logging"
	"github.com/AbbasPi/Maller-API/pkg/middleware/csrf"
	loggingmw "github.com/AbbasPi/Maller-API/pkg/middleware/logging"
	metricsmw "github.com/AbbasPi/Maller-API/pkg/middleware/metrics"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: could not load .env: %v", err)
	}

	cfg := config.Load()
	config.MustValid(cfg)

	logger, logCloser := logging.NewWithFile(cfg.LogLevel, cfg.LogFile)
	defer logCloser.Close()
	logger = logger.With("service", cfg.ServiceName)
	slog.SetDefault(logger)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	db, err := pkgdb.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		cancel()
		log.Fatalf("db open: %v", err)
	}

	r := &repo.GormRepo{DB: db}
	if err := r.Migrate(ctx); err != nil {
		cancel()
		log.Fatalf("migrate: %v", err)
	}
	if err := r.SeedStatuses(ctx); err != nil {
		cancel()
		log.Fatalf("seed statuses: %v", err)
	}

	orders, err := service.NewOrderService(ctx, r)
	if err != nil {
		cancel()
		log.Fatalf("order service: %v", err)
	}
	orders.Shipping = service.Shipping{OriginCity: cfg.ShippingOriginCity}
	cart := &service.CartService{Repo: r}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	orders.Metrics = metrics.New(cfg.ServiceName, reg)

	ready := []httpserver.ReadinessCheck{func(ctx context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	}}

	var producer *mykafka.Producer
	if len(cfg.KafkaBrokers) > 0 {
		producer, err = mykafka.NewProducer(cfg.KafkaBrokers)
		if err != nil {
			cancel()
			log.Fatalf("kafka producer: %v", err)
		}
		cart.Events = producer
		orders.Events = producer
	} else {
		logger.Warn("kafka disabled, events are not published")
	}

	if cfg.ESURL != "" {
		es, err := search.NewClient(ctx, cfg.ESURL, cfg.ESUser, cfg.ESPassword)
		if err != nil {
			logger.Warn("elasticsearch unavailable, searching orders in the database", "error", err)
		} else {
			orders.Index = search.NewOrderIndex(es, cfg.ESOrderIndex)
		}
	}

	orderHandler := &httpserver.OrderHTTP{Svc: orders}
	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		store := cache.NewIdempotencyStore(rdb, cfg.IdempotencyTTL)
		orderHandler.Idempotency = store
		ready = append(ready, store.Ping)
	}
	cancel()

	deps := &httpserver.Deps{
		CartHandler:   &httpserver.CartHTTP{Svc: cart},
		OrderHandler:  orderHandler,
		JWTSecret:     cfg.JWTAccessSecret,
		SecureCookies: cfg.SecureCookies,
		Gatherer:      reg,
		Ready:         ready,
	}
	if cfg.AuthHTTPURL != "" {
		deps.AuthClient = authclient.NewClient(cfg.AuthHTTPURL)
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(metricsmw.NewServerMetrics(cfg.ServiceName, reg).Middleware())
	e.Use(loggingmw.RequestLogger(logger))
	e.Use(echomw.CORS())
	e.Use(csrf.Middleware(csrf.Config{
		Secure:    cfg.SecureCookies,
		SkipPaths: []string{"/health/live", "/health/ready", "/metrics"},
	}))

	httpserver.Register(e, deps)

	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.ServerPort),
		Handler:           e,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		ReadHeaderTimeout: 3 * time.Second,
	}

	go func() {
		logger.Info("marketplace listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	_ = srv.Shutdown(shutdownCtx)

	if producer != nil {
		if err := producer.Close(); err != nil {
			logger.Warn("kafka close", "error", err)
		}
	}
	if rdb != nil {
		_ = rdb.Close()
	}
	if err := pkgdb.Close(db); err != nil {
		logger.Warn("db close", "error", err)
	}

	logger.Info("marketplace stopped")
}
