package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/ariefcatur/go-catalog-orders/internal/config"
	"github.com/ariefcatur/go-catalog-orders/internal/httpx"
	kafkax "github.com/ariefcatur/go-catalog-orders/internal/kafka"
	"github.com/ariefcatur/go-catalog-orders/internal/memstore"
	"github.com/ariefcatur/go-catalog-orders/internal/orders"
	"github.com/ariefcatur/go-catalog-orders/internal/postgres"
	"github.com/ariefcatur/go-catalog-orders/internal/redisx"
	"github.com/ariefcatur/go-catalog-orders/internal/telemetry"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	logger := cfg.NewLogger(os.Stdout)
	slog.SetDefault(logger)
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	metricsHandler, shutdownMetrics, err := telemetry.InitMeterProvider(cfg.ServiceName, cfg.ServiceVersion)
	if err != nil {
		logger.Error("init metrics", "error", err)
		os.Exit(1)
	}
	shutdownTracing, err := telemetry.InitTracerProvider(ctx, cfg.OTLPEndpoint, cfg.ServiceName, cfg.ServiceVersion)
	if err != nil {
		logger.Error("init tracing", "error", err)
		os.Exit(1)
	}

	// Store
	var store orders.Store
	switch cfg.StoreDriver {
	case config.StoreDriverMemory:
		store = memstore.New()
		logger.Warn("using in-memory store, data is lost on exit")
	default:
		if cfg.MigrateOnStart {
			if err := postgres.Migrate(cfg.PostgresDSN); err != nil {
				logger.Error("migrate", "error", err)
				os.Exit(1)
			}
		}
		db, err := postgres.Connect(ctx, cfg.PostgresDSN, postgres.WithMaxConns(int32(cfg.PostgresConns)))
		if err != nil {
			logger.Error("db connect", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		store = postgres.NewStore(db)
	}

	ordersHandler := &httpx.OrdersHandler{Repo: store, Logger: logger}
	svcOpts := []orders.ServiceOption{orders.WithProducerName(cfg.ServiceName)}

	// Redis
	if cfg.RedisAddr != "" {
		rdb := redisx.New(cfg.RedisAddr)
		defer rdb.Close()
		cache := redisx.NewOrderCache(rdb, logger)
		ordersHandler.Cache = cache
		svcOpts = append(svcOpts, orders.WithViewInvalidator(cache))
	}

	// Kafka producer
	var prod *kafkax.Producer
	if len(cfg.KafkaBrokers) > 0 {
		prod = kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderSettled, 1024, logger)
		prod.Start()
		svcOpts = append(svcOpts, orders.WithPublisher(prod))
	}

	ordersHandler.Service = orders.NewService(store, logger, svcOpts...)

	router := httpx.NewRouter(logger)
	router.Handle("/metrics", metricsHandler)
	(&httpx.ProductsHandler{Repo: store, Logger: logger}).Register(router)
	ordersHandler.Register(router)

	// HTTP server
	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      otelhttp.NewHandler(router, cfg.ServiceName),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 20 * time.Second,
	}

	go func() {
		logger.Info("HTTP listening", "addr", cfg.HTTPAddr, "store", cfg.StoreDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("listen", "error", err)
			os.Exit(1)
		}
	}()

	// wait signal
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info("shutting down")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	if err := srv.Shutdown(ctx2); err != nil {
		logger.Error("http shutdown", "error", err)
	}
	if prod != nil {
		prod.Close()      // tutup inbox -> flush & close writer
		prod.WaitClosed() // drain
	}
	if err := shutdownTracing(ctx2); err != nil {
		logger.Error("tracer shutdown", "error", err)
	}
	if err := shutdownMetrics(ctx2); err != nil {
		logger.Error("meter shutdown", "error", err)
	}
}
