package main

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/ariefcatur/go-catalog-orders/internal/audit"
	"github.com/ariefcatur/go-catalog-orders/internal/config"
	kafkax "github.com/ariefcatur/go-catalog-orders/internal/kafka"
	"github.com/ariefcatur/go-catalog-orders/internal/orders"
	"github.com/ariefcatur/go-catalog-orders/internal/redisx"
	"github.com/ariefcatur/go-catalog-orders/internal/telemetry"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	cfg.ServiceName += "-audit"
	logger := cfg.NewLogger(os.Stdout)

	if len(cfg.KafkaBrokers) == 0 {
		logger.Error("KAFKA_BROKERS is required")
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metricsHandler, shutdownMetrics, err := telemetry.InitMeterProvider(cfg.ServiceName, cfg.ServiceVersion)
	if err != nil {
		logger.Error("init metrics", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownMetrics(context.Background()) }()

	ln, err := net.Listen("tcp", cfg.MetricsAddr)
	if err != nil {
		logger.Error("metrics listen", "error", err, "addr", cfg.MetricsAddr)
		os.Exit(1)
	}
	metricsDone := make(chan error, 1)
	go func() { metricsDone <- telemetry.ServeMetrics(ctx, ln, metricsHandler) }()
	logger.Info("metrics listening", "addr", ln.Addr().String())

	svc := &audit.Service{Logger: logger}

	// Redis dedup, optional
	if cfg.RedisAddr != "" {
		rdb := redisx.New(cfg.RedisAddr)
		defer rdb.Close()
		svc.Dedup = redisx.NewDeduper(rdb, cfg.ServiceName)
	}

	cons := kafkax.NewConsumer(cfg.KafkaBrokers, cfg.AuditGroup, orders.TopicOrderSettled, cfg.AuditWorkers, logger)

	logger.Info("audit consumer started", "group", cfg.AuditGroup, "topic", orders.TopicOrderSettled, "workers", cfg.AuditWorkers)
	consErr := cons.Start(ctx, svc.HandleSettled)
	stop()
	if err := <-metricsDone; err != nil {
		logger.Error("metrics server", "error", err)
	}
	if consErr != nil {
		logger.Error("consumer exit", "error", consErr)
		os.Exit(1)
	}
	logger.Info("audit consumer stopped")
}
