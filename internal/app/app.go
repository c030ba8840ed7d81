package app

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	healthcheck "github.com/vladislavdragonenkov/rms/internal/health"
	"github.com/vladislavdragonenkov/rms/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/rms/internal/metrics"
	"github.com/vladislavdragonenkov/rms/internal/service/booking"
	"github.com/vladislavdragonenkov/rms/internal/service/capacity"
	"github.com/vladislavdragonenkov/rms/internal/service/outbox"
	"github.com/vladislavdragonenkov/rms/internal/service/registry"
	"github.com/vladislavdragonenkov/rms/internal/transport/httpapi"
	"github.com/vladislavdragonenkov/rms/internal/version"
)

// Run собирает зависимости по конфигурации и держит сервис до отмены ctx:
// HTTP API, служебный сервер с метриками и health, outbox worker.
func Run(ctx context.Context, cfg Config) error {
	logger := log.WithField("component", "app")

	deps, err := NewDependencies(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer deps.Close()

	validator, err := capacity.NewValidator(capacity.Limits{
		MaxTablesPerRestaurant: cfg.MaxTablesPerRestaurant,
		MaxReservationsPerDay:  cfg.MaxReservationsPerDay,
	}, deps.Reservations)
	if err != nil {
		return err
	}

	bookingMetrics := metrics.NewBookingMetrics()
	httpMetrics := metrics.NewHTTPMetrics()

	// Kafka опционален: без брокеров события копятся в outbox, но сервис
	// принимает брони.
	kafkaProducer, _ := initKafkaProducer(cfg.KafkaBrokers, logger)
	defer closeKafka(kafkaProducer, logger)

	registrySvc := registry.NewService(
		deps.Restaurants,
		deps.Outbox,
		logger.WithField("component", "registry-service"),
		registry.WithMetrics(bookingMetrics),
	)
	bookingSvc := booking.NewService(
		deps.Restaurants,
		deps.Reservations,
		validator,
		logger.WithField("component", "booking-service"),
		booking.WithOutbox(deps.Outbox),
		booking.WithMetrics(bookingMetrics),
	)

	var wg sync.WaitGroup
	if kafkaProducer != nil {
		publisher := kafka.NewAggregatePublisher(kafkaProducer)
		worker := outbox.NewWorker(deps.Outbox, publisher,
			outbox.WithPollInterval(cfg.OutboxPollInterval),
			outbox.WithDLQPublisher(kafka.NewOutboxPublisher(kafkaProducer, kafka.TopicDeadLetterQueue)),
		)
		wg.Add(1)
		go func() {
			defer wg.Done()
			worker.Run(ctx)
		}()
	}

	healthHandler := healthcheck.NewHandler(version.GetVersion())
	if deps.PG != nil {
		healthHandler.RegisterChecker("postgres", healthcheck.NewDatabaseChecker("postgres", deps.PG.DB(), 2*time.Second))
	}
	healthHandler.RegisterChecker("outbox", healthcheck.NewOutboxChecker("outbox", deps.Outbox, 5*time.Minute))

	metricsSrv := startMetricsServer(ctx, cfg.MetricsAddr, logger, healthHandler)

	apiServer := httpapi.NewServer(
		registrySvc,
		bookingSvc,
		logger.WithField("component", "http-api"),
		httpapi.WithHTTPMetrics(httpMetrics),
		httpapi.WithRateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst),
	)
	srv := &http.Server{
		Addr:              cfg.APIAddr,
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("HTTP API слушает %s", cfg.APIAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("получен сигнал остановки, останавливаем HTTP API")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Warn("api shutdown with error")
		}
		shutdownHTTP(metricsSrv, logger)
		wg.Wait()
		return ctx.Err()
	case err := <-errCh:
		shutdownHTTP(metricsSrv, logger)
		wg.Wait()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// startMetricsServer запускает служебный сервер: /metrics и health-endpoints.
func startMetricsServer(ctx context.Context, addr string, logger *log.Entry, healthHandler *healthcheck.Handler) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/healthz", healthHandler)
	mux.HandleFunc("/livez", healthcheck.LivenessHandler)
	mux.HandleFunc("/readyz", healthHandler.ReadinessHandler)

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		logger.Infof("метрики доступны по адресу %s/metrics", addr)
		logger.Infof("health checks: %s/healthz, %s/livez, %s/readyz", addr, addr, addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Warn("metrics server failed")
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownHTTP(srv, logger)
	}()

	return srv
}

// shutdownHTTP аккуратно останавливает HTTP-сервер.
func shutdownHTTP(srv *http.Server, logger *log.Entry) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Warn("metrics shutdown with error")
	}
}
