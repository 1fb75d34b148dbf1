package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	_ "github.com/lib/pq"

	"synergy/internal/adminaccount"
	adminpg "synergy/internal/adminaccount/store/postgres"
	"synergy/internal/audit"
	auditpg "synergy/internal/audit/store/postgres"
	"synergy/internal/idempotency"
	idempg "synergy/internal/idempotency/store/postgres"
	idemredis "synergy/internal/idempotency/store/redis"
	onbconsumer "synergy/internal/onboarding/consumer"
	onbmetrics "synergy/internal/onboarding/metrics"
	"synergy/internal/onboarding/saga"
	sagastore "synergy/internal/onboarding/store"
	"synergy/internal/outbox"
	"synergy/internal/outbox/dispatcher"
	outboxmetrics "synergy/internal/outbox/metrics"
	outboxpg "synergy/internal/outbox/store/postgres"
	"synergy/internal/platform/config"
	"synergy/internal/platform/httpserver"
	kafkaadmin "synergy/internal/platform/kafka/admin"
	kafkaconsumer "synergy/internal/platform/kafka/consumer"
	kafkaproducer "synergy/internal/platform/kafka/producer"
	"synergy/internal/platform/logger"
	platformredis "synergy/internal/platform/redis"
	"synergy/internal/provisioning"
	"synergy/internal/tenant/handler"
	tenantmetrics "synergy/internal/tenant/metrics"
	"synergy/internal/tenant/service"
	tenantstore "synergy/internal/tenant/store/tenant"
	"synergy/pkg/platform/middleware/admin"
	"synergy/pkg/platform/middleware/correlation"
	"synergy/pkg/platform/middleware/metadata"
	"synergy/pkg/platform/middleware/requesttime"
	"synergy/pkg/platform/tx"
)

// main wires high-level dependencies and supervises the three run loops:
// the HTTP server, the outbox dispatcher, and the Kafka consumer. Business
// logic lives in the internal packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := sql.Open("postgres", cfg.PostgresDSN)
	if err != nil {
		log.Error("opening postgres", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		log.Error("postgres unreachable", "error", err)
		os.Exit(1)
	}
	runner := tx.NewSQLRunner(db)

	if err := kafkaadmin.EnsureTopics(ctx, cfg.Kafka.Brokers, log,
		cfg.Kafka.SignalTopic, cfg.Kafka.TenantEventsTopic, cfg.Kafka.BillingTopic,
	); err != nil {
		log.Error("kafka topic bootstrap failed", "error", err)
		os.Exit(1)
	}

	producer, err := kafkaproducer.New(kafkaproducer.Config{
		Brokers:  cfg.Kafka.Brokers,
		ClientID: "synergy-dispatcher",
	}, log)
	if err != nil {
		log.Error("creating kafka producer", "error", err)
		os.Exit(1)
	}
	defer producer.Close()

	// Idempotency store: Redis when configured, otherwise the records live
	// in Postgres and complete transactionally with the registration.
	var guardStore idempotency.Store = idempg.New(db)
	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("connecting to redis", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		guardStore = idemredis.New(redisClient.Client)
		log.Info("idempotency store backed by redis")
	}
	guard := idempotency.NewGuard(guardStore, cfg.IdempotencyTTL)

	outboxStore := outboxpg.New(db)
	stager := outbox.NewPublisher(outboxStore, log)

	tenants := tenantstore.NewPostgres(db)
	sagas := sagastore.NewPostgresStore(db)
	gateway := provisioning.NewPostgresGateway(cfg.ClusterAdminDSN, log)
	admins := adminaccount.NewBootstrapper(adminpg.New(db), log)

	orchestrator := saga.New(sagas, tenants, gateway, admins, stager, runner, log,
		saga.WithMetrics(onbmetrics.New()),
	)

	trail := audit.NewTrail(auditpg.New(db), log)

	svc := service.New(tenants, sagas, guard, stager, runner,
		service.WithLogger(log),
		service.WithMetrics(tenantmetrics.New()),
		service.WithDomainSuffix(cfg.DomainSuffix),
		service.WithAuditTrail(trail),
	)

	disp := dispatcher.New(outboxStore, producer, topicRouter(cfg.Kafka), dispatcher.Config{
		PollInterval:   cfg.Dispatcher.PollInterval,
		BatchSize:      cfg.Dispatcher.BatchSize,
		MaxRetries:     cfg.Dispatcher.MaxRetries,
		PublishTimeout: cfg.Dispatcher.PublishTimeout,
		ClaimTimeout:   cfg.Dispatcher.ClaimTimeout,
	}, log, dispatcher.WithMetrics(outboxmetrics.New()))

	router := onbconsumer.NewRouter(log)
	signalHandler := onbconsumer.NewSignalHandler(orchestrator, log)
	router.Register(cfg.Kafka.SignalTopic, signalHandler)
	router.Register(cfg.Kafka.BillingTopic, onbconsumer.NewBillingHandler(orchestrator, log))

	consumer, err := kafkaconsumer.New(kafkaconsumer.Config{
		Brokers:  cfg.Kafka.Brokers,
		GroupID:  cfg.Kafka.GroupID,
		Topics:   []string{cfg.Kafka.SignalTopic, cfg.Kafka.BillingTopic},
		ClientID: "synergy-onboarding",
	}, router, log)
	if err != nil {
		log.Error("creating kafka consumer", "error", err)
		os.Exit(1)
	}
	defer consumer.Close()

	h := handler.New(svc, log)
	r := chi.NewRouter()
	r.Use(metadata.ClientMetadata)
	r.Use(requesttime.Middleware)
	r.Use(correlation.Middleware)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	r.Handle("/metrics", promhttp.Handler())
	h.Register(r)
	r.Group(func(r chi.Router) {
		r.Use(admin.RequireAdminToken(cfg.AdminToken, log))
		h.RegisterAdmin(r)
	})

	srv := httpserver.New(cfg.Addr, r)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		log.Info("starting http server", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	group.Go(func() error {
		return disp.Run(groupCtx)
	})
	group.Go(func() error {
		err := consumer.Run(groupCtx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("shutdown with error", "error", err)
		os.Exit(1)
	}
	log.Info("shutdown complete")
}

// topicRouter maps staged aggregate/event types onto Kafka topics: the
// saga's own signals on the signal topic, everything else on tenant events.
func topicRouter(cfg config.KafkaConfig) dispatcher.TopicRouter {
	return func(aggregateType, eventType string) string {
		if aggregateType == "onboarding" {
			return cfg.SignalTopic
		}
		return cfg.TenantEventsTopic
	}
}
