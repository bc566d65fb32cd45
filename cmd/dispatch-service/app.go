package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/sync/errgroup"

	"hookrelay/internal/config"
	"hookrelay/internal/config_handler"
	"hookrelay/internal/constants"
	"hookrelay/internal/delivery"
	"hookrelay/internal/dispatch"
	"hookrelay/internal/logger"
	"hookrelay/internal/pending"
	"hookrelay/internal/settings"
	"hookrelay/pkg/bootstrap"
	"hookrelay/pkg/health"
	"hookrelay/pkg/logging"
	"hookrelay/pkg/metrics"
	"hookrelay/pkg/models"
	"hookrelay/pkg/tracing"
)

const serviceName = "dispatch-service"

type App struct {
	*bootstrap.Base
	dbConnector    *bootstrap.DatabaseConnector
	db             *sql.DB
	redis          *redis.Client
	mongoClient    *mongo.Client
	provider       *settings.Provider
	service        *dispatch.Service
	queue          delivery.Queue
	pending        dispatch.PendingStore
	worker         *delivery.Worker
	tracerProvider *tracing.TracerProvider
	server         *http.Server
}

func NewApp(cfg *config.Config, log logger.Logger) *App {
	if sugaredLogger, ok := log.(*logger.SugaredLogger); ok {
		sugaredLogger.SetServiceName(serviceName)
	}
	return &App{
		Base:        bootstrap.NewBase(cfg, log),
		dbConnector: bootstrap.NewDatabaseConnector(cfg, log),
	}
}

func (a *App) Initialize(ctx context.Context) error {
	ctx = logging.WithServiceName(ctx, serviceName)

	if err := a.initDatabases(ctx); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := a.InitBroker(serviceName); err != nil {
		return fmt.Errorf("failed to initialize broker: %w", err)
	}

	if err := a.initSettings(); err != nil {
		return fmt.Errorf("failed to initialize settings: %w", err)
	}

	if err := a.initPipeline(); err != nil {
		return fmt.Errorf("failed to initialize pipeline: %w", err)
	}

	tp, err := tracing.Init(a.Config.Tracing, serviceName)
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	a.tracerProvider = tp

	metrics.RegisterDispatchMetrics()
	metrics.RegisterDeliveryMetrics()
	metrics.RegisterBrokerMetrics()
	if a.Config.CircuitBreaker.Enabled {
		metrics.RegisterCircuitBreakerMetrics()
	}

	a.initHTTPServer()
	return nil
}

func (a *App) initDatabases(ctx context.Context) error {
	db, err := a.dbConnector.InitPostgreSQL(ctx)
	if err != nil {
		return err
	}
	a.db = db

	rdb, err := a.dbConnector.InitRedis(ctx)
	if err != nil {
		return err
	}
	a.redis = rdb

	if a.Config.Delivery.RecordAttempts {
		mongoClient, err := a.dbConnector.InitMongoDB(ctx)
		if err != nil {
			a.Logger.WarnwCtx(ctx, "MongoDB connection failed, delivery attempts will not be recorded", "error", err)
		} else {
			a.mongoClient = mongoClient
		}
	}
	return nil
}

func (a *App) initSettings() error {
	var repo settings.RuleRepository
	if a.db != nil {
		repo = settings.NewRuleRepository(a.db)
	}

	provider, err := settings.NewProvider(a.Config.Dispatch, repo, a.Logger)
	if err != nil {
		return err
	}
	a.provider = provider
	return nil
}

func (a *App) initPipeline() error {
	if a.redis != nil {
		a.queue = delivery.NewRedisQueue(a.redis, constants.RedisKeyDeliveryQueue, constants.RedisKeyDeliveryInFlight)
		a.pending = pending.NewRedisStore(a.redis, constants.RedisKeyPendingQueue, constants.PendingQueueCap)
	} else {
		a.queue = delivery.NewMemoryQueue()
		a.pending = pending.NewMemoryStore(constants.PendingQueueCap)
		a.Logger.Warnw("Redis not configured, delivery and quiet-hours queues are in-memory only")
	}

	svc, err := dispatch.NewService(a.queue, a.pending, a.Logger,
		dispatch.WithExtractor(dispatch.ImageExtractor{MaxBytes: constants.MaxAttachmentBytes}),
	)
	if err != nil {
		return err
	}
	a.service = svc

	opts := []delivery.WorkerOption{
		delivery.WithPolicy(delivery.PolicyFromConfig(a.Config.Delivery.Retry)),
		delivery.WithLimiter(delivery.LimiterFromConfig(a.Config.Delivery)),
		delivery.WithPollInterval(a.Config.Delivery.PollInterval),
	}
	if breakers := delivery.BreakersFromConfig(a.Config.CircuitBreaker); breakers != nil {
		opts = append(opts, delivery.WithBreakers(breakers))
	}
	if a.mongoClient != nil {
		opts = append(opts, delivery.WithAttemptLog(delivery.NewMongoAttemptLog(a.dbConnector.MongoDatabase(a.mongoClient))))
	}
	if topic := a.Config.Broker.Kafka.DLQTopic; topic != "" {
		opts = append(opts, delivery.WithFailurePublisher(delivery.NewBrokerFailurePublisher(a.Producer, topic, serviceName)))
	}

	a.worker = delivery.NewWorker(a.queue, delivery.NewHTTPExecutor(a.Config.Delivery), a.Logger, opts...)
	return nil
}

func (a *App) initHTTPServer() {
	mux := http.NewServeMux()

	healthRegistry := health.NewCheckerRegistry()
	if a.db != nil {
		healthRegistry.Register(health.NewPostgreSQLChecker(a.db))
	}
	if a.redis != nil {
		healthRegistry.Register(health.NewRedisChecker(a.redis))
	}
	if a.mongoClient != nil {
		healthRegistry.Register(health.NewMongoDBChecker(a.mongoClient))
	}
	healthRegistry.Register(health.NewQueueDepthChecker("delivery_queue", constants.DeliveryQueueDegradedDepth, a.queue.Len))
	healthRegistry.Register(health.NewQueueDepthChecker("pending_queue", 0, a.pending.Len))

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		h := healthRegistry.Check(r.Context())
		statusCode := http.StatusOK
		if h.Status == health.StatusUnhealthy {
			statusCode = http.StatusServiceUnavailable
		}
		body, err := sonic.Marshal(h)
		if err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusCode)
		w.Write(body)
	})

	mux.Handle("/metrics", promhttp.Handler())

	a.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:      mux,
		ReadTimeout:  a.Config.Server.ReadTimeoutSeconds,
		WriteTimeout: a.Config.Server.WriteTimeoutSeconds,
	}
}

func (a *App) Run(ctx context.Context) error {
	ctx = logging.WithServiceName(ctx, serviceName)
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.Logger.InfowCtx(gCtx, "HTTP server starting", "port", a.Config.Server.Port)
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	if topic := a.Config.Broker.Kafka.ConfigUpdateTopic; topic != "" {
		configConsumer, err := a.NewConfigConsumer(serviceName)
		if err != nil {
			a.Logger.WarnwCtx(ctx, "Failed to create config event consumer, event-driven reload disabled",
				"error", err,
			)
		} else {
			defer configConsumer.Close()
			configEventHandler := config_handler.NewHandler(a.provider, a.Logger)

			g.Go(func() error {
				a.Logger.InfowCtx(gCtx, "Starting config update event consumer", "topic", topic)
				return configConsumer.Consume(gCtx, topic, configEventHandler.HandleConfigUpdateEvent)
			})
		}
	}

	g.Go(func() error {
		return a.provider.StartReloader(gCtx)
	})

	g.Go(func() error {
		return a.worker.Run(gCtx)
	})

	if interval := a.Config.Dispatch.SweepIntervalSeconds; interval > 0 {
		g.Go(func() error {
			return a.runSweeper(gCtx, time.Duration(interval)*time.Second)
		})
	}

	inputTopic := a.Config.Broker.Kafka.InputTopic
	g.Go(func() error {
		a.Logger.InfowCtx(gCtx, "Starting notification consumer", "topic", inputTopic)
		return a.Consumer.Consume(gCtx, inputTopic, a.handleMessage)
	})

	g.Go(func() error {
		<-gCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
		defer cancel()
		return a.server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func (a *App) handleMessage(ctx context.Context, env models.Envelope) error {
	if env.Type != constants.EnvelopeTypeNotification || env.Notification == nil {
		a.Logger.DebugwCtx(ctx, "Skipping non-notification envelope", "type", env.Type)
		return nil
	}

	out, err := a.service.Process(ctx, a.provider.Snapshot(), *env.Notification)
	if err != nil {
		a.Logger.ErrorwCtx(ctx, "Dispatch failed", "error", err)
		return err
	}

	if !out.Handled() {
		a.Logger.DebugwCtx(ctx, "Event not dispatched", "outcome", out.Kind.String())
	}
	return nil
}

func (a *App) runSweeper(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := a.service.Sweep(ctx, a.provider.Snapshot()); err != nil {
				a.Logger.ErrorwCtx(ctx, "Sweep failed", "error", err)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (a *App) Shutdown(ctx context.Context) error {
	shutdownCtx := logging.WithServiceName(ctx, serviceName)
	a.Logger.InfowCtx(shutdownCtx, "Shutting down dispatch service")

	additionalShutdown := func(ctx context.Context) []error {
		var errs []error

		if a.tracerProvider != nil {
			if err := a.tracerProvider.Shutdown(ctx); err != nil {
				errs = append(errs, fmt.Errorf("tracer provider shutdown error: %w", err))
			}
		}

		errs = append(errs, a.dbConnector.ShutdownDatabases(ctx, a.redis, a.db, a.mongoClient)...)

		return errs
	}

	return a.Base.Shutdown(shutdownCtx, additionalShutdown)
}
