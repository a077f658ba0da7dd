package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/Gobusters/ectologger/zapadapter"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Ramsey-B/fern/config"
	"github.com/Ramsey-B/fern/internal/repositories/deleterequest"
	"github.com/Ramsey-B/fern/internal/repositories/editrequest"
	"github.com/Ramsey-B/fern/internal/repositories/memory"
	"github.com/Ramsey-B/fern/internal/repositories/pointofinterest"
	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/kafka"
	"github.com/Ramsey-B/fern/pkg/moderation"
	"github.com/Ramsey-B/fern/pkg/notify"
	"github.com/Ramsey-B/fern/pkg/redis"
	"github.com/Ramsey-B/fern/pkg/routes/health"
	"github.com/Ramsey-B/fern/pkg/startup"
	"github.com/Ramsey-B/fern/pkg/tracing"
	"github.com/Ramsey-B/fern/pkg/tracing/exporters"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, sync, err := newLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.WithError(err).Error("fern exited with error")
		os.Exit(1)
	}
}

func newLogger(cfg *config.Config) (ectologger.Logger, func(), error) {
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zapcore.InfoLevel
	}

	zapConfig := zap.NewProductionConfig()
	if cfg.PrettyLogs {
		zapConfig = zap.NewDevelopmentConfig()
	}
	zapConfig.Level = zap.NewAtomicLevelAt(level)

	zapLogger, err := zapConfig.Build()
	if err != nil {
		return nil, nil, err
	}

	return zapadapter.NewZapEctoLogger(zapLogger, nil), func() { _ = zapLogger.Sync() }, nil
}

func run(ctx context.Context, cfg *config.Config, logger ectologger.Logger) error {
	exporter, err := exporters.New(ctx, exporters.OTLPConfig{
		Endpoint: cfg.OTLPEndpoint,
		Protocol: cfg.OTLPProtocol,
		Insecure: cfg.OTLPInsecure,
		Timeout:  cfg.OTLPTimeout,
	})
	if err != nil {
		return err
	}
	shutdownTracing := tracing.Setup(cfg.AppName, exporter)

	checker := health.NewChecker(cfg.Version)
	hub := notify.NewHub(logger)
	publishers := notify.Fanout{hub}

	var (
		stores       moderation.Stores
		counterStore moderation.CounterStore
		server       *echo.Echo
	)

	boot := startup.NewStartup(logger, cfg.StartupMaxAttempts)
	var httpRequires []string

	switch cfg.StoreDriver {
	case "memory":
		store := memory.NewStore()
		stores = moderation.Stores{Tx: store, Points: store.Points(), Edits: store.Edits(), Deletes: store.Deletes()}
		logger.Warn("using in-memory store; data is lost on restart")
	case "postgres":
		var db database.DB
		boot.AddDependency(&startup.Dependency{
			Name: "database",
			OnStart: func(ctx context.Context) error {
				conn, err := database.Open(ctx, database.ConnectionConfig{
					Host:            cfg.DatabaseHost,
					Port:            cfg.DatabasePort,
					User:            cfg.DatabaseUserName,
					Password:        cfg.DatabasePassword,
					Name:            cfg.DatabaseName,
					SSLMode:         cfg.DatabaseSSLMode,
					MaxOpenConns:    cfg.DatabaseMaxOpenConns,
					MaxIdleConns:    cfg.DatabaseMaxIdleConns,
					ConnMaxLifetime: cfg.DatabaseConnMaxLifetime,
				})
				if err != nil {
					return err
				}

				migrations := database.NewMigrationService(logger, &database.MigrationConfig{
					MigrationFolderPath: cfg.DatabaseMigrationFolderPath,
					Version:             uint(cfg.DatabaseMigrationVersion),
					Force:               cfg.DatabaseMigrationForce,
					AutoRollback:        cfg.DatabaseMigrationAutoRollback,
				})
				if err := migrations.MigratePostgres(cfg.DatabaseName, conn.DB); err != nil {
					_ = conn.Close()
					return err
				}

				db = database.NewDatabaseInstance(conn, logger)
				stores = moderation.Stores{
					Tx:      db,
					Points:  pointofinterest.NewRepository(db, logger),
					Edits:   editrequest.NewRepository(db, logger),
					Deletes: deleterequest.NewRepository(db, logger),
				}
				checker.AddCheck("database", health.PingFunc(db.PingContext))
				return nil
			},
			OnStop: func(ctx context.Context) error {
				return db.Close()
			},
		})
		httpRequires = append(httpRequires, "database")
	default:
		return fmt.Errorf("unknown store driver '%s'", cfg.StoreDriver)
	}

	switch cfg.CounterBackend {
	case "memory":
		counterStore = moderation.NewMemoryCounterStore()
	case "redis":
		var client *redis.Client
		boot.AddDependency(&startup.Dependency{
			Name: "redis",
			OnStart: func(ctx context.Context) error {
				c, err := redis.NewClient(ctx, redis.Config{
					Host:     cfg.RedisHost,
					Port:     cfg.RedisPort,
					Password: cfg.RedisPassword,
					DB:       cfg.RedisDB,
				}, logger)
				if err != nil {
					return err
				}
				client = c
				counterStore = redis.NewCounterStore(client, cfg.RedisCounterKey)
				checker.AddCheck("redis", client)
				return nil
			},
			OnStop: func(ctx context.Context) error {
				return client.Close()
			},
		})
		httpRequires = append(httpRequires, "redis")
	default:
		return fmt.Errorf("unknown counter backend '%s'", cfg.CounterBackend)
	}

	if cfg.KafkaEnabled {
		var producer *kafka.Producer
		boot.AddDependency(&startup.Dependency{
			Name: "kafka",
			OnStart: func(ctx context.Context) error {
				producer = kafka.NewProducer(kafka.ProducerConfig{
					Brokers:      cfg.KafkaBrokers,
					Topic:        cfg.KafkaChangesTopic,
					BatchSize:    cfg.KafkaBatchSize,
					BatchTimeout: cfg.KafkaBatchTimeout,
					RequiredAcks: cfg.KafkaRequiredAcks,
					Compression:  cfg.KafkaCompression,
				}, logger)
				publishers = append(publishers, notify.NewKafkaPublisher(producer))
				return nil
			},
			OnStop: func(ctx context.Context) error {
				return producer.Close()
			},
		})
		httpRequires = append(httpRequires, "kafka")
	}

	serverErr := make(chan error, 1)
	boot.AddDependency(&startup.Dependency{
		Name:     "http",
		Requires: httpRequires,
		OnStart: func(ctx context.Context) error {
			counter := moderation.NewCounter(counterStore, logger)
			service := moderation.NewService(stores, counter, publishers, logger)
			server = newServer(cfg, logger, service, hub, checker)

			go func() {
				addr := fmt.Sprintf(":%d", cfg.Port)
				logger.Infof("HTTP server listening on %s", addr)
				if err := server.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serverErr <- err
				}
			}()
			checker.SetReady(true)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			checker.SetReady(false)
			return server.Shutdown(ctx)
		},
	})

	if err := boot.Start(ctx); err != nil {
		return err
	}

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case runErr = <-serverErr:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := boot.Stop(shutdownCtx); err != nil && runErr == nil {
		runErr = err
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.WithError(err).Warn("Failed to flush traces")
	}

	return runErr
}
