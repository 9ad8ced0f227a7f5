package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"fare-crawler-service/internal/domain/repository"
	"fare-crawler-service/internal/infrastructure/config"
	"fare-crawler-service/internal/infrastructure/persistence"
	"fare-crawler-service/internal/interface/fetcher"
	"fare-crawler-service/internal/interface/httpapi"
	repo "fare-crawler-service/internal/interface/repository"
	"fare-crawler-service/internal/usecase"
	"fare-crawler-service/pkg/logger"
	"fare-crawler-service/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
)

func main() {
	// Create logger
	log := logger.NewLogger()
	defer log.Sync()
	log.Info("Starting Fare Crawler Service")

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config", "error", err)
	}

	m := metrics.NewMetrics(cfg.MetricsNamespace, prometheus.DefaultRegisterer)

	// Resources are closed by the scheduler after every run and reopen lazily
	var resources []io.Closer

	// Set up storage
	var (
		flightRepo repository.FlightRecordRepository
		runRepo    repository.CrawlRunRepository
	)
	switch cfg.StoreBackend {
	case config.StoreMongo:
		mongoManager := persistence.NewMongoManager(cfg.MongoURI, cfg.MongoUser, cfg.MongoPassword, cfg.MongoDB, log)
		flightRepo = repo.NewMongoFlightRecordRepository(mongoManager, log)
		runRepo = repo.NoopCrawlRunRepository{}
		resources = append(resources, mongoManager)
	default:
		dialector := persistence.PostgresDialector(cfg.PostgresDSN)
		if cfg.StoreBackend == config.StoreMySQL {
			dialector = persistence.MySQLDialector(persistence.MySQLDSN(
				cfg.MySQLHost, cfg.MySQLPort, cfg.MySQLUser, cfg.MySQLPassword, cfg.MySQLDatabase))
		}
		gormManager := persistence.NewGormManager(dialector, persistence.GormOptions{
			MaxOpenConns:    cfg.DBMaxOpenConns,
			MaxIdleConns:    cfg.DBMaxIdleConns,
			ConnMaxLifetime: cfg.DBConnMaxLifetime,
			AutoMigrate:     cfg.DBAutoMigrate,
			Models:          repo.GormModels(),
		}, log)
		flightRepo = repo.NewGormFlightRecordRepository(gormManager)
		runRepo = repo.NewGormCrawlRunRepository(gormManager)
		resources = append(resources, gormManager)
	}
	log.Info("Storage configured", "backend", cfg.StoreBackend, "targetCarriers", cfg.TargetCarriers)

	// Set up page fetcher
	var pageFetcher repository.PageFetcher
	switch cfg.Fetcher {
	case config.FetcherHTTP:
		httpFetcher := fetcher.NewHTTPFetcher(cfg.SearchURL, cfg.UserAgent, cfg.FetchTimeout, log)
		pageFetcher = httpFetcher
		resources = append(resources, httpFetcher)
	default:
		chromeFetcher := fetcher.NewChromeFetcher(fetcher.ChromeOptions{
			URLTemplate:    cfg.SearchURL,
			Headless:       cfg.Headless,
			UserAgent:      cfg.UserAgent,
			Timeout:        cfg.FetchTimeout,
			SettleDelay:    cfg.SettleDelay,
			ScrollCount:    cfg.ScrollCount,
			ScrollInterval: cfg.ScrollInterval,
		}, log)
		pageFetcher = chromeFetcher
		resources = append(resources, chromeFetcher)
	}

	// Set up publisher
	var publisher repository.FlightPublisher = repo.NoopFlightPublisher{}
	if len(cfg.KafkaBrokers) > 0 {
		publisher = repo.NewKafkaFlightPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		log.Info("Kafka publishing enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	}
	defer publisher.Close()

	// Set up run lock
	var runLock repository.RunLock = repo.NoopRunLock{}
	if cfg.RedisAddr != "" {
		redisLock, err := repo.NewRedisRunLock(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.LockKey)
		if err != nil {
			log.Fatal("Failed to connect to Redis", "error", err)
		}
		defer redisLock.Close()
		runLock = redisLock
		log.Info("Redis run lock enabled", "addr", cfg.RedisAddr, "key", cfg.LockKey)
	}

	// Set up crawl pipeline
	orchestrator := usecase.NewCrawlOrchestrator(
		repo.NewCSVRouteRepository(cfg.RoutesFile),
		pageFetcher,
		flightRepo,
		publisher,
		usecase.NewRecordExtractor(cfg.Selectors, log, m),
		usecase.NewItineraryClassifier(cfg.Selectors, log),
		usecase.NewCarrierFilter(log, m),
		usecase.OrchestratorOptions{
			Retry: usecase.RetryPolicy{
				MaxAttempts: cfg.PersistMaxAttempts,
				Multiplier:  cfg.PersistMultiplier,
				Min:         cfg.PersistBackoffMin,
				Max:         cfg.PersistBackoffMax,
			},
			TargetCarriers:   cfg.TargetCarriers,
			DateWindowDays:   cfg.DateWindowDays,
			FetchMinInterval: cfg.FetchMinInterval,
			ListingSelector:  cfg.Selectors.Listing,
		},
		log, m,
	)

	scheduler := usecase.NewTaskScheduler(orchestrator, runRepo, runLock, resources, usecase.SchedulerOptions{
		WindowStartHour: cfg.WindowStartHour,
		WindowMinutes:   cfg.WindowMinutes,
		MaxTaskDuration: cfg.MaxTaskDuration,
		PollInterval:    cfg.PollInterval,
		ErrorCooldown:   cfg.ErrorCooldown,
		LockTTL:         cfg.LockTTL,
	}, log, m)

	// Set up admin HTTP server
	adminHandler := httpapi.NewAdminHandler(scheduler, runRepo, cfg.AppVersion, log)
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      httpapi.NewRouter(adminHandler, promhttp.Handler()),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	// Stop on interrupt signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return scheduler.Start(gctx)
	})

	g.Go(func() error {
		log.Info("Starting HTTP server", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down")

		// Graceful shutdown
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("Service stopped with error", "error", err)
	}

	log.Info("Fare Crawler Service stopped")
}
