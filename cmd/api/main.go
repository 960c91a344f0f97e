package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/deangilmoreremix/videotoolbundle-sub000/internal/adapter/repo"
	"github.com/deangilmoreremix/videotoolbundle-sub000/internal/domain"
	"github.com/deangilmoreremix/videotoolbundle-sub000/internal/http/handlers"
	httpapi "github.com/deangilmoreremix/videotoolbundle-sub000/internal/http/httpapi"
	"github.com/deangilmoreremix/videotoolbundle-sub000/internal/infra"
	"github.com/deangilmoreremix/videotoolbundle-sub000/internal/infra/geoip"
	"github.com/deangilmoreremix/videotoolbundle-sub000/internal/providers/cloudinary"
	"github.com/deangilmoreremix/videotoolbundle-sub000/internal/tools"
	"github.com/deangilmoreremix/videotoolbundle-sub000/internal/workflow"
)

func main() {
	// Muat .env (opsional)
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	resolver, err := geoip.NewResolver(cfg.GeoIPDBPath)
	if err != nil {
		logger.Warn().Err(err).Msg("geoip lookups disabled")
	}
	defer resolver.Close()

	presets, err := tools.LoadPresets(cfg.PresetsPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load presets")
	}
	registry := tools.NewRegistry(tools.Catalog(), presets)

	uploader, err := cloudinary.NewClient(cloudinary.Options{
		CloudName:      cfg.CloudName,
		APIKey:         cfg.APIKey,
		APISecret:      cfg.APISecret,
		UploadPreset:   cfg.UploadPreset,
		Folder:         cfg.UploadFolder,
		BaseURL:        cfg.UploadBaseURL,
		RequestTimeout: cfg.UploadTimeout,
		Logger:         &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure upload client")
	}

	store, closeStore, err := openRunStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Str("run_store", cfg.RunStore).Msg("failed to open run store")
	}
	defer closeStore()

	manager := workflow.NewManager(workflow.ManagerOptions{
		Registry: registry,
		Runner:   workflow.NewRunner(workflow.RunnerOptions{Uploader: uploader, Logger: &logger}),
		Store:    store,
		Logger:   &logger,
		TTL:      cfg.RunTTL,
	})

	scheduler := cron.New(cron.WithLogger(cronLogger{l: logger}), cron.WithChain(cron.SkipIfStillRunning(cronLogger{l: logger})))
	if _, err := scheduler.AddFunc(cfg.RunPruneSchedule, func() { pruneRuns(ctx, manager, logger) }); err != nil {
		logger.Fatal().Err(err).Str("schedule", cfg.RunPruneSchedule).Msg("invalid prune schedule")
	}
	scheduler.Start()

	app := handlers.NewApp(manager, logger, cfg.MaxUploadSize, cfg.CORSAllowedOrigins)
	router := httpapi.NewRouter(app, httpapi.Options{
		Logger:          logger,
		AllowedOrigins:  cfg.CORSAllowedOrigins,
		DefaultLocale:   cfg.DefaultLocale,
		CountryLookup:   resolver.Lookup(),
		RateLimitPerMin: cfg.RateLimitPerMin,
	})

	server := infra.NewHTTPServer(ctx, cfg, router)

	go func() {
		logger.Info().
			Str("addr", server.Addr()).
			Str("cloud", uploader.CloudName()).
			Bool("signed_uploads", uploader.Signed()).
			Str("run_store", cfg.RunStore).
			Msg("API listening")
		if err := server.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	<-scheduler.Stop().Done()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	if err := manager.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("runs did not settle before shutdown")
	}
	logger.Info().Msg("server stopped")
}

func openRunStore(ctx context.Context, cfg *infra.Config, logger zerolog.Logger) (domain.RunRepository, func(), error) {
	switch cfg.RunStore {
	case infra.RunStoreRedis:
		client, err := infra.NewRedisClient(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		return repo.NewRunRepositoryRedis(client, cfg.RunTTL), func() { _ = client.Close() }, nil
	case infra.RunStorePostgres:
		pool, err := infra.NewDBPool(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		store := repo.NewRunRepositoryPG(infra.NewSQLRunner(pool, logger))
		if err := store.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return store, pool.Close, nil
	default:
		return repo.NewRunRepositoryMemory(), func() {}, nil
	}
}

func pruneRuns(ctx context.Context, manager *workflow.Manager, logger zerolog.Logger) {
	n, err := manager.Prune(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("prune runs failed")
		return
	}
	logger.Debug().Int("removed", n).Msg("prune runs finished")
}

// cronLogger routes scheduler logs through zerolog.
type cronLogger struct {
	l zerolog.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debug().Fields(keysAndValues).Msg("cron: " + msg)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Error().Err(err).Fields(keysAndValues).Msg("cron: " + msg)
}
