package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/nijaru/yt-recap/completion"
	"github.com/nijaru/yt-recap/config"
	"github.com/nijaru/yt-recap/handlers/api"
	"github.com/nijaru/yt-recap/logger"
	"github.com/nijaru/yt-recap/repository"
	"github.com/nijaru/yt-recap/repository/postgres"
	"github.com/nijaru/yt-recap/repository/sqlite"
	"github.com/nijaru/yt-recap/repository/supabase"
	"github.com/nijaru/yt-recap/services/recap"
	"github.com/nijaru/yt-recap/storage"
	"github.com/nijaru/yt-recap/web"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logr, err := logger.New(cfg.Log, cfg.Debug)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	ctx := context.Background()

	gateway, err := newGateway(ctx, cfg.Datastore)
	if err != nil {
		logr.WithError(err).Fatal("Failed to initialize datastore")
	}

	llm, err := completion.New(ctx, cfg.LLM)
	if err != nil {
		logr.WithError(err).Fatal("Failed to initialize completion client")
	}

	images, err := newImageResolver(ctx, cfg.Storage)
	if err != nil {
		logr.WithError(err).Fatal("Failed to initialize image storage")
	}

	recapService := recap.NewService(gateway, llm, images, recap.Config{
		TweetModel:    cfg.LLM.TweetModel,
		AnalysisModel: cfg.LLM.AnalysisModel,
	}, logr)

	server := api.NewServer(cfg,
		api.WithLogger(logr),
		api.WithServices(recapService),
		api.WithStatic(web.FS()),
	)

	logr.WithFields(logrus.Fields{
		"env":       cfg.Env,
		"version":   cfg.Version,
		"datastore": cfg.Datastore.Backend,
		"provider":  cfg.LLM.Provider,
	}).Info("Configuration loaded")

	// Graceful shutdown setup
	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, os.Interrupt, syscall.SIGTERM)

	done := make(chan struct{})
	go func() {
		defer close(done)
		<-shutdownChan

		ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			logr.WithError(err).Error("Server shutdown error")
		}

		closeAll(logr, gateway, llm)
	}()

	if err := server.Start(); err != nil && err != http.ErrServerClosed {
		logr.WithError(err).Fatal("Server error")
	}

	<-done
	logr.Info("Server stopped")
}

func newGateway(ctx context.Context, cfg config.DatastoreConfig) (repository.Gateway, error) {
	switch cfg.Backend {
	case config.BackendSupabase:
		return supabase.New(cfg.Supabase, nil)
	case config.BackendPostgres:
		return postgres.Open(ctx, cfg.Postgres.URL, cfg.Postgres.MaxConnections)
	case config.BackendSQLite:
		return sqlite.Open(cfg.SQLite.Path)
	default:
		return nil, errors.Errorf("unsupported datastore backend: %q", cfg.Backend)
	}
}

// newImageResolver presigns segment images when object storage is
// configured, and otherwise hands stored references through.
func newImageResolver(ctx context.Context, cfg config.StorageConfig) (storage.Resolver, error) {
	if !cfg.PresignEnabled {
		return storage.Passthrough{}, nil
	}
	return storage.NewSpacesClient(ctx, storage.SpacesConfig{
		AccessKey: cfg.AccessKey,
		SecretKey: cfg.SecretKey,
		Region:    cfg.Region,
		Endpoint:  cfg.Endpoint,
		Bucket:    cfg.Bucket,
		URLTTL:    cfg.URLTTL,
	})
}

func closeAll(logr *logrus.Logger, resources ...any) {
	for _, r := range resources {
		c, ok := r.(repository.Closer)
		if !ok {
			continue
		}
		if err := c.Close(); err != nil {
			logr.WithError(err).Error("Failed to release resource")
		}
	}
}
