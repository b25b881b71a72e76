package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/exp/slog"

	"fieldsync/internal/app/server/api"
	"fieldsync/internal/app/server/config"
	"fieldsync/internal/domain/entity"
	"fieldsync/internal/infrastructure/storage"
	"fieldsync/internal/infrastructure/storage/entitystore"
	"fieldsync/internal/infrastructure/storage/memory"
	"fieldsync/internal/infrastructure/storage/postgres"
	"fieldsync/internal/infrastructure/storage/sqlite"
	"fieldsync/internal/utils/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg := config.MustLoad()
	log := logger.New(cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	deps, closeStorage, err := storageDeps(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStorage()

	srv := &http.Server{
		Addr:              cfg.Server.RunAddress,
		Handler:           api.New(deps, log),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting sandbox server", "address", cfg.Server.RunAddress, "storage", deps.Storage)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down sandbox server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// storageDeps выбирает хранилище: Postgres, SQLite или память
func storageDeps(ctx context.Context, cfg *config.Config, log *slog.Logger) (api.Deps, func(), error) {
	deps := api.Deps{
		Storage:   cfg.StorageKind(),
		AuthToken: cfg.Server.AuthToken,
	}

	switch deps.Storage {
	case "postgres":
		pg, err := postgres.New(ctx, cfg.DB.DatabaseURI)
		if err != nil {
			return deps, nil, err
		}
		deps.Service = entity.NewService(postgres.NewEntityRepository(pg.Pool(), log), log)
		deps.Pinger = pg
		return deps, func() { _ = pg.Close() }, nil
	case "sqlite":
		lite, err := sqlite.Open(cfg.DB.DataPath)
		if err != nil {
			return deps, nil, err
		}
		deps.Service = newLocalService(lite, log)
		return deps, func() { _ = lite.Close() }, nil
	default:
		store := memory.New()
		deps.Service = newLocalService(store, log)
		return deps, func() { _ = store.Close() }, nil
	}
}

func newLocalService(store storage.Store, log *slog.Logger) *entity.Service {
	return entity.NewService(entitystore.New(store, log), log)
}
