package creditgate

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/magabrotheeeer/credit-gate/internal/config"
	"github.com/magabrotheeeer/credit-gate/internal/http/handlers/health"
	"github.com/magabrotheeeer/credit-gate/internal/migrations"
	"github.com/magabrotheeeer/credit-gate/internal/services/antifraud"
	"github.com/magabrotheeeer/credit-gate/internal/services/auth"
	"github.com/magabrotheeeer/credit-gate/internal/services/credit"
	"github.com/magabrotheeeer/credit-gate/internal/services/entitlement"
	"github.com/magabrotheeeer/credit-gate/internal/services/payment"
	"github.com/magabrotheeeer/credit-gate/internal/services/scheduler"
	"github.com/magabrotheeeer/credit-gate/internal/storage/memory"
	"github.com/magabrotheeeer/credit-gate/internal/storage/repository"
)

// store хранилище со всеми операциями, нужными сервисам.
type store interface {
	credit.Store
	entitlement.UserRepository
	auth.UserRepository
	payment.Repository
	antifraud.Store
	scheduler.Claimer
}

// openStore выбирает хранилище по storage_driver. Для postgres применяет
// миграции и возвращает проверку готовности схемы.
func openStore(ctx context.Context, cfg *config.Config, log *slog.Logger) (store, health.ReadyFunc, func() error, error) {
	const op = "creditgate.openStore"
	switch cfg.StorageDriver {
	case "memory":
		log.Warn("using in-memory storage: data is lost on restart")
		return memory.New(), nil, func() error { return nil }, nil
	case "postgres":
		db, err := repository.New(cfg.StorageConnectionString)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("%s: %w", op, err)
		}
		if err := migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
			_ = db.Close()
			return nil, nil, nil, fmt.Errorf("%s: %w", op, err)
		}
		if err := repository.CheckDatabaseReady(ctx, db); err != nil {
			_ = db.Close()
			return nil, nil, nil, fmt.Errorf("%s: %w", op, err)
		}
		ready := func(ctx context.Context) error {
			return repository.CheckDatabaseReady(ctx, db)
		}
		return db, ready, db.Close, nil
	default:
		return nil, nil, nil, fmt.Errorf("%s: unknown storage driver %q", op, cfg.StorageDriver)
	}
}
