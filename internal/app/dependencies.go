package app

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/rms/internal/domain"
	"github.com/vladislavdragonenkov/rms/internal/storage/memory"
	"github.com/vladislavdragonenkov/rms/internal/storage/postgres"
)

// Dependencies содержит хранилища приложения. Выбор backend определяется
// конфигурацией: PostgreSQL при заданном DSN, иначе in-memory.
type Dependencies struct {
	Restaurants  domain.RestaurantRepository
	Reservations domain.ReservationRepository
	Outbox       domain.OutboxRepository

	// PG не nil только для PostgreSQL backend; используется для health
	// check и закрытия подключения.
	PG     *postgres.Store
	Logger *log.Entry
}

// NewDependencies создаёт хранилища по конфигурации. Для PostgreSQL
// подключение проверяется и схема доводится до актуальной прямо на старте.
func NewDependencies(ctx context.Context, cfg Config, logger *log.Entry) (*Dependencies, error) {
	if logger == nil {
		logger = log.WithField("component", "app")
	}

	if cfg.PostgresDSN == "" {
		logger.Info("postgres DSN is empty, using in-memory storage")
		store := memory.NewStore()
		return &Dependencies{
			Restaurants:  store.Restaurants(),
			Reservations: store.Reservations(),
			Outbox:       memory.NewOutboxRepository(),
			Logger:       logger,
		}, nil
	}

	store, err := postgres.Open(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := store.EnsureSchema(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("apply migrations: %w", err)
	}
	logger.Info("postgres storage initialized")

	return &Dependencies{
		Restaurants:  postgres.NewRestaurantRepository(store),
		Reservations: postgres.NewReservationRepository(store),
		Outbox:       postgres.NewOutboxRepository(store),
		PG:           store,
		Logger:       logger,
	}, nil
}

// Close освобождает ресурсы хранилища.
func (d *Dependencies) Close() {
	if d.PG == nil {
		return
	}
	if err := d.PG.Close(); err != nil {
		d.Logger.WithError(err).Warn("failed to close postgres connection")
	}
}
