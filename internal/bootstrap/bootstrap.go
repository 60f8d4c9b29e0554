// Package bootstrap assembles the services shared by the HTTP server and ticketctl.
package bootstrap

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/service-desk/internal/config"
	"github.com/spec-kit/service-desk/internal/events"
	"github.com/spec-kit/service-desk/internal/fallback"
	"github.com/spec-kit/service-desk/internal/persistence"
	"github.com/spec-kit/service-desk/internal/repository"
	"github.com/spec-kit/service-desk/internal/service"
	"github.com/spec-kit/service-desk/internal/worker"
)

const redisKeyPrefix = "service_desk:"

// Deps holds the wired application graph.
type Deps struct {
	Config     *config.Config
	Logger     *zap.Logger
	Backend    *persistence.Backend
	Redis      *persistence.Redis
	Dispatcher events.Dispatcher
	TicketRepo repository.TicketRepository
	Tickets    *service.TicketService
	Backup     *service.BackupService
}

// Build opens the configured store and wires repositories, services and event subscribers.
// Redis is nil unless the fallback store is configured to use it.
func Build(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Deps, error) {
	backend, err := persistence.OpenStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	var redis *persistence.Redis
	if cfg.Fallback.Enabled && cfg.Fallback.UseRedis {
		redis = persistence.NewRedis(ctx, cfg.Redis, logger)
	}

	fallbackStore, err := newFallbackStore(cfg.Fallback, redis, logger)
	if err != nil {
		redis.Close()
		backend.Close()
		return nil, err
	}

	dispatcher := events.NewInMemoryDispatcher()
	var publisher *events.AMQPPublisher
	if cfg.Events.AMQPURL != "" {
		publisher = events.NewAMQPPublisher(cfg.Events.AMQPURL, cfg.Events.Queue, logger)
		logger.Info("publishing ticket events", zap.String("queue", cfg.Events.Queue))
	}
	notifications := service.NewNotificationService(dispatcher, logger, cfg.Notification)
	worker.StartNotificationWorker(dispatcher, notifications, publisher)

	ticketRepo := repository.NewTicketRepository(backend.Store, logger)
	return &Deps{
		Config:     cfg,
		Logger:     logger,
		Backend:    backend,
		Redis:      redis,
		Dispatcher: dispatcher,
		TicketRepo: ticketRepo,
		Tickets: service.NewTicketService(service.TicketDependencies{
			TicketRepo: ticketRepo,
			Dispatcher: dispatcher,
			Logger:     logger,
		}),
		Backup: service.NewBackupService(ticketRepo, fallbackStore, logger),
	}, nil
}

// Close releases the store and Redis.
func (d *Deps) Close() {
	d.Redis.Close()
	d.Backend.Close()
}

// newFallbackStore picks Redis (or process memory) as the primary area and the fallback
// directory as the secondary one.
func newFallbackStore(cfg config.FallbackConfig, redis *persistence.Redis, logger *zap.Logger) (*fallback.Store, error) {
	if !cfg.Enabled {
		return fallback.NewStore(fallback.NewMemoryArea(), nil, logger), nil
	}

	var primary fallback.Area = fallback.NewMemoryArea()
	if redis != nil {
		primary = fallback.NewRedisArea(redis.Client, redisKeyPrefix)
	}
	var secondary fallback.Area
	if cfg.Dir != "" {
		area, err := fallback.NewFileArea(cfg.Dir)
		if err != nil {
			return nil, fmt.Errorf("open fallback dir: %w", err)
		}
		secondary = area
	}
	return fallback.NewStore(primary, secondary, logger), nil
}
