package main

import (
	"context"
	"fmt"

	"github.com/hilthontt/cipherroom/internal/domain"
	"github.com/hilthontt/cipherroom/internal/infrastructure/configs"
	"github.com/hilthontt/cipherroom/internal/infrastructure/events"
	"github.com/hilthontt/cipherroom/internal/infrastructure/logging"
	"github.com/hilthontt/cipherroom/internal/infrastructure/messaging"
	"github.com/hilthontt/cipherroom/internal/infrastructure/ratelimiter"
	"github.com/hilthontt/cipherroom/internal/infrastructure/repository"
	"github.com/hilthontt/cipherroom/internal/persistence/db"
	mongorepo "github.com/hilthontt/cipherroom/internal/persistence/repository"
	"github.com/hilthontt/cipherroom/internal/presentation/handler/health"
)

// stores groups the repositories picked by store.driver.
type stores struct {
	Messages domain.MessageRepository
	Profiles domain.ProfileRepository
	Audit    domain.RoomAuditRepository
	Ping     health.Check
	Close    func()
}

func openStore(ctx context.Context, cfg *configs.Config, logger logging.Logger) (*stores, error) {
	if cfg.Store.Driver == configs.StoreDriverMemory {
		logger.Warn(logging.General, logging.Startup, "using the in-memory store, messages are lost on restart", nil)
		return &stores{
			Messages: repository.NewMessageRepository(),
			Profiles: repository.NewProfileRepository(),
			Audit:    repository.NewRoomAuditLogRepository(),
			Close:    func() {},
		}, nil
	}

	mongoCfg := &db.MongoConfig{
		URI:               cfg.Store.Mongo.URI,
		Database:          cfg.Store.Mongo.Database,
		ConnectionTimeout: cfg.Store.Mongo.ConnectionTimeout,
	}

	client, err := db.NewMongoClient(ctx, mongoCfg, logger)
	if err != nil {
		return nil, err
	}
	database := db.GetDatabase(client, mongoCfg)

	if err := mongorepo.EnsureIndexes(ctx, database); err != nil {
		_ = db.DisconnectMongo(context.Background(), client)
		return nil, fmt.Errorf("failed to ensure indexes: %w", err)
	}

	audit := mongorepo.NewRoomAuditLogRepository(database)
	if err := audit.EnsureIndexes(ctx); err != nil {
		_ = db.DisconnectMongo(context.Background(), client)
		return nil, fmt.Errorf("failed to ensure audit indexes: %w", err)
	}

	return &stores{
		Messages: mongorepo.NewMessageRepository(database),
		Profiles: mongorepo.NewProfileRepository(database),
		Audit:    audit,
		Ping: func(ctx context.Context) error {
			return client.Ping(ctx, nil)
		},
		Close: func() {
			if err := db.DisconnectMongo(context.Background(), client); err != nil {
				logger.Error(logging.MongoDB, logging.Shutdown, "failed to disconnect", map[logging.ExtraKey]any{
					logging.ErrorMessage: err.Error(),
				})
			}
		},
	}, nil
}

// openPublisher returns the room event sink. With the broker enabled events go
// through rabbitmq and a consumer writes them to the audit log; otherwise they
// are written directly.
func openPublisher(cfg *configs.Config, audit domain.RoomAuditRepository, logger logging.Logger) (domain.RoomEventPublisher, health.Check, func(), error) {
	if !cfg.RabbitMQ.Enabled {
		return events.NewAuditPublisher(audit), nil, func() {}, nil
	}

	rabbitmq, err := messaging.NewRabbitMQ(cfg.RabbitMQ.URI, logger)
	if err != nil {
		return nil, nil, nil, err
	}

	consumer := events.NewRoomConsumer(rabbitmq, audit, logger)
	go func() {
		if err := consumer.Listen(); err != nil {
			logger.Error(logging.RabbitMQ, logging.Consume, "room consumer stopped", map[logging.ExtraKey]any{
				logging.ErrorMessage: err.Error(),
			})
		}
	}()

	return events.NewRoomPublisher(rabbitmq), rabbitmq.Ping, rabbitmq.Close, nil
}

func newRateLimiter(cfg *configs.Config) (ratelimiter.Limiter, func(), error) {
	var cache ratelimiter.GetterSetter
	if cfg.RateLimiter.Backend == configs.RateLimiterBackendRedis {
		redisCache, err := ratelimiter.NewRedisCache(cfg.RateLimiter.RedisAddr)
		if err != nil {
			return nil, nil, err
		}
		cache = redisCache
	} else {
		cache = ratelimiter.NewInMemory()
	}

	limiter, err := ratelimiter.New(ratelimiter.Options{
		MaxRatePerSecond: cfg.RateLimiter.MaxRatePerSecond,
		MaxBurst:         cfg.RateLimiter.MaxBurst,
		Cache:            cache,
		CacheTTL:         cfg.RateLimiter.CacheTTL,
		SourceHeaderKey:  cfg.RateLimiter.SourceHeaderKey,
	})
	if err != nil {
		_ = cache.Close()
		return nil, nil, err
	}

	return limiter, func() { _ = cache.Close() }, nil
}
