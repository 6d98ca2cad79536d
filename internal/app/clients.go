package app

import (
	"fmt"

	redisclient "github.com/oultic/oultic-backend/internal/clients/redis"
	"github.com/oultic/oultic-backend/internal/db"
	"github.com/oultic/oultic-backend/internal/logger"
)

type Clients struct {
	Mongo    *db.MongoService
	Postgres *db.PostgresService
	Cache    redisclient.Cache
}

func wireClients(log *logger.Logger, cfg Config) (Clients, error) {
	log.Info("Wiring clients...")

	mongo, err := db.NewMongoService(log)
	if err != nil {
		return Clients{}, fmt.Errorf("init mongo: %w", err)
	}
	if err := mongo.EnsureIndexes(); err != nil {
		return Clients{}, fmt.Errorf("mongo ensure indexes: %w", err)
	}

	var pg *db.PostgresService
	if cfg.DatabaseBackend == "postgres" {
		pg, err = db.NewPostgresService(log)
		if err != nil {
			return Clients{}, fmt.Errorf("init postgres: %w", err)
		}
		if err := pg.AutoMigrateAll(); err != nil {
			return Clients{}, fmt.Errorf("postgres automigrate: %w", err)
		}
	}

	// The cache is best effort: without redis the app runs with a noop
	// cache and loses view dedup and feed caching, nothing else.
	cache, err := redisclient.NewCache(log)
	if err != nil {
		log.Warn("redis unavailable, running without cache", "error", err)
		cache = redisclient.NewNoop()
	}

	return Clients{Mongo: mongo, Postgres: pg, Cache: cache}, nil
}
