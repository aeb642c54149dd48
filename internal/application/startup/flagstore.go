package startup

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ReyReyq/Nexo-Agency-Website-sub001/internal/domain/engagement"
	"github.com/ReyReyq/Nexo-Agency-Website-sub001/internal/infrastructure/observability/logging"
	"github.com/ReyReyq/Nexo-Agency-Website-sub001/internal/infrastructure/persistence/database"
	"github.com/ReyReyq/Nexo-Agency-Website-sub001/internal/infrastructure/persistence/flags"
	"github.com/ReyReyq/Nexo-Agency-Website-sub001/pkg/config"
)

// Flag store backends selectable through FLAG_STORE.
const (
	FlagStoreMemory = "memory"
	FlagStoreSQLite = "sqlite3"
	FlagStoreLibSQL = "libsql"
	FlagStoreRedis  = "redis"
)

const redisKeyPrefix = "engagement:flags:"

// FlagStoreOptions selects and addresses the durable milestone flag backend.
type FlagStoreOptions struct {
	Backend       string
	DSN           string
	AuthToken     string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	TTL           time.Duration
}

// FlagStoreOptionsFromConfig reads the environment configuration.
func FlagStoreOptionsFromConfig() FlagStoreOptions {
	return FlagStoreOptions{
		Backend:       config.FlagStore,
		DSN:           config.FlagStoreDSN,
		AuthToken:     config.FlagStoreToken,
		RedisAddr:     config.RedisAddr,
		RedisPassword: config.RedisPassword,
		RedisDB:       config.RedisDB,
		TTL:           config.FlagTTL,
	}
}

// OpenFlagStore connects the configured backend. The closer is nil for memory.
func OpenFlagStore(ctx context.Context, opts FlagStoreOptions, logger *logging.ChanneledLogger) (engagement.FlagStore, io.Closer, error) {
	switch opts.Backend {
	case "", FlagStoreMemory:
		logger.Storage().Info("Using in-memory flag store")
		return engagement.NewMemoryFlags(), nil, nil

	case FlagStoreSQLite, FlagStoreLibSQL:
		dsn := opts.DSN
		if opts.Backend == FlagStoreLibSQL && opts.AuthToken != "" {
			dsn = fmt.Sprintf("%s?authToken=%s", dsn, opts.AuthToken)
		}
		db, err := database.NewConnectionWithLogger(opts.Backend, dsn, logger)
		if err != nil {
			return nil, nil, err
		}
		if err := db.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, nil, err
		}
		return flags.NewSQLStore(db.DB, logger.Storage()), db, nil

	case FlagStoreRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     opts.RedisAddr,
			Password: opts.RedisPassword,
			DB:       opts.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("failed to connect to redis at %s: %w", opts.RedisAddr, err)
		}
		logger.Storage().Info("Redis flag store connected", "addr", opts.RedisAddr, "db", opts.RedisDB)
		return flags.NewRedisStore(client, redisKeyPrefix, opts.TTL, logger.Storage()), client, nil

	default:
		return nil, nil, fmt.Errorf("unknown flag store %q", opts.Backend)
	}
}
