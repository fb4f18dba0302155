package resource

import (
	"context"

	"github.com/goforj/resource/resourcecore"
)

// NewStore returns a concrete snapshot store for the requested driver,
// wrapped with the configured shaping and encryption layers. Drivers whose
// setup can fail (sql, dynamodb) report the failure through an error store
// that preserves driver identity and surfaces the error on every call.
//
// Example: select driver explicitly
//
//	store := resource.NewStore(ctx, resource.StoreConfig{
//		Driver: resourcecore.DriverMemory,
//	})
//	fmt.Println(store.Driver()) // memory
func NewStore(ctx context.Context, cfg StoreConfig) resourcecore.Store {
	cfg = cfg.withDefaults()
	var inner resourcecore.Store
	switch cfg.Driver {
	case resourcecore.DriverNull:
		inner = newNullStore()
	case resourcecore.DriverFile:
		inner = newFileStore(cfg.FileDir, cfg.DefaultTTL)
	case resourcecore.DriverRedis:
		inner = newRedisStore(cfg.RedisClient, cfg.DefaultTTL, cfg.Prefix)
	case resourcecore.DriverNATS:
		inner = newNATSStore(cfg.NATSKeyValue, cfg.DefaultTTL, cfg.Prefix, cfg.NATSBucketTTL)
	case resourcecore.DriverSQL:
		store, err := newSQLStore(cfg)
		if err != nil {
			return &errorStore{driver: resourcecore.DriverSQL, err: err}
		}
		inner = store
	case resourcecore.DriverDynamo:
		store, err := newDynamoStore(ctx, cfg)
		if err != nil {
			return &errorStore{driver: resourcecore.DriverDynamo, err: err}
		}
		inner = store
	default:
		inner = newMemoryStore(cfg.DefaultTTL, cfg.MemoryCleanupInterval)
	}
	shaped := newShapingStore(inner, cfg.Compression, cfg.MaxValueBytes)
	secured, err := newEncryptingStore(shaped, cfg.EncryptionKey)
	if err != nil {
		return &errorStore{driver: cfg.Driver, err: err}
	}
	return secured
}

// NewStoreWith builds a snapshot store from a driver and functional
// options. Required data (e.g. the redis client) must be provided via
// options when the driver needs it.
func NewStoreWith(ctx context.Context, driver resourcecore.Driver, opts ...StoreOption) resourcecore.Store {
	cfg := StoreConfig{Driver: driver}
	for _, opt := range opts {
		cfg = opt(cfg)
	}
	return NewStore(ctx, cfg)
}

// NewMemoryStore is a convenience for an in-process snapshot store.
func NewMemoryStore(ctx context.Context, opts ...StoreOption) resourcecore.Store {
	return NewStoreWith(ctx, resourcecore.DriverMemory, opts...)
}

// NewFileStore is a convenience for a filesystem-backed snapshot store.
func NewFileStore(ctx context.Context, dir string, opts ...StoreOption) resourcecore.Store {
	return NewStoreWith(ctx, resourcecore.DriverFile, append([]StoreOption{WithFileDir(dir)}, opts...)...)
}

// NewNullStore is a convenience for a store that persists nothing; loads
// always miss. Useful to disable persistence without branching.
func NewNullStore(ctx context.Context, opts ...StoreOption) resourcecore.Store {
	return NewStoreWith(ctx, resourcecore.DriverNull, opts...)
}

// NewRedisStore is a convenience for a redis-backed snapshot store.
func NewRedisStore(ctx context.Context, client RedisClient, opts ...StoreOption) resourcecore.Store {
	return NewStoreWith(ctx, resourcecore.DriverRedis, append([]StoreOption{WithRedisClient(client)}, opts...)...)
}

// NewNATSStore is a convenience for a NATS JetStream KV-backed store.
func NewNATSStore(ctx context.Context, kv NATSKeyValue, opts ...StoreOption) resourcecore.Store {
	return NewStoreWith(ctx, resourcecore.DriverNATS, append([]StoreOption{WithNATSKeyValue(kv)}, opts...)...)
}

// NewSQLStore is a convenience for a database/sql-backed snapshot store.
func NewSQLStore(ctx context.Context, driverName, dsn string, opts ...StoreOption) resourcecore.Store {
	return NewStoreWith(ctx, resourcecore.DriverSQL, append([]StoreOption{WithSQL(driverName, dsn)}, opts...)...)
}

// NewDynamoStore is a convenience for a DynamoDB-backed snapshot store.
func NewDynamoStore(ctx context.Context, opts ...StoreOption) resourcecore.Store {
	return NewStoreWith(ctx, resourcecore.DriverDynamo, opts...)
}
