package resource

import (
	"os"
	"path/filepath"
	"time"

	"github.com/goforj/resource/resourcecore"
)

const (
	defaultStorePrefix           = "resource"
	defaultStoreTTL              = 24 * time.Hour
	defaultMemoryCleanupInterval = 10 * time.Minute
	defaultSQLTable              = "resource_snapshots"
	defaultDynamoTable           = "resource_snapshots"
)

func defaultFileDir() string {
	return filepath.Join(os.TempDir(), "resource-snapshots")
}

// StoreConfig controls how a snapshot Store is constructed.
type StoreConfig struct {
	Driver resourcecore.Driver

	// DefaultTTL is used when a call provides ttl <= 0.
	DefaultTTL time.Duration

	// MemoryCleanupInterval controls in-process snapshot eviction.
	MemoryCleanupInterval time.Duration

	// Prefix namespaces keys on shared backends (e.g. redis keys).
	Prefix string

	// FileDir controls where the file driver stores snapshots.
	FileDir string

	// RedisClient is required when DriverRedis is used.
	RedisClient RedisClient

	// NATSKeyValue is required when DriverNATS is used. BucketTTL marks
	// the bucket as having its own TTL, skipping per-entry envelopes.
	NATSKeyValue  NATSKeyValue
	NATSBucketTTL bool

	// SQLDriverName and SQLDSN are required when DriverSQL is used.
	SQLDriverName string
	SQLDSN        string
	SQLTable      string

	// DynamoClient may be nil, in which case one is built from the
	// region and optional endpoint (pointing at dynamodb-local).
	DynamoClient   DynamoAPI
	DynamoTable    string
	DynamoRegion   string
	DynamoEndpoint string

	// Compression, MaxValueBytes, and EncryptionKey shape values before
	// they reach the backend.
	Compression   resourcecore.CompressionCodec
	MaxValueBytes int
	EncryptionKey []byte
}

func (c StoreConfig) withDefaults() StoreConfig {
	if c.Driver == "" {
		c.Driver = resourcecore.DriverMemory
	}
	if c.DefaultTTL <= 0 {
		c.DefaultTTL = defaultStoreTTL
	}
	if c.MemoryCleanupInterval <= 0 {
		c.MemoryCleanupInterval = defaultMemoryCleanupInterval
	}
	if c.Prefix == "" {
		c.Prefix = defaultStorePrefix
	}
	if c.FileDir == "" {
		c.FileDir = defaultFileDir()
	}
	if c.SQLTable == "" {
		c.SQLTable = defaultSQLTable
	}
	if c.DynamoTable == "" {
		c.DynamoTable = defaultDynamoTable
	}
	return c
}

func cloneBytes(in []byte) []byte {
	out := make([]byte, len(in))
	copy(out, in)
	return out
}
