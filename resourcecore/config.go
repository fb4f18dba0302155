package resourcecore

import "time"

// BaseConfig contains shared, backend-agnostic snapshot store configuration.
type BaseConfig struct {
	DefaultTTL    time.Duration
	Prefix        string
	Compression   CompressionCodec
	MaxValueBytes int
	EncryptionKey []byte
}
