package config

import "time"

const (
	DefaultMongoURI          = "mongodb://localhost:27017"
	DefaultMongoDatabaseName = "lendly"
	DefaultMongoConnTimeout  = 10 * time.Second

	DefaultPort     = "8080"
	DefaultLogLevel = "info"

	DefaultRequestTimeout = 30 * time.Second
	DefaultMaxRequestSize = 1 * 1024 * 1024 // 1MB

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	// DefaultPaginationLimit caps the page size a caller may request;
	// DefaultPageSize applies when no size is given.
	DefaultPaginationLimit = 100
	DefaultPageSize        = 10

	DefaultKafkaEnabled      = false
	DefaultKafkaBrokers      = "localhost:9092"
	DefaultKafkaTopic        = "lendly.bookings"
	DefaultKafkaMaxAttempts  = 3
	DefaultKafkaBatchTimeout = 10 * time.Millisecond
)
