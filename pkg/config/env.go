package config

const (
	EnvMongoURI          = "MONGO_URI"
	EnvMongoDatabaseName = "MONGO_DATABASE_NAME"
	EnvMongoConnTimeout  = "MONGO_CONN_TIMEOUT"

	EnvPort     = "PORT"
	EnvLogLevel = "LOG_LEVEL"

	EnvRequestTimeout = "REQUEST_TIMEOUT"
	EnvMaxRequestSize = "MAX_REQUEST_SIZE"

	EnvReadTimeout     = "READ_TIMEOUT"
	EnvWriteTimeout    = "WRITE_TIMEOUT"
	EnvIdleTimeout     = "IDLE_TIMEOUT"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"

	EnvPaginationLimit = "PAGINATION_LIMIT"

	EnvKafkaEnabled      = "KAFKA_ENABLED"
	EnvKafkaBrokers      = "KAFKA_BROKERS"
	EnvKafkaTopic        = "KAFKA_TOPIC"
	EnvKafkaMaxAttempts  = "KAFKA_PRODUCER_MAX_ATTEMPTS"
	EnvKafkaBatchTimeout = "KAFKA_PRODUCER_BATCH_TIMEOUT"
)
