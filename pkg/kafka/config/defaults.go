package kafka_config

import "time"

const (
	// Default Kafka broker
	DefaultKafkaBrokers = "localhost:9092"

	// Topic defaults
	DefaultTopicSessionEvents    = "lessonbook.session-events"
	DefaultTopicSessionEventsDLQ = "lessonbook.session-events.dlq"

	// Producer defaults
	DefaultProducerMaxAttempts  = 3
	DefaultProducerBatchTimeout = 10 * time.Millisecond
	DefaultProducerRequireAcks  = -1 // Require all replicas
	DefaultProducerCompression  = "snappy"
	DefaultProducerAsync        = false

	// Middleware defaults
	DefaultEnableMiddleware = true
)
