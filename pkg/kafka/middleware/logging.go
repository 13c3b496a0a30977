package kafka_middleware

import (
	"context"
	"time"

	"lessonbook/pkg/kafka"
	"lessonbook/pkg/logger"
)

// LoggingProducerMiddleware logs message publishing operations through the
// service's structured logger.
func LoggingProducerMiddleware(log *logger.Logger) kafka.ProducerMiddleware {
	producerLog := log.Component("kafka-producer")

	return func(ctx context.Context, msg kafka.Message, next func(ctx context.Context, msg kafka.Message) error) error {
		start := time.Now()

		producerLog.Debug("publishing message",
			"topic", msg.Topic,
			"key", msg.Key,
			"event_id", msg.GetEventID(),
			"event_type", msg.GetEventType(),
			"correlation_id", msg.GetCorrelationID(),
		)

		err := next(ctx, msg)

		duration := time.Since(start)

		if err != nil {
			producerLog.Error("failed to publish message",
				"topic", msg.Topic,
				"key", msg.Key,
				"event_id", msg.GetEventID(),
				"event_type", msg.GetEventType(),
				"correlation_id", msg.GetCorrelationID(),
				"duration", duration,
				"error", err,
			)
			return err
		}

		producerLog.Info("published message",
			"topic", msg.Topic,
			"key", msg.Key,
			"event_id", msg.GetEventID(),
			"event_type", msg.GetEventType(),
			"correlation_id", msg.GetCorrelationID(),
			"duration", duration,
		)

		return nil
	}
}
