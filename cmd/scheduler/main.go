package main

import (
	"os"

	"github.com/joho/godotenv"

	"lessonbook/internal/scheduling/events"
	"lessonbook/internal/scheduling/handler"
	"lessonbook/internal/scheduling/repository"
	"lessonbook/internal/scheduling/service"
	"lessonbook/internal/scheduling/validator"
	"lessonbook/pkg/app"
	"lessonbook/pkg/cache"
	"lessonbook/pkg/config"
	"lessonbook/pkg/contracts"
	"lessonbook/pkg/kafka"
	kafka_config "lessonbook/pkg/kafka/config"
	kafkamiddleware "lessonbook/pkg/kafka/middleware"
)

const ServiceName = "scheduler"

func main() {
	_ = godotenv.Load()

	cfg := config.Load(ServiceName)
	cfg.SetMongo()
	cfg.SetRedis()
	defer cfg.GracefulShutdown()

	cfg.Log.Info("Starting Scheduler service")

	producer := newProducer(cfg)
	if producer != nil {
		defer func() {
			if err := producer.Close(); err != nil {
				cfg.Log.Warn("Failed to close Kafka producer", "error", err)
			}
		}()
	}

	handlers := initHandlers(cfg, producer)
	serverApp := app.NewApplication(cfg)
	serverApp.SetApp(handlers...)
	serverApp.Run()
}

// newProducer builds the Kafka producer when brokers are configured. Without
// KAFKA_BROKERS the scheduler runs with events disabled, which keeps local
// development free of a broker requirement.
func newProducer(cfg *config.Config) *kafka.Producer {
	if os.Getenv(kafka_config.EnvKafkaBrokers) == "" {
		cfg.Log.Info("Kafka brokers not configured, running without event publishing")
		return nil
	}

	kafkaCfg := kafka_config.Load()
	kafkaCfg.LogConfiguration(cfg.Log.Info)

	producer, err := kafka.NewProducer(kafkaCfg, kafkaCfg.TopicSessionEvents, kafkaCfg.TopicSessionEventsDLQ)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka producer", "error", err)
	}

	if kafkaCfg.EnableMiddleware {
		producer.Use(kafkamiddleware.LoggingProducerMiddleware(cfg.Log))
	}

	return producer
}

func initHandlers(cfg *config.Config, producer *kafka.Producer) []contracts.Handler {
	sessionValidator := validator.NewSessionValidator(cfg.Log)
	availabilityValidator := validator.NewAvailabilityValidator(cfg.Log)

	sessionRepo := repository.NewMongoSessionRepository(cfg)
	lockRepo := repository.NewMongoTutorLockRepository(cfg)
	windowRepo := repository.NewMongoAvailabilityRepository(cfg)
	blockRepo := repository.NewMongoTimeBlockRepository(cfg)

	// A nil *kafka.Producer stored in the interface would not compare equal
	// to nil inside the publisher, so only assign a live producer.
	var notifierProducer events.Producer
	if producer != nil {
		notifierProducer = producer
	}
	notifier := events.NewPublisher(notifierProducer, cfg.Log)

	slotCache := service.NewSlotCache(cache.New(cfg.Client.Redis, cfg.Log), cfg.SlotCacheTTL)

	sessionService := service.NewSessionService(sessionRepo, lockRepo, sessionValidator, notifier, slotCache, cfg)
	seriesService := service.NewSeriesService(sessionRepo, lockRepo, sessionValidator, notifier, slotCache, cfg)
	availabilityService := service.NewAvailabilityService(windowRepo, blockRepo, availabilityValidator, slotCache, cfg)
	slotService := service.NewSlotService(sessionRepo, windowRepo, blockRepo, slotCache, cfg)

	cfg.Log.Info("Scheduler service initialized", "database", cfg.MongoDatabaseName)

	return []contracts.Handler{
		handler.NewSessionHandler(sessionService, cfg.Log),
		handler.NewSeriesHandler(seriesService, cfg.Log),
		handler.NewAvailabilityHandler(availabilityService, cfg.Log),
		handler.NewSlotHandler(slotService, cfg.Log),
		handler.NewManagedHandler(sessionService, cfg.Log),
	}
}
