package app

import (
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/rms/internal/messaging/kafka"
)

// initKafkaProducer поднимает producer для заданных брокеров.
// Пустой список означает запуск без Kafka: события копятся в outbox,
// сервис при этом полностью работоспособен.
func initKafkaProducer(brokers []string, logger *log.Entry) (*kafka.Producer, error) {
	if len(brokers) == 0 {
		return nil, nil
	}

	producer, err := kafka.NewProducer(brokers)
	if err != nil {
		logger.WithError(err).Warn("failed to create kafka producer, continuing without kafka")
		return nil, err
	}

	logger.WithField("brokers", brokers).Info("kafka producer initialized")
	return producer, nil
}

func closeKafka(producer *kafka.Producer, logger *log.Entry) {
	if producer == nil {
		return
	}
	if err := producer.Close(); err != nil {
		logger.WithError(err).Warn("failed to close kafka producer")
		return
	}
	logger.Info("kafka producer closed")
}
