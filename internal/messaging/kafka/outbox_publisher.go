package kafka

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/vladislavdragonenkov/rms/internal/domain"
)

// eventEnvelope — формат сообщения в топике событий: метаданные outbox
// плюс исходный payload без переупаковки.
type eventEnvelope struct {
	ID            string          `json:"id"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   string          `json:"aggregate_id"`
	EventType     string          `json:"event_type"`
	Payload       json.RawMessage `json:"payload"`
	PublishedAt   time.Time       `json:"published_at"`
}

// OutboxTopicPublisher доставляет outbox-сообщения в один Kafka topic.
type OutboxTopicPublisher struct {
	producer *Producer
	topic    string
}

// NewOutboxPublisher создаёт Kafka-паблишер для transactional outbox.
// Пустой topic означает топик событий броней.
func NewOutboxPublisher(producer *Producer, topic string) domain.OutboxPublisher {
	if topic == "" {
		topic = TopicReservationEvents
	}
	return &OutboxTopicPublisher{producer: producer, topic: topic}
}

// Publish отправляет событие в topic. Ключ партиционирования — агрегат:
// события одной брони или одного ресторана сохраняют порядок.
func (p *OutboxTopicPublisher) Publish(event domain.OutboxMessage) error {
	if p == nil || p.producer == nil {
		return fmt.Errorf("kafka outbox publisher is not initialized")
	}
	return publishEnvelope(p.producer, p.topic, event)
}

// AggregatePublisher выбирает топик по типу агрегата: события ресторанов
// и события броней расходятся по своим топикам.
type AggregatePublisher struct {
	producer *Producer
}

// NewAggregatePublisher создаёт паблишер с маршрутизацией по агрегату.
func NewAggregatePublisher(producer *Producer) domain.OutboxPublisher {
	return &AggregatePublisher{producer: producer}
}

func (p *AggregatePublisher) Publish(event domain.OutboxMessage) error {
	if p == nil || p.producer == nil {
		return fmt.Errorf("kafka outbox publisher is not initialized")
	}
	return publishEnvelope(p.producer, TopicForAggregate(event.AggregateType), event)
}

func publishEnvelope(producer *Producer, topic string, event domain.OutboxMessage) error {
	key := event.AggregateID
	if key == "" {
		key = event.ID
	}

	return producer.PublishEvent(topic, key, eventEnvelope{
		ID:            event.ID,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		EventType:     event.EventType,
		Payload:       json.RawMessage(event.Payload),
		PublishedAt:   time.Now().UTC(),
	})
}

var _ domain.OutboxPublisher = (*OutboxTopicPublisher)(nil)
var _ domain.OutboxPublisher = (*AggregatePublisher)(nil)
