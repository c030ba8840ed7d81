package domain

import "time"

// OutboxMessage — событие жизненного цикла брони или ресторана,
// записанное для последующей публикации в брокер.
type OutboxMessage struct {
	ID            string
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// OutboxStats — текущее состояние очереди публикации.
type OutboxStats struct {
	PendingCount int
	// OldestPendingAt — время постановки самого старого pending-события;
	// нулевое при пустой очереди.
	OldestPendingAt time.Time
}

// OutboxRepository хранит события до подтверждённой доставки в брокер.
type OutboxRepository interface {
	// Enqueue ставит событие в очередь и возвращает его с заполненным ID.
	Enqueue(msg OutboxMessage) (OutboxMessage, error)
	// PullPending отдаёт до limit ожидающих событий в порядке постановки.
	PullPending(limit int) ([]OutboxMessage, error)
	// Stats возвращает размер и возраст backlog.
	Stats() (OutboxStats, error)
	// MarkSent помечает событие доставленным.
	MarkSent(id string) error
	// MarkFailed помечает событие недоставленным после исчерпания попыток.
	MarkFailed(id string) error
}

// OutboxPublisher доставляет события наружу; реализация должна быть
// идемпотентной, воркер может повторить доставку.
type OutboxPublisher interface {
	Publish(event OutboxMessage) error
}
