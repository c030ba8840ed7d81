package kafka

import "time"

// EventType определяет тип события
type EventType string

const (
	// Reservation события
	EventTypeReservationCreated  EventType = "reservation.created"
	EventTypeReservationUpdated  EventType = "reservation.updated"
	EventTypeReservationCanceled EventType = "reservation.canceled"

	// Restaurant события
	EventTypeRestaurantCreated EventType = "restaurant.created"
	EventTypeRestaurantDeleted EventType = "restaurant.deleted"
)

// Topics для Kafka
const (
	TopicReservationEvents = "rms.reservation.events"
	TopicRestaurantEvents  = "rms.restaurant.events"
	TopicDeadLetterQueue   = "rms.dlq" // Dead Letter Queue для failed messages
)

// Типы агрегатов, которые пишутся в outbox.
const (
	AggregateTypeReservation = "reservation"
	AggregateTypeRestaurant  = "restaurant"
)

// TopicForAggregate возвращает топик для типа агрегата outbox-записи.
// Неизвестные типы уходят в топик броней, чтобы запись не потерялась.
func TopicForAggregate(aggregateType string) string {
	if aggregateType == AggregateTypeRestaurant {
		return TopicRestaurantEvents
	}
	return TopicReservationEvents
}

// ReservationEvent представляет событие жизненного цикла брони
type ReservationEvent struct {
	EventType       EventType `json:"event_type"`
	ReservationID   string    `json:"reservation_id"`
	RestaurantID    string    `json:"restaurant_id"`
	ReservationDate string    `json:"reservation_date"`
	PartySize       int       `json:"party_size,omitempty"`
	Timestamp       time.Time `json:"timestamp"`
}

// RestaurantEvent представляет событие жизненного цикла ресторана
type RestaurantEvent struct {
	EventType    EventType `json:"event_type"`
	RestaurantID string    `json:"restaurant_id"`
	Name         string    `json:"name,omitempty"`
	// RemovedReservations — сколько броней снял каскад при удалении ресторана.
	RemovedReservations int       `json:"removed_reservations,omitempty"`
	Timestamp           time.Time `json:"timestamp"`
}

// NewReservationEvent создает новое событие брони
func NewReservationEvent(eventType EventType, reservationID, restaurantID, date string, partySize int) *ReservationEvent {
	return &ReservationEvent{
		EventType:       eventType,
		ReservationID:   reservationID,
		RestaurantID:    restaurantID,
		ReservationDate: date,
		PartySize:       partySize,
		Timestamp:       time.Now(),
	}
}

// NewRestaurantEvent создает новое событие ресторана
func NewRestaurantEvent(eventType EventType, restaurantID, name string, removedReservations int) *RestaurantEvent {
	return &RestaurantEvent{
		EventType:           eventType,
		RestaurantID:        restaurantID,
		Name:                name,
		RemovedReservations: removedReservations,
		Timestamp:           time.Now(),
	}
}
