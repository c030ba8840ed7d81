package memory

import (
	"sync"

	"github.com/vladislavdragonenkov/rms/internal/domain"
)

// Store держит обе таблицы in-memory бэкенда под одним мьютексом.
// Запись брони и подсчёт занятости выполняются под одной блокировкой,
// что сериализует писателей и делает check-and-reserve атомарным.
type Store struct {
	mu           sync.RWMutex
	restaurants  map[string]domain.Restaurant
	reservations map[string]domain.Reservation
}

// NewStore создаёт пустое in-memory хранилище для локальной разработки и тестов.
func NewStore() *Store {
	return &Store{
		restaurants:  make(map[string]domain.Restaurant),
		reservations: make(map[string]domain.Reservation),
	}
}

// Restaurants возвращает репозиторий ресторанов поверх хранилища.
func (s *Store) Restaurants() domain.RestaurantRepository {
	return &restaurantRepositoryInMemory{store: s}
}

// Reservations возвращает репозиторий броней поверх хранилища.
func (s *Store) Reservations() domain.ReservationRepository {
	return &reservationRepositoryInMemory{store: s}
}
