package memory

import (
	"fmt"
	"sort"
	"time"

	"github.com/vladislavdragonenkov/rms/internal/domain"
)

// reservationRepositoryInMemory — in-memory реализация ReservationRepository.
// Мьютекс Store сериализует писателей, поэтому admit видит счётчики,
// которые не изменятся до завершения записи.
type reservationRepositoryInMemory struct {
	store *Store
}

// Create сохраняет новую бронь после admit-проверки под блокировкой записи.
func (r *reservationRepositoryInMemory) Create(res domain.Reservation, admit domain.AdmitFunc) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.reservations[res.ID]; exists {
		return fmt.Errorf("reservation %s already exists", res.ID)
	}
	if _, ok := s.restaurants[res.RestaurantID]; !ok {
		return domain.ErrRestaurantNotFound
	}

	if admit != nil {
		if err := admit(s.countsLocked(res.RestaurantID, res.Date, res.ID)); err != nil {
			return err
		}
	}

	s.reservations[res.ID] = res
	return nil
}

// Get возвращает бронь или ErrReservationNotFound.
func (r *reservationRepositoryInMemory) Get(id string) (domain.Reservation, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	res, ok := s.reservations[id]
	if !ok {
		return domain.Reservation{}, domain.ErrReservationNotFound
	}
	return res, nil
}

// List возвращает брони по фильтру: свежие даты первыми, внутри даты —
// по времени создания по убыванию.
func (r *reservationRepositoryInMemory) List(filter domain.ReservationFilter) ([]domain.Reservation, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Reservation, 0, len(s.reservations))
	for _, res := range s.reservations {
		if filter.RestaurantID != "" && res.RestaurantID != filter.RestaurantID {
			continue
		}
		if filter.Date != nil && !res.Date.Equal(*filter.Date) {
			continue
		}
		result = append(result, res)
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].Date.Equal(result[j].Date) {
			return result[i].Date.After(result[j].Date)
		}
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID > result[j].ID
	})

	return result, nil
}

// Save перезаписывает бронь; при admit != nil счётчики берутся по новому
// ключу без учёта самой перезаписываемой брони.
func (r *reservationRepositoryInMemory) Save(res domain.Reservation, admit domain.AdmitFunc) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.reservations[res.ID]; !ok {
		return domain.ErrReservationNotFound
	}
	if _, ok := s.restaurants[res.RestaurantID]; !ok {
		return domain.ErrRestaurantNotFound
	}

	if admit != nil {
		if err := admit(s.countsLocked(res.RestaurantID, res.Date, res.ID)); err != nil {
			return err
		}
	}

	s.reservations[res.ID] = res
	return nil
}

// Delete удаляет бронь; счётчики занятости отражают это при следующем чтении.
func (r *reservationRepositoryInMemory) Delete(id string) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.reservations[id]; !ok {
		return domain.ErrReservationNotFound
	}
	delete(s.reservations, id)
	return nil
}

// CountByRestaurantDate возвращает число броней ресторана на дату.
func (r *reservationRepositoryInMemory) CountByRestaurantDate(restaurantID string, date time.Time) (int, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.countsLocked(restaurantID, date, "").Restaurant, nil
}

// CountByDate возвращает число броней на дату по всем ресторанам.
func (r *reservationRepositoryInMemory) CountByDate(date time.Time) (int, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.countsLocked("", date, "").Daily, nil
}

// countsLocked считает занятость даты, исключая бронь excludeID.
// Вызывается только под блокировкой Store.
func (s *Store) countsLocked(restaurantID string, date time.Time, excludeID string) domain.CapacityCounts {
	var counts domain.CapacityCounts
	for _, res := range s.reservations {
		if res.ID == excludeID || !res.Date.Equal(date) {
			continue
		}
		counts.Daily++
		if restaurantID != "" && res.RestaurantID == restaurantID {
			counts.Restaurant++
		}
	}
	return counts
}

var _ domain.ReservationRepository = (*reservationRepositoryInMemory)(nil)
