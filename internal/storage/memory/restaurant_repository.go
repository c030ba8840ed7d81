package memory

import (
	"fmt"
	"sort"
	"strings"

	"github.com/vladislavdragonenkov/rms/internal/domain"
)

// restaurantRepositoryInMemory — in-memory реализация RestaurantRepository.
type restaurantRepositoryInMemory struct {
	store *Store
}

// Create сохраняет новый ресторан, если ID ещё не занят.
func (r *restaurantRepositoryInMemory) Create(restaurant domain.Restaurant) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.restaurants[restaurant.ID]; exists {
		return fmt.Errorf("restaurant %s already exists", restaurant.ID)
	}
	s.restaurants[restaurant.ID] = restaurant
	return nil
}

// Get возвращает ресторан или ErrRestaurantNotFound.
func (r *restaurantRepositoryInMemory) Get(id string) (domain.Restaurant, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	restaurant, ok := s.restaurants[id]
	if !ok {
		return domain.Restaurant{}, domain.ErrRestaurantNotFound
	}
	return restaurant, nil
}

// List возвращает рестораны по фильтру, отсортированные по имени.
func (r *restaurantRepositoryInMemory) List(filter domain.RestaurantFilter) ([]domain.Restaurant, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	prefix := strings.ToLower(filter.NamePrefix)
	city := strings.ToLower(filter.City)

	result := make([]domain.Restaurant, 0, len(s.restaurants))
	for _, restaurant := range s.restaurants {
		if prefix != "" && !strings.HasPrefix(strings.ToLower(restaurant.Name), prefix) {
			continue
		}
		if city != "" && !strings.Contains(strings.ToLower(restaurant.City), city) {
			continue
		}
		result = append(result, restaurant)
	}

	sort.Slice(result, func(i, j int) bool {
		ni, nj := strings.ToLower(result[i].Name), strings.ToLower(result[j].Name)
		if ni != nj {
			return ni < nj
		}
		return result[i].ID < result[j].ID
	})

	return result, nil
}

// Save перезаписывает существующий ресторан.
func (r *restaurantRepositoryInMemory) Save(restaurant domain.Restaurant) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.restaurants[restaurant.ID]; !ok {
		return domain.ErrRestaurantNotFound
	}
	s.restaurants[restaurant.ID] = restaurant
	return nil
}

// Delete удаляет ресторан и каскадно все его брони.
func (r *restaurantRepositoryInMemory) Delete(id string) (int, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.restaurants[id]; !ok {
		return 0, domain.ErrRestaurantNotFound
	}
	delete(s.restaurants, id)

	removed := 0
	for resID, res := range s.reservations {
		if res.RestaurantID == id {
			delete(s.reservations, resID)
			removed++
		}
	}
	return removed, nil
}

var _ domain.RestaurantRepository = (*restaurantRepositoryInMemory)(nil)
