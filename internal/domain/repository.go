package domain

import "time"

// CapacityCounts — снимок счётчиков занятости, на котором принимается решение
// admit/reject. Счётчики берутся в той же транзакции, что и запись,
// и никогда не включают саму перезаписываемую бронь.
type CapacityCounts struct {
	// Restaurant — брони целевого ресторана на целевую дату.
	Restaurant int
	// Daily — все брони на целевую дату по всем ресторанам.
	Daily int
}

// AdmitFunc принимает решение о допуске брони по снимку счётчиков.
// Возвращённая ошибка (обычно *CapacityError) откатывает запись.
type AdmitFunc func(counts CapacityCounts) error

// RestaurantRepository описывает требования к хранилищу ресторанов.
type RestaurantRepository interface {
	// Create сохраняет новый ресторан.
	Create(r Restaurant) error
	// Get возвращает ресторан или ErrRestaurantNotFound.
	Get(id string) (Restaurant, error)
	// List возвращает рестораны по фильтру, отсортированные по имени.
	List(filter RestaurantFilter) ([]Restaurant, error)
	// Save перезаписывает существующий ресторан.
	Save(r Restaurant) error
	// Delete удаляет ресторан вместе со всеми его бронями и возвращает
	// количество каскадно удалённых броней.
	Delete(id string) (int, error)
}

// ReservationRepository описывает требования к хранилищу броней.
//
// Create и Save выполняют подсчёт занятости и запись атомарно относительно
// других писателей той же даты: admit вызывается внутри транзакции записи,
// «прочитал счётчик — сравнил — вставил» без атомарности здесь невозможно.
type ReservationRepository interface {
	// Create сохраняет новую бронь, если admit допускает её по счётчикам
	// ключа (res.RestaurantID, res.Date). admit == nil означает запись без
	// проверки вместимости.
	Create(res Reservation, admit AdmitFunc) error
	// Get возвращает бронь или ErrReservationNotFound.
	Get(id string) (Reservation, error)
	// List возвращает брони по фильтру, отсортированные по дате (свежие
	// первыми), затем по времени создания.
	List(filter ReservationFilter) ([]Reservation, error)
	// Save перезаписывает бронь целиком. При admit != nil счётчики берутся
	// по новому ключу (res.RestaurantID, res.Date) без учёта самой брони.
	Save(res Reservation, admit AdmitFunc) error
	// Delete удаляет бронь безусловно; следующая проверка вместимости
	// увидит освободившийся слот.
	Delete(id string) error
	// CountByRestaurantDate возвращает число броней ресторана на дату.
	CountByRestaurantDate(restaurantID string, date time.Time) (int, error)
	// CountByDate возвращает число броней на дату по всем ресторанам.
	CountByDate(date time.Time) (int, error)
}
