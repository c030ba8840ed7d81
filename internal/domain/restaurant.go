package domain

import "time"

// Ограничения полей ресторана (повторяют схему хранилища).
const (
	RestaurantNameMaxLen    = 100
	RestaurantAddressMaxLen = 200
	RestaurantCityMaxLen    = 100
	RestaurantPhotoMaxLen   = 500
)

// Restaurant представляет ресторан, принимающий брони.
type Restaurant struct {
	ID          string
	Name        string
	Description string
	Address     string
	City        string
	PhotoURL    string
	// CreatedAt выставляется один раз при создании и больше не меняется.
	CreatedAt time.Time
}

// ValidateInvariants проверяет базовые инварианты ресторана и возвращает
// накопленные нарушения по полям.
func (r *Restaurant) ValidateInvariants() *ValidationError {
	verr := NewValidationError()

	requireText(verr, "name", r.Name, RestaurantNameMaxLen)
	requireText(verr, "address", r.Address, RestaurantAddressMaxLen)
	requireText(verr, "city", r.City, RestaurantCityMaxLen)
	if r.PhotoURL != "" {
		checkPhotoURL(verr, "photo_url", r.PhotoURL)
	}

	return verr.ErrOrNil()
}

// RestaurantFilter описывает опциональные фильтры списка ресторанов.
type RestaurantFilter struct {
	// NamePrefix отбирает рестораны, имя которых начинается с префикса
	// (без учёта регистра).
	NamePrefix string
	// City отбирает рестораны по подстроке в городе (без учёта регистра).
	City string
}
