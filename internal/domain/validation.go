package domain

import (
	"fmt"
	"net/mail"
	"net/url"
	"sort"
	"strings"
	"unicode/utf8"
)

// FieldErrors собирает сообщения об ошибках по имени поля,
// в форме, пригодной для отдачи клиенту в `errors`.
type FieldErrors map[string][]string

// ValidationError агрегирует все нарушения валидации входных данных.
// Возвращается целиком, а не по одному нарушению за раз.
type ValidationError struct {
	Fields FieldErrors
}

// NewValidationError создаёт пустой аккумулятор нарушений.
func NewValidationError() *ValidationError {
	return &ValidationError{Fields: make(FieldErrors)}
}

// Add добавляет сообщение о нарушении для поля.
func (e *ValidationError) Add(field, message string) {
	e.Fields[field] = append(e.Fields[field], message)
}

// ErrOrNil возвращает ошибку, только если нарушения накоплены.
func (e *ValidationError) ErrOrNil() *ValidationError {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}

func (e *ValidationError) Error() string {
	if e == nil || len(e.Fields) == 0 {
		return "validation failed"
	}

	fields := make([]string, 0, len(e.Fields))
	for field := range e.Fields {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	return fmt.Sprintf("validation failed: %s", strings.Join(fields, ", "))
}

// requireText проверяет обязательное текстовое поле с верхней границей длины.
// Лимиты считаются в символах, не в байтах: кириллическое имя на 60 символов
// укладывается в границу 100.
func requireText(verr *ValidationError, field, value string, maxLen int) {
	if strings.TrimSpace(value) == "" {
		verr.Add(field, fmt.Sprintf("%s is required", field))
		return
	}
	if utf8.RuneCountInString(value) > maxLen {
		verr.Add(field, fmt.Sprintf("must be at most %d characters", maxLen))
	}
}

func checkEmail(verr *ValidationError, field, value string) {
	if utf8.RuneCountInString(value) > CustomerEmailMaxLen {
		verr.Add(field, fmt.Sprintf("must be at most %d characters", CustomerEmailMaxLen))
	}
	addr, err := mail.ParseAddress(value)
	if err != nil || addr.Address != value {
		verr.Add(field, "must be a valid email address")
	}
}

func checkPhotoURL(verr *ValidationError, field, value string) {
	if utf8.RuneCountInString(value) > RestaurantPhotoMaxLen {
		verr.Add(field, fmt.Sprintf("must be at most %d characters", RestaurantPhotoMaxLen))
	}
	u, err := url.Parse(value)
	if err != nil || !u.IsAbs() || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		verr.Add(field, "must be a valid http(s) URL")
	}
}
