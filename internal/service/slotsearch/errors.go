package slotsearch

import "errors"

var (
	// ErrInvalidInput возвращается при некорректных параметрах поиска
	ErrInvalidInput = errors.New("slotsearch: invalid input")

	// ErrInternal возвращается при внутренних ошибках поиска
	ErrInternal = errors.New("slotsearch: internal error")
)
