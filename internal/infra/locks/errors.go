package locks

import "errors"

var (
	// ErrNotAcquired возвращается, когда блокировка уже удерживается другим владельцем
	ErrNotAcquired = errors.New("locks: lock not acquired")

	// ErrInternal возвращается при ошибках взаимодействия с Redis
	ErrInternal = errors.New("locks: internal error")
)
