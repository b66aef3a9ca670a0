package prefill

import "errors"

var (
	// ErrInvalidInput возвращается при некорректных входных данных
	ErrInvalidInput = errors.New("prefill: invalid input data")

	// ErrInvalidSignature возвращается при невалидной или просроченной подписи
	ErrInvalidSignature = errors.New("prefill: invalid or expired signature")

	// ErrOrderNotFound возвращается, когда заказ не найден в магазине
	ErrOrderNotFound = errors.New("prefill: order not found")

	// ErrInternal возвращается при внутренних ошибках usecase
	ErrInternal = errors.New("prefill: internal error")
)
