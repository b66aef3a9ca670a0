package distance

import "errors"

var (
	// ErrPostcodeNotFound возвращается, когда индекс не найден у провайдера
	ErrPostcodeNotFound = errors.New("distance client: postcode not found")

	// ErrInternal возвращается при внутренних ошибках клиента
	ErrInternal = errors.New("distance client: internal error")

	// ErrInvalidResponse возвращается при некорректном ответе провайдера
	ErrInvalidResponse = errors.New("distance client: invalid response")
)
