package calendarapi

import "errors"

var (
	// ErrBookingRejected возвращается, когда календарный сервис отклонил бронирование
	ErrBookingRejected = errors.New("calendarapi client: booking rejected")

	// ErrScheduleNotFound возвращается при отмене несуществующего события
	ErrScheduleNotFound = errors.New("calendarapi client: schedule not found")

	// ErrInternal возвращается при внутренних ошибках клиента
	ErrInternal = errors.New("calendarapi client: internal error")

	// ErrInvalidResponse возвращается при некорректном ответе сервиса
	ErrInvalidResponse = errors.New("calendarapi client: invalid response")
)
