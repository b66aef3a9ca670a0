package manual_booking

import "errors"

// Ошибки сопоставляются handler-ом с машиночитаемыми кодами ответа
var (
	// ErrInvalidRequest возвращается при некорректных входных данных (код invalid_request)
	ErrInvalidRequest = errors.New("manual_booking: invalid request")

	// ErrInvalidDate возвращается для нулевой или прошедшей даты (код invalid_date)
	ErrInvalidDate = errors.New("manual_booking: invalid booking date")

	// ErrInvalidCounts возвращается для некорректных объемов работ (код invalid_counts)
	ErrInvalidCounts = errors.New("manual_booking: invalid montage/etage counts")

	// ErrThreshold возвращается, когда объем монтажа выше порога
	// автоматического планирования (код threshold)
	ErrThreshold = errors.New("manual_booking: montage volume exceeds automation threshold")

	// ErrOrderNotFound возвращается, когда заказ не найден (код order_not_found)
	ErrOrderNotFound = errors.New("manual_booking: order not found")

	// ErrUnknownRegion возвращается для ненастроенного региона (код unknown_region)
	ErrUnknownRegion = errors.New("manual_booking: unknown region")

	// ErrTeamInvalid возвращается, когда команды нет в ростере региона (код team_invalid)
	ErrTeamInvalid = errors.New("manual_booking: team is not in the region roster")

	// ErrNoSequenceToday возвращается, когда ни у одной команды региона нет
	// последовательности слотов на эту дату (код no_sequence_today_in_region)
	ErrNoSequenceToday = errors.New("manual_booking: no slot sequence available in region today")

	// ErrRemoteFailure возвращается при ошибке внешнего календарного сервиса
	ErrRemoteFailure = errors.New("manual_booking: remote calendar call failed")

	// ErrInternal возвращается при внутренних ошибках usecase
	ErrInternal = errors.New("manual_booking: internal error")
)
