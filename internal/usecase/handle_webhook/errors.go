package handle_webhook

import "errors"

var (
	// ErrInvalidInput возвращается при некорректных входных данных
	ErrInvalidInput = errors.New("handle_webhook: invalid input data")

	// ErrInvalidStart возвращается, когда время начала из payload не разобрано
	ErrInvalidStart = errors.New("handle_webhook: booking start time is missing or malformed")

	// ErrInvalidSignature возвращается при невалидной или просроченной подписи
	ErrInvalidSignature = errors.New("handle_webhook: invalid or expired signature")

	// ErrOrderNotFound возвращается, когда заказ не найден в магазине
	ErrOrderNotFound = errors.New("handle_webhook: order not found")

	// ErrNoServiceRequired возвращается, когда по заказу нет работ на выезде
	ErrNoServiceRequired = errors.New("handle_webhook: order requires no on-site service")

	// ErrUnknownRegion возвращается для пустого, неизвестного или "по запросу" региона
	ErrUnknownRegion = errors.New("handle_webhook: region is unknown or not routable")

	// ErrManualPlanningRequired возвращается, когда объем монтажа выше порога
	// автоматического планирования
	ErrManualPlanningRequired = errors.New("handle_webhook: montage volume requires manual planning")

	// ErrDayNotBookable возвращается при strict-политике для запрещенного дня недели
	ErrDayNotBookable = errors.New("handle_webhook: requested day is not bookable in this region")

	// ErrNoAvailability возвращается, когда ни команда, ни последовательность
	// слотов не нашлись - вызывающему предлагается другая дата
	ErrNoAvailability = errors.New("handle_webhook: no team or slot sequence available")

	// ErrRemoteFailure возвращается при ошибке внешнего календарного сервиса
	// на этапе создания - частичный успех не персистится
	ErrRemoteFailure = errors.New("handle_webhook: remote calendar call failed")

	// ErrInternal возвращается при внутренних ошибках usecase
	ErrInternal = errors.New("handle_webhook: internal error")
)
