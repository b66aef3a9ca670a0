package domain

// EventType тип события жизненного цикла бронирования из webhook
type EventType string

const (
	EventBookingCreated     EventType = "booking_created"
	EventBookingRescheduled EventType = "booking_rescheduled"
	EventBookingCancelled   EventType = "booking_cancelled"
)

// Known возвращает true для обрабатываемых типов событий
// Неизвестные события игнорируются, а не отклоняются: контракт webhook
// должен быть толерантен к новым типам
func (e EventType) Known() bool {
	switch e {
	case EventBookingCreated, EventBookingRescheduled, EventBookingCancelled:
		return true
	default:
		return false
	}
}

// EventTypeFromStatus выводит тип события из статуса бронирования,
// когда поле события в payload отсутствует
func EventTypeFromStatus(status string) EventType {
	switch status {
	case "cancelled", "canceled":
		return EventBookingCancelled
	case "rescheduled":
		return EventBookingRescheduled
	case "confirmed", "booked", "created":
		return EventBookingCreated
	default:
		return EventType(status)
	}
}

// SourceWeb источник события "web" - самостоятельное бронирование клиента
// Для таких событий ограничения дней недели не применяются:
// веб-интерфейс уже отфильтровал разрешенные дни
const SourceWeb = "web"
