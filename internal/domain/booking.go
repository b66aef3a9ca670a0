package domain

import (
	"time"

	"github.com/tomgachter/sg-montagerechner-sub000/pkg/types"
)

// BookingState явное состояние бронирования заказа
// В хосте хранится строковым статусом заказа, здесь - типизированный enum
type BookingState string

const (
	StateNoBooking   BookingState = "no_booking"  // Бронирования нет
	StatePlanned     BookingState = "planned"     // Selector-бронирование удерживается
	StateBooked      BookingState = "booked"      // Подтвержденное бронирование
	StateRescheduled BookingState = "rescheduled" // Перенесено, затем снова booked
	StateCancelled   BookingState = "cancelled"   // Отменено
)

// orderStatusByState отображение состояний на статусы заказа в магазине
var orderStatusByState = map[BookingState]string{
	StateNoBooking:   "processing",
	StatePlanned:     "appointment-planned",
	StateBooked:      "appointment-booked",
	StateRescheduled: "appointment-booked",
	StateCancelled:   "appointment-cancelled",
}

// OrderStatus возвращает статус заказа для состояния бронирования
func (s BookingState) OrderStatus() string {
	if status, ok := orderStatusByState[s]; ok {
		return status
	}
	return orderStatusByState[StateNoBooking]
}

// StateFromOrderStatus восстанавливает состояние из статуса заказа
func StateFromOrderStatus(status string) BookingState {
	switch status {
	case "appointment-planned":
		return StatePlanned
	case "appointment-booked":
		return StateBooked
	case "appointment-cancelled":
		return StateCancelled
	default:
		return StateNoBooking
	}
}

// BookingRecord одна запись расписания (один слот) в составе бронирования заказа
// Полный набор записей заказа группируется по GroupID и заменяется атомарно
// при переносе или отмене
type BookingRecord struct {
	ID                int64
	OrderID           int64
	GroupID           string // Общий идентификатор набора записей одного бронирования
	TeamKey           string
	Date              time.Time
	SlotIndex         int
	SlotStart         types.TimeString
	SlotEnd           types.TimeString
	Service           ServiceKind
	Mode              string  // "auto", "manual" или "reschedule"
	CalendarID        string  // Календарь внешнего сервиса
	SelectorBookingID *string // ID selector-бронирования, если было
	RemoteBookingID   *string // ID события во внешнем календаре
	RemoteResponse    *string // Сырой ответ внешнего сервиса (JSON)
	CreatedAt         time.Time
}

// HasRemoteBooking возвращает true, если запись привязана к событию внешнего календаря
func (r *BookingRecord) HasRemoteBooking() bool {
	return r.RemoteBookingID != nil && *r.RemoteBookingID != ""
}

// ProcessedEvent запись журнала идемпотентности webhook-событий
type ProcessedEvent struct {
	OrderID   int64
	EventHash string
	SeenAt    time.Time
}

// RouterLogEntry запись о примененном инкременте счетчика емкости
// Позволяет отмене точно откатить инкременты без двойного декремента
type RouterLogEntry struct {
	OrderID    int64
	LogKey     string // calendarID|date|service
	CalendarID string
	Date       time.Time
	Service    ServiceKind
}
