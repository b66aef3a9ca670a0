package handle_webhook

import (
	"github.com/tomgachter/sg-montagerechner-sub000/internal/domain"
	"github.com/tomgachter/sg-montagerechner-sub000/internal/signature"
)

// Статусы результата обработки события
const (
	StatusOK        = "ok"
	StatusIgnored   = "ignored"
	StatusDuplicate = "duplicate"
)

// Режимы бронирования в записях расписания
const (
	ModeAuto       = "auto"
	ModeReschedule = "reschedule"
)

// BookingPayload данные бронирования из webhook payload
// Поля-алиасы (event/event_type/type и т.п.) уже сведены к каноническим
// именам на уровне HTTP handler
type BookingPayload struct {
	ID          string // ID selector-бронирования во внешнем сервисе
	Start       string // Запрошенное начало, разные форматы и таймзоны
	End         string
	Timezone    string // Таймзона отправителя, если передана
	CalendarID  string
	Source      string // "web" - самостоятельное бронирование клиента
	Status      string
	SlotMinutes int // Длительность слота по данным внешнего сервиса
}

// Request модель входящего webhook-события
type Request struct {
	Event     domain.EventType
	OrderID   int64
	Signature string
	Params    signature.Params
	Booking   BookingPayload
}

// Result модель результата обработки события
type Result struct {
	Status  string           // ok | ignored | duplicate
	Handled bool             // Были ли побочные эффекты
	Event   domain.EventType
	OrderID int64

	// Заполняются для created/rescheduled
	Team            string
	Date            string // YYYY-MM-DD
	Slots           []int
	Strategy        string
	RescheduledFrom string // Исходная дата, если день был перенесен

	// Заполняется для cancelled: записи, не отмененные во внешнем
	// календаре и оставленные для повтора
	RemainingRecords int
}
