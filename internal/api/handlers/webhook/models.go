package webhook

import (
	"bytes"
	"encoding/json"
	"strconv"

	"github.com/tomgachter/sg-montagerechner-sub000/internal/domain"
	"github.com/tomgachter/sg-montagerechner-sub000/internal/signature"
	handleWebhook "github.com/tomgachter/sg-montagerechner-sub000/internal/usecase/handle_webhook"
)

// flexInt64 целое, приходящее числом или строкой
// Отправители webhook не договорились о типе order_id
type flexInt64 int64

func (f *flexInt64) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = 0
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s == "" {
			*f = 0
			return nil
		}
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return err
		}
		*f = flexInt64(v)
		return nil
	}
	var v int64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*f = flexInt64(v)
	return nil
}

// WebhookRequest HTTP request model
// Поля-алиасы: отправители используют разные имена для одного и того же
type WebhookRequest struct {
	Event     string `json:"event"`
	EventType string `json:"event_type"`
	Type      string `json:"type"`
	Status    string `json:"status"`

	OrderID  flexInt64 `json:"order_id"`
	Order    flexInt64 `json:"order"`
	WooOrder flexInt64 `json:"woo_order"`

	Sig       string `json:"sig"`
	Signature string `json:"signature"`
	Token     string `json:"token"`

	Region string `json:"region"`
	SGM    *int   `json:"sgm"`
	M      *int   `json:"m"` // Устаревшее имя sgm
	SGE    *int   `json:"sge"`
	E      *int   `json:"e"` // Устаревшее имя sge

	Booking BookingBody `json:"booking"`
}

// BookingBody данные бронирования из payload
type BookingBody struct {
	ID          string `json:"id"`
	Start       string `json:"start"`
	End         string `json:"end"`
	Timezone    string `json:"timezone"`
	CalendarID  string `json:"calendar_id"`
	Source      string `json:"source"`
	Status      string `json:"status"`
	SlotMinutes int    `json:"slot_minutes"`
}

// WebhookResponse HTTP response model
type WebhookResponse struct {
	Status           string `json:"status"`
	Handled          bool   `json:"handled"`
	Event            string `json:"event"`
	OrderID          int64  `json:"order_id"`
	Team             string `json:"team,omitempty"`
	Date             string `json:"date,omitempty"`
	Slots            []int  `json:"slots,omitempty"`
	Strategy         string `json:"strategy,omitempty"`
	RescheduledFrom  string `json:"rescheduled_from,omitempty"`
	RemainingRecords int    `json:"remaining_records,omitempty"`
}

// ToUseCaseRequest конвертирует HTTP запрос в модель use case,
// сводя поля-алиасы к каноническим
func (r *WebhookRequest) ToUseCaseRequest() *handleWebhook.Request {
	event := handleWebhook.FirstNonEmpty(r.Event, r.EventType, r.Type)
	if event == "" {
		// Тип события выводится из статуса, когда явного поля нет
		event = string(domain.EventTypeFromStatus(handleWebhook.FirstNonEmpty(r.Booking.Status, r.Status)))
	}

	orderID := int64(r.OrderID)
	if orderID == 0 {
		orderID = int64(r.Order)
	}
	if orderID == 0 {
		orderID = int64(r.WooOrder)
	}

	return &handleWebhook.Request{
		Event:     domain.EventType(event),
		OrderID:   orderID,
		Signature: handleWebhook.FirstNonEmpty(r.Sig, r.Signature, r.Token),
		Params: signature.Params{
			Region: r.Region,
			SGM:    countOrMissing(r.SGM, r.M),
			SGE:    countOrMissing(r.SGE, r.E),
		},
		Booking: handleWebhook.BookingPayload{
			ID:          r.Booking.ID,
			Start:       r.Booking.Start,
			End:         r.Booking.End,
			Timezone:    r.Booking.Timezone,
			CalendarID:  r.Booking.CalendarID,
			Source:      r.Booking.Source,
			Status:      handleWebhook.FirstNonEmpty(r.Booking.Status, r.Status),
			SlotMinutes: r.Booking.SlotMinutes,
		},
	}
}

// countOrMissing возвращает первое переданное значение, -1 если нет ни одного
// Отрицательное значение - маркер "не передано" для нормализации из заказа
func countOrMissing(candidates ...*int) int {
	for _, c := range candidates {
		if c != nil {
			return *c
		}
	}
	return -1
}

// FromUseCaseResult конвертирует результат use case в HTTP response
func FromUseCaseResult(result *handleWebhook.Result) *WebhookResponse {
	return &WebhookResponse{
		Status:           result.Status,
		Handled:          result.Handled,
		Event:            string(result.Event),
		OrderID:          result.OrderID,
		Team:             result.Team,
		Date:             result.Date,
		Slots:            result.Slots,
		Strategy:         result.Strategy,
		RescheduledFrom:  result.RescheduledFrom,
		RemainingRecords: result.RemainingRecords,
	}
}
