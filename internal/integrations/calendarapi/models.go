package calendarapi

// BookingRequest запрос на создание события во внешнем календаре
// Одно событие = один слот итогового расписания
type BookingRequest struct {
	TeamKey         string            `json:"team_key"`
	StartAt         string            `json:"start_at"` // RFC3339
	EndAt           string            `json:"end_at"`   // RFC3339
	Timezone        string            `json:"timezone"`
	DurationMinutes int               `json:"duration_minutes"`
	Title           string            `json:"title"`
	Description     string            `json:"description,omitempty"`
	Meta            map[string]string `json:"meta,omitempty"`
	Customer        Customer          `json:"customer"`
	Address         Address           `json:"address"`
	Items           []string          `json:"items,omitempty"`
	CalendarID      string            `json:"calendar_id"`
	EventID         string            `json:"event_id,omitempty"`
}

// Customer данные клиента для события
type Customer struct {
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// Address адрес выезда
type Address struct {
	Street   string `json:"street"`
	Postcode string `json:"postcode"`
	City     string `json:"city"`
}

// BookingResponse ответ календарного сервиса на создание события
type BookingResponse struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	SlotMinutes int    `json:"slot_minutes,omitempty"` // Длительность слота по данным сервиса
	Raw         string `json:"-"`                      // Сырое тело ответа для аудита
}

// ErrorResponse модель ошибки календарного сервиса
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}
