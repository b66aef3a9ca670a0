package manual_booking

import "time"

// Request модель запроса ручного композитного бронирования
type Request struct {
	OrderID   int64
	Region    string // Пустое значение - регион берется из заказа
	Team      string // Пустое значение - команду выбирает поиск
	Date      time.Time
	StartSlot int
	Montage   int
	Etage     int
}

// Response модель результата: разрешенное размещение
type Response struct {
	Team      string
	TeamLabel string
	Date      string // YYYY-MM-DD
	Slots     []int
	GroupID   string
}
