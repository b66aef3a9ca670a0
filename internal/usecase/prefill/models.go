package prefill

import "github.com/tomgachter/sg-montagerechner-sub000/internal/signature"

// Request модель запроса префилла формы бронирования
type Request struct {
	OrderID   int64
	Signature string
	Params    signature.Params
}

// Response данные для предзаполнения формы бронирования
type Response struct {
	OrderID int64

	// Клиент и адрес выезда
	CustomerName  string
	CustomerEmail string
	CustomerPhone string
	Street        string
	Postcode      string
	City          string
	Items         []string

	// Объем работ
	Montage         int
	Etage           int
	Service         string
	RequiredMinutes int
	RequiredSlots   int

	// Маршрутизация
	Region       string
	RegionLabel  string
	AllowedDays  []int // ISO дни недели 1=Пн ... 7=Вс, пусто = все разрешены
	DayPolicy    string
	DriveMinutes int
}
