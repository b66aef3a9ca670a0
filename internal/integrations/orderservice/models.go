package orderservice

import "github.com/tomgachter/sg-montagerechner-sub000/internal/domain"

// orderResponse модель заказа из магазина
type orderResponse struct {
	ID            int64    `json:"id"`
	Status        string   `json:"status"`
	Region        string   `json:"region"`
	Postcode      string   `json:"postcode"`
	MontageCount  int      `json:"montage_count"`
	EtageCount    int      `json:"etage_count"`
	CustomerName  string   `json:"customer_name"`
	CustomerEmail string   `json:"customer_email"`
	CustomerPhone string   `json:"customer_phone"`
	Street        string   `json:"street"`
	City          string   `json:"city"`
	Items         []string `json:"items"`
}

func (o *orderResponse) toDomain() *domain.Order {
	return &domain.Order{
		ID:            o.ID,
		Status:        o.Status,
		Region:        o.Region,
		Postcode:      o.Postcode,
		MontageCount:  o.MontageCount,
		EtageCount:    o.EtageCount,
		CustomerName:  o.CustomerName,
		CustomerEmail: o.CustomerEmail,
		CustomerPhone: o.CustomerPhone,
		Street:        o.Street,
		City:          o.City,
		Items:         o.Items,
	}
}

// statusRequest запрос на смену статуса заказа
type statusRequest struct {
	Status string `json:"status"`
}

// noteRequest запрос на добавление заметки в таймлайн заказа
type noteRequest struct {
	Note string `json:"note"`
}
