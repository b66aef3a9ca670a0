package prefill

import (
	prefillUC "github.com/tomgachter/sg-montagerechner-sub000/internal/usecase/prefill"
)

// PrefillResponse HTTP response model
type PrefillResponse struct {
	OrderID int64 `json:"order_id"`

	Customer CustomerBody `json:"customer"`
	Address  AddressBody  `json:"address"`
	Items    []string     `json:"items,omitempty"`

	Montage         int    `json:"sgm"`
	Etage           int    `json:"sge"`
	Service         string `json:"service"`
	RequiredMinutes int    `json:"required_minutes"`
	RequiredSlots   int    `json:"required_slots"`

	Region       string `json:"region"`
	RegionLabel  string `json:"region_label,omitempty"`
	AllowedDays  []int  `json:"allowed_days,omitempty"`
	DayPolicy    string `json:"day_policy,omitempty"`
	DriveMinutes int    `json:"drive_minutes"`
}

// CustomerBody данные клиента
type CustomerBody struct {
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// AddressBody адрес выезда
type AddressBody struct {
	Street   string `json:"street"`
	Postcode string `json:"postcode"`
	City     string `json:"city"`
}

// FromUseCaseResponse конвертирует ответ use case в HTTP response
func FromUseCaseResponse(resp *prefillUC.Response) *PrefillResponse {
	return &PrefillResponse{
		OrderID: resp.OrderID,
		Customer: CustomerBody{
			Name:  resp.CustomerName,
			Email: resp.CustomerEmail,
			Phone: resp.CustomerPhone,
		},
		Address: AddressBody{
			Street:   resp.Street,
			Postcode: resp.Postcode,
			City:     resp.City,
		},
		Items:           resp.Items,
		Montage:         resp.Montage,
		Etage:           resp.Etage,
		Service:         resp.Service,
		RequiredMinutes: resp.RequiredMinutes,
		RequiredSlots:   resp.RequiredSlots,
		Region:          resp.Region,
		RegionLabel:     resp.RegionLabel,
		AllowedDays:     resp.AllowedDays,
		DayPolicy:       resp.DayPolicy,
		DriveMinutes:    resp.DriveMinutes,
	}
}
