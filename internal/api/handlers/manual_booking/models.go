package manual_booking

import (
	"fmt"
	"time"

	manualBooking "github.com/tomgachter/sg-montagerechner-sub000/internal/usecase/manual_booking"
)

const dateLayout = "2006-01-02"

// ManualBookingRequest HTTP request model
type ManualBookingRequest struct {
	OrderID   int64  `json:"order_id"`
	Region    string `json:"region"`
	Team      string `json:"team"`
	Date      string `json:"date"` // YYYY-MM-DD
	StartSlot int    `json:"start_slot"`
	Montage   int    `json:"sgm"`
	Etage     int    `json:"sge"`
}

// ManualBookingResponse HTTP response model
type ManualBookingResponse struct {
	Team      string `json:"team"`
	TeamLabel string `json:"team_label,omitempty"`
	Date      string `json:"date"`
	Slots     []int  `json:"slots"`
	GroupID   string `json:"group_id"`
}

// ToUseCaseRequest конвертирует HTTP запрос в модель use case
// Дата разбирается в таймзоне планирования
func (r *ManualBookingRequest) ToUseCaseRequest(tz *time.Location) (*manualBooking.Request, error) {
	var date time.Time
	if r.Date != "" {
		parsed, err := time.ParseInLocation(dateLayout, r.Date, tz)
		if err != nil {
			return nil, fmt.Errorf("invalid date %q: %v", r.Date, err)
		}
		date = parsed
	}

	return &manualBooking.Request{
		OrderID:   r.OrderID,
		Region:    r.Region,
		Team:      r.Team,
		Date:      date,
		StartSlot: r.StartSlot,
		Montage:   r.Montage,
		Etage:     r.Etage,
	}, nil
}

// FromUseCaseResponse конвертирует ответ use case в HTTP response
func FromUseCaseResponse(resp *manualBooking.Response) *ManualBookingResponse {
	return &ManualBookingResponse{
		Team:      resp.Team,
		TeamLabel: resp.TeamLabel,
		Date:      resp.Date,
		Slots:     resp.Slots,
		GroupID:   resp.GroupID,
	}
}
