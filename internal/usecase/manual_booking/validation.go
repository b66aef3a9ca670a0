package manual_booking

import (
	"fmt"
	"time"
)

// validateRequest валидирует входные данные запроса
func validateRequest(req *Request, now time.Time, montageManualLimit int) error {
	if req.OrderID <= 0 {
		return fmt.Errorf("%w: orderID must be positive", ErrInvalidRequest)
	}
	if req.StartSlot < 0 {
		return fmt.Errorf("%w: startSlot must not be negative", ErrInvalidRequest)
	}

	if req.Montage < 0 || req.Etage < 0 {
		return fmt.Errorf("%w: counts must not be negative", ErrInvalidCounts)
	}
	if req.Montage == 0 && req.Etage == 0 {
		return fmt.Errorf("%w: at least one of montage/etage is required", ErrInvalidCounts)
	}

	if req.Montage >= montageManualLimit {
		return fmt.Errorf("%w: montage=%d", ErrThreshold, req.Montage)
	}

	if req.Date.IsZero() {
		return fmt.Errorf("%w: date is required", ErrInvalidDate)
	}
	if isDateInPast(req.Date, now) {
		return fmt.Errorf("%w: date is in the past", ErrInvalidDate)
	}

	return nil
}

// isDateInPast проверяет, что дата раньше сегодняшнего дня
func isDateInPast(date, now time.Time) bool {
	dateOnly := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	nowOnly := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, date.Location())
	return dateOnly.Before(nowOnly)
}
