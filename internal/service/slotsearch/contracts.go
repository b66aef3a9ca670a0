package slotsearch

import (
	"context"
	"time"

	"github.com/tomgachter/sg-montagerechner-sub000/internal/domain"
)

// RecordsRepository интерфейс репозитория записей расписания
type RecordsRepository interface {
	// GetByTeamAndDate возвращает записи команды на дату по всем заказам
	GetByTeamAndDate(ctx context.Context, teamKey string, date time.Time) ([]*domain.BookingRecord, error)
}

// Logger интерфейс для логирования
type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
