package routing

import (
	"context"
	"time"

	"github.com/tomgachter/sg-montagerechner-sub000/internal/domain"
)

// CountersRepository интерфейс репозитория счетчиков емкости
type CountersRepository interface {
	HasCapacity(ctx context.Context, calendarID string, date time.Time, service domain.ServiceKind) (bool, error)
}

// RoundRobinRepository интерфейс репозитория round-robin курсоров
type RoundRobinRepository interface {
	GetNextIndex(ctx context.Context, region string, service domain.ServiceKind, calendarIDs []string) (int, error)
	Advance(ctx context.Context, region string, service domain.ServiceKind, calendarIDs []string, usedIndex int) error
}

// DistanceClient интерфейс провайдера времени в пути
type DistanceClient interface {
	DriveMinutes(ctx context.Context, postcode string) (int, error)
}

// TimeProvider интерфейс для получения текущего времени (для тестирования)
type TimeProvider interface {
	Now() time.Time
}

// Logger интерфейс для логирования
type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}

// RealTimeProvider реальный провайдер времени для production
type RealTimeProvider struct{}

// Now возвращает текущее время
func (p *RealTimeProvider) Now() time.Time {
	return time.Now()
}
