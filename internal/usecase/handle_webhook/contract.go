package handle_webhook

import (
	"context"
	"time"

	"github.com/tomgachter/sg-montagerechner-sub000/internal/domain"
	"github.com/tomgachter/sg-montagerechner-sub000/internal/integrations/calendarapi"
	"github.com/tomgachter/sg-montagerechner-sub000/internal/service/routing"
	"github.com/tomgachter/sg-montagerechner-sub000/internal/signature"
)

// OrderClient интерфейс клиента магазина заказов
type OrderClient interface {
	GetOrder(ctx context.Context, orderID int64) (*domain.Order, error)
	UpdateStatus(ctx context.Context, orderID int64, status string) error
	AddNote(ctx context.Context, orderID int64, note string) error
}

// CalendarClient интерфейс клиента внешнего календарного сервиса
type CalendarClient interface {
	CreateBooking(ctx context.Context, booking *calendarapi.BookingRequest) (*calendarapi.BookingResponse, error)
	DeleteSchedule(ctx context.Context, scheduleID string) error
}

// SignatureService интерфейс проверки подписи запроса
type SignatureService interface {
	Validate(orderID int64, sig string, params signature.Params) bool
}

// Router интерфейс гибридного маршрутизатора команд
type Router interface {
	DistanceMinutesForOrder(ctx context.Context, order *domain.Order) int
	Select(ctx context.Context, region *domain.Region, service domain.ServiceKind, driveMinutes int) (*routing.Assignment, error)
}

// SlotSearch интерфейс поиска последовательностей свободных слотов
type SlotSearch interface {
	FindConsecutiveFreeSlots(ctx context.Context, team domain.Team, date time.Time, startSlotIndex, requiredMinutes, requiredSlotCount int, service domain.ServiceKind) ([]int, error)
	FindBestSequenceToday(ctx context.Context, teamOrder []domain.Team, date time.Time, startSlotIndex, requiredMinutes, requiredSlotCount int, service domain.ServiceKind) (domain.Team, []int, bool, error)
}

// RecordsRepository интерфейс репозитория записей расписания
type RecordsRepository interface {
	CreateGroup(ctx context.Context, recs []*domain.BookingRecord) error
	GetByOrder(ctx context.Context, orderID int64) ([]*domain.BookingRecord, error)
	DeleteByIDs(ctx context.Context, ids []int64) error
}

// EventLedger интерфейс журнала идемпотентности webhook-событий
type EventLedger interface {
	WasProcessed(ctx context.Context, orderID int64, eventHash string) (bool, error)
	MarkProcessed(ctx context.Context, orderID int64, eventHash string) error
}

// RouterLog интерфейс журнала примененных инкрементов счетчиков
type RouterLog interface {
	Applied(ctx context.Context, orderID int64, logKey string) (bool, error)
	Record(ctx context.Context, entry *domain.RouterLogEntry) error
	GetByOrder(ctx context.Context, orderID int64) ([]*domain.RouterLogEntry, error)
	DeleteByOrder(ctx context.Context, orderID int64) error
}

// CountersRepository интерфейс репозитория счетчиков емкости
type CountersRepository interface {
	Bump(ctx context.Context, calendarID string, date time.Time, service domain.ServiceKind, delta int) error
}

// TransactionManager интерфейс для управления транзакциями
type TransactionManager interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
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
