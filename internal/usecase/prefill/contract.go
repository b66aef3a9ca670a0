package prefill

import (
	"context"

	"github.com/tomgachter/sg-montagerechner-sub000/internal/domain"
	"github.com/tomgachter/sg-montagerechner-sub000/internal/signature"
)

// OrderClient интерфейс клиента магазина заказов
type OrderClient interface {
	GetOrder(ctx context.Context, orderID int64) (*domain.Order, error)
}

// SignatureService интерфейс проверки подписи запроса
type SignatureService interface {
	Validate(orderID int64, sig string, params signature.Params) bool
}

// DistanceEstimator интерфейс оценки времени в пути для заказа
type DistanceEstimator interface {
	DistanceMinutesForOrder(ctx context.Context, order *domain.Order) int
}

// Logger интерфейс для логирования
type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
