package handle_webhook

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tomgachter/sg-montagerechner-sub000/internal/domain"
	orderClient "github.com/tomgachter/sg-montagerechner-sub000/internal/integrations/orderservice"
	"github.com/tomgachter/sg-montagerechner-sub000/internal/signature"
)

// Config параметры оркестратора бронирований
type Config struct {
	Timezone              *time.Location
	MontageManualLimit    int  // С этого объема монтажа - только ручное планирование
	RescheduleHorizonDays int  // Горизонт переноса на разрешенный день
	KeepSelectorBooking   bool // Не отменять selector-бронирование после подтверждения
}

// UseCase оркестратор жизненного цикла бронирования по webhook-событиям
//
// Машина состояний заказа: no_booking -> planned -> booked ->
// {rescheduled -> booked} | cancelled. Состояние хранится статусом заказа
// в магазине, перевод выполняется через OrderClient. Повторная доставка
// события обнаруживается по хэшу в журнале идемпотентности и завершается
// без побочных эффектов.
type UseCase struct {
	regions      map[string]*domain.Region
	calendar     *domain.SlotCalendar
	cfg          Config
	signatures   SignatureService
	router       Router
	search       SlotSearch
	records      RecordsRepository
	ledger       EventLedger
	routerLog    RouterLog
	counters     CountersRepository
	calendarAPI  CalendarClient
	orders       OrderClient
	txManager    TransactionManager
	timeProvider TimeProvider
	logger       Logger
}

// NewUseCase создает новый экземпляр use case
func NewUseCase(
	regions map[string]*domain.Region,
	calendar *domain.SlotCalendar,
	cfg Config,
	signatures SignatureService,
	router Router,
	search SlotSearch,
	records RecordsRepository,
	ledger EventLedger,
	routerLog RouterLog,
	counters CountersRepository,
	calendarAPI CalendarClient,
	orders OrderClient,
	txManager TransactionManager,
	logger Logger,
) *UseCase {
	return &UseCase{
		regions:      regions,
		calendar:     calendar,
		cfg:          cfg,
		signatures:   signatures,
		router:       router,
		search:       search,
		records:      records,
		ledger:       ledger,
		routerLog:    routerLog,
		counters:     counters,
		calendarAPI:  calendarAPI,
		orders:       orders,
		txManager:    txManager,
		timeProvider: &RealTimeProvider{},
		logger:       logger,
	}
}

// WithTimeProvider подменяет провайдер времени (для тестов)
func (uc *UseCase) WithTimeProvider(tp TimeProvider) *UseCase {
	uc.timeProvider = tp
	return uc
}

// Execute обрабатывает webhook-событие жизненного цикла бронирования
func (uc *UseCase) Execute(ctx context.Context, req *Request) (*Result, error) {
	uc.logger.Info("HandleWebhook: event=%s order=%d booking=%s", req.Event, req.OrderID, req.Booking.ID)

	// 1. Валидация входных данных
	if err := validateRequest(req); err != nil {
		uc.logger.Warn("HandleWebhook: validation failed: %v", err)
		return nil, err
	}

	// 2. Неизвестные события игнорируются, а не отклоняются:
	// контракт webhook толерантен к новым типам
	if !req.Event.Known() {
		uc.logger.Info("HandleWebhook: ignoring unknown event=%s order=%d", req.Event, req.OrderID)
		return &Result{Status: StatusIgnored, Handled: false, Event: req.Event, OrderID: req.OrderID}, nil
	}

	// 3. Получаем заказ - он нужен и для нормализации параметров подписи
	order, err := uc.orders.GetOrder(ctx, req.OrderID)
	if err != nil {
		if errors.Is(err, orderClient.ErrOrderNotFound) {
			uc.logger.Warn("HandleWebhook: order id=%d not found", req.OrderID)
			return nil, ErrOrderNotFound
		}
		uc.logger.Error("HandleWebhook: failed to get order id=%d: %v", req.OrderID, err)
		return nil, fmt.Errorf("%w: failed to get order: %v", ErrInternal, err)
	}

	// 4. Проверяем подпись до любых мутаций состояния
	params := signature.NormalizeParams(order, req.Params)
	if !uc.signatures.Validate(req.OrderID, req.Signature, params) {
		uc.logger.Warn("HandleWebhook: invalid signature for order id=%d", req.OrderID)
		return nil, ErrInvalidSignature
	}

	// 5. Идемпотентность: повтор того же события завершается без эффектов
	hash := eventHash(req.Event, req.Booking)
	processed, err := uc.ledger.WasProcessed(ctx, req.OrderID, hash)
	if err != nil {
		uc.logger.Error("HandleWebhook: ledger check failed for order id=%d: %v", req.OrderID, err)
		return nil, fmt.Errorf("%w: ledger check: %v", ErrInternal, err)
	}
	if processed {
		uc.logger.Info("HandleWebhook: duplicate event=%s order=%d hash=%s", req.Event, req.OrderID, hash)
		return &Result{Status: StatusDuplicate, Handled: false, Event: req.Event, OrderID: req.OrderID}, nil
	}

	// 6. Диспетчеризация по типу события
	var result *Result
	switch req.Event {
	case domain.EventBookingCreated:
		result, err = uc.handleCreated(ctx, order, req, false)
	case domain.EventBookingRescheduled:
		result, err = uc.handleRescheduled(ctx, order, req)
	case domain.EventBookingCancelled:
		result, err = uc.handleCancelled(ctx, order, req)
	}
	if err != nil {
		return nil, err
	}

	// 7. Фиксируем хэш после успешной обработки
	if err := uc.ledger.MarkProcessed(ctx, req.OrderID, hash); err != nil {
		// Обработка уже завершилась - не валим ответ, повтор поймают
		// проверки RouterLog
		uc.logger.Warn("HandleWebhook: failed to mark event processed for order id=%d: %v", req.OrderID, err)
	}

	return result, nil
}

// validateRequest валидирует входные данные запроса
func validateRequest(req *Request) error {
	if req.OrderID <= 0 {
		return fmt.Errorf("%w: orderID must be positive", ErrInvalidInput)
	}
	if req.Event == "" {
		return fmt.Errorf("%w: event is required", ErrInvalidInput)
	}
	if req.Signature == "" {
		return fmt.Errorf("%w: signature is required", ErrInvalidInput)
	}
	return nil
}

// regionFor возвращает конфигурацию региона заказа
func (uc *UseCase) regionFor(order *domain.Order) (*domain.Region, error) {
	if !order.HasRoutableRegion() {
		return nil, fmt.Errorf("%w: region %q", ErrUnknownRegion, order.Region)
	}
	region, ok := uc.regions[order.Region]
	if !ok {
		return nil, fmt.Errorf("%w: region %q is not configured", ErrUnknownRegion, order.Region)
	}
	return region, nil
}
