package prefill

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tomgachter/sg-montagerechner-sub000/internal/domain"
	orderClient "github.com/tomgachter/sg-montagerechner-sub000/internal/integrations/orderservice"
	"github.com/tomgachter/sg-montagerechner-sub000/internal/signature"
)

// UseCase use case префилла формы бронирования
//
// Отдает данные заказа для предзаполнения UI: клиент, адрес, объем работ
// и параметры маршрутизации региона. Доступ охраняется той же подписью,
// что и webhook - ссылка на форму живет ограниченное время.
type UseCase struct {
	regions    map[string]*domain.Region
	calendar   *domain.SlotCalendar
	signatures SignatureService
	orders     OrderClient
	distance   DistanceEstimator
	logger     Logger
}

// NewUseCase создает новый экземпляр use case
func NewUseCase(
	regions map[string]*domain.Region,
	calendar *domain.SlotCalendar,
	signatures SignatureService,
	orders OrderClient,
	distance DistanceEstimator,
	logger Logger,
) *UseCase {
	return &UseCase{
		regions:    regions,
		calendar:   calendar,
		signatures: signatures,
		orders:     orders,
		distance:   distance,
		logger:     logger,
	}
}

// Execute выполняет use case префилла
func (uc *UseCase) Execute(ctx context.Context, req *Request) (*Response, error) {
	// 1. Валидация входных данных
	if req.OrderID <= 0 {
		return nil, fmt.Errorf("%w: orderID must be positive", ErrInvalidInput)
	}
	if req.Signature == "" {
		return nil, fmt.Errorf("%w: signature is required", ErrInvalidInput)
	}

	// 2. Получаем заказ - нужен и для нормализации параметров подписи
	order, err := uc.orders.GetOrder(ctx, req.OrderID)
	if err != nil {
		if errors.Is(err, orderClient.ErrOrderNotFound) {
			uc.logger.Warn("Prefill: order id=%d not found", req.OrderID)
			return nil, ErrOrderNotFound
		}
		uc.logger.Error("Prefill: failed to get order id=%d: %v", req.OrderID, err)
		return nil, fmt.Errorf("%w: failed to get order: %v", ErrInternal, err)
	}

	// 3. Проверяем подпись
	params := signature.NormalizeParams(order, req.Params)
	if !uc.signatures.Validate(req.OrderID, req.Signature, params) {
		uc.logger.Warn("Prefill: invalid signature for order id=%d", req.OrderID)
		return nil, ErrInvalidSignature
	}

	resp := &Response{
		OrderID:         order.ID,
		CustomerName:    order.CustomerName,
		CustomerEmail:   order.CustomerEmail,
		CustomerPhone:   order.CustomerPhone,
		Street:          order.Street,
		Postcode:        order.Postcode,
		City:            order.City,
		Items:           order.Items,
		Montage:         order.MontageCount,
		Etage:           order.EtageCount,
		Service:         string(order.PrimaryService()),
		RequiredMinutes: uc.calendar.MinutesRequired(order.MontageCount, order.EtageCount),
		RequiredSlots:   uc.calendar.SlotsRequired(order.MontageCount, order.EtageCount),
		Region:          order.Region,
		DriveMinutes:    uc.distance.DistanceMinutesForOrder(ctx, order),
	}

	// 4. Параметры региона, если он настроен
	if region, ok := uc.regions[order.Region]; ok {
		resp.RegionLabel = region.Label
		resp.DayPolicy = string(region.DayPolicy)
		resp.AllowedDays = isoDays(region.AllowedDays)
	}

	uc.logger.Info("Prefill: order id=%d region=%s m=%d e=%d", order.ID, order.Region, order.MontageCount, order.EtageCount)

	return resp, nil
}

// isoDays конвертирует дни недели в ISO номера (1=Пн ... 7=Вс)
func isoDays(days []time.Weekday) []int {
	if len(days) == 0 {
		return nil
	}
	iso := make([]int, len(days))
	for i, day := range days {
		if day == time.Sunday {
			iso[i] = 7
		} else {
			iso[i] = int(day)
		}
	}
	return iso
}
