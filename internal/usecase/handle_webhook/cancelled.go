package handle_webhook

import (
	"context"
	"errors"
	"fmt"

	"github.com/tomgachter/sg-montagerechner-sub000/internal/domain"
	"github.com/tomgachter/sg-montagerechner-sub000/internal/integrations/calendarapi"
)

// handleCancelled обрабатывает событие booking_cancelled
//
// Отмена best effort: каждая запись отменяется во внешнем календаре
// независимо, неудачные остаются в хранилище для повтора. Вклады в
// счетчики откатываются по журналу маршрутизатора ровно один раз.
// Отмена без записей (cancel пришел раньше create) - успех с нулевым
// количеством, без специальной реконсиляции.
func (uc *UseCase) handleCancelled(ctx context.Context, order *domain.Order, req *Request) (*Result, error) {
	recs, err := uc.records.GetByOrder(ctx, order.ID)
	if err != nil {
		uc.logger.Error("HandleCancelled: order id=%d: load records: %v", order.ID, err)
		return nil, fmt.Errorf("%w: load booking records: %v", ErrInternal, err)
	}

	remaining := 0
	if len(recs) > 0 {
		remaining, err = uc.cancelRecords(ctx, order.ID, recs)
		if err != nil {
			return nil, err
		}
	}

	if err := uc.orders.UpdateStatus(ctx, order.ID, domain.StateCancelled.OrderStatus()); err != nil {
		uc.logger.Warn("HandleCancelled: order id=%d: update status: %v", order.ID, err)
	}

	uc.logger.Info("HandleCancelled: order id=%d: cancelled %d records, %d remaining",
		order.ID, len(recs)-remaining, remaining)

	return &Result{
		Status:           StatusOK,
		Handled:          true,
		Event:            req.Event,
		OrderID:          order.ID,
		RemainingRecords: remaining,
	}, nil
}

// cancelRecords отменяет записи расписания заказа и откатывает счетчики
//
// Запись считается отмененной, если у нее не было remote ID либо внешний
// сервис подтвердил удаление (404 тоже успех - событие уже удалено).
// Неудачные записи остаются для повтора. Возвращает число оставшихся.
//
// Откат счетчиков идет по журналу маршрутизатора и выполняется один раз:
// журнал удаляется сразу, поэтому повторная отмена оставшихся записей
// не декрементирует счетчики второй раз.
func (uc *UseCase) cancelRecords(ctx context.Context, orderID int64, recs []*domain.BookingRecord) (int, error) {
	cancelledIDs := make([]int64, 0, len(recs))

	for _, rec := range recs {
		if !rec.HasRemoteBooking() {
			cancelledIDs = append(cancelledIDs, rec.ID)
			continue
		}

		err := uc.calendarAPI.DeleteSchedule(ctx, *rec.RemoteBookingID)
		if err != nil && !errors.Is(err, calendarapi.ErrScheduleNotFound) {
			// Не прерываем обработку остальных записей
			uc.logger.Warn("CancelRecords: order id=%d: cancel remote booking %s: %v",
				orderID, *rec.RemoteBookingID, err)
			continue
		}

		cancelledIDs = append(cancelledIDs, rec.ID)
	}

	err := uc.txManager.Do(ctx, func(txCtx context.Context) error {
		if err := uc.records.DeleteByIDs(txCtx, cancelledIDs); err != nil {
			return fmt.Errorf("%w: delete booking records: %v", ErrInternal, err)
		}
		return uc.reverseCounterIncrements(txCtx, orderID)
	})
	if err != nil {
		uc.logger.Error("CancelRecords: order id=%d: persistence failed: %v", orderID, err)
		return 0, err
	}

	return len(recs) - len(cancelledIDs), nil
}

// reverseCounterIncrements откатывает примененные инкременты счетчиков
// заказа и удаляет записи журнала
func (uc *UseCase) reverseCounterIncrements(ctx context.Context, orderID int64) error {
	entries, err := uc.routerLog.GetByOrder(ctx, orderID)
	if err != nil {
		return fmt.Errorf("%w: load router log: %v", ErrInternal, err)
	}

	for _, entry := range entries {
		if err := uc.counters.Bump(ctx, entry.CalendarID, entry.Date, entry.Service, -1); err != nil {
			return fmt.Errorf("%w: reverse counter %s: %v", ErrInternal, entry.LogKey, err)
		}
	}

	if len(entries) > 0 {
		if err := uc.routerLog.DeleteByOrder(ctx, orderID); err != nil {
			return fmt.Errorf("%w: clear router log: %v", ErrInternal, err)
		}
	}

	return nil
}
