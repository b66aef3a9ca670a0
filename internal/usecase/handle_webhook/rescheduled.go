package handle_webhook

import (
	"context"
	"fmt"
	"strings"

	"github.com/tomgachter/sg-montagerechner-sub000/internal/domain"
)

// handleRescheduled обрабатывает событие booking_rescheduled
//
// Снимок старого расписания фиксируется до отмены, затем старые записи
// отменяются с откатом их вкладов в счетчики, и логика создания
// выполняется заново. Заметка в таймлайне показывает старое и новое
// расписание рядом.
func (uc *UseCase) handleRescheduled(ctx context.Context, order *domain.Order, req *Request) (*Result, error) {
	previous, err := uc.records.GetByOrder(ctx, order.ID)
	if err != nil {
		uc.logger.Error("HandleRescheduled: order id=%d: load records: %v", order.ID, err)
		return nil, fmt.Errorf("%w: load booking records: %v", ErrInternal, err)
	}

	oldSummary := scheduleSummary(previous)

	// Отмена старых записей: remote best effort, счетчики откатываются
	// по журналу маршрутизатора
	if len(previous) > 0 {
		if _, err := uc.cancelRecords(ctx, order.ID, previous); err != nil {
			return nil, err
		}
	}

	result, err := uc.handleCreated(ctx, order, req, true)
	if err != nil {
		return nil, err
	}

	newSummary := fmt.Sprintf("Team %s am %s, Slots %s", result.Team, result.Date, formatSlots(result.Slots))
	note := fmt.Sprintf("Termin verschoben: %s -> %s", oldSummary, newSummary)
	if err := uc.orders.AddNote(ctx, order.ID, note); err != nil {
		uc.logger.Warn("HandleRescheduled: order id=%d: add note: %v", order.ID, err)
	}

	uc.logger.Info("HandleRescheduled: order id=%d: %s -> %s", order.ID, oldSummary, newSummary)

	return result, nil
}

// scheduleSummary краткое описание расписания для заметок таймлайна
func scheduleSummary(recs []*domain.BookingRecord) string {
	if len(recs) == 0 {
		return "kein Termin"
	}

	slots := make([]string, len(recs))
	for i, rec := range recs {
		slots[i] = fmt.Sprintf("%d", rec.SlotIndex)
	}

	first := recs[0]
	return fmt.Sprintf("Team %s am %s, Slots %s",
		first.TeamKey, first.Date.Format(domain.DateFormat), strings.Join(slots, ", "))
}
