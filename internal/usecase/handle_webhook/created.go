package handle_webhook

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tomgachter/sg-montagerechner-sub000/internal/domain"
	"github.com/tomgachter/sg-montagerechner-sub000/internal/infra/storage/routerlog"
	"github.com/tomgachter/sg-montagerechner-sub000/internal/integrations/calendarapi"
	"github.com/tomgachter/sg-montagerechner-sub000/internal/service/routing"
	"github.com/tomgachter/sg-montagerechner-sub000/pkg/ptr"
)

// placement разрешенное размещение бронирования
type placement struct {
	team     domain.Team
	date     time.Time
	sequence []int
	strategy routing.Strategy
}

// handleCreated обрабатывает событие booking_created
// При isReschedule=true пропускается отмена selector-бронирования
// и статус переводится в rescheduled
func (uc *UseCase) handleCreated(ctx context.Context, order *domain.Order, req *Request, isReschedule bool) (*Result, error) {
	// 1. По заказу должны быть работы на выезде
	if !order.RequiresService() {
		uc.logger.Warn("HandleCreated: order id=%d requires no service", order.ID)
		return nil, ErrNoServiceRequired
	}

	// 2. Регион должен быть маршрутизируемым
	region, err := uc.regionFor(order)
	if err != nil {
		uc.logger.Warn("HandleCreated: order id=%d: %v", order.ID, err)
		return nil, err
	}

	// 3. Большой монтаж планируется только вручную - бизнес-порог
	if order.MontageCount >= uc.cfg.MontageManualLimit {
		uc.logger.Warn("HandleCreated: order id=%d montage=%d exceeds manual threshold %d",
			order.ID, order.MontageCount, uc.cfg.MontageManualLimit)
		return nil, fmt.Errorf("%w: montage=%d", ErrManualPlanningRequired, order.MontageCount)
	}

	// 4. Объем работ в минутах и слотах
	service := order.PrimaryService()
	requiredMinutes := uc.calendar.MinutesRequired(order.MontageCount, order.EtageCount)
	requiredSlots := uc.calendar.SlotsRequired(order.MontageCount, order.EtageCount)

	// 5. Запрошенные дата и стартовый слот из payload
	requestedDate, startSlot, err := uc.resolveRequestedStart(req.Booking)
	if err != nil {
		uc.logger.Warn("HandleCreated: order id=%d: %v", order.ID, err)
		return nil, err
	}

	// 6. Проверка дня недели региона
	// Источник "web" - клиент бронировал сам, веб-интерфейс уже
	// отфильтровал разрешенные дни
	rescheduledFrom := ""
	dayAllowed := region.IsDayAllowed(requestedDate) || req.Booking.Source == domain.SourceWeb
	if !dayAllowed {
		if region.DayPolicy == domain.PolicyStrict {
			uc.logger.Warn("HandleCreated: order id=%d date=%s not bookable in region=%s (strict)",
				order.ID, requestedDate.Format(domain.DateFormat), region.Key)
			return nil, fmt.Errorf("%w: %s", ErrDayNotBookable, requestedDate.Format(domain.DateFormat))
		}
		rescheduledFrom = requestedDate.Format(domain.DateFormat)
	}

	// 7. Выбор команды маршрутизатором
	driveMinutes := uc.router.DistanceMinutesForOrder(ctx, order)
	assignment, err := uc.router.Select(ctx, region, service, driveMinutes)
	if err != nil {
		if errors.Is(err, routing.ErrNoTeamAvailable) || errors.Is(err, routing.ErrEmptyRoster) {
			uc.logger.Warn("HandleCreated: order id=%d: no team available in region=%s", order.ID, region.Key)
			return nil, fmt.Errorf("%w: %v", ErrNoAvailability, err)
		}
		uc.logger.Error("HandleCreated: order id=%d: routing failed: %v", order.ID, err)
		return nil, fmt.Errorf("%w: routing: %v", ErrInternal, err)
	}

	// 8. Поиск размещения: запрошенный день либо первый разрешенный
	// день вперед в горизонте переноса
	place, err := uc.resolvePlacement(ctx, region, assignment, req.Booking,
		requestedDate, startSlot, requiredMinutes, requiredSlots, service, dayAllowed)
	if err != nil {
		return nil, err
	}
	if rescheduledFrom != "" {
		uc.logger.Info("HandleCreated: order id=%d rescheduled_from=%s to=%s",
			order.ID, rescheduledFrom, place.date.Format(domain.DateFormat))
	}

	// 9. Создаем события во внешнем календаре - по одному на слот
	// Любая ошибка прерывает обработку: частичный успех не персистится
	groupID := uuid.NewString()
	recs, err := uc.bookRemoteSequence(ctx, order, req.Booking, place, groupID, isReschedule)
	if err != nil {
		return nil, err
	}

	// 10. Персистим записи и инкременты счетчиков в одной транзакции
	// Журнал маршрутизатора защищает от двойного инкремента при повторе
	err = uc.txManager.Do(ctx, func(txCtx context.Context) error {
		if err := uc.records.CreateGroup(txCtx, recs); err != nil {
			return fmt.Errorf("%w: persist booking records: %v", ErrInternal, err)
		}
		return uc.applyCounterIncrements(txCtx, order.ID, place.team.CalendarID, place.date, service)
	})
	if err != nil {
		uc.logger.Error("HandleCreated: order id=%d: persistence failed: %v", order.ID, err)
		return nil, err
	}

	// 11. Заметка в таймлайн и перевод статуса заказа - best effort,
	// бронирование уже состоялось
	uc.noteAndTransition(ctx, order, place, rescheduledFrom, isReschedule)

	// 12. Отмена selector-бронирования, если оно было
	if !isReschedule && !uc.cfg.KeepSelectorBooking && req.Booking.ID != "" {
		if err := uc.calendarAPI.DeleteSchedule(ctx, req.Booking.ID); err != nil && !errors.Is(err, calendarapi.ErrScheduleNotFound) {
			uc.logger.Warn("HandleCreated: order id=%d: cancel selector booking %s: %v",
				order.ID, req.Booking.ID, err)
		}
	}

	uc.logger.Info("HandleCreated: order id=%d booked team=%s date=%s slots=%v",
		order.ID, place.team.Key, place.date.Format(domain.DateFormat), place.sequence)

	return &Result{
		Status:          StatusOK,
		Handled:         true,
		Event:           req.Event,
		OrderID:         order.ID,
		Team:            place.team.Key,
		Date:            place.date.Format(domain.DateFormat),
		Slots:           place.sequence,
		Strategy:        string(place.strategy),
		RescheduledFrom: rescheduledFrom,
	}, nil
}

// resolvePlacement ищет команду, дату и последовательность слотов
//
// Разрешенный день: пробуем только его. Запрещенный день под политикой
// переноса: сканируем вперед до первого разрешенного дня с местом
// в горизонте RescheduleHorizonDays.
func (uc *UseCase) resolvePlacement(
	ctx context.Context,
	region *domain.Region,
	assignment *routing.Assignment,
	payload BookingPayload,
	requestedDate time.Time,
	startSlot int,
	requiredMinutes int,
	requiredSlots int,
	service domain.ServiceKind,
	dayAllowed bool,
) (*placement, error) {
	if dayAllowed {
		place, found, err := uc.tryDate(ctx, region, assignment, payload,
			requestedDate, startSlot, requiredMinutes, requiredSlots, service)
		if err != nil {
			return nil, err
		}
		if !found {
			return nil, fmt.Errorf("%w: no sequence on %s", ErrNoAvailability, requestedDate.Format(domain.DateFormat))
		}
		return place, nil
	}

	for offset := 1; offset <= uc.cfg.RescheduleHorizonDays; offset++ {
		candidate := requestedDate.AddDate(0, 0, offset)
		if !region.IsDayAllowed(candidate) {
			continue
		}
		place, found, err := uc.tryDate(ctx, region, assignment, payload,
			candidate, startSlot, requiredMinutes, requiredSlots, service)
		if err != nil {
			return nil, err
		}
		if found {
			return place, nil
		}
	}

	return nil, fmt.Errorf("%w: no allowed day with capacity within %d days",
		ErrNoAvailability, uc.cfg.RescheduleHorizonDays)
}

// tryDate пробует разместить бронирование на конкретную дату
//
// Порядок попыток: команда маршрутизатора, затем остальной ростер
// в priority-порядке; при неудаче - требование, выведенное из
// slot_minutes внешнего сервиса; в самом конце - одиночный слот
func (uc *UseCase) tryDate(
	ctx context.Context,
	region *domain.Region,
	assignment *routing.Assignment,
	payload BookingPayload,
	date time.Time,
	startSlot int,
	requiredMinutes int,
	requiredSlots int,
	service domain.ServiceKind,
) (*placement, bool, error) {
	teamOrder := teamOrderPreferring(region.PriorityOrder(service), assignment.Team)

	team, sequence, ok, err := uc.search.FindBestSequenceToday(ctx, teamOrder, date, startSlot,
		requiredMinutes, requiredSlots, service)
	if err != nil {
		return nil, false, fmt.Errorf("%w: slot search: %v", ErrInternal, err)
	}

	// Требование по данным внешнего календаря, если свое не разместилось
	if !ok && payload.SlotMinutes > 0 && payload.SlotMinutes != requiredMinutes {
		remoteSlots := (payload.SlotMinutes + uc.calendar.SlotDurationMinutes() - 1) / uc.calendar.SlotDurationMinutes()
		if remoteSlots < 1 {
			remoteSlots = 1
		}
		team, sequence, ok, err = uc.search.FindBestSequenceToday(ctx, teamOrder, date, startSlot,
			payload.SlotMinutes, remoteSlots, service)
		if err != nil {
			return nil, false, fmt.Errorf("%w: slot search: %v", ErrInternal, err)
		}
	}

	// Одиночный слот как общий fallback
	if !ok {
		team, sequence, ok, err = uc.search.FindBestSequenceToday(ctx, teamOrder, date, startSlot,
			uc.calendar.SlotDurationMinutes(), 1, service)
		if err != nil {
			return nil, false, fmt.Errorf("%w: slot search: %v", ErrInternal, err)
		}
	}

	if !ok {
		return nil, false, nil
	}

	return &placement{
		team:     team,
		date:     date,
		sequence: sequence,
		strategy: assignment.Strategy,
	}, true, nil
}

// teamOrderPreferring ставит предпочтенную команду первой, сохраняя
// остальной порядок
func teamOrderPreferring(teams []domain.Team, preferred domain.Team) []domain.Team {
	ordered := make([]domain.Team, 0, len(teams))
	ordered = append(ordered, preferred)
	for _, team := range teams {
		if team.Key != preferred.Key {
			ordered = append(ordered, team)
		}
	}
	return ordered
}

// bookRemoteSequence создает события во внешнем календаре по одному на слот
// и собирает записи расписания. Ошибка любого вызова прерывает обработку.
func (uc *UseCase) bookRemoteSequence(
	ctx context.Context,
	order *domain.Order,
	payload BookingPayload,
	place *placement,
	groupID string,
	isReschedule bool,
) ([]*domain.BookingRecord, error) {
	service := order.PrimaryService()
	mode := ModeAuto
	if isReschedule {
		mode = ModeReschedule
	}

	recs := make([]*domain.BookingRecord, 0, len(place.sequence))

	for i, slotIndex := range place.sequence {
		slot, ok := uc.calendar.SlotByIndex(slotIndex)
		if !ok {
			return nil, fmt.Errorf("%w: slot index %d out of grid", ErrInternal, slotIndex)
		}

		startAt, err := slot.Start.At(place.date, uc.cfg.Timezone)
		if err != nil {
			return nil, fmt.Errorf("%w: slot start: %v", ErrInternal, err)
		}
		endAt, err := slot.End.At(place.date, uc.cfg.Timezone)
		if err != nil {
			return nil, fmt.Errorf("%w: slot end: %v", ErrInternal, err)
		}

		bookingReq := &calendarapi.BookingRequest{
			TeamKey:         place.team.Key,
			StartAt:         startAt.Format(time.RFC3339),
			EndAt:           endAt.Format(time.RFC3339),
			Timezone:        uc.cfg.Timezone.String(),
			DurationMinutes: uc.calendar.SlotDurationMinutes(),
			Title:           bookingTitle(order, service),
			Description:     strings.Join(order.Items, ", "),
			Meta: map[string]string{
				"order_id":   fmt.Sprintf("%d", order.ID),
				"group_id":   groupID,
				"slot_index": fmt.Sprintf("%d", slotIndex),
			},
			Customer: calendarapi.Customer{
				Name:  order.CustomerName,
				Email: order.CustomerEmail,
				Phone: order.CustomerPhone,
			},
			Address: calendarapi.Address{
				Street:   order.Street,
				Postcode: order.Postcode,
				City:     order.City,
			},
			Items:      order.Items,
			CalendarID: place.team.CalendarID,
		}
		// ID selector-бронирования передается с первым слотом,
		// чтобы календарный сервис связал события
		if i == 0 && payload.ID != "" {
			bookingReq.EventID = payload.ID
		}

		resp, err := uc.calendarAPI.CreateBooking(ctx, bookingReq)
		if err != nil {
			uc.logger.Error("HandleCreated: order id=%d: remote booking for slot %d failed: %v",
				order.ID, slotIndex, err)
			return nil, fmt.Errorf("%w: slot %d: %v", ErrRemoteFailure, slotIndex, err)
		}

		rec := &domain.BookingRecord{
			OrderID:         order.ID,
			GroupID:         groupID,
			TeamKey:         place.team.Key,
			Date:            place.date,
			SlotIndex:       slotIndex,
			SlotStart:       slot.Start,
			SlotEnd:         slot.End,
			Service:         service,
			Mode:            mode,
			CalendarID:      place.team.CalendarID,
			RemoteBookingID: ptr.Ptr(resp.ID),
			RemoteResponse:  ptr.Ptr(resp.Raw),
		}
		if payload.ID != "" {
			rec.SelectorBookingID = ptr.Ptr(payload.ID)
		}
		recs = append(recs, rec)
	}

	return recs, nil
}

// applyCounterIncrements инкрементирует счетчик емкости один раз на
// (календарь, дата, услуга), фиксируя примененный инкремент в журнале
func (uc *UseCase) applyCounterIncrements(ctx context.Context, orderID int64, calendarID string, date time.Time, service domain.ServiceKind) error {
	logKey := routerlog.LogKey(calendarID, date, service)

	applied, err := uc.routerLog.Applied(ctx, orderID, logKey)
	if err != nil {
		return fmt.Errorf("%w: router log check: %v", ErrInternal, err)
	}
	if applied {
		return nil
	}

	if err := uc.counters.Bump(ctx, calendarID, date, service, 1); err != nil {
		return fmt.Errorf("%w: bump counter: %v", ErrInternal, err)
	}

	entry := &domain.RouterLogEntry{
		OrderID:    orderID,
		LogKey:     logKey,
		CalendarID: calendarID,
		Date:       date,
		Service:    service,
	}
	if err := uc.routerLog.Record(ctx, entry); err != nil {
		return fmt.Errorf("%w: record router log: %v", ErrInternal, err)
	}

	return nil
}

// noteAndTransition пишет заметку в таймлайн и переводит статус заказа
// Оба вызова best effort: бронирование уже состоялось
func (uc *UseCase) noteAndTransition(ctx context.Context, order *domain.Order, place *placement, rescheduledFrom string, isReschedule bool) {
	note := fmt.Sprintf("Termin gebucht: Team %s am %s, Slots %s",
		place.team.Key, place.date.Format(domain.DateFormat), formatSlots(place.sequence))
	if rescheduledFrom != "" {
		note += fmt.Sprintf(" (verschoben von %s)", rescheduledFrom)
	}
	if err := uc.orders.AddNote(ctx, order.ID, note); err != nil {
		uc.logger.Warn("HandleCreated: order id=%d: add note: %v", order.ID, err)
	}

	state := domain.StateBooked
	if isReschedule {
		state = domain.StateRescheduled
	}
	if err := uc.orders.UpdateStatus(ctx, order.ID, state.OrderStatus()); err != nil {
		uc.logger.Warn("HandleCreated: order id=%d: update status: %v", order.ID, err)
	}
}

// bookingTitle заголовок события во внешнем календаре
func bookingTitle(order *domain.Order, service domain.ServiceKind) string {
	label := "Montage"
	if service == domain.ServiceEtage {
		label = "Etagenlieferung"
	}
	return fmt.Sprintf("%s - %s (Bestellung %d)", label, order.CustomerName, order.ID)
}

// formatSlots форматирует последовательность слотов для заметки
func formatSlots(sequence []int) string {
	parts := make([]string, len(sequence))
	for i, idx := range sequence {
		parts[i] = fmt.Sprintf("%d", idx)
	}
	return strings.Join(parts, ", ")
}
