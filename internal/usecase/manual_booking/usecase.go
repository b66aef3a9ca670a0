package manual_booking

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
	orderClient "github.com/tomgachter/sg-montagerechner-sub000/internal/integrations/orderservice"
	"github.com/tomgachter/sg-montagerechner-sub000/pkg/ptr"
)

// Config параметры ручного бронирования
type Config struct {
	Timezone           *time.Location
	MontageManualLimit int
}

// UseCase use case ручного композитного бронирования из интерфейса оператора
//
// В отличие от webhook-оркестратора дата и объемы работ приходят от
// оператора напрямую: подписи и идемпотентность здесь не нужны
// (действие аутентифицировано на уровне API), ограничения дней недели
// не применяются - оператор решает сам. Бизнес-порог монтажа действует
// и здесь: большие монтажи композитное бронирование не автоматизирует.
type UseCase struct {
	regions      map[string]*domain.Region
	calendar     *domain.SlotCalendar
	cfg          Config
	search       SlotSearch
	records      RecordsRepository
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
	search SlotSearch,
	records RecordsRepository,
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
		search:       search,
		records:      records,
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

// Execute выполняет ручное композитное бронирование
func (uc *UseCase) Execute(ctx context.Context, req *Request) (*Response, error) {
	uc.logger.Info("ManualBooking: order=%d region=%s team=%s date=%s slot=%d m=%d e=%d",
		req.OrderID, req.Region, req.Team, req.Date.Format(domain.DateFormat), req.StartSlot, req.Montage, req.Etage)

	// 1. Валидация входных данных
	if err := validateRequest(req, uc.timeProvider.Now(), uc.cfg.MontageManualLimit); err != nil {
		uc.logger.Warn("ManualBooking: validation failed: %v", err)
		return nil, err
	}

	// 2. Получаем заказ
	order, err := uc.orders.GetOrder(ctx, req.OrderID)
	if err != nil {
		if errors.Is(err, orderClient.ErrOrderNotFound) {
			uc.logger.Warn("ManualBooking: order id=%d not found", req.OrderID)
			return nil, ErrOrderNotFound
		}
		uc.logger.Error("ManualBooking: failed to get order id=%d: %v", req.OrderID, err)
		return nil, fmt.Errorf("%w: failed to get order: %v", ErrInternal, err)
	}

	// 3. Регион из запроса, иначе из заказа
	regionKey := req.Region
	if regionKey == "" {
		regionKey = order.Region
	}
	region, ok := uc.regions[regionKey]
	if !ok || regionKey == domain.RegionOnRequest {
		uc.logger.Warn("ManualBooking: order id=%d: unknown region %q", req.OrderID, regionKey)
		return nil, fmt.Errorf("%w: %q", ErrUnknownRegion, regionKey)
	}

	// 4. Объем работ из запроса оператора, не из заказа
	service := domain.ServiceEtage
	if req.Montage > 0 {
		service = domain.ServiceMontage
	}
	requiredMinutes := uc.calendar.MinutesRequired(req.Montage, req.Etage)
	requiredSlots := uc.calendar.SlotsRequired(req.Montage, req.Etage)

	// 5. Разрешаем команду и последовательность слотов
	team, sequence, err := uc.resolveSequence(ctx, region, req, service, requiredMinutes, requiredSlots)
	if err != nil {
		return nil, err
	}

	date := time.Date(req.Date.Year(), req.Date.Month(), req.Date.Day(), 0, 0, 0, 0, uc.cfg.Timezone)

	// 6. Создаем события во внешнем календаре - по одному на слот
	groupID := uuid.NewString()
	recs, err := uc.bookRemoteSequence(ctx, order, team, date, sequence, service, groupID)
	if err != nil {
		return nil, err
	}

	// 7. Персистим записи и инкремент счетчика в одной транзакции
	err = uc.txManager.Do(ctx, func(txCtx context.Context) error {
		if err := uc.records.CreateGroup(txCtx, recs); err != nil {
			return fmt.Errorf("%w: persist booking records: %v", ErrInternal, err)
		}
		return uc.applyCounterIncrement(txCtx, order.ID, team.CalendarID, date, service)
	})
	if err != nil {
		uc.logger.Error("ManualBooking: order id=%d: persistence failed: %v", order.ID, err)
		return nil, err
	}

	// 8. Заметка и статус - best effort
	note := fmt.Sprintf("Termin manuell gebucht: Team %s am %s, Slots %s",
		team.Key, date.Format(domain.DateFormat), joinSlots(sequence))
	if err := uc.orders.AddNote(ctx, order.ID, note); err != nil {
		uc.logger.Warn("ManualBooking: order id=%d: add note: %v", order.ID, err)
	}
	if err := uc.orders.UpdateStatus(ctx, order.ID, domain.StateBooked.OrderStatus()); err != nil {
		uc.logger.Warn("ManualBooking: order id=%d: update status: %v", order.ID, err)
	}

	uc.logger.Info("ManualBooking: order id=%d booked team=%s date=%s slots=%v",
		order.ID, team.Key, date.Format(domain.DateFormat), sequence)

	return &Response{
		Team:      team.Key,
		TeamLabel: team.Label,
		Date:      date.Format(domain.DateFormat),
		Slots:     sequence,
		GroupID:   groupID,
	}, nil
}

// resolveSequence разрешает команду и последовательность слотов
// Явно указанная команда проверяется одна; без команды перебирается
// ростер региона в priority-порядке
func (uc *UseCase) resolveSequence(
	ctx context.Context,
	region *domain.Region,
	req *Request,
	service domain.ServiceKind,
	requiredMinutes int,
	requiredSlots int,
) (domain.Team, []int, error) {
	if req.Team != "" {
		team, ok := region.TeamByKey(service, req.Team)
		if !ok {
			uc.logger.Warn("ManualBooking: order id=%d: team %q not in roster of %s", req.OrderID, req.Team, region.Key)
			return domain.Team{}, nil, fmt.Errorf("%w: %q", ErrTeamInvalid, req.Team)
		}

		sequence, err := uc.search.FindConsecutiveFreeSlots(ctx, team, req.Date, req.StartSlot,
			requiredMinutes, requiredSlots, service)
		if err != nil {
			return domain.Team{}, nil, fmt.Errorf("%w: slot search: %v", ErrInternal, err)
		}
		if len(sequence) == 0 {
			return domain.Team{}, nil, fmt.Errorf("%w: team %s on %s",
				ErrNoSequenceToday, team.Key, req.Date.Format(domain.DateFormat))
		}
		return team, sequence, nil
	}

	team, sequence, ok, err := uc.search.FindBestSequenceToday(ctx, region.PriorityOrder(service),
		req.Date, req.StartSlot, requiredMinutes, requiredSlots, service)
	if err != nil {
		return domain.Team{}, nil, fmt.Errorf("%w: slot search: %v", ErrInternal, err)
	}
	if !ok {
		return domain.Team{}, nil, fmt.Errorf("%w: region %s on %s",
			ErrNoSequenceToday, region.Key, req.Date.Format(domain.DateFormat))
	}
	return team, sequence, nil
}

// bookRemoteSequence создает события во внешнем календаре по одному на слот
func (uc *UseCase) bookRemoteSequence(
	ctx context.Context,
	order *domain.Order,
	team domain.Team,
	date time.Time,
	sequence []int,
	service domain.ServiceKind,
	groupID string,
) ([]*domain.BookingRecord, error) {
	recs := make([]*domain.BookingRecord, 0, len(sequence))

	for _, slotIndex := range sequence {
		slot, ok := uc.calendar.SlotByIndex(slotIndex)
		if !ok {
			return nil, fmt.Errorf("%w: slot index %d out of grid", ErrInternal, slotIndex)
		}

		startAt, err := slot.Start.At(date, uc.cfg.Timezone)
		if err != nil {
			return nil, fmt.Errorf("%w: slot start: %v", ErrInternal, err)
		}
		endAt, err := slot.End.At(date, uc.cfg.Timezone)
		if err != nil {
			return nil, fmt.Errorf("%w: slot end: %v", ErrInternal, err)
		}

		label := "Montage"
		if service == domain.ServiceEtage {
			label = "Etagenlieferung"
		}

		resp, err := uc.calendarAPI.CreateBooking(ctx, &calendarapi.BookingRequest{
			TeamKey:         team.Key,
			StartAt:         startAt.Format(time.RFC3339),
			EndAt:           endAt.Format(time.RFC3339),
			Timezone:        uc.cfg.Timezone.String(),
			DurationMinutes: uc.calendar.SlotDurationMinutes(),
			Title:           fmt.Sprintf("%s - %s (Bestellung %d)", label, order.CustomerName, order.ID),
			Description:     strings.Join(order.Items, ", "),
			Meta: map[string]string{
				"order_id":   fmt.Sprintf("%d", order.ID),
				"group_id":   groupID,
				"slot_index": fmt.Sprintf("%d", slotIndex),
				"mode":       "manual",
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
			CalendarID: team.CalendarID,
		})
		if err != nil {
			uc.logger.Error("ManualBooking: order id=%d: remote booking for slot %d failed: %v",
				order.ID, slotIndex, err)
			return nil, fmt.Errorf("%w: slot %d: %v", ErrRemoteFailure, slotIndex, err)
		}

		recs = append(recs, &domain.BookingRecord{
			OrderID:         order.ID,
			GroupID:         groupID,
			TeamKey:         team.Key,
			Date:            date,
			SlotIndex:       slotIndex,
			SlotStart:       slot.Start,
			SlotEnd:         slot.End,
			Service:         service,
			Mode:            "manual",
			CalendarID:      team.CalendarID,
			RemoteBookingID: ptr.Ptr(resp.ID),
			RemoteResponse:  ptr.Ptr(resp.Raw),
		})
	}

	return recs, nil
}

// applyCounterIncrement инкрементирует счетчик емкости один раз на
// (календарь, дата, услуга), фиксируя инкремент в журнале маршрутизатора
func (uc *UseCase) applyCounterIncrement(ctx context.Context, orderID int64, calendarID string, date time.Time, service domain.ServiceKind) error {
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

	return uc.routerLog.Record(ctx, &domain.RouterLogEntry{
		OrderID:    orderID,
		LogKey:     logKey,
		CalendarID: calendarID,
		Date:       date,
		Service:    service,
	})
}

func joinSlots(sequence []int) string {
	parts := make([]string, len(sequence))
	for i, idx := range sequence {
		parts[i] = fmt.Sprintf("%d", idx)
	}
	return strings.Join(parts, ", ")
}
