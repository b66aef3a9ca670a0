package handle_webhook

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomgachter/sg-montagerechner-sub000/internal/domain"
	"github.com/tomgachter/sg-montagerechner-sub000/internal/integrations/calendarapi"
	"github.com/tomgachter/sg-montagerechner-sub000/internal/integrations/orderservice"
	"github.com/tomgachter/sg-montagerechner-sub000/internal/service/routing"
	"github.com/tomgachter/sg-montagerechner-sub000/internal/service/slotsearch"
	"github.com/tomgachter/sg-montagerechner-sub000/internal/signature"
)

// Понедельник
var testNow = time.Date(2024, 6, 3, 8, 0, 0, 0, time.UTC)

type fixedTime struct {
	now time.Time
}

func (f *fixedTime) Now() time.Time { return f.now }

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}

// fakeOrders магазин заказов в памяти
type fakeOrders struct {
	orders   map[int64]*domain.Order
	statuses []string
	notes    []string
}

func (f *fakeOrders) GetOrder(_ context.Context, orderID int64) (*domain.Order, error) {
	order, ok := f.orders[orderID]
	if !ok {
		return nil, fmt.Errorf("%w: id=%d", orderservice.ErrOrderNotFound, orderID)
	}
	return order, nil
}

func (f *fakeOrders) UpdateStatus(_ context.Context, _ int64, status string) error {
	f.statuses = append(f.statuses, status)
	return nil
}

func (f *fakeOrders) AddNote(_ context.Context, _ int64, note string) error {
	f.notes = append(f.notes, note)
	return nil
}

// fakeCalendarAPI внешний календарный сервис в памяти
type fakeCalendarAPI struct {
	failCreate bool
	created    []*calendarapi.BookingRequest
	deleted    []string
	nextID     int
}

func (f *fakeCalendarAPI) CreateBooking(_ context.Context, booking *calendarapi.BookingRequest) (*calendarapi.BookingResponse, error) {
	if f.failCreate {
		return nil, calendarapi.ErrBookingRejected
	}
	f.nextID++
	f.created = append(f.created, booking)
	return &calendarapi.BookingResponse{
		ID:     fmt.Sprintf("rb-%d", f.nextID),
		Status: "confirmed",
		Raw:    `{"status":"confirmed"}`,
	}, nil
}

func (f *fakeCalendarAPI) DeleteSchedule(_ context.Context, scheduleID string) error {
	f.deleted = append(f.deleted, scheduleID)
	return nil
}

// fakeRecords хранилище записей расписания в памяти
// Служит и репозиторием оркестратора, и источником занятости для поиска слотов
type fakeRecords struct {
	recs   []*domain.BookingRecord
	nextID int64
}

func (f *fakeRecords) CreateGroup(_ context.Context, recs []*domain.BookingRecord) error {
	for _, rec := range recs {
		f.nextID++
		stored := *rec
		stored.ID = f.nextID
		f.recs = append(f.recs, &stored)
	}
	return nil
}

func (f *fakeRecords) GetByOrder(_ context.Context, orderID int64) ([]*domain.BookingRecord, error) {
	out := make([]*domain.BookingRecord, 0)
	for _, rec := range f.recs {
		if rec.OrderID == orderID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (f *fakeRecords) GetByTeamAndDate(_ context.Context, teamKey string, date time.Time) ([]*domain.BookingRecord, error) {
	out := make([]*domain.BookingRecord, 0)
	for _, rec := range f.recs {
		if rec.TeamKey == teamKey && rec.Date.Equal(date) {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (f *fakeRecords) DeleteByIDs(_ context.Context, ids []int64) error {
	keep := make([]*domain.BookingRecord, 0, len(f.recs))
	for _, rec := range f.recs {
		remove := false
		for _, id := range ids {
			if rec.ID == id {
				remove = true
				break
			}
		}
		if !remove {
			keep = append(keep, rec)
		}
	}
	f.recs = keep
	return nil
}

// fakeLedger журнал идемпотентности в памяти
type fakeLedger struct {
	seen map[string]bool
}

func (f *fakeLedger) key(orderID int64, hash string) string {
	return fmt.Sprintf("%d|%s", orderID, hash)
}

func (f *fakeLedger) WasProcessed(_ context.Context, orderID int64, hash string) (bool, error) {
	return f.seen[f.key(orderID, hash)], nil
}

func (f *fakeLedger) MarkProcessed(_ context.Context, orderID int64, hash string) error {
	f.seen[f.key(orderID, hash)] = true
	return nil
}

// fakeRouterLog журнал инкрементов в памяти
type fakeRouterLog struct {
	entries map[int64][]*domain.RouterLogEntry
}

func (f *fakeRouterLog) Applied(_ context.Context, orderID int64, logKey string) (bool, error) {
	for _, entry := range f.entries[orderID] {
		if entry.LogKey == logKey {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRouterLog) Record(_ context.Context, entry *domain.RouterLogEntry) error {
	f.entries[entry.OrderID] = append(f.entries[entry.OrderID], entry)
	return nil
}

func (f *fakeRouterLog) GetByOrder(_ context.Context, orderID int64) ([]*domain.RouterLogEntry, error) {
	return f.entries[orderID], nil
}

func (f *fakeRouterLog) DeleteByOrder(_ context.Context, orderID int64) error {
	delete(f.entries, orderID)
	return nil
}

// fakeCounters счетчики емкости в памяти
type fakeCounters struct {
	counts map[string]int
}

func (f *fakeCounters) key(calendarID string, date time.Time, service domain.ServiceKind) string {
	return fmt.Sprintf("%s|%s|%s", calendarID, date.Format(domain.DateFormat), service)
}

func (f *fakeCounters) Bump(_ context.Context, calendarID string, date time.Time, service domain.ServiceKind, delta int) error {
	key := f.key(calendarID, date, service)
	next := f.counts[key] + delta
	if next < 0 {
		next = 0
	}
	f.counts[key] = next
	return nil
}

// fakeRouter маршрутизатор с фиксированным выбором первой команды ростера
type fakeRouter struct {
	driveMinutes int
}

func (f *fakeRouter) DistanceMinutesForOrder(_ context.Context, _ *domain.Order) int {
	return f.driveMinutes
}

func (f *fakeRouter) Select(_ context.Context, region *domain.Region, service domain.ServiceKind, driveMinutes int) (*routing.Assignment, error) {
	roster := region.Teams(service)
	if len(roster) == 0 {
		return nil, routing.ErrEmptyRoster
	}
	return &routing.Assignment{
		Team:         roster[0],
		Region:       region.Key,
		Service:      service,
		Strategy:     routing.StrategyRoundRobin,
		DriveMinutes: driveMinutes,
	}, nil
}

// fakeTx выполняет функцию без настоящей транзакции
type fakeTx struct{}

func (fakeTx) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fixture struct {
	uc          *UseCase
	sig         *signature.Service
	orders      *fakeOrders
	calendarAPI *fakeCalendarAPI
	records     *fakeRecords
	ledger      *fakeLedger
	routerLog   *fakeRouterLog
	counters    *fakeCounters
	region      *domain.Region
	calendar    *domain.SlotCalendar
}

func newFixture(policy domain.DayPolicy) *fixture {
	region := &domain.Region{
		Key:       "zuerich_limmattal",
		DayPolicy: policy,
		AllowedDays: []time.Weekday{
			time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday,
		},
		MontageTeams: []domain.Team{
			{Key: "team_a", Label: "Team A", CalendarID: "cal-a"},
			{Key: "team_b", Label: "Team B", CalendarID: "cal-b"},
		},
		EtageTeams: []domain.Team{
			{Key: "team_a", Label: "Team A", CalendarID: "cal-a-etage"},
		},
	}

	calendar := domain.NewSlotCalendar("07:00", 120, 8, 60, 30)
	tp := &fixedTime{now: testNow}

	sig := signature.NewService("test-secret", time.Hour, false).WithTimeProvider(tp)
	orders := &fakeOrders{orders: map[int64]*domain.Order{}}
	calendarAPI := &fakeCalendarAPI{}
	records := &fakeRecords{}
	ledger := &fakeLedger{seen: map[string]bool{}}
	routerLog := &fakeRouterLog{entries: map[int64][]*domain.RouterLogEntry{}}
	counters := &fakeCounters{counts: map[string]int{}}
	search := slotsearch.NewSearch(calendar, records, nopLogger{})

	uc := NewUseCase(
		map[string]*domain.Region{region.Key: region},
		calendar,
		Config{
			Timezone:              time.UTC,
			MontageManualLimit:    4,
			RescheduleHorizonDays: 21,
		},
		sig,
		&fakeRouter{driveMinutes: 10},
		search,
		records,
		ledger,
		routerLog,
		counters,
		calendarAPI,
		orders,
		fakeTx{},
		nopLogger{},
	).WithTimeProvider(tp)

	return &fixture{
		uc:          uc,
		sig:         sig,
		orders:      orders,
		calendarAPI: calendarAPI,
		records:     records,
		ledger:      ledger,
		routerLog:   routerLog,
		counters:    counters,
		region:      region,
		calendar:    calendar,
	}
}

func (f *fixture) addOrder(order *domain.Order) {
	f.orders.orders[order.ID] = order
}

// signedRequest собирает запрос с валидной подписью по данным заказа
func (f *fixture) signedRequest(event domain.EventType, order *domain.Order, booking BookingPayload) *Request {
	params := signature.Params{Region: order.Region, SGM: order.MontageCount, SGE: order.EtageCount}
	return &Request{
		Event:     event,
		OrderID:   order.ID,
		Signature: f.sig.Sign(order.ID, params, testNow.Unix()),
		Params:    params,
		Booking:   booking,
	}
}

func testOrder() *domain.Order {
	return &domain.Order{
		ID:           7,
		Status:       "processing",
		Region:       "zuerich_limmattal",
		Postcode:     "8005",
		MontageCount: 1,
		CustomerName: "Hans Muster",
		Street:       "Musterstrasse 1",
		City:         "Zuerich",
		Items:        []string{"Waschmaschine"},
	}
}

func TestExecute_CreatedHappyPath(t *testing.T) {
	f := newFixture(domain.PolicyReschedule)
	order := testOrder()
	f.addOrder(order)

	req := f.signedRequest(domain.EventBookingCreated, order, BookingPayload{
		ID:    "sel-1",
		Start: "2024-06-03T09:00:00",
	})

	result, err := f.uc.Execute(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, StatusOK, result.Status)
	assert.True(t, result.Handled)
	assert.Equal(t, "team_a", result.Team)
	assert.Equal(t, "2024-06-03", result.Date)
	// Монтаж 1 единица = 60 минут, помещается в один слот 09:00
	assert.Equal(t, []int{1}, result.Slots)
	assert.Empty(t, result.RescheduledFrom)

	// Одна запись, один remote вызов, счетчик стал 1
	assert.Len(t, f.records.recs, 1)
	assert.Len(t, f.calendarAPI.created, 1)
	assert.Equal(t, 1, f.counters.counts["cal-a|2024-06-03|montage"])

	// Selector-бронирование отменено
	assert.Equal(t, []string{"sel-1"}, f.calendarAPI.deleted)

	// Статус заказа переведен
	assert.Equal(t, []string{"appointment-booked"}, f.orders.statuses)
	assert.Len(t, f.orders.notes, 1)
}

func TestExecute_IdempotentReplay(t *testing.T) {
	f := newFixture(domain.PolicyReschedule)
	order := testOrder()
	f.addOrder(order)

	req := f.signedRequest(domain.EventBookingCreated, order, BookingPayload{
		ID:    "sel-1",
		Start: "2024-06-03T09:00:00",
	})

	first, err := f.uc.Execute(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, StatusOK, first.Status)

	second, err := f.uc.Execute(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, StatusDuplicate, second.Status)
	assert.False(t, second.Handled)

	// Ровно один набор записей и один инкремент счетчика
	assert.Len(t, f.records.recs, 1)
	assert.Equal(t, 1, f.counters.counts["cal-a|2024-06-03|montage"])
}

func TestExecute_MontageThreshold(t *testing.T) {
	f := newFixture(domain.PolicyReschedule)
	order := testOrder()
	order.MontageCount = 4
	f.addOrder(order)

	req := f.signedRequest(domain.EventBookingCreated, order, BookingPayload{
		Start: "2024-06-03T09:00:00",
	})

	_, err := f.uc.Execute(context.Background(), req)
	assert.ErrorIs(t, err, ErrManualPlanningRequired)
	assert.Empty(t, f.records.recs)
}

func TestExecute_ReschedulePolicyMovesSaturday(t *testing.T) {
	f := newFixture(domain.PolicyReschedule)
	order := testOrder()
	f.addOrder(order)

	// Суббота 2024-06-08 запрещена, первый разрешенный день - понедельник
	req := f.signedRequest(domain.EventBookingCreated, order, BookingPayload{
		Start: "2024-06-08T09:00:00",
	})

	result, err := f.uc.Execute(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, "2024-06-10", result.Date)
	assert.Equal(t, "2024-06-08", result.RescheduledFrom)
}

func TestExecute_StrictPolicyRejectsSaturday(t *testing.T) {
	f := newFixture(domain.PolicyStrict)
	order := testOrder()
	f.addOrder(order)

	req := f.signedRequest(domain.EventBookingCreated, order, BookingPayload{
		Start: "2024-06-08T09:00:00",
	})

	_, err := f.uc.Execute(context.Background(), req)
	assert.ErrorIs(t, err, ErrDayNotBookable)
}

func TestExecute_WebSourceBypassesDayRestrictions(t *testing.T) {
	f := newFixture(domain.PolicyStrict)
	order := testOrder()
	f.addOrder(order)

	// Суббота, но источник web: веб-интерфейс уже отфильтровал дни
	req := f.signedRequest(domain.EventBookingCreated, order, BookingPayload{
		Start:  "2024-06-08T09:00:00",
		Source: domain.SourceWeb,
	})

	result, err := f.uc.Execute(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "2024-06-08", result.Date)
	assert.Empty(t, result.RescheduledFrom)
}

func TestExecute_CancellationReversal(t *testing.T) {
	f := newFixture(domain.PolicyReschedule)
	order := testOrder()
	f.addOrder(order)

	created := f.signedRequest(domain.EventBookingCreated, order, BookingPayload{
		ID:    "sel-1",
		Start: "2024-06-03T09:00:00",
	})
	_, err := f.uc.Execute(context.Background(), created)
	require.NoError(t, err)
	require.Equal(t, 1, f.counters.counts["cal-a|2024-06-03|montage"])

	cancelled := f.signedRequest(domain.EventBookingCancelled, order, BookingPayload{
		ID:     "sel-1",
		Start:  "2024-06-03T09:00:00",
		Status: "cancelled",
	})
	result, err := f.uc.Execute(context.Background(), cancelled)
	require.NoError(t, err)

	assert.Equal(t, StatusOK, result.Status)
	assert.Equal(t, 0, result.RemainingRecords)

	// Счетчик вернулся к нулю, журнал и записи очищены
	assert.Equal(t, 0, f.counters.counts["cal-a|2024-06-03|montage"])
	assert.Empty(t, f.routerLog.entries[order.ID])
	assert.Empty(t, f.records.recs)

	assert.Contains(t, f.orders.statuses, "appointment-cancelled")
}

func TestExecute_CancelBeforeCreateIsZeroCountSuccess(t *testing.T) {
	f := newFixture(domain.PolicyReschedule)
	order := testOrder()
	f.addOrder(order)

	req := f.signedRequest(domain.EventBookingCancelled, order, BookingPayload{
		Status: "cancelled",
	})

	result, err := f.uc.Execute(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, StatusOK, result.Status)
	assert.Equal(t, 0, result.RemainingRecords)
}

func TestExecute_RescheduledReplacesRecords(t *testing.T) {
	f := newFixture(domain.PolicyReschedule)
	order := testOrder()
	f.addOrder(order)

	created := f.signedRequest(domain.EventBookingCreated, order, BookingPayload{
		ID:    "sel-1",
		Start: "2024-06-03T09:00:00",
	})
	_, err := f.uc.Execute(context.Background(), created)
	require.NoError(t, err)

	rescheduled := f.signedRequest(domain.EventBookingRescheduled, order, BookingPayload{
		ID:     "sel-1",
		Start:  "2024-06-04T11:00:00",
		Status: "rescheduled",
	})
	result, err := f.uc.Execute(context.Background(), rescheduled)
	require.NoError(t, err)

	assert.Equal(t, "2024-06-04", result.Date)
	assert.Equal(t, []int{2}, result.Slots)

	// Старый набор записей заменен новым
	require.Len(t, f.records.recs, 1)
	assert.Equal(t, "2024-06-04", f.records.recs[0].Date.Format(domain.DateFormat))

	// Старый инкремент откатился, новый применился
	assert.Equal(t, 0, f.counters.counts["cal-a|2024-06-03|montage"])
	assert.Equal(t, 1, f.counters.counts["cal-a|2024-06-04|montage"])

	// Старое remote-событие отменено
	assert.Contains(t, f.calendarAPI.deleted, "rb-1")

	assert.Contains(t, f.orders.statuses, "appointment-booked")
}

func TestExecute_RemoteFailureLeavesNoState(t *testing.T) {
	f := newFixture(domain.PolicyReschedule)
	f.calendarAPI.failCreate = true
	order := testOrder()
	f.addOrder(order)

	req := f.signedRequest(domain.EventBookingCreated, order, BookingPayload{
		Start: "2024-06-03T09:00:00",
	})

	_, err := f.uc.Execute(context.Background(), req)
	assert.ErrorIs(t, err, ErrRemoteFailure)

	assert.Empty(t, f.records.recs)
	assert.Equal(t, 0, f.counters.counts["cal-a|2024-06-03|montage"])
	assert.Empty(t, f.orders.statuses)
}

func TestExecute_InvalidSignature(t *testing.T) {
	f := newFixture(domain.PolicyReschedule)
	order := testOrder()
	f.addOrder(order)

	req := f.signedRequest(domain.EventBookingCreated, order, BookingPayload{
		Start: "2024-06-03T09:00:00",
	})
	req.Signature = "1717401600.deadbeefdeadbeefdeadbeefdeadbeef"

	_, err := f.uc.Execute(context.Background(), req)
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestExecute_UnknownEventIgnored(t *testing.T) {
	f := newFixture(domain.PolicyReschedule)
	order := testOrder()
	f.addOrder(order)

	req := f.signedRequest(domain.EventType("booking_commented"), order, BookingPayload{})

	result, err := f.uc.Execute(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, StatusIgnored, result.Status)
	assert.False(t, result.Handled)
}

func TestExecute_UnknownRegion(t *testing.T) {
	f := newFixture(domain.PolicyReschedule)
	order := testOrder()
	order.Region = domain.RegionOnRequest
	f.addOrder(order)

	req := f.signedRequest(domain.EventBookingCreated, order, BookingPayload{
		Start: "2024-06-03T09:00:00",
	})

	_, err := f.uc.Execute(context.Background(), req)
	assert.ErrorIs(t, err, ErrUnknownRegion)
}

func TestExecute_NoServiceRequired(t *testing.T) {
	f := newFixture(domain.PolicyReschedule)
	order := testOrder()
	order.MontageCount = 0
	order.EtageCount = 0
	f.addOrder(order)

	req := f.signedRequest(domain.EventBookingCreated, order, BookingPayload{
		Start: "2024-06-03T09:00:00",
	})

	_, err := f.uc.Execute(context.Background(), req)
	assert.ErrorIs(t, err, ErrNoServiceRequired)
}

func TestExecute_MontageBlockedSlotFallsBackToNextTeam(t *testing.T) {
	f := newFixture(domain.PolicyReschedule)
	order := testOrder()
	f.addOrder(order)

	// Слот 1 команды team_a занят монтажом другого заказа
	f.records.recs = append(f.records.recs, &domain.BookingRecord{
		ID:        99,
		OrderID:   42,
		TeamKey:   "team_a",
		Date:      time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC),
		SlotIndex: 1,
		Service:   domain.ServiceMontage,
	})
	f.records.nextID = 99

	req := f.signedRequest(domain.EventBookingCreated, order, BookingPayload{
		Start: "2024-06-03T09:00:00",
	})

	result, err := f.uc.Execute(context.Background(), req)
	require.NoError(t, err)

	// Последовательность нашлась у следующей команды ростера
	assert.Equal(t, "team_b", result.Team)
	assert.Equal(t, []int{1}, result.Slots)
	assert.Equal(t, 1, f.counters.counts["cal-b|2024-06-03|montage"])
}
