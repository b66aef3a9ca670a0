package manual_booking

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
	"github.com/tomgachter/sg-montagerechner-sub000/internal/service/slotsearch"
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

type fakeCalendarAPI struct {
	created []*calendarapi.BookingRequest
	nextID  int
}

func (f *fakeCalendarAPI) CreateBooking(_ context.Context, booking *calendarapi.BookingRequest) (*calendarapi.BookingResponse, error) {
	f.nextID++
	f.created = append(f.created, booking)
	return &calendarapi.BookingResponse{ID: fmt.Sprintf("rb-%d", f.nextID), Status: "confirmed"}, nil
}

type fakeRecords struct {
	recs []*domain.BookingRecord
}

func (f *fakeRecords) CreateGroup(_ context.Context, recs []*domain.BookingRecord) error {
	f.recs = append(f.recs, recs...)
	return nil
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

type fakeRouterLog struct {
	entries []*domain.RouterLogEntry
}

func (f *fakeRouterLog) Applied(_ context.Context, orderID int64, logKey string) (bool, error) {
	for _, entry := range f.entries {
		if entry.OrderID == orderID && entry.LogKey == logKey {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRouterLog) Record(_ context.Context, entry *domain.RouterLogEntry) error {
	f.entries = append(f.entries, entry)
	return nil
}

type fakeCounters struct {
	counts map[string]int
}

func (f *fakeCounters) Bump(_ context.Context, calendarID string, date time.Time, service domain.ServiceKind, delta int) error {
	f.counts[fmt.Sprintf("%s|%s|%s", calendarID, date.Format(domain.DateFormat), service)] += delta
	return nil
}

type fakeTx struct{}

func (fakeTx) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fixture struct {
	uc          *UseCase
	orders      *fakeOrders
	calendarAPI *fakeCalendarAPI
	records     *fakeRecords
	counters    *fakeCounters
}

func newFixture() *fixture {
	region := &domain.Region{
		Key: "basel_stadt",
		MontageTeams: []domain.Team{
			{Key: "team_a", Label: "Team A", CalendarID: "cal-a"},
			{Key: "team_b", Label: "Team B", CalendarID: "cal-b"},
		},
	}

	calendar := domain.NewSlotCalendar("07:00", 120, 8, 60, 30)
	orders := &fakeOrders{orders: map[int64]*domain.Order{}}
	calendarAPI := &fakeCalendarAPI{}
	records := &fakeRecords{}
	counters := &fakeCounters{counts: map[string]int{}}
	search := slotsearch.NewSearch(calendar, records, nopLogger{})

	uc := NewUseCase(
		map[string]*domain.Region{region.Key: region},
		calendar,
		Config{Timezone: time.UTC, MontageManualLimit: 4},
		search,
		records,
		&fakeRouterLog{},
		counters,
		calendarAPI,
		orders,
		fakeTx{},
		nopLogger{},
	).WithTimeProvider(&fixedTime{now: testNow})

	return &fixture{uc: uc, orders: orders, calendarAPI: calendarAPI, records: records, counters: counters}
}

func testOrder() *domain.Order {
	return &domain.Order{
		ID:           7,
		Region:       "basel_stadt",
		Postcode:     "4051",
		MontageCount: 1,
		CustomerName: "Hans Muster",
		City:         "Basel",
	}
}

func baseRequest() *Request {
	return &Request{
		OrderID:   7,
		Date:      time.Date(2024, 6, 4, 0, 0, 0, 0, time.UTC),
		StartSlot: 0,
		Montage:   2,
	}
}

func TestExecute_BooksWithExplicitTeam(t *testing.T) {
	f := newFixture()
	f.orders.orders[7] = testOrder()

	req := baseRequest()
	req.Team = "team_b"

	resp, err := f.uc.Execute(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, "team_b", resp.Team)
	assert.Equal(t, "2024-06-04", resp.Date)
	// Монтаж 2 единицы = 120 минут = один слот
	assert.Equal(t, []int{0}, resp.Slots)
	assert.NotEmpty(t, resp.GroupID)

	assert.Len(t, f.records.recs, 1)
	assert.Equal(t, "manual", f.records.recs[0].Mode)
	assert.Equal(t, 1, f.counters.counts["cal-b|2024-06-04|montage"])
	assert.Equal(t, []string{"appointment-booked"}, f.orders.statuses)
}

func TestExecute_PicksFirstFreeTeamWithoutExplicitTeam(t *testing.T) {
	f := newFixture()
	f.orders.orders[7] = testOrder()

	// Слот 0 team_a занят монтажом
	f.records.recs = append(f.records.recs, &domain.BookingRecord{
		OrderID:   42,
		TeamKey:   "team_a",
		Date:      time.Date(2024, 6, 4, 0, 0, 0, 0, time.UTC),
		SlotIndex: 0,
		Service:   domain.ServiceMontage,
	})

	resp, err := f.uc.Execute(context.Background(), baseRequest())
	require.NoError(t, err)
	assert.Equal(t, "team_b", resp.Team)
	assert.Equal(t, []int{0}, resp.Slots)
}

func TestExecute_ErrorCodes(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(f *fixture, req *Request)
		wantErr error
	}{
		{
			name:    "invalid order id",
			setup:   func(f *fixture, req *Request) { req.OrderID = 0 },
			wantErr: ErrInvalidRequest,
		},
		{
			name:    "zero counts",
			setup:   func(f *fixture, req *Request) { req.Montage, req.Etage = 0, 0 },
			wantErr: ErrInvalidCounts,
		},
		{
			name:    "montage threshold",
			setup:   func(f *fixture, req *Request) { req.Montage = 4 },
			wantErr: ErrThreshold,
		},
		{
			name: "date in the past",
			setup: func(f *fixture, req *Request) {
				req.Date = time.Date(2024, 5, 30, 0, 0, 0, 0, time.UTC)
			},
			wantErr: ErrInvalidDate,
		},
		{
			name:    "order not found",
			setup:   func(f *fixture, req *Request) { delete(f.orders.orders, 7) },
			wantErr: ErrOrderNotFound,
		},
		{
			name:    "unknown region",
			setup:   func(f *fixture, req *Request) { req.Region = "mars" },
			wantErr: ErrUnknownRegion,
		},
		{
			name:    "team not in roster",
			setup:   func(f *fixture, req *Request) { req.Team = "team_z" },
			wantErr: ErrTeamInvalid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			f.orders.orders[7] = testOrder()
			req := baseRequest()
			tt.setup(f, req)

			_, err := f.uc.Execute(context.Background(), req)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, f.records.recs)
		})
	}
}

func TestExecute_NoSequenceToday(t *testing.T) {
	f := newFixture()
	f.orders.orders[7] = testOrder()

	// Слот 0 занят монтажом у обеих команд
	date := time.Date(2024, 6, 4, 0, 0, 0, 0, time.UTC)
	for _, team := range []string{"team_a", "team_b"} {
		f.records.recs = append(f.records.recs, &domain.BookingRecord{
			OrderID:   42,
			TeamKey:   team,
			Date:      date,
			SlotIndex: 0,
			Service:   domain.ServiceMontage,
		})
	}

	_, err := f.uc.Execute(context.Background(), baseRequest())
	assert.ErrorIs(t, err, ErrNoSequenceToday)
}
