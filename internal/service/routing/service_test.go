package routing

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomgachter/sg-montagerechner-sub000/internal/domain"
)

// fakeCounters счетчики в памяти: ключ calendarID|date|service
type fakeCounters struct {
	counts map[string]int
	limit  int
}

func (f *fakeCounters) key(calendarID string, date time.Time, service domain.ServiceKind) string {
	return calendarID + "|" + date.Format(domain.DateFormat) + "|" + string(service)
}

func (f *fakeCounters) HasCapacity(_ context.Context, calendarID string, date time.Time, service domain.ServiceKind) (bool, error) {
	return f.counts[f.key(calendarID, date, service)] < f.limit, nil
}

// fakeRoundRobin курсор в памяти с семантикой сброса при смене ростера
type fakeRoundRobin struct {
	lastIndex int
	order     []string
	advanced  []int
}

func newFakeRoundRobin() *fakeRoundRobin {
	return &fakeRoundRobin{lastIndex: -1}
}

func (f *fakeRoundRobin) GetNextIndex(_ context.Context, _ string, _ domain.ServiceKind, calendarIDs []string) (int, error) {
	if len(f.order) > 0 && !equalOrder(f.order, calendarIDs) {
		f.lastIndex = -1
	}
	return (f.lastIndex + 1) % len(calendarIDs), nil
}

func (f *fakeRoundRobin) Advance(_ context.Context, _ string, _ domain.ServiceKind, calendarIDs []string, usedIndex int) error {
	f.lastIndex = usedIndex
	f.order = append([]string(nil), calendarIDs...)
	f.advanced = append(f.advanced, usedIndex)
	return nil
}

func equalOrder(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

type fakeDistance struct {
	minutes map[string]int
}

func (f *fakeDistance) DriveMinutes(_ context.Context, postcode string) (int, error) {
	if minutes, ok := f.minutes[postcode]; ok {
		return minutes, nil
	}
	return 0, context.DeadlineExceeded
}

type fixedTime struct {
	now time.Time
}

func (f *fixedTime) Now() time.Time { return f.now }

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}

// Понедельник
var testNow = time.Date(2024, 6, 3, 8, 0, 0, 0, time.UTC)

func testRegion() *domain.Region {
	return &domain.Region{
		Key:       "zuerich_limmattal",
		DayPolicy: domain.PolicyReschedule,
		MontageTeams: []domain.Team{
			{Key: "team_a", CalendarID: "cal-a"},
			{Key: "team_b", CalendarID: "cal-b"},
			{Key: "team_c", CalendarID: "cal-c"},
		},
		Priority: []string{"team_b"},
	}
}

func newService(counters *fakeCounters, rr *fakeRoundRobin) *Service {
	return NewService(counters, rr, &fakeDistance{}, Config{
		RoundRobinThresholdMinutes: 20,
		CapacityHorizonDays:        14,
	}, nopLogger{}).WithTimeProvider(&fixedTime{now: testNow})
}

func TestSelect_RoundRobinFairness(t *testing.T) {
	counters := &fakeCounters{counts: map[string]int{}, limit: 5}
	rr := newFakeRoundRobin()
	svc := newService(counters, rr)
	region := testRegion()

	// N команд с неограниченной емкостью: N выборов обходят ростер по кругу
	var picked []string
	for i := 0; i < 3; i++ {
		assignment, err := svc.Select(context.Background(), region, domain.ServiceMontage, 10)
		require.NoError(t, err)
		picked = append(picked, assignment.Team.Key)
		assert.Equal(t, StrategyRoundRobin, assignment.Strategy)
	}

	assert.Equal(t, []string{"team_a", "team_b", "team_c"}, picked)

	// Четвертый выбор заворачивает на начало ростера
	assignment, err := svc.Select(context.Background(), region, domain.ServiceMontage, 10)
	require.NoError(t, err)
	assert.Equal(t, "team_a", assignment.Team.Key)
}

func TestSelect_RoundRobinSkipsFullTeam(t *testing.T) {
	counters := &fakeCounters{counts: map[string]int{}, limit: 5}
	rr := newFakeRoundRobin()
	svc := newService(counters, rr)
	region := testRegion()

	// team_a забита на весь горизонт
	for day := 0; day < 14; day++ {
		date := testNow.AddDate(0, 0, day)
		counters.counts[counters.key("cal-a", date, domain.ServiceMontage)] = 5
	}

	assignment, err := svc.Select(context.Background(), region, domain.ServiceMontage, 10)
	require.NoError(t, err)
	assert.Equal(t, "team_b", assignment.Team.Key)
	// Курсор зафиксирован на реально выбранном индексе
	assert.Equal(t, []int{1}, rr.advanced)
}

func TestSelect_PriorityForFarOrders(t *testing.T) {
	counters := &fakeCounters{counts: map[string]int{}, limit: 5}
	rr := newFakeRoundRobin()
	svc := newService(counters, rr)
	region := testRegion()

	// Время в пути выше порога: priority порядок, team_b настроена первой
	assignment, err := svc.Select(context.Background(), region, domain.ServiceMontage, 45)
	require.NoError(t, err)
	assert.Equal(t, "team_b", assignment.Team.Key)
	assert.Equal(t, StrategyPriority, assignment.Strategy)

	// Priority путь не двигает round-robin курсор
	assert.Empty(t, rr.advanced)
}

func TestSelect_NoAvailability(t *testing.T) {
	counters := &fakeCounters{counts: map[string]int{}, limit: 0}
	svc := newService(counters, newFakeRoundRobin())

	_, err := svc.Select(context.Background(), testRegion(), domain.ServiceMontage, 10)
	assert.ErrorIs(t, err, ErrNoTeamAvailable)
}

func TestSelect_EmptyRoster(t *testing.T) {
	counters := &fakeCounters{counts: map[string]int{}, limit: 5}
	svc := newService(counters, newFakeRoundRobin())

	region := &domain.Region{Key: "empty"}
	_, err := svc.Select(context.Background(), region, domain.ServiceMontage, 10)
	assert.ErrorIs(t, err, ErrEmptyRoster)
}

func TestSelect_HorizonSkipsDisallowedDays(t *testing.T) {
	counters := &fakeCounters{counts: map[string]int{}, limit: 5}
	rr := newFakeRoundRobin()
	svc := newService(counters, rr)

	// Регион работает только по понедельникам; емкость есть только во вторник -
	// этот день не считается
	region := testRegion()
	region.AllowedDays = []time.Weekday{time.Monday}
	for day := 0; day < 14; day++ {
		date := testNow.AddDate(0, 0, day)
		if date.Weekday() == time.Monday {
			for _, cal := range []string{"cal-a", "cal-b", "cal-c"} {
				counters.counts[counters.key(cal, date, domain.ServiceMontage)] = 5
			}
		}
	}

	_, err := svc.Select(context.Background(), region, domain.ServiceMontage, 10)
	assert.ErrorIs(t, err, ErrNoTeamAvailable)
}

func TestDistanceMinutesForOrder(t *testing.T) {
	distance := &fakeDistance{minutes: map[string]int{"8005": 12}}
	svc := NewService(&fakeCounters{counts: map[string]int{}, limit: 5}, newFakeRoundRobin(), distance, Config{
		RoundRobinThresholdMinutes: 20,
		CapacityHorizonDays:        14,
	}, nopLogger{})

	assert.Equal(t, 12, svc.DistanceMinutesForOrder(context.Background(), &domain.Order{Postcode: "8005"}))
	// Неразрешимый индекс дает сентинел
	assert.Equal(t, domain.DistanceUnknownMinutes, svc.DistanceMinutesForOrder(context.Background(), &domain.Order{Postcode: "0000"}))
	assert.Equal(t, domain.DistanceUnknownMinutes, svc.DistanceMinutesForOrder(context.Background(), &domain.Order{}))
}
