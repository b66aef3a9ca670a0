package routing

import (
	"context"
	"fmt"

	"github.com/tomgachter/sg-montagerechner-sub000/internal/domain"
)

// Config параметры маршрутизатора
type Config struct {
	RoundRobinThresholdMinutes int // Граница времени в пути для round-robin
	CapacityHorizonDays        int // Горизонт поиска дня с емкостью
}

// Service гибридный маршрутизатор команд
//
// Близкие выезды (время в пути не больше порога) распределяются round-robin
// для равномерной загрузки; дальние - по настроенному порядку приоритетов.
// Выбранная команда должна иметь емкость хотя бы на один разрешенный день
// региона в пределах горизонта.
type Service struct {
	counters     CountersRepository
	roundRobin   RoundRobinRepository
	distance     DistanceClient
	cfg          Config
	timeProvider TimeProvider
	logger       Logger
}

// NewService создает маршрутизатор
func NewService(
	counters CountersRepository,
	roundRobin RoundRobinRepository,
	distance DistanceClient,
	cfg Config,
	logger Logger,
) *Service {
	return &Service{
		counters:     counters,
		roundRobin:   roundRobin,
		distance:     distance,
		cfg:          cfg,
		timeProvider: &RealTimeProvider{},
		logger:       logger,
	}
}

// WithTimeProvider подменяет провайдер времени (для тестов)
func (s *Service) WithTimeProvider(tp TimeProvider) *Service {
	s.timeProvider = tp
	return s
}

// DistanceMinutesForOrder возвращает оценку времени в пути для заказа
// При неразрешимом индексе возвращается сентинел: такой заказ уходит
// по priority-стратегии
func (s *Service) DistanceMinutesForOrder(ctx context.Context, order *domain.Order) int {
	if order.Postcode == "" {
		return domain.DistanceUnknownMinutes
	}

	minutes, err := s.distance.DriveMinutes(ctx, order.Postcode)
	if err != nil {
		s.logger.Warn("DistanceMinutesForOrder: postcode %s unresolvable: %v", order.Postcode, err)
		return domain.DistanceUnknownMinutes
	}

	return minutes
}

// Select выбирает команду региона для вида услуги
//
// Round-robin путь продвигает курсор только после успешного выбора
// (двухфазная схема peek/advance). Priority путь состояние не мутирует.
func (s *Service) Select(ctx context.Context, region *domain.Region, service domain.ServiceKind, driveMinutes int) (*Assignment, error) {
	roster := region.Teams(service)
	if len(roster) == 0 {
		return nil, fmt.Errorf("%w: region=%s service=%s", ErrEmptyRoster, region.Key, service)
	}

	if driveMinutes <= s.cfg.RoundRobinThresholdMinutes {
		return s.selectRoundRobin(ctx, region, service, roster, driveMinutes)
	}
	return s.selectPriority(ctx, region, service, driveMinutes)
}

func (s *Service) selectRoundRobin(
	ctx context.Context,
	region *domain.Region,
	service domain.ServiceKind,
	roster []domain.Team,
	driveMinutes int,
) (*Assignment, error) {
	calendarIDs := region.CalendarIDs(service)

	start, err := s.roundRobin.GetNextIndex(ctx, region.Key, service, calendarIDs)
	if err != nil {
		return nil, fmt.Errorf("%w: get round-robin index: %v", ErrInternal, err)
	}

	// Сканируем ростер вперед от курсора с заворотом
	for offset := 0; offset < len(roster); offset++ {
		index := (start + offset) % len(roster)
		team := roster[index]

		ok, err := s.teamHasCapacityWithinHorizon(ctx, region, team, service)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}

		if err := s.roundRobin.Advance(ctx, region.Key, service, calendarIDs, index); err != nil {
			return nil, fmt.Errorf("%w: advance round-robin cursor: %v", ErrInternal, err)
		}

		s.logger.Info("Select: round-robin picked team=%s (index %d) for region=%s service=%s",
			team.Key, index, region.Key, service)

		return &Assignment{
			Team:         team,
			Region:       region.Key,
			Service:      service,
			Strategy:     StrategyRoundRobin,
			DriveMinutes: driveMinutes,
		}, nil
	}

	return nil, ErrNoTeamAvailable
}

func (s *Service) selectPriority(
	ctx context.Context,
	region *domain.Region,
	service domain.ServiceKind,
	driveMinutes int,
) (*Assignment, error) {
	for _, team := range region.PriorityOrder(service) {
		ok, err := s.teamHasCapacityWithinHorizon(ctx, region, team, service)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}

		s.logger.Info("Select: priority picked team=%s for region=%s service=%s", team.Key, region.Key, service)

		return &Assignment{
			Team:         team,
			Region:       region.Key,
			Service:      service,
			Strategy:     StrategyPriority,
			DriveMinutes: driveMinutes,
		}, nil
	}

	return nil, ErrNoTeamAvailable
}

// teamHasCapacityWithinHorizon проверяет емкость команды хотя бы на один
// разрешенный день региона в пределах горизонта
func (s *Service) teamHasCapacityWithinHorizon(
	ctx context.Context,
	region *domain.Region,
	team domain.Team,
	service domain.ServiceKind,
) (bool, error) {
	today := s.timeProvider.Now()

	for day := 0; day < s.cfg.CapacityHorizonDays; day++ {
		date := today.AddDate(0, 0, day)

		// Запрещенные дни недели региона пропускаются
		if !region.IsDayAllowed(date) {
			continue
		}

		ok, err := s.counters.HasCapacity(ctx, team.CalendarID, date, service)
		if err != nil {
			return false, fmt.Errorf("%w: capacity check for calendar=%s date=%s: %v",
				ErrInternal, team.CalendarID, date.Format(domain.DateFormat), err)
		}
		if ok {
			return true, nil
		}
	}

	return false, nil
}

// HorizonDays возвращает горизонт поиска емкости в днях
func (s *Service) HorizonDays() int {
	return s.cfg.CapacityHorizonDays
}
