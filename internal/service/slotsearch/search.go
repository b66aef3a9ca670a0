package slotsearch

import (
	"context"
	"fmt"
	"time"

	"github.com/tomgachter/sg-montagerechner-sub000/internal/domain"
)

// Search поиск непрерывной последовательности свободных слотов
//
// Этот слой проверяет осуществимость конкретного кандидата (команда/день/
// стартовый слот) и не занимается балансировкой: выбор команды - задача
// маршрутизатора на этапе селекции
type Search struct {
	calendar *domain.SlotCalendar
	records  RecordsRepository
	logger   Logger
}

// NewSearch создает сервис поиска последовательностей слотов
func NewSearch(calendar *domain.SlotCalendar, records RecordsRepository, logger Logger) *Search {
	return &Search{
		calendar: calendar,
		records:  records,
		logger:   logger,
	}
}

// slotOccupancy занятость одного слота команды на дату
type slotOccupancy struct {
	montage int
	etage   int
}

// blocksService возвращает true, если занятость не допускает еще одно
// бронирование вида service
//
// Правила занятости:
// - слот с любым montage-бронированием закрыт для всего
// - слот с etage-бронированиями допускает еще etage до лимита на слот,
//   но закрыт для montage
func (o slotOccupancy) blocksService(service domain.ServiceKind) bool {
	if o.montage > 0 {
		return true
	}
	if service == domain.ServiceMontage {
		return o.etage > 0
	}
	return o.etage >= domain.DefaultEtageSlotShareLimit
}

// FindConsecutiveFreeSlots ищет минимальную непрерывную последовательность
// свободных слотов, покрывающую requiredMinutes, начиная со startSlotIndex
//
// Возвращает пустой срез, если последовательность уперлась в конец дня
// или в занятый слот
func (s *Search) FindConsecutiveFreeSlots(
	ctx context.Context,
	team domain.Team,
	date time.Time,
	startSlotIndex int,
	requiredMinutes int,
	requiredSlotCount int,
	service domain.ServiceKind,
) ([]int, error) {
	if requiredMinutes <= 0 || requiredSlotCount <= 0 {
		return nil, fmt.Errorf("%w: required minutes and slot count must be positive", ErrInvalidInput)
	}

	slots := s.calendar.Slots()
	if startSlotIndex < 0 || startSlotIndex >= len(slots) {
		return []int{}, nil
	}

	occupancy, err := s.loadOccupancy(ctx, team.Key, date)
	if err != nil {
		return nil, err
	}

	sequence := make([]int, 0, requiredSlotCount)
	accumulated := 0

	for index := startSlotIndex; index < len(slots); index++ {
		if occupancy[index].blocksService(service) {
			// Непрерывность нарушена - кандидат не осуществим
			return []int{}, nil
		}

		sequence = append(sequence, index)
		accumulated += s.calendar.SlotDurationMinutes()

		if accumulated >= requiredMinutes || len(sequence) >= requiredSlotCount {
			break
		}
	}

	// Проверяем, что набранной длительности хватает: последовательность
	// могла оборваться на конце дня
	if accumulated < requiredMinutes && len(sequence) < requiredSlotCount {
		return []int{}, nil
	}

	return sequence, nil
}

// FindBestSequenceToday пробует команды в переданном порядке на фиксированную
// дату и стартовый слот, возвращая первую успешную
//
// Fallback для случая, когда предпочтительная команда не имеет места
// именно в запрошенный день. Tie-break: первая команда в порядке вызова.
// Возвращает ok=false, если ни одна команда не подошла.
func (s *Search) FindBestSequenceToday(
	ctx context.Context,
	teamOrder []domain.Team,
	date time.Time,
	startSlotIndex int,
	requiredMinutes int,
	requiredSlotCount int,
	service domain.ServiceKind,
) (domain.Team, []int, bool, error) {
	for _, team := range teamOrder {
		sequence, err := s.FindConsecutiveFreeSlots(ctx, team, date, startSlotIndex, requiredMinutes, requiredSlotCount, service)
		if err != nil {
			return domain.Team{}, nil, false, err
		}
		if len(sequence) > 0 {
			return team, sequence, true, nil
		}
	}

	return domain.Team{}, nil, false, nil
}

// loadOccupancy строит карту занятости слотов команды на дату
func (s *Search) loadOccupancy(ctx context.Context, teamKey string, date time.Time) (map[int]slotOccupancy, error) {
	recs, err := s.records.GetByTeamAndDate(ctx, teamKey, date)
	if err != nil {
		return nil, fmt.Errorf("%w: load bookings for team=%s date=%s: %v",
			ErrInternal, teamKey, date.Format(domain.DateFormat), err)
	}

	occupancy := make(map[int]slotOccupancy, len(recs))
	for _, rec := range recs {
		entry := occupancy[rec.SlotIndex]
		if rec.Service == domain.ServiceMontage {
			entry.montage++
		} else {
			entry.etage++
		}
		occupancy[rec.SlotIndex] = entry
	}

	return occupancy, nil
}
