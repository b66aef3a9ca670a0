package domain

import (
	"time"

	"github.com/tomgachter/sg-montagerechner-sub000/pkg/types"
)

// ServiceKind вид услуги на выезде
type ServiceKind string

const (
	ServiceMontage ServiceKind = "montage" // Монтаж/установка
	ServiceEtage   ServiceKind = "etage"   // Этажная доставка
)

// Valid возвращает true для известного вида услуги
func (s ServiceKind) Valid() bool {
	return s == ServiceMontage || s == ServiceEtage
}

// Slot фиксированное временное окно календарного дня
// Сетка слотов статична и одинакова для всех команд и календарей
type Slot struct {
	Index int              // 0-based индекс в сетке дня
	Start types.TimeString // Начало окна
	End   types.TimeString // Конец окна
}

// SlotCalendar сетка слотов дня и веса услуг
// Чистые функции от целых чисел, состояния нет
type SlotCalendar struct {
	slots                 []Slot
	slotDurationMinutes   int
	montageMinutesPerUnit int
	etageMinutesPerUnit   int
}

// NewSlotCalendar строит сетку из slotCount слотов длительностью slotDuration,
// начиная с dayStart. Некорректные параметры заменяются значениями по умолчанию.
func NewSlotCalendar(dayStart string, slotDurationMinutes, slotCount, montagePerUnit, etagePerUnit int) *SlotCalendar {
	if slotDurationMinutes <= 0 {
		slotDurationMinutes = DefaultSlotDurationMinutes
	}
	if slotCount <= 0 {
		slotCount = DefaultSlotCount
	}
	if montagePerUnit <= 0 {
		montagePerUnit = DefaultMontageMinutesPerUnit
	}
	if etagePerUnit <= 0 {
		etagePerUnit = DefaultEtageMinutesPerUnit
	}

	start, err := types.NewTimeStringFromString(dayStart)
	if err != nil {
		start = types.TimeString(DefaultDayStart)
	}

	slots := make([]Slot, 0, slotCount)
	current := start
	for i := 0; i < slotCount; i++ {
		end, err := current.AddMinutes(slotDurationMinutes)
		if err != nil {
			// Сетка уперлась в полночь - день закончился
			break
		}
		slots = append(slots, Slot{Index: i, Start: current, End: end})
		current = end
	}

	return &SlotCalendar{
		slots:                 slots,
		slotDurationMinutes:   slotDurationMinutes,
		montageMinutesPerUnit: montagePerUnit,
		etageMinutesPerUnit:   etagePerUnit,
	}
}

// Slots возвращает упорядоченную сетку слотов дня
func (c *SlotCalendar) Slots() []Slot {
	return c.slots
}

// SlotDurationMinutes возвращает длительность одного слота
func (c *SlotCalendar) SlotDurationMinutes() int {
	return c.slotDurationMinutes
}

// SlotByIndex возвращает слот по индексу, ok=false вне сетки
func (c *SlotCalendar) SlotByIndex(index int) (Slot, bool) {
	if index < 0 || index >= len(c.slots) {
		return Slot{}, false
	}
	return c.slots[index], true
}

// MinutesRequired возвращает требуемые минуты работ
// Взвешенная сумма: монтаж дороже этажной доставки
func (c *SlotCalendar) MinutesRequired(montageCount, etageCount int) int {
	if montageCount <= 0 && etageCount <= 0 {
		return 0
	}
	minutes := 0
	if montageCount > 0 {
		minutes += montageCount * c.montageMinutesPerUnit
	}
	if etageCount > 0 {
		minutes += etageCount * c.etageMinutesPerUnit
	}
	return minutes
}

// SlotsRequired возвращает требуемое количество слотов
// ceil(minutes/slotDuration), минимум 1 если работы есть
func (c *SlotCalendar) SlotsRequired(montageCount, etageCount int) int {
	minutes := c.MinutesRequired(montageCount, etageCount)
	if minutes == 0 {
		return 0
	}
	slots := (minutes + c.slotDurationMinutes - 1) / c.slotDurationMinutes
	if slots < 1 {
		slots = 1
	}
	return slots
}

// NearestSlotIndex возвращает индекс слота, начало которого ближе всего
// к переданному моменту времени (по времени суток)
func (c *SlotCalendar) NearestSlotIndex(t time.Time) int {
	if len(c.slots) == 0 {
		return 0
	}

	target := t.Hour()*60 + t.Minute()
	best := 0
	bestDiff := -1

	for _, slot := range c.slots {
		startMinutes, err := slot.Start.Minutes()
		if err != nil {
			continue
		}
		diff := target - startMinutes
		if diff < 0 {
			diff = -diff
		}
		if bestDiff < 0 || diff < bestDiff {
			best = slot.Index
			bestDiff = diff
		}
	}

	return best
}
