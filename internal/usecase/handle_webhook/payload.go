package handle_webhook

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/tomgachter/sg-montagerechner-sub000/internal/domain"
)

// FirstNonEmpty возвращает первое непустое значение из кандидатов
// Единый резолвер для полей-алиасов webhook payload: вместо цепочек
// ad hoc проверок каждое поле сводится одним вызовом
func FirstNonEmpty(candidates ...string) string {
	for _, c := range candidates {
		if c != "" {
			return c
		}
	}
	return ""
}

// startLayouts форматы времени начала, встречающиеся у отправителей webhook
var startLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// parseStart разбирает время начала из payload, перебирая форматы
// и кандидатов таймзоны: таймзона отправителя, затем таймзона сервиса
// Форматы без смещения интерпретируются в первой разрешившейся таймзоне
func (uc *UseCase) parseStart(payload BookingPayload) (time.Time, error) {
	if payload.Start == "" {
		return time.Time{}, fmt.Errorf("%w: start is empty", ErrInvalidStart)
	}

	locations := make([]*time.Location, 0, 2)
	if payload.Timezone != "" {
		if loc, err := time.LoadLocation(payload.Timezone); err == nil {
			locations = append(locations, loc)
		}
	}
	locations = append(locations, uc.cfg.Timezone)

	for _, layout := range startLayouts {
		if layout == time.RFC3339 {
			if t, err := time.Parse(layout, payload.Start); err == nil {
				return t.In(uc.cfg.Timezone), nil
			}
			continue
		}
		for _, loc := range locations {
			if t, err := time.ParseInLocation(layout, payload.Start, loc); err == nil {
				return t.In(uc.cfg.Timezone), nil
			}
		}
	}

	return time.Time{}, fmt.Errorf("%w: unparseable start %q", ErrInvalidStart, payload.Start)
}

// resolveRequestedStart возвращает запрошенную дату (без времени) и индекс
// стартового слота. Время, не совпадающее с началом слота, привязывается
// к ближайшему слоту сетки.
func (uc *UseCase) resolveRequestedStart(payload BookingPayload) (time.Time, int, error) {
	start, err := uc.parseStart(payload)
	if err != nil {
		return time.Time{}, 0, err
	}

	date := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, uc.cfg.Timezone)
	return date, uc.calendar.NearestSlotIndex(start), nil
}

// eventHash детерминированный хэш события для журнала идемпотентности
// Одинаковый payload при повторной доставке дает одинаковый хэш
func eventHash(event domain.EventType, payload BookingPayload) string {
	sum := sha1.Sum([]byte(fmt.Sprintf("%s|%s|%s|%s|%s",
		event, payload.ID, payload.Status, payload.Start, payload.CalendarID)))
	return hex.EncodeToString(sum[:])
}
