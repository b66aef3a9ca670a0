package handle_webhook

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomgachter/sg-montagerechner-sub000/internal/domain"
)

func TestFirstNonEmpty(t *testing.T) {
	assert.Equal(t, "a", FirstNonEmpty("a", "b"))
	assert.Equal(t, "b", FirstNonEmpty("", "b", "c"))
	assert.Equal(t, "", FirstNonEmpty("", "", ""))
	assert.Equal(t, "", FirstNonEmpty())
}

func payloadFixture() *UseCase {
	return &UseCase{
		cfg:      Config{Timezone: time.UTC},
		calendar: domain.NewSlotCalendar("07:00", 120, 8, 60, 30),
	}
}

func TestParseStart_Formats(t *testing.T) {
	uc := payloadFixture()

	tests := []struct {
		name  string
		start string
		want  time.Time
	}{
		{
			name:  "rfc3339 with offset",
			start: "2024-06-03T09:00:00+02:00",
			want:  time.Date(2024, 6, 3, 7, 0, 0, 0, time.UTC),
		},
		{
			name:  "naive datetime",
			start: "2024-06-03T09:00:00",
			want:  time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC),
		},
		{
			name:  "space separated",
			start: "2024-06-03 09:00:00",
			want:  time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC),
		},
		{
			name:  "date only",
			start: "2024-06-03",
			want:  time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := uc.parseStart(BookingPayload{Start: tt.start})
			require.NoError(t, err)
			assert.True(t, got.Equal(tt.want), "got %s, want %s", got, tt.want)
		})
	}
}

func TestParseStart_Invalid(t *testing.T) {
	uc := payloadFixture()

	_, err := uc.parseStart(BookingPayload{Start: ""})
	assert.ErrorIs(t, err, ErrInvalidStart)

	_, err = uc.parseStart(BookingPayload{Start: "kein datum"})
	assert.ErrorIs(t, err, ErrInvalidStart)
}

func TestResolveRequestedStart_SnapsToNearestSlot(t *testing.T) {
	uc := payloadFixture()

	// 09:45 ближе к слоту 09:00 (индекс 1), чем к 11:00
	date, slot, err := uc.resolveRequestedStart(BookingPayload{Start: "2024-06-03T09:45:00"})
	require.NoError(t, err)
	assert.Equal(t, "2024-06-03", date.Format(domain.DateFormat))
	assert.Equal(t, 1, slot)

	// 10:10 ближе к 11:00 (индекс 2)
	_, slot, err = uc.resolveRequestedStart(BookingPayload{Start: "2024-06-03T10:10:00"})
	require.NoError(t, err)
	assert.Equal(t, 2, slot)
}

func TestEventHash(t *testing.T) {
	payload := BookingPayload{
		ID:         "sel-1",
		Start:      "2024-06-03T09:00:00",
		CalendarID: "cal-a",
		Status:     "confirmed",
	}

	first := eventHash(domain.EventBookingCreated, payload)
	second := eventHash(domain.EventBookingCreated, payload)
	assert.Equal(t, first, second)
	assert.Len(t, first, 40)

	// Другой тип события или другой payload дает другой хэш
	assert.NotEqual(t, first, eventHash(domain.EventBookingCancelled, payload))

	changed := payload
	changed.Start = "2024-06-04T09:00:00"
	assert.NotEqual(t, first, eventHash(domain.EventBookingCreated, changed))
}
