package signature

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomgachter/sg-montagerechner-sub000/internal/domain"
)

type fixedTime struct {
	now time.Time
}

func (f *fixedTime) Now() time.Time { return f.now }

var testNow = time.Date(2024, 6, 3, 12, 0, 0, 0, time.UTC)

func newTestService(legacy bool) *Service {
	return NewService("installation-secret", time.Hour, legacy).
		WithTimeProvider(&fixedTime{now: testNow})
}

func TestSignValidate_RoundTrip(t *testing.T) {
	svc := newTestService(false)
	params := Params{Region: "zuerich_limmattal", SGM: 1, SGE: 0}

	sig := svc.Sign(42, params, 0)
	assert.True(t, svc.Validate(42, sig, params))
}

func TestValidate_TTLWindow(t *testing.T) {
	svc := newTestService(false)
	params := Params{Region: "zuerich_limmattal", SGM: 2, SGE: 1}

	tests := []struct {
		name string
		ts   int64
		want bool
	}{
		{"fresh", testNow.Unix(), true},
		{"edge of window", testNow.Add(-time.Hour).Unix(), true},
		{"expired", testNow.Add(-time.Hour - time.Second).Unix(), false},
		{"future within window", testNow.Add(30 * time.Minute).Unix(), true},
		{"too far in future", testNow.Add(2 * time.Hour).Unix(), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sig := svc.Sign(42, params, tt.ts)
			assert.Equal(t, tt.want, svc.Validate(42, sig, params))
		})
	}
}

func TestValidate_RejectsTampering(t *testing.T) {
	svc := newTestService(false)
	params := Params{Region: "bern_mittelland", SGM: 1, SGE: 0}

	sig := svc.Sign(42, params, 0)

	// Другой заказ
	assert.False(t, svc.Validate(43, sig, params))
	// Подмена количества работ
	assert.False(t, svc.Validate(42, sig, Params{Region: "bern_mittelland", SGM: 3, SGE: 0}))
	// Подмена региона
	assert.False(t, svc.Validate(42, sig, Params{Region: "zuerich_limmattal", SGM: 1, SGE: 0}))
}

func TestValidate_LegacyPayloadNaming(t *testing.T) {
	params := Params{Region: "zuerich_limmattal", SGM: 1, SGE: 2}
	ts := testNow.Unix()

	// Подпись, построенная по устаревшему payload (m/e вместо sgm/sge)
	legacySigner := newTestService(true)
	legacyPayload := canonicalPayload(42, params, ts, true)
	legacySig := fmt.Sprintf("%d.%s", ts, legacySigner.hmacHex(legacyPayload))

	// С включенной поддержкой legacy подпись принимается
	assert.True(t, newTestService(true).Validate(42, legacySig, params))
	// С выключенной - отклоняется
	assert.False(t, newTestService(false).Validate(42, legacySig, params))
}

func TestParse_Strict(t *testing.T) {
	valid := Parse("1717416000.deadbeefdeadbeefdeadbeefdeadbeef")
	assert.Equal(t, int64(1717416000), valid.Timestamp)
	assert.Equal(t, "deadbeefdeadbeefdeadbeefdeadbeef", valid.Hash)

	tests := []struct {
		name string
		sig  string
	}{
		{"empty", ""},
		{"no dot", "1717416000deadbeef"},
		{"short timestamp", "12345.deadbeefdeadbeefdeadbeefdeadbeef"},
		{"non-numeric timestamp", "171741600x.deadbeefdeadbeefdeadbeefdeadbeef"},
		{"hash too short", "1717416000.deadbeef"},
		{"hash too long", "1717416000." + strings.Repeat("ab", 65)},
		{"non-hex hash", "1717416000." + strings.Repeat("zz", 16)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, Parsed{}, Parse(tt.sig))
		})
	}
}

func TestCanonicalPayload_KeySorted(t *testing.T) {
	payload := canonicalPayload(7, Params{Region: "basel", SGM: 2, SGE: 1}, 1717416000, false)
	assert.Equal(t, "order=7&region=basel&sge=1&sgm=2&ts=1717416000", payload)

	legacy := canonicalPayload(7, Params{Region: "basel", SGM: 2, SGE: 1}, 1717416000, true)
	assert.Equal(t, "e=1&m=2&order=7&region=basel&ts=1717416000", legacy)
}

func TestNormalizeParams_FillsFromOrder(t *testing.T) {
	order := &domain.Order{Region: "zuerich_limmattal", MontageCount: 2, EtageCount: 1}

	filled := NormalizeParams(order, Params{SGM: -1, SGE: -1})
	require.Equal(t, "zuerich_limmattal", filled.Region)
	assert.Equal(t, 2, filled.SGM)
	assert.Equal(t, 1, filled.SGE)

	// Явно переданные значения не перетираются
	explicit := NormalizeParams(order, Params{Region: "bern", SGM: 5, SGE: 0})
	assert.Equal(t, "bern", explicit.Region)
	assert.Equal(t, 5, explicit.SGM)
	assert.Equal(t, 0, explicit.SGE)
}
