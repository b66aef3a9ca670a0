package counters

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomgachter/sg-montagerechner-sub000/internal/domain"
	"github.com/tomgachter/sg-montagerechner-sub000/internal/infra/locks"
)

type fakeLockManager struct {
	failAcquire bool
	acquired    []string
	released    []string
}

func (f *fakeLockManager) Acquire(_ context.Context, key string, _ time.Duration) (string, error) {
	if f.failAcquire {
		return "", locks.ErrNotAcquired
	}
	f.acquired = append(f.acquired, key)
	return "token-1", nil
}

func (f *fakeLockManager) Release(_ context.Context, key string, _ string) error {
	f.released = append(f.released, key)
	return nil
}

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}

var testDate = time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)

func TestRepository_Get_AbsentIsZero(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT count FROM capacity_counters`).
		WithArgs("cal-1", "2024-06-03", "montage").
		WillReturnRows(sqlmock.NewRows([]string{"count"}))

	repo := NewRepository(db, &fakeLockManager{}, Limits{Montage: 5, Etage: 4}, nopLogger{})

	count, err := repo.Get(context.Background(), "cal-1", testDate, domain.ServiceMontage)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_HasCapacity(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT count FROM capacity_counters`).
		WithArgs("cal-1", "2024-06-03", "etage").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))

	repo := NewRepository(db, &fakeLockManager{}, Limits{Montage: 5, Etage: 4}, nopLogger{})

	ok, err := repo.HasCapacity(context.Background(), "cal-1", testDate, domain.ServiceEtage)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRepository_Bump_IncrementsUnderLock(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT count FROM capacity_counters`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectExec(`INSERT INTO capacity_counters`).
		WithArgs("cal-1", "2024-06-03", "montage", 3).
		WillReturnResult(sqlmock.NewResult(0, 1))

	lockMgr := &fakeLockManager{}
	repo := NewRepository(db, lockMgr, Limits{Montage: 5, Etage: 4}, nopLogger{})

	require.NoError(t, repo.Bump(context.Background(), "cal-1", testDate, domain.ServiceMontage, 1))

	assert.Equal(t, []string{"cal-1|2024-06-03|montage"}, lockMgr.acquired)
	assert.Equal(t, []string{"cal-1|2024-06-03|montage"}, lockMgr.released)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_Bump_ClampsAtZero(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT count FROM capacity_counters`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	// 1 + (-3) ограничивается нулем
	mock.ExpectExec(`INSERT INTO capacity_counters`).
		WithArgs("cal-1", "2024-06-03", "montage", 0).
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := NewRepository(db, &fakeLockManager{}, Limits{Montage: 5, Etage: 4}, nopLogger{})

	require.NoError(t, repo.Bump(context.Background(), "cal-1", testDate, domain.ServiceMontage, -3))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_Bump_LockFailureIsSilentNoop(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	// Никаких SQL запросов при отказе блокировки
	repo := NewRepository(db, &fakeLockManager{failAcquire: true}, Limits{Montage: 5, Etage: 4}, nopLogger{})

	var failedKey string
	repo.OnLockFailure(func(key string) { failedKey = key })

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	require.NoError(t, repo.Bump(ctx, "cal-1", testDate, domain.ServiceMontage, 1))
	assert.Equal(t, "cal-1|2024-06-03|montage", failedKey)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_Bump_ZeroDeltaIsNoop(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	lockMgr := &fakeLockManager{}
	repo := NewRepository(db, lockMgr, Limits{Montage: 5, Etage: 4}, nopLogger{})

	require.NoError(t, repo.Bump(context.Background(), "cal-1", testDate, domain.ServiceMontage, 0))
	assert.Empty(t, lockMgr.acquired)
	assert.NoError(t, mock.ExpectationsWereMet())
}
