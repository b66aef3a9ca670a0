package counters

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"

	"github.com/tomgachter/sg-montagerechner-sub000/internal/domain"
	"github.com/tomgachter/sg-montagerechner-sub000/internal/infra/locks"
	"github.com/tomgachter/sg-montagerechner-sub000/pkg/psqlbuilder"
	"github.com/tomgachter/sg-montagerechner-sub000/pkg/txmanager"
)

// Параметры захвата блокировки счетчика
const (
	lockTTL        = 5 * time.Second
	lockRetries    = 10
	lockRetryDelay = 200 * time.Millisecond
)

// Limits лимиты бронирований на календарь в день по видам услуг
type Limits struct {
	Montage int
	Etage   int
}

// ForService возвращает лимит для вида услуги
func (l Limits) ForService(service domain.ServiceKind) int {
	if service == domain.ServiceEtage {
		return l.Etage
	}
	return l.Montage
}

// Repository репозиторий счетчиков емкости (calendar_id, date, service) -> count
//
// Инкременты выполняются под именованной блокировкой с ограниченным числом
// повторов. Неудача захвата - тихий no-op с вызовом hook: это осознанный
// компромисс доступность/консистентность, редкие потерянные инкременты
// сверяются через журнал маршрутизатора (routerlog).
type Repository struct {
	db          DBExecutor
	lockManager LockManager
	limits      Limits
	logger      Logger

	// onLockFailure вызывается при исчерпании бюджета повторов захвата
	onLockFailure func(key string)
}

// NewRepository создает репозиторий счетчиков
func NewRepository(db DBExecutor, lockManager LockManager, limits Limits, logger Logger) *Repository {
	return &Repository{
		db:          db,
		lockManager: lockManager,
		limits:      limits,
		logger:      logger,
	}
}

// OnLockFailure устанавливает hook наблюдаемости отказов блокировки
func (r *Repository) OnLockFailure(fn func(key string)) {
	r.onLockFailure = fn
}

// Get возвращает значение счетчика, 0 если записи нет
func (r *Repository) Get(ctx context.Context, calendarID string, date time.Time, service domain.ServiceKind) (int, error) {
	executor := txmanager.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Select("count").
		From("capacity_counters").
		Where(squirrel.Eq{
			"calendar_id": calendarID,
			"date":        date.Format(domain.DateFormat),
			"service":     service,
		}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("%w: Get - build select query: %v", ErrBuildQuery, err)
	}

	var count int
	err = executor.QueryRowContext(ctx, query, args...).Scan(&count)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("%w: Get - scan counter: %v", ErrScanRow, err)
	}

	return count, nil
}

// HasCapacity возвращает true, если счетчик ниже лимита вида услуги
func (r *Repository) HasCapacity(ctx context.Context, calendarID string, date time.Time, service domain.ServiceKind) (bool, error) {
	count, err := r.Get(ctx, calendarID, date, service)
	if err != nil {
		return false, err
	}
	return count < r.limits.ForService(service), nil
}

// Bump изменяет счетчик на delta под именованной блокировкой
// Результат ограничивается снизу нулем: отмена никогда не уводит счетчик
// в минус. При неудаче захвата блокировки - no-op с логированием и hook.
func (r *Repository) Bump(ctx context.Context, calendarID string, date time.Time, service domain.ServiceKind, delta int) error {
	if delta == 0 {
		return nil
	}

	lockKey := counterKey(calendarID, date, service)

	token, acquired := r.acquireWithRetry(ctx, lockKey)
	if !acquired {
		r.logger.Warn("Bump: lock budget exhausted for %s, skipping delta=%d", lockKey, delta)
		if r.onLockFailure != nil {
			r.onLockFailure(lockKey)
		}
		return nil
	}
	defer func() {
		if err := r.lockManager.Release(ctx, lockKey, token); err != nil {
			r.logger.Warn("Bump: release lock %s: %v", lockKey, err)
		}
	}()

	current, err := r.Get(ctx, calendarID, date, service)
	if err != nil {
		return err
	}

	next := current + delta
	if next < 0 {
		next = 0
	}

	return r.upsert(ctx, calendarID, date, service, next)
}

// PurgeOlderThan удаляет счетчики за даты старше today-days
// Запускается ежедневной фоновой зачисткой
func (r *Repository) PurgeOlderThan(ctx context.Context, days int) (int64, error) {
	executor := txmanager.GetExecutor(ctx, r.db)

	cutoff := time.Now().AddDate(0, 0, -days).Format(domain.DateFormat)

	query, args, err := psqlbuilder.Delete("capacity_counters").
		Where(squirrel.Lt{"date": cutoff}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("%w: PurgeOlderThan - build delete query: %v", ErrBuildQuery, err)
	}

	result, err := executor.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("%w: PurgeOlderThan - execute delete: %v", ErrExecQuery, err)
	}

	purged, _ := result.RowsAffected()
	return purged, nil
}

func (r *Repository) acquireWithRetry(ctx context.Context, key string) (string, bool) {
	for attempt := 0; attempt < lockRetries; attempt++ {
		token, err := r.lockManager.Acquire(ctx, key, lockTTL)
		if err == nil {
			return token, true
		}
		if !errors.Is(err, locks.ErrNotAcquired) {
			r.logger.Warn("Bump: acquire lock %s: %v", key, err)
		}

		select {
		case <-ctx.Done():
			return "", false
		case <-time.After(lockRetryDelay):
		}
	}
	return "", false
}

func (r *Repository) upsert(ctx context.Context, calendarID string, date time.Time, service domain.ServiceKind, count int) error {
	executor := txmanager.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Insert("capacity_counters").
		Columns("calendar_id", "date", "service", "count").
		Values(calendarID, date.Format(domain.DateFormat), service, count).
		Suffix("ON CONFLICT (calendar_id, date, service) DO UPDATE SET count = EXCLUDED.count, updated_at = NOW()").
		ToSql()
	if err != nil {
		return fmt.Errorf("%w: upsert - build insert query: %v", ErrBuildQuery, err)
	}

	if _, err := executor.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("%w: upsert - execute insert: %v", ErrExecQuery, err)
	}

	return nil
}

// counterKey ключ блокировки и журнала: calendarID|date|service
func counterKey(calendarID string, date time.Time, service domain.ServiceKind) string {
	return fmt.Sprintf("%s|%s|%s", calendarID, date.Format(domain.DateFormat), service)
}
