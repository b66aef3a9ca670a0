package roundrobin

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/Masterminds/squirrel"

	"github.com/tomgachter/sg-montagerechner-sub000/internal/domain"
	"github.com/tomgachter/sg-montagerechner-sub000/pkg/psqlbuilder"
	"github.com/tomgachter/sg-montagerechner-sub000/pkg/txmanager"
)

// cursor состояние round-robin курсора (region, service)
type cursor struct {
	lastIndex     int
	calendarOrder []string
}

// Repository репозиторий round-robin курсоров
//
// Курсор хранит последний использованный индекс и порядок календарей,
// для которого он был посчитан. Изменение ростера инвалидирует курсор.
// Чтение (GetNextIndex) и фиксация (Advance) разделены: двухфазная схема
// не продвигает курсор, если выбор команды дальше не прошел по емкости.
type Repository struct {
	db     DBExecutor
	logger Logger
}

// NewRepository создает репозиторий курсоров
func NewRepository(db DBExecutor, logger Logger) *Repository {
	return &Repository{db: db, logger: logger}
}

// GetNextIndex возвращает индекс команды, чья очередь следующая
// При смене состава календарей курсор сбрасывается на начало ростера
func (r *Repository) GetNextIndex(ctx context.Context, region string, service domain.ServiceKind, calendarIDs []string) (int, error) {
	if len(calendarIDs) == 0 {
		return 0, ErrEmptyRoster
	}

	cur, found, err := r.getCursor(ctx, region, service)
	if err != nil {
		return 0, err
	}

	if !found {
		// Однократная миграция устаревшего плоского состояния
		cur, found, err = r.migrateLegacy(ctx, region, service)
		if err != nil {
			return 0, err
		}
	}

	if !found || !sameOrder(cur.calendarOrder, calendarIDs) {
		if found {
			r.logger.Info("GetNextIndex: roster changed for region=%s service=%s, cursor reset", region, service)
		}
		cur = cursor{lastIndex: -1}
	}

	return (cur.lastIndex + 1) % len(calendarIDs), nil
}

// Advance фиксирует только что использованный индекс как новый lastIndex
// вместе с порядком календарей, для которого он валиден
func (r *Repository) Advance(ctx context.Context, region string, service domain.ServiceKind, calendarIDs []string, usedIndex int) error {
	if len(calendarIDs) == 0 {
		return ErrEmptyRoster
	}

	orderJSON, err := json.Marshal(calendarIDs)
	if err != nil {
		return fmt.Errorf("%w: Advance - marshal calendar order: %v", ErrBuildQuery, err)
	}

	executor := txmanager.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Insert("round_robin_cursors").
		Columns("region", "service", "last_index", "calendar_order").
		Values(region, service, usedIndex, string(orderJSON)).
		Suffix("ON CONFLICT (region, service) DO UPDATE SET last_index = EXCLUDED.last_index, calendar_order = EXCLUDED.calendar_order, updated_at = NOW()").
		ToSql()
	if err != nil {
		return fmt.Errorf("%w: Advance - build insert query: %v", ErrBuildQuery, err)
	}

	if _, err := executor.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("%w: Advance - execute insert: %v", ErrExecQuery, err)
	}

	return nil
}

func (r *Repository) getCursor(ctx context.Context, region string, service domain.ServiceKind) (cursor, bool, error) {
	executor := txmanager.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Select("last_index", "calendar_order").
		From("round_robin_cursors").
		Where(squirrel.Eq{"region": region, "service": service}).
		ToSql()
	if err != nil {
		return cursor{}, false, fmt.Errorf("%w: getCursor - build select query: %v", ErrBuildQuery, err)
	}

	var cur cursor
	var orderJSON string

	err = executor.QueryRowContext(ctx, query, args...).Scan(&cur.lastIndex, &orderJSON)
	if err == sql.ErrNoRows {
		return cursor{}, false, nil
	}
	if err != nil {
		return cursor{}, false, fmt.Errorf("%w: getCursor - scan cursor: %v", ErrScanRow, err)
	}

	if orderJSON != "" {
		if err := json.Unmarshal([]byte(orderJSON), &cur.calendarOrder); err != nil {
			// Нечитаемый порядок эквивалентен смене ростера
			r.logger.Warn("getCursor: unreadable calendar_order for region=%s service=%s: %v", region, service, err)
			cur.calendarOrder = nil
		}
	}

	return cur, true, nil
}

// migrateLegacy однократно конвертирует строку устаревшей плоской таблицы
// состояния в курсор (с пустым порядком календарей) и удаляет исходную строку
func (r *Repository) migrateLegacy(ctx context.Context, region string, service domain.ServiceKind) (cursor, bool, error) {
	executor := txmanager.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Select("last_index").
		From("round_robin_state_legacy").
		Where(squirrel.Eq{"region": region, "service": service}).
		ToSql()
	if err != nil {
		return cursor{}, false, fmt.Errorf("%w: migrateLegacy - build select query: %v", ErrBuildQuery, err)
	}

	var lastIndex int
	err = executor.QueryRowContext(ctx, query, args...).Scan(&lastIndex)
	if err == sql.ErrNoRows {
		return cursor{}, false, nil
	}
	if err != nil {
		return cursor{}, false, fmt.Errorf("%w: migrateLegacy - scan legacy state: %v", ErrScanRow, err)
	}

	r.logger.Info("migrateLegacy: converting legacy round-robin state for region=%s service=%s (last_index=%d)",
		region, service, lastIndex)

	deleteQuery, deleteArgs, err := psqlbuilder.Delete("round_robin_state_legacy").
		Where(squirrel.Eq{"region": region, "service": service}).
		ToSql()
	if err != nil {
		return cursor{}, false, fmt.Errorf("%w: migrateLegacy - build delete query: %v", ErrBuildQuery, err)
	}

	if _, err := executor.ExecContext(ctx, deleteQuery, deleteArgs...); err != nil {
		return cursor{}, false, fmt.Errorf("%w: migrateLegacy - delete legacy state: %v", ErrExecQuery, err)
	}

	// Пустой порядок календарей: первый же GetNextIndex с актуальным
	// ростером сбросит курсор, что и требуется после миграции
	return cursor{lastIndex: lastIndex}, true, nil
}

func sameOrder(a, b []string) bool {
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
