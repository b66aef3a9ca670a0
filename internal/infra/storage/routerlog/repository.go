package routerlog

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"

	"github.com/tomgachter/sg-montagerechner-sub000/internal/domain"
	"github.com/tomgachter/sg-montagerechner-sub000/pkg/psqlbuilder"
	"github.com/tomgachter/sg-montagerechner-sub000/pkg/txmanager"
)

// Repository журнал примененных инкрементов счетчиков по заказу
//
// Запись (order_id, log_key) фиксирует, что инкремент для
// (calendar_id, date, service) по этому заказу уже применен: повторная
// доставка webhook не инкрементирует счетчик второй раз, а отмена
// откатывает ровно то, что было применено
type Repository struct {
	db DBExecutor
}

// NewRepository создает репозиторий журнала маршрутизатора
func NewRepository(db DBExecutor) *Repository {
	return &Repository{db: db}
}

// LogKey ключ записи журнала: calendarID|date|service
func LogKey(calendarID string, date time.Time, service domain.ServiceKind) string {
	return fmt.Sprintf("%s|%s|%s", calendarID, date.Format(domain.DateFormat), service)
}

// Applied возвращает true, если инкремент с таким ключом уже применен по заказу
func (r *Repository) Applied(ctx context.Context, orderID int64, logKey string) (bool, error) {
	executor := txmanager.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Select("1").
		From("router_event_log").
		Where(squirrel.Eq{"order_id": orderID, "log_key": logKey}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("%w: Applied - build select query: %v", ErrBuildQuery, err)
	}

	var one int
	err = executor.QueryRowContext(ctx, query, args...).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: Applied - scan: %v", ErrScanRow, err)
	}

	return true, nil
}

// Record фиксирует примененный инкремент
func (r *Repository) Record(ctx context.Context, entry *domain.RouterLogEntry) error {
	executor := txmanager.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Insert("router_event_log").
		Columns("order_id", "log_key", "calendar_id", "date", "service").
		Values(entry.OrderID, entry.LogKey, entry.CalendarID, entry.Date.Format(domain.DateFormat), entry.Service).
		Suffix("ON CONFLICT (order_id, log_key) DO NOTHING").
		ToSql()
	if err != nil {
		return fmt.Errorf("%w: Record - build insert query: %v", ErrBuildQuery, err)
	}

	if _, err := executor.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("%w: Record - execute insert: %v", ErrExecQuery, err)
	}

	return nil
}

// GetByOrder возвращает все примененные инкременты заказа
func (r *Repository) GetByOrder(ctx context.Context, orderID int64) ([]*domain.RouterLogEntry, error) {
	executor := txmanager.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Select("order_id", "log_key", "calendar_id", "date", "service").
		From("router_event_log").
		Where(squirrel.Eq{"order_id": orderID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: GetByOrder - build select query: %v", ErrBuildQuery, err)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: GetByOrder - execute query: %v", ErrExecQuery, err)
	}
	defer rows.Close()

	entries := make([]*domain.RouterLogEntry, 0)
	for rows.Next() {
		var entry domain.RouterLogEntry
		if err := rows.Scan(&entry.OrderID, &entry.LogKey, &entry.CalendarID, &entry.Date, &entry.Service); err != nil {
			return nil, fmt.Errorf("%w: GetByOrder - scan entry: %v", ErrScanRow, err)
		}
		entries = append(entries, &entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: GetByOrder - iterate rows: %v", ErrScanRow, err)
	}

	return entries, nil
}

// DeleteByOrder удаляет записи журнала заказа (после отката инкрементов)
func (r *Repository) DeleteByOrder(ctx context.Context, orderID int64) error {
	executor := txmanager.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Delete("router_event_log").
		Where(squirrel.Eq{"order_id": orderID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%w: DeleteByOrder - build delete query: %v", ErrBuildQuery, err)
	}

	if _, err := executor.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("%w: DeleteByOrder - execute delete: %v", ErrExecQuery, err)
	}

	return nil
}
