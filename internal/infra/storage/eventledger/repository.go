package eventledger

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"

	"github.com/tomgachter/sg-montagerechner-sub000/pkg/psqlbuilder"
	"github.com/tomgachter/sg-montagerechner-sub000/pkg/txmanager"
)

// Границы журнала: на заказ хранится не больше maxEntriesPerOrder хэшей,
// записи старше ttl вычищаются ежедневной зачисткой
const (
	maxEntriesPerOrder = 50
	defaultTTLDays     = 30
)

// Repository журнал обработанных webhook-событий (идемпотентность)
// (order_id, event_hash) -> seen_at; повторная доставка того же события
// обнаруживается по хэшу и завершается без побочных эффектов
type Repository struct {
	db DBExecutor
}

// NewRepository создает репозиторий журнала событий
func NewRepository(db DBExecutor) *Repository {
	return &Repository{db: db}
}

// WasProcessed возвращает true, если событие с таким хэшем уже обработано
func (r *Repository) WasProcessed(ctx context.Context, orderID int64, eventHash string) (bool, error) {
	executor := txmanager.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Select("1").
		From("processed_events").
		Where(squirrel.Eq{"order_id": orderID, "event_hash": eventHash}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("%w: WasProcessed - build select query: %v", ErrBuildQuery, err)
	}

	var one int
	err = executor.QueryRowContext(ctx, query, args...).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: WasProcessed - scan: %v", ErrScanRow, err)
	}

	return true, nil
}

// MarkProcessed записывает хэш события и ограничивает размер журнала заказа
func (r *Repository) MarkProcessed(ctx context.Context, orderID int64, eventHash string) error {
	executor := txmanager.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Insert("processed_events").
		Columns("order_id", "event_hash").
		Values(orderID, eventHash).
		Suffix("ON CONFLICT (order_id, event_hash) DO NOTHING").
		ToSql()
	if err != nil {
		return fmt.Errorf("%w: MarkProcessed - build insert query: %v", ErrBuildQuery, err)
	}

	if _, err := executor.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("%w: MarkProcessed - execute insert: %v", ErrExecQuery, err)
	}

	return r.pruneOrder(ctx, orderID)
}

// PurgeOlderThan удаляет записи журнала старше days дней (ежедневная зачистка)
// days <= 0 трактуется как TTL по умолчанию
func (r *Repository) PurgeOlderThan(ctx context.Context, days int) (int64, error) {
	if days <= 0 {
		days = defaultTTLDays
	}

	executor := txmanager.GetExecutor(ctx, r.db)

	cutoff := time.Now().AddDate(0, 0, -days)

	query, args, err := psqlbuilder.Delete("processed_events").
		Where(squirrel.Lt{"seen_at": cutoff}).
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

// pruneOrder оставляет только maxEntriesPerOrder свежих записей заказа
func (r *Repository) pruneOrder(ctx context.Context, orderID int64) error {
	executor := txmanager.GetExecutor(ctx, r.db)

	// squirrel не выражает DELETE с подзапросом по OFFSET - сырой запрос
	query := `
		DELETE FROM processed_events
		WHERE order_id = $1
		  AND event_hash NOT IN (
			SELECT event_hash FROM processed_events
			WHERE order_id = $1
			ORDER BY seen_at DESC
			LIMIT $2
		  )`

	if _, err := executor.ExecContext(ctx, query, orderID, maxEntriesPerOrder); err != nil {
		return fmt.Errorf("%w: pruneOrder - execute delete: %v", ErrExecQuery, err)
	}

	return nil
}
