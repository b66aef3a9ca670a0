package records

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

// recordColumns колонки таблицы booking_records в порядке сканирования
var recordColumns = []string{
	"id",
	"order_id",
	"group_id",
	"team_key",
	"date",
	"slot_index",
	"slot_start",
	"slot_end",
	"service",
	"mode",
	"calendar_id",
	"selector_booking_id",
	"remote_booking_id",
	"remote_response",
	"created_at",
}

// Repository репозиторий записей расписания (одна запись = один слот)
// Набор записей заказа группируется по group_id и заменяется целиком
// при переносе или отмене
type Repository struct {
	db DBExecutor
}

// NewRepository создает репозиторий записей расписания
func NewRepository(db DBExecutor) *Repository {
	return &Repository{db: db}
}

// CreateGroup сохраняет набор записей одного бронирования
func (r *Repository) CreateGroup(ctx context.Context, recs []*domain.BookingRecord) error {
	if len(recs) == 0 {
		return nil
	}

	executor := txmanager.GetExecutor(ctx, r.db)

	builder := psqlbuilder.Insert("booking_records").
		Columns(
			"order_id",
			"group_id",
			"team_key",
			"date",
			"slot_index",
			"slot_start",
			"slot_end",
			"service",
			"mode",
			"calendar_id",
			"selector_booking_id",
			"remote_booking_id",
			"remote_response",
		)

	for _, rec := range recs {
		builder = builder.Values(
			rec.OrderID,
			rec.GroupID,
			rec.TeamKey,
			rec.Date.Format(domain.DateFormat),
			rec.SlotIndex,
			rec.SlotStart,
			rec.SlotEnd,
			rec.Service,
			rec.Mode,
			rec.CalendarID,
			rec.SelectorBookingID,
			rec.RemoteBookingID,
			rec.RemoteResponse,
		)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return fmt.Errorf("%w: CreateGroup - build insert query: %v", ErrBuildQuery, err)
	}

	if _, err := executor.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("%w: CreateGroup - execute insert: %v", ErrExecQuery, err)
	}

	return nil
}

// GetByOrder возвращает все записи расписания заказа
func (r *Repository) GetByOrder(ctx context.Context, orderID int64) ([]*domain.BookingRecord, error) {
	executor := txmanager.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Select(recordColumns...).
		From("booking_records").
		Where(squirrel.Eq{"order_id": orderID}).
		OrderBy("date ASC, slot_index ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: GetByOrder - build select query: %v", ErrBuildQuery, err)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: GetByOrder - execute query: %v", ErrExecQuery, err)
	}
	defer rows.Close()

	return r.scanRecords(rows)
}

// GetByTeamAndDate возвращает записи команды на дату (по всем заказам)
// Используется поиском последовательности слотов для правил занятости
func (r *Repository) GetByTeamAndDate(ctx context.Context, teamKey string, date time.Time) ([]*domain.BookingRecord, error) {
	executor := txmanager.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Select(recordColumns...).
		From("booking_records").
		Where(squirrel.Eq{
			"team_key": teamKey,
			"date":     date.Format(domain.DateFormat),
		}).
		OrderBy("slot_index ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: GetByTeamAndDate - build select query: %v", ErrBuildQuery, err)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: GetByTeamAndDate - execute query: %v", ErrExecQuery, err)
	}
	defer rows.Close()

	return r.scanRecords(rows)
}

// DeleteByIDs удаляет записи по идентификаторам
// Отмена удаляет только успешно отмененные во внешнем календаре записи,
// остальные остаются для повторной попытки
func (r *Repository) DeleteByIDs(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}

	executor := txmanager.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Delete("booking_records").
		Where(squirrel.Eq{"id": ids}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%w: DeleteByIDs - build delete query: %v", ErrBuildQuery, err)
	}

	if _, err := executor.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("%w: DeleteByIDs - execute delete: %v", ErrExecQuery, err)
	}

	return nil
}

func (r *Repository) scanRecords(rows *sql.Rows) ([]*domain.BookingRecord, error) {
	recs := make([]*domain.BookingRecord, 0)

	for rows.Next() {
		var rec domain.BookingRecord
		var createdAt sql.NullTime

		err := rows.Scan(
			&rec.ID,
			&rec.OrderID,
			&rec.GroupID,
			&rec.TeamKey,
			&rec.Date,
			&rec.SlotIndex,
			&rec.SlotStart,
			&rec.SlotEnd,
			&rec.Service,
			&rec.Mode,
			&rec.CalendarID,
			&rec.SelectorBookingID,
			&rec.RemoteBookingID,
			&rec.RemoteResponse,
			&createdAt,
		)
		if err != nil {
			return nil, fmt.Errorf("%w: scanRecords - scan record: %v", ErrScanRow, err)
		}

		rec.CreatedAt = createdAt.Time

		recs = append(recs, &rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: scanRecords - iterate rows: %v", ErrScanRow, err)
	}

	return recs, nil
}
