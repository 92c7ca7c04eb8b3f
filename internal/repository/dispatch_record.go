package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/expiry-reminder/internal/domain/model"
)

// DispatchFilter — фильтр выборки журнала отправок.
type DispatchFilter struct {
	// Status — только записи с этим статусом (nil — любые)
	Status *model.DispatchStatus
	// DocumentID — только записи документа (пусто — любые)
	DocumentID string
}

// DispatchRecordRepository — журнал отправок (таблица dispatch_records).
// Записи только добавляются. Единственное удаление — ручная очистка FAILED.
type DispatchRecordRepository interface {
	// Lookup возвращает статус записи по ключу (документ, контрольная точка).
	// found = false, если записи нет.
	Lookup(ctx context.Context, documentID string, milestone model.Milestone) (status model.DispatchStatus, found bool, err error)
	// Create добавляет запись. Возвращает ErrConflict, если ключ уже занят.
	Create(ctx context.Context, rec *model.DispatchRecord) error
	// GetByID возвращает запись по UUID.
	GetByID(ctx context.Context, id string) (*model.DispatchRecord, error)
	// List возвращает записи по фильтру, новые сначала.
	List(ctx context.Context, filter DispatchFilter, limit, offset int) ([]*model.DispatchRecord, error)
	// Count возвращает количество записей по фильтру.
	Count(ctx context.Context, filter DispatchFilter) (int, error)
	// DeleteFailed удаляет запись со статусом FAILED и возвращает её.
	// ErrNotFound — записи нет, ErrConflict — статус не FAILED.
	DeleteFailed(ctx context.Context, id string) (*model.DispatchRecord, error)
}

// dispatchRecordRepo — реализация DispatchRecordRepository.
type dispatchRecordRepo struct {
	db DBTX
}

// NewDispatchRecordRepository создаёт репозиторий журнала отправок.
func NewDispatchRecordRepository(db DBTX) DispatchRecordRepository {
	return &dispatchRecordRepo{db: db}
}

const dispatchColumns = `id, document_id, milestone, days_to_expiry, expiry_date, attempted_at,
	status, message_id, response, sent_at, error, created_by`

func scanDispatchRecord(row pgx.Row) (*model.DispatchRecord, error) {
	rec := &model.DispatchRecord{}
	err := row.Scan(
		&rec.ID, &rec.DocumentID, &rec.Milestone, &rec.DaysToExpiry, &rec.ExpiryDate, &rec.AttemptedAt,
		&rec.Status, &rec.MessageID, &rec.Response, &rec.SentAt, &rec.Error, &rec.CreatedBy,
	)
	return rec, err
}

func (r *dispatchRecordRepo) Lookup(ctx context.Context, documentID string, milestone model.Milestone) (model.DispatchStatus, bool, error) {
	var status model.DispatchStatus
	err := r.db.QueryRow(ctx,
		`SELECT status FROM dispatch_records WHERE document_id = $1 AND milestone = $2`,
		documentID, milestone,
	).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("ошибка проверки журнала отправок: %w", err)
	}
	return status, true, nil
}

func (r *dispatchRecordRepo) Create(ctx context.Context, rec *model.DispatchRecord) error {
	// ON CONFLICT DO NOTHING: существующая запись никогда не перезаписывается
	query := `
		INSERT INTO dispatch_records (id, document_id, milestone, days_to_expiry, expiry_date,
			attempted_at, status, message_id, response, sent_at, error, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (document_id, milestone) DO NOTHING`

	tag, err := r.db.Exec(ctx, query,
		rec.ID, rec.DocumentID, rec.Milestone, rec.DaysToExpiry, rec.ExpiryDate,
		rec.AttemptedAt, rec.Status, rec.MessageID, rec.Response, rec.SentAt, rec.Error, rec.CreatedBy,
	)
	if err != nil {
		return constraintError(err, "запись в журнал отправок")
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: документ %s, точка %s", ErrConflict, rec.DocumentID, rec.Milestone)
	}
	return nil
}

func (r *dispatchRecordRepo) GetByID(ctx context.Context, id string) (*model.DispatchRecord, error) {
	rec, err := scanDispatchRecord(r.db.QueryRow(ctx,
		`SELECT `+dispatchColumns+` FROM dispatch_records WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения записи журнала: %w", err)
	}
	return rec, nil
}

// buildWhere строит WHERE по фильтру. Нумерация аргументов начинается с 1.
func buildWhere(filter DispatchFilter) (string, []any) {
	var conditions []string
	var args []any
	argNum := 1

	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argNum))
		args = append(args, *filter.Status)
		argNum++
	}
	if filter.DocumentID != "" {
		conditions = append(conditions, fmt.Sprintf("document_id = $%d", argNum))
		args = append(args, filter.DocumentID)
	}

	if len(conditions) == 0 {
		return "", args
	}
	return "WHERE " + strings.Join(conditions, " AND "), args
}

func (r *dispatchRecordRepo) List(ctx context.Context, filter DispatchFilter, limit, offset int) ([]*model.DispatchRecord, error) {
	where, args := buildWhere(filter)
	argNum := len(args) + 1

	query := fmt.Sprintf(`
		SELECT %s
		FROM dispatch_records
		%s
		ORDER BY attempted_at DESC, id
		LIMIT $%d OFFSET $%d`, dispatchColumns, where, argNum, argNum+1)
	args = append(args, limit, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения журнала отправок: %w", err)
	}
	defer rows.Close()

	var result []*model.DispatchRecord
	for rows.Next() {
		rec, err := scanDispatchRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования записи журнала: %w", err)
		}
		result = append(result, rec)
	}
	return result, rows.Err()
}

func (r *dispatchRecordRepo) Count(ctx context.Context, filter DispatchFilter) (int, error) {
	where, args := buildWhere(filter)

	var count int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM dispatch_records `+where, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("ошибка подсчёта записей журнала: %w", err)
	}
	return count, nil
}

func (r *dispatchRecordRepo) DeleteFailed(ctx context.Context, id string) (*model.DispatchRecord, error) {
	rec, err := scanDispatchRecord(r.db.QueryRow(ctx, `
		DELETE FROM dispatch_records
		WHERE id = $1 AND status = $2
		RETURNING `+dispatchColumns, id, model.DispatchFailed))
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("ошибка удаления записи журнала: %w", err)
	}

	// Строка не удалена: либо её нет, либо статус не FAILED
	existing, getErr := r.GetByID(ctx, id)
	if getErr != nil {
		return nil, getErr
	}
	return nil, fmt.Errorf("%w: запись %s имеет статус %s, удалять можно только FAILED",
		ErrConflict, id, existing.Status)
}
