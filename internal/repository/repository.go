// Пакет repository — хранилище документов и журнал отправок в PostgreSQL.
// Чистый SQL через pgx; ограничения схемы (UNIQUE, CHECK, FK) переводятся
// в ошибки пакета.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrNotFound — записи нет.
	ErrNotFound = errors.New("запись не найдена")
	// ErrConflict — ключ уже занят или состояние записи не допускает операцию.
	ErrConflict = errors.New("конфликт записи")
	// ErrInvalid — значение отклонено ограничением схемы
	// (неизвестный enum, ссылка на несуществующий документ).
	ErrInvalid = errors.New("значение отклонено схемой")
)

// SQLSTATE ограничений PostgreSQL.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
)

// DBTX — *pgxpool.Pool или pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// constraintError переводит нарушение ограничения схемы в ErrConflict/ErrInvalid.
// Прочие ошибки оборачиваются с описанием операции op.
func constraintError(err error, op string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return fmt.Errorf("%w: %s (%s)", ErrConflict, op, pgErr.ConstraintName)
		case pgForeignKeyViolation, pgCheckViolation:
			return fmt.Errorf("%w: %s (%s)", ErrInvalid, op, pgErr.ConstraintName)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
