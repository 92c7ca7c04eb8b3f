package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/expiry-reminder/internal/domain/model"
)

// DocumentRepository — доступ к таблице documents.
type DocumentRepository interface {
	// ListActive возвращает все документы со статусом ACTIVE.
	ListActive(ctx context.Context) ([]*model.Document, error)
	// GetByID возвращает документ по UUID.
	GetByID(ctx context.Context, id string) (*model.Document, error)
	// Create добавляет документ.
	Create(ctx context.Context, doc *model.Document) error
}

// documentRepo — реализация DocumentRepository.
type documentRepo struct {
	db DBTX
}

// NewDocumentRepository создаёт репозиторий документов.
func NewDocumentRepository(db DBTX) DocumentRepository {
	return &documentRepo{db: db}
}

const documentColumns = `id, holder_name, organization, contact_email, kind, number,
	issue_date, expiry_date, status, notes, owner_id, created_at, updated_at`

func scanDocument(row pgx.Row) (*model.Document, error) {
	d := &model.Document{}
	err := row.Scan(
		&d.ID, &d.HolderName, &d.Organization, &d.ContactEmail, &d.Kind, &d.Number,
		&d.IssueDate, &d.ExpiryDate, &d.Status, &d.Notes, &d.OwnerID, &d.CreatedAt, &d.UpdatedAt,
	)
	return d, err
}

func (r *documentRepo) ListActive(ctx context.Context) ([]*model.Document, error) {
	query := `SELECT ` + documentColumns + `
		FROM documents
		WHERE status = $1
		ORDER BY expiry_date, id`

	rows, err := r.db.Query(ctx, query, model.DocumentActive)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения активных документов: %w", err)
	}
	defer rows.Close()

	var result []*model.Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования документа: %w", err)
		}
		result = append(result, d)
	}
	return result, rows.Err()
}

func (r *documentRepo) GetByID(ctx context.Context, id string) (*model.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE id = $1`

	d, err := scanDocument(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения документа: %w", err)
	}
	return d, nil
}

func (r *documentRepo) Create(ctx context.Context, doc *model.Document) error {
	query := `
		INSERT INTO documents (id, holder_name, organization, contact_email, kind, number,
			issue_date, expiry_date, status, notes, owner_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		doc.ID, doc.HolderName, doc.Organization, doc.ContactEmail, doc.Kind, doc.Number,
		doc.IssueDate, doc.ExpiryDate, doc.Status, doc.Notes, doc.OwnerID,
	).Scan(&doc.CreatedAt, &doc.UpdatedAt)
	if err != nil {
		return constraintError(err, "создание документа "+doc.ID)
	}
	return nil
}
