// records.go — просмотр журнала отправок и ручная очистка FAILED-записей.
// Удаление FAILED-записи — единственный способ повторить отправку:
// следующий прогон снова увидит пару (документ, точка) как необработанную.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bigkaa/expiry-reminder/internal/domain/model"
	"github.com/bigkaa/expiry-reminder/internal/repository"
)

// DispatchRecordPage — страница журнала отправок.
type DispatchRecordPage struct {
	Items  []*model.DispatchRecord
	Total  int
	Limit  int
	Offset int
}

// DispatchRecordService — операции оператора над журналом отправок.
type DispatchRecordService struct {
	repo   repository.DispatchRecordRepository
	cache  *LedgerCache
	logger *slog.Logger
}

// NewDispatchRecordService создаёт сервис журнала. cache может быть nil.
func NewDispatchRecordService(repo repository.DispatchRecordRepository, cache *LedgerCache, logger *slog.Logger) *DispatchRecordService {
	return &DispatchRecordService{
		repo:   repo,
		cache:  cache,
		logger: logger.With(slog.String("component", "dispatch_records")),
	}
}

// List возвращает страницу записей по фильтру.
func (s *DispatchRecordService) List(ctx context.Context, filter repository.DispatchFilter, limit, offset int) (*DispatchRecordPage, error) {
	if limit < 1 || limit > 1000 {
		return nil, fmt.Errorf("%w: limit должен быть в диапазоне 1-1000", ErrValidation)
	}
	if offset < 0 {
		return nil, fmt.Errorf("%w: offset не может быть отрицательным", ErrValidation)
	}

	items, err := s.repo.List(ctx, filter, limit, offset)
	if err != nil {
		return nil, err
	}
	total, err := s.repo.Count(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &DispatchRecordPage{Items: items, Total: total, Limit: limit, Offset: offset}, nil
}

// Get возвращает запись по ID.
func (s *DispatchRecordService) Get(ctx context.Context, id string) (*model.DispatchRecord, error) {
	rec, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: запись %s", ErrNotFound, id)
		}
		return nil, err
	}
	return rec, nil
}

// DeleteFailed удаляет FAILED-запись и сбрасывает её ключ в кэше.
// Повторная отправка произойдёт, только если документ снова попадёт в ту же
// контрольную точку: в тот же день до смены дня или для OVERDUE.
func (s *DispatchRecordService) DeleteFailed(ctx context.Context, id, actor string) (*model.DispatchRecord, error) {
	rec, err := s.repo.DeleteFailed(ctx, id)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return nil, fmt.Errorf("%w: запись %s", ErrNotFound, id)
	case errors.Is(err, repository.ErrConflict):
		return nil, fmt.Errorf("%w: %v", ErrConflict, err)
	case err != nil:
		return nil, err
	}

	s.cache.Forget(rec.DocumentID, rec.Milestone)
	s.logger.Info("FAILED-запись удалена, ключ свободен для прогона с той же контрольной точкой",
		slog.String("record_id", rec.ID),
		slog.String("document_id", rec.DocumentID),
		slog.String("milestone", string(rec.Milestone)),
		slog.String("actor", actor),
	)
	return rec, nil
}
