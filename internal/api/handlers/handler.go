// handler.go — основной обработчик API.
// Объединяет доменные обработчики и делегирует запросы в сервисный слой.
package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/bigkaa/expiry-reminder/internal/domain/model"
	"github.com/bigkaa/expiry-reminder/internal/notifier"
	"github.com/bigkaa/expiry-reminder/internal/repository"
	"github.com/bigkaa/expiry-reminder/internal/service"
)

// ReminderRunner — ручной запуск прогона и состояние планировщика
// (реализуется service.Scheduler).
type ReminderRunner interface {
	RunNow(ctx context.Context, actor string) (*model.RunSummary, error)
	Status() service.SchedulerStatus
}

// DispatchRecordStore — операции над журналом отправок
// (реализуется service.DispatchRecordService).
type DispatchRecordStore interface {
	List(ctx context.Context, filter repository.DispatchFilter, limit, offset int) (*service.DispatchRecordPage, error)
	Get(ctx context.Context, id string) (*model.DispatchRecord, error)
	DeleteFailed(ctx context.Context, id, actor string) (*model.DispatchRecord, error)
}

// NotifierTester — отправка тестового письма (реализуется service.NotifierProbe).
type NotifierTester interface {
	SendTest(ctx context.Context, req service.TestEmail, actor string) (*notifier.Receipt, error)
}

// APIHandler — основной обработчик API.
type APIHandler struct {
	health  *HealthHandler
	runner  ReminderRunner
	records DispatchRecordStore
	probe   NotifierTester
	logger  *slog.Logger
}

// NewAPIHandler создаёт основной обработчик API.
func NewAPIHandler(
	health *HealthHandler,
	runner ReminderRunner,
	records DispatchRecordStore,
	probe NotifierTester,
	logger *slog.Logger,
) *APIHandler {
	return &APIHandler{
		health:  health,
		runner:  runner,
		records: records,
		probe:   probe,
		logger:  logger.With(slog.String("component", "api_handler")),
	}
}

// HealthLive — liveness probe (делегируется в HealthHandler).
func (h *APIHandler) HealthLive(w http.ResponseWriter, r *http.Request) {
	h.health.HealthLive(w, r)
}

// HealthReady — readiness probe (делегируется в HealthHandler).
func (h *APIHandler) HealthReady(w http.ResponseWriter, r *http.Request) {
	h.health.HealthReady(w, r)
}

// GetMetrics — Prometheus метрики (делегируется в HealthHandler).
func (h *APIHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	h.health.GetMetrics(w, r)
}

// --- Вспомогательные функции ---

// writeJSON записывает JSON-ответ с указанным статусом.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// paginationDefaults нормализует параметры пагинации.
func paginationDefaults(limit *int, offset *int) (int, int) {
	l := 100
	o := 0

	if limit != nil {
		l = min(max(*limit, 1), 1000)
	}
	if offset != nil {
		o = max(*offset, 0)
	}
	return l, o
}

// --- DTO ---

type runSummaryDTO struct {
	Trigger    string    `json:"trigger"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Documents  int       `json:"documents"`
	Eligible   int       `json:"eligible"`
	Sent       int       `json:"sent"`
	Failed     int       `json:"failed"`
	Skipped    int       `json:"skipped"`
	Errors     int       `json:"errors"`
}

func toRunSummaryDTO(s *model.RunSummary) *runSummaryDTO {
	if s == nil {
		return nil
	}
	return &runSummaryDTO{
		Trigger:    string(s.Trigger),
		StartedAt:  s.StartedAt,
		FinishedAt: s.FinishedAt,
		Documents:  s.Documents,
		Eligible:   s.Eligible,
		Sent:       s.Sent,
		Failed:     s.Failed,
		Skipped:    s.Skipped,
		Errors:     s.Errors,
	}
}

type dispatchRecordDTO struct {
	ID           string     `json:"id"`
	DocumentID   string     `json:"document_id"`
	Milestone    string     `json:"milestone"`
	DaysToExpiry int        `json:"days_to_expiry"`
	ExpiryDate   string     `json:"expiry_date"`
	AttemptedAt  time.Time  `json:"attempted_at"`
	Status       string     `json:"status"`
	MessageID    string     `json:"message_id,omitempty"`
	Response     string     `json:"response,omitempty"`
	SentAt       *time.Time `json:"sent_at,omitempty"`
	Error        string     `json:"error,omitempty"`
	CreatedBy    string     `json:"created_by"`
}

func toDispatchRecordDTO(rec *model.DispatchRecord) dispatchRecordDTO {
	return dispatchRecordDTO{
		ID:           rec.ID,
		DocumentID:   rec.DocumentID,
		Milestone:    string(rec.Milestone),
		DaysToExpiry: rec.DaysToExpiry,
		ExpiryDate:   rec.ExpiryDate.Format(time.DateOnly),
		AttemptedAt:  rec.AttemptedAt,
		Status:       string(rec.Status),
		MessageID:    rec.MessageID,
		Response:     rec.Response,
		SentAt:       rec.SentAt,
		Error:        rec.Error,
		CreatedBy:    rec.CreatedBy,
	}
}
