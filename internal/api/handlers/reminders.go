// reminders.go — обработчики ручного запуска прогона и состояния планировщика.
package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	apierrors "github.com/bigkaa/expiry-reminder/internal/api/errors"
	"github.com/bigkaa/expiry-reminder/internal/api/middleware"
	"github.com/bigkaa/expiry-reminder/internal/service"
)

// manualRunTimeout ограничивает ручной прогон, отвязанный от соединения клиента.
const manualRunTimeout = 10 * time.Minute

// RunReminders — POST /api/v1/reminders/run.
// Синхронный прогон по тому же пути, что и запуск по расписанию.
// Отключение клиента прогон не прерывает.
// Доступ: роль admin.
func (h *APIHandler) RunReminders(w http.ResponseWriter, r *http.Request) {
	actor := middleware.ActorFromContext(r.Context())

	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), manualRunTimeout)
	defer cancel()

	summary, err := h.runner.RunNow(ctx, actor)
	if err != nil {
		if errors.Is(err, service.ErrRunInProgress) {
			apierrors.RunInProgress(w, "Прогон уже выполняется")
			return
		}
		h.logger.Error("Ручной прогон завершился ошибкой",
			slog.String("actor", actor),
			slog.String("error", err.Error()),
		)
		apierrors.WriteError(w, http.StatusInternalServerError, apierrors.CodeRunFailed, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, toRunSummaryDTO(summary))
}

type schedulerStatusDTO struct {
	Enabled    bool           `json:"enabled"`
	Schedule   string         `json:"schedule"`
	Timezone   string         `json:"timezone"`
	NextRun    *time.Time     `json:"next_run,omitempty"`
	InProgress bool           `json:"in_progress"`
	LastRun    *runSummaryDTO `json:"last_run,omitempty"`
}

// GetSchedulerStatus — GET /api/v1/scheduler/status.
// Доступ: роль readonly.
func (h *APIHandler) GetSchedulerStatus(w http.ResponseWriter, _ *http.Request) {
	st := h.runner.Status()
	writeJSON(w, http.StatusOK, schedulerStatusDTO{
		Enabled:    st.Enabled,
		Schedule:   st.Schedule,
		Timezone:   st.Timezone,
		NextRun:    st.NextRun,
		InProgress: st.InProgress,
		LastRun:    toRunSummaryDTO(st.LastRun),
	})
}
