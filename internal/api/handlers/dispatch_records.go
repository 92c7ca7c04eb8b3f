// dispatch_records.go — обработчики /api/v1/dispatch-records endpoints.
// Просмотр журнала отправок и удаление FAILED-записей для повторной отправки.
package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
	openapi_types "github.com/oapi-codegen/runtime/types"

	apierrors "github.com/bigkaa/expiry-reminder/internal/api/errors"
	"github.com/bigkaa/expiry-reminder/internal/api/middleware"
	"github.com/bigkaa/expiry-reminder/internal/domain/model"
	"github.com/bigkaa/expiry-reminder/internal/repository"
	"github.com/bigkaa/expiry-reminder/internal/service"
)

type dispatchRecordListDTO struct {
	Items  []dispatchRecordDTO `json:"items"`
	Total  int                 `json:"total"`
	Limit  int                 `json:"limit"`
	Offset int                 `json:"offset"`
}

// ListDispatchRecords — GET /api/v1/dispatch-records.
// Фильтры: status, document_id. Пагинация: limit, offset.
func (h *APIHandler) ListDispatchRecords(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	var (
		status     *string
		documentID *openapi_types.UUID
		limit      *int
		offset     *int
	)
	if err := runtime.BindQueryParameter("form", true, false, "status", query, &status); err != nil {
		apierrors.ValidationError(w, "Некорректный параметр status: "+err.Error())
		return
	}
	if err := runtime.BindQueryParameter("form", true, false, "document_id", query, &documentID); err != nil {
		apierrors.ValidationError(w, "Некорректный параметр document_id: "+err.Error())
		return
	}
	if err := runtime.BindQueryParameter("form", true, false, "limit", query, &limit); err != nil {
		apierrors.ValidationError(w, "Некорректный параметр limit: "+err.Error())
		return
	}
	if err := runtime.BindQueryParameter("form", true, false, "offset", query, &offset); err != nil {
		apierrors.ValidationError(w, "Некорректный параметр offset: "+err.Error())
		return
	}

	var filter repository.DispatchFilter
	if status != nil {
		st, err := model.ParseDispatchStatus(*status)
		if err != nil {
			apierrors.ValidationError(w, err.Error())
			return
		}
		filter.Status = &st
	}
	if documentID != nil {
		filter.DocumentID = documentID.String()
	}

	l, o := paginationDefaults(limit, offset)
	page, err := h.records.List(r.Context(), filter, l, o)
	if err != nil {
		h.handleRecordError(w, err, "")
		return
	}

	items := make([]dispatchRecordDTO, 0, len(page.Items))
	for _, rec := range page.Items {
		items = append(items, toDispatchRecordDTO(rec))
	}
	writeJSON(w, http.StatusOK, dispatchRecordListDTO{
		Items:  items,
		Total:  page.Total,
		Limit:  page.Limit,
		Offset: page.Offset,
	})
}

// GetDispatchRecord — GET /api/v1/dispatch-records/{id}.
func (h *APIHandler) GetDispatchRecord(w http.ResponseWriter, r *http.Request) {
	id, ok := recordIDParam(w, r)
	if !ok {
		return
	}

	rec, err := h.records.Get(r.Context(), id)
	if err != nil {
		h.handleRecordError(w, err, id)
		return
	}
	writeJSON(w, http.StatusOK, toDispatchRecordDTO(rec))
}

// DeleteDispatchRecord — DELETE /api/v1/dispatch-records/{id}.
// Удаляется только FAILED-запись; следующий прогон отправит напоминание снова.
// Доступ: роль admin.
func (h *APIHandler) DeleteDispatchRecord(w http.ResponseWriter, r *http.Request) {
	id, ok := recordIDParam(w, r)
	if !ok {
		return
	}

	actor := middleware.ActorFromContext(r.Context())
	if _, err := h.records.DeleteFailed(r.Context(), id, actor); err != nil {
		h.handleRecordError(w, err, id)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// recordIDParam извлекает UUID записи из пути. При ошибке пишет 400.
func recordIDParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	var id openapi_types.UUID
	err := runtime.BindStyledParameterWithOptions("simple", "id", chi.URLParam(r, "id"), &id,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Required: true})
	if err != nil {
		apierrors.ValidationError(w, "Некорректный идентификатор записи: "+err.Error())
		return "", false
	}
	return id.String(), true
}

// handleRecordError маппит ошибки сервиса журнала в HTTP-ответы.
func (h *APIHandler) handleRecordError(w http.ResponseWriter, err error, id string) {
	switch {
	case errors.Is(err, service.ErrValidation):
		apierrors.ValidationError(w, err.Error())
	case errors.Is(err, service.ErrNotFound):
		apierrors.NotFound(w, "Запись журнала не найдена")
	case errors.Is(err, service.ErrConflict):
		apierrors.Conflict(w, "Удалить можно только запись со статусом FAILED")
	default:
		h.logger.Error("Ошибка журнала отправок",
			slog.String("record_id", id),
			slog.String("error", err.Error()),
		)
		apierrors.InternalError(w, "Внутренняя ошибка")
	}
}
