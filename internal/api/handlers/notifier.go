// notifier.go — обработчик тестового письма.
package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	apierrors "github.com/bigkaa/expiry-reminder/internal/api/errors"
	"github.com/bigkaa/expiry-reminder/internal/api/middleware"
	"github.com/bigkaa/expiry-reminder/internal/i18n"
	"github.com/bigkaa/expiry-reminder/internal/service"
)

type notifierTestRequest struct {
	To      string  `json:"to"`
	Locale  *string `json:"locale,omitempty"`
	Subject string  `json:"subject,omitempty"`
	Body    string  `json:"body,omitempty"`
}

type notifierTestResponse struct {
	MessageID string    `json:"message_id"`
	Response  string    `json:"response"`
	SentAt    time.Time `json:"sent_at"`
}

// SendTestEmail — POST /api/v1/notifier/test.
// Язык письма: locale из тела, иначе Accept-Language.
// subject и body необязательны.
// Доступ: роль admin.
func (h *APIHandler) SendTestEmail(w http.ResponseWriter, r *http.Request) {
	var req notifierTestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.ValidationError(w, "Некорректный JSON: "+err.Error())
		return
	}
	if req.To == "" {
		apierrors.ValidationError(w, "Адрес получателя (to) обязателен")
		return
	}

	lang := i18n.MatchLanguage(r.Header.Get("Accept-Language"))
	if req.Locale != nil {
		lang = *req.Locale
	}

	actor := middleware.ActorFromContext(r.Context())
	receipt, err := h.probe.SendTest(r.Context(), service.TestEmail{
		To:      req.To,
		Lang:    lang,
		Subject: req.Subject,
		Body:    req.Body,
	}, actor)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrValidation):
			apierrors.ValidationError(w, err.Error())
		case errors.Is(err, service.ErrNotifierUnavailable):
			apierrors.NotifierUnavailable(w, err.Error())
		default:
			h.logger.Error("Ошибка отправки тестового письма",
				slog.String("actor", actor),
				slog.String("error", err.Error()),
			)
			apierrors.InternalError(w, "Внутренняя ошибка")
		}
		return
	}

	writeJSON(w, http.StatusOK, notifierTestResponse{
		MessageID: receipt.MessageID,
		Response:  receipt.Response,
		SentAt:    receipt.SentAt,
	})
}
