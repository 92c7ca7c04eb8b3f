// probe.go — тестовое письмо для проверки транспорта доставки.
// Журнал отправок не затрагивается.
package service

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"

	"github.com/bigkaa/expiry-reminder/internal/notifier"
)

// MessageComposer собирает письмо с произвольными темой и текстом.
type MessageComposer interface {
	Compose(ctx context.Context, lang, to, subject, body string, msgCtx notifier.MessageContext) (notifier.Message, error)
}

const (
	defaultTestSubject = "Test Email - Visa Reminder System"
	defaultTestBody    = "This is a test email to verify the reminder delivery configuration."
)

// TestEmail — параметры тестового письма. Пустые Subject и Body заменяются стандартными.
type TestEmail struct {
	To      string
	Lang    string
	Subject string
	Body    string
}

// NotifierProbe отправляет тестовые письма.
type NotifierProbe struct {
	composer MessageComposer
	notifier notifier.Notifier
	lang     string
	logger   *slog.Logger
}

// NewNotifierProbe создаёт NotifierProbe.
func NewNotifierProbe(composer MessageComposer, n notifier.Notifier, lang string, logger *slog.Logger) *NotifierProbe {
	return &NotifierProbe{
		composer: composer,
		notifier: n,
		lang:     lang,
		logger:   logger.With(slog.String("component", "notifier_probe")),
	}
}

// SendTest отправляет тестовое письмо в обход журнала.
func (p *NotifierProbe) SendTest(ctx context.Context, req TestEmail, actor string) (*notifier.Receipt, error) {
	to := req.To
	if _, err := mail.ParseAddress(to); err != nil {
		return nil, fmt.Errorf("%w: некорректный адрес %q", ErrValidation, to)
	}
	lang := cmp.Or(req.Lang, p.lang)
	subject := cmp.Or(req.Subject, defaultTestSubject)
	body := cmp.Or(req.Body, defaultTestBody)

	msg, err := p.composer.Compose(ctx, lang, to, subject, body,
		notifier.MessageContext{ContactEmail: to},
	)
	if err != nil {
		return nil, err
	}

	receipt, err := p.notifier.Send(ctx, msg)
	if err != nil {
		p.logger.Warn("Тестовое письмо не отправлено",
			slog.String("to", to),
			slog.String("actor", actor),
			slog.String("error", err.Error()),
		)
		if errors.Is(err, notifier.ErrTransport) {
			return nil, fmt.Errorf("%w: %v", ErrNotifierUnavailable, err)
		}
		return nil, err
	}

	p.logger.Info("Тестовое письмо отправлено",
		slog.String("to", to),
		slog.String("actor", actor),
		slog.String("message_id", receipt.MessageID),
	)
	return receipt, nil
}
