// smtp.go — отправка напоминаний по SMTP через go-mail.
//
// На каждую отправку создаётся отдельный клиент, поэтому SMTPNotifier
// можно вызывать из нескольких горутин одновременно.
package notifier

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	mail "github.com/wneessen/go-mail"
)

// SMTPConfig — параметры SMTP-транспорта.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	// From — адрес отправителя
	From string
	// TLSPolicy — mandatory, opportunistic, none
	TLSPolicy string
	Timeout   time.Duration
}

// SMTPNotifier — Notifier поверх SMTP.
type SMTPNotifier struct {
	cfg    SMTPConfig
	logger *slog.Logger

	mu            sync.RWMutex
	lastVerifyErr error
	verified      bool
}

// NewSMTPNotifier создаёт SMTP-нотификатор. Подключение не выполняется.
func NewSMTPNotifier(cfg SMTPConfig, logger *slog.Logger) *SMTPNotifier {
	return &SMTPNotifier{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "smtp_notifier")),
	}
}

// tlsPolicy преобразует строковую политику в mail.TLSPolicy.
func tlsPolicy(s string) mail.TLSPolicy {
	switch s {
	case "none":
		return mail.NoTLS
	case "opportunistic":
		return mail.TLSOpportunistic
	default:
		return mail.TLSMandatory
	}
}

// newClient создаёт SMTP-клиент по конфигурации.
func (n *SMTPNotifier) newClient() (*mail.Client, error) {
	opts := []mail.Option{
		mail.WithPort(n.cfg.Port),
		mail.WithTLSPolicy(tlsPolicy(n.cfg.TLSPolicy)),
	}
	if n.cfg.Timeout > 0 {
		opts = append(opts, mail.WithTimeout(n.cfg.Timeout))
	}
	if n.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(n.cfg.Username),
			mail.WithPassword(n.cfg.Password),
		)
	}

	client, err := mail.NewClient(n.cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("создание SMTP-клиента: %w", err)
	}
	return client, nil
}

// buildMsg формирует письмо: текстовое тело и HTML-альтернатива.
func (n *SMTPNotifier) buildMsg(msg Message) (*mail.Msg, error) {
	m := mail.NewMsg()
	if err := m.From(n.cfg.From); err != nil {
		return nil, fmt.Errorf("некорректный адрес отправителя %q: %w", n.cfg.From, err)
	}
	if err := m.To(msg.To); err != nil {
		return nil, fmt.Errorf("некорректный адрес получателя %q: %w", msg.To, err)
	}
	m.Subject(msg.Subject)
	m.SetDate()
	m.SetMessageID()
	m.SetBodyString(mail.TypeTextPlain, msg.Text)
	if msg.HTML != "" {
		m.AddAlternativeString(mail.TypeTextHTML, msg.HTML)
	}
	return m, nil
}

// Send отправляет сообщение и возвращает Message-ID.
// Любая ошибка доставки оборачивается в ErrTransport.
func (n *SMTPNotifier) Send(ctx context.Context, msg Message) (*Receipt, error) {
	m, err := n.buildMsg(msg)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}

	client, err := n.newClient()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}

	if err := client.DialAndSendWithContext(ctx, m); err != nil {
		return nil, fmt.Errorf("%w: отправка на %s: %w", ErrTransport, msg.To, err)
	}

	messageID := ""
	if ids := m.GetGenHeader(mail.HeaderMessageID); len(ids) > 0 {
		messageID = ids[0]
	}

	receipt := &Receipt{
		MessageID: messageID,
		// go-mail не отдаёт ответ сервера, фиксируем факт приёма
		Response: fmt.Sprintf("250 accepted by %s:%d", n.cfg.Host, n.cfg.Port),
		SentAt:   time.Now().UTC(),
	}

	n.logger.Debug("Письмо отправлено",
		slog.String("to", msg.To),
		slog.String("message_id", messageID),
	)
	return receipt, nil
}

// Verify проверяет соединение с SMTP-сервером (подключение и аутентификация).
// Результат сохраняется для readiness probe.
func (n *SMTPNotifier) Verify(ctx context.Context) error {
	client, err := n.newClient()
	if err == nil {
		err = client.DialWithContext(ctx)
		if err == nil {
			err = client.Close()
		}
	}

	n.mu.Lock()
	n.verified = true
	n.lastVerifyErr = err
	n.mu.Unlock()

	if err != nil {
		return fmt.Errorf("%w: проверка SMTP %s:%d: %w", ErrTransport, n.cfg.Host, n.cfg.Port, err)
	}
	n.logger.Info("SMTP-сервер доступен",
		slog.String("host", n.cfg.Host),
		slog.Int("port", n.cfg.Port),
	)
	return nil
}

// CheckReady возвращает состояние последней проверки SMTP.
// Недоступность SMTP не блокирует сервис: статус degraded.
func (n *SMTPNotifier) CheckReady() (status string, message string) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	switch {
	case !n.verified:
		return "degraded", "проверка SMTP не выполнялась"
	case n.lastVerifyErr != nil:
		return "degraded", fmt.Sprintf("SMTP недоступен: %v", n.lastVerifyErr)
	default:
		return "ok", "SMTP-сервер доступен"
	}
}
