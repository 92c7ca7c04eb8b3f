// dispatcher.go — отправка одного напоминания с записью итога в журнал.
//
// Порядок для пары (документ, контрольная точка):
//  1. Проверка журнала (кэш, затем PostgreSQL). Есть запись — пропуск.
//  2. Построение сообщения и отправка через Notifier.
//  3. Запись итога SENT или FAILED. Запись никогда не обновляется.
//  4. Публикация события (ошибка публикации только логируется).
//
// Доставка at-least-once: если письмо ушло, а запись в журнал не удалась,
// следующий прогон отправит письмо повторно.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/expiry-reminder/internal/domain/model"
	"github.com/bigkaa/expiry-reminder/internal/events"
	"github.com/bigkaa/expiry-reminder/internal/notifier"
	"github.com/bigkaa/expiry-reminder/internal/repository"
)

// Prometheus-метрики отправки.
var (
	dispatchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rm_dispatch_total",
		Help: "Общее количество попыток отправки напоминаний по контрольным точкам и итогам.",
	}, []string{"milestone", "outcome"})

	ledgerWriteFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rm_ledger_write_failures_total",
		Help: "Общее количество ошибок записи в журнал отправок.",
	})
)

// ledgerWriteTimeout — время на запись итога, не зависящее от контекста отправки.
const ledgerWriteTimeout = 5 * time.Second

// DispatchOutcome — итог обработки пары (документ, контрольная точка).
type DispatchOutcome string

const (
	OutcomeSent    DispatchOutcome = "sent"
	OutcomeFailed  DispatchOutcome = "failed"
	OutcomeSkipped DispatchOutcome = "skipped"
)

// MessageRenderer строит напоминание для контрольной точки.
type MessageRenderer interface {
	Render(ctx context.Context, lang string, m model.Milestone, doc *model.Document) (notifier.Message, error)
}

// EventPublisher публикует события об итогах отправки.
type EventPublisher interface {
	Publish(ctx context.Context, event events.DispatchEvent) error
}

type actorKey struct{}

// WithActor сохраняет в контексте инициатора прогона.
func WithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// actorFromContext возвращает инициатора прогона или "system".
func actorFromContext(ctx context.Context) string {
	if actor, ok := ctx.Value(actorKey{}).(string); ok && actor != "" {
		return actor
	}
	return model.SystemActor
}

// Dispatcher — отправка напоминаний с учётом журнала.
type Dispatcher struct {
	ledger    repository.DispatchRecordRepository
	cache     *LedgerCache
	renderer  MessageRenderer
	notifier  notifier.Notifier
	publisher EventPublisher
	lang      string
	now       func() time.Time
	logger    *slog.Logger
}

// NewDispatcher создаёт Dispatcher. cache и publisher могут быть nil.
func NewDispatcher(
	ledger repository.DispatchRecordRepository,
	cache *LedgerCache,
	renderer MessageRenderer,
	n notifier.Notifier,
	publisher EventPublisher,
	lang string,
	logger *slog.Logger,
) *Dispatcher {
	return &Dispatcher{
		ledger:    ledger,
		cache:     cache,
		renderer:  renderer,
		notifier:  n,
		publisher: publisher,
		lang:      lang,
		now:       time.Now,
		logger:    logger.With(slog.String("component", "dispatcher")),
	}
}

// alreadyRecorded проверяет наличие записи в журнале.
// В кэш попадают только SENT: FAILED может удалить оператор на любой реплике.
func (d *Dispatcher) alreadyRecorded(ctx context.Context, documentID string, m model.Milestone) (bool, error) {
	if d.cache.Contains(documentID, m) {
		return true, nil
	}
	status, found, err := d.ledger.Lookup(ctx, documentID, m)
	if err != nil {
		return false, fmt.Errorf("проверка журнала отправок: %w", err)
	}
	if found && status == model.DispatchSent {
		d.cache.Mark(documentID, m)
	}
	return found, nil
}

// Dispatch отправляет напоминание для документа, если его ещё нет в журнале.
// Ошибка доставки не возвращается: она фиксируется записью FAILED.
// Возвращаемая ошибка означает сбой журнала или отмену ctx во время отправки.
// При отмене запись не создаётся, ключ остаётся свободным.
func (d *Dispatcher) Dispatch(ctx context.Context, doc *model.Document, m model.Milestone, days int) (DispatchOutcome, error) {
	log := d.logger.With(
		slog.String("document_id", doc.ID),
		slog.String("milestone", string(m)),
		slog.Int("days_to_expiry", days),
	)

	exists, err := d.alreadyRecorded(ctx, doc.ID, m)
	if err != nil {
		return "", err
	}
	if exists {
		log.Debug("Напоминание уже отправлялось, пропуск")
		dispatchTotal.WithLabelValues(string(m), string(OutcomeSkipped)).Inc()
		return OutcomeSkipped, nil
	}

	rec := &model.DispatchRecord{
		ID:           uuid.New().String(),
		DocumentID:   doc.ID,
		Milestone:    m,
		DaysToExpiry: days,
		ExpiryDate:   doc.ExpiryDate,
		AttemptedAt:  d.now().UTC(),
		CreatedBy:    actorFromContext(ctx),
	}

	receipt, sendErr := d.send(ctx, doc, m)
	if sendErr != nil && ctx.Err() != nil {
		log.Warn("Отправка прервана, запись в журнал не создана",
			slog.String("to", doc.ContactEmail),
			slog.String("error", sendErr.Error()),
		)
		return "", fmt.Errorf("отправка прервана (%w): %v", ctx.Err(), sendErr)
	}
	if sendErr != nil {
		rec.Status = model.DispatchFailed
		rec.Error = sendErr.Error()
		log.Warn("Ошибка отправки напоминания",
			slog.String("to", doc.ContactEmail),
			slog.String("error", sendErr.Error()),
		)
	} else {
		sentAt := receipt.SentAt.UTC()
		rec.Status = model.DispatchSent
		rec.MessageID = receipt.MessageID
		rec.Response = receipt.Response
		rec.SentAt = &sentAt
		log.Info("Напоминание отправлено",
			slog.String("to", doc.ContactEmail),
			slog.String("message_id", receipt.MessageID),
		)
	}
	outcome := OutcomeSent
	if rec.Status == model.DispatchFailed {
		outcome = OutcomeFailed
	}
	dispatchTotal.WithLabelValues(string(m), string(outcome)).Inc()

	// Запись итога не должна теряться из-за отмены контекста отправки
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), ledgerWriteTimeout)
	defer cancel()

	if err := d.ledger.Create(writeCtx, rec); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			// Параллельный писатель успел создать запись раньше
			log.Warn("Запись в журнале уже создана другим прогоном")
			return outcome, nil
		}
		ledgerWriteFailuresTotal.Inc()
		log.Error("Ошибка записи в журнал отправок, возможна повторная отправка",
			slog.String("status", string(rec.Status)),
			slog.String("error", err.Error()),
		)
		return outcome, fmt.Errorf("запись итога %s: %w", rec.Status, err)
	}
	if rec.Status == model.DispatchSent {
		d.cache.Mark(doc.ID, m)
	}

	d.publish(writeCtx, rec)
	return outcome, nil
}

// send строит и отправляет сообщение.
func (d *Dispatcher) send(ctx context.Context, doc *model.Document, m model.Milestone) (*notifier.Receipt, error) {
	msg, err := d.renderer.Render(ctx, d.lang, m, doc)
	if err != nil {
		return nil, fmt.Errorf("построение сообщения: %w", err)
	}
	receipt, err := d.notifier.Send(ctx, msg)
	if err != nil {
		return nil, err
	}
	if receipt == nil {
		receipt = &notifier.Receipt{SentAt: d.now()}
	}
	return receipt, nil
}

func (d *Dispatcher) publish(ctx context.Context, rec *model.DispatchRecord) {
	if d.publisher == nil {
		return
	}
	if err := d.publisher.Publish(ctx, events.NewDispatchEvent(rec)); err != nil {
		d.logger.Warn("Ошибка публикации события отправки",
			slog.String("record_id", rec.ID),
			slog.String("error", err.Error()),
		)
	}
}
