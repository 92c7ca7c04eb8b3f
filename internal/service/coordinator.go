// coordinator.go — прогон сканирования: документы → классификатор → отправка.
//
// Ошибка получения списка документов фатальна для прогона.
// Ошибка обработки одного документа логируется и не прерывает прогон.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/sync/errgroup"

	"github.com/bigkaa/expiry-reminder/internal/domain/milestone"
	"github.com/bigkaa/expiry-reminder/internal/domain/model"
	"github.com/bigkaa/expiry-reminder/internal/repository"
)

// Prometheus-метрики прогонов.
var (
	scanRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rm_scan_runs_total",
		Help: "Общее количество прогонов сканирования по источнику и результату.",
	}, []string{"trigger", "result"})

	scanDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "rm_scan_duration_seconds",
		Help:    "Длительность прогона сканирования в секундах",
		Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300, 600},
	})
)

// Результаты прогона для метрик.
const (
	resultOK       = "ok"
	resultPartial  = "partial"
	resultFatal    = "fatal"
	resultAborted  = "aborted"
	resultRejected = "rejected"
)

// documentDispatcher — отправка по одной паре (документ, контрольная точка).
type documentDispatcher interface {
	Dispatch(ctx context.Context, doc *model.Document, m model.Milestone, days int) (DispatchOutcome, error)
}

// CoordinatorConfig — параметры прогона.
type CoordinatorConfig struct {
	// Location — часовой пояс, в котором считаются календарные дни
	Location *time.Location
	// Concurrency — число документов, обрабатываемых параллельно
	Concurrency int
	// DocumentTimeout — ограничение времени на один документ
	DocumentTimeout time.Duration
}

// Coordinator выполняет прогоны сканирования.
type Coordinator struct {
	documents  repository.DocumentRepository
	dispatcher documentDispatcher
	guard      *RunGuard
	cfg        CoordinatorConfig
	now        func() time.Time
	logger     *slog.Logger

	mu   sync.RWMutex
	last *model.RunSummary
}

// NewCoordinator создаёт Coordinator.
func NewCoordinator(
	documents repository.DocumentRepository,
	dispatcher documentDispatcher,
	guard *RunGuard,
	cfg CoordinatorConfig,
	logger *slog.Logger,
) *Coordinator {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	return &Coordinator{
		documents:  documents,
		dispatcher: dispatcher,
		guard:      guard,
		cfg:        cfg,
		now:        time.Now,
		logger:     logger.With(slog.String("component", "coordinator")),
	}
}

// RunScan выполняет один прогон. Возвращает сводку и ошибку уровня прогона:
// ErrRunInProgress, ошибку получения документов или отмену контекста.
// Ошибки отдельных документов учитываются в сводке и не возвращаются.
func (c *Coordinator) RunScan(ctx context.Context, trigger model.Trigger, actor string) (*model.RunSummary, error) {
	release, err := c.guard.Acquire(ctx)
	if err != nil {
		scanRunsTotal.WithLabelValues(string(trigger), resultRejected).Inc()
		return nil, err
	}
	defer release()

	ctx = WithActor(ctx, actor)
	start := c.now()
	summary := &model.RunSummary{Trigger: trigger, StartedAt: start.UTC()}

	c.logger.Info("Прогон сканирования начат",
		slog.String("trigger", string(trigger)),
		slog.String("actor", actor),
	)

	docs, err := c.documents.ListActive(ctx)
	if err != nil {
		summary.FinishedAt = c.now().UTC()
		c.finish(summary, resultFatal)
		c.logger.Error("Прогон прерван: ошибка получения активных документов",
			slog.String("trigger", string(trigger)),
			slog.String("error", err.Error()),
		)
		return summary, fmt.Errorf("получение активных документов: %w", err)
	}
	summary.Documents = len(docs)

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(c.cfg.Concurrency)

	for _, doc := range docs {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			eligible, outcome, err := c.processDocument(ctx, doc, start)

			mu.Lock()
			defer mu.Unlock()
			if eligible {
				summary.Eligible++
			}
			if err != nil {
				summary.Errors++
				return nil
			}
			switch outcome {
			case OutcomeSent:
				summary.Sent++
			case OutcomeFailed:
				summary.Failed++
			case OutcomeSkipped:
				summary.Skipped++
			}
			return nil
		})
	}
	_ = g.Wait()

	summary.FinishedAt = c.now().UTC()

	if err := ctx.Err(); err != nil {
		c.finish(summary, resultAborted)
		c.logger.Warn("Прогон сканирования прерван",
			slog.String("trigger", string(trigger)),
			slog.String("error", err.Error()),
		)
		return summary, fmt.Errorf("прогон прерван: %w", err)
	}

	result := resultOK
	if summary.Errors > 0 || summary.Failed > 0 {
		result = resultPartial
	}
	c.finish(summary, result)

	c.logger.Info("Прогон сканирования завершён",
		slog.String("trigger", string(trigger)),
		slog.Int("documents", summary.Documents),
		slog.Int("eligible", summary.Eligible),
		slog.Int("sent", summary.Sent),
		slog.Int("failed", summary.Failed),
		slog.Int("skipped", summary.Skipped),
		slog.Int("errors", summary.Errors),
		slog.Duration("duration", summary.FinishedAt.Sub(summary.StartedAt)),
	)
	return summary, nil
}

// processDocument классифицирует документ и отправляет напоминание.
// Паника при обработке документа превращается в ошибку этого документа.
func (c *Coordinator) processDocument(ctx context.Context, doc *model.Document, now time.Time) (eligible bool, outcome DispatchOutcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("паника при обработке документа: %v", r)
			c.logger.Error("Ошибка обработки документа",
				slog.String("document_id", doc.ID),
				slog.String("error", err.Error()),
			)
		}
	}()

	days := milestone.DaysToExpiry(doc.ExpiryDate, now, c.cfg.Location)
	m, ok := milestone.Classify(days)
	if !ok {
		return false, "", nil
	}

	docCtx := ctx
	if c.cfg.DocumentTimeout > 0 {
		var cancel context.CancelFunc
		docCtx, cancel = context.WithTimeout(ctx, c.cfg.DocumentTimeout)
		defer cancel()
	}

	outcome, err = c.dispatcher.Dispatch(docCtx, doc, m, days)
	if err != nil {
		c.logger.Error("Ошибка обработки документа",
			slog.String("document_id", doc.ID),
			slog.String("milestone", string(m)),
			slog.Int("days_to_expiry", days),
			slog.String("error", err.Error()),
		)
		return true, "", err
	}
	return true, outcome, nil
}

// finish обновляет метрики и последнюю сводку.
func (c *Coordinator) finish(summary *model.RunSummary, result string) {
	scanRunsTotal.WithLabelValues(string(summary.Trigger), result).Inc()
	scanDurationSeconds.Observe(summary.FinishedAt.Sub(summary.StartedAt).Seconds())

	snapshot := *summary
	c.mu.Lock()
	c.last = &snapshot
	c.mu.Unlock()
}

// LastRun возвращает сводку последнего завершённого прогона или nil.
func (c *Coordinator) LastRun() *model.RunSummary {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.last == nil {
		return nil
	}
	snapshot := *c.last
	return &snapshot
}

// InProgress сообщает, выполняется ли прогон.
func (c *Coordinator) InProgress() bool {
	return c.guard.InProgress()
}
