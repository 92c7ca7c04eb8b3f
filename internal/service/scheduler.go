// scheduler.go — ежедневный запуск прогона по расписанию (robfig/cron).
//
// Scheduler — явный объект с собственным жизненным циклом: создаётся
// в main и передаётся в HTTP-обработчики. Ручной запуск (RunNow)
// идёт через тот же Coordinator.RunScan, что и запуск по расписанию.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/bigkaa/expiry-reminder/internal/domain/model"
)

// scanRunner — выполнение прогонов (реализуется Coordinator).
type scanRunner interface {
	RunScan(ctx context.Context, trigger model.Trigger, actor string) (*model.RunSummary, error)
	LastRun() *model.RunSummary
	InProgress() bool
}

// cronLogger — адаптер slog для cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(msg, append(keysAndValues, "error", err.Error())...)
}

// SchedulerStatus — состояние планировщика.
type SchedulerStatus struct {
	// Enabled — запущен ли запуск по расписанию
	Enabled bool
	// Schedule — cron-выражение
	Schedule string
	// Timezone — часовой пояс расписания
	Timezone string
	// NextRun — время следующего запуска (nil, если планировщик остановлен)
	NextRun *time.Time
	// InProgress — выполняется ли прогон
	InProgress bool
	// LastRun — сводка последнего прогона
	LastRun *model.RunSummary
}

// Scheduler — ежедневный триггер прогона сканирования.
type Scheduler struct {
	runner  scanRunner
	cron    *cron.Cron
	entryID cron.EntryID
	spec    string
	loc     *time.Location
	logger  *slog.Logger

	mu      sync.Mutex
	started bool
	runCtx  context.Context
	cancel  context.CancelFunc
}

// NewScheduler создаёт планировщик с cron-выражением spec в часовом поясе loc.
func NewScheduler(runner scanRunner, spec string, loc *time.Location, logger *slog.Logger) (*Scheduler, error) {
	if loc == nil {
		loc = time.UTC
	}
	s := &Scheduler{
		runner: runner,
		spec:   spec,
		loc:    loc,
		logger: logger.With(slog.String("component", "scheduler")),
		runCtx: context.Background(),
	}

	adapter := cronLogger{logger: s.logger}
	s.cron = cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(adapter),
		cron.WithChain(cron.Recover(adapter)),
	)

	id, err := s.cron.AddFunc(spec, s.fire)
	if err != nil {
		return nil, fmt.Errorf("некорректное расписание %q: %w", spec, err)
	}
	s.entryID = id
	return s, nil
}

// Start запускает ежедневные прогоны. Повторный вызов ничего не делает.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}

	s.runCtx, s.cancel = context.WithCancel(ctx)
	s.cron.Start()
	s.started = true

	s.logger.Info("Планировщик запущен",
		slog.String("schedule", s.spec),
		slog.String("timezone", s.loc.String()),
		slog.Time("next_run", s.cron.Entry(s.entryID).Next),
	)
}

// Stop отменяет будущие запуски и ждёт завершения текущего прогона
// до истечения ctx. После истечения ctx текущий прогон отменяется.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = false
	cancel := s.cancel
	s.mu.Unlock()

	done := s.cron.Stop()
	defer cancel()

	select {
	case <-done.Done():
		s.logger.Info("Планировщик остановлен")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Планировщик остановлен без ожидания текущего прогона")
		return ctx.Err()
	}
}

// fire — задание cron.
func (s *Scheduler) fire() {
	s.mu.Lock()
	ctx := s.runCtx
	s.mu.Unlock()

	_, err := s.runner.RunScan(ctx, model.TriggerSchedule, model.SystemActor)
	switch {
	case errors.Is(err, ErrRunInProgress):
		s.logger.Info("Прогон по расписанию пропущен: уже выполняется другой прогон",
			slog.String("reason", err.Error()),
		)
	case err != nil:
		s.logger.Error("Прогон по расписанию завершился ошибкой",
			slog.String("error", err.Error()),
		)
	}
}

// RunNow запускает прогон синхронно (ручной запуск).
// Если прогон уже выполняется, возвращает ErrRunInProgress.
func (s *Scheduler) RunNow(ctx context.Context, actor string) (*model.RunSummary, error) {
	return s.runner.RunScan(ctx, model.TriggerManual, actor)
}

// Status возвращает состояние планировщика.
func (s *Scheduler) Status() SchedulerStatus {
	s.mu.Lock()
	started := s.started
	s.mu.Unlock()

	st := SchedulerStatus{
		Enabled:    started,
		Schedule:   s.spec,
		Timezone:   s.loc.String(),
		InProgress: s.runner.InProgress(),
		LastRun:    s.runner.LastRun(),
	}
	if started {
		if next := s.cron.Entry(s.entryID).Next; !next.IsZero() {
			st.NextRun = &next
		}
	}
	return st
}

// CheckReady сообщает состояние планировщика для /health/ready.
func (s *Scheduler) CheckReady() (status string, message string) {
	st := s.Status()
	if !st.Enabled {
		return "degraded", "запуск по расписанию отключён"
	}
	if st.NextRun == nil {
		return "degraded", "время следующего запуска неизвестно"
	}
	return "ok", fmt.Sprintf("следующий запуск %s", st.NextRun.Format(time.RFC3339))
}
