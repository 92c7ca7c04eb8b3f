// guard.go — защита от параллельных прогонов сканирования.
// Внутри процесса — мьютекс без ожидания (TryLock). Между репликами —
// необязательная распределённая блокировка (Redis).
package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// DistributedLock — блокировка, общая для всех реплик сервиса.
type DistributedLock interface {
	TryAcquire(ctx context.Context) (token string, ok bool, err error)
	Release(ctx context.Context, token string) error
}

// RunGuard — нереентерабельный guard прогона.
// Второй вызов Acquire до release получает ErrRunInProgress.
type RunGuard struct {
	mu      sync.Mutex
	running atomic.Bool
	lease   DistributedLock
	logger  *slog.Logger
}

// NewRunGuard создаёт guard. lease может быть nil (одна реплика).
func NewRunGuard(lease DistributedLock, logger *slog.Logger) *RunGuard {
	return &RunGuard{
		lease:  lease,
		logger: logger.With(slog.String("component", "run_guard")),
	}
}

// Acquire захватывает guard без ожидания.
// Недоступность распределённой блокировки не блокирует прогон:
// пропущенная контрольная точка хуже повторного письма.
func (g *RunGuard) Acquire(ctx context.Context) (release func(), err error) {
	if !g.mu.TryLock() {
		return nil, ErrRunInProgress
	}

	token := ""
	if g.lease != nil {
		var ok bool
		token, ok, err = g.lease.TryAcquire(ctx)
		switch {
		case err != nil:
			g.logger.Error("Распределённая блокировка недоступна, прогон без неё",
				slog.String("error", err.Error()),
			)
			token = ""
		case !ok:
			g.mu.Unlock()
			return nil, fmt.Errorf("%w: прогон выполняет другая реплика", ErrRunInProgress)
		}
	}

	g.running.Store(true)
	var once sync.Once
	return func() {
		once.Do(func() {
			if token != "" {
				relCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
				defer cancel()
				if err := g.lease.Release(relCtx, token); err != nil {
					g.logger.Warn("Ошибка освобождения распределённой блокировки",
						slog.String("error", err.Error()),
					)
				}
			}
			g.running.Store(false)
			g.mu.Unlock()
		})
	}, nil
}

// InProgress сообщает, выполняется ли прогон в этом процессе.
func (g *RunGuard) InProgress() bool {
	return g.running.Load()
}
