package service

import (
	"context"
	"errors"
	"testing"
)

func TestRunGuard_NonReentrant(t *testing.T) {
	g := NewRunGuard(nil, testLogger())

	release, err := g.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire() ошибка: %v", err)
	}
	if !g.InProgress() {
		t.Error("InProgress() = false после Acquire")
	}

	if _, err := g.Acquire(context.Background()); !errors.Is(err, ErrRunInProgress) {
		t.Errorf("повторный Acquire(): ошибка = %v, ожидали ErrRunInProgress", err)
	}

	release()
	release() // повторный вызов безопасен

	if g.InProgress() {
		t.Error("InProgress() = true после release")
	}
	release2, err := g.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire() после release: %v", err)
	}
	release2()
}

func TestRunGuard_DistributedLock(t *testing.T) {
	lease := &fakeLock{}
	g := NewRunGuard(lease, testLogger())

	release, err := g.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire() ошибка: %v", err)
	}
	if !lease.held {
		t.Error("распределённая блокировка не захвачена")
	}
	release()
	if lease.held || lease.released != 1 {
		t.Errorf("блокировка не освобождена: held=%v released=%d", lease.held, lease.released)
	}
}

// TestRunGuard_HeldByOtherReplica — блокировку держит другая реплика.
func TestRunGuard_HeldByOtherReplica(t *testing.T) {
	lease := &fakeLock{held: true}
	g := NewRunGuard(lease, testLogger())

	if _, err := g.Acquire(context.Background()); !errors.Is(err, ErrRunInProgress) {
		t.Fatalf("Acquire(): ошибка = %v, ожидали ErrRunInProgress", err)
	}

	// Локальный мьютекс освобождён
	lease.held = false
	release, err := g.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire() после освобождения другой репликой: %v", err)
	}
	release()
}

// TestRunGuard_LockUnavailable — Redis недоступен: прогон выполняется.
func TestRunGuard_LockUnavailable(t *testing.T) {
	lease := &fakeLock{err: errors.New("dial tcp: connection refused")}
	g := NewRunGuard(lease, testLogger())

	release, err := g.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire() при недоступной блокировке: %v", err)
	}
	release()
	if lease.released != 0 {
		t.Error("Release() вызван без захвата")
	}
}
