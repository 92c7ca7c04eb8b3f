package lock

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupRedis запускает Redis в Docker-контейнере через testcontainers.
func setupRedis(t *testing.T) string {
	t.Helper()

	if os.Getenv("TEST_INTEGRATION") == "" {
		t.Skip("Пропуск интеграционного теста: TEST_INTEGRATION не установлена")
	}

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "docker.io/redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("Не удалось запустить Redis контейнер: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("Ошибка остановки контейнера: %v", err)
		}
	})

	endpoint, err := container.Endpoint(ctx, "")
	if err != nil {
		t.Fatalf("Не удалось получить endpoint контейнера: %v", err)
	}
	return endpoint
}

func TestRedisLocker_MutualExclusion(t *testing.T) {
	addr := setupRedis(t)
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	client := NewRedisClient(addr, "", 0)
	t.Cleanup(func() { _ = client.Close() })

	a := NewRedisLocker(client, "reminder:scan", time.Minute, logger)
	b := NewRedisLocker(client, "reminder:scan", time.Minute, logger)

	if status, msg := a.CheckReady(); status != "ok" {
		t.Fatalf("CheckReady() = %q, %q", status, msg)
	}

	tokenA, ok, err := a.TryAcquire(ctx)
	if err != nil || !ok {
		t.Fatalf("первый TryAcquire() = %v, %v", ok, err)
	}

	if _, ok, err := b.TryAcquire(ctx); err != nil || ok {
		t.Fatalf("второй TryAcquire() при занятой блокировке = %v, %v", ok, err)
	}

	// Чужой токен не освобождает блокировку
	if err := b.Release(ctx, "foreign-token"); !errors.Is(err, ErrNotHeld) {
		t.Errorf("Release() чужим токеном: ошибка = %v, ожидали ErrNotHeld", err)
	}

	if err := a.Release(ctx, tokenA); err != nil {
		t.Fatalf("Release() ошибка: %v", err)
	}

	if _, ok, err := b.TryAcquire(ctx); err != nil || !ok {
		t.Fatalf("TryAcquire() после освобождения = %v, %v", ok, err)
	}
}

func TestRedisLocker_Expiry(t *testing.T) {
	addr := setupRedis(t)
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	client := NewRedisClient(addr, "", 0)
	t.Cleanup(func() { _ = client.Close() })

	l := NewRedisLocker(client, "reminder:scan:ttl", 200*time.Millisecond, logger)

	token, ok, err := l.TryAcquire(ctx)
	if err != nil || !ok {
		t.Fatalf("TryAcquire() = %v, %v", ok, err)
	}

	time.Sleep(400 * time.Millisecond)

	if err := l.Release(ctx, token); !errors.Is(err, ErrNotHeld) {
		t.Errorf("Release() после истечения TTL: ошибка = %v, ожидали ErrNotHeld", err)
	}
}
