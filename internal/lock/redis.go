// Пакет lock — распределённая блокировка прогона сканирования на Redis.
// Нужна, когда запущено несколько реплик сервиса: прогон выполняет только
// та реплика, которая захватила ключ.
package lock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript удаляет ключ, только если он всё ещё принадлежит владельцу.
// KEYS[1] = ключ блокировки
// ARGV[1] = токен владельца
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
    return redis.call("DEL", KEYS[1])
end
return 0
`)

// ErrNotHeld — блокировка уже не принадлежит владельцу (истёк TTL).
var ErrNotHeld = errors.New("блокировка не удерживается")

// RedisLocker — блокировка через SET NX PX с токеном владельца.
type RedisLocker struct {
	client redis.UniversalClient
	key    string
	ttl    time.Duration
	logger *slog.Logger
}

// NewRedisClient создаёт клиент Redis.
func NewRedisClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

// NewRedisLocker создаёт блокировку на ключе key с временем жизни ttl.
// TTL должен превышать максимальную длительность прогона.
func NewRedisLocker(client redis.UniversalClient, key string, ttl time.Duration, logger *slog.Logger) *RedisLocker {
	return &RedisLocker{
		client: client,
		key:    key,
		ttl:    ttl,
		logger: logger.With(slog.String("component", "redis_lock")),
	}
}

// TryAcquire пытается захватить блокировку без ожидания.
// Возвращает токен владельца и true при успехе.
func (l *RedisLocker) TryAcquire(ctx context.Context) (string, bool, error) {
	token := uuid.New().String()

	ok, err := l.client.SetNX(ctx, l.key, token, l.ttl).Result()
	if err != nil {
		return "", false, fmt.Errorf("захват блокировки %s: %w", l.key, err)
	}
	if !ok {
		l.logger.Debug("Блокировка занята другим владельцем", slog.String("key", l.key))
		return "", false, nil
	}
	return token, true, nil
}

// Release освобождает блокировку, если она ещё принадлежит token.
func (l *RedisLocker) Release(ctx context.Context, token string) error {
	n, err := releaseScript.Run(ctx, l.client, []string{l.key}, token).Int()
	if err != nil {
		return fmt.Errorf("освобождение блокировки %s: %w", l.key, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotHeld, l.key)
	}
	return nil
}

// CheckReady проверяет доступность Redis.
func (l *RedisLocker) CheckReady() (status string, message string) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := l.client.Ping(ctx).Err(); err != nil {
		return "degraded", fmt.Sprintf("Redis недоступен: %v", err)
	}
	return "ok", "подключение активно"
}
