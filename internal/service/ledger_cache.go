// ledger_cache.go — LRU-кэш ключей журнала отправок с TTL.
// Хранит только ключи (документ, контрольная точка) с записью SENT: такие записи
// не удаляются, поэтому кэш согласован между репликами. FAILED всегда читается
// из PostgreSQL. Промах тоже проверяется в PostgreSQL, поэтому кэш не может
// привести к повторной отправке.
package service

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/expiry-reminder/internal/domain/model"
)

// Prometheus-метрики кэша.
var (
	ledgerCacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rm_ledger_cache_hits_total",
		Help: "Общее количество попаданий в кэш журнала отправок.",
	})
	ledgerCacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rm_ledger_cache_misses_total",
		Help: "Общее количество промахов кэша журнала отправок.",
	})
)

// LedgerCache — per-instance кэш существующих записей журнала.
// Нулевой указатель допустим: все методы работают как пустой кэш.
type LedgerCache struct {
	cache *expirable.LRU[string, struct{}]
}

// NewLedgerCache создаёт кэш с максимальным размером maxSize и временем жизни ttl.
func NewLedgerCache(maxSize int, ttl time.Duration) *LedgerCache {
	return &LedgerCache{
		cache: expirable.NewLRU[string, struct{}](maxSize, nil, ttl),
	}
}

func ledgerKey(documentID string, m model.Milestone) string {
	return documentID + "|" + string(m)
}

// Contains сообщает, известно ли о записи для пары (документ, точка).
func (c *LedgerCache) Contains(documentID string, m model.Milestone) bool {
	if c == nil {
		return false
	}
	if _, ok := c.cache.Get(ledgerKey(documentID, m)); ok {
		ledgerCacheHitsTotal.Inc()
		return true
	}
	ledgerCacheMissesTotal.Inc()
	return false
}

// Mark запоминает, что запись для пары существует.
func (c *LedgerCache) Mark(documentID string, m model.Milestone) {
	if c == nil {
		return
	}
	c.cache.Add(ledgerKey(documentID, m), struct{}{})
}

// Forget удаляет пару из кэша (после удаления записи оператором).
func (c *LedgerCache) Forget(documentID string, m model.Milestone) {
	if c == nil {
		return
	}
	c.cache.Remove(ledgerKey(documentID, m))
}

// Len возвращает количество ключей в кэше.
func (c *LedgerCache) Len() int {
	if c == nil {
		return 0
	}
	return c.cache.Len()
}
