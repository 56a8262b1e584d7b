// Пакет service — бизнес-логика Manupedia Backend.
// CacheService — LRU-кэш манускриптов с TTL.
// Обёртка над hashicorp/golang-lru/v2/expirable.
package service

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/manupedia/manupedia-backend/internal/domain/model"
)

// Prometheus-метрики кэша.
var (
	cacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mp_cache_hits_total",
		Help: "Общее количество попаданий в LRU-кэш манускриптов.",
	})
	cacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mp_cache_misses_total",
		Help: "Общее количество промахов LRU-кэша манускриптов.",
	})
)

// CacheService — LRU-кэш прочитанных манускриптов с автоматическим TTL.
// In-memory per-instance кэш, инвалидируется при любой мутации записи.
type CacheService struct {
	cache *expirable.LRU[int64, *model.Manuscript]
}

// NewCacheService создаёт LRU-кэш с указанным максимальным размером и TTL.
func NewCacheService(maxSize int, ttl time.Duration) *CacheService {
	cache := expirable.NewLRU[int64, *model.Manuscript](maxSize, nil, ttl)
	return &CacheService{cache: cache}
}

// Get возвращает манускрипт из кэша по id.
// Возвращает (запись, true) при hit или (nil, false) при miss.
// Обновляет Prometheus-метрики hit/miss.
func (c *CacheService) Get(id int64) (*model.Manuscript, bool) {
	val, ok := c.cache.Get(id)
	if ok {
		cacheHitsTotal.Inc()
		return val, true
	}
	cacheMissesTotal.Inc()
	return nil, false
}

// Set добавляет или обновляет запись в кэше.
func (c *CacheService) Set(id int64, m *model.Manuscript) {
	c.cache.Add(id, m)
}

// Delete удаляет запись из кэша (инвалидация при мутации).
func (c *CacheService) Delete(id int64) {
	c.cache.Remove(id)
}
