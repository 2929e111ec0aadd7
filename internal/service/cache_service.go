package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/taskmarket-backend/internal/models"
)

// CacheService кэш в памяти с TTL.
type CacheService struct {
	mu    sync.RWMutex
	cache map[string]*cacheEntry
	now   func() time.Time
}

type cacheEntry struct {
	data      interface{}
	expiresAt time.Time
}

// NewCacheService создаёт пустой кэш. Просроченные записи чистит Run.
func NewCacheService() *CacheService {
	return &CacheService{
		cache: make(map[string]*cacheEntry),
		now:   time.Now,
	}
}

// Get возвращает значение, если оно ещё не просрочено.
func (cs *CacheService) Get(key string) (interface{}, bool) {
	cs.mu.RLock()
	defer cs.mu.RUnlock()

	entry, exists := cs.cache[key]
	if !exists || cs.now().After(entry.expiresAt) {
		return nil, false
	}
	return entry.data, true
}

// Set сохраняет значение на ttl.
func (cs *CacheService) Set(key string, value interface{}, ttl time.Duration) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	cs.cache[key] = &cacheEntry{
		data:      value,
		expiresAt: cs.now().Add(ttl),
	}
}

// Delete удаляет ключ.
func (cs *CacheService) Delete(key string) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	delete(cs.cache, key)
}

// InvalidateByPrefix удаляет все ключи с префиксом.
func (cs *CacheService) InvalidateByPrefix(prefix string) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	for key := range cs.cache {
		if strings.HasPrefix(key, prefix) {
			delete(cs.cache, key)
		}
	}
}

// GetOrSet возвращает значение из кэша или вычисляет и сохраняет его.
// Ошибки не кэшируются.
func (cs *CacheService) GetOrSet(key string, ttl time.Duration, fn func() (interface{}, error)) (interface{}, error) {
	if value, found := cs.Get(key); found {
		return value, nil
	}

	value, err := fn()
	if err != nil {
		return nil, err
	}
	cs.Set(key, value, ttl)
	return value, nil
}

// Run периодически удаляет просроченные записи до отмены контекста.
func (cs *CacheService) Run(ctx context.Context) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cs.cleanup()
		}
	}
}

func (cs *CacheService) cleanup() {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	now := cs.now()
	for key, entry := range cs.cache {
		if now.After(entry.expiresAt) {
			delete(cs.cache, key)
		}
	}
}

// UserCacheKey ключ пользователя в кэше.
func UserCacheKey(userID uuid.UUID) string {
	return "user:" + userID.String()
}

// CachedUsers читает пользователей через кэш. Используется для рассылки писем,
// где устаревшее на несколько минут имя не важно.
type CachedUsers struct {
	users UserReader
	cache *CacheService
	ttl   time.Duration
}

// NewCachedUsers оборачивает UserReader.
func NewCachedUsers(users UserReader, cache *CacheService, ttl time.Duration) *CachedUsers {
	return &CachedUsers{users: users, cache: cache, ttl: ttl}
}

// GetByID возвращает пользователя из кэша или репозитория.
func (c *CachedUsers) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	value, err := c.cache.GetOrSet(UserCacheKey(id), c.ttl, func() (interface{}, error) {
		return c.users.GetByID(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	user := *value.(*models.User)
	return &user, nil
}

// Invalidate сбрасывает запись пользователя.
func (c *CachedUsers) Invalidate(id uuid.UUID) {
	c.cache.Delete(UserCacheKey(id))
}
