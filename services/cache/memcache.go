package cache

import (
	"errors"
	"time"

	"sjsage522/bestdeal/logger"
	apperrors "sjsage522/bestdeal/pkg/errors"

	"github.com/bradfitz/gomemcache/memcache"
)

// MemcacheService implements CacheService using memcache
type MemcacheService struct {
	client *memcache.Client
	prefix string
}

// NewMemcacheService creates a new memcache service. Keys are namespaced with prefix.
func NewMemcacheService(serverAddr, prefix string) *MemcacheService {
	logger.ForCache().Debug().Str("addr", serverAddr).Str("prefix", prefix).Msg("Memcache client created")
	return &MemcacheService{
		client: memcache.New(serverAddr),
		prefix: prefix,
	}
}

// Ping checks that at least one memcache server answers.
func (m *MemcacheService) Ping() error {
	if err := m.client.Ping(); err != nil {
		return apperrors.NewCache("memcache", "ping failed", err)
	}
	return nil
}

// Get retrieves a value from memcache
func (m *MemcacheService) Get(key string) ([]byte, error) {
	item, err := m.client.Get(m.prefix + key)
	if err != nil {
		if errors.Is(err, memcache.ErrCacheMiss) {
			return nil, ErrCacheMiss
		}
		return nil, apperrors.NewCache("memcache", "get "+key, err)
	}
	return item.Value, nil
}

// Set stores a value in memcache with an expiration time
func (m *MemcacheService) Set(key string, value []byte, expiration time.Duration) error {
	err := m.client.Set(m.item(key, value, expiration))
	if err != nil {
		return apperrors.NewCache("memcache", "set "+key, err)
	}
	return nil
}

// Add stores a value unless the key already exists
func (m *MemcacheService) Add(key string, value []byte, expiration time.Duration) error {
	err := m.client.Add(m.item(key, value, expiration))
	if err != nil {
		if errors.Is(err, memcache.ErrNotStored) {
			return ErrNotStored
		}
		return apperrors.NewCache("memcache", "add "+key, err)
	}
	return nil
}

// Delete removes a value from memcache. Deleting a missing key is not an error.
func (m *MemcacheService) Delete(key string) error {
	err := m.client.Delete(m.prefix + key)
	if err != nil && !errors.Is(err, memcache.ErrCacheMiss) {
		return apperrors.NewCache("memcache", "delete "+key, err)
	}
	return nil
}

func (m *MemcacheService) item(key string, value []byte, expiration time.Duration) *memcache.Item {
	return &memcache.Item{
		Key:        m.prefix + key,
		Value:      value,
		Expiration: int32(expiration.Seconds()),
	}
}
