package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/communal/backend/internal/domain/billing"
)

// DefaultLockKeyPrefix prefixes advisory lock keys
const DefaultLockKeyPrefix = "billing:lock:"

// ErrInvalidTTL is returned for a non-positive lock lifetime
var ErrInvalidTTL = errors.New("cache: lock ttl must be positive")

// Locker hands out short advisory locks. ok is false when someone else holds
// the key. release is safe to call more than once and never frees a lock
// that was taken over after expiry.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (release func(), ok bool, err error)
}

// BillingLockKey returns the lock key of a house and period
func BillingLockKey(houseID int64, period billing.Period) string {
	return fmt.Sprintf("%d:%s", houseID, period.String())
}

// releaseScript deletes the key only while it still carries our token
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker implements Locker with SET NX PX and a token checked on release
type RedisLocker struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisLocker creates a locker on an existing client
func NewRedisLocker(client *redis.Client, keyPrefix string) *RedisLocker {
	if keyPrefix == "" {
		keyPrefix = DefaultLockKeyPrefix
	}
	return &RedisLocker{client: client, keyPrefix: keyPrefix}
}

// TryLock acquires key without waiting
func (l *RedisLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (func(), bool, error) {
	if ttl <= 0 {
		return nil, false, ErrInvalidTTL
	}
	fullKey := l.keyPrefix + key
	token := uuid.NewString()

	acquired, err := l.client.SetNX(ctx, fullKey, token, ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("failed to acquire lock %s: %w", key, err)
	}
	if !acquired {
		return nil, false, nil
	}

	var once sync.Once
	release := func() {
		once.Do(func() {
			// the caller's context may already be done
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = releaseScript.Run(ctx, l.client, []string{fullKey}, token).Err()
		})
	}
	return release, true, nil
}

var _ Locker = (*RedisLocker)(nil)

type lockEntry struct {
	token     string
	expiresAt time.Time
}

// InMemoryLocker implements Locker for a single process
type InMemoryLocker struct {
	mu    sync.Mutex
	locks map[string]lockEntry
	now   func() time.Time
}

// NewInMemoryLocker creates an empty locker
func NewInMemoryLocker() *InMemoryLocker {
	return &InMemoryLocker{
		locks: make(map[string]lockEntry),
		now:   time.Now,
	}
}

// TryLock acquires key without waiting
func (l *InMemoryLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (func(), bool, error) {
	if ttl <= 0 {
		return nil, false, ErrInvalidTTL
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if e, held := l.locks[key]; held && now.Before(e.expiresAt) {
		return nil, false, nil
	}

	token := uuid.NewString()
	l.locks[key] = lockEntry{token: token, expiresAt: now.Add(ttl)}

	var once sync.Once
	release := func() {
		once.Do(func() {
			l.mu.Lock()
			defer l.mu.Unlock()
			if e, ok := l.locks[key]; ok && e.token == token {
				delete(l.locks, key)
			}
		})
	}
	return release, true, nil
}

var _ Locker = (*InMemoryLocker)(nil)
