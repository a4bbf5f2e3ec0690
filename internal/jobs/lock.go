package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Locker hands out named, non-blocking locks so that a job never overlaps
// with another run of itself.
type Locker interface {
	// TryLock returns ok=false without waiting when the lock is held. The
	// returned unlock must be called once the run is over.
	TryLock(ctx context.Context, name string, ttl time.Duration) (unlock func(), ok bool, err error)
}

// LocalLocker serialises runs inside one process.
type LocalLocker struct {
	mu   sync.Mutex
	held map[string]bool
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{held: make(map[string]bool)}
}

func (l *LocalLocker) TryLock(ctx context.Context, name string, ttl time.Duration) (func(), bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.held[name] {
		return nil, false, nil
	}
	l.held[name] = true

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, name)
			l.mu.Unlock()
		})
	}, true, nil
}

// releaseScript deletes the key only while it still holds our token, so an
// expired lock taken over by another instance is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker extends the in-process lock with a redis key shared by every
// instance of the service.
type RedisLocker struct {
	client *redis.Client
	local  *LocalLocker
	prefix string
	logger *zap.Logger
}

func NewRedisLocker(client *redis.Client, prefix string, logger *zap.Logger) *RedisLocker {
	return &RedisLocker{
		client: client,
		local:  NewLocalLocker(),
		prefix: prefix,
		logger: logger,
	}
}

func (l *RedisLocker) key(name string) string {
	return fmt.Sprintf("%s:%s", l.prefix, name)
}

func (l *RedisLocker) TryLock(ctx context.Context, name string, ttl time.Duration) (func(), bool, error) {
	unlockLocal, ok, err := l.local.TryLock(ctx, name, ttl)
	if err != nil || !ok {
		return nil, ok, err
	}

	key := l.key(name)
	token := uuid.NewString()
	acquired, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		unlockLocal()
		return nil, false, fmt.Errorf("failed to acquire job lock %s: %w", name, err)
	}
	if !acquired {
		unlockLocal()
		return nil, false, nil
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := releaseScript.Run(releaseCtx, l.client, []string{key}, token).Err(); err != nil {
				l.logger.Warn("Failed to release job lock", zap.String("key", key), zap.Error(err))
			}
			unlockLocal()
		})
	}, true, nil
}

// NewLocker returns a RedisLocker when client answers a ping and a
// LocalLocker otherwise.
func NewLocker(ctx context.Context, client *redis.Client, logger *zap.Logger) Locker {
	if client == nil {
		logger.Warn("Redis not configured, job locks are process-local")
		return NewLocalLocker()
	}
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn("Redis unavailable, job locks are process-local", zap.Error(err))
		return NewLocalLocker()
	}
	return NewRedisLocker(client, "teomarket:jobs:lock", logger)
}
