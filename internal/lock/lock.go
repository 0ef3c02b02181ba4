package lock

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrNotAcquired is returned when another holder owns the key.
var ErrNotAcquired = errors.New("lease already held")

type Lease interface {
	Release(ctx context.Context) error
}

// Locker hands out short-lived exclusive leases keyed by string. A lease expires on its own
// after ttl so a crashed holder never blocks the key forever.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (Lease, error)
}

// New returns a redis-backed locker when rdb is non-nil, otherwise an in-process one.
func New(rdb *redis.Client) Locker {
	if rdb == nil {
		return NewLocalLocker()
	}
	return NewRedisLocker(rdb)
}

type redisLocker struct {
	rdb *redis.Client
}

func NewRedisLocker(rdb *redis.Client) Locker {
	return &redisLocker{rdb: rdb}
}

// releaseScript deletes the key only if it still carries our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

func (l *redisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (Lease, error) {
	token := uuid.NewString()

	ok, err := l.rdb.SetNX(ctx, "lease:"+key, token, ttl).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotAcquired
	}

	return &redisLease{rdb: l.rdb, key: "lease:" + key, token: token}, nil
}

type redisLease struct {
	rdb   *redis.Client
	key   string
	token string
}

func (l *redisLease) Release(ctx context.Context) error {
	return releaseScript.Run(ctx, l.rdb, []string{l.key}, l.token).Err()
}

type localLocker struct {
	mu     sync.Mutex
	leases map[string]localEntry
	now    func() time.Time
}

type localEntry struct {
	token   string
	expires time.Time
}

func NewLocalLocker() Locker {
	return &localLocker{
		leases: make(map[string]localEntry),
		now:    time.Now,
	}
}

func (l *localLocker) Acquire(_ context.Context, key string, ttl time.Duration) (Lease, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if held, ok := l.leases[key]; ok && now.Before(held.expires) {
		return nil, ErrNotAcquired
	}

	token := uuid.NewString()
	l.leases[key] = localEntry{token: token, expires: now.Add(ttl)}

	return &localLease{locker: l, key: key, token: token}, nil
}

type localLease struct {
	locker *localLocker
	key    string
	token  string
}

func (l *localLease) Release(context.Context) error {
	l.locker.mu.Lock()
	defer l.locker.mu.Unlock()

	if held, ok := l.locker.leases[l.key]; ok && held.token == l.token {
		delete(l.locker.leases, l.key)
	}
	return nil
}
