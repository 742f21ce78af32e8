package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const defaultLockTTL = 55 * time.Minute

// Release frees a lock obtained from a Locker.
type Release func(ctx context.Context) error

// Locker hands out one lock per job name so two cron replicas never run the
// same job concurrently.
type Locker interface {
	TryLock(ctx context.Context, name string) (Release, bool, error)
}

type redisStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	ReleaseIfOwner(ctx context.Context, key, owner string) (bool, error)
}

// RedisLocker implements Locker with SET NX and a random owner token. The
// TTL bounds how long a crashed replica can hold a job.
type RedisLocker struct {
	client redisStore
	keyFor func(name string) string
	ttl    time.Duration
}

func NewRedisLocker(client redisStore, keyFor func(name string) string, ttl time.Duration) (*RedisLocker, error) {
	if client == nil {
		return nil, errors.New("redis client required for lock")
	}
	if keyFor == nil {
		return nil, errors.New("lock key builder required")
	}
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &RedisLocker{client: client, keyFor: keyFor, ttl: ttl}, nil
}

func (l *RedisLocker) TryLock(ctx context.Context, name string) (Release, bool, error) {
	key := l.keyFor(name)
	owner := uuid.NewString()
	ok, err := l.client.SetNX(ctx, key, owner, l.ttl)
	if err != nil {
		return nil, false, fmt.Errorf("setnx %s: %w", key, err)
	}
	if !ok {
		return nil, false, nil
	}
	release := func(ctx context.Context) error {
		_, err := l.client.ReleaseIfOwner(ctx, key, owner)
		return err
	}
	return release, true, nil
}
