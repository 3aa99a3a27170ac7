package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

var ErrLockFailed = errors.New("acquire distributed lock failed")

// unlockScript deletes the key only while it still holds our token.
var unlockScript = redis.NewScript(`
	if redis.call("GET", KEYS[1]) == ARGV[1] then
		return redis.call("DEL", KEYS[1])
	else
		return 0
	end
`)

// DistributedLock is a SET NX EX lock on a single redis key. The value is a
// per-holder token so an expired holder cannot release someone else's lock.
type DistributedLock struct {
	client     redis.Cmdable
	key        string
	value      string
	expiration time.Duration
}

func NewDistributedLock(client redis.Cmdable, key, value string, expiration time.Duration) *DistributedLock {
	return &DistributedLock{
		client:     client,
		key:        key,
		value:      value,
		expiration: expiration,
	}
}

func (l *DistributedLock) Key() string {
	return l.key
}

// TryLock makes one attempt and reports whether the lock was taken.
func (l *DistributedLock) TryLock(ctx context.Context) (bool, error) {
	return l.client.SetNX(ctx, l.key, l.value, l.expiration).Result()
}

// Lock retries TryLock every retryInterval, at most maxRetries times.
func (l *DistributedLock) Lock(ctx context.Context, retryInterval time.Duration, maxRetries int) error {
	for i := 0; i < maxRetries; i++ {
		ok, err := l.TryLock(ctx)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryInterval):
		}
	}
	return ErrLockFailed
}

func (l *DistributedLock) Unlock(ctx context.Context) error {
	return unlockScript.Run(ctx, l.client, []string{l.key}, l.value).Err()
}

// NewChargeLock serialises processing of one payment charge across hosts.
func NewChargeLock(client redis.Cmdable, chargeID string) *DistributedLock {
	return NewDistributedLock(client, fmt.Sprintf("pay:lock:charge:%s", chargeID), uuid.NewString(), 30*time.Second)
}

// NewRefundLock serialises refunds of one charge.
func NewRefundLock(client redis.Cmdable, chargeID string) *DistributedLock {
	return NewDistributedLock(client, fmt.Sprintf("refund:lock:charge:%s", chargeID), uuid.NewString(), 30*time.Second)
}
