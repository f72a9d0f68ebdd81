package polling

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"claimgate/internal/constants"
)

// FocusLocker serializes poll cycles per focus. Polls for different foci run
// in parallel; two polls for the same focus must never interleave or an
// adjudication could be applied twice.
type FocusLocker interface {
	Acquire(ctx context.Context, focus string) (release func(context.Context), acquired bool, err error)
}

// releaseScript deletes the lock only when the holder token still matches,
// so an expired lock taken over by another poller is not released by the
// original holder.
const releaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`

type RedisFocusLocker struct {
	client *redis.Client
	ttl    time.Duration
}

func NewFocusLocker(client *redis.Client, ttl time.Duration) *RedisFocusLocker {
	if ttl <= 0 {
		ttl = constants.DefaultFocusLockTTL
	}
	return &RedisFocusLocker{client: client, ttl: ttl}
}

func (l *RedisFocusLocker) Acquire(ctx context.Context, focus string) (func(context.Context), bool, error) {
	key := constants.CacheKeyPrefixFocusLock + focus
	token := uuid.New().String()

	acquired, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("failed to acquire focus lock: %w", err)
	}
	if !acquired {
		return nil, false, nil
	}

	release := func(releaseCtx context.Context) {
		l.client.Eval(releaseCtx, releaseScript, []string{key}, token)
	}
	return release, true, nil
}

// LocalFocusLocker is an in-process fallback for deployments without redis
// and for tests. Per-focus serialization only holds within one process.
type LocalFocusLocker struct {
	held map[string]struct{}
	ch   chan struct{}
}

func NewLocalFocusLocker() *LocalFocusLocker {
	l := &LocalFocusLocker{
		held: make(map[string]struct{}),
		ch:   make(chan struct{}, 1),
	}
	l.ch <- struct{}{}
	return l
}

func (l *LocalFocusLocker) Acquire(ctx context.Context, focus string) (func(context.Context), bool, error) {
	select {
	case <-l.ch:
	case <-ctx.Done():
		return nil, false, ctx.Err()
	}
	defer func() { l.ch <- struct{}{} }()

	if _, taken := l.held[focus]; taken {
		return nil, false, nil
	}
	l.held[focus] = struct{}{}

	release := func(context.Context) {
		<-l.ch
		delete(l.held, focus)
		l.ch <- struct{}{}
	}
	return release, true, nil
}
