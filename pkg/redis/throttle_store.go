package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/valkey-io/valkey-go"

	"github.com/onurcolak/outreach-sequencer/internal/domain"
)

const (
	throttleStateKeyPrefix = "throttle:state:"
	throttleLockKeyPrefix  = "throttle:lock:"
	lockRetryInterval      = 10 * time.Millisecond
)

var ErrLockTimeout = errors.New("timed out waiting for throttle lock")

// releaseLock deletes the lock only if it is still ours.
var releaseLock = valkey.NewLuaScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// ThrottleStore keeps per-sender budgets in Valkey for deployments where
// several engine instances share one sender. Each update holds a short
// per-sender lock; the lock expires on its own if the holder dies.
type ThrottleStore struct {
	client      valkey.Client
	lockTTL     time.Duration
	lockTimeout time.Duration
}

func (c *Client) NewThrottleStore(lockTTL time.Duration) *ThrottleStore {
	if lockTTL <= 0 {
		lockTTL = 2 * time.Second
	}
	return &ThrottleStore{
		client:      c.client,
		lockTTL:     lockTTL,
		lockTimeout: 3 * lockTTL,
	}
}

func (s *ThrottleStore) Update(
	ctx context.Context,
	sender string,
	defaults domain.ThrottleState,
	fn func(state *domain.ThrottleState) bool,
) (*domain.ThrottleState, error) {
	lockKey := throttleLockKeyPrefix + sender
	token := uuid.NewString()

	if err := s.acquire(ctx, lockKey, token); err != nil {
		return nil, err
	}
	defer func() {
		// The caller's ctx may already be done; the lock must still go.
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
		defer cancel()
		_ = releaseLock.Exec(releaseCtx, s.client, []string{lockKey}, []string{token}).Error()
	}()

	state, err := s.Get(ctx, sender)
	if err != nil {
		return nil, err
	}
	if state == nil {
		state = &defaults
	}

	if !fn(state) {
		return state, nil
	}

	data, err := json.Marshal(state)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal throttle state: %w", err)
	}

	err = s.client.Do(ctx, s.client.B().Set().Key(throttleStateKeyPrefix+sender).Value(string(data)).Build()).Error()
	if err != nil {
		return nil, fmt.Errorf("failed to store throttle state: %w", err)
	}

	return state, nil
}

func (s *ThrottleStore) Get(ctx context.Context, sender string) (*domain.ThrottleState, error) {
	result := s.client.Do(ctx, s.client.B().Get().Key(throttleStateKeyPrefix+sender).Build())
	if result.Error() != nil {
		if valkey.IsValkeyNil(result.Error()) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get throttle state: %w", result.Error())
	}

	data, err := result.ToString()
	if err != nil {
		return nil, fmt.Errorf("failed to read throttle state: %w", err)
	}

	var state domain.ThrottleState
	if err := json.Unmarshal([]byte(data), &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal throttle state: %w", err)
	}

	return &state, nil
}

func (s *ThrottleStore) acquire(ctx context.Context, key, token string) error {
	deadline := time.Now().Add(s.lockTimeout)

	for {
		err := s.client.Do(ctx, s.client.B().Set().Key(key).Value(token).Nx().PxMilliseconds(s.lockTTL.Milliseconds()).Build()).Error()
		if err == nil {
			return nil
		}
		if !valkey.IsValkeyNil(err) {
			return fmt.Errorf("failed to acquire throttle lock: %w", err)
		}

		if time.Now().After(deadline) {
			return ErrLockTimeout
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(lockRetryInterval):
		}
	}
}
