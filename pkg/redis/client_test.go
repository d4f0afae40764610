package redis

import (
	"context"
	"net"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onurcolak/outreach-sequencer/environments"
	"github.com/onurcolak/outreach-sequencer/internal/domain"
)

// VALKEY_TEST_ADDR="localhost:6379" enables these tests. They write keys with
// a per-run suffix and leave them to expire.
func newTestClient(t *testing.T) *Client {
	t.Helper()

	addr := os.Getenv("VALKEY_TEST_ADDR")
	if addr == "" {
		t.Skip("VALKEY_TEST_ADDR not set; skipping Valkey integration test")
	}

	host, port, err := net.SplitHostPort(addr)
	require.NoError(t, err)

	client, err := NewRedisClient(environments.RedisConfig{Enabled: true, Host: host, Port: port}, time.Minute)
	require.NoError(t, err)

	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestCompletionCache_RoundTrip(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	stepID := time.Now().UnixNano()
	completed := domain.CompletedStep{
		StepID:             stepID,
		Status:             domain.StepDone,
		SuccessorActivated: true,
		CompletedAt:        time.Now().UTC().Truncate(time.Second),
	}

	require.NoError(t, client.CacheCompletion(ctx, completed))

	all, err := client.GetAllCachedCompletions(ctx)
	require.NoError(t, err)
	require.Contains(t, all, stepID)

	got := all[stepID]
	assert.Equal(t, domain.StepDone, got.Status)
	assert.True(t, got.SuccessorActivated)
	assert.True(t, got.CompletedAt.Equal(completed.CompletedAt))
}

func TestThrottleStore_SerializesUpdates(t *testing.T) {
	client := newTestClient(t)
	store := client.NewThrottleStore(time.Second)

	sender := "throttle-test-" + time.Now().UTC().Format("150405.000000000")
	defaults := domain.ThrottleState{SenderIdentity: sender, DailyCap: 100}

	const callers = 8
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.Update(context.Background(), sender, defaults, func(state *domain.ThrottleState) bool {
				state.SentToday++
				return true
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	state, err := store.Get(context.Background(), sender)
	require.NoError(t, err)
	require.NotNil(t, state)
	assert.Equal(t, callers, state.SentToday)
}

func TestThrottleStore_DeniedUpdateIsNotPersisted(t *testing.T) {
	client := newTestClient(t)
	store := client.NewThrottleStore(time.Second)

	sender := "throttle-deny-" + time.Now().UTC().Format("150405.000000000")

	state, err := store.Update(context.Background(), sender, domain.ThrottleState{SenderIdentity: sender, DailyCap: 1}, func(*domain.ThrottleState) bool {
		return false
	})
	require.NoError(t, err)
	assert.Equal(t, 1, state.DailyCap)

	stored, err := store.Get(context.Background(), sender)
	require.NoError(t, err)
	assert.Nil(t, stored)
}
