package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newState(cap int) *ThrottleState {
	return &ThrottleState{SenderIdentity: "sales@example.com", DailyCap: cap, MinIntervalSeconds: 300}
}

func TestEvaluate_FirstSendAllowed(t *testing.T) {
	now := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)
	state := newState(100)

	decision := state.Evaluate(now, time.UTC)

	assert.True(t, decision.CanSend)
	assert.Equal(t, int64(0), decision.WaitSeconds)
	assert.Equal(t, 1, state.SentToday)
	require.NotNil(t, state.LastSentAt)
	assert.Equal(t, now, *state.LastSentAt)
	require.NotNil(t, state.SentOn)
	assert.Equal(t, "2025-05-01", *state.SentOn)
}

func TestEvaluate_MinIntervalDenial(t *testing.T) {
	now := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)
	state := newState(100)

	first := state.Evaluate(now, time.UTC)
	second := state.Evaluate(now.Add(60*time.Second), time.UTC)

	assert.True(t, first.CanSend)
	assert.False(t, second.CanSend)
	assert.Equal(t, int64(240), second.WaitSeconds)
	assert.Equal(t, 1, state.SentToday, "a denied attempt must not consume budget")
}

func TestEvaluate_IntervalElapsedExactly(t *testing.T) {
	now := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)
	state := newState(100)

	state.Evaluate(now, time.UTC)
	decision := state.Evaluate(now.Add(5*time.Minute), time.UTC)

	assert.True(t, decision.CanSend)
	assert.Equal(t, 2, state.SentToday)
}

func TestEvaluate_DailyCapWaitsUntilMidnight(t *testing.T) {
	capReachedAt := time.Date(2025, 5, 1, 14, 0, 0, 0, time.UTC)
	today := "2025-05-01"
	state := newState(100)
	state.SentToday = 100
	state.SentOn = &today
	state.LastSentAt = &capReachedAt

	decision := state.Evaluate(capReachedAt.Add(5*time.Minute), time.UTC)

	assert.False(t, decision.CanSend)
	// 14:05 -> 00:00 is 9h55m
	assert.Equal(t, int64(9*3600+55*60), decision.WaitSeconds)
	assert.Equal(t, 100, decision.SentToday)
}

func TestEvaluate_CounterResetsOnNewDay(t *testing.T) {
	yesterday := time.Date(2025, 5, 1, 23, 50, 0, 0, time.UTC)
	day := "2025-05-01"
	state := newState(100)
	state.SentToday = 100
	state.SentOn = &day
	state.LastSentAt = &yesterday

	decision := state.Evaluate(time.Date(2025, 5, 2, 0, 0, 1, 0, time.UTC), time.UTC)

	assert.True(t, decision.CanSend)
	assert.Equal(t, 1, state.SentToday)
	assert.Equal(t, "2025-05-02", *state.SentOn)
}

func TestEvaluate_DayBoundaryUsesLocation(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*3600)
	// 22:30 UTC is 01:30 the next day in UTC+3
	now := time.Date(2025, 5, 1, 22, 30, 0, 0, time.UTC)
	day := "2025-05-01"
	state := newState(1)
	state.SentToday = 1
	state.SentOn = &day

	decision := state.Evaluate(now, loc)

	assert.True(t, decision.CanSend)
	assert.Equal(t, "2025-05-02", *state.SentOn)
}

func TestChannelRequiresThrottle(t *testing.T) {
	assert.True(t, ChannelEmail.RequiresThrottle())
	assert.False(t, ChannelCall.RequiresThrottle())
	assert.False(t, ChannelSMS.RequiresThrottle())
	assert.False(t, ChannelChat.RequiresThrottle())
}
