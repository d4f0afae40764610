package scheduler

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/onurcolak/outreach-sequencer/environments"
	"github.com/onurcolak/outreach-sequencer/internal/domain"
	"github.com/onurcolak/outreach-sequencer/pkg/webhook"
)

// fakeTasks is a simple test double for taskProcessor. Every ClaimBatch
// hands out the same claimed list, minus the throttled steps of blocked
// senders, up to the limit.
type fakeTasks struct {
	mu       sync.Mutex
	claimed  []domain.ClaimedTask
	claimErr error

	requeueCalls  int
	released      []int64
	completed     map[int64]bool
	claimedLimits []int
	lastBlocked   []string
}

func (f *fakeTasks) RequeueStale(ctx context.Context, visibilityTimeout time.Duration) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requeueCalls++
	return 0, nil
}

func (f *fakeTasks) ClaimBatch(ctx context.Context, limit int, blockedSenders ...string) ([]domain.ClaimedTask, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.claimedLimits = append(f.claimedLimits, limit)
	f.lastBlocked = blockedSenders
	if f.claimErr != nil {
		return nil, f.claimErr
	}

	var out []domain.ClaimedTask
	for _, task := range f.claimed {
		if task.ChannelType.RequiresThrottle() && slices.Contains(blockedSenders, task.SenderIdentity) {
			continue
		}
		if len(out) == limit {
			break
		}
		out = append(out, task)
	}
	return out, nil
}

func (f *fakeTasks) Release(ctx context.Context, id int64, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.released = append(f.released, id)
	return nil
}

func (f *fakeTasks) Complete(ctx context.Context, id int64, success bool, token string) (*domain.CompletionResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.completed == nil {
		f.completed = make(map[int64]bool)
	}
	f.completed[id] = success
	status := domain.StepDone
	if !success {
		status = domain.StepFailed
	}
	return &domain.CompletionResult{ID: id, Status: status}, nil
}

type fakeThrottle struct {
	allow  bool
	checks []string
}

func (f *fakeThrottle) CheckAndReserve(ctx context.Context, sender string) (*domain.ThrottleDecision, error) {
	f.checks = append(f.checks, sender)
	if f.allow {
		return &domain.ThrottleDecision{SenderIdentity: sender, CanSend: true}, nil
	}
	return &domain.ThrottleDecision{SenderIdentity: sender, WaitSeconds: 240}, nil
}

// fakeRunner returns the outcome configured per step id; missing ids fail
// with a transport error.
type fakeRunner struct {
	outcomes   map[int64]bool
	err        error
	dispatched []int64
}

func (f *fakeRunner) Dispatch(ctx context.Context, task domain.ClaimedTask) (bool, error) {
	f.dispatched = append(f.dispatched, task.ID)
	if f.err != nil {
		return false, f.err
	}
	outcome, ok := f.outcomes[task.ID]
	if !ok {
		return false, errors.New("connection refused")
	}
	return outcome, nil
}

type fakeAlerts struct {
	mu   sync.Mutex
	sent []webhook.Alert
}

func (f *fakeAlerts) Send(ctx context.Context, url string, alert webhook.Alert) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, alert)
	return nil
}

func claimedTask(id int64, channel domain.ChannelType) domain.ClaimedTask {
	return domain.ClaimedTask{
		ReadyTask: domain.ReadyTask{
			ID:             id,
			ChannelType:    channel,
			SenderIdentity: "sales@example.com",
		},
		ClaimToken: "token",
	}
}

func newTestDispatcher(tasks *fakeTasks, throttle *fakeThrottle, runner *fakeRunner) *Dispatcher {
	return NewDispatcher(
		tasks,
		throttle,
		runner,
		nil,
		environments.DispatcherConfig{BatchSize: 10, PollInterval: time.Minute, VisibilityTimeout: 10 * time.Minute},
		environments.AlertConfig{},
	)
}

func TestDispatcher_DispatchBatch_MixedResults(t *testing.T) {
	ctx := context.Background()

	tasks := &fakeTasks{
		claimed: []domain.ClaimedTask{
			claimedTask(1, domain.ChannelCall),
			claimedTask(2, domain.ChannelSMS),
			claimedTask(3, domain.ChannelChat),
		},
	}
	runner := &fakeRunner{outcomes: map[int64]bool{1: true, 2: false, 3: true}}

	d := newTestDispatcher(tasks, &fakeThrottle{allow: true}, runner)
	d.dispatchBatch(ctx)

	status := d.GetStatus()
	if status.StepsSucceeded != 2 {
		t.Errorf("expected StepsSucceeded=2, got %d", status.StepsSucceeded)
	}
	if status.StepsFailed != 1 {
		t.Errorf("expected StepsFailed=1, got %d", status.StepsFailed)
	}
	if status.RunsCount != 1 {
		t.Errorf("expected RunsCount=1, got %d", status.RunsCount)
	}
	if status.ConsecutiveAllFailCount != 0 {
		t.Errorf("expected ConsecutiveAllFailCount=0, got %d", status.ConsecutiveAllFailCount)
	}
	if tasks.requeueCalls != 1 {
		t.Errorf("expected stale claims to be reaped once, got %d", tasks.requeueCalls)
	}
	if len(tasks.completed) != 3 || tasks.completed[2] {
		t.Errorf("unexpected completions: %v", tasks.completed)
	}
}

func TestDispatcher_ThrottledEmailIsReleased(t *testing.T) {
	ctx := context.Background()

	tasks := &fakeTasks{
		claimed: []domain.ClaimedTask{
			claimedTask(1, domain.ChannelEmail),
			claimedTask(2, domain.ChannelCall),
		},
	}
	throttle := &fakeThrottle{allow: false}
	runner := &fakeRunner{outcomes: map[int64]bool{1: true, 2: true}}

	d := newTestDispatcher(tasks, throttle, runner)
	d.dispatchBatch(ctx)

	if len(throttle.checks) != 1 || throttle.checks[0] != "sales@example.com" {
		t.Fatalf("expected one throttle check for the email step, got %v", throttle.checks)
	}
	if len(tasks.released) != 1 || tasks.released[0] != 1 {
		t.Fatalf("expected step 1 to be released, got %v", tasks.released)
	}
	if len(runner.dispatched) != 1 || runner.dispatched[0] != 2 {
		t.Fatalf("expected only step 2 to reach the runner, got %v", runner.dispatched)
	}
	if d.GetStatus().StepsDeferred != 1 {
		t.Errorf("expected StepsDeferred=1, got %d", d.GetStatus().StepsDeferred)
	}
}

func TestDispatcher_RunnerErrorReleasesClaim(t *testing.T) {
	ctx := context.Background()

	tasks := &fakeTasks{claimed: []domain.ClaimedTask{claimedTask(9, domain.ChannelSMS)}}
	runner := &fakeRunner{outcomes: map[int64]bool{}}

	d := newTestDispatcher(tasks, &fakeThrottle{allow: true}, runner)
	d.dispatchBatch(ctx)

	if len(tasks.released) != 1 || tasks.released[0] != 9 {
		t.Fatalf("expected step 9 to be released, got %v", tasks.released)
	}
	if len(tasks.completed) != 0 {
		t.Fatalf("expected no completion when the runner is unreachable")
	}
	if d.GetStatus().ConsecutiveAllFailCount != 1 {
		t.Errorf("expected ConsecutiveAllFailCount=1, got %d", d.GetStatus().ConsecutiveAllFailCount)
	}
}

func TestDispatcher_UnknownOutcomeKeepsClaim(t *testing.T) {
	ctx := context.Background()

	tasks := &fakeTasks{claimed: []domain.ClaimedTask{claimedTask(9, domain.ChannelCall)}}
	runner := &fakeRunner{err: fmt.Errorf("%w: no response after 30s", webhook.ErrOutcomeUnknown)}

	d := newTestDispatcher(tasks, &fakeThrottle{allow: true}, runner)
	d.dispatchBatch(ctx)

	if len(tasks.released) != 0 {
		t.Fatalf("a step that may have been sent must stay claimed, released %v", tasks.released)
	}
	if len(tasks.completed) != 0 {
		t.Fatalf("expected no completion without a runner verdict")
	}
}

func TestDispatcher_ThrottledSenderDoesNotStarveOtherChannels(t *testing.T) {
	ctx := context.Background()

	var pending []domain.ClaimedTask
	for id := int64(1); id <= 10; id++ {
		pending = append(pending, claimedTask(id, domain.ChannelEmail))
	}
	pending = append(pending, claimedTask(99, domain.ChannelCall))

	tasks := &fakeTasks{claimed: pending}
	throttle := &fakeThrottle{allow: false}
	runner := &fakeRunner{outcomes: map[int64]bool{99: true}}

	d := newTestDispatcher(tasks, throttle, runner)
	clock := time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC)
	d.now = func() time.Time { return clock }

	// The ten older emails fill the batch; one denial defers all of them.
	d.dispatchBatch(ctx)

	if len(throttle.checks) != 1 {
		t.Fatalf("expected a single reservation attempt for the denied sender, got %d", len(throttle.checks))
	}
	if len(tasks.released) != 10 {
		t.Fatalf("expected all ten emails to be released, got %v", tasks.released)
	}
	if len(runner.dispatched) != 0 {
		t.Fatalf("expected nothing to reach the runner, got %v", runner.dispatched)
	}

	d.dispatchBatch(ctx)

	if len(tasks.lastBlocked) != 1 || tasks.lastBlocked[0] != "sales@example.com" {
		t.Fatalf("expected the sender to be skipped while throttled, got %v", tasks.lastBlocked)
	}
	if len(runner.dispatched) != 1 || runner.dispatched[0] != 99 {
		t.Fatalf("expected the call step to be dispatched, got %v", runner.dispatched)
	}
	if !tasks.completed[99] {
		t.Fatalf("expected the call step to be completed")
	}
	if d.GetStatus().ThrottledSenders != 1 {
		t.Errorf("expected one throttled sender, got %d", d.GetStatus().ThrottledSenders)
	}

	clock = clock.Add(241 * time.Second)
	throttle.allow = true
	tasks.claimed = pending[:10]
	d.dispatchBatch(ctx)

	if len(tasks.lastBlocked) != 0 {
		t.Fatalf("expected the sender to be eligible after its wait, got %v", tasks.lastBlocked)
	}
	if len(throttle.checks) != 11 {
		t.Fatalf("expected each email to reserve a slot once the wait is over, got %d checks", len(throttle.checks))
	}
}

func TestDispatcher_AlertAfterThreshold(t *testing.T) {
	ctx := context.Background()

	tasks := &fakeTasks{claimed: []domain.ClaimedTask{claimedTask(1, domain.ChannelCall)}}
	runner := &fakeRunner{outcomes: map[int64]bool{1: false}}
	alerts := &fakeAlerts{}

	d := NewDispatcher(
		tasks,
		&fakeThrottle{allow: true},
		runner,
		alerts,
		environments.DispatcherConfig{BatchSize: 10, PollInterval: time.Minute},
		environments.AlertConfig{WebhookURL: "http://alerts.invalid", IterationCount: 2},
	)

	d.dispatchBatch(ctx)
	d.dispatchBatch(ctx)

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		alerts.mu.Lock()
		n := len(alerts.sent)
		alerts.mu.Unlock()
		if n > 0 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	alerts.mu.Lock()
	defer alerts.mu.Unlock()
	if len(alerts.sent) != 1 {
		t.Fatalf("expected 1 alert, got %d", len(alerts.sent))
	}
	if alerts.sent[0].ConsecutiveFailures != 2 {
		t.Errorf("expected ConsecutiveFailures=2, got %d", alerts.sent[0].ConsecutiveFailures)
	}
}

func TestDispatcher_StartWithParamsOverridesBatchSize(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tasks := &fakeTasks{}
	d := newTestDispatcher(tasks, &fakeThrottle{}, &fakeRunner{})

	if err := d.StartWithParams(ctx, time.Hour, 3); err != nil {
		t.Fatalf("StartWithParams returned error: %v", err)
	}
	if err := d.Stop(); err != nil {
		t.Fatalf("Stop returned error: %v", err)
	}

	tasks.mu.Lock()
	defer tasks.mu.Unlock()
	if len(tasks.claimedLimits) != 1 || tasks.claimedLimits[0] != 3 {
		t.Fatalf("expected one claim with limit 3, got %v", tasks.claimedLimits)
	}
}

func TestDispatcher_StartAndStopToggleRunning(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	d := newTestDispatcher(&fakeTasks{}, &fakeThrottle{}, &fakeRunner{})
	d.interval = 10 * time.Millisecond

	if d.IsRunning() {
		t.Fatalf("expected dispatcher to be not running initially")
	}

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}

	if !d.IsRunning() {
		t.Fatalf("expected dispatcher to be running after Start")
	}

	if err := d.Stop(); err != nil {
		t.Fatalf("Stop returned error: %v", err)
	}

	if d.IsRunning() {
		t.Fatalf("expected dispatcher to be not running after Stop")
	}
}
