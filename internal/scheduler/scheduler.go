package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/onurcolak/outreach-sequencer/environments"
	"github.com/onurcolak/outreach-sequencer/internal/domain"
	"github.com/onurcolak/outreach-sequencer/pkg/logger"
	"github.com/onurcolak/outreach-sequencer/pkg/webhook"
)

// Minimal internal interfaces so the dispatcher can be unit tested with
// small fakes.
type taskProcessor interface {
	RequeueStale(ctx context.Context, visibilityTimeout time.Duration) (int64, error)
	ClaimBatch(ctx context.Context, limit int, blockedSenders ...string) ([]domain.ClaimedTask, error)
	Release(ctx context.Context, id int64, token string) error
	Complete(ctx context.Context, id int64, success bool, token string) (*domain.CompletionResult, error)
}

type throttleGuard interface {
	CheckAndReserve(ctx context.Context, sender string) (*domain.ThrottleDecision, error)
}

type stepRunner interface {
	Dispatch(ctx context.Context, task domain.ClaimedTask) (bool, error)
}

type alertSender interface {
	Send(ctx context.Context, url string, alert webhook.Alert) error
}

// Dispatcher is the built-in executor: on every tick it reaps stale claims,
// claims a batch of ready steps, checks the sender budget for throttled
// channels, hands each step to the workflow runner and records the outcome.
// A denied sender is remembered until its wait is over and its throttled
// steps are not claimed in the meantime.
type Dispatcher struct {
	tasks    taskProcessor
	throttle throttleGuard
	runner   stepRunner
	alerts   alertSender

	interval          time.Duration
	batchSize         int
	visibilityTimeout time.Duration
	alertWebhook      string
	alertThreshold    int // consecutive all-fail runs before alert
	lastAlertSentAt   time.Time

	// Internal state
	running        bool
	stopChan       chan struct{}
	doneChan       chan struct{}
	mu             sync.RWMutex
	throttledUntil map[string]time.Time
	now            func() time.Time

	// Statistics
	lastRunAt time.Time
	runsCount int64
	succeeded int64
	failed    int64
	deferred  int64

	consecutiveAllFailCount int
}

func NewDispatcher(
	tasks taskProcessor,
	throttle throttleGuard,
	runner stepRunner,
	alerts alertSender,
	cfg environments.DispatcherConfig,
	alertCfg environments.AlertConfig,
) *Dispatcher {
	interval := cfg.PollInterval
	if interval <= 0 {
		interval = 5 * time.Second
	}

	return &Dispatcher{
		tasks:             tasks,
		throttle:          throttle,
		runner:            runner,
		alerts:            alerts,
		interval:          interval,
		batchSize:         cfg.BatchSize,
		visibilityTimeout: cfg.VisibilityTimeout,
		alertWebhook:      alertCfg.WebhookURL,
		alertThreshold:    alertCfg.IterationCount,
		throttledUntil:    make(map[string]time.Time),
		now:               time.Now,
	}
}

// StartWithParams overrides the poll interval and batch size before
// starting. Zero values keep the current settings.
func (d *Dispatcher) StartWithParams(ctx context.Context, interval time.Duration, batchSize int) error {
	d.mu.Lock()
	if interval > 0 {
		d.interval = interval
	}
	if batchSize > 0 {
		d.batchSize = batchSize
	}
	d.consecutiveAllFailCount = 0
	d.mu.Unlock()

	return d.Start(ctx)
}

func (d *Dispatcher) Start(ctx context.Context) error {
	d.mu.Lock()

	if d.running {
		d.mu.Unlock()
		logger.Warnf("Dispatcher is already running")
		return nil
	}

	d.running = true
	d.stopChan = make(chan struct{})
	d.doneChan = make(chan struct{})
	interval := d.interval
	d.mu.Unlock()

	logger.Infof("Starting dispatcher with interval: %v", interval)

	go d.run(ctx, interval)

	return nil
}

func (d *Dispatcher) run(ctx context.Context, interval time.Duration) {
	defer close(d.doneChan)

	d.dispatchBatch(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			d.dispatchBatch(ctx)

		case <-d.stopChan:
			logger.Warnf("Dispatcher received stop signal")
			return

		case <-ctx.Done():
			logger.Warnf("Dispatcher context cancelled")
			d.mu.Lock()
			d.running = false
			d.mu.Unlock()
			return
		}
	}
}

type batchOutcome struct {
	succeeded int
	failed    int
	deferred  int
	errored   int
}

func (d *Dispatcher) dispatchBatch(ctx context.Context) {
	d.mu.Lock()
	d.lastRunAt = d.now()
	d.runsCount++
	runNumber := d.runsCount
	batchSize := d.batchSize
	alertWebhook := d.alertWebhook
	alertThreshold := d.alertThreshold
	blocked := d.blockedSendersLocked(d.lastRunAt)
	d.mu.Unlock()

	if d.visibilityTimeout > 0 {
		if _, err := d.tasks.RequeueStale(ctx, d.visibilityTimeout); err != nil {
			logger.Errorf("[Run #%d] Failed to requeue stale claims: %v", runNumber, err)
		}
	}

	claimed, err := d.tasks.ClaimBatch(ctx, batchSize, blocked...)
	if err != nil {
		logger.Errorf("[Run #%d] Error claiming ready steps: %v", runNumber, err)
		return
	}

	if len(claimed) == 0 {
		logger.Debugf("[Run #%d] No ready steps", runNumber)
		return
	}

	var out batchOutcome
	for _, task := range claimed {
		d.dispatchOne(ctx, runNumber, task, &out)
	}

	attempted := out.succeeded + out.failed + out.errored

	d.mu.Lock()
	d.succeeded += int64(out.succeeded)
	d.failed += int64(out.failed)
	d.deferred += int64(out.deferred)

	if attempted > 0 && out.succeeded == 0 {
		d.consecutiveAllFailCount++
		logger.Warnf("[Run #%d] All %d dispatched steps failed (consecutive count: %d/%d)",
			runNumber, attempted, d.consecutiveAllFailCount, alertThreshold)

		if d.consecutiveAllFailCount >= alertThreshold && alertThreshold > 0 && alertWebhook != "" && d.alerts != nil {
			go d.sendAlert(alertWebhook, webhook.NewAllFailAlert(runNumber, d.consecutiveAllFailCount, attempted))
		}
	} else if out.succeeded > 0 {
		d.consecutiveAllFailCount = 0
	}
	d.mu.Unlock()

	logger.Infof("[Run #%d] Claimed %d steps: %d succeeded, %d failed, %d deferred, %d runner errors",
		runNumber, len(claimed), out.succeeded, out.failed, out.deferred, out.errored)
}

func (d *Dispatcher) dispatchOne(ctx context.Context, runNumber int64, task domain.ClaimedTask, out *batchOutcome) {
	if task.ChannelType.RequiresThrottle() && d.throttle != nil {
		if d.isThrottled(task.SenderIdentity) {
			d.release(ctx, task)
			out.deferred++
			return
		}

		decision, err := d.throttle.CheckAndReserve(ctx, task.SenderIdentity)
		if err != nil {
			logger.Errorf("[Run #%d] Throttle check for step %d failed: %v", runNumber, task.ID, err)
			d.release(ctx, task)
			out.deferred++
			return
		}
		if !decision.CanSend {
			logger.Debugf("[Run #%d] Step %d deferred, sender %s must wait %ds",
				runNumber, task.ID, task.SenderIdentity, decision.WaitSeconds)
			d.markThrottled(task.SenderIdentity, time.Duration(decision.WaitSeconds)*time.Second)
			d.release(ctx, task)
			out.deferred++
			return
		}
	}

	success, err := d.runner.Dispatch(ctx, task)
	if err != nil {
		logger.Errorf("[Run #%d] Runner error for step %d: %v", runNumber, task.ID, err)
		// The runner may have acted on it; leave the claim for the
		// stale-claim reaper instead of handing it straight back.
		if !errors.Is(err, webhook.ErrOutcomeUnknown) {
			d.release(ctx, task)
		}
		out.errored++
		return
	}

	if _, err := d.tasks.Complete(ctx, task.ID, success, task.ClaimToken); err != nil {
		// The claim stays running and is reaped after the visibility timeout.
		logger.Errorf("[Run #%d] Failed to complete step %d: %v", runNumber, task.ID, err)
		out.errored++
		return
	}

	if success {
		out.succeeded++
	} else {
		out.failed++
	}
}

// blockedSendersLocked drops expired entries and lists the senders still
// waiting. d.mu must be held.
func (d *Dispatcher) blockedSendersLocked(now time.Time) []string {
	var blocked []string
	for sender, until := range d.throttledUntil {
		if !now.Before(until) {
			delete(d.throttledUntil, sender)
			continue
		}
		blocked = append(blocked, sender)
	}
	return blocked
}

func (d *Dispatcher) markThrottled(sender string, wait time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if wait <= 0 {
		wait = d.interval
	}
	d.throttledUntil[sender] = d.now().Add(wait)
}

func (d *Dispatcher) isThrottled(sender string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	until, ok := d.throttledUntil[sender]
	return ok && d.now().Before(until)
}

func (d *Dispatcher) release(ctx context.Context, task domain.ClaimedTask) {
	if err := d.tasks.Release(ctx, task.ID, task.ClaimToken); err != nil {
		logger.Warnf("Failed to release step %d: %v", task.ID, err)
	}
}

func (d *Dispatcher) Stop() error {
	d.mu.Lock()

	if !d.running {
		d.mu.Unlock()
		logger.Warnf("Dispatcher is not running")
		return nil
	}

	d.running = false
	stopChan := d.stopChan
	doneChan := d.doneChan
	d.mu.Unlock()

	close(stopChan)

	<-doneChan

	logger.Infof("Dispatcher stopped")
	return nil
}

func (d *Dispatcher) IsRunning() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.running
}

func (d *Dispatcher) GetStatus() DispatcherStatus {
	d.mu.RLock()
	defer d.mu.RUnlock()

	status := DispatcherStatus{
		Running:                 d.running,
		LastRunAt:               d.lastRunAt,
		RunsCount:               d.runsCount,
		StepsSucceeded:          d.succeeded,
		StepsFailed:             d.failed,
		StepsDeferred:           d.deferred,
		Interval:                d.interval.String(),
		BatchSize:               d.batchSize,
		ConsecutiveAllFailCount: d.consecutiveAllFailCount,
		ThrottledSenders:        len(d.throttledUntil),
		LastAlertSentAt:         d.lastAlertSentAt,
	}

	if d.running && !d.lastRunAt.IsZero() {
		status.NextRunAt = d.lastRunAt.Add(d.interval)
	}

	return status
}

func (d *Dispatcher) sendAlert(url string, alert webhook.Alert) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := d.alerts.Send(ctx, url, alert); err != nil {
		logger.Errorf("Failed to send alert to webhook: %v", err)
		return
	}

	d.mu.Lock()
	d.lastAlertSentAt = time.Now()
	d.mu.Unlock()

	logger.Infof("Alert sent successfully to %s (consecutive failures: %d)", url, alert.ConsecutiveFailures)
}

type DispatcherStatus struct {
	Running                 bool      `json:"running"`
	LastRunAt               time.Time `json:"lastRunAt,omitempty"`
	NextRunAt               time.Time `json:"nextRunAt,omitempty"`
	RunsCount               int64     `json:"runsCount"`
	StepsSucceeded          int64     `json:"stepsSucceeded"`
	StepsFailed             int64     `json:"stepsFailed"`
	StepsDeferred           int64     `json:"stepsDeferred"`
	Interval                string    `json:"interval"`
	BatchSize               int       `json:"batchSize"`
	ConsecutiveAllFailCount int       `json:"consecutiveAllFailCount"`
	ThrottledSenders        int       `json:"throttledSenders"`
	LastAlertSentAt         time.Time `json:"lastAlertSentAt,omitempty"`
}
