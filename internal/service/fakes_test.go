package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/onurcolak/outreach-sequencer/internal/domain"
)

//
// Test fakes shared by the service tests.
//

// fakeProgressStore keeps progress rows in memory and applies the same
// transitions as the MySQL store, under one mutex.
type fakeProgressStore struct {
	mu       sync.Mutex
	rows     map[int64]*domain.LeadStepProgress
	inactive map[int64]bool
	nextID   int64

	lastLimit   int
	lastBlocked []string
	lostClaims  map[int64]bool
	releaseCall []int64
}

func newFakeProgressStore() *fakeProgressStore {
	return &fakeProgressStore{
		rows:       make(map[int64]*domain.LeadStepProgress),
		inactive:   make(map[int64]bool),
		lostClaims: make(map[int64]bool),
	}
}

// addTimeline inserts the rows of one lead as publish would and returns
// their ids in step order.
func (f *fakeProgressStore) addTimeline(campaignID, leadID int64, entries []domain.TimelineEntry) []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()

	ids := make([]int64, 0, len(entries))
	for _, e := range entries {
		f.nextID++
		f.rows[f.nextID] = &domain.LeadStepProgress{
			ID:         f.nextID,
			LeadID:     leadID,
			CampaignID: campaignID,
			StepNumber: e.StepNumber,
			Status:     e.Status,
			DueAt:      e.DueAt,
		}
		ids = append(ids, f.nextID)
	}
	return ids
}

func (f *fakeProgressStore) row(id int64) domain.LeadStepProgress {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.rows[id]
}

func (f *fakeProgressStore) GetByID(ctx context.Context, id int64) (*domain.LeadStepProgress, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	row, ok := f.rows[id]
	if !ok {
		return nil, domain.ErrStepNotFound
	}
	copied := *row
	return &copied, nil
}

func (f *fakeProgressStore) GetReady(ctx context.Context, now time.Time, limit int, blockedSenders ...string) ([]domain.ReadyTask, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.lastLimit = limit
	f.lastBlocked = blockedSenders

	var tasks []domain.ReadyTask
	for _, r := range f.rows {
		if r.Status != domain.StepReady || r.DueAt.After(now) || f.inactive[r.CampaignID] {
			continue
		}
		tasks = append(tasks, domain.ReadyTask{
			ID:         r.ID,
			LeadID:     r.LeadID,
			CampaignID: r.CampaignID,
			StepNumber: r.StepNumber,
			Status:     r.Status,
			DueAt:      r.DueAt,
		})
	}

	sort.Slice(tasks, func(i, j int) bool {
		if tasks[i].DueAt.Equal(tasks[j].DueAt) {
			return tasks[i].ID < tasks[j].ID
		}
		return tasks[i].DueAt.Before(tasks[j].DueAt)
	})

	if len(tasks) > limit {
		tasks = tasks[:limit]
	}
	return tasks, nil
}

func (f *fakeProgressStore) Claim(ctx context.Context, id int64, now time.Time) (*domain.ClaimedTask, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	r, ok := f.rows[id]
	if !ok {
		return nil, domain.ErrStepNotFound
	}
	if f.lostClaims[id] || r.Status != domain.StepReady || r.DueAt.After(now) || f.inactive[r.CampaignID] {
		return nil, domain.ErrClaimLost
	}

	token := uuid.NewString()
	r.Status = domain.StepRunning
	r.ClaimToken = &token
	r.ClaimedAt = &now
	r.Attempts++

	return &domain.ClaimedTask{
		ReadyTask: domain.ReadyTask{
			ID:         r.ID,
			LeadID:     r.LeadID,
			CampaignID: r.CampaignID,
			StepNumber: r.StepNumber,
			Status:     r.Status,
			DueAt:      r.DueAt,
			Attempts:   r.Attempts,
		},
		ClaimToken: token,
		ClaimedAt:  now,
	}, nil
}

func (f *fakeProgressStore) Release(ctx context.Context, id int64, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.releaseCall = append(f.releaseCall, id)

	r, ok := f.rows[id]
	if !ok {
		return domain.ErrStepNotFound
	}
	if r.Status != domain.StepRunning || r.ClaimToken == nil || *r.ClaimToken != token {
		return domain.ErrClaimMismatch
	}

	r.Status = domain.StepReady
	r.ClaimToken = nil
	r.ClaimedAt = nil
	r.Attempts = max(r.Attempts-1, 0)
	return nil
}

func (f *fakeProgressStore) RequeueStale(ctx context.Context, staleBefore time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var n int64
	for _, r := range f.rows {
		if r.Status == domain.StepRunning && r.ClaimedAt != nil && r.ClaimedAt.Before(staleBefore) {
			r.Status = domain.StepReady
			r.ClaimToken = nil
			r.ClaimedAt = nil
			n++
		}
	}
	return n, nil
}

func (f *fakeProgressStore) Complete(
	ctx context.Context,
	id int64,
	success bool,
	token string,
	policy domain.CompletionPolicy,
	now time.Time,
) (*domain.CompletionResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	r, ok := f.rows[id]
	if !ok {
		return nil, domain.ErrStepNotFound
	}

	plan, err := domain.PlanCompletion(*r, success, token, policy, now)
	if err != nil {
		return nil, err
	}

	result := &domain.CompletionResult{ID: id, Status: plan.NewStatus}
	if plan.Duplicate {
		result.Duplicate = true
		return result, nil
	}

	r.Status = plan.NewStatus
	r.LastAttemptedAt = &now
	r.ClaimedAt = nil
	if plan.RescheduleDueAt != nil {
		r.DueAt = *plan.RescheduleDueAt
		result.Retrying = true
	}

	if plan.ActivateNext {
		for _, next := range f.rows {
			if next.LeadID == r.LeadID && next.CampaignID == r.CampaignID &&
				next.StepNumber == r.StepNumber+1 && next.Status == domain.StepQueued {
				next.Status = domain.StepReady
				result.SuccessorActivated = true
			}
		}
	}

	return result, nil
}

type fakeCompletionCache struct {
	mu      sync.Mutex
	entries map[int64]*domain.CompletedStep
	calls   int
}

func (c *fakeCompletionCache) CacheCompletion(ctx context.Context, completed domain.CompletedStep) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.entries == nil {
		c.entries = make(map[int64]*domain.CompletedStep)
	}
	c.calls++
	c.entries[completed.StepID] = &completed
	return nil
}

func (c *fakeCompletionCache) GetAllCachedCompletions(ctx context.Context) (map[int64]*domain.CompletedStep, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries, nil
}

// fakeThrottleStore serializes Update with a mutex, like the row lock or the
// Valkey lock does in production.
type fakeThrottleStore struct {
	mu     sync.Mutex
	states map[string]domain.ThrottleState
}

func newFakeThrottleStore() *fakeThrottleStore {
	return &fakeThrottleStore{states: make(map[string]domain.ThrottleState)}
}

func (f *fakeThrottleStore) Update(
	ctx context.Context,
	sender string,
	defaults domain.ThrottleState,
	fn func(state *domain.ThrottleState) bool,
) (*domain.ThrottleState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	state, ok := f.states[sender]
	if !ok {
		state = defaults
		f.states[sender] = state
	}

	if fn(&state) {
		f.states[sender] = state
	}
	return &state, nil
}

func (f *fakeThrottleStore) Get(ctx context.Context, sender string) (*domain.ThrottleState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	state, ok := f.states[sender]
	if !ok {
		return nil, nil
	}
	return &state, nil
}
