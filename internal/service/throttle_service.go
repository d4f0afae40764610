package service

import (
	"context"
	"fmt"
	"time"

	"github.com/onurcolak/outreach-sequencer/environments"
	"github.com/onurcolak/outreach-sequencer/internal/domain"
	"github.com/onurcolak/outreach-sequencer/pkg/logger"
)

// throttleStore serializes read-modify-write of one sender's state. fn runs
// while the sender is locked; its return value says whether to persist.
type throttleStore interface {
	Update(
		ctx context.Context,
		sender string,
		defaults domain.ThrottleState,
		fn func(state *domain.ThrottleState) bool,
	) (*domain.ThrottleState, error)
	Get(ctx context.Context, sender string) (*domain.ThrottleState, error)
}

type ThrottleService struct {
	store    throttleStore
	defaults domain.ThrottleState
	loc      *time.Location
	now      func() time.Time
}

func NewThrottleService(store throttleStore, cfg environments.ThrottleConfig) (*ThrottleService, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("failed to load throttle timezone %q: %w", cfg.Timezone, err)
	}

	return &ThrottleService{
		store: store,
		defaults: domain.ThrottleState{
			DailyCap:           cfg.DailyCap,
			MinIntervalSeconds: int64(cfg.MinInterval / time.Second),
		},
		loc: loc,
		now: time.Now,
	}, nil
}

// CheckAndReserve decides whether sender may send now and, if so, consumes
// one slot of its budget in the same critical section.
func (s *ThrottleService) CheckAndReserve(ctx context.Context, sender string) (*domain.ThrottleDecision, error) {
	if sender == "" {
		return nil, domain.ErrSenderRequired
	}

	defaults := s.defaults
	defaults.SenderIdentity = sender

	var decision domain.ThrottleDecision
	_, err := s.store.Update(ctx, sender, defaults, func(state *domain.ThrottleState) bool {
		decision = state.Evaluate(s.now(), s.loc)
		return decision.CanSend
	})
	if err != nil {
		return nil, fmt.Errorf("failed to reserve send slot: %w", err)
	}

	if !decision.CanSend {
		logger.Debugf("Sender %s throttled for %ds (%d/%d today)",
			sender, decision.WaitSeconds, decision.SentToday, decision.DailyCap)
	}

	return &decision, nil
}

// GetState returns the sender's budget, or the defaults if it never sent.
func (s *ThrottleService) GetState(ctx context.Context, sender string) (*domain.ThrottleState, error) {
	if sender == "" {
		return nil, domain.ErrSenderRequired
	}

	state, err := s.store.Get(ctx, sender)
	if err != nil {
		return nil, err
	}

	if state == nil {
		defaults := s.defaults
		defaults.SenderIdentity = sender
		return &defaults, nil
	}

	return state, nil
}
