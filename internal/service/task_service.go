package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/onurcolak/outreach-sequencer/environments"
	"github.com/onurcolak/outreach-sequencer/internal/domain"
	"github.com/onurcolak/outreach-sequencer/pkg/logger"
)

const DefaultReadyLimit = 50

// Small internal interfaces so we can test without touching real DB/Valkey.
type progressStore interface {
	GetByID(ctx context.Context, id int64) (*domain.LeadStepProgress, error)
	GetReady(ctx context.Context, now time.Time, limit int, blockedSenders ...string) ([]domain.ReadyTask, error)
	Claim(ctx context.Context, id int64, now time.Time) (*domain.ClaimedTask, error)
	Release(ctx context.Context, id int64, token string) error
	RequeueStale(ctx context.Context, staleBefore time.Time) (int64, error)
	Complete(
		ctx context.Context,
		id int64,
		success bool,
		token string,
		policy domain.CompletionPolicy,
		now time.Time,
	) (*domain.CompletionResult, error)
}

type completionCache interface {
	CacheCompletion(ctx context.Context, completed domain.CompletedStep) error
	GetAllCachedCompletions(ctx context.Context) (map[int64]*domain.CompletedStep, error)
}

type TaskService struct {
	store    progressStore
	cache    completionCache
	policy   domain.CompletionPolicy
	maxLimit int
	now      func() time.Time
}

func NewTaskService(store progressStore, cache completionCache, cfg environments.SequenceConfig) (*TaskService, error) {
	onFailure, err := domain.ParseFailurePolicy(cfg.FailurePolicy)
	if err != nil {
		return nil, err
	}

	maxLimit := cfg.ReadyLimit
	if maxLimit <= 0 {
		maxLimit = 500
	}

	return &TaskService{
		store: store,
		cache: cache,
		policy: domain.CompletionPolicy{
			OnFailure:    onFailure,
			MaxAttempts:  cfg.MaxAttempts,
			RetryBackoff: cfg.RetryBackoff,
		},
		maxLimit: maxLimit,
		now:      time.Now,
	}, nil
}

func (s *TaskService) clampLimit(limit int) int {
	if limit <= 0 {
		limit = DefaultReadyLimit
	}
	return min(limit, s.maxLimit)
}

// GetReady lists due work without claiming it.
func (s *TaskService) GetReady(ctx context.Context, limit int) ([]domain.ReadyTask, error) {
	return s.store.GetReady(ctx, s.now(), s.clampLimit(limit))
}

// GetStep returns the raw progress row, including claim state.
func (s *TaskService) GetStep(ctx context.Context, id int64) (*domain.LeadStepProgress, error) {
	return s.store.GetByID(ctx, id)
}

func (s *TaskService) Claim(ctx context.Context, id int64) (*domain.ClaimedTask, error) {
	return s.store.Claim(ctx, id, s.now())
}

// ClaimBatch claims up to limit ready tasks. Rows taken by a concurrent
// executor between the read and the claim are skipped, as are throttled
// sends of the blocked senders.
func (s *TaskService) ClaimBatch(ctx context.Context, limit int, blockedSenders ...string) ([]domain.ClaimedTask, error) {
	tasks, err := s.store.GetReady(ctx, s.now(), s.clampLimit(limit), blockedSenders...)
	if err != nil {
		return nil, fmt.Errorf("failed to get ready tasks: %w", err)
	}

	claimed := make([]domain.ClaimedTask, 0, len(tasks))
	for _, task := range tasks {
		c, err := s.store.Claim(ctx, task.ID, s.now())
		if err != nil {
			if errors.Is(err, domain.ErrClaimLost) {
				logger.Debugf("Step %d was claimed by another executor", task.ID)
			} else {
				logger.Errorf("Failed to claim step %d: %v", task.ID, err)
			}
			continue
		}
		claimed = append(claimed, *c)
	}

	return claimed, nil
}

func (s *TaskService) Release(ctx context.Context, id int64, token string) error {
	return s.store.Release(ctx, id, token)
}

// RequeueStale puts back claims older than visibilityTimeout.
func (s *TaskService) RequeueStale(ctx context.Context, visibilityTimeout time.Duration) (int64, error) {
	n, err := s.store.RequeueStale(ctx, s.now().Add(-visibilityTimeout))
	if err != nil {
		return 0, err
	}

	if n > 0 {
		logger.Warnf("Requeued %d stale claims older than %v", n, visibilityTimeout)
	}

	return n, nil
}

// Complete applies the completion transition. Repeated completions of a
// terminal step are accepted and reported as duplicates.
func (s *TaskService) Complete(ctx context.Context, id int64, success bool, token string) (*domain.CompletionResult, error) {
	now := s.now()

	result, err := s.store.Complete(ctx, id, success, token, s.policy, now)
	if err != nil {
		return nil, err
	}

	if result.Duplicate {
		logger.Warnf("Duplicate completion for step %d ignored (status: %s)", id, result.Status)
		return result, nil
	}

	logger.WithFields(logger.Fields{
		"stepId":             id,
		"status":             result.Status,
		"successorActivated": result.SuccessorActivated,
		"retrying":           result.Retrying,
	}).Info("Step completed")

	if s.cache != nil {
		completed := domain.CompletedStep{
			StepID:             id,
			Status:             result.Status,
			SuccessorActivated: result.SuccessorActivated,
			CompletedAt:        now,
		}
		if err := s.cache.CacheCompletion(ctx, completed); err != nil {
			logger.Warnf("Failed to cache completion of step %d: %v", id, err)
		}
	}

	return result, nil
}

func (s *TaskService) GetCachedCompletions(ctx context.Context) (map[int64]*domain.CompletedStep, error) {
	if s.cache == nil {
		return nil, fmt.Errorf("valkey client not configured")
	}
	return s.cache.GetAllCachedCompletions(ctx)
}
