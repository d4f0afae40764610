package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"

	"github.com/onurcolak/outreach-sequencer/internal/domain"
	"github.com/onurcolak/outreach-sequencer/pkg/logger"
)

// ThrottleRepository keeps per-sender send budgets in MySQL. Updates hold the
// sender's row lock for the whole read-modify-write.
type ThrottleRepository struct {
	db *sqlx.DB
}

func NewThrottleRepository(db *sqlx.DB) *ThrottleRepository {
	return &ThrottleRepository{db: db}
}

const throttleColumns = `sender_identity, last_sent_at, sent_today, sent_on, daily_cap, min_interval_seconds`

// InnoDB reports this when two first reservations for the same new sender
// race on the insert; the loser is safe to run again.
const errDeadlock = 1213

const maxDeadlockRetries = 3

// Update creates the sender's row from defaults if missing, locks it and
// passes it to fn. The row is written back only when fn returns true. fn may
// run again if the transaction is chosen as a deadlock victim.
func (r *ThrottleRepository) Update(
	ctx context.Context,
	sender string,
	defaults domain.ThrottleState,
	fn func(state *domain.ThrottleState) bool,
) (*domain.ThrottleState, error) {
	for attempt := 1; ; attempt++ {
		state, err := r.update(ctx, sender, defaults, fn)
		if err == nil || !isDeadlock(err) || attempt > maxDeadlockRetries {
			return state, err
		}
		logger.Warnf("Throttle update for %s deadlocked, retrying (%d/%d)", sender, attempt, maxDeadlockRetries)
	}
}

func (r *ThrottleRepository) update(
	ctx context.Context,
	sender string,
	defaults domain.ThrottleState,
	fn func(state *domain.ThrottleState) bool,
) (*domain.ThrottleState, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	// The no-op update takes the exclusive lock on an existing row right away
	// instead of a shared one that the SELECT below would have to upgrade.
	_, err = tx.ExecContext(ctx, `
		INSERT INTO throttle_state (sender_identity, sent_today, daily_cap, min_interval_seconds)
		VALUES (?, 0, ?, ?)
		ON DUPLICATE KEY UPDATE sender_identity = sender_identity
	`, sender, defaults.DailyCap, defaults.MinIntervalSeconds)
	if err != nil {
		return nil, fmt.Errorf("failed to create throttle state: %w", err)
	}

	var state domain.ThrottleState
	err = tx.GetContext(ctx, &state, "SELECT "+throttleColumns+" FROM throttle_state WHERE sender_identity = ? FOR UPDATE", sender)
	if err != nil {
		return nil, fmt.Errorf("failed to lock throttle state: %w", err)
	}

	if !fn(&state) {
		return &state, nil
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE throttle_state
		SET last_sent_at = ?, sent_today = ?, sent_on = ?
		WHERE sender_identity = ?
	`, state.LastSentAt, state.SentToday, state.SentOn, sender)
	if err != nil {
		return nil, fmt.Errorf("failed to update throttle state: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit throttle state: %w", err)
	}

	return &state, nil
}

func isDeadlock(err error) bool {
	var myErr *mysql.MySQLError
	return errors.As(err, &myErr) && myErr.Number == errDeadlock
}

// Get returns the stored state or nil when the sender never sent.
func (r *ThrottleRepository) Get(ctx context.Context, sender string) (*domain.ThrottleState, error) {
	var state domain.ThrottleState
	err := r.db.GetContext(ctx, &state, "SELECT "+throttleColumns+" FROM throttle_state WHERE sender_identity = ?", sender)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get throttle state: %w", err)
	}

	return &state, nil
}
