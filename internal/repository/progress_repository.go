package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/onurcolak/outreach-sequencer/internal/domain"
)

// ProgressRepository is the system of record for per-lead step state. Every
// mutating method is a single statement or a single transaction.
type ProgressRepository struct {
	db        *sqlx.DB
	chunkSize int
}

func NewProgressRepository(db *sqlx.DB, chunkSize int) *ProgressRepository {
	if chunkSize <= 0 {
		chunkSize = 500
	}
	return &ProgressRepository{db: db, chunkSize: chunkSize}
}

const taskSelect = `
	SELECT p.id, p.lead_id, p.campaign_id, p.step_number, p.status, p.due_at, p.attempts,
	       s.channel_type, s.template_ref,
	       l.first_name, l.last_name, l.email, l.phone, l.company,
	       c.offer, c.calendar_url, c.sender_identity
	FROM lead_step_progress p
	JOIN sequence_steps s ON s.campaign_id = p.campaign_id AND s.step_number = p.step_number
	JOIN leads l ON l.id = p.lead_id
	JOIN campaigns c ON c.id = p.campaign_id
`

const progressColumns = `id, lead_id, campaign_id, step_number, status, due_at, last_attempted_at,
	attempts, claim_token, claimed_at, created_at, updated_at`

// Publish locks the campaign row, reads its steps and target leads, lets
// plan build the timeline, bulk inserts it and activates the campaign, all in
// one transaction. Rows that already exist are left untouched, so publishing
// twice never duplicates a (lead, campaign, step).
func (r *ProgressRepository) Publish(
	ctx context.Context,
	campaignID int64,
	publishAt time.Time,
	plan domain.PublishPlanner,
) (*domain.PublishResult, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var campaign domain.Campaign
	err = tx.GetContext(ctx, &campaign, "SELECT "+campaignColumns+" FROM campaigns WHERE id = ? FOR UPDATE", campaignID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrCampaignNotFound
		}
		return nil, fmt.Errorf("failed to lock campaign: %w", err)
	}

	steps, err := getSteps(ctx, tx, campaignID)
	if err != nil {
		return nil, err
	}

	leads, err := getLeads(ctx, tx, campaignID)
	if err != nil {
		return nil, err
	}

	rows, err := plan(domain.PublishInput{Campaign: campaign, Steps: steps, Leads: leads})
	if err != nil {
		return nil, err
	}

	var created int64
	for start := 0; start < len(rows); start += r.chunkSize {
		end := min(start+r.chunkSize, len(rows))

		result, err := tx.NamedExecContext(ctx, `
			INSERT INTO lead_step_progress (lead_id, campaign_id, step_number, status, due_at)
			VALUES (:lead_id, :campaign_id, :step_number, :status, :due_at)
			ON DUPLICATE KEY UPDATE id = id
		`, rows[start:end])
		if err != nil {
			return nil, fmt.Errorf("failed to insert progress rows: %w", err)
		}

		n, err := result.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("failed to get affected rows: %w", err)
		}
		created += n
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE campaigns
		SET is_active = TRUE,
		    published_at = COALESCE(published_at, ?),
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, publishAt, campaignID)
	if err != nil {
		return nil, fmt.Errorf("failed to activate campaign: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit publish: %w", err)
	}

	return &domain.PublishResult{
		CampaignID:  campaignID,
		PublishedAt: publishAt,
		LeadCount:   len(leads),
		StepCount:   len(steps),
		RowsCreated: created,
	}, nil
}

// GetReady returns due, unclaimed steps of active campaigns, oldest due first.
// Steps on throttled channels whose sender is in blockedSenders are left out
// so a sender waiting out its budget cannot crowd other work out of the
// batch. It never changes state.
func (r *ProgressRepository) GetReady(ctx context.Context, now time.Time, limit int, blockedSenders ...string) ([]domain.ReadyTask, error) {
	query := taskSelect + `
		WHERE p.status = 'ready' AND p.due_at <= ? AND c.is_active = TRUE`
	args := []any{now}

	if len(blockedSenders) > 0 {
		channels := make([]string, 0, len(domain.ThrottledChannels()))
		for _, ch := range domain.ThrottledChannels() {
			channels = append(channels, string(ch))
		}

		query += `
		  AND NOT (s.channel_type IN (?) AND c.sender_identity IN (?))`
		args = append(args, channels, blockedSenders)
	}

	query += `
		ORDER BY p.due_at ASC, p.id ASC
		LIMIT ?
	`
	args = append(args, limit)

	query, args, err := sqlx.In(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to build ready query: %w", err)
	}

	var tasks []domain.ReadyTask
	if err := r.db.SelectContext(ctx, &tasks, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to get ready tasks: %w", err)
	}

	return tasks, nil
}

// Claim moves a row from ready to running with a conditional update. Of any
// number of concurrent callers for the same row at most one sees a changed
// row; the others get ErrClaimLost.
func (r *ProgressRepository) Claim(ctx context.Context, id int64, now time.Time) (*domain.ClaimedTask, error) {
	token := uuid.NewString()

	result, err := r.db.ExecContext(ctx, `
		UPDATE lead_step_progress p
		JOIN campaigns c ON c.id = p.campaign_id
		SET p.status = 'running',
		    p.claim_token = ?,
		    p.claimed_at = ?,
		    p.attempts = p.attempts + 1,
		    p.updated_at = CURRENT_TIMESTAMP
		WHERE p.id = ? AND p.status = 'ready' AND p.due_at <= ? AND c.is_active = TRUE
	`, token, now, id, now)
	if err != nil {
		return nil, fmt.Errorf("failed to claim step: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get affected rows: %w", err)
	}

	if rows == 0 {
		if err := r.ensureExists(ctx, id); err != nil {
			return nil, err
		}
		return nil, domain.ErrClaimLost
	}

	var task domain.ReadyTask
	if err := r.db.GetContext(ctx, &task, taskSelect+" WHERE p.id = ?", id); err != nil {
		return nil, fmt.Errorf("failed to load claimed step: %w", err)
	}

	return &domain.ClaimedTask{ReadyTask: task, ClaimToken: token, ClaimedAt: now}, nil
}

// Release hands a claimed row back to ready without counting the attempt,
// e.g. when the sender is throttled or the runner was unreachable.
func (r *ProgressRepository) Release(ctx context.Context, id int64, token string) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE lead_step_progress
		SET status = 'ready',
		    claim_token = NULL,
		    claimed_at = NULL,
		    attempts = GREATEST(attempts - 1, 0),
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND status = 'running' AND claim_token = ?
	`, id, token)
	if err != nil {
		return fmt.Errorf("failed to release step: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}

	if rows == 0 {
		if err := r.ensureExists(ctx, id); err != nil {
			return err
		}
		return domain.ErrClaimMismatch
	}

	return nil
}

// RequeueStale returns running rows claimed before staleBefore to ready.
func (r *ProgressRepository) RequeueStale(ctx context.Context, staleBefore time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE lead_step_progress
		SET status = 'ready',
		    claim_token = NULL,
		    claimed_at = NULL,
		    updated_at = CURRENT_TIMESTAMP
		WHERE status = 'running' AND claimed_at < ?
	`, staleBefore)
	if err != nil {
		return 0, fmt.Errorf("failed to requeue stale steps: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}

	return rows, nil
}

// Complete records the outcome of a step and, when the plan says so,
// activates the immediate successor. The row is locked for the whole
// transaction so concurrent completions serialize; the second one sees a
// terminal row and becomes a duplicate no-op. claim_token is kept so a
// replayed completion can be matched to the claim it settled.
func (r *ProgressRepository) Complete(
	ctx context.Context,
	id int64,
	success bool,
	token string,
	policy domain.CompletionPolicy,
	now time.Time,
) (*domain.CompletionResult, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var row domain.LeadStepProgress
	err = tx.GetContext(ctx, &row, "SELECT "+progressColumns+" FROM lead_step_progress WHERE id = ? FOR UPDATE", id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrStepNotFound
		}
		return nil, fmt.Errorf("failed to lock step: %w", err)
	}

	plan, err := domain.PlanCompletion(row, success, token, policy, now)
	if err != nil {
		return nil, err
	}

	result := &domain.CompletionResult{ID: id, Status: plan.NewStatus}

	if plan.Duplicate {
		result.Duplicate = true
		return result, nil
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE lead_step_progress
		SET status = ?,
		    last_attempted_at = ?,
		    due_at = COALESCE(?, due_at),
		    claimed_at = NULL,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, plan.NewStatus, now, plan.RescheduleDueAt, id)
	if err != nil {
		return nil, fmt.Errorf("failed to record step outcome: %w", err)
	}

	result.Retrying = plan.RescheduleDueAt != nil

	if plan.ActivateNext {
		res, err := tx.ExecContext(ctx, `
			UPDATE lead_step_progress
			SET status = 'ready', updated_at = CURRENT_TIMESTAMP
			WHERE lead_id = ? AND campaign_id = ? AND step_number = ? AND status = 'queued'
		`, row.LeadID, row.CampaignID, row.StepNumber+1)
		if err != nil {
			return nil, fmt.Errorf("failed to activate successor step: %w", err)
		}

		n, err := res.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("failed to get affected rows: %w", err)
		}
		result.SuccessorActivated = n == 1
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit completion: %w", err)
	}

	return result, nil
}

func (r *ProgressRepository) GetByID(ctx context.Context, id int64) (*domain.LeadStepProgress, error) {
	var row domain.LeadStepProgress
	if err := r.db.GetContext(ctx, &row, "SELECT "+progressColumns+" FROM lead_step_progress WHERE id = ?", id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrStepNotFound
		}
		return nil, fmt.Errorf("failed to get step: %w", err)
	}

	return &row, nil
}

// GetForLead returns a lead's timeline in step order.
func (r *ProgressRepository) GetForLead(ctx context.Context, campaignID, leadID int64) ([]domain.LeadStepProgress, error) {
	var rows []domain.LeadStepProgress
	err := r.db.SelectContext(ctx, &rows,
		"SELECT "+progressColumns+" FROM lead_step_progress WHERE campaign_id = ? AND lead_id = ? ORDER BY step_number ASC",
		campaignID, leadID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get lead progress: %w", err)
	}

	return rows, nil
}

// GetStats returns row counts per status for a campaign.
func (r *ProgressRepository) GetStats(ctx context.Context, campaignID int64) (*domain.ProgressStats, error) {
	query := `
		SELECT
			COALESCE(SUM(CASE WHEN status = 'queued' THEN 1 ELSE 0 END), 0)  AS queued,
			COALESCE(SUM(CASE WHEN status = 'ready' THEN 1 ELSE 0 END), 0)   AS ready,
			COALESCE(SUM(CASE WHEN status = 'running' THEN 1 ELSE 0 END), 0) AS running,
			COALESCE(SUM(CASE WHEN status = 'done' THEN 1 ELSE 0 END), 0)    AS done,
			COALESCE(SUM(CASE WHEN status = 'failed' THEN 1 ELSE 0 END), 0)  AS failed
		FROM lead_step_progress
		WHERE campaign_id = ?
	`

	var stats domain.ProgressStats
	if err := r.db.GetContext(ctx, &stats, query, campaignID); err != nil {
		return nil, fmt.Errorf("failed to get stats: %w", err)
	}

	return &stats, nil
}

func (r *ProgressRepository) ensureExists(ctx context.Context, id int64) error {
	var count int
	if err := r.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM lead_step_progress WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to check step: %w", err)
	}
	if count == 0 {
		return domain.ErrStepNotFound
	}
	return nil
}
