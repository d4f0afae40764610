package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/onurcolak/outreach-sequencer/internal/domain"
)

// TemplateRepository stores the ordered step definitions of each campaign.
type TemplateRepository struct {
	db *sqlx.DB
}

func NewTemplateRepository(db *sqlx.DB) *TemplateRepository {
	return &TemplateRepository{db: db}
}

func getSteps(ctx context.Context, q sqlx.QueryerContext, campaignID int64) ([]domain.SequenceStep, error) {
	query := `
		SELECT campaign_id, step_number, channel_type, wait_seconds, template_ref
		FROM sequence_steps
		WHERE campaign_id = ?
		ORDER BY step_number ASC
	`

	var steps []domain.SequenceStep
	if err := sqlx.SelectContext(ctx, q, &steps, query, campaignID); err != nil {
		return nil, fmt.Errorf("failed to get sequence steps: %w", err)
	}

	return steps, nil
}

func (r *TemplateRepository) GetSteps(ctx context.Context, campaignID int64) ([]domain.SequenceStep, error) {
	return getSteps(ctx, r.db, campaignID)
}

// ReplaceSteps swaps the whole sequence of a campaign that was never
// published. Published templates are immutable.
func (r *TemplateRepository) ReplaceSteps(ctx context.Context, campaignID int64, steps []domain.SequenceStep) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var publishedAt sql.NullTime
	err = tx.GetContext(ctx, &publishedAt, "SELECT published_at FROM campaigns WHERE id = ? FOR UPDATE", campaignID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrCampaignNotFound
		}
		return fmt.Errorf("failed to lock campaign: %w", err)
	}

	if publishedAt.Valid {
		return domain.ErrSequenceLocked
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM sequence_steps WHERE campaign_id = ?", campaignID); err != nil {
		return fmt.Errorf("failed to clear sequence steps: %w", err)
	}

	for i := range steps {
		steps[i].CampaignID = campaignID
	}

	if len(steps) > 0 {
		_, err = tx.NamedExecContext(ctx, `
			INSERT INTO sequence_steps (campaign_id, step_number, channel_type, wait_seconds, template_ref)
			VALUES (:campaign_id, :step_number, :channel_type, :wait_seconds, :template_ref)
		`, steps)
		if err != nil {
			return fmt.Errorf("failed to insert sequence steps: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit sequence steps: %w", err)
	}

	return nil
}
