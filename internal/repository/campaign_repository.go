package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/onurcolak/outreach-sequencer/internal/domain"
)

// CampaignRepository reads campaign state owned by the campaign subsystem.
// The engine only flips is_active.
type CampaignRepository struct {
	db *sqlx.DB
}

func NewCampaignRepository(db *sqlx.DB) *CampaignRepository {
	return &CampaignRepository{db: db}
}

const campaignColumns = `id, name, is_active, sender_identity, offer, calendar_url, published_at`

func (r *CampaignRepository) GetByID(ctx context.Context, id int64) (*domain.Campaign, error) {
	var campaign domain.Campaign
	if err := r.db.GetContext(ctx, &campaign, "SELECT "+campaignColumns+" FROM campaigns WHERE id = ?", id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrCampaignNotFound
		}
		return nil, fmt.Errorf("failed to get campaign: %w", err)
	}

	return &campaign, nil
}

// SetActive pauses or resumes a campaign. Pausing hides its ready rows from
// the ready-task view and from claims without touching scheduling state.
func (r *CampaignRepository) SetActive(ctx context.Context, id int64, active bool) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE campaigns SET is_active = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ? AND published_at IS NOT NULL",
		active, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update campaign state: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}

	if rows == 0 {
		// Either unknown or never published; both are "not found" for pause/resume.
		var exists int
		if err := r.db.GetContext(ctx, &exists, "SELECT COUNT(*) FROM campaigns WHERE id = ? AND published_at IS NOT NULL", id); err != nil {
			return fmt.Errorf("failed to check campaign: %w", err)
		}
		if exists == 0 {
			return domain.ErrCampaignNotFound
		}
	}

	return nil
}

func getLeads(ctx context.Context, q sqlx.QueryerContext, campaignID int64) ([]domain.Lead, error) {
	query := `
		SELECT l.id, l.first_name, l.last_name, l.email, l.phone, l.company
		FROM campaign_leads cl
		JOIN leads l ON l.id = cl.lead_id
		WHERE cl.campaign_id = ?
		ORDER BY l.id ASC
	`

	var leads []domain.Lead
	if err := sqlx.SelectContext(ctx, q, &leads, query, campaignID); err != nil {
		return nil, fmt.Errorf("failed to get campaign leads: %w", err)
	}

	return leads, nil
}
