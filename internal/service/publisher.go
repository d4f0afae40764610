package service

import (
	"context"
	"time"

	"github.com/onurcolak/outreach-sequencer/internal/domain"
	"github.com/onurcolak/outreach-sequencer/pkg/logger"
)

type publishStore interface {
	Publish(ctx context.Context, campaignID int64, publishAt time.Time, plan domain.PublishPlanner) (*domain.PublishResult, error)
}

// Publisher turns a configured campaign into live per-lead timelines.
type Publisher struct {
	store publishStore
	now   func() time.Time
}

func NewPublisher(store publishStore) *Publisher {
	return &Publisher{store: store, now: time.Now}
}

// Publish validates the campaign and materializes one progress row per
// (lead, step). Nothing is written when validation fails.
func (p *Publisher) Publish(ctx context.Context, campaignID int64) (*domain.PublishResult, error) {
	// DATETIME(6) rounds sub-microsecond digits; keep what we return equal to what is stored.
	publishAt := p.now().UTC().Truncate(time.Microsecond)

	result, err := p.store.Publish(ctx, campaignID, publishAt, func(input domain.PublishInput) ([]domain.ProgressRow, error) {
		return planTimelines(input, publishAt)
	})
	if err != nil {
		return nil, err
	}

	logger.WithFields(logger.Fields{
		"campaignId":  campaignID,
		"leads":       result.LeadCount,
		"steps":       result.StepCount,
		"rowsCreated": result.RowsCreated,
	}).Info("Campaign published")

	return result, nil
}

func planTimelines(input domain.PublishInput, publishAt time.Time) ([]domain.ProgressRow, error) {
	if err := domain.ValidateSequence(input.Steps); err != nil {
		return nil, err
	}

	if err := domain.ValidateLeads(input.Leads, input.Steps); err != nil {
		return nil, err
	}

	timeline := domain.BuildTimeline(input.Steps, publishAt)

	rows := make([]domain.ProgressRow, 0, len(input.Leads)*len(timeline))
	for _, lead := range input.Leads {
		for _, entry := range timeline {
			rows = append(rows, domain.ProgressRow{
				LeadID:     lead.ID,
				CampaignID: input.Campaign.ID,
				StepNumber: entry.StepNumber,
				Status:     entry.Status,
				DueAt:      entry.DueAt,
			})
		}
	}

	return rows, nil
}
