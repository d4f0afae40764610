package service

import (
	"context"

	"github.com/onurcolak/outreach-sequencer/internal/domain"
	"github.com/onurcolak/outreach-sequencer/pkg/logger"
)

type campaignStore interface {
	GetByID(ctx context.Context, id int64) (*domain.Campaign, error)
	SetActive(ctx context.Context, id int64, active bool) error
}

type templateStore interface {
	GetSteps(ctx context.Context, campaignID int64) ([]domain.SequenceStep, error)
	ReplaceSteps(ctx context.Context, campaignID int64, steps []domain.SequenceStep) error
}

type statsStore interface {
	GetStats(ctx context.Context, campaignID int64) (*domain.ProgressStats, error)
	GetForLead(ctx context.Context, campaignID, leadID int64) ([]domain.LeadStepProgress, error)
}

// CampaignService groups the campaign-level operations around the engine:
// pause/resume, sequence templates and progress counters.
type CampaignService struct {
	campaigns campaignStore
	templates templateStore
	stats     statsStore
}

func NewCampaignService(campaigns campaignStore, templates templateStore, stats statsStore) *CampaignService {
	return &CampaignService{campaigns: campaigns, templates: templates, stats: stats}
}

func (s *CampaignService) Pause(ctx context.Context, id int64) error {
	if err := s.campaigns.SetActive(ctx, id, false); err != nil {
		return err
	}
	logger.Infof("Campaign %d paused", id)
	return nil
}

func (s *CampaignService) Resume(ctx context.Context, id int64) error {
	if err := s.campaigns.SetActive(ctx, id, true); err != nil {
		return err
	}
	logger.Infof("Campaign %d resumed", id)
	return nil
}

func (s *CampaignService) GetSequence(ctx context.Context, id int64) ([]domain.SequenceStep, error) {
	if _, err := s.campaigns.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return s.templates.GetSteps(ctx, id)
}

// ReplaceSequence stores a new template for a campaign that was never
// published.
func (s *CampaignService) ReplaceSequence(ctx context.Context, id int64, steps []domain.SequenceStep) error {
	if err := domain.ValidateSequence(steps); err != nil {
		return err
	}
	return s.templates.ReplaceSteps(ctx, id, steps)
}

func (s *CampaignService) Stats(ctx context.Context, id int64) (*domain.ProgressStats, error) {
	if _, err := s.campaigns.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return s.stats.GetStats(ctx, id)
}

// LeadTimeline returns one lead's progress rows in step order. A lead that
// was never published into the campaign has an empty timeline.
func (s *CampaignService) LeadTimeline(ctx context.Context, campaignID, leadID int64) ([]domain.LeadStepProgress, error) {
	if _, err := s.campaigns.GetByID(ctx, campaignID); err != nil {
		return nil, err
	}
	return s.stats.GetForLead(ctx, campaignID, leadID)
}
