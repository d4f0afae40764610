package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/onurcolak/outreach-sequencer/internal/domain"
)

// fakePublishStore runs the planner against fixed campaign data and keeps
// the rows it would have inserted.
type fakePublishStore struct {
	input    domain.PublishInput
	err      error
	inserted []domain.ProgressRow
	calls    int
}

func (f *fakePublishStore) Publish(
	ctx context.Context,
	campaignID int64,
	publishAt time.Time,
	plan domain.PublishPlanner,
) (*domain.PublishResult, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}

	rows, err := plan(f.input)
	if err != nil {
		return nil, err
	}
	f.inserted = append(f.inserted, rows...)

	return &domain.PublishResult{
		CampaignID:  campaignID,
		PublishedAt: publishAt,
		LeadCount:   len(f.input.Leads),
		StepCount:   len(f.input.Steps),
		RowsCreated: int64(len(rows)),
	}, nil
}

func TestPublish_BuildsTimelinePerLead(t *testing.T) {
	store := &fakePublishStore{
		input: domain.PublishInput{
			Campaign: domain.Campaign{ID: 7},
			Steps:    threeStepSequence(),
			Leads: []domain.Lead{
				{ID: 1, Email: "a@example.com", Phone: "+15550000001"},
				{ID: 2, Email: "b@example.com", Phone: "+15550000002"},
			},
		},
	}

	publisher := NewPublisher(store)
	publisher.now = func() time.Time { return publishTime }

	result, err := publisher.Publish(context.Background(), 7)
	if err != nil {
		t.Fatalf("Publish returned error: %v", err)
	}

	if result.RowsCreated != 6 || result.LeadCount != 2 || result.StepCount != 3 {
		t.Fatalf("unexpected publish result: %+v", result)
	}

	expected := []struct {
		status domain.StepStatus
		dueAt  time.Time
	}{
		{domain.StepReady, publishTime},
		{domain.StepQueued, publishTime.Add(3600 * time.Second)},
		{domain.StepQueued, publishTime.Add(10800 * time.Second)},
	}

	for i, row := range store.inserted {
		want := expected[i%3]
		if row.CampaignID != 7 {
			t.Errorf("row %d: expected campaign 7, got %d", i, row.CampaignID)
		}
		if row.StepNumber != i%3+1 {
			t.Errorf("row %d: expected step %d, got %d", i, i%3+1, row.StepNumber)
		}
		if row.Status != want.status || !row.DueAt.Equal(want.dueAt) {
			t.Errorf("row %d: expected %s at %v, got %s at %v", i, want.status, want.dueAt, row.Status, row.DueAt)
		}
	}
}

func TestPublish_InvalidSequenceWritesNothing(t *testing.T) {
	steps := threeStepSequence()
	steps[1].StepNumber = 4

	store := &fakePublishStore{
		input: domain.PublishInput{
			Campaign: domain.Campaign{ID: 7},
			Steps:    steps,
			Leads:    []domain.Lead{{ID: 1, Email: "a@example.com", Phone: "+15550000001"}},
		},
	}

	_, err := NewPublisher(store).Publish(context.Background(), 7)
	if !errors.Is(err, domain.ErrInvalidSequence) {
		t.Fatalf("expected ErrInvalidSequence, got %v", err)
	}

	var cfgErr *domain.ConfigError
	if !errors.As(err, &cfgErr) || len(cfgErr.Problems) == 0 {
		t.Fatalf("expected a ConfigError with problems, got %v", err)
	}

	if len(store.inserted) != 0 {
		t.Fatalf("expected no rows, got %d", len(store.inserted))
	}
}

func TestPublish_LeadMissingContactField(t *testing.T) {
	store := &fakePublishStore{
		input: domain.PublishInput{
			Campaign: domain.Campaign{ID: 7},
			Steps:    threeStepSequence(),
			Leads:    []domain.Lead{{ID: 1, Phone: "+15550000001"}},
		},
	}

	_, err := NewPublisher(store).Publish(context.Background(), 7)
	if !errors.Is(err, domain.ErrInvalidSequence) {
		t.Fatalf("expected ErrInvalidSequence, got %v", err)
	}
	if len(store.inserted) != 0 {
		t.Fatalf("expected no rows, got %d", len(store.inserted))
	}
}

func TestPublish_NoLeads(t *testing.T) {
	store := &fakePublishStore{
		input: domain.PublishInput{
			Campaign: domain.Campaign{ID: 7},
			Steps:    threeStepSequence(),
		},
	}

	_, err := NewPublisher(store).Publish(context.Background(), 7)
	if !errors.Is(err, domain.ErrInvalidSequence) {
		t.Fatalf("expected ErrInvalidSequence, got %v", err)
	}
}

func TestPublish_CampaignNotFound(t *testing.T) {
	store := &fakePublishStore{err: domain.ErrCampaignNotFound}

	_, err := NewPublisher(store).Publish(context.Background(), 404)
	if !errors.Is(err, domain.ErrCampaignNotFound) {
		t.Fatalf("expected ErrCampaignNotFound, got %v", err)
	}
}
