package domain

import (
	"fmt"
	"time"
)

type StepStatus string

const (
	StepQueued  StepStatus = "queued"
	StepReady   StepStatus = "ready"
	StepRunning StepStatus = "running"
	StepDone    StepStatus = "done"
	StepFailed  StepStatus = "failed"
)

func (s StepStatus) Terminal() bool {
	return s == StepDone || s == StepFailed
}

// LeadStepProgress is the per-lead, per-step execution record.
type LeadStepProgress struct {
	ID              int64      `db:"id" json:"id"`
	LeadID          int64      `db:"lead_id" json:"leadId"`
	CampaignID      int64      `db:"campaign_id" json:"campaignId"`
	StepNumber      int        `db:"step_number" json:"stepNumber"`
	Status          StepStatus `db:"status" json:"status"`
	DueAt           time.Time  `db:"due_at" json:"dueAt"`
	LastAttemptedAt *time.Time `db:"last_attempted_at" json:"lastAttemptedAt,omitempty"`
	Attempts        int        `db:"attempts" json:"attempts"`
	ClaimToken      *string    `db:"claim_token" json:"-"`
	ClaimedAt       *time.Time `db:"claimed_at" json:"claimedAt,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updatedAt"`
}

// ReadyTask is a due, unclaimed step with everything an executor needs to
// act on it in one round trip.
type ReadyTask struct {
	ID             int64       `db:"id" json:"id"`
	LeadID         int64       `db:"lead_id" json:"leadId"`
	CampaignID     int64       `db:"campaign_id" json:"campaignId"`
	StepNumber     int         `db:"step_number" json:"stepNumber"`
	Status         StepStatus  `db:"status" json:"status"`
	DueAt          time.Time   `db:"due_at" json:"dueAt"`
	Attempts       int         `db:"attempts" json:"attempts"`
	ChannelType    ChannelType `db:"channel_type" json:"channelType"`
	TemplateRef    string      `db:"template_ref" json:"templateRef"`
	FirstName      string      `db:"first_name" json:"firstName"`
	LastName       string      `db:"last_name" json:"lastName"`
	Email          string      `db:"email" json:"email"`
	Phone          string      `db:"phone" json:"phone"`
	Company        string      `db:"company" json:"company"`
	Offer          string      `db:"offer" json:"offer"`
	CalendarURL    string      `db:"calendar_url" json:"calendarUrl"`
	SenderIdentity string      `db:"sender_identity" json:"senderIdentity"`
}

// ClaimedTask is a ReadyTask that this caller moved to running.
type ClaimedTask struct {
	ReadyTask
	ClaimToken string    `json:"claimToken"`
	ClaimedAt  time.Time `json:"claimedAt"`
}

type CompletionResult struct {
	ID                 int64      `json:"id"`
	Status             StepStatus `json:"status"`
	SuccessorActivated bool       `json:"successorActivated"`
	Duplicate          bool       `json:"duplicate"`
	Retrying           bool       `json:"retrying"`
}

type PublishResult struct {
	CampaignID  int64     `json:"campaignId"`
	PublishedAt time.Time `json:"publishedAt"`
	LeadCount   int       `json:"leadCount"`
	StepCount   int       `json:"stepCount"`
	RowsCreated int64     `json:"rowsCreated"`
}

type ProgressStats struct {
	Queued  int64 `db:"queued" json:"queued"`
	Ready   int64 `db:"ready" json:"ready"`
	Running int64 `db:"running" json:"running"`
	Done    int64 `db:"done" json:"done"`
	Failed  int64 `db:"failed" json:"failed"`
}

// TimelineEntry is one precomputed step for a lead.
type TimelineEntry struct {
	StepNumber int
	Status     StepStatus
	DueAt      time.Time
}

// BuildTimeline walks the steps in order with a cursor starting at
// publishAt. Step 1 is due at publishAt and ready; every later step adds its
// wait to the cursor and starts queued. Steps must already be validated.
func BuildTimeline(steps []SequenceStep, publishAt time.Time) []TimelineEntry {
	entries := make([]TimelineEntry, 0, len(steps))
	cursor := publishAt

	for i, step := range steps {
		if i == 0 {
			entries = append(entries, TimelineEntry{
				StepNumber: step.StepNumber,
				Status:     StepReady,
				DueAt:      cursor,
			})
			continue
		}

		cursor = cursor.Add(time.Duration(step.WaitSeconds) * time.Second)
		entries = append(entries, TimelineEntry{
			StepNumber: step.StepNumber,
			Status:     StepQueued,
			DueAt:      cursor,
		})
	}

	return entries
}

type FailurePolicy string

const (
	// FailureHalt leaves the lead's later steps queued forever.
	FailureHalt FailurePolicy = "halt"
	// FailureSkip records the failure and still activates the successor.
	FailureSkip FailurePolicy = "skip"
	// FailureRetry puts the step back to ready until attempts run out.
	FailureRetry FailurePolicy = "retry"
)

func ParseFailurePolicy(s string) (FailurePolicy, error) {
	switch FailurePolicy(s) {
	case FailureHalt, FailureSkip, FailureRetry:
		return FailurePolicy(s), nil
	case "":
		return FailureHalt, nil
	}
	return "", fmt.Errorf("unknown failure policy %q", s)
}

// CompletionPolicy bundles the failure policy with its retry parameters.
type CompletionPolicy struct {
	OnFailure    FailurePolicy
	MaxAttempts  int
	RetryBackoff time.Duration
}

// CompletionPlan is what the store has to apply for one completion call.
type CompletionPlan struct {
	Duplicate        bool
	NewStatus        StepStatus
	ActivateNext     bool
	RescheduleDueAt  *time.Time
	StampAttemptedAt bool
}

// PlanCompletion decides the outcome of complete(step, success) for the
// current row state. Terminal rows yield a duplicate no-op plan; queued rows
// were never activated and are rejected. A non-empty token must match the
// row's last claim. The token outlives the completion that settled it, so a
// repeated call for a claim that was already rescheduled is a duplicate.
func PlanCompletion(row LeadStepProgress, success bool, token string, policy CompletionPolicy, now time.Time) (CompletionPlan, error) {
	if row.Status.Terminal() {
		return CompletionPlan{Duplicate: true, NewStatus: row.Status}, nil
	}

	if row.Status == StepQueued {
		return CompletionPlan{}, ErrInvalidTransition
	}

	if token != "" {
		if row.ClaimToken == nil || *row.ClaimToken != token {
			return CompletionPlan{}, ErrClaimMismatch
		}
		if row.Status == StepReady {
			return CompletionPlan{Duplicate: true, NewStatus: row.Status}, nil
		}
	}

	plan := CompletionPlan{StampAttemptedAt: true}

	if success {
		plan.NewStatus = StepDone
		plan.ActivateNext = true
		return plan, nil
	}

	switch policy.OnFailure {
	case FailureSkip:
		plan.NewStatus = StepFailed
		plan.ActivateNext = true
	case FailureRetry:
		if row.Attempts < policy.MaxAttempts {
			next := now.Add(policy.RetryBackoff)
			plan.NewStatus = StepReady
			plan.RescheduleDueAt = &next
			return plan, nil
		}
		plan.NewStatus = StepFailed
	default:
		plan.NewStatus = StepFailed
	}

	return plan, nil
}

// ProgressRow is one LeadStepProgress row to insert at publish time.
type ProgressRow struct {
	LeadID     int64      `db:"lead_id"`
	CampaignID int64      `db:"campaign_id"`
	StepNumber int        `db:"step_number"`
	Status     StepStatus `db:"status"`
	DueAt      time.Time  `db:"due_at"`
}

// PublishInput is the campaign data read inside the publish transaction.
type PublishInput struct {
	Campaign Campaign
	Steps    []SequenceStep
	Leads    []Lead
}

// PublishPlanner turns the campaign data read under lock into the rows to
// insert. Returning an error aborts the publish with nothing persisted.
type PublishPlanner func(input PublishInput) ([]ProgressRow, error)

// CompletedStep is the cached outcome of a recent completion.
type CompletedStep struct {
	StepID             int64      `json:"stepId"`
	Status             StepStatus `json:"status"`
	SuccessorActivated bool       `json:"successorActivated"`
	CompletedAt        time.Time  `json:"completedAt"`
}
