package webhook

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/onurcolak/outreach-sequencer/environments"
	"github.com/onurcolak/outreach-sequencer/internal/domain"
	"github.com/onurcolak/outreach-sequencer/pkg/logger"
)

// StepRequest is what the workflow runner receives for one claimed step.
type StepRequest struct {
	StepID         int64              `json:"stepId"`
	ClaimToken     string             `json:"claimToken"`
	CampaignID     int64              `json:"campaignId"`
	LeadID         int64              `json:"leadId"`
	StepNumber     int                `json:"stepNumber"`
	Channel        domain.ChannelType `json:"channel"`
	TemplateRef    string             `json:"templateRef"`
	SenderIdentity string             `json:"senderIdentity"`
	Lead           StepLead           `json:"lead"`
	Offer          string             `json:"offer"`
	CalendarURL    string             `json:"calendarUrl"`
	Attempt        int                `json:"attempt"`
}

type StepLead struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Company   string `json:"company"`
}

// StepResponse is the runner's verdict on a step.
type StepResponse struct {
	Outcome string `json:"outcome"`
	Detail  string `json:"detail,omitempty"`
}

const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// ErrOutcomeUnknown means the request may have reached the runner but no
// verdict came back, so the step may already have been sent.
var ErrOutcomeUnknown = errors.New("runner outcome unknown")

// Client hands claimed steps to the external workflow runner. Requests are
// never retried here: a retried POST could send the step twice.
type Client struct {
	httpClient *resty.Client
	runnerURL  string
}

func NewRunnerClient(cfg environments.RunnerConfig) *Client {
	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetRetryCount(0).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	if cfg.AuthKey != "" {
		client.SetHeader("x-runner-auth-key", cfg.AuthKey)
	}

	return &Client{
		httpClient: client,
		runnerURL:  cfg.URL,
	}
}

func newStepRequest(task domain.ClaimedTask) StepRequest {
	return StepRequest{
		StepID:         task.ID,
		ClaimToken:     task.ClaimToken,
		CampaignID:     task.CampaignID,
		LeadID:         task.LeadID,
		StepNumber:     task.StepNumber,
		Channel:        task.ChannelType,
		TemplateRef:    task.TemplateRef,
		SenderIdentity: task.SenderIdentity,
		Lead: StepLead{
			FirstName: task.FirstName,
			LastName:  task.LastName,
			Email:     task.Email,
			Phone:     task.Phone,
			Company:   task.Company,
		},
		Offer:       task.Offer,
		CalendarURL: task.CalendarURL,
		Attempt:     task.Attempts,
	}
}

// Dispatch runs one step on the runner and reports whether it succeeded.
// Errors wrapping ErrOutcomeUnknown must not be retried right away; any other
// error means the runner did not act on the step.
func (c *Client) Dispatch(ctx context.Context, task domain.ClaimedTask) (bool, error) {
	var stepResp StepResponse

	startTime := time.Now()

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(newStepRequest(task)).
		SetResult(&stepResp).
		Post(c.runnerURL)

	duration := time.Since(startTime)

	if err != nil {
		if isTimeout(err) {
			return false, fmt.Errorf("%w: no response after %v: %v", ErrOutcomeUnknown, duration, err)
		}
		return false, fmt.Errorf("failed to send request: %w", err)
	}

	logger.Debugf("Runner request for step %d completed in %v (status: %d)", task.ID, duration, resp.StatusCode())

	if resp.StatusCode() != http.StatusOK {
		return false, fmt.Errorf("unexpected status code: %d (expected 200), body: %s", resp.StatusCode(), resp.String())
	}

	switch stepResp.Outcome {
	case OutcomeSuccess:
		return true, nil
	case OutcomeFailure:
		if stepResp.Detail != "" {
			logger.Infof("Runner reported failure for step %d: %s", task.ID, stepResp.Detail)
		}
		return false, nil
	default:
		return false, fmt.Errorf("unknown runner outcome %q", stepResp.Outcome)
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func (c *Client) GetURL() string {
	return c.runnerURL
}
