package webhook

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// Alert is posted when the dispatcher keeps failing every step it hands off.
type Alert struct {
	Alert               string `json:"alert"`
	RunNumber           int64  `json:"runNumber"`
	ConsecutiveFailures int    `json:"consecutiveFailures"`
	StepsInBatch        int    `json:"stepsInBatch"`
	Timestamp           string `json:"timestamp"`
	Message             string `json:"message"`
}

func NewAllFailAlert(runNumber int64, consecutiveFailures, stepsInBatch int) Alert {
	return Alert{
		Alert:               "consecutive_all_fail",
		RunNumber:           runNumber,
		ConsecutiveFailures: consecutiveFailures,
		StepsInBatch:        stepsInBatch,
		Timestamp:           time.Now().UTC().Format(time.RFC3339),
		Message: fmt.Sprintf(
			"All %d dispatched steps failed for %d consecutive runs",
			stepsInBatch,
			consecutiveFailures,
		),
	}
}

type AlertClient struct {
	httpClient *resty.Client
}

func NewAlertClient(timeout time.Duration) *AlertClient {
	return &AlertClient{
		httpClient: resty.New().
			SetTimeout(timeout).
			SetHeader("Content-Type", "application/json"),
	}
}

// Send posts alert to url. Only 200 and 204 count as delivered.
func (c *AlertClient) Send(ctx context.Context, url string, alert Alert) error {
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(alert).
		Post(url)
	if err != nil {
		return fmt.Errorf("failed to send alert: %w", err)
	}

	if code := resp.StatusCode(); code != 200 && code != 204 {
		return fmt.Errorf("alert webhook returned status %d", code)
	}

	return nil
}
