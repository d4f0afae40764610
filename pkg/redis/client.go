package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/valkey-io/valkey-go"

	"github.com/onurcolak/outreach-sequencer/environments"
	"github.com/onurcolak/outreach-sequencer/internal/domain"
	"github.com/onurcolak/outreach-sequencer/pkg/logger"
)

type Client struct {
	client        valkey.Client
	completionTTL time.Duration
}

const (
	completedStepKeyPrefix = "completed_step:"
	defaultCompletionTTL   = 24 * time.Hour
)

func NewRedisClient(cfg environments.RedisConfig, completionTTL time.Duration) (*Client, error) {
	client, err := valkey.NewClient(valkey.ClientOption{
		InitAddress: []string{fmt.Sprintf("%s:%s", cfg.Host, cfg.Port)},
		Password:    cfg.Password,
		SelectDB:    cfg.DB,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Valkey client: %w", err)
	}

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
		client.Close()

		return nil, fmt.Errorf("failed to connect to Valkey: %w", err)
	}

	logger.Infof("Connected to Valkey")

	if completionTTL <= 0 {
		completionTTL = defaultCompletionTTL
	}

	return &Client{client: client, completionTTL: completionTTL}, nil
}

func completedStepKey(stepID int64) string {
	return fmt.Sprintf("%s%d", completedStepKeyPrefix, stepID)
}

// CacheCompletion stores the outcome of a completed step for the
// recent-completions endpoint.
func (c *Client) CacheCompletion(ctx context.Context, completed domain.CompletedStep) error {
	data, err := json.Marshal(completed)
	if err != nil {
		return fmt.Errorf("failed to marshal completion: %w", err)
	}

	key := completedStepKey(completed.StepID)

	err = c.client.Do(ctx, c.client.B().Set().Key(key).Value(string(data)).Ex(c.completionTTL).Build()).Error()
	if err != nil {
		return fmt.Errorf("failed to cache completion: %w", err)
	}

	logger.Debugf("Cached completion of step %d (%s)", completed.StepID, completed.Status)

	return nil
}

// GetAllCachedCompletions scans every cached completion that has not expired.
func (c *Client) GetAllCachedCompletions(ctx context.Context) (map[int64]*domain.CompletedStep, error) {
	pattern := completedStepKeyPrefix + "*"
	result := make(map[int64]*domain.CompletedStep)

	var cursor uint64
	for {
		scan := c.client.Do(ctx, c.client.B().Scan().Cursor(cursor).Match(pattern).Count(100).Build())
		if scan.Error() != nil {
			return nil, fmt.Errorf("failed to scan completion keys: %w", scan.Error())
		}

		entry, err := scan.AsScanEntry()
		if err != nil {
			return nil, fmt.Errorf("failed to parse scan result: %w", err)
		}

		if len(entry.Elements) > 0 {
			if err := c.collectCompletions(ctx, entry.Elements, result); err != nil {
				return nil, err
			}
		}

		cursor = entry.Cursor
		if cursor == 0 {
			break
		}
	}

	return result, nil
}

func (c *Client) collectCompletions(ctx context.Context, keys []string, into map[int64]*domain.CompletedStep) error {
	values, err := c.client.Do(ctx, c.client.B().Mget().Key(keys...).Build()).ToArray()
	if err != nil {
		return fmt.Errorf("failed to load cached completions: %w", err)
	}

	for i, value := range values {
		if value.IsNil() {
			// expired between SCAN and MGET
			continue
		}

		data, err := value.ToString()
		if err != nil {
			continue
		}

		var completed domain.CompletedStep
		if err := json.Unmarshal([]byte(data), &completed); err != nil {
			logger.Warnf("failed to decode cached completion %q: %v", keys[i], err)
			continue
		}

		into[completed.StepID] = &completed
	}

	return nil
}

func (c *Client) Close() error {
	c.client.Close()
	return nil
}

func (c *Client) Ping(ctx context.Context) error {
	return c.client.Do(ctx, c.client.B().Ping().Build()).Error()
}
