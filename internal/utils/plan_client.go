package utils

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// PlanServiceClient talks to the external plan registry that tracks how many
// subscribers each delivery plan has.
type PlanServiceClient struct {
	URL string
}

func NewPlanClient(url string) *PlanServiceClient {
	return &PlanServiceClient{URL: url}
}

func (c *PlanServiceClient) IncrementSubscriberCount(ctx context.Context, planID string) error {
	return c.adjust(ctx, planID, "increment")
}

func (c *PlanServiceClient) DecrementSubscriberCount(ctx context.Context, planID string) error {
	return c.adjust(ctx, planID, "decrement")
}

func (c *PlanServiceClient) adjust(ctx context.Context, planID, op string) error {
	url := fmt.Sprintf("%s/api/plans/%s/subscribers/%s", c.URL, planID, op)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return fmt.Errorf("build plan request: %w", err)
	}

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("call plan service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("plan service returned status %d", resp.StatusCode)
	}
	return nil
}
