package report

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/upmesh/upmesh/internal/probe"
)

var _ probe.TargetSource = (*TargetFeed)(nil)

// TargetFeed pulls the active probe targets from the collector each
// iteration, so disabling a website drops it from the next pass without
// restarting the validator.
type TargetFeed struct {
	client *Client
}

func (c *Client) TargetFeed() *TargetFeed {
	return &TargetFeed{client: c}
}

func (f *TargetFeed) Targets(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		f.client.baseURL+"/api/v1/targets", nil)
	if err != nil {
		return nil, err
	}

	resp, err := f.client.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("target feed: unexpected status %d", resp.StatusCode)
	}

	var body struct {
		Targets []string `json:"targets"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode targets: %w", err)
	}
	return body.Targets, nil
}
