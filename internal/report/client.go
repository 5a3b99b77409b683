package report

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/upmesh/upmesh/internal/domain"
	"github.com/upmesh/upmesh/internal/ingest"
	"github.com/upmesh/upmesh/internal/probe"
)

// Client pushes probe outcomes to the collector's ingestion endpoint.
// Delivery is one-shot: an unreachable collector means the tick is lost for
// this interval and the next probe supersedes it.
type Client struct {
	baseURL   string
	publicKey string
	http      *http.Client
	log       *zap.Logger
}

func NewClient(baseURL, publicKey string, log *zap.Logger) *Client {
	return &Client{
		baseURL:   baseURL,
		publicKey: publicKey,
		http:      &http.Client{Timeout: 10 * time.Second},
		log:       log,
	}
}

var _ probe.Reporter = (*Client)(nil)

// Report submits one outcome. The textual status mirrors the code for wire
// compatibility; the collector classifies from the code alone.
func (c *Client) Report(ctx context.Context, out probe.Outcome) error {
	r := ingest.Report{
		URL:       out.URL,
		Status:    string(domain.Classify(out.StatusCode)),
		Code:      out.StatusCode,
		Validator: c.publicKey,
		LatencyMS: out.LatencyMS,
	}
	body, err := json.Marshal(r)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/api/v1/validator/report", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var e struct {
			Message string `json:"message"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&e)
		return fmt.Errorf("collector rejected report (%d): %s", resp.StatusCode, e.Message)
	}

	var ack struct {
		Success bool        `json:"success"`
		Tick    domain.Tick `json:"tick"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&ack); err != nil {
		return fmt.Errorf("decode ack: %w", err)
	}

	c.log.Debug("report_acked",
		zap.String("url", out.URL),
		zap.String("tick_id", string(ack.Tick.ID)),
		zap.String("status", string(ack.Tick.Status)),
	)
	return nil
}
