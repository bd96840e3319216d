// Package submit posts candidate answers to a grading endpoint and decodes
// the grader's verdict.
package submit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/lmartins/quizchain/pkg/domain"
)

// maxResponseBytes caps how much of a grader response is read.
const maxResponseBytes = 1 << 20

// Submitter is the solver-facing view of the grading endpoint.
type Submitter interface {
	Submit(ctx context.Context, submitURL string, sub domain.Submission) (*domain.GraderResponse, error)
}

type Client struct {
	client *http.Client
	logger *slog.Logger
}

func NewClient(timeout time.Duration, logger *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = 25 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

// Submit posts the submission as JSON and decodes the grader's reply. A reply
// that is not a JSON object is preserved verbatim on the NonJSON field so the
// caller can still log what the grader said.
func (c *Client) Submit(ctx context.Context, submitURL string, sub domain.Submission) (*domain.GraderResponse, error) {
	payload, err := json.Marshal(sub)
	if err != nil {
		return nil, fmt.Errorf("marshal submission: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, submitURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build submit request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post answer: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read grader response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("grader returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var verdict domain.GraderResponse
	if err := json.Unmarshal(body, &verdict); err != nil {
		c.logger.Info("grader reply is not JSON", "url", submitURL, "body_len", len(body))
		return &domain.GraderResponse{NonJSON: string(body)}, nil
	}
	return &verdict, nil
}
