package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dgellow/research-hub/internal/ioutil"
	"github.com/dgellow/research-hub/internal/log"
)

// ErrInvalidQuery is returned for a blank query or an empty output type list
var ErrInvalidQuery = errors.New("invalid query")

// Query is a research question and the kinds of output wanted for it
type Query struct {
	Query       string    `json:"query"`
	OutputTypes []string  `json:"outputTypes"`
	Timestamp   time.Time `json:"timestamp,omitzero"`
}

// Validate checks the query is answerable
func (q Query) Validate() error {
	if strings.TrimSpace(q.Query) == "" {
		return fmt.Errorf("%w: query is required", ErrInvalidQuery)
	}
	if len(q.OutputTypes) == 0 {
		return fmt.Errorf("%w: at least one output type must be selected", ErrInvalidQuery)
	}
	return nil
}

// Processor answers research queries. The result is passed through to the
// caller untouched.
type Processor interface {
	Process(ctx context.Context, q Query) (json.RawMessage, error)
}

// UpstreamError is a non-2xx answer from the upstream processor
type UpstreamError struct {
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream returned %d: %s", e.Status, e.Body)
}

// Upstream forwards queries to an HTTP processor
type Upstream struct {
	url        string
	httpClient *http.Client
}

// NewUpstream creates a forwarder for the processor at url
func NewUpstream(url string, timeout time.Duration) *Upstream {
	return &Upstream{
		url: url,
		httpClient: &http.Client{
			Timeout: timeout,
			// Don't follow redirects automatically
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

// Process implements Processor
func (u *Upstream) Process(ctx context.Context, q Query) (json.RawMessage, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	body, err := json.Marshal(q)
	if err != nil {
		return nil, fmt.Errorf("failed to encode query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build upstream request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := u.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upstream request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &UpstreamError{Status: resp.StatusCode, Body: ioutil.ReadLimited(resp.Body, 1024)}
	}

	var result json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("upstream returned invalid JSON: %w", err)
	}

	log.LogDebugWithFields("pipeline", "Query processed", map[string]any{
		"output_types": q.OutputTypes,
		"duration_ms":  time.Since(start).Milliseconds(),
	})
	return result, nil
}
