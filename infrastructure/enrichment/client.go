// Package enrichment talks to the external enrichment backend over HTTP.
package enrichment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/Steiynbrodt/Osint-Mindmap/application/ports"
	"github.com/Steiynbrodt/Osint-Mindmap/domain/core/entities"
	"github.com/Steiynbrodt/Osint-Mindmap/infrastructure/resilience"
	pkgerrors "github.com/Steiynbrodt/Osint-Mindmap/pkg/errors"
)

// DefaultEndpoint is used when no endpoint is configured
const DefaultEndpoint = "http://127.0.0.1:8795"

const maxResponseBytes = 1 << 20

// Client is the enrichment backend client. Every failure, including an open
// breaker, is reported as ENRICHMENT_UNAVAILABLE.
type Client struct {
	endpoint string
	http     *http.Client
	breaker  *resilience.Breaker
	timeout  atomic.Int64
	logger   *zap.Logger
	tracer   trace.Tracer
}

var _ ports.EnrichmentBackend = (*Client)(nil)

// NewClient creates a new enrichment client.
// endpoint defaults to "http://127.0.0.1:8795" if empty.
func NewClient(endpoint string, timeout time.Duration, breaker *resilience.Breaker, logger *zap.Logger) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Client{
		endpoint: strings.TrimRight(endpoint, "/"),
		http:     &http.Client{},
		breaker:  breaker,
		logger:   logger,
		tracer:   otel.Tracer("osint-mindmap/enrichment-client"),
	}
	c.SetTimeout(timeout)
	return c
}

// SetTimeout changes the per-request timeout; non-positive means 10s
func (c *Client) SetTimeout(d time.Duration) {
	if d <= 0 {
		d = 10 * time.Second
	}
	c.timeout.Store(int64(d))
}

// Timeout returns the per-request timeout
func (c *Client) Timeout() time.Duration {
	return time.Duration(c.timeout.Load())
}

// Endpoint returns the backend base URL
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Enrich posts a node snapshot to {endpoint}/enrich and decodes the answer
func (c *Client) Enrich(ctx context.Context, req ports.EnrichmentRequest) (*ports.EnrichmentResponse, error) {
	requestID := uuid.New().String()
	ctx, span := c.tracer.Start(ctx, "EnrichmentClient.Enrich", trace.WithAttributes(
		attribute.String("node.type", req.Type),
		attribute.String("request.id", requestID),
	))
	defer span.End()

	call := func() (interface{}, error) { return c.post(ctx, requestID, req) }
	var (
		result interface{}
		err    error
	)
	if c.breaker != nil {
		result, err = c.breaker.Execute(call)
	} else {
		result, err = call()
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "enrichment failed")
		c.logger.Warn("Enrichment request failed",
			zap.String("requestID", requestID),
			zap.Error(err))
		if errors.Is(err, resilience.ErrOpen) {
			return nil, pkgerrors.NewEnrichmentUnavailableError("backend circuit open", err)
		}
		if appErr := pkgerrors.GetAppError(err); appErr != nil {
			return nil, appErr
		}
		return nil, pkgerrors.NewEnrichmentUnavailableError("backend unreachable", err)
	}
	return result.(*ports.EnrichmentResponse), nil
}

func (c *Client) post(ctx context.Context, requestID string, payload ports.EnrichmentRequest) (*ports.EnrichmentResponse, error) {
	if payload.Tags == nil {
		payload.Tags = []string{}
	}
	if payload.Attachments == nil {
		payload.Attachments = []entities.Attachment{}
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal enrichment request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.Timeout())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/enrich", bytes.NewReader(body))
	if err != nil {
		return nil, pkgerrors.NewEnrichmentUnavailableError("invalid endpoint", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
		return nil, pkgerrors.NewEnrichmentUnavailableError(
			fmt.Sprintf("backend returned status %d", resp.StatusCode), nil).
			WithDetails(map[string]interface{}{"status": resp.StatusCode, "request_id": requestID})
	}

	var out ports.EnrichmentResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&out); err != nil {
		return nil, pkgerrors.NewEnrichmentUnavailableError("malformed response", err)
	}
	return &out, nil
}

// Ping checks the backend's /health endpoint
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.Timeout())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}
	return nil
}
