package services

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/Steiynbrodt/Osint-Mindmap/application/ports"
	"github.com/Steiynbrodt/Osint-Mindmap/domain/core/aggregates"
	"github.com/Steiynbrodt/Osint-Mindmap/domain/core/entities"
	"github.com/Steiynbrodt/Osint-Mindmap/domain/core/valueobjects"
	pkgerrors "github.com/Steiynbrodt/Osint-Mindmap/pkg/errors"
)

// EnrichmentResult reports what an enrichment pass did to a node
type EnrichmentResult struct {
	NodeID           valueobjects.NodeID `json:"node_id"`
	Outcome          string              `json:"outcome"`
	AddedTags        int                 `json:"added_tags"`
	AddedAttachments int                 `json:"added_attachments"`
	SkippedInvalid   int                 `json:"skipped_invalid,omitempty"`
	Status           string              `json:"status,omitempty"`
	Confidence       int                 `json:"confidence,omitempty"`
}

// EnrichmentConfig tunes the enrichment service
type EnrichmentConfig struct {
	Enabled       bool
	Pivots        bool
	MaxConcurrent int64
	TaskTimeout   time.Duration
}

// EnrichmentService sends node snapshots to the enrichment backend and folds
// the answers back into the graph. Backend failures never touch the graph.
type EnrichmentService struct {
	store    ports.GraphStore
	backend  ports.EnrichmentBackend
	pivots   *PivotEnricher
	resolver *Resolver
	notifier *Notifier
	metrics  Metrics
	logger   *zap.Logger
	tracer   trace.Tracer

	enabled     atomic.Bool
	sem         *semaphore.Weighted
	taskTimeout time.Duration
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
}

// NewEnrichmentService creates the service. backend may be nil, in which case
// only pivots (if enabled) are applied.
func NewEnrichmentService(
	store ports.GraphStore,
	backend ports.EnrichmentBackend,
	pivots *PivotEnricher,
	resolver *Resolver,
	notifier *Notifier,
	metrics Metrics,
	logger *zap.Logger,
	cfg EnrichmentConfig,
) *EnrichmentService {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 4
	}
	if cfg.TaskTimeout <= 0 {
		cfg.TaskTimeout = 30 * time.Second
	}
	if metrics == nil {
		metrics = NopMetrics()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if !cfg.Pivots {
		pivots = nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &EnrichmentService{
		store:       store,
		backend:     backend,
		pivots:      pivots,
		resolver:    resolver,
		notifier:    notifier,
		metrics:     metrics,
		logger:      logger,
		tracer:      otel.Tracer("osint-mindmap/enrichment"),
		sem:         semaphore.NewWeighted(cfg.MaxConcurrent),
		taskTimeout: cfg.TaskTimeout,
		ctx:         ctx,
		cancel:      cancel,
	}
	s.enabled.Store(cfg.Enabled)
	return s
}

// SetEnabled switches the backend on or off at runtime
func (s *EnrichmentService) SetEnabled(enabled bool) {
	s.enabled.Store(enabled)
}

// Enabled reports whether the backend is consulted
func (s *EnrichmentService) Enabled() bool {
	return s.enabled.Load() && s.backend != nil
}

// Enrich runs one enrichment pass over a node. The node is snapshotted, the
// backend is called without holding any store lock, and the answer is merged
// only if the node still exists.
func (s *EnrichmentService) Enrich(ctx context.Context, id valueobjects.NodeID) (EnrichmentResult, error) {
	ctx, span := s.tracer.Start(ctx, "EnrichmentService.Enrich", trace.WithAttributes(attribute.String("node.id", id.String())))
	defer span.End()
	start := time.Now()

	result := EnrichmentResult{NodeID: id}
	snap, err := s.store.Snapshot(id)
	if err != nil {
		span.RecordError(err)
		return result, err
	}

	var patch aggregates.EnrichmentPatch
	patch.EmailEvidence = true
	if s.pivots != nil {
		patch.Attachments = append(patch.Attachments, s.pivots.Links(ctx, snap)...)
	}

	switch {
	case s.Enabled():
		resp, err := s.backend.Enrich(ctx, ports.EnrichmentRequest{
			Type:        string(snap.Type),
			Label:       snap.Label,
			Tags:        snap.Tags,
			Attachments: entities.CloneAttachments(snap.Attachments),
		})
		if err != nil {
			if !pkgerrors.IsEnrichmentUnavailable(err) {
				err = pkgerrors.NewEnrichmentUnavailableError("backend call failed", err)
			}
			s.metrics.RecordEnrichment(EnrichmentFailed, time.Since(start))
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			if s.notifier != nil {
				s.notifier.Notify(LevelWarning, "enrichment", id.String(), err.Error())
			}
			result.Outcome = EnrichmentFailed
			return result, err
		}
		patch.Tags = resp.Tags
		if resp.Status != nil {
			patch.Status = *resp.Status
		}
		patch.Confidence = resp.Confidence
		valid := s.validAttachments(id, resp.Attachments)
		result.SkippedInvalid = len(resp.Attachments) - len(valid)
		patch.Attachments = append(valid, patch.Attachments...)
		result.Outcome = EnrichmentMerged
	case s.pivots != nil:
		result.Outcome = EnrichmentPivotsOnly
	default:
		s.metrics.RecordEnrichment(EnrichmentDisabled, time.Since(start))
		result.Outcome = EnrichmentDisabled
		return result, pkgerrors.NewEnrichmentUnavailableError("enrichment is disabled", nil)
	}

	outcome, err := s.store.MergeEnrichment(id, patch)
	if err != nil {
		if pkgerrors.IsNotFound(err) {
			s.logger.Debug("Dropping enrichment for deleted node", zap.String("nodeID", id.String()))
			s.metrics.RecordEnrichment(EnrichmentStale, time.Since(start))
			result.Outcome = EnrichmentStale
			return result, nil
		}
		span.RecordError(err)
		return result, err
	}
	s.metrics.RecordEnrichment(result.Outcome, time.Since(start))

	result.AddedTags = outcome.AddedTags
	result.AddedAttachments = len(outcome.AddedAttachments)
	if node, err := s.store.Node(id); err == nil {
		result.Status = node.Status
		result.Confidence = node.Confidence
	}

	if s.resolver != nil && hasLink(outcome.AddedAttachments) {
		s.resolver.ResolveAsync(id)
	}

	span.SetAttributes(
		attribute.String("outcome", result.Outcome),
		attribute.Int("tags.added", result.AddedTags),
		attribute.Int("attachments.added", result.AddedAttachments),
	)
	return result, nil
}

// validAttachments drops backend attachments the graph would refuse, logging
// each one so a misbehaving backend is visible
func (s *EnrichmentService) validAttachments(id valueobjects.NodeID, atts []entities.Attachment) []entities.Attachment {
	out := make([]entities.Attachment, 0, len(atts))
	for _, a := range atts {
		if err := a.Validate(); err != nil {
			s.logger.Warn("Skipping invalid attachment from enrichment backend",
				zap.String("nodeID", id.String()),
				zap.String("kind", string(a.Kind)),
				zap.String("value", a.Value),
				zap.Error(err))
			continue
		}
		out = append(out, a)
	}
	return out
}

func hasLink(atts []entities.Attachment) bool {
	for _, a := range atts {
		if a.Kind == valueobjects.AttachmentLink {
			return true
		}
	}
	return false
}

// EnrichAsync schedules an enrichment pass capturing only the node id.
// Failures surface as notifications.
func (s *EnrichmentService) EnrichAsync(id valueobjects.NodeID) {
	s.wg.Add(1)
	s.metrics.RecordAsyncTask("enrich", 1)
	go func() {
		defer s.wg.Done()
		defer s.metrics.RecordAsyncTask("enrich", -1)

		ctx, cancel := context.WithTimeout(s.ctx, s.taskTimeout)
		defer cancel()
		if err := s.sem.Acquire(ctx, 1); err != nil {
			return
		}
		defer s.sem.Release(1)

		if _, err := s.Enrich(ctx, id); err != nil && !pkgerrors.IsNotFound(err) && !pkgerrors.IsEnrichmentUnavailable(err) {
			s.logger.Warn("Enrichment failed", zap.String("nodeID", id.String()), zap.Error(err))
		}
	}()
}

// Wait blocks until every scheduled task has finished
func (s *EnrichmentService) Wait() {
	s.wg.Wait()
}

// Close cancels pending tasks and waits for running ones
func (s *EnrichmentService) Close() {
	s.cancel()
	s.wg.Wait()
}
