package persistence

import (
	"context"
	"encoding/json"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/Steiynbrodt/Osint-Mindmap/application/ports"
	"github.com/Steiynbrodt/Osint-Mindmap/domain/viewport"
	pkgerrors "github.com/Steiynbrodt/Osint-Mindmap/pkg/errors"
)

// Service exports, imports and snapshots the graph
type Service struct {
	store  ports.GraphStore
	slot   ports.SnapshotSlot
	logger *zap.Logger
	tracer trace.Tracer

	importing atomic.Bool
}

// NewService creates the persistence service. slot may be nil when nothing
// is snapshotted.
func NewService(store ports.GraphStore, slot ports.SnapshotSlot, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:  store,
		slot:   slot,
		logger: logger,
		tracer: otel.Tracer("osint-mindmap/persistence"),
	}
}

// Export renders the current graph
func (s *Service) Export() Document {
	return EncodeState(s.store.State())
}

// ExportJSON renders the current graph as indented JSON
func (s *Service) ExportJSON(ctx context.Context) ([]byte, error) {
	_, span := s.tracer.Start(ctx, "persistence.Export")
	defer span.End()

	doc := s.Export()
	span.SetAttributes(attribute.Int("nodes", len(doc.Nodes)), attribute.Int("edges", len(doc.Edges)))
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		span.RecordError(err)
		return nil, pkgerrors.NewInternalError("failed to encode document").WithCause(err)
	}
	return data, nil
}

// Importing reports whether an import is running
func (s *Service) Importing() bool {
	return s.importing.Load()
}

// Import replaces the graph with a document. The current graph is left
// untouched unless the whole document is valid. Overlapping imports are
// rejected with CONFLICT.
func (s *Service) Import(ctx context.Context, doc Document) error {
	_, span := s.tracer.Start(ctx, "persistence.Import")
	defer span.End()

	if !s.importing.CompareAndSwap(false, true) {
		err := pkgerrors.NewConflictError("an import is already in progress")
		span.RecordError(err)
		return err
	}
	defer s.importing.Store(false)

	state, err := doc.State()
	if err == nil {
		err = s.store.Replace(state)
		if err != nil && !pkgerrors.IsFormatError(err) {
			err = asFormatError(err)
		}
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	span.SetAttributes(attribute.Int("nodes", len(state.Nodes)), attribute.Int("edges", len(state.Edges)))
	s.logger.Info("Graph imported", zap.Int("nodes", len(state.Nodes)), zap.Int("edges", len(state.Edges)))
	return nil
}

// ImportJSON parses and imports a JSON document
func (s *Service) ImportJSON(ctx context.Context, data []byte) error {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return pkgerrors.NewFormatError("document is not valid JSON").WithCause(err)
	}
	return s.Import(ctx, doc)
}

// Save writes the current export to the snapshot slot
func (s *Service) Save(ctx context.Context) error {
	if s.slot == nil {
		return nil
	}
	data, err := s.ExportJSON(ctx)
	if err != nil {
		return err
	}
	return s.slot.Save(ctx, ports.SlotKeyGraph, data)
}

// LoadInitial restores the graph saved in the snapshot slot. A missing or
// unreadable snapshot leaves the graph empty; the slot is not overwritten
// until the next mutation.
func (s *Service) LoadInitial(ctx context.Context) error {
	if s.slot == nil {
		return nil
	}
	data, err := s.slot.Load(ctx, ports.SlotKeyGraph)
	if err != nil {
		if pkgerrors.IsNotFound(err) {
			s.logger.Info("No saved graph, starting empty")
			return nil
		}
		s.logger.Warn("Failed to read saved graph, starting empty", zap.Error(err))
		return nil
	}
	if err := s.ImportJSON(ctx, data); err != nil {
		s.logger.Warn("Saved graph is invalid, starting empty", zap.Error(err))
	}
	return nil
}

// SaveViewport caches the viewport state for the next session
func (s *Service) SaveViewport(ctx context.Context, state viewport.State) error {
	if s.slot == nil {
		return nil
	}
	data, err := json.Marshal(state)
	if err != nil {
		return pkgerrors.NewInternalError("failed to encode viewport").WithCause(err)
	}
	return s.slot.Save(ctx, ports.SlotKeyViewport, data)
}

// LoadViewport reads the cached viewport state. NOT_FOUND when none is cached.
func (s *Service) LoadViewport(ctx context.Context) (viewport.State, error) {
	var state viewport.State
	if s.slot == nil {
		return state, pkgerrors.NewNotFoundError("snapshot", ports.SlotKeyViewport)
	}
	data, err := s.slot.Load(ctx, ports.SlotKeyViewport)
	if err != nil {
		return state, err
	}
	if err := json.Unmarshal(data, &state); err != nil {
		return state, pkgerrors.NewFormatError("cached viewport is not valid JSON").WithCause(err)
	}
	return state, nil
}
