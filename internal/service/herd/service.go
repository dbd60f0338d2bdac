// Package herd is the reconciliation engine of the herd book. It keeps an
// in-memory snapshot of animals and breeding seasons, computes every
// operation as a delta on a private copy of that snapshot, and commits the
// delta through the store as one unit of work.
package herd

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mamadbah2/herd/internal/domain/models"
	"github.com/mamadbah2/herd/internal/metrics"
	"github.com/mamadbah2/herd/internal/quota"
	"github.com/mamadbah2/herd/internal/repository"
)

// ErrStale is returned when the snapshot could not be reloaded after a
// failed write and the store is still unreachable.
var ErrStale = errors.New("herd snapshot is stale")

// Options configures a Service.
type Options struct {
	OwnerID   string
	BatchSize int
	Quota     quota.Tracker
	Metrics   metrics.Recorder
	Logger    *zap.Logger
	Now       func() time.Time
	NewID     func() string
}

// Service owns the snapshot and serializes every reconciliation.
type Service struct {
	store     repository.Store
	quota     quota.Tracker
	metrics   metrics.Recorder
	logger    *zap.Logger
	ownerID   string
	batchSize int
	now       func() time.Time
	newID     func() string

	mu    sync.Mutex
	state snapshot
	stale bool
}

// NewService wires a herd service. Call Load before serving requests.
func NewService(store repository.Store, opts Options) *Service {
	s := &Service{
		store:     store,
		quota:     opts.Quota,
		metrics:   opts.Metrics,
		logger:    opts.Logger,
		ownerID:   opts.OwnerID,
		batchSize: opts.BatchSize,
		now:       opts.Now,
		newID:     opts.NewID,
		stale:     true,
	}
	if s.quota == nil {
		s.quota = quota.Unlimited{}
	}
	if s.metrics == nil {
		s.metrics = metrics.Nop{}
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.batchSize <= 0 || s.batchSize > repository.MaxBatchOps {
		s.batchSize = repository.MaxBatchOps
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newID == nil {
		s.newID = func() string { return uuid.NewString() }
	}
	return s
}

// Load replaces the snapshot with the store contents.
func (s *Service) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resyncLocked(ctx)
}

// Animals returns a copy of every animal in the snapshot.
func (s *Service) Animals() []models.Animal {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Animal, len(s.state.animals))
	for i := range s.state.animals {
		out[i] = s.state.animals[i].Clone()
	}
	return out
}

// Animal returns a copy of one animal.
func (s *Service) Animal(id string) (models.Animal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.state.animals {
		if s.state.animals[i].ID == id {
			return s.state.animals[i].Clone(), nil
		}
	}
	return models.Animal{}, fmt.Errorf("animal %s: %w", id, models.ErrAnimalNotFound)
}

// Seasons returns a copy of every breeding season, newest first.
func (s *Service) Seasons() []models.BreedingSeason {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.BreedingSeason, len(s.state.seasons))
	for i := range s.state.seasons {
		out[i] = s.state.seasons[i].Clone()
	}
	sortSeasonsNewestFirst(out)
	return out
}

// Season returns a copy of one breeding season.
func (s *Service) Season(id string) (models.BreedingSeason, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.state.seasons {
		if s.state.seasons[i].ID == id {
			return s.state.seasons[i].Clone(), nil
		}
	}
	return models.BreedingSeason{}, fmt.Errorf("season %s: %w", id, models.ErrSeasonNotFound)
}

// mutate runs fn on a private copy of the snapshot and commits the resulting
// delta. Errors returned by fn abort the operation before any write. The
// snapshot is updated optimistically; a failed commit discards it and
// reloads from the store before the error is returned.
func (s *Service) mutate(ctx context.Context, operation string, fn func(w *workspace) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureFreshLocked(ctx); err != nil {
		return err
	}

	// the store keeps millisecond precision
	w := newWorkspace(s.state, s.ownerID, s.now().UTC().Truncate(time.Millisecond), s.newID, s.logger)
	if err := fn(w); err != nil {
		return err
	}

	ops := w.ops()
	if len(ops) == 0 {
		return nil
	}
	if err := s.quota.Reserve(ctx, s.ownerID, len(ops)); err != nil {
		return fmt.Errorf("%s: %w", operation, err)
	}

	s.state = w.snapshot()

	report, err := repository.CommitChunked(ctx, s.store, ops, s.batchSize)
	if err != nil {
		s.metrics.CommitFailed(operation)
		s.logger.Error("commit failed, resynchronizing",
			zap.String("operation", operation),
			zap.Int("ops", report.TotalOps),
			zap.Int("committed_ops", report.CommittedOps),
			zap.Bool("partial", report.Partial()),
			zap.Error(err))
		if rerr := s.resyncLocked(ctx); rerr != nil {
			s.logger.Error("resync after failed commit failed", zap.Error(rerr))
		}
		return fmt.Errorf("%s: %w", operation, err)
	}

	s.metrics.OpsCommitted(operation, report.CommittedOps)
	s.logger.Debug("operation committed",
		zap.String("operation", operation),
		zap.Int("ops", report.CommittedOps),
		zap.Int("chunks", report.Chunks))
	return nil
}

// appendHistory pushes one element onto an animal history without rewriting
// the document.
func (s *Service) appendHistory(ctx context.Context, operation, animalID, field string, value any, apply func(a *models.Animal)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureFreshLocked(ctx); err != nil {
		return err
	}

	idx := -1
	for i := range s.state.animals {
		if s.state.animals[i].ID == animalID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("%s: animal %s: %w", operation, animalID, models.ErrAnimalNotFound)
	}
	if err := s.quota.Reserve(ctx, s.ownerID, 1); err != nil {
		return fmt.Errorf("%s: %w", operation, err)
	}

	updated := s.state.animals[idx].Clone()
	apply(&updated)
	s.state.animals[idx] = updated

	if err := s.store.ArrayAppend(ctx, repository.CollectionAnimals, animalID, field, value); err != nil {
		s.metrics.CommitFailed(operation)
		s.logger.Error("append failed, resynchronizing", zap.String("operation", operation), zap.Error(err))
		if rerr := s.resyncLocked(ctx); rerr != nil {
			s.logger.Error("resync after failed append failed", zap.Error(rerr))
		}
		return fmt.Errorf("%s: %w", operation, err)
	}
	s.metrics.OpsCommitted(operation, 1)
	return nil
}

func (s *Service) ensureFreshLocked(ctx context.Context) error {
	if !s.stale {
		return nil
	}
	if err := s.resyncLocked(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrStale, err)
	}
	return nil
}

// resyncLocked discards the snapshot and reloads it. On failure the service
// stays stale with an empty snapshot until a later reload succeeds.
func (s *Service) resyncLocked(ctx context.Context) error {
	s.state = snapshot{}
	s.stale = true

	animals, err := s.store.LoadAnimals(ctx, s.ownerID)
	if err != nil {
		s.metrics.Resynced(false)
		return fmt.Errorf("load animals: %w", err)
	}
	seasons, err := s.store.LoadSeasons(ctx, s.ownerID)
	if err != nil {
		s.metrics.Resynced(false)
		return fmt.Errorf("load seasons: %w", err)
	}

	for i := range animals {
		animals[i].Sanitize()
	}
	for i := range seasons {
		seasons[i].Sanitize()
	}

	s.state = snapshot{animals: animals, seasons: seasons}
	s.stale = false
	s.metrics.Resynced(true)
	s.logger.Info("snapshot loaded", zap.Int("animals", len(animals)), zap.Int("seasons", len(seasons)))
	return nil
}
