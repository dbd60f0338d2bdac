package herd

import (
	"context"
	"fmt"
	"strings"

	"github.com/mamadbah2/herd/internal/domain/models"
)

// CreateBreedingSeason stores a new season. Coverages passed along are
// registered exactly as AddCoverageToSeason would.
func (s *Service) CreateBreedingSeason(ctx context.Context, season models.BreedingSeason) (models.BreedingSeason, error) {
	err := s.mutate(ctx, "create_season", func(w *workspace) error {
		if season.ID == "" {
			season.ID = w.newID()
		}
		if _, err := w.season(season.ID); err == nil {
			return fmt.Errorf("season %s already exists: %w", season.ID, models.ErrInvalidInput)
		}
		coverages := season.Coverages
		season.Coverages = []models.CoverageRecord{}
		season.ExposedCowIDs = dedupe(season.ExposedCowIDs)
		if err := validateSeason(&season); err != nil {
			return err
		}

		created := w.addSeason(season.Clone())
		for _, cov := range coverages {
			if _, err := w.addCoverage(created, cov); err != nil {
				return err
			}
		}
		created.RecomputeMetrics()
		return nil
	})
	if err != nil {
		return models.BreedingSeason{}, err
	}
	return s.Season(season.ID)
}

// UpdateBreedingSeason edits the season header and refreshes its metrics.
func (s *Service) UpdateBreedingSeason(ctx context.Context, id string, patch models.SeasonPatch) (models.BreedingSeason, error) {
	err := s.mutate(ctx, "update_season", func(w *workspace) error {
		season, err := w.season(id)
		if err != nil {
			return err
		}
		if patch.Name != nil {
			season.Name = *patch.Name
		}
		if patch.StartDate != nil {
			season.StartDate = *patch.StartDate
		}
		if patch.EndDate != nil {
			season.EndDate = *patch.EndDate
		}
		if patch.ExposedCowIDs != nil {
			season.ExposedCowIDs = dedupe(patch.ExposedCowIDs)
		}
		if err := validateSeason(season); err != nil {
			return err
		}
		season.RecomputeMetrics()
		return nil
	})
	if err != nil {
		return models.BreedingSeason{}, err
	}
	return s.Season(id)
}

// DeleteBreedingSeason removes the season and, coverage by coverage, the
// records derived from it.
func (s *Service) DeleteBreedingSeason(ctx context.Context, id string) error {
	return s.mutate(ctx, "delete_season", func(w *workspace) error {
		season, err := w.season(id)
		if err != nil {
			return err
		}
		for i := range season.Coverages {
			w.detachDerived(&season.Coverages[i])
		}
		w.removeSeason(id)
		return nil
	})
}

func validateSeason(s *models.BreedingSeason) error {
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("season name is required: %w", models.ErrInvalidInput)
	}
	if s.StartDate.IsZero() || s.EndDate.IsZero() {
		return fmt.Errorf("season dates are required: %w", models.ErrInvalidInput)
	}
	if s.EndDate.Before(s.StartDate) {
		return fmt.Errorf("season ends before it starts: %w", models.ErrInvalidInput)
	}
	return nil
}

func dedupe(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
