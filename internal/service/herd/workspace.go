package herd

import (
	"fmt"
	"reflect"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/herd/internal/domain/models"
	"github.com/mamadbah2/herd/internal/repository"
	"github.com/mamadbah2/herd/internal/service/matching"
)

type snapshot struct {
	animals []models.Animal
	seasons []models.BreedingSeason
}

// workspace is a private deep copy of the snapshot that one operation
// mutates freely. The committed delta is whatever differs from base.
type workspace struct {
	base    snapshot
	animals []models.Animal
	seasons []models.BreedingSeason

	ownerID string
	now     time.Time
	newID   func() string
	logger  *zap.Logger
}

func newWorkspace(base snapshot, ownerID string, now time.Time, newID func() string, logger *zap.Logger) *workspace {
	w := &workspace{
		base:    base,
		animals: make([]models.Animal, len(base.animals)),
		seasons: make([]models.BreedingSeason, len(base.seasons)),
		ownerID: ownerID,
		now:     now,
		newID:   newID,
		logger:  logger,
	}
	for i := range base.animals {
		w.animals[i] = base.animals[i].Clone()
	}
	for i := range base.seasons {
		w.seasons[i] = base.seasons[i].Clone()
	}
	return w
}

func (w *workspace) snapshot() snapshot {
	return snapshot{animals: w.animals, seasons: w.seasons}
}

// animal returns the animal with the id. The pointer is valid until the next
// addAnimal call.
func (w *workspace) animal(id string) *models.Animal {
	if id == "" {
		return nil
	}
	for i := range w.animals {
		if w.animals[i].ID == id {
			return &w.animals[i]
		}
	}
	return nil
}

// female resolves a dam/donor reference, by id first then by tag among cows.
func (w *workspace) female(ref models.AnimalRef) *models.Animal {
	a, ok := matching.ResolveAnimalReference(w.animals, ref, models.SexFemale)
	if !ok {
		return nil
	}
	return a
}

// completeRef fills the missing side of a reference from the population so
// that matching can compare ids and tags alike.
func (w *workspace) completeRef(ref models.AnimalRef) models.AnimalRef {
	if a := w.female(ref); a != nil {
		out := ref
		if out.ID == "" {
			out.ID = a.ID
		}
		if models.NormalizeTag(out.Tag) == "" {
			out.Tag = a.Tag
		}
		return out
	}
	return ref
}

func (w *workspace) addAnimal(a models.Animal) *models.Animal {
	w.animals = append(w.animals, a)
	return &w.animals[len(w.animals)-1]
}

func (w *workspace) removeAnimal(id string) bool {
	for i := range w.animals {
		if w.animals[i].ID == id {
			w.animals = append(w.animals[:i], w.animals[i+1:]...)
			return true
		}
	}
	return false
}

func (w *workspace) season(id string) (*models.BreedingSeason, error) {
	for i := range w.seasons {
		if w.seasons[i].ID == id {
			return &w.seasons[i], nil
		}
	}
	return nil, fmt.Errorf("season %s: %w", id, models.ErrSeasonNotFound)
}

func (w *workspace) coverage(seasonID, coverageID string) (*models.BreedingSeason, *models.CoverageRecord, error) {
	season, err := w.season(seasonID)
	if err != nil {
		return nil, nil, err
	}
	cov := season.Coverage(coverageID)
	if cov == nil {
		return nil, nil, fmt.Errorf("coverage %s in season %s: %w", coverageID, seasonID, models.ErrCoverageNotFound)
	}
	return season, cov, nil
}

func (w *workspace) addSeason(s models.BreedingSeason) *models.BreedingSeason {
	w.seasons = append(w.seasons, s)
	return &w.seasons[len(w.seasons)-1]
}

func (w *workspace) removeSeason(id string) bool {
	for i := range w.seasons {
		if w.seasons[i].ID == id {
			w.seasons = append(w.seasons[:i], w.seasons[i+1:]...)
			return true
		}
	}
	return false
}

// claimedCalves collects every calf already linked by a coverage or repasse
// in any season.
func (w *workspace) claimedCalves() map[string]struct{} {
	out := make(map[string]struct{})
	for i := range w.seasons {
		for j := range w.seasons[i].Coverages {
			cov := &w.seasons[i].Coverages[j]
			if cov.CalfID != "" {
				out[cov.CalfID] = struct{}{}
			}
			if cov.Repasse != nil && cov.Repasse.CalfID != "" {
				out[cov.Repasse.CalfID] = struct{}{}
			}
		}
	}
	return out
}

// seasonsNewestFirst returns pointers into the workspace ordered by start date.
func (w *workspace) seasonsNewestFirst() []*models.BreedingSeason {
	out := make([]*models.BreedingSeason, len(w.seasons))
	for i := range w.seasons {
		out[i] = &w.seasons[i]
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].StartDate.After(out[j].StartDate) })
	return out
}

// ops diffs the workspace against its base. Changed documents are sanitized
// and stamped before being emitted so the snapshot matches what is stored.
func (w *workspace) ops() []repository.Op {
	var ops, deletes []repository.Op

	baseAnimals := make(map[string]*models.Animal, len(w.base.animals))
	for i := range w.base.animals {
		baseAnimals[w.base.animals[i].ID] = &w.base.animals[i]
	}
	seen := make(map[string]struct{}, len(w.animals))
	for i := range w.animals {
		a := &w.animals[i]
		a.Sanitize()
		seen[a.ID] = struct{}{}
		prev, ok := baseAnimals[a.ID]
		switch {
		case !ok:
			a.OwnerID = w.ownerID
			if a.CreatedAt.IsZero() {
				a.CreatedAt = w.now
			}
			a.UpdatedAt = w.now
			ops = append(ops, repository.Op{Kind: repository.OpCreate, Collection: repository.CollectionAnimals, ID: a.ID, Doc: *a})
		case !reflect.DeepEqual(*prev, *a):
			a.UpdatedAt = w.now
			ops = append(ops, repository.Op{Kind: repository.OpUpdate, Collection: repository.CollectionAnimals, ID: a.ID, Doc: *a})
		}
	}
	for id := range baseAnimals {
		if _, ok := seen[id]; !ok {
			deletes = append(deletes, repository.Op{Kind: repository.OpDelete, Collection: repository.CollectionAnimals, ID: id})
		}
	}

	baseSeasons := make(map[string]*models.BreedingSeason, len(w.base.seasons))
	for i := range w.base.seasons {
		baseSeasons[w.base.seasons[i].ID] = &w.base.seasons[i]
	}
	seen = make(map[string]struct{}, len(w.seasons))
	for i := range w.seasons {
		s := &w.seasons[i]
		s.Sanitize()
		seen[s.ID] = struct{}{}
		prev, ok := baseSeasons[s.ID]
		switch {
		case !ok:
			s.OwnerID = w.ownerID
			if s.CreatedAt.IsZero() {
				s.CreatedAt = w.now
			}
			s.UpdatedAt = w.now
			ops = append(ops, repository.Op{Kind: repository.OpCreate, Collection: repository.CollectionSeasons, ID: s.ID, Doc: *s})
		case !reflect.DeepEqual(*prev, *s):
			s.UpdatedAt = w.now
			ops = append(ops, repository.Op{Kind: repository.OpUpdate, Collection: repository.CollectionSeasons, ID: s.ID, Doc: *s})
		}
	}
	for id := range baseSeasons {
		if _, ok := seen[id]; !ok {
			deletes = append(deletes, repository.Op{Kind: repository.OpDelete, Collection: repository.CollectionSeasons, ID: id})
		}
	}

	sort.Slice(deletes, func(i, j int) bool {
		if deletes[i].Collection != deletes[j].Collection {
			return deletes[i].Collection < deletes[j].Collection
		}
		return deletes[i].ID < deletes[j].ID
	})
	return append(ops, deletes...)
}

func sortSeasonsNewestFirst(seasons []models.BreedingSeason) {
	sort.SliceStable(seasons, func(i, j int) bool { return seasons[i].StartDate.After(seasons[j].StartDate) })
}
