package herd

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/mamadbah2/herd/internal/domain/models"
)

// AddAnimal registers an animal and links it into the progeny of its
// genetic mother. An FIV calf claims the matching embryo placeholder.
func (s *Service) AddAnimal(ctx context.Context, a models.Animal) (models.Animal, error) {
	a = a.Clone()
	err := s.mutate(ctx, "add_animal", func(w *workspace) error {
		if a.ID == "" {
			a.ID = w.newID()
		}
		if w.animal(a.ID) != nil {
			return fmt.Errorf("animal %s already exists: %w", a.ID, models.ErrInvalidInput)
		}
		if err := prepareAnimal(&a); err != nil {
			return err
		}
		w.fillHistoryIDs(&a)

		calf := w.addAnimal(a)
		w.linkParents(calf)
		return nil
	})
	if err != nil {
		return models.Animal{}, err
	}
	return s.Animal(a.ID)
}

// UpdateAnimal applies a partial edit. Lineage edits move the progeny record,
// tag and weight edits are mirrored into it, and a sire correction searches
// the breeding seasons for the coverage that produced the animal.
func (s *Service) UpdateAnimal(ctx context.Context, id string, patch models.AnimalPatch) (models.Animal, error) {
	err := s.mutate(ctx, "update_animal", func(w *workspace) error {
		a := w.animal(id)
		if a == nil {
			return fmt.Errorf("animal %s: %w", id, models.ErrAnimalNotFound)
		}
		before := a.Clone()
		applyAnimalPatch(a, patch)
		if err := prepareAnimal(a); err != nil {
			return err
		}
		w.fillHistoryIDs(a)

		if before.Parentage() != a.Parentage() {
			if parent := w.female(geneticMother(&before)); parent != nil {
				releaseProgeny(parent, a.ID)
			}
			w.linkParents(a)
		} else if before.Tag != a.Tag || !reflect.DeepEqual(before.Weights, a.Weights) {
			if parent := w.female(geneticMother(a)); parent != nil {
				if rec := parent.OffspringFor(a.ID); rec != nil {
					fillProgeny(rec, a)
				}
			}
		}

		if before.Tag != a.Tag {
			w.renameReferences(a)
		}
		if before.SireID != a.SireID || before.SireName != a.SireName {
			w.reconcileSire(a)
		}
		return nil
	})
	if err != nil {
		return models.Animal{}, err
	}
	return s.Animal(id)
}

// DeleteAnimal removes the animal document only. References held by
// coverages and by other animals are left in place.
func (s *Service) DeleteAnimal(ctx context.Context, id string) error {
	return s.mutate(ctx, "delete_animal", func(w *workspace) error {
		if !w.removeAnimal(id) {
			return fmt.Errorf("animal %s: %w", id, models.ErrAnimalNotFound)
		}
		return nil
	})
}

// AddWeightEntry appends a weighing. Plain weighings are pushed in place;
// reference weighings (birth, weaning, yearling) also refresh the progeny
// record on the mother and go through a full commit.
func (s *Service) AddWeightEntry(ctx context.Context, animalID string, e models.WeightEntry) (models.WeightEntry, error) {
	if e.Weight <= 0 || e.Date.IsZero() {
		return models.WeightEntry{}, fmt.Errorf("weight and date are required: %w", models.ErrInvalidInput)
	}
	switch e.Class {
	case models.WeightClassNone, models.WeightClassBirth, models.WeightClassWeaning, models.WeightClassYearling:
	default:
		return models.WeightEntry{}, fmt.Errorf("weight class %q: %w", e.Class, models.ErrInvalidInput)
	}
	if e.ID == "" {
		e.ID = s.newID()
	}

	if e.Class == models.WeightClassNone {
		err := s.appendHistory(ctx, "add_weight", animalID, "historicoPesagens", e, func(a *models.Animal) {
			a.AddWeight(e)
		})
		return e, err
	}

	err := s.mutate(ctx, "add_weight", func(w *workspace) error {
		a := w.animal(animalID)
		if a == nil {
			return fmt.Errorf("animal %s: %w", animalID, models.ErrAnimalNotFound)
		}
		a.AddWeight(e)
		if parent := w.female(geneticMother(a)); parent != nil {
			if rec := parent.OffspringFor(a.ID); rec != nil {
				fillProgeny(rec, a)
			}
		}
		return nil
	})
	return e, err
}

// AddMedication appends a health treatment to the animal.
func (s *Service) AddMedication(ctx context.Context, animalID string, m models.MedicationAdministration) (models.MedicationAdministration, error) {
	if len(m.Items) == 0 || m.Date.IsZero() {
		return models.MedicationAdministration{}, fmt.Errorf("medication items and date are required: %w", models.ErrInvalidInput)
	}
	for _, item := range m.Items {
		if strings.TrimSpace(item.Drug) == "" {
			return models.MedicationAdministration{}, fmt.Errorf("medication drug is required: %w", models.ErrInvalidInput)
		}
	}
	if m.ID == "" {
		m.ID = s.newID()
	}
	err := s.appendHistory(ctx, "add_medication", animalID, "historicoSanitario", m, func(a *models.Animal) {
		a.AddMedication(m)
	})
	return m, err
}

// linkParents ties the calf into the progeny of its genetic mother: the dam
// for a direct calf, the donor for an FIV product.
func (w *workspace) linkParents(calf *models.Animal) {
	parent := w.female(geneticMother(calf))
	if parent == nil || parent.ID == calf.ID {
		return
	}
	w.attachProgeny(parent, calf, "")
}

// renameReferences refreshes the denormalized tag wherever the animal is
// referenced by id in a coverage.
func (w *workspace) renameReferences(a *models.Animal) {
	for i := range w.seasons {
		for j := range w.seasons[i].Coverages {
			cov := &w.seasons[i].Coverages[j]
			if cov.CowID == a.ID {
				cov.CowTag = a.Tag
			}
			if cov.DonorCowID == a.ID {
				cov.DonorCowTag = a.Tag
			}
			if cov.CalfID == a.ID {
				cov.CalfTag = a.Tag
			}
			if cov.Repasse != nil && cov.Repasse.CalfID == a.ID {
				cov.Repasse.CalfTag = a.Tag
			}
		}
	}
	for i := range w.animals {
		for j := range w.animals[i].Progeny {
			rec := &w.animals[i].Progeny[j]
			if rec.RecipientID == a.ID {
				rec.RecipientTag = a.Tag
				if rec.Placeholder {
					rec.OffspringTag = placeholderTag(a.Tag)
				}
			}
		}
	}
}

func (w *workspace) fillHistoryIDs(a *models.Animal) {
	for i := range a.Weights {
		if a.Weights[i].ID == "" {
			a.Weights[i].ID = w.newID()
		}
	}
	for i := range a.Health {
		if a.Health[i].ID == "" {
			a.Health[i].ID = w.newID()
		}
	}
}

// geneticMother is the reference progeny records hang from.
func geneticMother(a *models.Animal) models.AnimalRef {
	if a.IsFIVProduct() {
		return models.AnimalRef{ID: a.DonorID, Tag: a.DonorName}
	}
	return models.AnimalRef{ID: a.MotherID, Tag: a.MotherName}
}

func prepareAnimal(a *models.Animal) error {
	a.Tag = strings.TrimSpace(a.Tag)
	if a.Tag == "" {
		return fmt.Errorf("animal tag is required: %w", models.ErrInvalidInput)
	}
	if a.Sex != models.SexMale && a.Sex != models.SexFemale {
		return fmt.Errorf("animal sex %q: %w", a.Sex, models.ErrInvalidInput)
	}
	switch a.Status {
	case "":
		a.Status = models.StatusActive
	case models.StatusActive, models.StatusSold, models.StatusDeceased:
	default:
		return fmt.Errorf("animal status %q: %w", a.Status, models.ErrInvalidInput)
	}
	a.Sanitize()
	a.SortHistories()
	return nil
}

func applyAnimalPatch(a *models.Animal, p models.AnimalPatch) {
	if p.Tag != nil {
		a.Tag = *p.Tag
	}
	if p.Name != nil {
		a.Name = *p.Name
	}
	if p.Sex != nil {
		a.Sex = *p.Sex
	}
	if p.Breed != nil {
		a.Breed = *p.Breed
	}
	if p.Status != nil {
		a.Status = *p.Status
	}
	if p.BirthDate != nil {
		a.BirthDate = models.DatePtr(*p.BirthDate)
	}
	if p.CurrentWeight != nil {
		a.CurrentWeight = *p.CurrentWeight
	}
	if p.Weights != nil {
		a.Weights = append([]models.WeightEntry{}, (*p.Weights)...)
	}
	if p.MotherID != nil {
		a.MotherID = *p.MotherID
	}
	if p.MotherName != nil {
		a.MotherName = *p.MotherName
	}
	if p.SireID != nil {
		a.SireID = *p.SireID
	}
	if p.SireName != nil {
		a.SireName = *p.SireName
	}
	if p.DonorID != nil {
		a.DonorID = *p.DonorID
	}
	if p.DonorName != nil {
		a.DonorName = *p.DonorName
	}
	if p.RecipientID != nil {
		a.RecipientID = *p.RecipientID
	}
	if p.RecipientName != nil {
		a.RecipientName = *p.RecipientName
	}
	if p.IsFIV != nil {
		a.IsFIV = *p.IsFIV
	}
}
