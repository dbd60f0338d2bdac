package matching

import "github.com/mamadbah2/herd/internal/domain/models"

// ResolveAnimalReference finds the animal a denormalized reference points at.
// It resolves by id first and falls back to a normalized tag lookup, which is
// restricted to the given sex when sex is non-empty. The first tag hit wins.
func ResolveAnimalReference(population []models.Animal, ref models.AnimalRef, sex models.Sex) (*models.Animal, bool) {
	if ref.ID != "" {
		for i := range population {
			if population[i].ID == ref.ID {
				return &population[i], true
			}
		}
	}
	if models.NormalizeTag(ref.Tag) == "" {
		return nil, false
	}
	for i := range population {
		a := &population[i]
		if sex != "" && a.Sex != sex {
			continue
		}
		if models.SameTag(a.Tag, ref.Tag) {
			return a, true
		}
	}
	return nil, false
}
