// Package matching pairs newborn calves with the breeding events that produced
// them. Every function here is pure.
package matching

import (
	"time"

	"github.com/mamadbah2/herd/internal/domain/models"
)

// Criteria describes the calf a breeding event is expected to produce.
type Criteria struct {
	Mode          models.ParentageMode
	Expected      time.Time
	ToleranceDays int
	Excluded      map[string]struct{}
}

// CriteriaFor builds the criteria for a dam/type/donor triple.
func CriteriaFor(dam models.AnimalRef, t models.BreedingType, donor models.AnimalRef, expected time.Time, toleranceDays int, excluded map[string]struct{}) Criteria {
	return Criteria{
		Mode:          models.ParentageFor(t, dam, donor),
		Expected:      expected,
		ToleranceDays: toleranceDays,
		Excluded:      excluded,
	}
}

// FindBestMatch returns the lineage child of the dam born closest to the
// expected date within the tolerance window. Excluded calves are never
// returned. Ties on distance keep population order.
func FindBestMatch(population []models.Animal, c Criteria) (*models.Animal, bool) {
	var best *models.Animal
	var bestDist time.Duration

	for i := range population {
		child := &population[i]
		if !Eligible(child, c) {
			continue
		}
		dist := models.AbsDuration(child.BirthDate.Sub(c.Expected))
		if best == nil || dist < bestDist {
			best = child
			bestDist = dist
		}
	}
	return best, best != nil
}

// Eligible reports whether a single animal satisfies the criteria.
func Eligible(child *models.Animal, c Criteria) bool {
	if child == nil || child.BirthDate == nil || child.BirthDate.IsZero() {
		return false
	}
	if _, skip := c.Excluded[child.ID]; skip {
		return false
	}
	if !c.Mode.Admits(child) {
		return false
	}
	return models.WithinDays(*child.BirthDate, c.Expected, c.ToleranceDays)
}

// ChildrenBornBetween returns the children of the dam, under either lineage
// mode, born inside [from, to]. Used to find calves of dams that never had a
// coverage logged.
func ChildrenBornBetween(population []models.Animal, dam models.AnimalRef, from, to time.Time, excluded map[string]struct{}) []*models.Animal {
	direct := models.DirectParentage(dam)
	fiv := models.FIVParentage(dam, models.AnimalRef{})

	var out []*models.Animal
	for i := range population {
		child := &population[i]
		if child.BirthDate == nil || child.BirthDate.IsZero() {
			continue
		}
		if _, skip := excluded[child.ID]; skip {
			continue
		}
		if !direct.Admits(child) && !fiv.Admits(child) {
			continue
		}
		if child.BirthDate.Before(from) || child.BirthDate.After(to) {
			continue
		}
		out = append(out, child)
	}
	return out
}
