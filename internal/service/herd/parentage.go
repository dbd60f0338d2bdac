package herd

import (
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/herd/internal/domain/models"
)

const (
	// sireSearchToleranceDays bounds the distance between a coverage date and
	// the conception estimated from a birth date.
	sireSearchToleranceDays = 45
	// seasonMarginDays widens each season when looking for the conception.
	seasonMarginDays = 60
)

// reconcileSire pushes a corrected sire back onto the coverage that produced
// the animal. Seasons are searched newest first and the first hit wins. Not
// finding a coverage is not an error.
func (w *workspace) reconcileSire(calf *models.Animal) bool {
	log := w.logger.With(zap.String("animal_id", calf.ID), zap.String("tag", calf.Tag))

	sire := models.BullRef{ID: calf.SireID, Name: strings.TrimSpace(calf.SireName)}
	if sire.ID == "" && sire.Name == "" {
		return false
	}
	if calf.BirthDate == nil {
		log.Debug("sire correction not propagated: no birth date")
		return false
	}

	mode := calf.Parentage()
	dam := w.completeRef(mode.Dam)
	if dam.IsZero() {
		log.Debug("sire correction not propagated: no dam reference")
		return false
	}
	donor := mode.Donor
	if !donor.IsZero() {
		donor = w.completeRef(donor)
	}
	estimated := models.EstimatedConception(*calf.BirthDate)

	for _, season := range w.seasonsNewestFirst() {
		if !season.Overlaps(estimated, seasonMarginDays) {
			continue
		}
		for i := range season.Coverages {
			cov := &season.Coverages[i]
			if !coverageProduced(cov, calf, dam, donor, estimated) {
				continue
			}
			repasse := cov.PregnancyResult == models.DiagnosisNegative &&
				cov.RepasseEnabled() && cov.Repasse.PregnancyResult == models.DiagnosisPositive
			att := attemptOf(cov, repasse)
			if att.CalfID != "" && att.CalfID != calf.ID {
				continue
			}

			att.Confirm(sire)
			w.refreshSireName(cov, repasse)
			log.Info("sire confirmed on coverage",
				zap.String("season_id", season.ID),
				zap.String("coverage_id", cov.ID),
				zap.Bool("repasse", repasse),
				zap.String("sire", sire.Name))
			return true
		}
	}

	log.Info("sire correction matched no coverage", zap.Time("estimated_conception", estimated))
	return false
}

// coverageProduced reports whether the coverage can be the origin of the
// calf: same dam, same lineage mode, same donor when both name one, and a
// breeding date close to the estimated conception.
func coverageProduced(cov *models.CoverageRecord, calf *models.Animal, dam, donor models.AnimalRef, estimated time.Time) bool {
	if (cov.Type == models.BreedingFIV) != calf.IsFIVProduct() {
		return false
	}
	if !dam.Matches(cov.CowID, cov.CowTag) {
		return false
	}
	if cov.Type == models.BreedingFIV && !donor.IsZero() && !cov.Donor().IsZero() &&
		!donor.Matches(cov.DonorCowID, cov.DonorCowTag) {
		return false
	}
	if models.WithinDays(cov.Date, estimated, sireSearchToleranceDays) {
		return true
	}
	return cov.RepasseEnabled() && models.WithinDays(cov.RepasseStart(), estimated, sireSearchToleranceDays)
}
