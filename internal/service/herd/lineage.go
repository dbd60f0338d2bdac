package herd

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/herd/internal/domain/models"
)

const (
	repassePrefix     = "repasse_"
	abortionPrefix    = "abort_"
	placeholderPrefix = "fiv_"
	discoveredPrefix  = "discovered_"
)

func pregnancyID(coverageID string, repasse bool) string {
	if repasse {
		return repassePrefix + coverageID
	}
	return coverageID
}

func abortionID(coverageID string, repasse bool) string {
	return abortionPrefix + pregnancyID(coverageID, repasse)
}

func placeholderID(coverageID string) string {
	return placeholderPrefix + coverageID
}

func placeholderTag(recipientTag string) string {
	return fmt.Sprintf("Embriao (receptora: %s)", recipientTag)
}

// attemptOf selects the main attempt or the repasse attempt of a coverage.
func attemptOf(cov *models.CoverageRecord, repasse bool) *models.Attempt {
	if !repasse {
		return &cov.Attempt
	}
	if cov.Repasse == nil {
		return nil
	}
	return &cov.Repasse.Attempt
}

// attemptDate is the breeding date an attempt's gestation counts from.
func attemptDate(cov *models.CoverageRecord, repasse bool) time.Time {
	if repasse {
		return cov.RepasseStart()
	}
	return cov.Date
}

// expectedOf returns the stored expected calving date or derives it.
func expectedOf(cov *models.CoverageRecord, repasse bool) time.Time {
	att := attemptOf(cov, repasse)
	if att != nil && att.ExpectedCalving != nil {
		return *att.ExpectedCalving
	}
	return models.ExpectedCalving(attemptDate(cov, repasse))
}

func pregnancyRecord(cov *models.CoverageRecord, repasse bool) models.PregnancyRecord {
	att := attemptOf(cov, repasse)
	return models.PregnancyRecord{
		ID:       pregnancyID(cov.ID, repasse),
		Date:     attemptDate(cov, repasse),
		Type:     cov.Type,
		SireName: att.SireName(cov.SemenCode),
		Result:   att.PregnancyResult,
	}
}

// syncPregnancies mirrors the coverage and its repasse onto the dam's
// pregnancy history. A missing dam is a stale reference and is skipped.
func (w *workspace) syncPregnancies(cov *models.CoverageRecord) {
	dam := w.female(cov.Dam())
	if dam == nil {
		w.logger.Debug("dam not found, pregnancy history left untouched",
			zap.String("coverage_id", cov.ID), zap.String("cow_tag", cov.CowTag))
		return
	}
	dam.UpsertPregnancy(pregnancyRecord(cov, false))
	if cov.RepasseEnabled() {
		dam.UpsertPregnancy(pregnancyRecord(cov, true))
		return
	}
	dam.RemovePregnancy(pregnancyID(cov.ID, true))
	dam.RemoveAbortion(abortionID(cov.ID, true))
}

// refreshSireName rewrites the sire shown on the dam's pregnancy record.
func (w *workspace) refreshSireName(cov *models.CoverageRecord, repasse bool) {
	dam := w.female(cov.Dam())
	if dam == nil {
		return
	}
	if rec := dam.Pregnancy(pregnancyID(cov.ID, repasse)); rec != nil {
		rec.SireName = attemptOf(cov, repasse).SireName(cov.SemenCode)
	}
}

// applyDiagnosisTransition enforces the abortion law: only positive to
// negative records a loss, and leaving negative withdraws it.
func (w *workspace) applyDiagnosisTransition(cov *models.CoverageRecord, repasse bool, prev, next models.DiagnosisResult, at time.Time) {
	if prev == next {
		return
	}
	dam := w.female(cov.Dam())
	if dam == nil {
		return
	}
	id := abortionID(cov.ID, repasse)
	switch {
	case prev == models.DiagnosisPositive && next == models.DiagnosisNegative:
		dam.AddAbortion(models.AbortionRecord{ID: id, Date: at})
	case prev == models.DiagnosisNegative:
		dam.RemoveAbortion(id)
	}
}

// syncPlaceholder puts the embryo placeholder of an FIV coverage on its donor
// unless the donor already carries a record for it.
func (w *workspace) syncPlaceholder(cov *models.CoverageRecord) {
	if cov.Type != models.BreedingFIV || cov.Donor().IsZero() {
		return
	}
	donor := w.female(cov.Donor())
	if donor == nil {
		w.logger.Debug("donor not found, placeholder skipped", zap.String("coverage_id", cov.ID))
		return
	}
	if ph := donor.Offspring(placeholderID(cov.ID)); ph != nil {
		ph.RecipientID = cov.CowID
		ph.RecipientTag = cov.CowTag
		if ph.Placeholder {
			ph.OffspringTag = placeholderTag(cov.CowTag)
		}
		return
	}
	for _, calfID := range []string{cov.CalfID, repasseCalf(cov)} {
		if donor.OffspringFor(calfID) != nil {
			return
		}
	}
	donor.AddOffspring(models.OffspringWeightRecord{
		ID:           placeholderID(cov.ID),
		OffspringTag: placeholderTag(cov.CowTag),
		Placeholder:  true,
		CoverageID:   cov.ID,
		RecipientID:  cov.CowID,
		RecipientTag: cov.CowTag,
	})
}

// dropPlaceholder removes the unclaimed embryo placeholder from the donor.
func (w *workspace) dropPlaceholder(cov *models.CoverageRecord) {
	if cov.Donor().IsZero() {
		return
	}
	donor := w.female(cov.Donor())
	if donor == nil {
		return
	}
	if rec := donor.Offspring(placeholderID(cov.ID)); rec != nil && rec.Placeholder {
		donor.RemoveOffspring(rec.ID)
	}
}

// detachDerived removes every record the coverage produced on other animals.
func (w *workspace) detachDerived(cov *models.CoverageRecord) {
	if dam := w.female(cov.Dam()); dam != nil {
		dam.RemovePregnancy(pregnancyID(cov.ID, false))
		dam.RemovePregnancy(pregnancyID(cov.ID, true))
		dam.RemoveAbortion(abortionID(cov.ID, false))
		dam.RemoveAbortion(abortionID(cov.ID, true))
	}
	if cov.Type == models.BreedingFIV {
		w.dropPlaceholder(cov)
	}
}

func repasseCalf(cov *models.CoverageRecord) string {
	if cov.Repasse == nil {
		return ""
	}
	return cov.Repasse.CalfID
}

// linkCalf records the calf on the attempt and ties it into the progeny of
// its genetic mother.
func (w *workspace) linkCalf(cov *models.CoverageRecord, repasse bool, calf *models.Animal) {
	att := attemptOf(cov, repasse)
	att.Link(calf)
	if att.ExpectedCalving == nil {
		att.ExpectedCalving = models.DatePtr(models.ExpectedCalving(attemptDate(cov, repasse)))
	}
	if calf.SireID == "" && calf.SireName == "" {
		if sire, ok := att.ConfirmedSire(); ok {
			calf.SireID = sire.ID
			calf.SireName = sire.Name
		}
	}

	coverageID := ""
	var parent *models.Animal
	if cov.Type == models.BreedingFIV {
		coverageID = cov.ID
		parent = w.female(cov.Donor())
		if parent == nil {
			parent = w.female(models.AnimalRef{ID: calf.DonorID, Tag: calf.DonorName})
		}
	} else {
		parent = w.female(cov.Dam())
	}
	if parent == nil {
		return
	}
	w.attachProgeny(parent, calf, coverageID)
}

// attachProgeny makes sure parent carries exactly one progeny record for the
// calf. For FIV it claims the embryo placeholder of the coverage, or any
// unclaimed placeholder of the same recipient when the coverage is unknown.
func (w *workspace) attachProgeny(parent, calf *models.Animal, coverageID string) {
	if rec := parent.OffspringFor(calf.ID); rec != nil {
		fillProgeny(rec, calf)
		if coverageID != "" {
			if ph := parent.Offspring(placeholderID(coverageID)); ph != nil && ph.Placeholder && ph.ID != rec.ID {
				parent.RemoveOffspring(ph.ID)
			}
		}
		return
	}

	if ph := w.findPlaceholder(parent, calf, coverageID); ph != nil {
		ph.Placeholder = false
		fillProgeny(ph, calf)
		return
	}
	rec := models.OffspringWeightRecord{ID: w.newID()}
	if coverageID != "" && parent.Offspring(placeholderID(coverageID)) == nil {
		rec.ID = placeholderID(coverageID)
		rec.CoverageID = coverageID
		rec.RecipientID = calf.RecipientID
		rec.RecipientTag = calf.RecipientName
	}
	fillProgeny(&rec, calf)
	parent.AddOffspring(rec)
}

func (w *workspace) findPlaceholder(parent, calf *models.Animal, coverageID string) *models.OffspringWeightRecord {
	if !calf.IsFIVProduct() {
		return nil
	}
	if coverageID != "" {
		if ph := parent.Offspring(placeholderID(coverageID)); ph != nil && ph.OffspringID == "" {
			return ph
		}
		return nil
	}
	recipient := models.AnimalRef{ID: calf.RecipientID, Tag: calf.RecipientName}
	for i := range parent.Progeny {
		ph := &parent.Progeny[i]
		if !ph.Placeholder || ph.OffspringID != "" {
			continue
		}
		if recipient.Matches(ph.RecipientID, ph.RecipientTag) {
			return ph
		}
	}
	return nil
}

// fillProgeny copies the calf's identity and reference weights.
func fillProgeny(rec *models.OffspringWeightRecord, calf *models.Animal) {
	rec.OffspringID = calf.ID
	rec.OffspringTag = calf.Tag
	rec.BirthWeight = calf.WeightByClass(models.WeightClassBirth)
	rec.WeaningWeight = calf.WeightByClass(models.WeightClassWeaning)
	rec.YearlingWeight = calf.WeightByClass(models.WeightClassYearling)
}

// releaseProgeny removes the calf from a former parent. A claimed FIV
// placeholder goes back to being an unclaimed embryo.
func releaseProgeny(parent *models.Animal, calfID string) {
	rec := parent.OffspringFor(calfID)
	if rec == nil {
		return
	}
	if rec.CoverageID != "" {
		rec.OffspringID = ""
		rec.OffspringTag = placeholderTag(rec.RecipientTag)
		rec.BirthWeight = nil
		rec.WeaningWeight = nil
		rec.YearlingWeight = nil
		rec.Placeholder = true
		return
	}
	parent.RemoveOffspring(rec.ID)
}
