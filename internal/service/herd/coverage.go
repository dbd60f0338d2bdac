package herd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mamadbah2/herd/internal/domain/models"
)

// AddCoverageToSeason registers a breeding event and mirrors it onto the dam
// (pregnancy records) and, for FIV, onto the donor (embryo placeholder).
func (s *Service) AddCoverageToSeason(ctx context.Context, seasonID string, cov models.CoverageRecord) (models.CoverageRecord, error) {
	var out models.CoverageRecord
	err := s.mutate(ctx, "add_coverage", func(w *workspace) error {
		season, err := w.season(seasonID)
		if err != nil {
			return err
		}
		c, err := w.addCoverage(season, cov)
		if err != nil {
			return err
		}
		season.RecomputeMetrics()
		out = c.Clone()
		return nil
	})
	return out, err
}

// UpdateCoverageInSeason patches a coverage and re-derives everything it
// produced on the dam and donor.
func (s *Service) UpdateCoverageInSeason(ctx context.Context, seasonID, coverageID string, patch models.CoveragePatch) (models.CoverageRecord, error) {
	var out models.CoverageRecord
	err := s.mutate(ctx, "update_coverage", func(w *workspace) error {
		season, cov, err := w.coverage(seasonID, coverageID)
		if err != nil {
			return err
		}
		before := cov.Clone()
		applyCoveragePatch(cov, patch)
		if err := w.prepareCoverage(cov); err != nil {
			return err
		}
		w.reconcileCoverageEdit(&before, cov)
		season.RecomputeMetrics()
		out = cov.Clone()
		return nil
	})
	return out, err
}

// DeleteCoverageFromSeason removes a coverage and every record derived from it.
func (s *Service) DeleteCoverageFromSeason(ctx context.Context, seasonID, coverageID string) error {
	return s.mutate(ctx, "delete_coverage", func(w *workspace) error {
		season, err := w.season(seasonID)
		if err != nil {
			return err
		}
		cov, ok := season.RemoveCoverage(coverageID)
		if !ok {
			return fmt.Errorf("coverage %s in season %s: %w", coverageID, seasonID, models.ErrCoverageNotFound)
		}
		w.detachDerived(&cov)
		season.RecomputeMetrics()
		return nil
	})
}

// UpdatePregnancyDiagnosis records a DG result on the coverage or its repasse.
func (s *Service) UpdatePregnancyDiagnosis(ctx context.Context, seasonID, coverageID string, upd models.DiagnosisUpdate) error {
	if !upd.Result.Valid() {
		return fmt.Errorf("diagnosis %q: %w", upd.Result, models.ErrInvalidInput)
	}
	return s.mutate(ctx, "update_diagnosis", func(w *workspace) error {
		season, cov, err := w.coverage(seasonID, coverageID)
		if err != nil {
			return err
		}
		att, err := selectAttempt(cov, upd.Repasse)
		if err != nil {
			return err
		}

		prev := att.PregnancyResult
		check := w.now
		if upd.CheckDate != nil && !upd.CheckDate.IsZero() {
			check = *upd.CheckDate
		}
		att.PregnancyResult = upd.Result
		att.PregnancyCheck = models.DatePtr(check)
		cov.RecomputeExpected()

		w.syncPregnancies(cov)
		w.applyDiagnosisTransition(cov, upd.Repasse, prev, upd.Result, check)
		season.RecomputeMetrics()
		return nil
	})
}

// ConfirmPaternity settles which candidate bull sired the pregnancy and
// propagates it to the dam's record and to the calf when one is linked.
func (s *Service) ConfirmPaternity(ctx context.Context, seasonID, coverageID string, c models.PaternityConfirmation) error {
	return s.mutate(ctx, "confirm_paternity", func(w *workspace) error {
		_, cov, err := w.coverage(seasonID, coverageID)
		if err != nil {
			return err
		}
		att, err := selectAttempt(cov, c.Repasse)
		if err != nil {
			return err
		}

		var bull models.BullRef
		switch {
		case c.BullIndex != nil:
			if *c.BullIndex < 0 || *c.BullIndex >= len(att.Bulls) {
				return fmt.Errorf("bull index %d out of %d candidates: %w", *c.BullIndex, len(att.Bulls), models.ErrInvalidInput)
			}
			bull = att.Bulls[*c.BullIndex]
		case c.Bull.ID != "" || strings.TrimSpace(c.Bull.Name) != "":
			bull = c.Bull
		default:
			return fmt.Errorf("no bull selected: %w", models.ErrInvalidInput)
		}

		att.Confirm(bull)
		w.refreshSireName(cov, c.Repasse)
		if calf := w.animal(att.CalfID); calf != nil {
			calf.SireID = bull.ID
			calf.SireName = bull.Name
		}
		return nil
	})
}

// RegisterAbortion marks the attempt as lost and records it on the dam.
func (s *Service) RegisterAbortion(ctx context.Context, seasonID, coverageID string, r models.AbortionRegistration) error {
	return s.mutate(ctx, "register_abortion", func(w *workspace) error {
		season, cov, err := w.coverage(seasonID, coverageID)
		if err != nil {
			return err
		}
		att, err := selectAttempt(cov, r.Repasse)
		if err != nil {
			return err
		}
		if att.CalvingResult == models.CalvingDone {
			return fmt.Errorf("coverage %s already calved: %w", coverageID, models.ErrInvalidInput)
		}

		date := r.Date
		if date.IsZero() {
			date = w.now
		}
		att.CalvingResult = models.CalvingAborted
		att.CalvingDate = models.DatePtr(date)
		att.CalvingNotes = r.Notes

		if dam := w.female(cov.Dam()); dam != nil {
			dam.AddAbortion(models.AbortionRecord{ID: abortionID(cov.ID, r.Repasse), Date: date})
		}
		season.RecomputeMetrics()
		return nil
	})
}

// RegisterCalving links a born calf to the attempt. Missing parentage on the
// calf is filled from the coverage; a conflicting lineage mode is refused.
func (s *Service) RegisterCalving(ctx context.Context, seasonID, coverageID string, r models.CalvingRegistration) error {
	return s.mutate(ctx, "register_calving", func(w *workspace) error {
		season, cov, err := w.coverage(seasonID, coverageID)
		if err != nil {
			return err
		}
		att, err := selectAttempt(cov, r.Repasse)
		if err != nil {
			return err
		}
		calf := w.animal(r.CalfID)
		if calf == nil {
			return fmt.Errorf("calf %s: %w", r.CalfID, models.ErrAnimalNotFound)
		}
		if att.CalfID != "" && att.CalfID != calf.ID {
			return fmt.Errorf("coverage %s already linked to calf %s: %w", coverageID, att.CalfID, models.ErrInvalidInput)
		}
		if _, taken := w.claimedCalves()[calf.ID]; taken && att.CalfID != calf.ID {
			return fmt.Errorf("calf %s already linked to another coverage: %w", calf.ID, models.ErrInvalidInput)
		}
		if err := adoptParentage(calf, cov); err != nil {
			return err
		}
		if calf.BirthDate == nil && r.Date != nil && !r.Date.IsZero() {
			calf.BirthDate = models.DatePtr(*r.Date)
		}

		prev := att.PregnancyResult
		wasAborted := att.CalvingResult == models.CalvingAborted
		att.PregnancyResult = models.DiagnosisPositive
		w.linkCalf(cov, r.Repasse, calf)
		if r.Date != nil && !r.Date.IsZero() {
			att.CalvingDate = models.DatePtr(*r.Date)
		}

		w.syncPregnancies(cov)
		w.applyDiagnosisTransition(cov, r.Repasse, prev, models.DiagnosisPositive, w.now)
		if wasAborted {
			if dam := w.female(cov.Dam()); dam != nil {
				dam.RemoveAbortion(abortionID(cov.ID, r.Repasse))
			}
		}
		season.RecomputeMetrics()
		return nil
	})
}

// addCoverage validates a new coverage and attaches it with its derived records.
func (w *workspace) addCoverage(season *models.BreedingSeason, cov models.CoverageRecord) (*models.CoverageRecord, error) {
	cov = cov.Clone()
	if cov.ID == "" {
		cov.ID = w.newID()
	}
	if season.Coverage(cov.ID) != nil {
		return nil, fmt.Errorf("coverage %s already exists: %w", cov.ID, models.ErrInvalidInput)
	}
	if err := w.prepareCoverage(&cov); err != nil {
		return nil, err
	}
	return w.attachCoverage(season, cov), nil
}

func (w *workspace) attachCoverage(season *models.BreedingSeason, cov models.CoverageRecord) *models.CoverageRecord {
	season.Coverages = append(season.Coverages, cov)
	c := &season.Coverages[len(season.Coverages)-1]
	w.syncPregnancies(c)
	w.syncPlaceholder(c)
	return c
}

// prepareCoverage validates the coverage, completes dam/donor references from
// the herd and recomputes the expected calving dates.
func (w *workspace) prepareCoverage(cov *models.CoverageRecord) error {
	if cov.Type == "" {
		cov.Type = models.BreedingNatural
	}
	if !cov.Type.Valid() {
		return fmt.Errorf("breeding type %q: %w", cov.Type, models.ErrInvalidInput)
	}
	if cov.Date.IsZero() {
		return fmt.Errorf("coverage date is required: %w", models.ErrInvalidInput)
	}
	if cov.Dam().IsZero() {
		return fmt.Errorf("coverage dam is required: %w", models.ErrInvalidInput)
	}
	if len(cov.Bulls) > 2 || (cov.Repasse != nil && len(cov.Repasse.Bulls) > 2) {
		return fmt.Errorf("at most two candidate bulls: %w", models.ErrInvalidInput)
	}

	cov.Sanitize()
	if !cov.PregnancyResult.Valid() || (cov.Repasse != nil && !cov.Repasse.PregnancyResult.Valid()) {
		return fmt.Errorf("diagnosis result: %w", models.ErrInvalidInput)
	}

	dam := w.completeRef(cov.Dam())
	cov.CowID, cov.CowTag = dam.ID, dam.Tag
	if cov.Type == models.BreedingFIV && !cov.Donor().IsZero() {
		donor := w.completeRef(cov.Donor())
		cov.DonorCowID, cov.DonorCowTag = donor.ID, donor.Tag
	}

	cov.RecomputeExpected()
	return nil
}

// reconcileCoverageEdit moves and refreshes derived records after an edit.
func (w *workspace) reconcileCoverageEdit(before, after *models.CoverageRecord) {
	oldDam := w.female(before.Dam())
	newDam := w.female(after.Dam())
	if oldDam != nil && (newDam == nil || oldDam.ID != newDam.ID) {
		for _, repasse := range []bool{false, true} {
			oldDam.RemovePregnancy(pregnancyID(before.ID, repasse))
			id := abortionID(before.ID, repasse)
			for _, rec := range oldDam.Abortions {
				if rec.ID == id && newDam != nil {
					newDam.AddAbortion(rec)
				}
			}
			oldDam.RemoveAbortion(id)
		}
	}

	w.moveDonorRecord(before, after)
	w.syncPregnancies(after)
	w.syncPlaceholder(after)

	w.applyDiagnosisTransition(after, false, before.PregnancyResult, after.PregnancyResult, checkDate(&after.Attempt, w.now))
	if after.RepasseEnabled() {
		prev := models.DiagnosisPending
		if before.RepasseEnabled() {
			prev = before.Repasse.PregnancyResult
		}
		w.applyDiagnosisTransition(after, true, prev, after.Repasse.PregnancyResult, checkDate(&after.Repasse.Attempt, w.now))
	}
}

// moveDonorRecord carries the FIV progeny record over a donor change and
// drops the placeholder when the coverage stops being FIV.
func (w *workspace) moveDonorRecord(before, after *models.CoverageRecord) {
	if before.Type != models.BreedingFIV || before.Donor().IsZero() {
		return
	}
	oldDonor := w.female(before.Donor())
	if oldDonor == nil {
		return
	}
	var newDonor *models.Animal
	if after.Type == models.BreedingFIV && !after.Donor().IsZero() {
		newDonor = w.female(after.Donor())
	}
	if newDonor != nil && newDonor.ID == oldDonor.ID {
		return
	}
	rec := oldDonor.Offspring(placeholderID(before.ID))
	if rec == nil {
		return
	}
	if newDonor == nil && !rec.Placeholder {
		return
	}
	moved, _ := oldDonor.RemoveOffspring(rec.ID)
	if newDonor != nil {
		newDonor.AddOffspring(moved)
	}
}

func applyCoveragePatch(cov *models.CoverageRecord, p models.CoveragePatch) {
	if p.CowID != nil {
		cov.CowID = *p.CowID
		if p.CowTag == nil {
			cov.CowTag = ""
		}
	}
	if p.CowTag != nil {
		cov.CowTag = *p.CowTag
		if p.CowID == nil {
			cov.CowID = ""
		}
	}
	if p.Date != nil {
		cov.Date = *p.Date
	}
	if p.Type != nil {
		cov.Type = *p.Type
	}
	if p.BullID != nil {
		cov.BullID = *p.BullID
	}
	if p.BullName != nil {
		cov.BullName = *p.BullName
	}
	if p.Bulls != nil {
		cov.Bulls = p.Bulls
	}
	if p.SemenCode != nil {
		cov.SemenCode = *p.SemenCode
	}
	if p.DonorCowID != nil {
		cov.DonorCowID = *p.DonorCowID
		if p.DonorCowTag == nil {
			cov.DonorCowTag = ""
		}
	}
	if p.DonorCowTag != nil {
		cov.DonorCowTag = *p.DonorCowTag
		if p.DonorCowID == nil {
			cov.DonorCowID = ""
		}
	}
	if p.PregnancyResult != nil {
		cov.PregnancyResult = *p.PregnancyResult
	}
	if p.PregnancyCheck != nil {
		cov.PregnancyCheck = models.DatePtr(*p.PregnancyCheck)
	}
	if p.Notes != nil {
		cov.Notes = *p.Notes
	}
	if p.Repasse == nil {
		return
	}

	if cov.Repasse == nil {
		cov.Repasse = &models.Repasse{}
	}
	r := cov.Repasse
	rp := p.Repasse
	if rp.Enabled != nil {
		r.Enabled = *rp.Enabled
	}
	if rp.StartDate != nil {
		r.StartDate = models.DatePtr(*rp.StartDate)
	}
	if rp.BullID != nil {
		r.BullID = *rp.BullID
	}
	if rp.BullName != nil {
		r.BullName = *rp.BullName
	}
	if rp.Bulls != nil {
		r.Bulls = rp.Bulls
	}
	if rp.PregnancyResult != nil {
		r.PregnancyResult = *rp.PregnancyResult
	}
	if rp.PregnancyCheck != nil {
		r.PregnancyCheck = models.DatePtr(*rp.PregnancyCheck)
	}
}

// selectAttempt returns the main attempt or the enabled repasse.
func selectAttempt(cov *models.CoverageRecord, repasse bool) (*models.Attempt, error) {
	if repasse && !cov.RepasseEnabled() {
		return nil, fmt.Errorf("coverage %s has no active repasse: %w", cov.ID, models.ErrInvalidInput)
	}
	return attemptOf(cov, repasse), nil
}

// adoptParentage fills a calf's missing lineage from the coverage that
// produced it, refusing a calf whose lineage mode contradicts the coverage.
func adoptParentage(calf *models.Animal, cov *models.CoverageRecord) error {
	if cov.Type == models.BreedingFIV {
		if !calf.IsFIVProduct() {
			if calf.MotherID != "" || strings.TrimSpace(calf.MotherName) != "" {
				return fmt.Errorf("calf %s is not an FIV product: %w", calf.ID, models.ErrInvalidInput)
			}
			calf.IsFIV = true
			calf.RecipientID, calf.RecipientName = cov.CowID, cov.CowTag
		}
		if calf.DonorID == "" && strings.TrimSpace(calf.DonorName) == "" {
			calf.DonorID, calf.DonorName = cov.DonorCowID, cov.DonorCowTag
		}
		return nil
	}
	if calf.IsFIVProduct() {
		return fmt.Errorf("calf %s is an FIV product: %w", calf.ID, models.ErrInvalidInput)
	}
	if calf.MotherID == "" && strings.TrimSpace(calf.MotherName) == "" {
		calf.MotherID, calf.MotherName = cov.CowID, cov.CowTag
	}
	return nil
}

func checkDate(att *models.Attempt, fallback time.Time) time.Time {
	if att.PregnancyCheck != nil {
		return *att.PregnancyCheck
	}
	return fallback
}
