package herd

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/herd/internal/domain/models"
	"github.com/mamadbah2/herd/internal/service/matching"
)

// VerifyAndRegisterAbortions sweeps one season: it links born calves,
// registers losses past the tolerance, discovers pregnancies behind negative
// diagnoses and coverages never logged for exposed dams, settles two-bull
// paternity from the switch configs and refreshes the season metrics.
// Re-running it without new data writes nothing.
func (s *Service) VerifyAndRegisterAbortions(ctx context.Context, seasonID string, toleranceDays int, configs []models.BullSwitchConfig) (models.SweepResult, error) {
	if toleranceDays < 0 {
		return models.SweepResult{}, fmt.Errorf("tolerance %d days: %w", toleranceDays, models.ErrInvalidInput)
	}

	started := time.Now()
	var result models.SweepResult
	err := s.mutate(ctx, "verify_season", func(w *workspace) error {
		season, err := w.season(seasonID)
		if err != nil {
			return err
		}
		sw := newSweep(w, toleranceDays, configs)
		sw.season(season)
		result = sw.result
		return nil
	})
	if err != nil {
		return models.SweepResult{}, err
	}

	s.metrics.SweepCompleted(result, time.Since(started))
	s.logger.Info("season verified",
		zap.String("season_id", seasonID),
		zap.Int("linked", result.Linked),
		zap.Int("registered", result.Registered),
		zap.Int("pending", result.Pending),
		zap.Int("discovered", result.Discovered),
		zap.Int("paternity_confirmed", result.PaternityConfirmed))
	return result, nil
}

// VerifyAllSeasons sweeps every season, newest first, as one unit of work.
// A calf claimed in one season is excluded from all later ones.
func (s *Service) VerifyAllSeasons(ctx context.Context, toleranceDays int) (models.SweepResult, error) {
	if toleranceDays < 0 {
		return models.SweepResult{}, fmt.Errorf("tolerance %d days: %w", toleranceDays, models.ErrInvalidInput)
	}

	started := time.Now()
	var result models.SweepResult
	var seasons int
	err := s.mutate(ctx, "verify_all_seasons", func(w *workspace) error {
		sw := newSweep(w, toleranceDays, nil)
		for _, season := range w.seasonsNewestFirst() {
			sw.season(season)
			seasons++
		}
		result = sw.result
		return nil
	})
	if err != nil {
		return models.SweepResult{}, err
	}

	s.metrics.SweepCompleted(result, time.Since(started))
	s.logger.Info("all seasons verified",
		zap.Int("seasons", seasons),
		zap.Int("linked", result.Linked),
		zap.Int("registered", result.Registered),
		zap.Int("pending", result.Pending),
		zap.Int("discovered", result.Discovered))
	return result, nil
}

type sweep struct {
	w        *workspace
	tol      int
	configs  []models.BullSwitchConfig
	excluded map[string]struct{}
	result   models.SweepResult
}

func newSweep(w *workspace, toleranceDays int, configs []models.BullSwitchConfig) *sweep {
	return &sweep{
		w:        w,
		tol:      toleranceDays,
		configs:  configs,
		excluded: w.claimedCalves(),
	}
}

func (sw *sweep) season(season *models.BreedingSeason) {
	n := len(season.Coverages)
	for i := 0; i < n; i++ {
		sw.coverage(&season.Coverages[i])
	}
	sw.discoverUncovered(season)
	season.RecomputeMetrics()
}

func (sw *sweep) coverage(cov *models.CoverageRecord) {
	if !cov.HasOutcome() && cov.PregnancyResult == models.DiagnosisPositive {
		sw.resolvePositive(cov, false)
	}
	if cov.RepasseEnabled() && !cov.Repasse.HasOutcome() && cov.Repasse.PregnancyResult == models.DiagnosisPositive {
		sw.resolvePositive(cov, true)
	}
	if cov.PregnancyResult == models.DiagnosisNegative && !cov.HasOutcome() && !repasseSettled(cov) {
		sw.probeNegative(cov)
	}
}

// repasseSettled reports whether the repasse already accounts for a pregnancy.
func repasseSettled(cov *models.CoverageRecord) bool {
	if !cov.RepasseEnabled() {
		return false
	}
	r := &cov.Repasse.Attempt
	return r.PregnancyResult == models.DiagnosisPositive || r.CalfID != "" || r.HasOutcome()
}

func (sw *sweep) criteria(cov *models.CoverageRecord, expected time.Time) matching.Criteria {
	dam := sw.w.completeRef(cov.Dam())
	donor := cov.Donor()
	if !donor.IsZero() {
		donor = sw.w.completeRef(donor)
	}
	return matching.CriteriaFor(dam, cov.Type, donor, expected, sw.tol, sw.excluded)
}

// resolvePositive links the calf of a positive attempt, or registers the loss
// once the tolerance after the expected date has elapsed.
func (sw *sweep) resolvePositive(cov *models.CoverageRecord, repasse bool) {
	att := attemptOf(cov, repasse)
	expected := expectedOf(cov, repasse)
	if att.ExpectedCalving == nil {
		att.ExpectedCalving = models.DatePtr(expected)
	}

	if calf, ok := matching.FindBestMatch(sw.w.animals, sw.criteria(cov, expected)); ok {
		sw.link(cov, repasse, calf)
		sw.result.Linked++
		return
	}
	if sw.w.now.After(expected.Add(models.Days(sw.tol))) {
		sw.registerLoss(cov, repasse, expected)
		sw.result.Registered++
		return
	}
	sw.result.Pending++
}

// probeNegative looks for a calf behind a negative diagnosis. The attempt
// whose expected date is closer to the birth is flipped to positive.
func (sw *sweep) probeNegative(cov *models.CoverageRecord) {
	mainExpected := models.ExpectedCalving(cov.Date)
	calf, ok := matching.FindBestMatch(sw.w.animals, sw.criteria(cov, mainExpected))
	repasse := false

	if cov.RepasseEnabled() && !cov.Repasse.HasOutcome() {
		repExpected := models.ExpectedCalving(cov.RepasseStart())
		if rc, rok := matching.FindBestMatch(sw.w.animals, sw.criteria(cov, repExpected)); rok {
			if !ok || models.AbsDuration(rc.BirthDate.Sub(repExpected)) < models.AbsDuration(calf.BirthDate.Sub(mainExpected)) {
				calf, ok, repasse = rc, true, true
			}
		}
	}
	if !ok {
		return
	}

	att := attemptOf(cov, repasse)
	prev := att.PregnancyResult
	att.PregnancyResult = models.DiagnosisPositive
	att.ExpectedCalving = models.DatePtr(models.ExpectedCalving(attemptDate(cov, repasse)))
	sw.link(cov, repasse, calf)
	sw.w.applyDiagnosisTransition(cov, repasse, prev, models.DiagnosisPositive, sw.w.now)
	sw.result.Discovered++

	sw.w.logger.Info("pregnancy discovered behind negative diagnosis",
		zap.String("coverage_id", cov.ID),
		zap.Bool("repasse", repasse),
		zap.String("calf_id", calf.ID))
}

func (sw *sweep) link(cov *models.CoverageRecord, repasse bool, calf *models.Animal) {
	sw.w.linkCalf(cov, repasse, calf)
	sw.excluded[calf.ID] = struct{}{}
	if sw.settlePaternity(cov, repasse, calf) {
		sw.result.PaternityConfirmed++
	}
	sw.w.syncPregnancies(cov)
}

// settlePaternity applies the bull-switch config of the attempt, if any, and
// copies the chosen bull onto the calf.
func (sw *sweep) settlePaternity(cov *models.CoverageRecord, repasse bool, calf *models.Animal) bool {
	att := attemptOf(cov, repasse)
	if !att.HasPendingPaternity() {
		return false
	}
	cfg, ok := findSwitch(sw.configs, cov.ID, repasse)
	if !ok {
		return false
	}

	var bull models.BullRef
	switch {
	case cfg.SelectedBullIndex != nil:
		idx := *cfg.SelectedBullIndex
		if idx < 0 || idx >= len(att.Bulls) {
			sw.w.logger.Warn("bull switch index out of range", zap.String("coverage_id", cov.ID), zap.Int("index", idx))
			return false
		}
		bull = att.Bulls[idx]
	case cfg.SwitchDate != nil && calf.BirthDate != nil:
		if models.EstimatedConception(*calf.BirthDate).Before(*cfg.SwitchDate) {
			bull = att.Bulls[0]
		} else {
			bull = att.Bulls[1]
		}
	default:
		return false
	}

	att.Confirm(bull)
	calf.SireID = bull.ID
	calf.SireName = bull.Name
	sw.w.refreshSireName(cov, repasse)
	return true
}

func findSwitch(configs []models.BullSwitchConfig, coverageID string, repasse bool) (models.BullSwitchConfig, bool) {
	for _, cfg := range configs {
		if cfg.CoverageID == coverageID && cfg.Repasse == repasse {
			return cfg, true
		}
	}
	return models.BullSwitchConfig{}, false
}

func (sw *sweep) registerLoss(cov *models.CoverageRecord, repasse bool, expected time.Time) {
	att := attemptOf(cov, repasse)
	deadline := expected.Add(models.Days(sw.tol))
	att.CalvingResult = models.CalvingAborted
	att.CalvingNotes = fmt.Sprintf("Aborto registrado automaticamente: nenhum bezerro encontrado ate %s", deadline.Format("2006-01-02"))

	if dam := sw.w.female(cov.Dam()); dam != nil {
		dam.AddAbortion(models.AbortionRecord{ID: abortionID(cov.ID, repasse), Date: expected})
	}
}

// discoverUncovered synthesizes coverages for exposed dams that calved
// without any breeding event logged in the season.
func (sw *sweep) discoverUncovered(season *models.BreedingSeason) {
	from := season.StartDate.AddDate(0, 0, models.GestationDays-sw.tol)
	to := season.EndDate.AddDate(0, 0, models.GestationDays+sw.tol)

	for _, damID := range season.ExposedCowIDs {
		dam := sw.w.animal(damID)
		if dam == nil {
			continue
		}
		if season.HasCoverageFor(dam.Ref()) {
			continue
		}
		for _, calf := range matching.ChildrenBornBetween(sw.w.animals, dam.Ref(), from, to, sw.excluded) {
			cov := discoveredCoverage(dam, calf)
			if !cov.Donor().IsZero() {
				donor := sw.w.completeRef(cov.Donor())
				cov.DonorCowID, cov.DonorCowTag = donor.ID, donor.Tag
			}
			c := sw.w.attachCoverage(season, cov)
			sw.w.linkCalf(c, false, calf)
			sw.w.syncPregnancies(c)
			sw.excluded[calf.ID] = struct{}{}
			sw.result.Discovered++

			sw.w.logger.Info("coverage discovered for exposed dam",
				zap.String("season_id", season.ID),
				zap.String("dam_id", dam.ID),
				zap.String("calf_id", calf.ID))
		}
	}
}

// discoveredCoverage infers a coverage from the calf it produced.
func discoveredCoverage(dam, calf *models.Animal) models.CoverageRecord {
	cov := models.CoverageRecord{
		ID:         discoveredPrefix + calf.ID,
		CowID:      dam.ID,
		CowTag:     dam.Tag,
		Date:       models.EstimatedConception(*calf.BirthDate),
		Type:       models.BreedingNatural,
		Discovered: true,
		Notes:      "Cobertura inferida a partir do nascimento",
	}
	if calf.IsFIVProduct() {
		cov.Type = models.BreedingFIV
		cov.DonorCowID = calf.DonorID
		cov.DonorCowTag = calf.DonorName
	}
	cov.BullID = calf.SireID
	cov.BullName = calf.SireName
	cov.PregnancyResult = models.DiagnosisPositive
	cov.Sanitize()
	cov.RecomputeExpected()
	return cov
}
