package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/herd/internal/domain/models"
	"github.com/mamadbah2/herd/internal/quota"
	"github.com/mamadbah2/herd/internal/service/herd"
	"github.com/mamadbah2/herd/internal/service/reporting"
)

// HerdService describes the operations the HTTP layer can perform.
type HerdService interface {
	Animals() []models.Animal
	Animal(id string) (models.Animal, error)
	AddAnimal(ctx context.Context, a models.Animal) (models.Animal, error)
	UpdateAnimal(ctx context.Context, id string, patch models.AnimalPatch) (models.Animal, error)
	DeleteAnimal(ctx context.Context, id string) error
	AddWeightEntry(ctx context.Context, animalID string, e models.WeightEntry) (models.WeightEntry, error)
	AddMedication(ctx context.Context, animalID string, m models.MedicationAdministration) (models.MedicationAdministration, error)

	Seasons() []models.BreedingSeason
	Season(id string) (models.BreedingSeason, error)
	CreateBreedingSeason(ctx context.Context, season models.BreedingSeason) (models.BreedingSeason, error)
	UpdateBreedingSeason(ctx context.Context, id string, patch models.SeasonPatch) (models.BreedingSeason, error)
	DeleteBreedingSeason(ctx context.Context, id string) error

	AddCoverageToSeason(ctx context.Context, seasonID string, cov models.CoverageRecord) (models.CoverageRecord, error)
	UpdateCoverageInSeason(ctx context.Context, seasonID, coverageID string, patch models.CoveragePatch) (models.CoverageRecord, error)
	DeleteCoverageFromSeason(ctx context.Context, seasonID, coverageID string) error
	UpdatePregnancyDiagnosis(ctx context.Context, seasonID, coverageID string, upd models.DiagnosisUpdate) error
	ConfirmPaternity(ctx context.Context, seasonID, coverageID string, c models.PaternityConfirmation) error
	RegisterAbortion(ctx context.Context, seasonID, coverageID string, r models.AbortionRegistration) error
	RegisterCalving(ctx context.Context, seasonID, coverageID string, r models.CalvingRegistration) error

	VerifyAndRegisterAbortions(ctx context.Context, seasonID string, toleranceDays int, configs []models.BullSwitchConfig) (models.SweepResult, error)
	VerifyAllSeasons(ctx context.Context, toleranceDays int) (models.SweepResult, error)
}

// SweepRequest is the body of the verification endpoints. A missing
// tolerance falls back to the configured default.
type SweepRequest struct {
	ToleranceDays     *int                      `json:"toleranceDays,omitempty"`
	BullSwitchConfigs []models.BullSwitchConfig `json:"bullSwitchConfigs,omitempty"`
}

// HerdHandler adapts the herd service to HTTP.
type HerdHandler struct {
	svc              HerdService
	defaultTolerance int
	logger           *zap.Logger
}

// NewHerdHandler constructs the HTTP handler adapter.
func NewHerdHandler(svc HerdService, defaultTolerance int, logger *zap.Logger) *HerdHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HerdHandler{svc: svc, defaultTolerance: defaultTolerance, logger: logger}
}

// statusFor maps service errors onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrAnimalNotFound),
		errors.Is(err, models.ErrSeasonNotFound),
		errors.Is(err, models.ErrCoverageNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, quota.ErrQuotaExceeded):
		return http.StatusTooManyRequests
	case errors.Is(err, herd.ErrStale):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (h *HerdHandler) fail(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(status, gin.H{"error": "internal error"})
		return
	}
	h.logger.Debug("request rejected", zap.String("path", c.FullPath()), zap.Int("status", status), zap.Error(err))
	c.JSON(status, gin.H{"error": err.Error()})
}

func (h *HerdHandler) bind(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		h.logger.Warn("invalid payload", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return false
	}
	return true
}

// ListAnimals returns the whole herd.
func (h *HerdHandler) ListAnimals(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Animals())
}

// GetAnimal returns one animal.
func (h *HerdHandler) GetAnimal(c *gin.Context) {
	a, err := h.svc.Animal(c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

// CreateAnimal registers an animal.
func (h *HerdHandler) CreateAnimal(c *gin.Context) {
	var req models.Animal
	if !h.bind(c, &req) {
		return
	}
	a, err := h.svc.AddAnimal(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, a)
}

// PatchAnimal applies a partial edit.
func (h *HerdHandler) PatchAnimal(c *gin.Context) {
	var req models.AnimalPatch
	if !h.bind(c, &req) {
		return
	}
	a, err := h.svc.UpdateAnimal(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

// DeleteAnimal removes an animal.
func (h *HerdHandler) DeleteAnimal(c *gin.Context) {
	if err := h.svc.DeleteAnimal(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// AddWeight appends a weighing.
func (h *HerdHandler) AddWeight(c *gin.Context) {
	var req models.WeightEntry
	if !h.bind(c, &req) {
		return
	}
	e, err := h.svc.AddWeightEntry(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, e)
}

// AddMedication appends a treatment.
func (h *HerdHandler) AddMedication(c *gin.Context) {
	var req models.MedicationAdministration
	if !h.bind(c, &req) {
		return
	}
	m, err := h.svc.AddMedication(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, m)
}

// ListSeasons returns every season, newest first.
func (h *HerdHandler) ListSeasons(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Seasons())
}

// GetSeason returns one season.
func (h *HerdHandler) GetSeason(c *gin.Context) {
	s, err := h.svc.Season(c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

// GetSeasonSummary returns the fertility summary of one season.
func (h *HerdHandler) GetSeasonSummary(c *gin.Context) {
	s, err := h.svc.Season(c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, reporting.Summarize(s))
}

// CreateSeason stores a season with its initial coverages.
func (h *HerdHandler) CreateSeason(c *gin.Context) {
	var req models.BreedingSeason
	if !h.bind(c, &req) {
		return
	}
	s, err := h.svc.CreateBreedingSeason(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, s)
}

// PatchSeason edits the season header.
func (h *HerdHandler) PatchSeason(c *gin.Context) {
	var req models.SeasonPatch
	if !h.bind(c, &req) {
		return
	}
	s, err := h.svc.UpdateBreedingSeason(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

// DeleteSeason removes a season and its derived records.
func (h *HerdHandler) DeleteSeason(c *gin.Context) {
	if err := h.svc.DeleteBreedingSeason(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// AddCoverage registers a breeding event.
func (h *HerdHandler) AddCoverage(c *gin.Context) {
	var req models.CoverageRecord
	if !h.bind(c, &req) {
		return
	}
	cov, err := h.svc.AddCoverageToSeason(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, cov)
}

// PatchCoverage edits a breeding event.
func (h *HerdHandler) PatchCoverage(c *gin.Context) {
	var req models.CoveragePatch
	if !h.bind(c, &req) {
		return
	}
	cov, err := h.svc.UpdateCoverageInSeason(c.Request.Context(), c.Param("id"), c.Param("coverageId"), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, cov)
}

// DeleteCoverage removes a breeding event and its derived records.
func (h *HerdHandler) DeleteCoverage(c *gin.Context) {
	if err := h.svc.DeleteCoverageFromSeason(c.Request.Context(), c.Param("id"), c.Param("coverageId")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// UpdateDiagnosis records a pregnancy check.
func (h *HerdHandler) UpdateDiagnosis(c *gin.Context) {
	var req models.DiagnosisUpdate
	if !h.bind(c, &req) {
		return
	}
	h.coverageAction(c, func(ctx context.Context, seasonID, coverageID string) error {
		return h.svc.UpdatePregnancyDiagnosis(ctx, seasonID, coverageID, req)
	})
}

// ConfirmPaternity selects the real sire of a two-bull coverage.
func (h *HerdHandler) ConfirmPaternity(c *gin.Context) {
	var req models.PaternityConfirmation
	if !h.bind(c, &req) {
		return
	}
	h.coverageAction(c, func(ctx context.Context, seasonID, coverageID string) error {
		return h.svc.ConfirmPaternity(ctx, seasonID, coverageID, req)
	})
}

// RegisterAbortion marks a coverage as lost.
func (h *HerdHandler) RegisterAbortion(c *gin.Context) {
	var req models.AbortionRegistration
	if !h.bind(c, &req) {
		return
	}
	h.coverageAction(c, func(ctx context.Context, seasonID, coverageID string) error {
		return h.svc.RegisterAbortion(ctx, seasonID, coverageID, req)
	})
}

// RegisterCalving links a born calf to a coverage.
func (h *HerdHandler) RegisterCalving(c *gin.Context) {
	var req models.CalvingRegistration
	if !h.bind(c, &req) {
		return
	}
	h.coverageAction(c, func(ctx context.Context, seasonID, coverageID string) error {
		return h.svc.RegisterCalving(ctx, seasonID, coverageID, req)
	})
}

// coverageAction runs fn and answers with the updated coverage.
func (h *HerdHandler) coverageAction(c *gin.Context, fn func(ctx context.Context, seasonID, coverageID string) error) {
	seasonID, coverageID := c.Param("id"), c.Param("coverageId")
	if err := fn(c.Request.Context(), seasonID, coverageID); err != nil {
		h.fail(c, err)
		return
	}
	s, err := h.svc.Season(seasonID)
	if err != nil {
		h.fail(c, err)
		return
	}
	if cov := s.Coverage(coverageID); cov != nil {
		c.JSON(http.StatusOK, cov)
		return
	}
	c.Status(http.StatusNoContent)
}

// VerifySeason runs the verification sweep on one season.
func (h *HerdHandler) VerifySeason(c *gin.Context) {
	req, ok := h.sweepRequest(c)
	if !ok {
		return
	}
	result, err := h.svc.VerifyAndRegisterAbortions(c.Request.Context(), c.Param("id"), h.tolerance(req), req.BullSwitchConfigs)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// VerifyAll runs the verification sweep on every season.
func (h *HerdHandler) VerifyAll(c *gin.Context) {
	req, ok := h.sweepRequest(c)
	if !ok {
		return
	}
	result, err := h.svc.VerifyAllSeasons(c.Request.Context(), h.tolerance(req))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// sweepRequest accepts an empty body.
func (h *HerdHandler) sweepRequest(c *gin.Context) (SweepRequest, bool) {
	var req SweepRequest
	if c.Request.ContentLength == 0 {
		return req, true
	}
	return req, h.bind(c, &req)
}

func (h *HerdHandler) tolerance(req SweepRequest) int {
	if req.ToleranceDays != nil {
		return *req.ToleranceDays
	}
	return h.defaultTolerance
}
