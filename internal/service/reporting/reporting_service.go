// Package reporting turns breeding seasons into fertility summaries for
// operators and exports them to a spreadsheet.
package reporting

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/herd/internal/domain/models"
	repo "github.com/mamadbah2/herd/internal/repository/sheets"
)

const (
	dateLayout        = "2006-01-02"
	seasonsDataRange  = "Seasons!A:M"
	exportedKeysRange = "Seasons!A:B"
)

// SeasonSource lists the breeding seasons to report on.
type SeasonSource interface {
	Seasons() []models.BreedingSeason
}

// SeasonSummary is the fertility picture of one season.
type SeasonSummary struct {
	ID               string               `json:"id"`
	Name             string               `json:"name"`
	StartDate        time.Time            `json:"startDate"`
	EndDate          time.Time            `json:"endDate"`
	Metrics          models.SeasonMetrics `json:"metrics"`
	Calved           int                  `json:"calved"`
	Aborted          int                  `json:"aborted"`
	AwaitingCalving  int                  `json:"awaitingCalving"`
	Discovered       int                  `json:"discovered"`
	PendingPaternity int                  `json:"pendingPaternity"`
}

// Service exposes season analytics for notifications and exports.
type Service struct {
	seasons SeasonSource
	sheet   repo.Repository
	logger  *zap.Logger
	now     func() time.Time
}

// NewService wires a new reporting service instance. sheet may be nil, in
// which case exports are skipped.
func NewService(seasons SeasonSource, sheet repo.Repository, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{seasons: seasons, sheet: sheet, logger: logger, now: time.Now}
}

// Summarize counts the outcomes of every attempt in the season.
func Summarize(season models.BreedingSeason) SeasonSummary {
	sum := SeasonSummary{
		ID:        season.ID,
		Name:      season.Name,
		StartDate: season.StartDate,
		EndDate:   season.EndDate,
		Metrics:   season.Metrics,
	}
	for i := range season.Coverages {
		cov := &season.Coverages[i]
		if cov.Discovered {
			sum.Discovered++
		}
		sum.count(&cov.Attempt)
		if cov.RepasseEnabled() {
			sum.count(&cov.Repasse.Attempt)
		}
	}
	return sum
}

func (s *SeasonSummary) count(att *models.Attempt) {
	switch {
	case att.CalvingResult == models.CalvingDone:
		s.Calved++
	case att.CalvingResult == models.CalvingAborted:
		s.Aborted++
	case att.PregnancyResult == models.DiagnosisPositive:
		s.AwaitingCalving++
	}
	if att.HasPendingPaternity() {
		s.PendingPaternity++
	}
}

// SeasonSummaries returns one summary per season, newest first.
func (s *Service) SeasonSummaries() []SeasonSummary {
	seasons := s.seasons.Seasons()
	out := make([]SeasonSummary, 0, len(seasons))
	for _, season := range seasons {
		out = append(out, Summarize(season))
	}
	return out
}

// FormatSweepReport renders the outcome of a verification sweep followed by
// the summary of each season, for a chat message.
func (s *Service) FormatSweepReport(result models.SweepResult, at time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Herd verification (%s)\n", at.Format(dateLayout))
	if !result.Changed() && result.Pending == 0 {
		b.WriteString("No changes.\n")
	} else {
		fmt.Fprintf(&b, "Calves linked: %d\n", result.Linked)
		fmt.Fprintf(&b, "Losses registered: %d\n", result.Registered)
		fmt.Fprintf(&b, "Pregnancies discovered: %d\n", result.Discovered)
		fmt.Fprintf(&b, "Paternities confirmed: %d\n", result.PaternityConfirmed)
		fmt.Fprintf(&b, "Still waiting: %d\n", result.Pending)
	}

	for _, sum := range s.SeasonSummaries() {
		fmt.Fprintf(&b, "\n%s (%s to %s)\n", sum.Name, sum.StartDate.Format(dateLayout), sum.EndDate.Format(dateLayout))
		fmt.Fprintf(&b, "Pregnancy rate %.1f%%, service rate %.1f%%, conception rate %.1f%%\n",
			percent(sum.Metrics.PregnancyRate), percent(sum.Metrics.ServiceRate), percent(sum.Metrics.ConceptionRate))
		fmt.Fprintf(&b, "Calved %d, aborted %d, awaiting %d", sum.Calved, sum.Aborted, sum.AwaitingCalving)
		if sum.PendingPaternity > 0 {
			fmt.Fprintf(&b, ", paternity pending %d", sum.PendingPaternity)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// ExportSeasonMetrics appends one row per season to the metrics sheet, dated
// today. Seasons already exported today are skipped, so reruns are harmless.
func (s *Service) ExportSeasonMetrics(ctx context.Context) (int, error) {
	if s.sheet == nil {
		s.logger.Debug("sheet export disabled")
		return 0, nil
	}

	today := s.now().Format(dateLayout)
	done, err := s.exportedOn(ctx, today)
	if err != nil {
		return 0, err
	}

	var rows [][]interface{}
	for _, sum := range s.SeasonSummaries() {
		if _, ok := done[sum.ID]; ok {
			continue
		}
		rows = append(rows, []interface{}{
			today,
			sum.ID,
			sum.Name,
			sum.StartDate.Format(dateLayout),
			sum.EndDate.Format(dateLayout),
			sum.Metrics.TotalExposed,
			sum.Metrics.TotalCovered,
			sum.Metrics.TotalPregnant,
			percent(sum.Metrics.PregnancyRate),
			percent(sum.Metrics.ServiceRate),
			percent(sum.Metrics.ConceptionRate),
			sum.Calved,
			sum.Aborted,
		})
	}
	if len(rows) == 0 {
		return 0, nil
	}

	if err := s.sheet.AppendRows(ctx, seasonsDataRange, rows); err != nil {
		return 0, fmt.Errorf("export season metrics: %w", err)
	}
	s.logger.Info("season metrics exported", zap.Int("rows", len(rows)))
	return len(rows), nil
}

func (s *Service) exportedOn(ctx context.Context, day string) (map[string]struct{}, error) {
	rows, err := s.sheet.ReadRange(ctx, exportedKeysRange)
	if err != nil {
		return nil, fmt.Errorf("load exported seasons: %w", err)
	}

	done := make(map[string]struct{})
	for _, row := range rows {
		if len(row) < 2 {
			continue
		}
		dateValue, err := parseDate(row[0])
		if err != nil {
			s.logger.Debug("skip sheet row with invalid date", zap.Any("value", row[0]), zap.Error(err))
			continue
		}
		if dateValue.Format(dateLayout) == day {
			done[fmt.Sprint(row[1])] = struct{}{}
		}
	}
	return done, nil
}

func percent(ratio float64) float64 {
	return math.Round(ratio*1000) / 10
}

func parseDate(value interface{}) (time.Time, error) {
	str := fmt.Sprint(value)
	if str == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	if len(str) > 10 {
		str = str[:10]
	}
	return time.Parse(dateLayout, str)
}
