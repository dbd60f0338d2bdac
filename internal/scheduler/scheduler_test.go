package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/herd/internal/config"
	"github.com/mamadbah2/herd/internal/domain/models"
)

type fakeSweeper struct {
	result    models.SweepResult
	err       error
	tolerance int
	calls     int
}

func (f *fakeSweeper) VerifyAllSeasons(_ context.Context, toleranceDays int) (models.SweepResult, error) {
	f.calls++
	f.tolerance = toleranceDays
	return f.result, f.err
}

type fakeExporter struct {
	calls int
	err   error
}

func (f *fakeExporter) ExportSeasonMetrics(context.Context) (int, error) {
	f.calls++
	return 1, f.err
}

type fakeNotifier struct {
	results []models.SweepResult
	err     error
}

func (f *fakeNotifier) NotifySweep(_ context.Context, r models.SweepResult, _ time.Time) error {
	f.results = append(f.results, r)
	return f.err
}

func sweepConfig() config.SweepConfig {
	return config.SweepConfig{CronSchedule: "0 3 * * *", Timezone: "UTC", ToleranceDays: 30}
}

func TestRunOnce_SweepsNotifiesAndExports(t *testing.T) {
	sw := &fakeSweeper{result: models.SweepResult{Linked: 2}}
	ex := &fakeExporter{}
	nt := &fakeNotifier{err: errors.New("whatsapp down")}

	s, err := NewScheduler(sweepConfig(), sw, ex, nt, nil)
	require.NoError(t, err)

	result, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, result.Linked)
	assert.Equal(t, 30, sw.tolerance)
	assert.Equal(t, []models.SweepResult{{Linked: 2}}, nt.results)
	assert.Equal(t, 1, ex.calls, "export runs even when the notification fails")
}

func TestRunOnce_SweepFailureStopsTheRun(t *testing.T) {
	boom := errors.New("boom")
	ex := &fakeExporter{}
	nt := &fakeNotifier{}

	s, err := NewScheduler(sweepConfig(), &fakeSweeper{err: boom}, ex, nt, nil)
	require.NoError(t, err)

	_, err = s.RunOnce(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, nt.results)
	assert.Zero(t, ex.calls)
}

func TestRunOnce_WithoutCollaborators(t *testing.T) {
	s, err := NewScheduler(sweepConfig(), &fakeSweeper{}, nil, nil, nil)
	require.NoError(t, err)
	_, err = s.RunOnce(context.Background())
	assert.NoError(t, err)
}

func TestNewScheduler_Validation(t *testing.T) {
	cfg := sweepConfig()
	cfg.Timezone = "Mars/Olympus"
	_, err := NewScheduler(cfg, &fakeSweeper{}, nil, nil, nil)
	assert.Error(t, err)

	cfg = sweepConfig()
	cfg.CronSchedule = "every night"
	s, err := NewScheduler(cfg, &fakeSweeper{}, nil, nil, nil)
	require.NoError(t, err)
	assert.Error(t, s.Start())
}

func TestStartStop(t *testing.T) {
	s, err := NewScheduler(sweepConfig(), &fakeSweeper{}, nil, nil, nil)
	require.NoError(t, err)
	require.NoError(t, s.Start())
	assert.Len(t, s.cron.Entries(), 1)
	s.Stop()
}
