package herd

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/herd/internal/domain/models"
	"github.com/mamadbah2/herd/internal/quota"
	"github.com/mamadbah2/herd/internal/repository"
	"github.com/mamadbah2/herd/internal/repository/memory"
)

func addDirectCoverage(t *testing.T, f *fixture) (models.CoverageRecord, error) {
	t.Helper()
	return f.svc.AddCoverageToSeason(f.ctx, "s1", models.CoverageRecord{
		CowID: "cow-204", Date: day(2024, 1, 10), Attempt: models.Attempt{BullName: "Touro A"},
	})
}

func TestService_FailedCommitRestoresStoreState(t *testing.T) {
	rec := newRecordingMetrics()
	f := coverageFixture(t)
	f.svc.metrics = rec
	f.store.FailNextCommits(1, nil)

	_, err := addDirectCoverage(t, f)
	require.Error(t, err)
	assert.ErrorIs(t, err, memory.ErrInjected)
	var partial *repository.PartialCommitError
	require.ErrorAs(t, err, &partial)
	assert.Zero(t, partial.Report.CommittedOps)

	assert.Empty(t, f.season("s1").Coverages)
	assert.Empty(t, f.animal("cow-204").Pregnancies)
	assert.Equal(t, 1, rec.failures["add_coverage"])
	assert.Equal(t, 1, rec.resyncOK)

	_, err = addDirectCoverage(t, f)
	require.NoError(t, err)
	assert.Len(t, f.season("s1").Coverages, 1)
}

func TestService_PartialCommitResyncsToWhatReachedTheStore(t *testing.T) {
	rec := newRecordingMetrics()
	f := coverageFixture(t)
	f.svc.batchSize = 1
	f.svc.metrics = rec
	f.store.FailCommitAfter(1, nil)

	_, err := addDirectCoverage(t, f)
	require.ErrorIs(t, err, memory.ErrInjected)
	var partial *repository.PartialCommitError
	require.ErrorAs(t, err, &partial)
	assert.Equal(t, 2, partial.Report.Chunks)
	assert.Equal(t, 1, partial.Report.CommittedChunks)
	assert.Equal(t, 1, partial.Report.CommittedOps)
	assert.True(t, partial.Report.Partial())

	// animals are written before seasons, so only the dam made it
	assert.Len(t, f.animal("cow-204").Pregnancies, 1)
	assert.Empty(t, f.season("s1").Coverages)
	assert.Equal(t, 1, rec.failures["add_coverage"])
	assert.Equal(t, 1, rec.resyncOK)
}

func TestService_TimestampsMatchStorePrecision(t *testing.T) {
	f := coverageFixture(t)
	f.now = time.Date(2024, 2, 1, 0, 0, 0, 123456789, time.UTC)

	name := "Mimosa"
	_, err := f.svc.UpdateAnimal(f.ctx, "cow-204", models.AnimalPatch{Name: &name})
	require.NoError(t, err)

	persisted, err := f.reloaded().Animal("cow-204")
	require.NoError(t, err)
	got := f.animal("cow-204").UpdatedAt
	assert.True(t, persisted.UpdatedAt.Equal(got), "snapshot %s, store %s", got, persisted.UpdatedAt)
	assert.Equal(t, 123000000, got.Nanosecond())
}

func TestService_StaysStaleUntilStoreRecovers(t *testing.T) {
	f := coverageFixture(t)
	f.store.FailNextCommits(1, nil)
	f.store.FailNextLoads(2, nil)

	_, err := addDirectCoverage(t, f)
	require.ErrorIs(t, err, memory.ErrInjected)
	assert.Empty(t, f.svc.Animals(), "snapshot is discarded when the reload fails")

	_, err = addDirectCoverage(t, f)
	require.ErrorIs(t, err, ErrStale)
	assert.Zero(t, f.commits())

	_, err = addDirectCoverage(t, f)
	require.NoError(t, err)
	assert.Len(t, f.svc.Animals(), 3)
	assert.Len(t, f.reloaded().Seasons()[0].Coverages, 1)
}

func TestService_QuotaRefusesBeforeWriting(t *testing.T) {
	tracker := quota.NewMemoryTracker(1)
	f := coverageFixture(t)
	f.svc.quota = tracker

	_, err := addDirectCoverage(t, f)
	require.ErrorIs(t, err, quota.ErrQuotaExceeded)
	assert.Zero(t, f.commits())
	assert.Empty(t, f.season("s1").Coverages)

	left, err := tracker.Remaining(f.ctx, testOwner)
	require.NoError(t, err)
	assert.Equal(t, 1, left)

	_, err = f.svc.AddWeightEntry(f.ctx, "cow-204", models.WeightEntry{Date: day(2024, 1, 30), Weight: 400})
	require.NoError(t, err)
	left, err = tracker.Remaining(f.ctx, testOwner)
	require.NoError(t, err)
	assert.Zero(t, left)
}

func TestService_CommitsInChunks(t *testing.T) {
	rec := newRecordingMetrics()
	f := coverageFixture(t)
	f.svc.batchSize = 1
	f.svc.metrics = rec

	_, err := addDirectCoverage(t, f)
	require.NoError(t, err)

	commits, _, ops := f.store.Stats()
	assert.Equal(t, 2, commits, "dam and season are written in separate chunks")
	assert.Equal(t, 2, ops)
	assert.Equal(t, 2, rec.committed["add_coverage"])
}

func TestService_NoopOperationWritesNothing(t *testing.T) {
	f := coverageFixture(t)
	name := "Estacao s1"
	_, err := f.svc.UpdateBreedingSeason(f.ctx, "s1", models.SeasonPatch{Name: &name})
	require.NoError(t, err)
	// the first edit only fills in metrics left empty by the seed
	before := f.commits()

	_, err = f.svc.UpdateBreedingSeason(f.ctx, "s1", models.SeasonPatch{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, before, f.commits())
}

func TestService_ReadsReturnCopies(t *testing.T) {
	f := coverageFixture(t)
	_, err := addDirectCoverage(t, f)
	require.NoError(t, err)

	a, err := f.svc.Animal("cow-204")
	require.NoError(t, err)
	a.Pregnancies[0].SireName = "mutated"
	a.Tag = "mutated"

	s := f.svc.Seasons()
	s[0].Coverages[0].BullName = "mutated"

	assert.Equal(t, "204", f.animal("cow-204").Tag)
	assert.Equal(t, "Touro A", f.animal("cow-204").Pregnancies[0].SireName)
	assert.Equal(t, "Touro A", f.season("s1").Coverages[0].BullName)
}

func TestService_LoadFailure(t *testing.T) {
	store := memory.New()
	boom := errors.New("boom")
	store.FailNextLoads(1, boom)

	svc := NewService(store, Options{OwnerID: testOwner})
	require.ErrorIs(t, svc.Load(context.Background()), boom)

	_, err := svc.Animal("x")
	assert.ErrorIs(t, err, models.ErrAnimalNotFound)
	require.NoError(t, svc.Load(context.Background()))
}
