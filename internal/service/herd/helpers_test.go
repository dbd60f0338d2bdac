package herd

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mamadbah2/herd/internal/domain/models"
	"github.com/mamadbah2/herd/internal/repository/memory"
)

const testOwner = "owner-1"

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func cow(id, tag string) models.Animal {
	return models.Animal{ID: id, OwnerID: testOwner, Tag: tag, Sex: models.SexFemale, Status: models.StatusActive}
}

func bullAnimal(id, tag string) models.Animal {
	return models.Animal{ID: id, OwnerID: testOwner, Tag: tag, Sex: models.SexMale, Status: models.StatusActive}
}

func calfOf(id, tag, damTag string, born time.Time) models.Animal {
	return models.Animal{
		ID: id, OwnerID: testOwner, Tag: tag, Sex: models.SexMale, Status: models.StatusActive,
		BirthDate: models.DatePtr(born), MotherName: damTag,
	}
}

func fivCalf(id, tag, recipientTag, donorTag string, born time.Time) models.Animal {
	return models.Animal{
		ID: id, OwnerID: testOwner, Tag: tag, Sex: models.SexFemale, Status: models.StatusActive,
		BirthDate: models.DatePtr(born), IsFIV: true, RecipientName: recipientTag, DonorName: donorTag,
	}
}

func breedingSeason(id string, start, end time.Time, exposed ...string) models.BreedingSeason {
	return models.BreedingSeason{ID: id, OwnerID: testOwner, Name: "Estacao " + id, StartDate: start, EndDate: end, ExposedCowIDs: exposed}
}

// seededCoverage builds a coverage as it would sit in the store.
func seededCoverage(id, cowID, cowTag string, date time.Time, result models.DiagnosisResult) models.CoverageRecord {
	c := models.CoverageRecord{ID: id, CowID: cowID, CowTag: cowTag, Date: date, Type: models.BreedingNatural}
	c.BullName = "Touro A"
	c.PregnancyResult = result
	c.RecomputeExpected()
	return c
}

type recordingMetrics struct {
	mu         sync.Mutex
	sweeps     []models.SweepResult
	committed  map[string]int
	failures   map[string]int
	resyncOK   int
	resyncFail int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{committed: map[string]int{}, failures: map[string]int{}}
}

func (m *recordingMetrics) SweepCompleted(r models.SweepResult, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sweeps = append(m.sweeps, r)
}

func (m *recordingMetrics) OpsCommitted(op string, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.committed[op] += n
}

func (m *recordingMetrics) CommitFailed(op string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[op]++
}

func (m *recordingMetrics) Resynced(ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ok {
		m.resyncOK++
	} else {
		m.resyncFail++
	}
}

type fixture struct {
	t     *testing.T
	ctx   context.Context
	store *memory.Store
	svc   *Service
	opts  Options
	now   time.Time
}

func newFixture(t *testing.T, now time.Time, animals []models.Animal, seasons []models.BreedingSeason, configure ...func(*Options)) *fixture {
	t.Helper()

	store := memory.New()
	require.NoError(t, store.SeedAnimals(animals...))
	require.NoError(t, store.SeedSeasons(seasons...))

	f := &fixture{t: t, ctx: context.Background(), store: store, now: now}
	seq := 0
	f.opts = Options{
		OwnerID: testOwner,
		Logger:  zap.NewNop(),
		Now:     func() time.Time { return f.now },
		NewID: func() string {
			seq++
			return fmt.Sprintf("id-%d", seq)
		},
	}
	for _, c := range configure {
		c(&f.opts)
	}

	f.svc = NewService(store, f.opts)
	require.NoError(t, f.svc.Load(f.ctx))
	return f
}

// animal returns a copy of the animal as the service currently sees it.
func (f *fixture) animal(id string) *models.Animal {
	f.t.Helper()
	a, err := f.svc.Animal(id)
	require.NoError(f.t, err)
	return &a
}

func (f *fixture) season(id string) models.BreedingSeason {
	f.t.Helper()
	s, err := f.svc.Season(id)
	require.NoError(f.t, err)
	return s
}

func (f *fixture) coverage(seasonID, coverageID string) models.CoverageRecord {
	f.t.Helper()
	s := f.season(seasonID)
	c := s.Coverage(coverageID)
	require.NotNil(f.t, c, "coverage %s", coverageID)
	return *c
}

// reloaded returns a fresh service over the same store, proving what was
// actually persisted.
func (f *fixture) reloaded() *Service {
	f.t.Helper()
	svc := NewService(f.store, f.opts)
	require.NoError(f.t, svc.Load(f.ctx))
	return svc
}

func (f *fixture) commits() int {
	commits, _, _ := f.store.Stats()
	return commits
}

func assertDay(t *testing.T, want time.Time, got *time.Time) {
	t.Helper()
	if assert.NotNil(t, got) {
		assert.True(t, want.Equal(*got), "want %s, got %s", want.Format("2006-01-02"), got.Format("2006-01-02"))
	}
}
