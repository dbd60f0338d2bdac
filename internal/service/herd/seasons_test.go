package herd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/herd/internal/domain/models"
)

func TestCreateBreedingSeason_RegistersCoverages(t *testing.T) {
	now := day(2024, 2, 1)
	f := newFixture(t, now, []models.Animal{cow("cow-204", "204"), cow("cow-205", "205")}, nil)

	cov := models.CoverageRecord{CowTag: "204", Date: day(2024, 1, 10)}
	cov.BullName = "Touro A"
	cov.PregnancyResult = models.DiagnosisPositive

	season, err := f.svc.CreateBreedingSeason(f.ctx, models.BreedingSeason{
		Name:          "Estacao 2024",
		StartDate:     day(2023, 12, 1),
		EndDate:       day(2024, 3, 31),
		ExposedCowIDs: []string{" cow-204 ", "cow-204", "cow-205", ""},
		Coverages:     []models.CoverageRecord{cov},
	})
	require.NoError(t, err)

	assert.Equal(t, "id-1", season.ID)
	assert.Equal(t, testOwner, season.OwnerID)
	assert.True(t, now.Equal(season.CreatedAt))
	assert.Equal(t, []string{"cow-204", "cow-205"}, season.ExposedCowIDs)
	require.Len(t, season.Coverages, 1)
	assert.Equal(t, "id-2", season.Coverages[0].ID)
	assert.Equal(t, "cow-204", season.Coverages[0].CowID)
	assertDay(t, day(2024, 10, 19), season.Coverages[0].ExpectedCalving)

	assert.Equal(t, models.SeasonMetrics{
		TotalExposed: 2, TotalCovered: 1, TotalPregnant: 1,
		PregnancyRate: 0.5, ServiceRate: 0.5, ConceptionRate: 1,
	}, season.Metrics)

	rec := f.animal("cow-204").Pregnancy("id-2")
	require.NotNil(t, rec)
	assert.Equal(t, models.DiagnosisPositive, rec.Result)

	persisted, err := f.reloaded().Season("id-1")
	require.NoError(t, err)
	assert.Len(t, persisted.Coverages, 1)
}

func TestCreateBreedingSeason_Validation(t *testing.T) {
	f := newFixture(t, day(2024, 2, 1), []models.Animal{cow("cow-204", "204")},
		[]models.BreedingSeason{breedingSeason("s1", day(2023, 12, 1), day(2024, 3, 31))})

	cases := map[string]models.BreedingSeason{
		"missing name":      {StartDate: day(2023, 12, 1), EndDate: day(2024, 3, 31)},
		"missing dates":     {Name: "X"},
		"ends before start": {Name: "X", StartDate: day(2024, 3, 31), EndDate: day(2023, 12, 1)},
		"duplicate id":      breedingSeason("s1", day(2023, 12, 1), day(2024, 3, 31)),
		"coverage with no dam": {
			Name: "X", StartDate: day(2023, 12, 1), EndDate: day(2024, 3, 31),
			Coverages: []models.CoverageRecord{{Date: day(2024, 1, 10)}},
		},
	}
	for name, s := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.svc.CreateBreedingSeason(f.ctx, s)
			assert.ErrorIs(t, err, models.ErrInvalidInput)
		})
	}
	assert.Zero(t, f.commits())
	assert.Len(t, f.svc.Seasons(), 1)
}

func TestUpdateBreedingSeason_RefreshesMetrics(t *testing.T) {
	s1 := withCoverages(breedingSeason("s1", day(2023, 12, 1), day(2024, 3, 31), "cow-204"),
		seededCoverage("c1", "cow-204", "204", day(2024, 1, 10), models.DiagnosisPositive))
	f := newFixture(t, day(2024, 2, 1), []models.Animal{cow("cow-204", "204")}, []models.BreedingSeason{s1})

	name := "Estacao renomeada"
	end := day(2024, 4, 30)
	got, err := f.svc.UpdateBreedingSeason(f.ctx, "s1", models.SeasonPatch{
		Name: &name, EndDate: &end, ExposedCowIDs: []string{"cow-204", "cow-205", "cow-206", "cow-207"},
	})
	require.NoError(t, err)
	assert.Equal(t, name, got.Name)
	assert.True(t, end.Equal(got.EndDate))
	assert.Equal(t, 4, got.Metrics.TotalExposed)
	assert.Equal(t, 0.25, got.Metrics.PregnancyRate)
	assert.Equal(t, 0.25, got.Metrics.ServiceRate)

	start := day(2024, 6, 1)
	_, err = f.svc.UpdateBreedingSeason(f.ctx, "s1", models.SeasonPatch{StartDate: &start})
	assert.ErrorIs(t, err, models.ErrInvalidInput)
	_, err = f.svc.UpdateBreedingSeason(f.ctx, "ghost", models.SeasonPatch{Name: &name})
	assert.ErrorIs(t, err, models.ErrSeasonNotFound)
}

func TestDeleteBreedingSeason_RemovesDerivedRecords(t *testing.T) {
	f := coverageFixture(t)
	direct, err := f.svc.AddCoverageToSeason(f.ctx, "s1", models.CoverageRecord{
		CowID: "cow-204", Date: day(2024, 1, 10),
		Attempt: models.Attempt{BullName: "Touro A", PregnancyResult: models.DiagnosisPositive},
		Repasse: &models.Repasse{Enabled: true, StartDate: models.DatePtr(day(2024, 2, 20)), Attempt: models.Attempt{BullName: "Touro B"}},
	})
	require.NoError(t, err)
	require.NoError(t, f.svc.UpdatePregnancyDiagnosis(f.ctx, "s1", direct.ID, models.DiagnosisUpdate{Result: models.DiagnosisNegative}))
	fiv, err := f.svc.AddCoverageToSeason(f.ctx, "s1", models.CoverageRecord{
		CowID: "cow-204", Date: day(2024, 1, 20), Type: models.BreedingFIV,
		DonorCowID: "donor-1", Attempt: models.Attempt{BullName: "Touro A"},
	})
	require.NoError(t, err)

	dam := f.animal("cow-204")
	require.True(t, dam.HasPregnancy(direct.ID))
	require.True(t, dam.HasPregnancy("repasse_"+direct.ID))
	require.True(t, dam.HasAbortion("abort_"+direct.ID))
	require.NotNil(t, f.animal("donor-1").Offspring("fiv_"+fiv.ID))

	require.NoError(t, f.svc.DeleteBreedingSeason(f.ctx, "s1"))

	dam = f.animal("cow-204")
	assert.Empty(t, dam.Pregnancies)
	assert.Empty(t, dam.Abortions)
	assert.Empty(t, f.animal("donor-1").Progeny)
	_, err = f.svc.Season("s1")
	assert.ErrorIs(t, err, models.ErrSeasonNotFound)

	reloaded := f.reloaded()
	assert.Empty(t, reloaded.Seasons())
	assert.ErrorIs(t, f.svc.DeleteBreedingSeason(f.ctx, "s1"), models.ErrSeasonNotFound)
}

func TestSeasons_NewestFirst(t *testing.T) {
	f := newFixture(t, day(2024, 2, 1), nil, []models.BreedingSeason{
		breedingSeason("old", day(2022, 12, 1), day(2023, 3, 31)),
		breedingSeason("new", day(2023, 12, 1), day(2024, 3, 31)),
	})
	seasons := f.svc.Seasons()
	require.Len(t, seasons, 2)
	assert.Equal(t, "new", seasons[0].ID)
	assert.Equal(t, "old", seasons[1].ID)
}
