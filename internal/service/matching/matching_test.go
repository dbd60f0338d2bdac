package matching

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/herd/internal/domain/models"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func born(s string) *time.Time {
	t := day(s)
	return &t
}

func TestFindBestMatch_PicksClosestBirthInsideWindow(t *testing.T) {
	population := []models.Animal{
		{ID: "far", Tag: "900", MotherName: "204", BirthDate: born("2024-11-15")},
		{ID: "near", Tag: "901", MotherName: " 204 ", BirthDate: born("2024-10-25")},
		{ID: "outside", Tag: "902", MotherName: "204", BirthDate: born("2025-01-30")},
		{ID: "other-dam", Tag: "903", MotherName: "205", BirthDate: born("2024-10-19")},
	}

	c := CriteriaFor(models.AnimalRef{ID: "d1", Tag: "204"}, models.BreedingNatural, models.AnimalRef{}, day("2024-10-19"), 30, nil)
	got, ok := FindBestMatch(population, c)

	require.True(t, ok)
	assert.Equal(t, "near", got.ID)
}

func TestFindBestMatch_WindowIsInclusive(t *testing.T) {
	population := []models.Animal{{ID: "edge", MotherID: "d1", BirthDate: born("2024-11-18")}}

	c := CriteriaFor(models.AnimalRef{ID: "d1"}, models.BreedingAI, models.AnimalRef{}, day("2024-10-19"), 30, nil)
	_, ok := FindBestMatch(population, c)
	assert.True(t, ok)

	c.ToleranceDays = 29
	_, ok = FindBestMatch(population, c)
	assert.False(t, ok)
}

func TestFindBestMatch_SkipsExcludedAndUndated(t *testing.T) {
	population := []models.Animal{
		{ID: "claimed", MotherID: "d1", BirthDate: born("2024-10-19")},
		{ID: "undated", MotherID: "d1"},
		{ID: "free", MotherID: "d1", BirthDate: born("2024-10-30")},
	}

	c := CriteriaFor(models.AnimalRef{ID: "d1"}, models.BreedingNatural, models.AnimalRef{}, day("2024-10-19"), 30,
		map[string]struct{}{"claimed": {}})
	got, ok := FindBestMatch(population, c)

	require.True(t, ok)
	assert.Equal(t, "free", got.ID)
}

func TestFindBestMatch_ModesAreMutuallyExclusive(t *testing.T) {
	// Both calves name tag 204 as their dam: one directly, one as recipient
	// with the direct field also filled in.
	population := []models.Animal{
		{ID: "direct", MotherName: "204", BirthDate: born("2024-10-19")},
		{ID: "embryo", MotherName: "204", RecipientName: "204", DonorName: "D7", IsFIV: true, BirthDate: born("2024-10-19")},
	}
	dam := models.AnimalRef{Tag: "204"}

	got, ok := FindBestMatch(population, CriteriaFor(dam, models.BreedingNatural, models.AnimalRef{}, day("2024-10-19"), 10, nil))
	require.True(t, ok)
	assert.Equal(t, "direct", got.ID)

	got, ok = FindBestMatch(population, CriteriaFor(dam, models.BreedingFIV, models.AnimalRef{}, day("2024-10-19"), 10, nil))
	require.True(t, ok)
	assert.Equal(t, "embryo", got.ID)

	only := population[:1]
	_, ok = FindBestMatch(only, CriteriaFor(dam, models.BreedingFIV, models.AnimalRef{}, day("2024-10-19"), 10, nil))
	assert.False(t, ok, "a direct calf must never satisfy an FIV coverage")
}

func TestFindBestMatch_FIVInfersFromRecipientAndChecksDonor(t *testing.T) {
	population := []models.Animal{
		{ID: "wrong-donor", RecipientID: "r1", DonorName: "D1", BirthDate: born("2024-10-19")},
		{ID: "right-donor", RecipientID: "r1", DonorName: "d2 ", BirthDate: born("2024-10-22")},
	}

	c := CriteriaFor(models.AnimalRef{ID: "r1"}, models.BreedingFIV, models.AnimalRef{Tag: "D2"}, day("2024-10-19"), 10, nil)
	got, ok := FindBestMatch(population, c)

	require.True(t, ok)
	assert.Equal(t, "right-donor", got.ID)
}

func TestFindBestMatch_TieKeepsPopulationOrder(t *testing.T) {
	population := []models.Animal{
		{ID: "before", MotherID: "d1", BirthDate: born("2024-10-16")},
		{ID: "after", MotherID: "d1", BirthDate: born("2024-10-22")},
	}
	got, ok := FindBestMatch(population, CriteriaFor(models.AnimalRef{ID: "d1"}, models.BreedingNatural, models.AnimalRef{}, day("2024-10-19"), 10, nil))
	require.True(t, ok)
	assert.Equal(t, "before", got.ID)
}

func TestChildrenBornBetween_AcceptsBothModes(t *testing.T) {
	population := []models.Animal{
		{ID: "direct", MotherID: "d1", BirthDate: born("2024-10-01")},
		{ID: "embryo", RecipientID: "d1", BirthDate: born("2024-10-05")},
		{ID: "late", MotherID: "d1", BirthDate: born("2025-03-01")},
		{ID: "stranger", MotherID: "d2", BirthDate: born("2024-10-01")},
	}

	got := ChildrenBornBetween(population, models.AnimalRef{ID: "d1"}, day("2024-09-01"), day("2024-12-31"), nil)

	ids := make([]string, 0, len(got))
	for _, a := range got {
		ids = append(ids, a.ID)
	}
	assert.Equal(t, []string{"direct", "embryo"}, ids)
}

func TestResolveAnimalReference(t *testing.T) {
	population := []models.Animal{
		{ID: "bull", Tag: "204", Sex: models.SexMale},
		{ID: "cow", Tag: "204", Sex: models.SexFemale},
		{ID: "x", Tag: "300", Sex: models.SexFemale},
	}

	tests := []struct {
		name   string
		ref    models.AnimalRef
		sex    models.Sex
		wantID string
		found  bool
	}{
		{name: "id wins over tag", ref: models.AnimalRef{ID: "x", Tag: "204"}, sex: models.SexFemale, wantID: "x", found: true},
		{name: "tag filtered by sex", ref: models.AnimalRef{Tag: " 204"}, sex: models.SexFemale, wantID: "cow", found: true},
		{name: "tag without sex takes first", ref: models.AnimalRef{Tag: "204"}, wantID: "bull", found: true},
		{name: "stale id falls back to tag", ref: models.AnimalRef{ID: "gone", Tag: "300"}, sex: models.SexFemale, wantID: "x", found: true},
		{name: "nothing", ref: models.AnimalRef{ID: "gone"}, found: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ResolveAnimalReference(population, tt.ref, tt.sex)
			assert.Equal(t, tt.found, ok)
			if tt.found {
				assert.Equal(t, tt.wantID, got.ID)
			}
		})
	}
}
