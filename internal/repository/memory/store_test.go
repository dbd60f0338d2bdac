package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/herd/internal/domain/models"
	"github.com/mamadbah2/herd/internal/repository"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func seededStore(t *testing.T) *Store {
	t.Helper()
	s := New()
	require.NoError(t, s.SeedAnimals(models.Animal{ID: "cow-204", OwnerID: "owner-1", Tag: "204", Sex: models.SexFemale}))
	return s
}

func TestArrayAppend_KeepsHistoryOrderedByDate(t *testing.T) {
	ctx := context.Background()
	s := seededStore(t)

	for _, e := range []models.WeightEntry{
		{ID: "w-mar", Date: day(2024, 3, 1), Weight: 420},
		{ID: "w-jan", Date: day(2024, 1, 1), Weight: 380},
		{ID: "w-jan-2", Date: day(2024, 1, 1), Weight: 381},
		{ID: "w-feb", Date: day(2024, 2, 1), Weight: 400},
	} {
		require.NoError(t, s.ArrayAppend(ctx, repository.CollectionAnimals, "cow-204", "historicoPesagens", e))
	}

	animals, err := s.LoadAnimals(ctx, "owner-1")
	require.NoError(t, err)
	require.Len(t, animals, 1)
	var ids []string
	for _, w := range animals[0].Weights {
		ids = append(ids, w.ID)
	}
	assert.Equal(t, []string{"w-jan", "w-jan-2", "w-feb", "w-mar"}, ids)
}

func TestArrayAppend_MissingDocument(t *testing.T) {
	s := seededStore(t)
	err := s.ArrayAppend(context.Background(), repository.CollectionAnimals, "ghost", "historicoPesagens", models.WeightEntry{})
	assert.ErrorIs(t, err, repository.ErrDocumentNotFound)
}

func TestFailCommitAfter_LetsEarlierCommitsThrough(t *testing.T) {
	ctx := context.Background()
	s := seededStore(t)
	s.FailCommitAfter(1, nil)

	op := func(id string) []repository.Op {
		return []repository.Op{{
			Kind: repository.OpCreate, Collection: repository.CollectionAnimals, ID: id,
			Doc: models.Animal{ID: id, OwnerID: "owner-1", Tag: id, Sex: models.SexMale},
		}}
	}
	require.NoError(t, s.Commit(ctx, op("calf-1")))
	assert.ErrorIs(t, s.Commit(ctx, op("calf-2")), ErrInjected)
	require.NoError(t, s.Commit(ctx, op("calf-3")))

	animals, err := s.LoadAnimals(ctx, "owner-1")
	require.NoError(t, err)
	assert.Len(t, animals, 3)
	commits, _, ops := s.Stats()
	assert.Equal(t, 2, commits)
	assert.Equal(t, 2, ops)
}
