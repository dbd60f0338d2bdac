package repository_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/herd/internal/domain/models"
	"github.com/mamadbah2/herd/internal/repository"
	"github.com/mamadbah2/herd/internal/repository/memory"
)

func createOps(ids ...string) []repository.Op {
	ops := make([]repository.Op, 0, len(ids))
	for _, id := range ids {
		ops = append(ops, repository.Op{
			Kind: repository.OpCreate, Collection: repository.CollectionAnimals, ID: id,
			Doc: models.Animal{ID: id, OwnerID: "owner-1", Tag: id, Sex: models.SexFemale},
		})
	}
	return ops
}

func TestCommitChunked_ReportsEveryChunk(t *testing.T) {
	store := memory.New()

	report, err := repository.CommitChunked(context.Background(), store, createOps("a", "b", "c"), 2)
	require.NoError(t, err)
	assert.Equal(t, repository.CommitReport{TotalOps: 3, CommittedOps: 3, Chunks: 2, CommittedChunks: 2}, report)
	assert.False(t, report.Partial())
}

func TestCommitChunked_StopsAtFailedChunk(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	store.FailCommitAfter(1, nil)

	report, err := repository.CommitChunked(ctx, store, createOps("a", "b", "c"), 2)
	require.ErrorIs(t, err, memory.ErrInjected)
	var partial *repository.PartialCommitError
	require.ErrorAs(t, err, &partial)
	assert.Equal(t, report, partial.Report)
	assert.Equal(t, 2, report.CommittedOps)
	assert.Equal(t, 1, report.CommittedChunks)
	assert.True(t, report.Partial())
	assert.Contains(t, err.Error(), "chunk 2/2")

	animals, err := store.LoadAnimals(ctx, "owner-1")
	require.NoError(t, err)
	assert.Len(t, animals, 2)
}

func TestCommitReport_PartialNeedsProgress(t *testing.T) {
	assert.False(t, repository.CommitReport{Chunks: 2}.Partial())
	assert.False(t, repository.CommitReport{}.Partial())
}
