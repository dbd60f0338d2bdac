package repository

import (
	"context"
	"errors"

	"github.com/mamadbah2/herd/internal/domain/models"
)

// Collection names the document collections of the herd book.
type Collection string

const (
	CollectionAnimals Collection = "animals"
	CollectionSeasons Collection = "breeding_seasons"
)

// MaxBatchOps is the write-count limit of one backend transaction.
const MaxBatchOps = 499

// HistoryDateKey is the element field history arrays are ordered by.
const HistoryDateKey = "date"

// ErrDocumentNotFound is returned by ArrayAppend when the target is missing.
var ErrDocumentNotFound = errors.New("document not found")

// OpKind is the kind of write applied to one document.
type OpKind string

const (
	OpCreate OpKind = "create"
	OpUpdate OpKind = "update"
	OpDelete OpKind = "delete"
)

// Op is a single document write. Doc is nil for deletes.
type Op struct {
	Kind       OpKind
	Collection Collection
	ID         string
	Doc        any
}

// Store is the persistence collaborator of the herd service.
type Store interface {
	// LoadAnimals returns every animal owned by ownerID.
	LoadAnimals(ctx context.Context, ownerID string) ([]models.Animal, error)
	// LoadSeasons returns every breeding season owned by ownerID.
	LoadSeasons(ctx context.Context, ownerID string) ([]models.BreedingSeason, error)
	// Commit applies ops atomically. Callers never pass more than MaxBatchOps.
	Commit(ctx context.Context, ops []Op) error
	// ArrayAppend pushes one value onto an array field of a document and keeps
	// the array ordered by the HistoryDateKey of its elements.
	ArrayAppend(ctx context.Context, coll Collection, docID, field string, value any) error
}
