// Package memory provides an in-process repository.Store used by tests and
// local runs. Documents are kept BSON-encoded so every write goes through the
// same codec as the MongoDB store.
package memory

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/mamadbah2/herd/internal/domain/models"
	"github.com/mamadbah2/herd/internal/repository"
)

var _ repository.Store = (*Store)(nil)

// ErrInjected is the default failure returned by injected faults.
var ErrInjected = errors.New("memory store: injected failure")

type collectionState struct {
	docs  map[string][]byte
	order []string
}

func (c *collectionState) clone() *collectionState {
	out := &collectionState{
		docs:  make(map[string][]byte, len(c.docs)),
		order: append([]string(nil), c.order...),
	}
	for k, v := range c.docs {
		out.docs[k] = v
	}
	return out
}

func (c *collectionState) put(id string, raw []byte) {
	if _, ok := c.docs[id]; !ok {
		c.order = append(c.order, id)
	}
	c.docs[id] = raw
}

func (c *collectionState) remove(id string) {
	if _, ok := c.docs[id]; !ok {
		return
	}
	delete(c.docs, id)
	for i, v := range c.order {
		if v == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

// Store is a goroutine-safe in-memory document store.
type Store struct {
	mu          sync.Mutex
	collections map[repository.Collection]*collectionState

	passCommits int
	failCommits int
	failAppends int
	failLoads   int
	failErr     error

	commits int
	appends int
	ops     int
}

// New returns an empty store.
func New() *Store {
	return &Store{
		collections: map[repository.Collection]*collectionState{
			repository.CollectionAnimals: {docs: map[string][]byte{}},
			repository.CollectionSeasons: {docs: map[string][]byte{}},
		},
	}
}

// FailNextCommits makes the next n Commit calls fail with err (ErrInjected when nil).
func (s *Store) FailNextCommits(n int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.passCommits = 0
	s.failCommits = n
	s.failErr = err
}

// FailCommitAfter lets the next k Commit calls through and fails the one
// after them with err (ErrInjected when nil).
func (s *Store) FailCommitAfter(k int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.passCommits = k
	s.failCommits = 1
	s.failErr = err
}

// FailNextAppends makes the next n ArrayAppend calls fail.
func (s *Store) FailNextAppends(n int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failAppends = n
	s.failErr = err
}

// FailNextLoads makes the next n Load* calls fail.
func (s *Store) FailNextLoads(n int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failLoads = n
	s.failErr = err
}

// Stats returns the number of successful commits, appends and committed ops.
func (s *Store) Stats() (commits, appends, ops int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commits, s.appends, s.ops
}

// SeedAnimals writes animals directly, bypassing failure injection.
func (s *Store) SeedAnimals(animals ...models.Animal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range animals {
		a.Sanitize()
		raw, err := bson.Marshal(a)
		if err != nil {
			return fmt.Errorf("encode animal %s: %w", a.ID, err)
		}
		s.collections[repository.CollectionAnimals].put(a.ID, raw)
	}
	return nil
}

// SeedSeasons writes seasons directly, bypassing failure injection.
func (s *Store) SeedSeasons(seasons ...models.BreedingSeason) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, season := range seasons {
		season.Sanitize()
		raw, err := bson.Marshal(season)
		if err != nil {
			return fmt.Errorf("encode season %s: %w", season.ID, err)
		}
		s.collections[repository.CollectionSeasons].put(season.ID, raw)
	}
	return nil
}

// LoadAnimals implements repository.Store.
func (s *Store) LoadAnimals(ctx context.Context, ownerID string) ([]models.Animal, error) {
	var out []models.Animal
	err := s.load(ctx, repository.CollectionAnimals, func(raw []byte) error {
		var a models.Animal
		if err := bson.Unmarshal(raw, &a); err != nil {
			return err
		}
		if ownerID == "" || a.OwnerID == ownerID {
			out = append(out, a)
		}
		return nil
	})
	return out, err
}

// LoadSeasons implements repository.Store.
func (s *Store) LoadSeasons(ctx context.Context, ownerID string) ([]models.BreedingSeason, error) {
	var out []models.BreedingSeason
	err := s.load(ctx, repository.CollectionSeasons, func(raw []byte) error {
		var season models.BreedingSeason
		if err := bson.Unmarshal(raw, &season); err != nil {
			return err
		}
		if ownerID == "" || season.OwnerID == ownerID {
			out = append(out, season)
		}
		return nil
	})
	return out, err
}

func (s *Store) load(ctx context.Context, coll repository.Collection, decode func([]byte) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.injected(&s.failLoads); err != nil {
		return err
	}
	state := s.collections[coll]
	for _, id := range state.order {
		if err := decode(state.docs[id]); err != nil {
			return fmt.Errorf("decode %s/%s: %w", coll, id, err)
		}
	}
	return nil
}

// Commit implements repository.Store. All ops are applied or none is.
func (s *Store) Commit(ctx context.Context, ops []repository.Op) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(ops) > repository.MaxBatchOps {
		return fmt.Errorf("commit %d ops: exceeds limit of %d", len(ops), repository.MaxBatchOps)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.passCommits > 0 {
		s.passCommits--
	} else if err := s.injected(&s.failCommits); err != nil {
		return err
	}

	working := make(map[repository.Collection]*collectionState, len(s.collections))
	for k, v := range s.collections {
		working[k] = v.clone()
	}

	for _, op := range ops {
		state, ok := working[op.Collection]
		if !ok {
			return fmt.Errorf("commit: unknown collection %q", op.Collection)
		}
		switch op.Kind {
		case repository.OpCreate:
			if _, exists := state.docs[op.ID]; exists {
				return fmt.Errorf("create %s/%s: duplicate id", op.Collection, op.ID)
			}
			raw, err := bson.Marshal(op.Doc)
			if err != nil {
				return fmt.Errorf("encode %s/%s: %w", op.Collection, op.ID, err)
			}
			state.put(op.ID, raw)
		case repository.OpUpdate:
			if _, exists := state.docs[op.ID]; !exists {
				return fmt.Errorf("update %s/%s: %w", op.Collection, op.ID, repository.ErrDocumentNotFound)
			}
			raw, err := bson.Marshal(op.Doc)
			if err != nil {
				return fmt.Errorf("encode %s/%s: %w", op.Collection, op.ID, err)
			}
			state.put(op.ID, raw)
		case repository.OpDelete:
			state.remove(op.ID)
		default:
			return fmt.Errorf("commit: unknown op kind %q", op.Kind)
		}
	}

	s.collections = working
	s.commits++
	s.ops += len(ops)
	return nil
}

// ArrayAppend implements repository.Store.
func (s *Store) ArrayAppend(ctx context.Context, coll repository.Collection, docID, field string, value any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.injected(&s.failAppends); err != nil {
		return err
	}

	state, ok := s.collections[coll]
	if !ok {
		return fmt.Errorf("append: unknown collection %q", coll)
	}
	raw, ok := state.docs[docID]
	if !ok {
		return fmt.Errorf("append %s/%s: %w", coll, docID, repository.ErrDocumentNotFound)
	}

	var doc bson.D
	if err := bson.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("decode %s/%s: %w", coll, docID, err)
	}

	elem, err := toDocument(value)
	if err != nil {
		return fmt.Errorf("encode %s/%s.%s: %w", coll, docID, field, err)
	}

	found := false
	for i := range doc {
		if doc[i].Key != field {
			continue
		}
		found = true
		switch existing := doc[i].Value.(type) {
		case bson.A:
			doc[i].Value = sortByDate(append(existing, elem))
		case nil:
			doc[i].Value = bson.A{elem}
		default:
			return fmt.Errorf("append %s/%s: field %s is not an array", coll, docID, field)
		}
	}
	if !found {
		doc = append(doc, bson.E{Key: field, Value: bson.A{elem}})
	}

	updated, err := bson.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", coll, docID, err)
	}
	state.docs[docID] = updated
	s.appends++
	return nil
}

func toDocument(value any) (bson.D, error) {
	raw, err := bson.Marshal(value)
	if err != nil {
		return nil, err
	}
	var doc bson.D
	if err := bson.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// sortByDate orders array elements by their date key the way a $push with
// $sort does. Elements without a date come first.
func sortByDate(arr bson.A) bson.A {
	sort.SliceStable(arr, func(i, j int) bool { return dateOf(arr[i]) < dateOf(arr[j]) })
	return arr
}

func dateOf(elem any) primitive.DateTime {
	doc, ok := elem.(bson.D)
	if !ok {
		return math.MinInt64
	}
	for _, e := range doc {
		if e.Key == repository.HistoryDateKey {
			if d, ok := e.Value.(primitive.DateTime); ok {
				return d
			}
		}
	}
	return math.MinInt64
}

func (s *Store) injected(counter *int) error {
	if *counter <= 0 {
		return nil
	}
	*counter--
	if s.failErr != nil {
		return s.failErr
	}
	return ErrInjected
}
