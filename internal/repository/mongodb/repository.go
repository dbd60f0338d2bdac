package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/mamadbah2/herd/internal/domain/models"
	"github.com/mamadbah2/herd/internal/repository"
)

var _ repository.Store = (*MongoDBRepository)(nil)

// MongoDBRepository implements repository.Store on MongoDB. Commits run inside
// a multi-document transaction, which requires a replica set or sharded
// cluster.
type MongoDBRepository struct {
	client *mongo.Client
	db     *mongo.Database
	logger *zap.Logger
}

// NewMongoDBRepository connects, pings and prepares the indexes.
func NewMongoDBRepository(ctx context.Context, uri string, dbName string, logger *zap.Logger) (*MongoDBRepository, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	clientOptions := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	// Ping the database to verify connection
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	repo := &MongoDBRepository{
		client: client,
		db:     client.Database(dbName),
		logger: logger,
	}
	if err := repo.ensureIndexes(ctx); err != nil {
		return nil, err
	}
	return repo, nil
}

func (r *MongoDBRepository) ensureIndexes(ctx context.Context) error {
	if _, err := r.collection(repository.CollectionAnimals).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "ownerId", Value: 1}, {Key: "brinco", Value: 1}}},
		{Keys: bson.D{{Key: "ownerId", Value: 1}, {Key: "maeId", Value: 1}}},
	}); err != nil {
		return fmt.Errorf("create animal indexes: %w", err)
	}
	if _, err := r.collection(repository.CollectionSeasons).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "ownerId", Value: 1}, {Key: "startDate", Value: -1}},
	}); err != nil {
		return fmt.Errorf("create season indexes: %w", err)
	}
	return nil
}

func (r *MongoDBRepository) collection(c repository.Collection) *mongo.Collection {
	return r.db.Collection(string(c))
}

// LoadAnimals returns every animal of the owner.
func (r *MongoDBRepository) LoadAnimals(ctx context.Context, ownerID string) ([]models.Animal, error) {
	cursor, err := r.collection(repository.CollectionAnimals).Find(ctx, bson.M{"ownerId": ownerID})
	if err != nil {
		return nil, fmt.Errorf("failed to query animals: %w", err)
	}
	var animals []models.Animal
	if err := cursor.All(ctx, &animals); err != nil {
		return nil, fmt.Errorf("failed to decode animals: %w", err)
	}
	return animals, nil
}

// LoadSeasons returns every breeding season of the owner, newest first.
func (r *MongoDBRepository) LoadSeasons(ctx context.Context, ownerID string) ([]models.BreedingSeason, error) {
	opts := options.Find().SetSort(bson.D{{Key: "startDate", Value: -1}})
	cursor, err := r.collection(repository.CollectionSeasons).Find(ctx, bson.M{"ownerId": ownerID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query breeding seasons: %w", err)
	}
	var seasons []models.BreedingSeason
	if err := cursor.All(ctx, &seasons); err != nil {
		return nil, fmt.Errorf("failed to decode breeding seasons: %w", err)
	}
	return seasons, nil
}

// Commit applies the ops in one transaction, grouped into one bulk write per
// collection.
func (r *MongoDBRepository) Commit(ctx context.Context, ops []repository.Op) error {
	if len(ops) == 0 {
		return nil
	}
	if len(ops) > repository.MaxBatchOps {
		return fmt.Errorf("commit %d ops: exceeds limit of %d", len(ops), repository.MaxBatchOps)
	}

	grouped, order, err := buildWriteModels(ops)
	if err != nil {
		return err
	}

	session, err := r.client.StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	started := time.Now()
	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		for _, coll := range order {
			writes := grouped[coll]
			if _, err := r.collection(coll).BulkWrite(sc, writes, options.BulkWrite().SetOrdered(true)); err != nil {
				return nil, fmt.Errorf("bulk write %s: %w", coll, err)
			}
		}
		return nil, nil
	})
	if err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	r.logger.Debug("transaction committed", zap.Int("ops", len(ops)), zap.Duration("duration", time.Since(started)))
	return nil
}

func buildWriteModels(ops []repository.Op) (map[repository.Collection][]mongo.WriteModel, []repository.Collection, error) {
	grouped := make(map[repository.Collection][]mongo.WriteModel)
	var order []repository.Collection

	for _, op := range ops {
		if op.ID == "" {
			return nil, nil, fmt.Errorf("%s on %s: empty document id", op.Kind, op.Collection)
		}
		var model mongo.WriteModel
		filter := bson.M{"_id": op.ID}
		switch op.Kind {
		case repository.OpCreate:
			model = mongo.NewInsertOneModel().SetDocument(op.Doc)
		case repository.OpUpdate:
			model = mongo.NewReplaceOneModel().SetFilter(filter).SetReplacement(op.Doc)
		case repository.OpDelete:
			model = mongo.NewDeleteOneModel().SetFilter(filter)
		default:
			return nil, nil, fmt.Errorf("unknown op kind %q", op.Kind)
		}
		if _, seen := grouped[op.Collection]; !seen {
			order = append(order, op.Collection)
		}
		grouped[op.Collection] = append(grouped[op.Collection], model)
	}
	return grouped, order, nil
}

// ArrayAppend pushes value onto field with a single $push that re-sorts the
// array by date.
func (r *MongoDBRepository) ArrayAppend(ctx context.Context, coll repository.Collection, docID, field string, value any) error {
	res, err := r.collection(coll).UpdateOne(ctx,
		bson.M{"_id": docID},
		bson.M{"$push": bson.M{field: bson.M{
			"$each": bson.A{value},
			"$sort": bson.M{repository.HistoryDateKey: 1},
		}}})
	if err != nil {
		return fmt.Errorf("failed to append to %s.%s: %w", coll, field, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("append %s/%s: %w", coll, docID, repository.ErrDocumentNotFound)
	}
	return nil
}

// Close closes the MongoDB connection.
func (r *MongoDBRepository) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}
