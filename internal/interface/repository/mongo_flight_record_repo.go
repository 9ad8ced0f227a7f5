package repository

import (
	"context"
	"sync"

	"fare-crawler-service/internal/domain/entity"
	"fare-crawler-service/internal/domain/repository"
	"fare-crawler-service/pkg/logger"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoProvider hands out a connected database
type MongoProvider interface {
	Database(ctx context.Context) (*mongo.Database, error)
}

var _ repository.FlightRecordRepository = (*MongoFlightRecordRepository)(nil)

// MongoFlightRecordRepository implements FlightRecordRepository on a flights_raw collection
type MongoFlightRecordRepository struct {
	provider   MongoProvider
	collection string
	logger     logger.Logger

	indexOnce sync.Once
}

// NewMongoFlightRecordRepository creates a new flight record repository
func NewMongoFlightRecordRepository(provider MongoProvider, log logger.Logger) *MongoFlightRecordRepository {
	return &MongoFlightRecordRepository{
		provider:   provider,
		collection: "flights_raw",
		logger:     log.With("component", "mongo_flight_repo"),
	}
}

func (r *MongoFlightRecordRepository) ensureIndexes(ctx context.Context, collection *mongo.Collection) {
	r.indexOnce.Do(func() {
		// Compound index for looking up one search
		searchIndex := mongo.IndexModel{
			Keys: bson.D{
				{Key: "searchDeparture", Value: 1},
				{Key: "searchArrival", Value: 1},
				{Key: "searchDepartureDate", Value: 1},
			},
		}

		// Index on crawlTimestamp for time-range queries
		crawlIndex := mongo.IndexModel{
			Keys: bson.M{"crawlTimestamp": -1},
		}

		if _, err := collection.Indexes().CreateMany(ctx, []mongo.IndexModel{searchIndex, crawlIndex}); err != nil {
			r.logger.Warn("Failed to create indexes", "error", err)
		}
	})
}

// Ready connects to MongoDB if needed
func (r *MongoFlightRecordRepository) Ready(ctx context.Context) error {
	_, err := r.provider.Database(ctx)
	return err
}

// SaveBatch inserts the records with one ordered InsertMany
func (r *MongoFlightRecordRepository) SaveBatch(ctx context.Context, records []entity.FlightRecord) error {
	if len(records) == 0 {
		return nil
	}

	db, err := r.provider.Database(ctx)
	if err != nil {
		return err
	}
	collection := db.Collection(r.collection)
	r.ensureIndexes(ctx, collection)

	docs := make([]interface{}, 0, len(records))
	for _, record := range records {
		docs = append(docs, record)
	}

	_, err = collection.InsertMany(ctx, docs, options.InsertMany().SetOrdered(true))
	return err
}
