package mongo

import (
	"context"
	"errors"
	"time"

	"alcyxob/runplan/internal/domain"
	"alcyxob/runplan/internal/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const raceCollectionName = "races"

// mongoRaceRepository implements repository.RaceRepository
type mongoRaceRepository struct {
	collection *mongo.Collection
}

// NewMongoRaceRepository creates a new Race repository.
func NewMongoRaceRepository(db *mongo.Database) repository.RaceRepository {
	return &mongoRaceRepository{
		collection: db.Collection(raceCollectionName),
	}
}

// GetByID retrieves a race by its ID.
func (r *mongoRaceRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Race, error) {
	var race domain.Race
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&race)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &race, nil
}

// LinkPlan attaches a plan to a race that has none yet.
func (r *mongoRaceRepository) LinkPlan(ctx context.Context, raceID, planID primitive.ObjectID, status domain.RaceStatus) error {
	filter := bson.M{
		"_id": raceID,
		"$or": bson.A{
			bson.M{"trainingPlanId": bson.M{"$exists": false}},
			bson.M{"trainingPlanId": nil},
		},
	}
	update := bson.M{"$set": bson.M{
		"trainingPlanId": planID,
		"status":         status,
		"updatedAt":      time.Now().UTC(),
	}}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		// Either gone or already linked; tell them apart for the caller.
		if _, err := r.GetByID(ctx, raceID); err != nil {
			return err
		}
		return repository.ErrUpdateFailed
	}
	return nil
}

// UpdateStatus moves the race to a new lifecycle status.
func (r *mongoRaceRepository) UpdateStatus(ctx context.Context, raceID primitive.ObjectID, status domain.RaceStatus) error {
	update := bson.M{"$set": bson.M{"status": status, "updatedAt": time.Now().UTC()}}
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": raceID}, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// EnsureRaceIndexes creates necessary indexes. Call during startup.
func EnsureRaceIndexes(ctx context.Context, collection *mongo.Collection) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "raceDate", Value: 1}},
			Options: options.Index(),
		},
	}
	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return err
}
