// internal/repository/mongo/training_plan_repo.go
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

const trainingPlanCollectionName = "training_plans"

// mongoTrainingPlanRepository implements repository.TrainingPlanRepository
type mongoTrainingPlanRepository struct {
	collection *mongo.Collection
}

// NewMongoTrainingPlanRepository creates a new TrainingPlan repository.
func NewMongoTrainingPlanRepository(db *mongo.Database) repository.TrainingPlanRepository {
	return &mongoTrainingPlanRepository{
		collection: db.Collection(trainingPlanCollectionName),
	}
}

// Create inserts a new training plan. A pre-allocated ID is kept so the days
// can reference the plan before it is written.
func (r *mongoTrainingPlanRepository) Create(ctx context.Context, plan *domain.TrainingPlan) (primitive.ObjectID, error) {
	if plan.UserID == primitive.NilObjectID || plan.RaceID == primitive.NilObjectID {
		return primitive.NilObjectID, errors.New("plan requires userId and raceId")
	}
	if plan.ID == primitive.NilObjectID {
		plan.ID = primitive.NewObjectID()
	}
	now := time.Now().UTC()
	plan.CreatedAt = now
	plan.UpdatedAt = now

	result, err := r.collection.InsertOne(ctx, plan)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return primitive.NilObjectID, repository.ErrDuplicateKey
		}
		return primitive.NilObjectID, err
	}
	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted plan ID")
	}
	return insertedID, nil
}

// GetByID retrieves a single training plan by its ID.
func (r *mongoTrainingPlanRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.TrainingPlan, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

// GetByRaceID returns the newest plan generated for a race.
func (r *mongoTrainingPlanRepository) GetByRaceID(ctx context.Context, raceID primitive.ObjectID) (*domain.TrainingPlan, error) {
	return r.findOne(ctx, bson.M{"raceId": raceID}, newestFirst())
}

// GetLatestForUser returns the newest active plan, falling back to the newest
// plan of any status.
func (r *mongoTrainingPlanRepository) GetLatestForUser(ctx context.Context, userID primitive.ObjectID) (*domain.TrainingPlan, error) {
	plan, err := r.findOne(ctx, bson.M{"userId": userID, "status": domain.PlanStatusActive}, newestFirst())
	if err == nil || !errors.Is(err, repository.ErrNotFound) {
		return plan, err
	}
	return r.findOne(ctx, bson.M{"userId": userID}, newestFirst())
}

func newestFirst() *options.FindOneOptions {
	return options.FindOne().SetSort(bson.D{{Key: "createdAt", Value: -1}})
}

func (r *mongoTrainingPlanRepository) findOne(ctx context.Context, filter bson.M, opts ...*options.FindOneOptions) (*domain.TrainingPlan, error) {
	var plan domain.TrainingPlan
	err := r.collection.FindOne(ctx, filter, opts...).Decode(&plan)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &plan, nil
}

// UpdateStatus sets the plan status. Setting the current status again is not an error.
func (r *mongoTrainingPlanRepository) UpdateStatus(ctx context.Context, id primitive.ObjectID, status domain.PlanStatus) error {
	update := bson.M{"$set": bson.M{"status": status, "updatedAt": time.Now().UTC()}}
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound // Plan with that ID didn't exist
	}
	// ModifiedCount can be 0 when the status was already set.
	return nil
}

// Delete removes a plan document. Its days are removed separately.
func (r *mongoTrainingPlanRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// EnsureTrainingPlanIndexes creates necessary indexes. Call during startup.
func EnsureTrainingPlanIndexes(ctx context.Context, collection *mongo.Collection) error {
	indexes := []mongo.IndexModel{
		{
			// One plan per race.
			Keys:    bson.D{{Key: "raceId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			// Latest plan for a user, optionally by status
			Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "status", Value: 1}, {Key: "createdAt", Value: -1}},
			Options: options.Index(),
		},
	}
	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return err
}
