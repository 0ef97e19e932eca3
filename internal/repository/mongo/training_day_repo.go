package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"alcyxob/runplan/internal/domain"
	"alcyxob/runplan/internal/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const trainingDayCollectionName = "training_days"

// mongoTrainingDayRepository implements repository.TrainingDayRepository
type mongoTrainingDayRepository struct {
	collection *mongo.Collection
}

// NewMongoTrainingDayRepository creates a new TrainingDay repository.
func NewMongoTrainingDayRepository(db *mongo.Database) repository.TrainingDayRepository {
	return &mongoTrainingDayRepository{
		collection: db.Collection(trainingDayCollectionName),
	}
}

// CreateMany inserts the days of a plan, in order, in one round trip.
func (r *mongoTrainingDayRepository) CreateMany(ctx context.Context, days []domain.TrainingDay) error {
	if len(days) == 0 {
		return nil
	}
	now := time.Now().UTC()
	docs := make([]interface{}, len(days))
	for i := range days {
		if days[i].ID == primitive.NilObjectID {
			days[i].ID = primitive.NewObjectID()
		}
		if days[i].UserID == primitive.NilObjectID {
			return errors.New("training day requires userId")
		}
		days[i].Date = domain.DateOnly(days[i].Date)
		days[i].CreatedAt = now
		days[i].UpdatedAt = now
		docs[i] = days[i]
	}

	// Ordered so the insert stops at the first collision.
	_, err := r.collection.InsertMany(ctx, docs, options.InsertMany().SetOrdered(true))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: %v", repository.ErrDuplicateKey, err)
		}
		return err
	}
	return nil
}

// DeleteByPlanID removes every day of a plan. Used to roll back a failed
// generation.
func (r *mongoTrainingDayRepository) DeleteByPlanID(ctx context.Context, planID primitive.ObjectID) (int64, error) {
	result, err := r.collection.DeleteMany(ctx, bson.M{"trainingPlanId": planID})
	if err != nil {
		return 0, err
	}
	return result.DeletedCount, nil
}

// PublishByPlanID makes the days of a committed generation visible.
func (r *mongoTrainingDayRepository) PublishByPlanID(ctx context.Context, planID primitive.ObjectID) (int64, error) {
	result, err := r.collection.UpdateMany(ctx,
		bson.M{"trainingPlanId": planID, "pending": true},
		bson.M{"$unset": bson.M{"pending": ""}})
	if err != nil {
		return 0, fmt.Errorf("%w: %v", repository.ErrUpdateFailed, err)
	}
	return result.ModifiedCount, nil
}

// GetByID retrieves a single training day by its ID.
func (r *mongoTrainingDayRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.TrainingDay, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

// GetByUserAndDate finds the day keyed by (userId, date); date is truncated to UTC midnight.
func (r *mongoTrainingDayRepository) GetByUserAndDate(ctx context.Context, userID primitive.ObjectID, date time.Time) (*domain.TrainingDay, error) {
	return r.findOne(ctx, bson.M{"userId": userID, "date": domain.DateOnly(date)})
}

// published restricts a filter to days whose generation has committed.
func published(filter bson.M) bson.M {
	filter["pending"] = bson.M{"$ne": true}
	return filter
}

func (r *mongoTrainingDayRepository) findOne(ctx context.Context, filter bson.M) (*domain.TrainingDay, error) {
	var day domain.TrainingDay
	err := r.collection.FindOne(ctx, published(filter)).Decode(&day)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &day, nil
}

// GetByPlanAndWeek returns the days of one plan week sorted by date. An
// empty slice is not an error.
func (r *mongoTrainingDayRepository) GetByPlanAndWeek(ctx context.Context, planID primitive.ObjectID, weekIndex int) ([]domain.TrainingDay, error) {
	filter := published(bson.M{"trainingPlanId": planID, "weekIndex": weekIndex})
	findOptions := options.Find().SetSort(bson.D{{Key: "date", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	days := []domain.TrainingDay{}
	if err = cursor.All(ctx, &days); err != nil {
		return nil, err
	}
	return days, nil
}

// UpdateActual replaces the actual block and, when given, the analysis
// block with a single $set so readers never see one without the other.
func (r *mongoTrainingDayRepository) UpdateActual(ctx context.Context, id primitive.ObjectID, version int64, actual domain.ActualWorkout, analysis *domain.Analysis) error {
	set := bson.M{
		"actual":    actual,
		"updatedAt": time.Now().UTC(),
	}
	if analysis != nil {
		set["analysis"] = *analysis
	}
	return r.updateOne(ctx, id, version, set)
}

// UpdateFeedback replaces the feedback block and, when given, the analysis block.
func (r *mongoTrainingDayRepository) UpdateFeedback(ctx context.Context, id primitive.ObjectID, version int64, feedback domain.Feedback, analysis *domain.Analysis) error {
	set := bson.M{
		"feedback":  feedback,
		"updatedAt": time.Now().UTC(),
	}
	if analysis != nil {
		set["analysis"] = *analysis
	}
	return r.updateOne(ctx, id, version, set)
}

// updateOne applies set only while the stored version matches, so two
// writers that read the same day cannot both commit an analysis.
func (r *mongoTrainingDayRepository) updateOne(ctx context.Context, id primitive.ObjectID, version int64, set bson.M) error {
	filter := published(bson.M{"_id": id, "version": version})
	update := bson.M{"$set": set, "$inc": bson.M{"version": 1}}
	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("%w: %v", repository.ErrUpdateFailed, err)
	}
	if result.MatchedCount > 0 {
		return nil
	}
	n, err := r.collection.CountDocuments(ctx, published(bson.M{"_id": id}))
	if err != nil {
		return fmt.Errorf("%w: %v", repository.ErrUpdateFailed, err)
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return repository.ErrVersionConflict
}

// Progress counts the non-rest days of a plan and how many were completed.
func (r *mongoTrainingDayRepository) Progress(ctx context.Context, planID primitive.ObjectID) (*domain.TrainingProgress, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: published(bson.M{
			"trainingPlanId": planID,
			"planned.type":   bson.M{"$ne": domain.WorkoutRest},
		})}},
		{{Key: "$group", Value: bson.M{
			"_id":            nil,
			"totalDays":      bson.M{"$sum": 1},
			"completedDays":  bson.M{"$sum": bson.M{"$cond": bson.A{"$actual.completed", 1, 0}}},
			"plannedMileage": bson.M{"$sum": "$planned.mileage"},
			"actualMileage":  bson.M{"$sum": bson.M{"$cond": bson.A{"$actual.completed", "$actual.mileage", 0}}},
		}}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var rows []domain.TrainingProgress
	if err = cursor.All(ctx, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return &domain.TrainingProgress{}, nil
	}
	return &rows[0], nil
}

// EnsureTrainingDayIndexes creates the (userId, date) uniqueness constraint
// and the plan/week lookup index.
func EnsureTrainingDayIndexes(ctx context.Context, collection *mongo.Collection) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "date", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_user_date"),
		},
		{
			Keys:    bson.D{{Key: "trainingPlanId", Value: 1}, {Key: "weekIndex", Value: 1}, {Key: "date", Value: 1}},
			Options: options.Index(),
		},
		{
			Keys:    bson.D{{Key: "raceId", Value: 1}},
			Options: options.Index(),
		},
	}
	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return err
}
