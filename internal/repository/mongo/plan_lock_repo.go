package mongo

import (
	"context"
	"time"

	"alcyxob/runplan/internal/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const planLockCollectionName = "plan_locks"

type planLock struct {
	Key       string    `bson:"_id"`
	Owner     string    `bson:"owner"`
	ExpiresAt time.Time `bson:"expiresAt"`
}

// mongoPlanLockRepository implements repository.PlanLockRepository on a
// collection keyed by lock name. The TTL index only garbage-collects; expiry
// is also checked on acquire because the TTL monitor runs once a minute.
type mongoPlanLockRepository struct {
	collection *mongo.Collection
	now        func() time.Time
}

// NewMongoPlanLockRepository creates a new advisory lock repository.
func NewMongoPlanLockRepository(db *mongo.Database) repository.PlanLockRepository {
	return &mongoPlanLockRepository{
		collection: db.Collection(planLockCollectionName),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Acquire takes the lock for owner or returns ErrLockHeld. An expired lock
// held by someone else is taken over.
func (r *mongoPlanLockRepository) Acquire(ctx context.Context, key, owner string, ttl time.Duration) error {
	now := r.now()
	if _, err := r.collection.DeleteOne(ctx, bson.M{"_id": key, "expiresAt": bson.M{"$lte": now}}); err != nil {
		return err
	}

	_, err := r.collection.InsertOne(ctx, planLock{Key: key, Owner: owner, ExpiresAt: now.Add(ttl)})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return repository.ErrLockHeld
		}
		return err
	}
	return nil
}

// Release drops the lock if owner still holds it. Releasing a lock that
// expired or was taken over is not an error.
func (r *mongoPlanLockRepository) Release(ctx context.Context, key, owner string) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"_id": key, "owner": owner})
	return err
}

// EnsurePlanLockIndexes adds the TTL index that clears abandoned locks.
func EnsurePlanLockIndexes(ctx context.Context, collection *mongo.Collection) error {
	_, err := collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "expiresAt", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(0),
	})
	return err
}
