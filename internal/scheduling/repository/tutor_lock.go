package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	schedulingerrors "lessonbook/internal/scheduling/errors"
	"lessonbook/pkg/config"
	"lessonbook/pkg/model"
)

const (
	TutorLockCollectionName = "Tutor_locks"
)

// TutorLockRepository provides the advisory lock serializing booking-path
// writes per tutor.
type TutorLockRepository interface {
	Acquire(ctx context.Context, tutorID string, ttl time.Duration) error
	Release(ctx context.Context, tutorID string) error
}

type mongoTutorLockRepository struct {
	collection *mongo.Collection
}

func NewMongoTutorLockRepository(cfg *config.Config) TutorLockRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoTutorLockRepository{
		collection: db.Collection(TutorLockCollectionName),
	}
}

// Acquire inserts the lock document for the tutor. When the insert hits the
// unique _id, the holder may still be a crashed process whose document the
// TTL reaper has not collected yet (the reaper runs about once a minute),
// so an expired lock is taken over in place. A live lock returns
// ErrLockHeld.
func (r *mongoTutorLockRepository) Acquire(ctx context.Context, tutorID string, ttl time.Duration) error {
	now := time.Now().UTC()
	lock := &model.TutorLock{
		ID:        tutorID,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}

	_, err := r.collection.InsertOne(ctx, lock)
	if err == nil {
		return nil
	}
	if !mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("failed to acquire tutor lock: %w", err)
	}

	// Takeover path: succeed only if the existing document already expired.
	filter := bson.M{
		"_id":        tutorID,
		"expires_at": bson.M{"$lt": now},
	}
	update := bson.M{
		"$set": bson.M{
			"expires_at": now.Add(ttl),
			"created_at": now,
		},
	}

	result := r.collection.FindOneAndUpdate(ctx, filter, update)
	if result.Err() != nil {
		if errors.Is(result.Err(), mongo.ErrNoDocuments) {
			return schedulingerrors.ErrLockHeld
		}
		return fmt.Errorf("failed to take over expired tutor lock: %w", result.Err())
	}

	return nil
}

// Release removes the advisory lock
func (r *mongoTutorLockRepository) Release(ctx context.Context, tutorID string) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"_id": tutorID})
	return err
}
