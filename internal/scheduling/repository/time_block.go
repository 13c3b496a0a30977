package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	schedulingerrors "lessonbook/internal/scheduling/errors"
	"lessonbook/pkg/config"
	"lessonbook/pkg/model"
)

const (
	TimeBlockCollectionName = "Time_blocks"
)

type mongoTimeBlockRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

type TimeBlockRepository interface {
	Create(ctx context.Context, block *model.TimeBlock) error
	FindByID(ctx context.Context, id string) (*model.TimeBlock, error)
	FindByTutor(ctx context.Context, tutorID string) ([]*model.TimeBlock, error)
	FindInRange(ctx context.Context, tutorID string, start, end time.Time) ([]*model.TimeBlock, error)
	Delete(ctx context.Context, id string) error
}

func NewMongoTimeBlockRepository(cfg *config.Config) TimeBlockRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoTimeBlockRepository{
		cfg:        cfg,
		collection: db.Collection(TimeBlockCollectionName),
	}
}

func (r *mongoTimeBlockRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.(mongo.SessionContext); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}

func (r *mongoTimeBlockRepository) Create(ctx context.Context, block *model.TimeBlock) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	block.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)

	result, err := r.collection.InsertOne(ctx, block)
	if err != nil {
		return fmt.Errorf("failed to create time block: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		block.ID = oid.Hex()
	}
	return nil
}

func (r *mongoTimeBlockRepository) FindByID(ctx context.Context, id string) (*model.TimeBlock, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", schedulingerrors.ErrInvalidID, id)
	}

	var block model.TimeBlock
	err = r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&block)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s", schedulingerrors.ErrBlockNotFound, id)
		}
		return nil, fmt.Errorf("failed to find time block: %w", err)
	}

	return &block, nil
}

func (r *mongoTimeBlockRepository) FindByTutor(ctx context.Context, tutorID string) ([]*model.TimeBlock, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "start_time", Value: 1}})

	cursor, err := r.collection.Find(ctx, bson.M{"tutor_id": tutorID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find time blocks: %w", err)
	}
	defer cursor.Close(ctx)

	var blocks []*model.TimeBlock
	if err = cursor.All(ctx, &blocks); err != nil {
		return nil, fmt.Errorf("failed to decode time blocks: %w", err)
	}

	return blocks, nil
}

// FindInRange returns the tutor's blocks intersecting [start, end).
func (r *mongoTimeBlockRepository) FindInRange(ctx context.Context, tutorID string, start, end time.Time) ([]*model.TimeBlock, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{
		"tutor_id":   tutorID,
		"start_time": bson.M{"$lt": end},
		"end_time":   bson.M{"$gt": start},
	}

	opts := options.Find().SetSort(bson.D{{Key: "start_time", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find time blocks in range: %w", err)
	}
	defer cursor.Close(ctx)

	var blocks []*model.TimeBlock
	if err = cursor.All(ctx, &blocks); err != nil {
		return nil, fmt.Errorf("failed to decode time blocks: %w", err)
	}

	return blocks, nil
}

func (r *mongoTimeBlockRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", schedulingerrors.ErrInvalidID, id)
	}

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": objectID})
	if err != nil {
		return fmt.Errorf("failed to delete time block: %w", err)
	}
	if result.DeletedCount == 0 {
		return fmt.Errorf("%w: %s", schedulingerrors.ErrBlockNotFound, id)
	}
	return nil
}
