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
	AvailabilityCollectionName = "Availability_windows"
)

type mongoAvailabilityRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

type AvailabilityRepository interface {
	Create(ctx context.Context, window *model.AvailabilityWindow) error
	FindByID(ctx context.Context, id string) (*model.AvailabilityWindow, error)
	FindByTutor(ctx context.Context, tutorID string) ([]*model.AvailabilityWindow, error)
	FindActiveForDay(ctx context.Context, tutorID string, dayOfWeek int) ([]*model.AvailabilityWindow, error)
	Update(ctx context.Context, id string, window *model.AvailabilityWindow) error
	Delete(ctx context.Context, id string) error
}

func NewMongoAvailabilityRepository(cfg *config.Config) AvailabilityRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoAvailabilityRepository{
		cfg:        cfg,
		collection: db.Collection(AvailabilityCollectionName),
	}
}

func (r *mongoAvailabilityRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.(mongo.SessionContext); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}

func (r *mongoAvailabilityRepository) Create(ctx context.Context, window *model.AvailabilityWindow) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	now := time.Now().UTC().Truncate(time.Millisecond)
	window.CreatedAt = now
	window.UpdatedAt = now

	result, err := r.collection.InsertOne(ctx, window)
	if err != nil {
		return fmt.Errorf("failed to create availability window: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		window.ID = oid.Hex()
	}
	return nil
}

func (r *mongoAvailabilityRepository) FindByID(ctx context.Context, id string) (*model.AvailabilityWindow, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", schedulingerrors.ErrInvalidID, id)
	}

	var window model.AvailabilityWindow
	err = r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&window)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s", schedulingerrors.ErrWindowNotFound, id)
		}
		return nil, fmt.Errorf("failed to find availability window: %w", err)
	}

	return &window, nil
}

func (r *mongoAvailabilityRepository) FindByTutor(ctx context.Context, tutorID string) ([]*model.AvailabilityWindow, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{
		{Key: "day_of_week", Value: 1},
		{Key: "start_time", Value: 1},
	})

	cursor, err := r.collection.Find(ctx, bson.M{"tutor_id": tutorID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find availability windows: %w", err)
	}
	defer cursor.Close(ctx)

	var windows []*model.AvailabilityWindow
	if err = cursor.All(ctx, &windows); err != nil {
		return nil, fmt.Errorf("failed to decode availability windows: %w", err)
	}

	return windows, nil
}

// FindActiveForDay returns the tutor's active windows on one weekday.
// Zero-padded clock strings sort lexicographically in chronological order.
func (r *mongoAvailabilityRepository) FindActiveForDay(ctx context.Context, tutorID string, dayOfWeek int) ([]*model.AvailabilityWindow, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{
		"tutor_id":    tutorID,
		"day_of_week": dayOfWeek,
		"active":      true,
	}

	opts := options.Find().SetSort(bson.D{{Key: "start_time", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find active availability windows: %w", err)
	}
	defer cursor.Close(ctx)

	var windows []*model.AvailabilityWindow
	if err = cursor.All(ctx, &windows); err != nil {
		return nil, fmt.Errorf("failed to decode availability windows: %w", err)
	}

	return windows, nil
}

func (r *mongoAvailabilityRepository) Update(ctx context.Context, id string, window *model.AvailabilityWindow) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", schedulingerrors.ErrInvalidID, id)
	}

	filter := bson.M{"_id": objectID}
	update := bson.M{
		"$set": bson.M{
			"day_of_week": window.DayOfWeek,
			"start_time":  window.StartTime,
			"end_time":    window.EndTime,
			"active":      window.Active,
			"updated_at":  time.Now().UTC().Truncate(time.Millisecond),
		},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to update availability window: %w", err)
	}

	if result.MatchedCount == 0 {
		return fmt.Errorf("%w: %s", schedulingerrors.ErrWindowNotFound, id)
	}

	return nil
}

func (r *mongoAvailabilityRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", schedulingerrors.ErrInvalidID, id)
	}

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": objectID})
	if err != nil {
		return fmt.Errorf("failed to delete availability window: %w", err)
	}
	if result.DeletedCount == 0 {
		return fmt.Errorf("%w: %s", schedulingerrors.ErrWindowNotFound, id)
	}
	return nil
}
