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
	mongotx "lessonbook/pkg/db/mongo"
	"lessonbook/pkg/model"
)

const (
	SessionCollectionName = "Sessions"
)

type mongoSessionRepository struct {
	cfg        *config.Config
	db         *mongo.Database
	collection *mongo.Collection
	txManager  mongotx.TransactionManager
}

type SessionRepository interface {
	Create(ctx context.Context, session *model.Session) error
	FindByID(ctx context.Context, id string) (*model.Session, error)
	FindByToken(ctx context.Context, token string) (*model.Session, error)
	FindScheduledInRange(ctx context.Context, tutorID string, start, end time.Time, excludeIDs []string) ([]*model.Session, error)
	FindScheduledBySubscription(ctx context.Context, subscriptionID string) ([]*model.Session, error)
	FindByTutor(ctx context.Context, tutorID string, from, to *time.Time, limit int, offset int64) ([]*model.Session, error)
	CountByTutor(ctx context.Context, tutorID string, from, to *time.Time) (int64, error)
	FindByParent(ctx context.Context, parentID string, from, to *time.Time, limit int, offset int64) ([]*model.Session, error)
	CountByParent(ctx context.Context, parentID string, from, to *time.Time) (int64, error)
	UpdateTimes(ctx context.Context, id string, scheduledAt time.Time, durationMin int) error
	UpdateStatus(ctx context.Context, id string, status model.SessionStatus, reason string) error
	CancelBySubscription(ctx context.Context, subscriptionID string, reason string) (int64, error)
	ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error
}

func NewMongoSessionRepository(cfg *config.Config) SessionRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoSessionRepository{
		cfg:        cfg,
		db:         db,
		collection: db.Collection(SessionCollectionName),
		txManager:  mongotx.NewTransactionManager(cfg.Client.Mongo),
	}
}

// withTimeout wraps the context with a timeout if not already in a transaction.
// When inside a transaction (SessionContext), returns the original context unchanged
// with a no-op cancel function, as we cannot wrap SessionContext without breaking
// transaction semantics.
func (r *mongoSessionRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.(mongo.SessionContext); ok {
		return ctx, func() {}
	}

	deadline, hasDeadline := ctx.Deadline()
	if !hasDeadline {
		return context.WithTimeout(ctx, timeout)
	}

	remaining := time.Until(deadline)
	if remaining < timeout {
		return context.WithTimeout(ctx, remaining)
	}

	return context.WithTimeout(ctx, timeout)
}

func (r *mongoSessionRepository) Create(ctx context.Context, session *model.Session) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	now := time.Now().UTC().Truncate(time.Millisecond)
	session.CreatedAt = now
	session.UpdatedAt = now
	session.EndsAt = session.End()

	result, err := r.collection.InsertOne(ctx, session)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		session.ID = oid.Hex()
	}
	return nil
}

func (r *mongoSessionRepository) FindByID(ctx context.Context, id string) (*model.Session, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", schedulingerrors.ErrInvalidID, id)
	}

	filter := bson.M{"_id": objectID}

	var session model.Session
	err = r.collection.FindOne(ctx, filter).Decode(&session)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, schedulingerrors.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to find session: %w", err)
	}

	return &session, nil
}

func (r *mongoSessionRepository) FindByToken(ctx context.Context, token string) (*model.Session, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{"management_token": token}

	var session model.Session
	err := r.collection.FindOne(ctx, filter).Decode(&session)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, schedulingerrors.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to find session by token: %w", err)
	}

	return &session, nil
}

// FindScheduledInRange returns the tutor's scheduled sessions whose span
// intersects [start, end). The filter relies on the denormalized ends_at
// field. excludeIDs removes a series' own sessions when rescheduling it.
func (r *mongoSessionRepository) FindScheduledInRange(ctx context.Context, tutorID string, start, end time.Time, excludeIDs []string) ([]*model.Session, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{
		"tutor_id":     tutorID,
		"status":       model.SessionStatusScheduled,
		"scheduled_at": bson.M{"$lt": end},
		"ends_at":      bson.M{"$gt": start},
	}

	if len(excludeIDs) > 0 {
		objectIDs := make([]primitive.ObjectID, 0, len(excludeIDs))
		for _, id := range excludeIDs {
			oid, err := primitive.ObjectIDFromHex(id)
			if err != nil {
				return nil, fmt.Errorf("%w: %s", schedulingerrors.ErrInvalidID, id)
			}
			objectIDs = append(objectIDs, oid)
		}
		filter["_id"] = bson.M{"$nin": objectIDs}
	}

	opts := options.Find().SetSort(bson.D{{Key: "scheduled_at", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find sessions in range: %w", err)
	}
	defer cursor.Close(ctx)

	var sessions []*model.Session
	if err = cursor.All(ctx, &sessions); err != nil {
		return nil, fmt.Errorf("failed to decode sessions: %w", err)
	}

	return sessions, nil
}

func (r *mongoSessionRepository) FindScheduledBySubscription(ctx context.Context, subscriptionID string) ([]*model.Session, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{
		"subscription_id": subscriptionID,
		"status":          model.SessionStatusScheduled,
	}

	opts := options.Find().SetSort(bson.D{{Key: "scheduled_at", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find sessions by subscription: %w", err)
	}
	defer cursor.Close(ctx)

	var sessions []*model.Session
	if err = cursor.All(ctx, &sessions); err != nil {
		return nil, fmt.Errorf("failed to decode sessions: %w", err)
	}

	return sessions, nil
}

func (r *mongoSessionRepository) FindByTutor(ctx context.Context, tutorID string, from, to *time.Time, limit int, offset int64) ([]*model.Session, error) {
	return r.findByParty(ctx, "tutor_id", tutorID, from, to, limit, offset)
}

func (r *mongoSessionRepository) CountByTutor(ctx context.Context, tutorID string, from, to *time.Time) (int64, error) {
	return r.countByParty(ctx, "tutor_id", tutorID, from, to)
}

func (r *mongoSessionRepository) FindByParent(ctx context.Context, parentID string, from, to *time.Time, limit int, offset int64) ([]*model.Session, error) {
	return r.findByParty(ctx, "parent_id", parentID, from, to, limit, offset)
}

func (r *mongoSessionRepository) CountByParent(ctx context.Context, parentID string, from, to *time.Time) (int64, error) {
	return r.countByParty(ctx, "parent_id", parentID, from, to)
}

func (r *mongoSessionRepository) findByParty(ctx context.Context, field, id string, from, to *time.Time, limit int, offset int64) ([]*model.Session, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := buildPartyFilter(field, id, from, to)

	opts := options.Find().
		SetSort(bson.D{{Key: "scheduled_at", Value: 1}}).
		SetLimit(int64(limit)).
		SetSkip(offset)

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find sessions: %w", err)
	}
	defer cursor.Close(ctx)

	var sessions []*model.Session
	if err = cursor.All(ctx, &sessions); err != nil {
		return nil, fmt.Errorf("failed to decode sessions: %w", err)
	}

	return sessions, nil
}

func (r *mongoSessionRepository) countByParty(ctx context.Context, field, id string, from, to *time.Time) (int64, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := buildPartyFilter(field, id, from, to)

	count, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to count sessions: %w", err)
	}
	return count, nil
}

func buildPartyFilter(field, id string, from, to *time.Time) bson.M {
	filter := bson.M{field: id}

	timeFilter := bson.M{}
	if from != nil {
		timeFilter["$gte"] = *from
	}
	if to != nil {
		timeFilter["$lt"] = *to
	}
	if len(timeFilter) > 0 {
		filter["scheduled_at"] = timeFilter
	}

	return filter
}

// UpdateTimes moves a session and keeps ends_at consistent with the new
// start and duration.
func (r *mongoSessionRepository) UpdateTimes(ctx context.Context, id string, scheduledAt time.Time, durationMin int) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", schedulingerrors.ErrInvalidID, id)
	}

	filter := bson.M{"_id": objectID}
	update := bson.M{
		"$set": bson.M{
			"scheduled_at": scheduledAt,
			"duration_min": durationMin,
			"ends_at":      scheduledAt.Add(time.Duration(durationMin) * time.Minute),
			"updated_at":   time.Now().UTC().Truncate(time.Millisecond),
		},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to update session times: %w", err)
	}

	if result.MatchedCount == 0 {
		return schedulingerrors.ErrSessionNotFound
	}

	return nil
}

func (r *mongoSessionRepository) UpdateStatus(ctx context.Context, id string, status model.SessionStatus, reason string) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", schedulingerrors.ErrInvalidID, id)
	}

	set := bson.M{
		"status":     status,
		"updated_at": time.Now().UTC().Truncate(time.Millisecond),
	}
	if reason != "" {
		set["cancel_reason"] = reason
	}

	filter := bson.M{"_id": objectID}
	result, err := r.collection.UpdateOne(ctx, filter, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("failed to update session status: %w", err)
	}

	if result.MatchedCount == 0 {
		return schedulingerrors.ErrSessionNotFound
	}

	return nil
}

// CancelBySubscription cancels every still-scheduled session of a
// subscription in one UpdateMany. Sessions already completed, cancelled or
// marked no-show are left untouched, which makes the operation idempotent.
func (r *mongoSessionRepository) CancelBySubscription(ctx context.Context, subscriptionID string, reason string) (int64, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	filter := bson.M{
		"subscription_id": subscriptionID,
		"status":          model.SessionStatusScheduled,
	}
	set := bson.M{
		"status":     model.SessionStatusCancelled,
		"updated_at": time.Now().UTC().Truncate(time.Millisecond),
	}
	if reason != "" {
		set["cancel_reason"] = reason
	}

	result, err := r.collection.UpdateMany(ctx, filter, bson.M{"$set": set})
	if err != nil {
		return 0, fmt.Errorf("failed to cancel sessions by subscription: %w", err)
	}

	return result.ModifiedCount, nil
}

func (r *mongoSessionRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}
