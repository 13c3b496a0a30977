package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"lessonbook/internal/migrations/mongo/validators"
)

var (
	SessionsIndexes = []mongo.IndexModel{
		// Overlap probe on the booking path.
		{Keys: bson.D{
			{Key: "tutor_id", Value: 1},
			{Key: "status", Value: 1},
			{Key: "scheduled_at", Value: 1},
			{Key: "ends_at", Value: 1},
		}},
		{Keys: bson.D{
			{Key: "parent_id", Value: 1},
			{Key: "scheduled_at", Value: 1},
		}},
		{Keys: bson.D{
			{Key: "subscription_id", Value: 1},
			{Key: "status", Value: 1},
			{Key: "scheduled_at", Value: 1},
		}},
		{
			Keys:    bson.D{{Key: "management_token", Value: 1}},
			Options: options.Index().SetUnique(true).SetSparse(true),
		},
	}

	AvailabilityWindowsIndexes = []mongo.IndexModel{
		{Keys: bson.D{
			{Key: "tutor_id", Value: 1},
			{Key: "day_of_week", Value: 1},
			{Key: "active", Value: 1},
		}},
	}

	TimeBlocksIndexes = []mongo.IndexModel{
		{Keys: bson.D{
			{Key: "tutor_id", Value: 1},
			{Key: "start_time", Value: 1},
			{Key: "end_time", Value: 1},
		}},
	}

	// The TTL reaper clears crashed holders; Acquire still checks expires_at
	// itself because the reaper only runs about once a minute.
	TutorLocksIndexes = []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0),
		},
	}
)

func RunMigration(ctx context.Context, client *mongo.Client, dbName string) error {
	db := client.Database(dbName)
	fmt.Printf("🚀 Running scheduler Mongo migrations on database: %s\n", dbName)

	collections := map[string]struct {
		Indexes   []mongo.IndexModel
		Validator bson.M
	}{
		"Sessions": {
			Indexes:   SessionsIndexes,
			Validator: validators.SessionValidator,
		},
		"Availability_windows": {
			Indexes:   AvailabilityWindowsIndexes,
			Validator: validators.AvailabilityWindowValidator,
		},
		"Time_blocks": {
			Indexes:   TimeBlocksIndexes,
			Validator: validators.TimeBlockValidator,
		},
		"Tutor_locks": {
			Indexes:   TutorLocksIndexes,
			Validator: validators.TutorLockValidator,
		},
	}

	for name, def := range collections {
		if err := ensureCollection(ctx, db, name, def.Validator); err != nil {
			return fmt.Errorf("failed to ensure collection %s: %w", name, err)
		}
		if err := ensureIndexes(ctx, db, name, def.Indexes); err != nil {
			return fmt.Errorf("failed to ensure indexes for %s: %w", name, err)
		}
	}

	fmt.Println("✅ All migrations applied successfully.")
	return nil
}

func ensureCollection(ctx context.Context, db *mongo.Database, name string, validator bson.M) error {
	existing, err := db.ListCollectionNames(ctx, bson.D{{Key: "name", Value: name}})
	if err != nil {
		return err
	}

	if len(existing) == 0 {
		fmt.Printf("🆕 Creating collection: %s\n", name)
		opts := options.CreateCollection().SetValidator(validator)
		if err := db.CreateCollection(ctx, name, opts); err != nil {
			return fmt.Errorf("failed creating %s: %w", name, err)
		}
	} else {
		fmt.Printf("ℹ️ Collection %s already exists — updating validator if needed\n", name)
		command := bson.D{
			{Key: "collMod", Value: name},
			{Key: "validator", Value: validator},
		}
		if err := db.RunCommand(ctx, command).Err(); err != nil {
			fmt.Printf("⚠️ Warning: failed updating validator for %s: %v\n", name, err)
		}
	}

	return nil
}

func ensureIndexes(ctx context.Context, db *mongo.Database, name string, models []mongo.IndexModel) error {
	coll := db.Collection(name)
	_, err := coll.Indexes().CreateMany(ctx, models)
	if err != nil {
		return err
	}
	fmt.Printf("📚 Ensured indexes for %s\n", name)
	return nil
}
